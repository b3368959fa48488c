package supervisor

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/halti-agent/pkg/handoff"
	"github.com/cuemby/halti-agent/pkg/log"
	"github.com/cuemby/halti-agent/pkg/metrics"
	"github.com/cuemby/halti-agent/pkg/reconciler"
	"github.com/cuemby/halti-agent/pkg/types"
)

// HeartbeatTransport is the master-facing side of the supervisor's
// contract. masterclient.Instance satisfies this.
type HeartbeatTransport interface {
	Heartbeat(ctx context.Context, containers []types.RunningContainer) (*types.DesiredSnapshot, error)
}

// Supervisor owns the heartbeat cadence: it reports owned containers,
// offers any replying DesiredSnapshot to the handoff slot, and watches
// the reconciler worker's liveness.
type Supervisor struct {
	transport HeartbeatTransport
	engine    reconciler.EngineAdapter
	slot      *handoff.Slot
	interval  time.Duration
	logger    zerolog.Logger
}

// New builds a Supervisor that ticks every interval (the caller converts
// the heartbeat_interval seconds returned at registration).
func New(transport HeartbeatTransport, engine reconciler.EngineAdapter, slot *handoff.Slot, interval time.Duration) *Supervisor {
	return &Supervisor{
		transport: transport,
		engine:    engine,
		slot:      slot,
		interval:  interval,
		logger:    log.WithComponent(log.ComponentSupervisor),
	}
}

// Run ticks until ctx is cancelled or workerDone closes, whichever
// comes first. It returns the process exit code: 0 for a graceful
// shutdown, 1 if the reconciler worker died.
func (s *Supervisor) Run(ctx context.Context, workerDone <-chan struct{}) int {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return 0
		case <-workerDone:
			// The worker also observes ctx at its own suspension points, so
			// a graceful shutdown closes workerDone too; only treat this as
			// a crash if ctx is still live.
			if ctx.Err() != nil {
				return 0
			}
			s.logger.Error().Msg("reconciler worker is dead, exiting")
			metrics.ReconcilerAlive.Set(0)
			return 1
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Supervisor) tick(ctx context.Context) {
	containers, err := s.engine.ListOwned(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list owned containers for heartbeat")
		metrics.HeartbeatFailuresTotal.Inc()
		return
	}

	timer := metrics.NewTimer()
	snapshot, err := s.transport.Heartbeat(ctx, containers)
	timer.ObserveDuration(metrics.HeartbeatDuration)
	if err != nil {
		// Transport error: logged and skipped, not fatal.
		s.logger.Error().Err(err).Msg("heartbeat round trip failed")
		metrics.HeartbeatFailuresTotal.Inc()
		return
	}

	metrics.ReconcilerAlive.Set(1)
	if snapshot == nil {
		return
	}
	if displaced := s.slot.Offer(*snapshot); displaced {
		metrics.SnapshotsDisplacedTotal.Inc()
		s.logger.Debug().Msg("displaced a pending snapshot with a newer one")
	}
}
