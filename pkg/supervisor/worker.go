package supervisor

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/cuemby/halti-agent/pkg/handoff"
	"github.com/cuemby/halti-agent/pkg/log"
	"github.com/cuemby/halti-agent/pkg/metrics"
	"github.com/cuemby/halti-agent/pkg/reconciler"
)

// Worker is the reconciler side of the two cooperating tasks: it takes
// snapshots from the handoff slot and drives the engine adapter to
// match them, one pass at a time.
type Worker struct {
	slot       *handoff.Slot
	reconciler *reconciler.Reconciler
	engine     reconciler.EngineAdapter
	notifier   reconciler.Notifier
	done       chan struct{}
	logger     zerolog.Logger
}

// NewWorker builds a Worker. The returned Worker has not started; call
// Run in its own goroutine.
func NewWorker(slot *handoff.Slot, rec *reconciler.Reconciler, engine reconciler.EngineAdapter, notifier reconciler.Notifier) *Worker {
	return &Worker{
		slot:       slot,
		reconciler: rec,
		engine:     engine,
		notifier:   notifier,
		done:       make(chan struct{}),
		logger:     log.WithComponent(log.ComponentSupervisorWorker),
	}
}

// Done is closed when Run returns, for whatever reason: a graceful
// shutdown via ctx, or the engine adapter proving unreachable.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Run takes snapshots from the slot and reconciles them until ctx is
// cancelled or the engine adapter is unreachable (reconciler.Reconcile
// returns a non-nil error). Either path closes Done; the caller
// distinguishes a graceful exit from a crash by checking ctx.Err().
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	for {
		snapshot, err := w.slot.Take(ctx)
		if err != nil {
			return
		}

		timer := metrics.NewTimer()
		err = w.reconciler.Reconcile(ctx, snapshot, w.engine, w.notifier)
		timer.ObserveDuration(metrics.ReconciliationDuration)

		if err != nil {
			w.logger.Error().Err(err).Msg("reconciler worker exiting: engine adapter unreachable")
			return
		}
		metrics.ReconciliationPassesTotal.Inc()
	}
}
