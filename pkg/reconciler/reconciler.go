// Package reconciler implements the reconciliation core: given a desired
// snapshot and a live engine adapter, it drives the set of
// ownership-labeled containers on the host into agreement with the
// snapshot. It is pure control flow over the diff package's set
// arithmetic; port translation happens inside the EngineAdapter's Start,
// and all side effects happen through the EngineAdapter and Notifier
// interfaces.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cuemby/halti-agent/pkg/diff"
	"github.com/cuemby/halti-agent/pkg/log"
	"github.com/cuemby/halti-agent/pkg/metrics"
	"github.com/cuemby/halti-agent/pkg/notify"
	"github.com/cuemby/halti-agent/pkg/types"
)

// EngineAdapter is the container-engine side of the reconciler's
// contract. Implementations must be safe for concurrent use:
// the supervisor calls ListOwned from its own goroutine while the
// reconciler worker calls everything else.
type EngineAdapter interface {
	// ListOwned returns every container carrying the ownership label.
	// Unlabeled containers must never appear here.
	ListOwned(ctx context.Context) ([]types.RunningContainer, error)

	// StopAndRemove stops and deletes the container with the given
	// engine id.
	StopAndRemove(ctx context.Context, id string) error

	// Pull fetches an image from its registry.
	Pull(ctx context.Context, image string) error

	// Start creates and starts a container for spec, applying the
	// ownership labels, port bindings, and host config the translation
	// step built.
	Start(ctx context.Context, spec types.ServiceSpec, bindIP string) error
}

// Notifier reports reconciliation events back to the master. A failed
// notification is logged by the implementation and never raised to the
// reconciler.
type Notifier interface {
	Notify(ctx context.Context, event notify.EventType, meta string)
}

// Reconciler drives one engine adapter to match one desired snapshot at
// a time. It holds no state across invocations beyond its logger and
// the configured port-bind IP; it is safe to invoke repeatedly, at any
// cadence, with the same or an updated snapshot.
type Reconciler struct {
	bindIP string
	logger zerolog.Logger
}

// New creates a Reconciler that binds published ports to bindIP.
func New(bindIP string) *Reconciler {
	return &Reconciler{
		bindIP: bindIP,
		logger: log.WithComponent(log.ComponentReconciler),
	}
}

// Reconcile performs one reconciliation pass against snapshot. It
// returns an error only for structural failures (ErrEngineUnreachable);
// per-service and transient failures are reported via notifier and
// logged, never returned.
func (r *Reconciler) Reconcile(ctx context.Context, snapshot types.DesiredSnapshot, engine EngineAdapter, notifier Notifier) error {
	current, err := indexCurrent(ctx, engine)
	if err != nil {
		if errors.Is(err, ErrEngineUnreachable) {
			return err
		}
		r.logger.Error().Err(err).Msg("failed to list owned containers")
		return nil
	}
	desired := indexDesired(snapshot)

	toRemove, toStart := r.classify(current, desired)

	if err := r.stopPhase(ctx, toRemove, current, engine, notifier); err != nil {
		return err
	}
	if err := r.startPhase(ctx, toStart, desired, engine, notifier); err != nil {
		return err
	}
	return nil
}

func indexCurrent(ctx context.Context, engine EngineAdapter) (map[string]types.RunningContainer, error) {
	containers, err := engine.ListOwned(ctx)
	if err != nil {
		return nil, err
	}
	current := make(map[string]types.RunningContainer, len(containers))
	for _, c := range containers {
		current[strings.TrimPrefix(c.Name, "/")] = c
	}
	return current, nil
}

func indexDesired(snapshot types.DesiredSnapshot) map[string]types.ServiceSpec {
	desired := make(map[string]types.ServiceSpec, len(snapshot.Services))
	for _, spec := range snapshot.Services {
		desired[spec.ServiceID] = spec
	}
	return desired
}

// classify applies diff.Keys to the current/desired name sets and folds
// in version-drift detection: a key present in both sets whose version
// has changed is a forced replace, so it joins both action sets.
func (r *Reconciler) classify(current map[string]types.RunningContainer, desired map[string]types.ServiceSpec) (toRemove, toStart map[string]struct{}) {
	currentKeys := diff.KeySet(keysOf(current))
	desiredKeys := diff.KeySet(keysOf(desired))

	onlyCurrent, onlyDesired, both := diff.Keys(currentKeys, desiredKeys)

	toRemove = onlyCurrent
	toStart = onlyDesired

	for k := range both {
		if desired[k].Version != current[k].VersionLabel {
			toRemove[k] = struct{}{}
			toStart[k] = struct{}{}
		}
	}
	return toRemove, toStart
}

func keysOf[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

// stopPhase removes every container in toRemove, completing fully
// before the caller starts the start phase.
func (r *Reconciler) stopPhase(ctx context.Context, toRemove map[string]struct{}, current map[string]types.RunningContainer, engine EngineAdapter, notifier Notifier) error {
	for name := range toRemove {
		container, ok := current[name]
		if !ok {
			continue
		}

		notifier.Notify(ctx, notify.StopContainer, name)

		logger := log.WithServiceID(r.logger, name)
		if err := engine.StopAndRemove(ctx, container.ID); err != nil {
			if errors.Is(err, ErrEngineUnreachable) {
				return err
			}
			logger.Error().Err(err).Msg("failed to stop and remove container")
			continue
		}
		metrics.ContainersStoppedTotal.Inc()
		logger.Info().Msg("removed container")
	}
	return nil
}

// startPhase starts every service_id in toStart. Each start is
// independent; a failure for one service never prevents the others.
func (r *Reconciler) startPhase(ctx context.Context, toStart map[string]struct{}, desired map[string]types.ServiceSpec, engine EngineAdapter, notifier Notifier) error {
	for serviceID := range toStart {
		spec, ok := desired[serviceID]
		if !ok {
			continue
		}
		if err := r.startContainer(ctx, spec, engine, notifier); err != nil {
			if errors.Is(err, ErrEngineUnreachable) {
				return err
			}
			log.WithServiceID(r.logger, serviceID).Error().Err(err).Msg("failed to start service")
		}
	}
	return nil
}

// startContainer implements the start-container sub-protocol.
// Image-pull and create/start failures are soft: they are
// reported and return nil so the caller does not treat them as
// structural. Only a transport-level engine failure propagates.
func (r *Reconciler) startContainer(ctx context.Context, spec types.ServiceSpec, engine EngineAdapter, notifier Notifier) error {
	notifier.Notify(ctx, notify.PullStart, spec.Image)

	if err := engine.Pull(ctx, spec.Image); err != nil {
		if errors.Is(err, ErrEngineUnreachable) {
			return err
		}
		metrics.ImagePullFailuresTotal.Inc()
		notifier.Notify(ctx, notify.PullFailed, err.Error())
		return nil
	}

	notifier.Notify(ctx, notify.StartContainer, spec.ServiceID)

	if err := engine.Start(ctx, spec, r.bindIP); err != nil {
		if errors.Is(err, ErrEngineUnreachable) {
			return err
		}
		metrics.ContainerStartFailuresTotal.Inc()
		notifier.Notify(ctx, notify.StartContainerFailed, fmt.Sprintf("%s: %s", spec.ServiceID, err.Error()))
		return nil
	}

	metrics.ContainersStartedTotal.Inc()
	return nil
}
