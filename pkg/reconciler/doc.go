/*
Package reconciler is the reconciliation core: index current and desired
state by name/service_id, diff their key sets, fold in version-drift
detection, then stop everything that should go before starting anything
that should come up. One Reconcile call is one reconciliation pass; the
type holds no state across passes and is safe to call repeatedly from a
single worker goroutine at any cadence.

Reconcile never returns an error for a failure isolated to one service —
those are reported through Notifier and logged. It returns an error only
when the EngineAdapter itself is unreachable (ErrEngineUnreachable),
which the supervisor treats as the reconciler worker having crashed.
*/
package reconciler
