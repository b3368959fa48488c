package reconciler

import "errors"

// ErrEngineUnreachable is the sentinel a transport-level EngineAdapter
// failure must wrap (errors.Is). It is the only condition a
// reconciliation pass treats as hard: everything else (a failed pull, a
// rejected create/start) is swallowed, reported via Notifier, and
// retried on the next pass.
var ErrEngineUnreachable = errors.New("engine adapter unreachable")
