// Package supervisor owns the two long-lived tasks the agent runs:
// the heartbeat/offer loop and the reconciler worker loop. It starts no
// goroutines itself: cmd/halti-agent runs Worker.Run in its own
// goroutine and Supervisor.Run on the main one. Everything below it
// (reconciler, handoff, masterclient) is plain synchronous code
// invoked from these two loops.
package supervisor
