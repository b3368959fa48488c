/*
Package log provides structured logging via zerolog: JSON-structured
output, component-scoped child loggers, and a global Logger initialized
once at process start.

Call Init before anything else logs:

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

Components get their own scoped logger rather than sharing the global
one directly:

	logger := log.WithComponent("engine")
	logger.Error().Err(err).Msg("failed to pull image")

This package is used by pkg/engine, pkg/masterclient, pkg/supervisor,
and pkg/reconciler, each under its own component tag.
*/
package log
