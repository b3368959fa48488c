// Package metrics defines and registers the agent's Prometheus
// metrics: reconciliation throughput and duration, container
// start/stop counts, handoff displacement, and heartbeat health.
// Metrics are package-level variables registered at init, exposed over
// HTTP via Handler for scraping.
package metrics
