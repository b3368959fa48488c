/*
Package types defines the wire and observation shapes the reconciliation
core works with: ServiceSpec (desired), RunningContainer (observed), and
DesiredSnapshot (one heartbeat reply's worth of desired state).

These types carry no behavior beyond JSON decoding of the two accepted
port-binding shapes (kept for backward compatibility); set arithmetic
lives in the diff package and port translation in the portbind package.
*/
package types
