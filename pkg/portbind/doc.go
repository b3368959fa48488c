/*
Package portbind is the single place ServiceSpec ports become engine-facing
port declarations and host bindings. It is deliberately separate from the
reconciler so the legacy/modern port-shape translation has its own
focused test surface.
*/
package portbind
