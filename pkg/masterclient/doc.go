// Package masterclient is the HTTP/JSON transport to the control
// plane: registration, heartbeat, and event notification. It
// is the only package that knows the wire shape of those three calls;
// everything above it deals in types.ServiceSpec, types.RunningContainer,
// and notify.Event.
package masterclient
