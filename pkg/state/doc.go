// Package state owns the agent's only persisted file: the
// {instance_id, heartbeat_interval} pair written after registration and
// read back on every later startup. It also builds the platform
// descriptor sent in the registration request body.
package state
