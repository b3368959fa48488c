// Package engine is the containerd-backed implementation of
// reconciler.EngineAdapter. It is the only package in this module that
// imports github.com/containerd/containerd; everything above it talks
// to the adapter interface, never to containerd types directly.
package engine
