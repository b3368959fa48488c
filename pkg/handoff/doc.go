// Package handoff implements the single-slot, latest-wins desired-state
// channel between the supervisor (producer) and the reconciler worker
// (consumer). Depth is fixed at one by construction: Offer displaces
// whatever is waiting, Take blocks until something is.
package handoff
