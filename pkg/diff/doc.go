// Package diff provides diff.Keys(a, b) = (a∖b, b∖a, a∩b) over generic
// comparable key sets. It is the only place set arithmetic lives in the
// agent; the reconciler builds its current/desired index maps and hands
// their key sets here.
package diff
