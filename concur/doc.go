// Package concur provides the shared vocabulary used by the go-concur
// coordination primitives (barrier, semaphore, rwlock, keyedmap): a
// generic asynchronous completion type, the two host collaborator
// interfaces those primitives are driven by, and the stable error kinds
// they fail with.
//
// # Host collaborators
//
// go-concur does not run its own event loop. It consumes a
// [TimerService] (schedule a one-shot callback after N milliseconds,
// cancellable by handle) and a [Scheduler] (defer a callback until the
// current logical step completes). Both interfaces are intentionally
// shaped like [github.com/joeycumines/go-eventloop]'s JS.SetTimeout /
// ClearTimeout / QueueMicrotask, so a caller already running that event
// loop can wire it in via concur/eventloopadapter. Callers without an
// event loop can use concur/realtime instead.
//
// # Completions
//
// [Completion] models "a value-producing computation which may complete
// either synchronously with a value or later with a value or failure."
// It settles at most once; subsequent settlement attempts are no-ops.
package concur
