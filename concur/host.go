package concur

// TimerHandle identifies a scheduled, not-yet-fired timer. The zero
// value never refers to a live timer.
type TimerHandle = uint64

// TimerService schedules one-shot delayed callbacks on behalf of a
// waiting acquisition. Implementations must be safe for concurrent use.
//
// Firing may overshoot the requested delay by a small, system-dependent
// slack. Cancelling a timer that has already fired is a no-op.
type TimerService interface {
	// SetTimeout schedules fn to run after delayMs milliseconds,
	// returning a handle that can be passed to ClearTimeout. delayMs <= 0
	// still schedules fn for the next logical step rather than running
	// it inline, so callers may rely on asynchronous delivery.
	SetTimeout(fn func(), delayMs int) (TimerHandle, error)

	// ClearTimeout cancels a timer previously returned by SetTimeout. It
	// is a no-op if the timer has already fired or been cancelled.
	ClearTimeout(handle TimerHandle) error
}

// Scheduler defers a callback until the current logical step completes,
// so that callers observe state changes atomically relative to their
// own step. Implementations must be safe for concurrent use.
type Scheduler interface {
	// QueueMicrotask enqueues fn to run once the current callback
	// returns, before any later-queued task runs.
	QueueMicrotask(fn func()) error
}
