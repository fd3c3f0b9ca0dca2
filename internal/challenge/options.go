package challenge

import "time"

const (
	// DefaultSettleDelay lets the last digit render before auto-submit.
	DefaultSettleDelay = 300 * time.Millisecond
	// DefaultRequestTimeout bounds a single validate call.
	DefaultRequestTimeout = 12 * time.Second
	// DefaultWatchdog reclassifies a hung attempt as unavailable.
	DefaultWatchdog = 15 * time.Second
)

type options struct {
	settleDelay    time.Duration
	requestTimeout time.Duration
	watchdog       time.Duration

	onChange  func(Snapshot)
	onSuccess func()
	onCancel  func()
}

// Option configures a Dialog.
type Option func(*options)

// WithSettleDelay sets the delay between the sixth digit and the submit.
func WithSettleDelay(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.settleDelay = d
		}
	}
}

// WithRequestTimeout sets the per-request timeout. Zero disables it.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.requestTimeout = d
		}
	}
}

// WithWatchdog sets the attempt watchdog.
func WithWatchdog(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.watchdog = d
		}
	}
}

// OnChange registers an observer called with every new snapshot.
func OnChange(fn func(Snapshot)) Option {
	return func(o *options) { o.onChange = fn }
}

// OnSuccess registers the continuation run once after a valid code.
func OnSuccess(fn func()) Option {
	return func(o *options) { o.onSuccess = fn }
}

// OnCancel registers the callback run when the operator abandons the flow.
func OnCancel(fn func()) Option {
	return func(o *options) { o.onCancel = fn }
}

func defaultOptions() options {
	return options{
		settleDelay:    DefaultSettleDelay,
		requestTimeout: DefaultRequestTimeout,
		watchdog:       DefaultWatchdog,
	}
}
