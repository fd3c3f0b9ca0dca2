// Package challenge drives a sign-in time TOTP challenge: it collects a six
// digit code, auto-submits it and classifies the outcome under a per-request
// timeout and a longer watchdog.
package challenge

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// CodeLength is the number of digits in a code.
const CodeLength = 6

// Validator checks a candidate code against the verification service.
type Validator interface {
	Validate(ctx context.Context, code string) (bool, error)
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(ctx context.Context, code string) (bool, error)

// Validate calls f.
func (f ValidatorFunc) Validate(ctx context.Context, code string) (bool, error) {
	return f(ctx, code)
}

// PublicError is implemented by errors that carry a message safe to show the
// operator.
type PublicError interface {
	PublicMessage() string
}

// Dialog is the client verification state machine. Its methods are safe for
// concurrent use. Callbacks run while the dialog is locked and must not call
// back into it.
type Dialog struct {
	validator Validator
	opts      options

	closed atomic.Bool

	mu       sync.Mutex
	snap     Snapshot
	gen      uint64
	settle   *time.Timer
	abort    context.CancelFunc
	inflight sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

// New returns an Idle dialog that validates codes with v.
func New(v Validator, opts ...Option) *Dialog {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Dialog{
		validator: v,
		opts:      o,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Snapshot returns the current view.
func (d *Dialog) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snap
}

// Closed reports whether the dialog has been torn down.
func (d *Dialog) Closed() bool {
	return d.closed.Load()
}

// Type appends a digit. Non-digits and a seventh digit are ignored. It
// reports whether the input changed.
func (d *Dialog) Type(r rune) bool {
	if r < '0' || r > '9' {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.editableLocked() || len(d.snap.Input) >= CodeLength {
		return false
	}
	d.setInputLocked(d.snap.Input + string(r))
	return true
}

// Backspace removes the last digit.
func (d *Dialog) Backspace() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.editableLocked() || d.snap.Input == "" {
		return false
	}
	d.setInputLocked(d.snap.Input[:len(d.snap.Input)-1])
	return true
}

// SetInput replaces the input with the digits of s, truncated to CodeLength.
func (d *Dialog) SetInput(s string) bool {
	digits := make([]byte, 0, CodeLength)
	for i := 0; i < len(s) && len(digits) < CodeLength; i++ {
		if s[i] >= '0' && s[i] <= '9' {
			digits = append(digits, s[i])
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.editableLocked() {
		return false
	}
	d.setInputLocked(string(digits))
	return true
}

// Retry leaves UnavailableFailure for an empty Idle dialog.
func (d *Dialog) Retry() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed.Load() || d.snap.State != UnavailableFailure {
		return false
	}
	d.emitLocked(Snapshot{State: Idle})
	return true
}

// Cancel abandons the flow, tears the dialog down and runs the cancel
// callback. It is refused once the code has been accepted.
func (d *Dialog) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed.Load() || d.snap.State == Succeeded {
		return false
	}
	d.teardownLocked()
	if d.opts.onCancel != nil {
		d.opts.onCancel()
	}
	return true
}

// Close cancels any in-flight attempt and pending timer. No state change
// or callback happens after Close returns.
func (d *Dialog) Close() {
	d.mu.Lock()
	d.teardownLocked()
	d.mu.Unlock()

	d.inflight.Wait()
}

func (d *Dialog) teardownLocked() {
	if d.closed.Swap(true) {
		return
	}
	d.gen++
	d.stopSettleLocked()
	if d.abort != nil {
		d.abort()
		d.abort = nil
	}
	d.cancel()
}

func (d *Dialog) editableLocked() bool {
	if d.closed.Load() {
		return false
	}
	return d.snap.State == Idle || d.snap.State == RecoverableFailure
}

// setInputLocked stores input and arms or disarms the settle timer. Every
// input change invalidates a pending settle.
func (d *Dialog) setInputLocked(input string) {
	d.gen++
	d.stopSettleLocked()
	d.emitLocked(Snapshot{State: Idle, Input: input})

	if len(input) == CodeLength {
		gen := d.gen
		d.settle = time.AfterFunc(d.opts.settleDelay, func() { d.submit(gen) })
	}
}

func (d *Dialog) stopSettleLocked() {
	if d.settle != nil {
		d.settle.Stop()
		d.settle = nil
	}
}

func (d *Dialog) emitLocked(s Snapshot) {
	d.snap = s
	if d.opts.onChange != nil {
		d.opts.onChange(s)
	}
}

func (d *Dialog) submit(gen uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed.Load() || gen != d.gen || d.snap.State != Idle || len(d.snap.Input) != CodeLength {
		return
	}

	d.settle = nil
	d.gen++
	ctx, abort := context.WithCancel(d.ctx)
	d.abort = abort
	code := d.snap.Input
	d.emitLocked(Snapshot{State: Submitting, Input: code})

	d.inflight.Add(1)
	go d.attempt(ctx, abort, d.gen, code)
}

type result struct {
	valid bool
	err   error
}

// attempt races the validate call against the per-request timeout and the
// watchdog. Whichever resolves first settles the attempt and the attempt
// context is cancelled so the others are dropped.
func (d *Dialog) attempt(ctx context.Context, abort context.CancelFunc, gen uint64, code string) {
	defer d.inflight.Done()
	defer abort()

	reqCtx := ctx
	if d.opts.requestTimeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, d.opts.requestTimeout)
		defer cancel()
	}

	watchdog := time.NewTimer(d.opts.watchdog)
	defer watchdog.Stop()

	done := make(chan result, 1)
	go func() {
		valid, err := d.validator.Validate(reqCtx, code)
		done <- result{valid: valid, err: err}
	}()

	select {
	case <-ctx.Done():
		return
	case <-watchdog.C:
		d.settleAttempt(gen, Snapshot{State: UnavailableFailure, Message: MessageUnavailable}, false)
	case <-reqCtx.Done():
		if ctx.Err() != nil {
			return
		}
		d.settleAttempt(gen, Snapshot{State: RecoverableFailure, Message: MessageTimeout}, false)
	case res := <-done:
		d.settleResult(ctx, gen, res)
	}
}

func (d *Dialog) settleResult(ctx context.Context, gen uint64, res result) {
	switch {
	case res.err == nil && res.valid:
		d.settleAttempt(gen, Snapshot{State: Succeeded}, true)
	case res.err == nil:
		d.settleAttempt(gen, Snapshot{State: RecoverableFailure, Message: MessageInvalidCode}, false)
	case ctx.Err() != nil:
		// torn down or cancelled mid-request
	case errors.Is(res.err, context.DeadlineExceeded):
		d.settleAttempt(gen, Snapshot{State: RecoverableFailure, Message: MessageTimeout}, false)
	default:
		slog.WarnContext(ctx, "challenge validate failed", "error", res.err)
		d.settleAttempt(gen, Snapshot{State: RecoverableFailure, Message: publicMessage(res.err)}, false)
	}
}

func (d *Dialog) settleAttempt(gen uint64, next Snapshot, success bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed.Load() || gen != d.gen || d.snap.State != Submitting {
		return
	}

	d.gen++
	d.abort = nil
	if success {
		next.Input = d.snap.Input
	}
	d.emitLocked(next)

	if success && d.opts.onSuccess != nil {
		d.opts.onSuccess()
	}
}

func publicMessage(err error) string {
	var pe PublicError
	if errors.As(err, &pe) {
		if msg := pe.PublicMessage(); msg != "" {
			return msg
		}
	}
	return MessageFailed
}
