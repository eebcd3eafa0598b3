package evtimer

import "errors"

var (
	// ErrInvalidCallbacks one of Read, Close, Register or Remove is nil
	ErrInvalidCallbacks = errors.New("evtimer: missing required callback")

	// ErrInvalidPeriod timer period cannot be 0
	ErrInvalidPeriod = errors.New("evtimer: timer period cannot be 0")

	// ErrPeriodTooShort the period cannot be honored at the negotiated resolution
	ErrPeriodTooShort = errors.New("evtimer: timer period below resolution")

	// ErrBaseClosed the poller closed the base tick while tick timers still use it
	ErrBaseClosed = errors.New("evtimer: base tick closed by the poller")

	// ErrNotSupported the requested timer mode has no backend on this platform
	ErrNotSupported = errors.New("evtimer: timer mode not supported on this platform")

	// ErrPollAborted a handler returned a negative status
	ErrPollAborted = errors.New("evtimer: poll aborted by handler")

	// ErrClosed operation on a closed Reactor
	ErrClosed = errors.New("evtimer: reactor closed")
)
