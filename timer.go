package evtimer

import (
	"time"
)

// timerBackend is how one logical timer is physically realized
type timerBackend interface {
	// effective period
	period() time.Duration

	// release the native side, called once from Timer.Close
	close()
}

// Timer is an application-visible periodic timer.
//
// Timers are not safe for concurrent use. Start, Close and every callback
// run on the goroutine that drives the poller.
type Timer struct {
	noCopy

	id      uint64
	user    any
	usec    uint32
	cbs     Callbacks
	ts      *Timers
	backend timerBackend
	closed  bool
	stats   Stats

	// registry links
	prev   *Timer
	next   *Timer
	linked bool
}

// ID is unique within the owning Timers
func (t *Timer) ID() uint64 { return t.id }

// User returns the context passed to Start
func (t *Timer) User() any { return t.user }

// Requested is the period passed to Start
func (t *Timer) Requested() time.Duration {
	return time.Duration(t.usec) * time.Microsecond
}

// Period is the period actually honored, after rounding to the base resolution in tick mode
func (t *Timer) Period() time.Duration {
	return t.backend.period()
}

// Stats snapshot. Empty unless debug logging was enabled while the timer ran.
func (t *Timer) Stats() Stats {
	return t.stats.clone()
}

// Close stops the timer and releases its resources. A pending event is not delivered.
// It is safe to call from the timer's own Read callback. It always returns nil.
func (t *Timer) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	t.ts.reg.remove(t)
	t.backend.close()
	return nil
}

// Timers owns every logical timer of one polling loop, and the base tick
// source they share in tick mode.
type Timers struct {
	noCopy

	opts   *Options
	log    *Log
	reg    registry
	base   *baseTick
	lastID uint64
}

// New creates an empty timer set
func New(opts ...Option) *Timers {
	o := setOptions(opts...)
	ts := &Timers{
		opts: o,
		log:  o.log,
	}
	ts.base = newBaseTick(o, ts)
	return ts
}

// Mode in use
func (ts *Timers) Mode() TimerMode {
	return ts.opts.mode
}

// Start creates a periodic timer firing every usec microseconds.
//
// Configuration errors (nil callback, zero or too short period) are reported
// before anything is acquired. OS errors come back as *os.SyscallError.
func (ts *Timers) Start(user any, usec uint32, cbs *Callbacks) (*Timer, error) {
	if usec == 0 {
		ts.log.Error("timer period cannot be 0")
		return nil, ErrInvalidPeriod
	}
	if !cbs.valid() {
		ts.log.Error("timer callbacks: Read, Close, Register and Remove are all required")
		return nil, ErrInvalidCallbacks
	}

	ts.lastID++
	t := &Timer{
		id:   ts.lastID,
		ts:   ts,
		user: user,
		usec: usec,
		cbs:  *cbs,
	}
	var err error
	switch ts.opts.mode {
	case ModeTick:
		err = ts.startTick(t)
	case ModeNative:
		err = ts.startNative(t)
	default:
		err = ErrNotSupported
	}
	if err != nil {
		return nil, err
	}
	ts.reg.add(t)
	return t, nil
}

// Len number of live timers
func (ts *Timers) Len() int {
	return ts.reg.len()
}

// Shutdown closes every timer still open, each exactly once, in start order.
// Call it before the process exits.
func (ts *Timers) Shutdown() {
	for t := ts.reg.head; t != nil; t = ts.reg.head {
		t.Close()
	}
}

// Resolution of the base tick in 100ns units, 0 while no tick timer is running
func (ts *Timers) Resolution() uint32 {
	return ts.base.res
}

// BaseUsers is the base tick reference count
func (ts *Timers) BaseUsers() int {
	return ts.base.users
}

// BaseStats snapshot of the base tick diagnostics of the current or last session
func (ts *Timers) BaseStats() Stats {
	return ts.base.stats.clone()
}
