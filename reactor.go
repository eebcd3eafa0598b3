package evtimer

import (
	"errors"
	"runtime"
	"time"
)

// evData
type evData struct {
	h  Handle
	eh EvHandler
}

// Reactor is a single-threaded readiness poller: epoll on linux,
// WaitForMultipleObjects on windows. It implements Poller.
//
// Every method must be called from the goroutine that calls Poll/Run,
// handlers included.
type Reactor struct {
	noCopy

	ep     evPoll
	closed bool
}

// NewReactor return an instance
func NewReactor(opts ...Option) (*Reactor, error) {
	o := setOptions(opts...)
	r := &Reactor{}
	if err := r.ep.open(o.evReadyNum, o.evDataArrSize); err != nil {
		return nil, err
	}
	return r, nil
}

// Register adds h, eh.OnRead is called each time h becomes readable
func (r *Reactor) Register(h Handle, eh EvHandler) error {
	if eh == nil {
		return errors.New("Register: invalid params")
	}
	if r.closed {
		return ErrClosed
	}
	return r.ep.add(h, eh)
}

// Remove h, it is safe to call from any handler, including h's own
func (r *Reactor) Remove(h Handle) {
	if r.closed {
		return
	}
	r.ep.remove(h)
}

// Len number of registered sources
func (r *Reactor) Len() int {
	return r.ep.evDataMap.Len()
}

// Poll waits for readiness events and dispatches them until a handler returns
// non-zero or timeout elapses. A negative timeout waits forever.
//
// Returns ErrPollAborted when a handler returned a negative value.
func (r *Reactor) Poll(timeout time.Duration) error {
	if r.closed {
		return ErrClosed
	}
	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		msec := -1
		if timeout >= 0 {
			left := time.Until(deadline)
			if left < 0 {
				left = 0
			}
			msec = int((left + time.Millisecond - 1) / time.Millisecond)
		}
		_, ret, err := r.ep.poll(msec)
		if err != nil {
			return err
		}
		if ret < 0 {
			return ErrPollAborted
		}
		if ret > 0 {
			return nil
		}
		if timeout >= 0 && !time.Now().Before(deadline) {
			return nil
		}
	}
}

// Run polls until done returns true or a handler aborts.
func (r *Reactor) Run(done func() bool) error {
	// Refer to go doc runtime.LockOSThread
	// LockOSThread will bind the current goroutine to the current OS thread T,
	// preventing other goroutines from being scheduled onto this thread T
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for !done() {
		if err := r.Poll(-1); err != nil {
			return err
		}
	}
	return nil
}

// Close the poller itself, registered handles are left to their owners
func (r *Reactor) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.ep.close()
}
