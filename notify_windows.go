//go:build windows

package evtimer

import (
	"errors"
	"os"
	"sync/atomic"

	"golang.org/x/sys/windows"
)

// Notify wakes the polling loop from any goroutine and runs its handler there.
// Notifications sent before the handler ran are coalesced into one.
type Notify struct {
	noCopy

	h          windows.Handle // auto-reset event
	notifyOnce atomic.Int32

	handler func() int
	remove  RemoveFunc
}

// NewNotify registers an event object with p, h runs on the polling goroutine
func NewNotify(p Poller, h func() int) (*Notify, error) {
	if p == nil || h == nil {
		return nil, errors.New("NewNotify invalid params")
	}
	ev, err := windows.CreateEvent(nil, 0, 0, nil)
	if err != nil {
		return nil, os.NewSyscallError("CreateEvent", err)
	}
	nt := &Notify{
		h:       ev,
		handler: h,
		remove:  p.Remove,
	}
	if err = p.Register(Handle(ev), nt); err != nil {
		windows.CloseHandle(ev)
		return nil, err
	}
	return nt, nil
}

// Notify is thread-safe
func (nt *Notify) Notify() {
	if !nt.notifyOnce.CompareAndSwap(0, 1) {
		return
	}
	if err := windows.SetEvent(nt.h); err != nil {
		nt.notifyOnce.Store(0)
	}
}

func (nt *Notify) OnRead() int {
	nt.notifyOnce.Store(0)
	return nt.handler()
}

func (nt *Notify) OnClose() int {
	return Continue
}

// Close must be called on the polling goroutine
func (nt *Notify) Close() error {
	if nt.h == 0 {
		return nil
	}
	nt.remove(Handle(nt.h))
	err := windows.CloseHandle(nt.h)
	nt.h = 0
	return err
}
