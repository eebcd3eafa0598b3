//go:build linux

package evtimer

import (
	"encoding/binary"
	"errors"
	"os"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

var notifyV = binary.NativeEndian.AppendUint64(nil, 1)

// Notify wakes the polling loop from any goroutine and runs its handler there.
// Notifications sent before the handler ran are coalesced into one.
type Notify struct {
	noCopy

	efd        int
	notifyOnce atomic.Int32 // used to avoid duplicate writes

	handler func() int
	remove  RemoveFunc
}

// NewNotify registers an eventfd with p, h runs on the polling goroutine
func NewNotify(p Poller, h func() int) (*Notify, error) {
	if p == nil || h == nil {
		return nil, errors.New("NewNotify invalid params")
	}
	// since Linux 2.6.27
	fd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		return nil, os.NewSyscallError("eventfd", err)
	}
	nt := &Notify{
		efd:     fd,
		handler: h,
		remove:  p.Remove,
	}
	if err = p.Register(Handle(fd), nt); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return nt, nil
}

// Notify is thread-safe
func (nt *Notify) Notify() {
	if !nt.notifyOnce.CompareAndSwap(0, 1) {
		return
	}
	for {
		_, err := unix.Write(nt.efd, notifyV) // man 2 eventfd
		if err == unix.EINTR {
			continue
		}
		if err != nil && err != unix.EAGAIN {
			nt.notifyOnce.Store(0)
		}
		return
	}
}

func (nt *Notify) OnRead() int {
	var tmp [8]byte
	for {
		_, err := unix.Read(nt.efd, tmp[:])
		if err == unix.EINTR {
			continue
		}
		if err == unix.EAGAIN { // stale event, nothing was notified
			return Continue
		}
		if err != nil {
			return Fatal
		}
		break
	}
	nt.notifyOnce.Store(0)
	return nt.handler()
}

func (nt *Notify) OnClose() int {
	return Continue
}

// Close must be called on the polling goroutine
func (nt *Notify) Close() error {
	if nt.efd < 0 {
		return nil
	}
	nt.remove(Handle(nt.efd))
	err := unix.Close(nt.efd)
	nt.efd = -1
	return err
}
