//go:build linux

package evtimer

import (
	"encoding/binary"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// replaced in tests
var timerfdSettime = unix.TimerfdSettime

// nativeTimer is a timerfd whose expiration counter tells how many periods elapsed
type nativeTimer struct {
	t  *Timer
	fd int
}

func (ts *Timers) startNative(t *Timer) error {
	fd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_NONBLOCK|unix.TFD_CLOEXEC)
	if err != nil {
		ts.log.Error("timerfd_create: %s", err.Error())
		return os.NewSyscallError("timerfd_create", err)
	}

	period := unix.NsecToTimespec(int64(t.usec) * 1000)
	spec := unix.ItimerSpec{
		Interval: period,
		Value:    period,
	}
	if err = timerfdSettime(fd, 0 /*Relative time*/, &spec, nil); err != nil {
		ts.log.Error("timerfd_settime: %s", err.Error())
		unix.Close(fd)
		return os.NewSyscallError("timerfd_settime", err)
	}

	nt := &nativeTimer{t: t, fd: fd}
	if err = t.cbs.Register(Handle(fd), nt); err != nil {
		ts.log.Error("timer register: %s", err.Error())
		unix.Close(fd)
		return err
	}
	t.backend = nt
	return nil
}

func (nt *nativeTimer) period() time.Duration {
	return time.Duration(nt.t.usec) * time.Microsecond
}

func (nt *nativeTimer) close() {
	t := nt.t
	t.cbs.Remove(Handle(nt.fd))
	unix.Close(nt.fd)
	nt.fd = -1

	if log := t.ts.log; log.Enabled(LevelDebug) && t.stats.Count > 0 {
		log.Debug("timer: %s", t.stats.String())
	}
}

// OnRead fires the user callback once, whatever the number of elapsed periods
func (nt *nativeTimer) OnRead() int {
	t := nt.t
	var buf [8]byte
	for {
		n, err := unix.Read(nt.fd, buf[:])
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			if err == unix.EAGAIN { // spurious wakeup, nothing expired
				return Continue
			}
			t.ts.log.Error("timer read: %s", err.Error())
			return Fatal
		}
		if n != len(buf) {
			t.ts.log.Error("timer read: short read %d", n)
			return Fatal
		}
		break
	}

	if t.ts.log.Enabled(LevelDebug) {
		t.stats.record(binary.NativeEndian.Uint64(buf[:]), -1)
	}
	return t.cbs.Read(t.user)
}

func (nt *nativeTimer) OnClose() int {
	return nt.t.cbs.Close(nt.t.user)
}
