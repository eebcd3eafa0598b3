//go:build linux

package evtimer

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

const defaultTimerMode = ModeNative

// timerfdTick drives the base tick with a one-shot timerfd.
// Linux has no system-wide resolution to negotiate, the configured
// BaseResolution is offered, bounded by the clock resolution.
type timerfdTick struct {
	fd  int
	res uint32
}

func newTickPlatform(o *Options) (tickPlatform, error) {
	var ts unix.Timespec
	if err := unix.ClockGetres(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return nil, os.NewSyscallError("clock_getres", err)
	}
	res := o.baseResolution.Nanoseconds() / 100
	if clk := (ts.Nano() + 99) / 100; clk > res {
		res = clk
	}
	fd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_NONBLOCK|unix.TFD_CLOEXEC)
	if err != nil {
		return nil, os.NewSyscallError("timerfd_create", err)
	}
	return &timerfdTick{fd: fd, res: uint32(res)}, nil
}

func (p *timerfdTick) queryResolution() (min, max, cur uint32, err error) {
	return p.res, p.res, p.res, nil
}

func (p *timerfdTick) setResolution(res uint32, set bool) (uint32, error) {
	return p.res, nil
}

func (p *timerfdTick) now() int64 {
	var ts unix.Timespec
	unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts)
	return ts.Nano() / 100
}

func (p *timerfdTick) arm(due int64) error {
	spec := unix.ItimerSpec{
		Value: unix.NsecToTimespec(due * 100), // a zero value would disarm
	}
	if err := unix.TimerfdSettime(p.fd, 0, &spec, nil); err != nil {
		return os.NewSyscallError("timerfd_settime", err)
	}
	return nil
}

func (p *timerfdTick) ack() error {
	var buf [8]byte
	for {
		_, err := unix.Read(p.fd, buf[:])
		if err == unix.EINTR {
			continue
		}
		if err != nil && err != unix.EAGAIN {
			return os.NewSyscallError("read", err)
		}
		return nil
	}
}

func (p *timerfdTick) handle() Handle {
	return Handle(p.fd)
}

func (p *timerfdTick) currentCPU() int {
	return currentCPU()
}

func (p *timerfdTick) close() error {
	return unix.Close(p.fd)
}

// getcpu(2), the vdso is not reachable without cgo
func currentCPU() int {
	var cpu uint32
	_, _, e := unix.RawSyscall(unix.SYS_GETCPU, uintptr(unsafe.Pointer(&cpu)), 0, 0)
	if e != 0 {
		return -1
	}
	return int(cpu)
}
