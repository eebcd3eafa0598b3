//go:build windows

package evtimer

import (
	"errors"
	"math/bits"
	"os"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

const defaultTimerMode = ModeTick

const (
	createWaitableTimerHighResolution = 0x00000002
	timerAllAccess                    = 0x001F0003
)

var (
	modntdll    = windows.NewLazySystemDLL("ntdll.dll")
	modkernel32 = windows.NewLazySystemDLL("kernel32.dll")
	modwinmm    = windows.NewLazySystemDLL("winmm.dll")

	// undocumented, see timerResolution
	procNtQueryTimerResolution = modntdll.NewProc("NtQueryTimerResolution")
	procNtSetTimerResolution   = modntdll.NewProc("NtSetTimerResolution")

	procCreateWaitableTimerExW    = modkernel32.NewProc("CreateWaitableTimerExW")
	procSetWaitableTimer          = modkernel32.NewProc("SetWaitableTimer")
	procQueryPerformanceCounter   = modkernel32.NewProc("QueryPerformanceCounter")
	procQueryPerformanceFrequency = modkernel32.NewProc("QueryPerformanceFrequency")
	procGetCurrentProcessorNumber = modkernel32.NewProc("GetCurrentProcessorNumber")

	procTimeGetDevCaps  = modwinmm.NewProc("timeGetDevCaps")
	procTimeBeginPeriod = modwinmm.NewProc("timeBeginPeriod")
	procTimeEndPeriod   = modwinmm.NewProc("timeEndPeriod")
)

// timerResolution negotiates the system timer interrupt period.
type timerResolution interface {
	query() (min, max, cur uint32, err error)
	set(res uint32, set bool) (uint32, error)
}

// ntResolution uses NtQueryTimerResolution/NtSetTimerResolution, 100ns granularity
type ntResolution struct{}

func (ntResolution) query() (min, max, cur uint32, err error) {
	r1, _, _ := procNtQueryTimerResolution.Call(
		uintptr(unsafe.Pointer(&min)),
		uintptr(unsafe.Pointer(&max)),
		uintptr(unsafe.Pointer(&cur)))
	if r1 != 0 {
		return 0, 0, 0, os.NewSyscallError("NtQueryTimerResolution", windows.NTStatus(r1))
	}
	return
}

func (ntResolution) set(res uint32, set bool) (uint32, error) {
	var cur uint32
	var b uintptr
	if set {
		b = 1
	}
	r1, _, _ := procNtSetTimerResolution.Call(uintptr(res), b, uintptr(unsafe.Pointer(&cur)))
	if r1 != 0 {
		return 0, os.NewSyscallError("NtSetTimerResolution", windows.NTStatus(r1))
	}
	return cur, nil
}

// mmResolution is the documented multimedia timer API, 1ms granularity
type mmResolution struct {
	period uint32 // ms passed to timeBeginPeriod
}

type timeCaps struct {
	periodMin uint32
	periodMax uint32
}

func (r *mmResolution) query() (min, max, cur uint32, err error) {
	var tc timeCaps
	if r1, _, _ := procTimeGetDevCaps.Call(uintptr(unsafe.Pointer(&tc)), unsafe.Sizeof(tc)); r1 != 0 {
		return 0, 0, 0, os.NewSyscallError("timeGetDevCaps", syscall.Errno(r1))
	}
	// coarsest first, like NtQueryTimerResolution
	return tc.periodMax * 10000, tc.periodMin * 10000, tc.periodMax * 10000, nil
}

func (r *mmResolution) set(res uint32, set bool) (uint32, error) {
	if !set {
		if r.period != 0 {
			procTimeEndPeriod.Call(uintptr(r.period))
			r.period = 0
		}
		return res, nil
	}
	ms := (res + 9999) / 10000
	if r1, _, _ := procTimeBeginPeriod.Call(uintptr(ms)); r1 != 0 {
		return 0, os.NewSyscallError("timeBeginPeriod", syscall.Errno(r1))
	}
	r.period = ms
	return ms * 10000, nil
}

// waitableTick drives the base tick with a high resolution waitable timer and QPC
type waitableTick struct {
	h    windows.Handle
	freq uint64
	res  timerResolution
}

func newTickPlatform(o *Options) (tickPlatform, error) {
	var res timerResolution = ntResolution{}
	if procNtQueryTimerResolution.Find() != nil || procNtSetTimerResolution.Find() != nil {
		if !o.resolutionFallback {
			return nil, errors.New("ntdll timer resolution entry points not found")
		}
		o.log.Warn("ntdll timer resolution entry points not found, using timeBeginPeriod")
		res = &mmResolution{}
	}

	p := &waitableTick{res: res}
	if r1, _, err := procQueryPerformanceFrequency.Call(uintptr(unsafe.Pointer(&p.freq))); r1 == 0 {
		return nil, os.NewSyscallError("QueryPerformanceFrequency", err)
	}

	h, _, err := procCreateWaitableTimerExW.Call(0, 0, createWaitableTimerHighResolution, timerAllAccess)
	if h == 0 {
		// before Windows 10 1803
		if h, _, err = procCreateWaitableTimerExW.Call(0, 0, 0, timerAllAccess); h == 0 {
			return nil, os.NewSyscallError("CreateWaitableTimerExW", err)
		}
	}
	p.h = windows.Handle(h)
	return p, nil
}

func (p *waitableTick) queryResolution() (min, max, cur uint32, err error) {
	return p.res.query()
}

func (p *waitableTick) setResolution(res uint32, set bool) (uint32, error) {
	return p.res.set(res, set)
}

// now in 100ns units
func (p *waitableTick) now() int64 {
	var qpc uint64
	procQueryPerformanceCounter.Call(uintptr(unsafe.Pointer(&qpc)))
	hi, lo := bits.Mul64(qpc, 10000000)
	v, _ := bits.Div64(hi, lo, p.freq)
	return int64(v)
}

func (p *waitableTick) arm(due int64) error {
	li := -due // negative is relative
	r1, _, err := procSetWaitableTimer.Call(uintptr(p.h), uintptr(unsafe.Pointer(&li)), 0, 0, 0, 0)
	if r1 == 0 {
		return os.NewSyscallError("SetWaitableTimer", err)
	}
	return nil
}

// synchronization timer, the satisfied wait already reset it
func (p *waitableTick) ack() error {
	return nil
}

func (p *waitableTick) handle() Handle {
	return Handle(p.h)
}

func (p *waitableTick) currentCPU() int {
	return currentCPU()
}

func (p *waitableTick) close() error {
	return windows.CloseHandle(p.h)
}

func currentCPU() int {
	r1, _, _ := procGetCurrentProcessorNumber.Call()
	return int(r1)
}
