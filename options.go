package evtimer

import (
	"time"
)

// TimerMode selects how logical timers are realized.
type TimerMode int

const (
	// ModeNative one OS periodic timer per logical timer (linux timerfd)
	ModeNative TimerMode = iota

	// ModeTick every logical timer is a multiple of one shared base tick
	ModeTick
)

func (m TimerMode) String() string {
	switch m {
	case ModeNative:
		return "native"
	case ModeTick:
		return "tick"
	}
	return "unknown"
}

// Options for Timers and Reactor
type Options struct {
	// timer options
	mode               TimerMode
	baseResolution     time.Duration // only used by the linux tick platform
	resolutionFallback bool          // windows: fall back to winmm when ntdll entry points are gone
	log                *Log

	newTickPlatform func(o *Options) (tickPlatform, error)

	// reactor options
	evReadyNum    int
	evDataArrSize int
}

// Option sets one field of Options
type Option func(*Options)

func setOptions(optL ...Option) *Options {
	//= defaut options
	o := &Options{
		mode:               defaultTimerMode,
		baseResolution:     500 * time.Microsecond,
		resolutionFallback: true,
		newTickPlatform:    newTickPlatform,
		evReadyNum:         64,
		evDataArrSize:      1024,
	}
	for _, opt := range optL {
		opt(o)
	}
	if o.log == nil {
		o.log, _ = NewLog("")
	}
	return o
}

// Mode selects the timer backend. Default is native on linux and tick on windows.
func Mode(m TimerMode) Option {
	return func(o *Options) {
		o.mode = m
	}
}

// BaseResolution is the base tick period used by the linux tick platform.
// Windows negotiates its resolution with the kernel and ignores this value.
// Values finer than 100ns are ignored.
func BaseResolution(d time.Duration) Option {
	return func(o *Options) {
		if d >= 100*time.Nanosecond {
			o.baseResolution = d
		}
	}
}

// ResolutionFallback lets the windows base tick back off to the documented
// multimedia timer API when NtQueryTimerResolution/NtSetTimerResolution are unavailable.
func ResolutionFallback(v bool) Option {
	return func(o *Options) {
		o.resolutionFallback = v
	}
}

// WithLog sets the logger. Diagnostics are only collected when it is at LevelDebug or above.
func WithLog(l *Log) Option {
	return func(o *Options) {
		if l != nil {
			o.log = l
		}
	}
}

// EvReadyNum is the number of ready events the reactor fetches per wait
func EvReadyNum(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.evReadyNum = n
		}
	}
}

// EvDataArrSize handles below n are looked up by array index, the rest go to a map
func EvDataArrSize(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.evDataArrSize = n
		}
	}
}

// test hook
func withTickPlatform(f func(o *Options) (tickPlatform, error)) Option {
	return func(o *Options) {
		o.newTickPlatform = f
	}
}
