//go:build !linux && !windows

package evtimer

const defaultTimerMode = ModeTick

func newTickPlatform(o *Options) (tickPlatform, error) {
	return nil, ErrNotSupported
}
