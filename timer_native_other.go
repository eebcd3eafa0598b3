//go:build !linux

package evtimer

// No native periodic expiration counter outside linux, use ModeTick.
func (ts *Timers) startNative(t *Timer) error {
	ts.log.Error("native timers are not supported on this platform")
	return ErrNotSupported
}
