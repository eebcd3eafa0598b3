//go:build !linux && !windows

package evtimer

// Notify needs a pollable wakeup object, there is none here
type Notify struct{}

func NewNotify(p Poller, h func() int) (*Notify, error) {
	return nil, ErrNotSupported
}

func (nt *Notify) Notify()      {}
func (nt *Notify) Close() error { return nil }
