package evtimer

// Dispatch results shared by every read/close callback in this package.
//
// A negative value aborts the polling loop, zero keeps it running and a
// positive value asks the loop to return control to its caller.
const (
	Fatal    = -1
	Continue = 0
	Break    = 1
)

// Combine folds a callback result into an accumulated one.
// Negative wins over positive, positive wins over zero.
func Combine(ret, status int) int {
	if ret < 0 || status < 0 {
		return Fatal
	}
	if ret > 0 || status > 0 {
		return Break
	}
	return Continue
}

// Handle identifies a readiness source.
// On linux it is a file descriptor, on windows a kernel object HANDLE.
type Handle uintptr

// Detecting illegal struct copies using `go vet`
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// EvHandler is what a Poller dispatches readiness events to.
type EvHandler interface {
	// Poller caught a readable event
	OnRead() int

	// The source was closed or errored outside of our control.
	// The poller has already removed it when OnClose is called.
	OnClose() int
}

// Poller is the readiness-based polling subsystem timers register with.
// Reactor is the implementation shipped with this package.
type Poller interface {
	Register(h Handle, eh EvHandler) error

	Remove(h Handle)
}

type (
	// ReadFunc is invoked once per timer firing.
	ReadFunc func(user any) int

	// CloseFunc is invoked when the poller reports the timer source closed.
	CloseFunc func(user any) int

	// RegisterFunc adds a readiness source to the polling loop.
	RegisterFunc func(h Handle, eh EvHandler) error

	// RemoveFunc removes a readiness source from the polling loop.
	RemoveFunc func(h Handle)
)

// Callbacks is the capability set a timer needs. All four are required.
type Callbacks struct {
	Read     ReadFunc
	Close    CloseFunc
	Register RegisterFunc
	Remove   RemoveFunc
}

func (c *Callbacks) valid() bool {
	return c != nil && c.Read != nil && c.Close != nil && c.Register != nil && c.Remove != nil
}

// PollerCallbacks binds Register/Remove to p.
func PollerCallbacks(p Poller, read ReadFunc, close CloseFunc) *Callbacks {
	return &Callbacks{
		Read:     read,
		Close:    close,
		Register: p.Register,
		Remove:   p.Remove,
	}
}
