package evtimer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeTick is a tickPlatform driven by hand, times in 100ns units
type fakeTick struct {
	clock int64
	cpu   int

	minRes, maxRes, curRes uint32
	granted                uint32

	queryErr error
	setErr   error
	armErr   error

	sets   []resolutionCall
	arms   []int64
	acks   int
	opened int
	closed int
}

type resolutionCall struct {
	res uint32
	set bool
}

const fakeHandle = Handle(0x1234)

func newFakeTick() *fakeTick {
	return &fakeTick{
		clock:   1_000_000,
		minRes:  156250,
		maxRes:  5000,
		curRes:  156250,
		granted: 5000,
	}
}

func (f *fakeTick) factory(o *Options) (tickPlatform, error) {
	f.opened++
	return f, nil
}

func (f *fakeTick) queryResolution() (min, max, cur uint32, err error) {
	if f.queryErr != nil {
		return 0, 0, 0, f.queryErr
	}
	return f.minRes, f.maxRes, f.curRes, nil
}

func (f *fakeTick) setResolution(res uint32, set bool) (uint32, error) {
	f.sets = append(f.sets, resolutionCall{res, set})
	if set {
		if f.setErr != nil {
			return 0, f.setErr
		}
		return f.granted, nil
	}
	return res, nil
}

func (f *fakeTick) now() int64 { return f.clock }

func (f *fakeTick) arm(due int64) error {
	f.arms = append(f.arms, due)
	return f.armErr
}

func (f *fakeTick) ack() error {
	f.acks++
	return nil
}

func (f *fakeTick) handle() Handle { return fakeHandle }
func (f *fakeTick) currentCPU() int { return f.cpu }
func (f *fakeTick) close() error { f.closed++; return nil }
func (f *fakeTick) lastArm() int64 { return f.arms[len(f.arms)-1] }
func (f *fakeTick) restored() bool {
	for _, c := range f.sets {
		if !c.set && c.res == f.curRes {
			return true
		}
	}
	return false
}

// fakePoller records registrations
type fakePoller struct {
	handlers  map[Handle]EvHandler
	regErr    error
	registers int
	removes   int
}

func newFakePoller() *fakePoller {
	return &fakePoller{handlers: make(map[Handle]EvHandler)}
}

func (p *fakePoller) Register(h Handle, eh EvHandler) error {
	if p.regErr != nil {
		return p.regErr
	}
	if _, ok := p.handlers[h]; ok {
		return errors.New("already registered")
	}
	p.handlers[h] = eh
	p.registers++
	return nil
}

func (p *fakePoller) Remove(h Handle) {
	delete(p.handlers, h)
	p.removes++
}

// fire lets the armed delay elapse and dispatches the base tick event
func fire(t *testing.T, f *fakeTick, p *fakePoller) int {
	t.Helper()
	eh, ok := p.handlers[fakeHandle]
	require.True(t, ok, "base tick is not registered")
	f.clock += f.lastArm()
	return eh.OnRead()
}

// fireAfter dispatches the base tick event d units after the previous one
func fireAfter(t *testing.T, f *fakeTick, p *fakePoller, d int64) int {
	t.Helper()
	eh, ok := p.handlers[fakeHandle]
	require.True(t, ok, "base tick is not registered")
	f.clock += d
	return eh.OnRead()
}

func newTickTimers(f *fakeTick, opts ...Option) *Timers {
	return New(append([]Option{Mode(ModeTick), withTickPlatform(f.factory)}, opts...)...)
}

func debugLog(t *testing.T) *Log {
	l, err := NewLog(t.TempDir())
	require.NoError(t, err)
	l.SetLevel(LevelDebug)
	t.Cleanup(l.Close)
	return l
}

// funcHandler adapts closures to EvHandler
type funcHandler struct {
	read  func() int
	close func() int
}

func (h *funcHandler) OnRead() int {
	if h.read == nil {
		return Continue
	}
	return h.read()
}

func (h *funcHandler) OnClose() int {
	if h.close == nil {
		return Continue
	}
	return h.close()
}

func nopClose(user any) int { return Continue }
