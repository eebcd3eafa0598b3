package evtimer

import (
	"errors"
)

// tickPlatform is the OS side of the base tick: resolution negotiation,
// a one-shot waitable timer and a high resolution clock.
// All times and resolutions are in 100ns units.
type tickPlatform interface {
	// min is the coarsest, max the finest resolution the system supports
	queryResolution() (min, max, cur uint32, err error)

	// set=true requests res and returns the granted one, set=false releases the request
	setResolution(res uint32, set bool) (uint32, error)

	now() int64

	// arm the timer to signal once, due units from now (due >= 1)
	arm(due int64) error

	// consume the signal, called first on every readiness event
	ack() error

	handle() Handle

	// processor the caller runs on, -1 if unknown
	currentCPU() int

	close() error
}

// fanOut receives what the base tick observed
type fanOut interface {
	onTicks(n uint32) int
	onBaseClose() int
}

// baseTick is the single shared timer every tick-mode Timer is a multiple of.
// It exists while users > 0.
type baseTick struct {
	noCopy

	log        *Log
	opts       *Options
	fan        fanOut
	plat       tickPlatform
	users      int
	res        uint32 // negotiated, 100ns
	orig       uint32 // resolution before negotiation
	negotiated bool
	registered bool
	last       int64 // last observed tick
	next       int64 // next deadline
	register   RegisterFunc
	remove     RemoveFunc
	stats      Stats
}

func newBaseTick(o *Options, fan fanOut) *baseTick {
	return &baseTick{
		log:  o.log,
		opts: o,
		fan:  fan,
	}
}

// begin takes a reference. The first one negotiates the resolution, arms the
// timer and registers it. Returns the resolution in 100ns units, 0 on failure.
func (bt *baseTick) begin(register RegisterFunc, remove RemoveFunc) (uint32, error) {
	if register == nil || remove == nil || bt.fan == nil {
		bt.log.Error("base timer: register, remove and tick callbacks are required")
		return 0, ErrInvalidCallbacks
	}

	if bt.users > 0 && !bt.registered {
		bt.log.Error("base timer: closed by the poller, close every tick timer first")
		return 0, ErrBaseClosed
	}

	bt.users++
	if bt.users > 1 {
		return bt.res, nil
	}
	bt.register, bt.remove = register, remove
	if err := bt.open(); err != nil {
		bt.end()
		return 0, err
	}
	return bt.res, nil
}

func (bt *baseTick) open() error {
	p, err := bt.opts.newTickPlatform(bt.opts)
	if err != nil {
		bt.log.Error("base timer: %s", err.Error())
		return err
	}
	bt.plat = p

	minRes, maxRes, cur, err := p.queryResolution()
	if err != nil {
		bt.log.Error("base timer: query resolution: %s", err.Error())
		return err
	}
	bt.orig = cur
	granted, err := p.setResolution(maxRes, true)
	if err != nil {
		bt.log.Error("base timer: set resolution: %s", err.Error())
		return err
	}
	bt.negotiated = true
	if granted == 0 {
		bt.log.Error("base timer: system granted a null resolution")
		return errors.New("base timer: null resolution")
	}
	bt.res = granted
	bt.log.Debug("Timer resolution: min=%d max=%d current=%d", minRes, maxRes, granted)

	bt.stats.reset()

	if err = p.arm(1); err != nil {
		bt.log.Error("base timer: arm: %s", err.Error())
		return err
	}
	bt.last = p.now()
	bt.next = bt.last + int64(bt.res)

	if err = bt.register(p.handle(), bt); err != nil {
		bt.log.Error("base timer: register: %s", err.Error())
		return err
	}
	bt.registered = true
	return nil
}

// end drops a reference, the last one restores the resolution and releases everything.
// Extra calls are no-ops.
func (bt *baseTick) end() {
	if bt.users == 0 {
		return
	}
	bt.users--
	if bt.users > 0 {
		return
	}

	if p := bt.plat; p != nil {
		if bt.negotiated {
			if _, err := p.setResolution(bt.orig, false); err != nil {
				bt.log.Warn("base timer: restore resolution: %s", err.Error())
			}
		}
		if bt.registered {
			bt.remove(p.handle())
		}
		p.close()
	}
	if bt.log.Enabled(LevelDebug) && bt.stats.Count > 0 {
		bt.log.Debug("base timer: %s", bt.stats.String())
		bt.log.Debug("timer count per core:%s", bt.stats.CoresString())
		bt.log.Debug("missed slices:%s", bt.stats.SlicesString())
	}

	bt.plat = nil
	bt.res, bt.orig = 0, 0
	bt.negotiated, bt.registered = false, false
	bt.register, bt.remove = nil, nil
}

// OnRead turns the time elapsed since the last observed tick into a tick count.
//
// The timer is rearmed before anything else runs, against the deadline computed
// at the previous tick, so a slow callback cannot push the schedule back.
// A rearm error is only reported once the tick has been dispatched.
func (bt *baseTick) OnRead() int {
	p := bt.plat
	if p == nil {
		return Continue
	}
	if err := p.ack(); err != nil {
		bt.log.Error("base timer: ack: %s", err.Error())
		return Fatal
	}

	now := p.now()
	delta := now - bt.last
	res := int64(bt.res)
	var n int64
	if delta > 0 {
		n = (delta + res/2) / res // nearest, the wakeup jitters around the boundary
	}
	if n > 0 {
		bt.last = now
		bt.next = now + res
	}
	due := bt.next - now
	if due < 1 {
		due = 1
	}
	rearmErr := p.arm(due)

	ret := Continue
	if n > 0 {
		ret = bt.fan.onTicks(uint32(n))
	}
	if bt.plat != p { // the last tick timer closed inside the fan-out
		return ret
	}

	if bt.log.Enabled(LevelDebug) {
		bt.stats.record(uint64(n), p.currentCPU())
		if bt.log.Enabled(LevelTrace) {
			bt.log.Trace("--- delta = %d nexp = %d next = %d time = %d", delta, n, due, p.now()-now)
		}
	}

	if rearmErr != nil {
		bt.log.Error("base timer: rearm: %s", rearmErr.Error())
		return Fatal
	}
	return ret
}

// OnClose the base handle was closed under us, every tick timer is told.
// The tick source is gone, so the polling loop is aborted.
func (bt *baseTick) OnClose() int {
	bt.registered = false
	bt.log.Error("base timer: handle closed by the poller")
	return Combine(Fatal, bt.fan.onBaseClose())
}
