package evtimer

import (
	"time"
)

// tickTimer fires every multiple base ticks
type tickTimer struct {
	ts       *Timers
	multiple uint64 // in base ticks
	res      uint32 // base resolution at start, 100ns
	acc      uint64 // base ticks since last firing
}

func (tt *tickTimer) period() time.Duration {
	return time.Duration(tt.multiple) * time.Duration(tt.res) * 100
}

func (tt *tickTimer) close() {
	tt.ts.base.end()
}

// periodMultiple rounds requested (100ns) to the nearest multiple of res, ties up.
// ok is false when requested is below 90% of res.
func periodMultiple(requested, res uint64) (multiple uint64, ok bool) {
	if res == 0 || requested < res*9/10 {
		return 0, false
	}
	lower := requested / res
	remainder := requested % res
	if res-remainder > remainder {
		return lower, true
	}
	return lower + 1, true
}

func (ts *Timers) startTick(t *Timer) error {
	res, err := ts.base.begin(t.cbs.Register, t.cbs.Remove)
	if err != nil {
		return err
	}

	requested := uint64(t.usec) * 10
	multiple, ok := periodMultiple(requested, uint64(res))
	if !ok {
		ts.log.Error("timer period should be higher than %dus", uint64(res)*9/10/10)
		ts.base.end()
		return ErrPeriodTooShort
	}
	if multiple*uint64(res) != requested {
		ts.log.Info("rounding timer period %dus to %dus", t.usec, multiple*uint64(res)/10)
	}

	t.backend = &tickTimer{
		ts:       ts,
		multiple: multiple,
		res:      res,
	}
	return nil
}

// onTicks is the base tick fan-out, in start order.
// Timers started by a callback of this round did not exist when the ticks elapsed.
func (ts *Timers) onTicks(n uint32) int {
	ret := Continue
	lastID := ts.lastID
	ts.reg.each(func(t *Timer) bool {
		if t.id > lastID {
			return false // appended during this round, ids grow toward the tail
		}
		tt, ok := t.backend.(*tickTimer)
		if !ok {
			return true
		}
		tt.acc += uint64(n)
		if tt.acc >= tt.multiple {
			tt.acc = 0
			ret = Combine(ret, t.cbs.Read(t.user))
		}
		return true
	})
	return ret
}

func (ts *Timers) onBaseClose() int {
	ret := Continue
	ts.reg.each(func(t *Timer) bool {
		if _, ok := t.backend.(*tickTimer); ok {
			ret = Combine(ret, t.cbs.Close(t.user))
		}
		return true
	})
	return ret
}
