package evtimer

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func pollUntil(t *testing.T, r *Reactor, done func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !done() {
		require.NoError(t, r.Poll(100*time.Millisecond))
		require.True(t, time.Now().Before(deadline), "timed out")
	}
}

func TestNativeIsLinuxDefault(t *testing.T) {
	assert.Equal(t, ModeNative, New().Mode())
	assert.Equal(t, "native", ModeNative.String())
	assert.Equal(t, "tick", ModeTick.String())
}

func TestNativeTimerFires(t *testing.T) {
	r := newReactor(t)
	ts := New()
	defer ts.Shutdown()

	reads := 0
	begin := time.Now()
	tm, err := ts.Start("ctx", 1000, PollerCallbacks(r, func(user any) int {
		assert.Equal(t, "ctx", user)
		reads++
		return Break
	}, nopClose))
	require.NoError(t, err)
	assert.Equal(t, time.Millisecond, tm.Period())
	assert.Equal(t, "ctx", tm.User())
	assert.Equal(t, 1, r.Len())

	pollUntil(t, r, func() bool { return reads >= 5 })
	assert.GreaterOrEqual(t, time.Since(begin), 5*time.Millisecond)
	assert.Equal(t, Stats{}, tm.Stats(), "no diagnostics below debug")
}

func TestNativeTimerCoalescesPeriods(t *testing.T) {
	r := newReactor(t)
	ts := New(WithLog(debugLog(t)))
	defer ts.Shutdown()

	reads := 0
	tm, err := ts.Start(nil, 1000, PollerCallbacks(r, func(any) int {
		reads++
		return Break
	}, nopClose))
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, r.Poll(time.Second))
	assert.Equal(t, 1, reads, "one read whatever the number of elapsed periods")

	st := tm.Stats()
	assert.Equal(t, uint64(1), st.Count)
	assert.GreaterOrEqual(t, st.Missed, uint64(10))
	assert.Nil(t, st.Cores)
}

func TestNativeTimerExpirations(t *testing.T) {
	r := newReactor(t)
	ts := New(WithLog(debugLog(t)))
	defer ts.Shutdown()

	const period = 2 * time.Millisecond
	reads := 0
	var last time.Time
	begin := time.Now()
	tm, err := ts.Start(nil, uint32(period/time.Microsecond), PollerCallbacks(r, func(any) int {
		reads++
		last = time.Now()
		return Break
	}, nopClose))
	require.NoError(t, err)

	pollUntil(t, r, func() bool { return reads >= 30 })
	st := tm.Stats()
	assert.Equal(t, uint64(30), st.Count)
	assert.InDelta(t, int64(last.Sub(begin)/period), int64(st.Count+st.Missed), 2)
}

func TestNativeTimerCloseFromCallback(t *testing.T) {
	r := newReactor(t)
	ts := New()

	var tm *Timer
	var err error
	reads := 0
	tm, err = ts.Start(nil, 1000, PollerCallbacks(r, func(any) int {
		reads++
		tm.Close()
		return Break
	}, nopClose))
	require.NoError(t, err)

	pollUntil(t, r, func() bool { return reads > 0 })
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, 0, ts.Len())

	require.NoError(t, r.Poll(10*time.Millisecond))
	assert.Equal(t, 1, reads)
}

func TestNativeTimerRegisterFailure(t *testing.T) {
	p := newFakePoller()
	p.regErr = assert.AnError
	ts := New()

	tm, err := ts.Start(nil, 1000, PollerCallbacks(p, func(any) int { return Continue }, nopClose))
	assert.Nil(t, tm)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 0, ts.Len())
}

func TestNativeTimerSettimeFailure(t *testing.T) {
	saved := timerfdSettime
	timerfdSettime = func(int, int, *unix.ItimerSpec, *unix.ItimerSpec) error {
		return unix.EINVAL
	}
	defer func() { timerfdSettime = saved }()

	p := newFakePoller()
	ts := New()
	tm, err := ts.Start(nil, 1000, PollerCallbacks(p, func(any) int { return Continue }, nopClose))
	assert.Nil(t, tm)
	var serr *os.SyscallError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "timerfd_settime", serr.Syscall)
	assert.ErrorIs(t, err, unix.EINVAL)
	assert.Equal(t, 0, p.registers, "never registered")
	assert.Equal(t, 0, ts.Len())
}

func TestNativeTimerReadErrors(t *testing.T) {
	p := newFakePoller()
	ts := New()
	defer ts.Shutdown()

	reads := 0
	tm, err := ts.Start(nil, 1000000, PollerCallbacks(p, func(any) int {
		reads++
		return Continue
	}, nopClose))
	require.NoError(t, err)
	require.Len(t, p.handlers, 1)

	nt := tm.backend.(*nativeTimer)
	eh := p.handlers[Handle(nt.fd)]

	// nothing expired yet
	assert.Equal(t, Continue, eh.OnRead())
	assert.Equal(t, 0, reads)

	fd := nt.fd
	nt.fd = -1
	assert.Equal(t, Fatal, eh.OnRead())
	assert.Equal(t, 0, reads)
	nt.fd = fd
}

func TestNativeTimerShutdown(t *testing.T) {
	r := newReactor(t)
	ts := New()

	closes := 0
	for i := 1; i <= 3; i++ {
		_, err := ts.Start(i, uint32(i*1000), PollerCallbacks(r, func(any) int { return Continue }, func(any) int {
			closes++
			return Continue
		}))
		require.NoError(t, err)
	}
	assert.Equal(t, 3, ts.Len())
	assert.Equal(t, 3, r.Len())

	ts.Shutdown()
	assert.Equal(t, 0, ts.Len())
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, 0, closes, "Close callbacks are for sources closed under us")
	ts.Shutdown()
}

func TestTickModeOnLinux(t *testing.T) {
	r := newReactor(t)
	ts := New(Mode(ModeTick), BaseResolution(500*time.Microsecond))

	reads := 0
	begin := time.Now()
	tm, err := ts.Start(nil, 1000, PollerCallbacks(r, func(any) int {
		reads++
		return Break
	}, nopClose))
	require.NoError(t, err)
	assert.Equal(t, uint32(5000), ts.Resolution())
	assert.Equal(t, time.Millisecond, tm.Period())
	assert.Equal(t, 1, ts.BaseUsers())

	other, err := ts.Start(nil, 3000, PollerCallbacks(r, func(any) int { return Continue }, nopClose))
	require.NoError(t, err)
	assert.Equal(t, 1, r.Len(), "one base tick for every tick timer")

	pollUntil(t, r, func() bool { return reads >= 10 })
	assert.GreaterOrEqual(t, time.Since(begin), 9*time.Millisecond)

	_, err = ts.Start(nil, 100, PollerCallbacks(r, func(any) int { return Continue }, nopClose))
	assert.ErrorIs(t, err, ErrPeriodTooShort)

	tm.Close()
	other.Close()
	assert.Equal(t, 0, ts.BaseUsers())
	assert.Equal(t, 0, r.Len())
}
