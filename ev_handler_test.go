package evtimer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCombine(t *testing.T) {
	all := []int{Fatal, Continue, Break, -7, 3}
	for _, a := range all {
		for _, b := range all {
			got := Combine(a, b)
			switch {
			case a < 0 || b < 0:
				assert.Equal(t, Fatal, got, "%d %d", a, b)
			case a > 0 || b > 0:
				assert.Equal(t, Break, got, "%d %d", a, b)
			default:
				assert.Equal(t, Continue, got, "%d %d", a, b)
			}
		}
	}
}

func TestCallbacksValid(t *testing.T) {
	var cbs *Callbacks
	assert.False(t, cbs.valid())

	p := newFakePoller()
	cbs = PollerCallbacks(p, func(any) int { return Continue }, nopClose)
	assert.True(t, cbs.valid())

	cbs.Close = nil
	assert.False(t, cbs.valid())
}

func TestArrayMap(t *testing.T) {
	am := newArrayMap[evData](4)
	a, b := &evData{h: 1}, &evData{h: 100}
	am.Store(1, a)
	am.Store(100, b)
	am.Store(1, a)
	assert.Equal(t, 2, am.Len())
	assert.Same(t, a, am.Load(1))
	assert.Same(t, b, am.Load(100))
	assert.Nil(t, am.Load(2))

	am.Store(100, nil)
	am.Delete(1)
	am.Delete(1)
	assert.Equal(t, 0, am.Len())
	assert.Nil(t, am.Load(100))

	assert.Panics(t, func() { newArrayMap[evData](0) })
}
