package evtimer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ids(r *registry) []uint64 {
	var l []uint64
	r.each(func(t *Timer) bool {
		l = append(l, t.id)
		return true
	})
	return l
}

func TestRegistry(t *testing.T) {
	var r registry
	tl := make([]*Timer, 5)
	for i := range tl {
		tl[i] = &Timer{id: uint64(i + 1)}
		r.add(tl[i])
	}
	assert.Equal(t, 5, r.len())
	assert.Equal(t, []uint64{1, 2, 3, 4, 5}, ids(&r))

	r.remove(tl[0])
	r.remove(tl[2])
	r.remove(tl[4])
	r.remove(tl[4])
	assert.Equal(t, 2, r.len())
	assert.Equal(t, []uint64{2, 4}, ids(&r))
	assert.Same(t, tl[1], r.head)
	assert.Same(t, tl[3], r.tail)

	r.add(tl[0])
	assert.Equal(t, []uint64{2, 4, 1}, ids(&r))
}

func TestRegistryRemoveWhileIterating(t *testing.T) {
	var r registry
	tl := make([]*Timer, 4)
	for i := range tl {
		tl[i] = &Timer{id: uint64(i + 1)}
		r.add(tl[i])
	}

	var seen []uint64
	r.each(func(t *Timer) bool {
		seen = append(seen, t.id)
		switch t.id {
		case 1:
			r.remove(t) // self
		case 2:
			r.remove(tl[2]) // the next one
			r.remove(t)
		}
		return true
	})
	assert.Equal(t, []uint64{1, 2, 4}, seen)
	assert.Equal(t, []uint64{4}, ids(&r))

	seen = seen[:0]
	r.add(tl[0])
	r.each(func(t *Timer) bool {
		seen = append(seen, t.id)
		return false
	})
	assert.Equal(t, []uint64{4}, seen)
}
