package evtimer

// registry keeps the live timers of one Timers in start order.
//
// A timer may be removed while each() is running, including the one whose
// callback is executing. Unlinking keeps the node's forward pointer so an
// iterator parked on it can still move on, and unlinked nodes are skipped.
type registry struct {
	head *Timer
	tail *Timer
	size int
}

func (r *registry) add(t *Timer) {
	t.prev, t.next = r.tail, nil
	if r.tail != nil {
		r.tail.next = t
	} else {
		r.head = t
	}
	r.tail = t
	t.linked = true
	r.size++
}

func (r *registry) remove(t *Timer) {
	if !t.linked {
		return
	}
	if t.prev != nil {
		t.prev.next = t.next
	} else {
		r.head = t.next
	}
	if t.next != nil {
		t.next.prev = t.prev
	} else {
		r.tail = t.prev
	}
	t.prev = nil // t.next stays, see above
	t.linked = false
	r.size--
}

// each stops early when f returns false
func (r *registry) each(f func(t *Timer) bool) {
	for t := r.head; t != nil; t = t.next {
		if !t.linked {
			continue
		}
		if !f(t) {
			return
		}
	}
}

func (r *registry) len() int {
	return r.size
}
