package evtimer

// arrayMap indexes with a small range use array indexing, while indexes with a large range use a map.
// Not thread safe, it lives on the polling goroutine.
//
// Storing nil is the same as Delete.
type arrayMap[T any] struct {
	arrSize int
	arr     []*T
	n       int

	sMap map[int]*T
}

// T only Pointer
func newArrayMap[T any](arrSize int) *arrayMap[T] {
	if arrSize < 1 {
		panic("newArrayMap arrSize < 1")
	}
	return &arrayMap[T]{
		arrSize: arrSize,
		arr:     make([]*T, arrSize),
		sMap:    make(map[int]*T),
	}
}

func (am *arrayMap[T]) Load(i int) *T {
	if i >= 0 && i < am.arrSize {
		return am.arr[i]
	}
	return am.sMap[i]
}
func (am *arrayMap[T]) Store(i int, v *T) {
	if v == nil {
		am.Delete(i)
		return
	}
	if i >= 0 && i < am.arrSize {
		if am.arr[i] == nil {
			am.n++
		}
		am.arr[i] = v
		return
	}
	if _, ok := am.sMap[i]; !ok {
		am.n++
	}
	am.sMap[i] = v
}
func (am *arrayMap[T]) Delete(i int) {
	if i >= 0 && i < am.arrSize {
		if am.arr[i] != nil {
			am.n--
			am.arr[i] = nil
		}
		return
	}
	if _, ok := am.sMap[i]; ok {
		am.n--
		delete(am.sMap, i)
	}
}
func (am *arrayMap[T]) Len() int {
	return am.n
}
