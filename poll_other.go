//go:build !linux && !windows

package evtimer

type evPoll struct {
	evDataMap *arrayMap[evData]
}

func (ep *evPoll) open(evReadyNum, evDataArrSize int) error {
	return ErrNotSupported
}

func (ep *evPoll) add(h Handle, eh EvHandler) error {
	return ErrNotSupported
}

func (ep *evPoll) remove(h Handle) {}

func (ep *evPoll) poll(msec int) (int, int, error) {
	return 0, Fatal, ErrNotSupported
}

func (ep *evPoll) close() error {
	return nil
}
