//go:build windows

package evtimer

import (
	"errors"
	"os"
	"time"

	"golang.org/x/sys/windows"
)

const (
	maximumWaitObjects = 64
	waitObject0        = 0x00000000
	waitAbandoned0     = 0x00000080
	waitTimeout        = 0x00000102
)

// evPoll waits on kernel object handles, registration order is dispatch priority
type evPoll struct {
	handles   []windows.Handle
	eds       []*evData
	evDataMap *arrayMap[evData]
}

func (ep *evPoll) open(evReadyNum, evDataArrSize int) error {
	if evReadyNum < 1 {
		return errors.New("EvReadyNum < 1")
	}
	ep.handles = make([]windows.Handle, 0, maximumWaitObjects)
	ep.eds = make([]*evData, 0, maximumWaitObjects)
	ep.evDataMap = newArrayMap[evData](evDataArrSize)
	return nil
}

func (ep *evPoll) add(h Handle, eh EvHandler) error {
	if ep.evDataMap.Load(int(h)) != nil {
		return errors.New("register: handle already registered")
	}
	if len(ep.handles) >= maximumWaitObjects {
		return errors.New("register: MAXIMUM_WAIT_OBJECTS reached")
	}
	ed := &evData{h: h, eh: eh}
	ep.evDataMap.Store(int(h), ed)
	ep.handles = append(ep.handles, windows.Handle(h))
	ep.eds = append(ep.eds, ed)
	return nil
}

func (ep *evPoll) remove(h Handle) {
	if ep.evDataMap.Load(int(h)) == nil {
		return
	}
	ep.evDataMap.Delete(int(h))
	for i := range ep.eds {
		if ep.eds[i].h == h {
			ep.handles = append(ep.handles[:i], ep.handles[i+1:]...)
			ep.eds = append(ep.eds[:i], ep.eds[i+1:]...)
			return
		}
	}
}

// poll one wait, a single handle is signaled per call
func (ep *evPoll) poll(msec int) (int, int, error) {
	if len(ep.handles) == 0 {
		if msec < 0 {
			return 0, Fatal, errors.New("poll: no handle registered")
		}
		time.Sleep(time.Duration(msec) * time.Millisecond)
		return 0, Continue, nil
	}
	timeout := uint32(windows.INFINITE)
	if msec >= 0 {
		timeout = uint32(msec)
	}
	ev, err := windows.WaitForMultipleObjects(ep.handles, false, timeout)
	if err != nil {
		return 0, Fatal, os.NewSyscallError("WaitForMultipleObjects", err)
	}
	if ev == waitTimeout {
		return 0, Continue, nil
	}
	if ev >= waitAbandoned0 && ev < waitAbandoned0+uint32(len(ep.eds)) {
		ed := ep.eds[ev-waitAbandoned0]
		ep.remove(ed.h) // MUST before OnClose()
		return 1, ed.eh.OnClose(), nil
	}
	if ev < waitObject0+uint32(len(ep.eds)) {
		return 1, ep.eds[ev-waitObject0].eh.OnRead(), nil
	}
	return 0, Continue, nil
}

func (ep *evPoll) close() error {
	ep.handles, ep.eds = ep.handles[:0], ep.eds[:0]
	return nil
}
