//go:build linux

package evtimer

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// evPoll one epoll instance, level triggered
type evPoll struct {
	efd int // epoll fd

	events    []unix.EpollEvent
	evDataMap *arrayMap[evData]
}

func (ep *evPoll) open(evReadyNum, evDataArrSize int) error {
	if evReadyNum < 1 {
		return errors.New("EvReadyNum < 1")
	}
	efd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return os.NewSyscallError("epoll_create1", err)
	}
	ep.efd = efd
	ep.events = make([]unix.EpollEvent, evReadyNum) // NOT make(x, len, cap)
	ep.evDataMap = newArrayMap[evData](evDataArrSize)
	return nil
}

func (ep *evPoll) add(h Handle, eh EvHandler) error {
	fd := int(h)
	if ep.evDataMap.Load(fd) != nil {
		return errors.New("epoll_ctl add: handle already registered")
	}
	ev := unix.EpollEvent{
		Events: unix.EPOLLIN | unix.EPOLLRDHUP,
		Fd:     int32(fd),
	}
	ep.evDataMap.Store(fd, &evData{h: h, eh: eh})
	if err := unix.EpollCtl(ep.efd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		ep.evDataMap.Delete(fd)
		return os.NewSyscallError("epoll_ctl add", err)
	}
	return nil
}

func (ep *evPoll) remove(h Handle) {
	fd := int(h)
	if ep.evDataMap.Load(fd) == nil {
		return
	}
	ep.evDataMap.Delete(fd)
	// The event argument is ignored and can be NULL (but see `man 2 epoll_ctl` BUGS)
	// kernel versions > 2.6.9
	unix.EpollCtl(ep.efd, unix.EPOLL_CTL_DEL, fd, nil)
}

// poll one epoll_wait round, returns the number of ready fds and the combined handler status
func (ep *evPoll) poll(msec int) (int, int, error) {
	for {
		nfds, err := unix.EpollWait(ep.efd, ep.events, msec)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return 0, Fatal, os.NewSyscallError("epoll_wait", err)
		}
		ret := Continue
		for i := 0; i < nfds; i++ {
			ev := &ep.events[i]
			ed := ep.evDataMap.Load(int(ev.Fd))
			if ed == nil {
				continue // removed by a previous handler of this round
			}
			// EPOLLHUP refer to man 2 epoll_ctl
			if ev.Events&(unix.EPOLLHUP|unix.EPOLLERR) != 0 {
				ep.remove(ed.h) // MUST before OnClose()
				ret = Combine(ret, ed.eh.OnClose())
				continue
			}
			if ev.Events&unix.EPOLLIN != 0 {
				ret = Combine(ret, ed.eh.OnRead())
			}
		}
		return nfds, ret, nil
	}
}

func (ep *evPoll) close() error {
	return unix.Close(ep.efd)
}
