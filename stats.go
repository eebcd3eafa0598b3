package evtimer

import (
	"fmt"
	"strconv"
	"strings"
)

// MissedSlices is the number of buckets in Stats.Slices.
// Bucket i counts events that coalesced i+1 extra periods, the last bucket is "10 or more".
const MissedSlices = 10

// Stats are the diagnostics of one timer source.
// They are only collected while the logger is at LevelDebug or above.
type Stats struct {
	Count  uint64 // readiness events
	Missed uint64 // periods that elapsed without their own event
	Slices [MissedSlices]uint64
	Cores  []uint64 // events per processor, base tick only
}

// record one event that observed n elapsed periods on processor cpu (-1 if unknown)
func (s *Stats) record(n uint64, cpu int) {
	s.Count++
	if cpu >= 0 {
		if cpu >= len(s.Cores) {
			cores := make([]uint64, cpu+1)
			copy(cores, s.Cores)
			s.Cores = cores
		}
		s.Cores[cpu]++
	}
	if n > 1 {
		slice := uint64(MissedSlices - 1)
		if n-2 < slice {
			slice = n - 2
		}
		s.Slices[slice]++
		s.Missed += n - 1
	}
}

// MissedPercent is missed / (count + missed) in percent
func (s *Stats) MissedPercent() float64 {
	if s.Count+s.Missed == 0 {
		return 0
	}
	return float64(s.Missed) * 100 / float64(s.Count+s.Missed)
}

func (s *Stats) clone() Stats {
	c := *s
	if s.Cores != nil {
		c.Cores = append([]uint64(nil), s.Cores...)
	}
	return c
}

func (s *Stats) reset() {
	*s = Stats{}
}

// String e.g. "count = 1000, missed = 3 (0.30%)"
func (s *Stats) String() string {
	return fmt.Sprintf("count = %d, missed = %d (%.02f%%)", s.Count, s.Missed, s.MissedPercent())
}

// CoresString e.g. " 12 0 988 0"
func (s *Stats) CoresString() string {
	var sb strings.Builder
	for _, c := range s.Cores {
		sb.WriteByte(' ')
		sb.WriteString(strconv.FormatUint(c, 10))
	}
	return sb.String()
}

// SlicesString e.g. " [1] 3 [2] 0 ... [10+] 0"
func (s *Stats) SlicesString() string {
	var sb strings.Builder
	i := 0
	for ; i < MissedSlices-1; i++ {
		fmt.Fprintf(&sb, " [%d] %d", i+1, s.Slices[i])
	}
	fmt.Fprintf(&sb, " [%d+] %d", i+1, s.Slices[i])
	return sb.String()
}
