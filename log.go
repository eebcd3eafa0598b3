package evtimer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sync"
	"time"
)

// LogLevel orders log output, higher is more verbose
type LogLevel int

const (
	LevelFatal LogLevel = iota
	LevelError
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace

	levelNum
)

var levelNames = [levelNum]string{"fatal", "error", "warn", "info", "debug", "trace"}

func (lv LogLevel) String() string {
	if lv < 0 || lv >= levelNum {
		return "unknown"
	}
	return levelNames[lv]
}

// Log writes one file per level and per day, or everything to stdout.
//
// A nil *Log is valid and drops everything.
type Log struct {
	noCopy

	level LogLevel
	sinks [levelNum]log
}

// NewLog output to stdout if dir == ""
func NewLog(dir string) (*Log, error) {
	l := &Log{level: LevelError}
	for i := range l.sinks {
		l.sinks[i].dir = dir
		l.sinks[i].name = levelNames[i]
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.New("NewLog mkdir fail! " + err.Error())
		}
	}
	return l, nil
}

// SetLevel messages above lv are dropped
func (l *Log) SetLevel(lv LogLevel) {
	if lv < LevelFatal {
		lv = LevelFatal
	} else if lv >= levelNum {
		lv = LevelTrace
	}
	l.level = lv
}

// Level returns the current threshold
func (l *Log) Level() LogLevel {
	if l == nil {
		return LevelFatal
	}
	return l.level
}

// Enabled reports whether messages at lv are written
func (l *Log) Enabled(lv LogLevel) bool {
	return l != nil && lv <= l.level
}

func (l *Log) Trace(format string, v ...any) {
	l.output(LevelTrace, format, v...)
}
func (l *Log) Debug(format string, v ...any) {
	l.output(LevelDebug, format, v...)
}
func (l *Log) Info(format string, v ...any) {
	l.output(LevelInfo, format, v...)
}
func (l *Log) Warn(format string, v ...any) {
	l.output(LevelWarn, format, v...)
}
func (l *Log) Error(format string, v ...any) {
	l.output(LevelError, format, v...)
}
func (l *Log) Fatal(format string, v ...any) {
	l.output(LevelFatal, format, v...)
}

// Close releases the files opened so far
func (l *Log) Close() {
	if l == nil {
		return
	}
	for i := range l.sinks {
		l.sinks[i].mtx.Lock()
		l.sinks[i].close()
		l.sinks[i].mtx.Unlock()
	}
}

func (l *Log) output(lv LogLevel, format string, v ...any) {
	if !l.Enabled(lv) {
		return
	}
	l.sinks[lv].write(format, v...)
}

// implement
type log struct {
	newFileYear  int
	newFileMonth int
	newFileDay   int
	w            io.Writer
	f            *os.File
	dir          string
	name         string
	buff         []byte

	mtx sync.Mutex
}

func (l *log) newFile(year, month, day int) error {
	if l.w == nil || l.newFileYear != year || l.newFileMonth != month || l.newFileDay != day {
		l.close()
		if err := l.open(year, month, day); err != nil {
			return err
		}
	}
	return nil
}
func (l *log) open(year, month, day int) error {
	if l.dir == "" {
		l.w = os.Stdout
	} else {
		fname := fmt.Sprintf("%s-%d-%02d-%02d.log", l.name, year, month, day)
		f, err := os.OpenFile(path.Join(l.dir, fname), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return err
		}
		l.f, l.w = f, f
	}
	l.newFileYear, l.newFileMonth, l.newFileDay = year, month, day
	l.buff = make([]byte, 0, 512)
	l.itoa(year, 4)
	l.buff = append(l.buff, '-')
	l.itoa(month, 2)
	l.buff = append(l.buff, '-')
	l.itoa(day, 2)
	l.buff = append(l.buff, ' ')
	return nil
}
func (l *log) close() {
	if l.f != nil {
		l.f.Close()
		l.f = nil
	}
	l.w = nil
}
func (l *log) write(format string, v ...any) {
	now := time.Now()
	year, month, day := now.Date()

	l.mtx.Lock()
	defer l.mtx.Unlock()

	if err := l.newFile(year, int(month), day); err != nil {
		return
	}

	hour, min, sec := now.Clock()
	l.itoa(hour, 2)
	l.buff = append(l.buff, ':')
	l.itoa(min, 2)
	l.buff = append(l.buff, ':')
	l.itoa(sec, 2)
	l.buff = append(l.buff, '.')
	l.itoa(now.Nanosecond()/1e3, 6)
	if l.dir != "" {
		l.buff = append(l.buff, " > "...)
	} else {
		l.buff = append(l.buff, ' ')
		l.buff = append(l.buff, l.name+" > "...)
	}

	l.buff = fmt.Appendf(l.buff, format, v...)
	l.buff = append(l.buff, '\n')
	l.w.Write(l.buff)
	l.buff = l.buff[:11 /*len("2023-07-05 ")*/]
}
func (l *log) itoa(i int, wid int) {
	// Assemble decimal in reverse order.
	var b [8]byte
	bp := len(b) - 1
	for i >= 10 || wid > 1 {
		wid--
		q := i / 10
		b[bp] = byte('0' + i - q*10)
		bp--
		i = q
	}
	// i < 10
	b[bp] = byte('0' + i)
	l.buff = append(l.buff, b[bp:]...)
}
