// periodic runs a set of timers and reports how far each firing lands from
// its expected time, in percent of the period.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/shaovie/evtimer"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// upper bounds of the deviation buckets, in percent of the period
var slices = []int64{5, 10, 25, 50, 100}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

type config struct {
	Mode       string     `yaml:"mode"`       // native or tick, empty for the platform default
	Resolution Duration   `yaml:"resolution"` // base tick on linux
	Samples    int        `yaml:"samples"`    // stop once the last timer fired that many times
	LogDir     string     `yaml:"log_dir"`
	Timers     []Duration `yaml:"timers"`
}

func defaultConfig() *config {
	c := &config{Resolution: Duration(500 * time.Microsecond)}
	for i := 1; i <= 10; i++ {
		c.Timers = append(c.Timers, Duration(time.Duration(i)*time.Millisecond))
	}
	return c
}

func loadConfig(path string) (*config, error) {
	c := defaultConfig()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return c, nil
}

type timerTest struct {
	period time.Duration
	timer  *evtimer.Timer
	next   time.Time
	sum    time.Duration
	count  int
	slices [6]int
}

var (
	done    atomic.Bool
	samples int
	tests   []*timerTest
	bar     *progressbar.ProgressBar
)

func (tt *timerTest) process(diff time.Duration) {
	percent := int64(diff * 100 / tt.period)
	i := 0
	for ; i < len(slices); i++ {
		if percent <= slices[i] {
			break
		}
	}
	tt.slices[i]++
	tt.sum += diff
	tt.count++

	if tt == tests[len(tests)-1] {
		if bar != nil {
			bar.Add(1)
		}
		if tt.count == samples {
			done.Store(true)
		}
	}
}

func onRead(user any) int {
	tt := user.(*timerTest)
	now := time.Now()
	diff := now.Sub(tt.next)
	if diff < 0 {
		diff = -diff // early firing: scheduling delay varies, tick periods are rounded
	}
	tt.process(diff)

	if runtime.GOOS == "windows" {
		tt.next = now.Add(tt.period)
	} else {
		for {
			tt.next = tt.next.Add(tt.period)
			if tt.next.After(now) {
				break
			}
		}
	}
	return evtimer.Break // hand control back so done is checked
}

func onClose(user any) int {
	done.Store(true)
	return evtimer.Break
}

func main() {
	var (
		confPath = flag.String("c", "", "YAML config file")
		debug    = flag.Bool("d", false, "log timer diagnostics")
		trace    = flag.Bool("t", false, "log every base tick")
		n        = flag.Int("n", 0, "number of samples of the last timer, 0 runs until interrupted")
	)
	flag.Parse()

	conf, err := loadConfig(*confPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	samples = conf.Samples
	if *n > 0 {
		samples = *n
	}

	log, err := evtimer.NewLog(conf.LogDir)
	if err != nil {
		panic(err.Error())
	}
	defer log.Close()
	if *debug {
		log.SetLevel(evtimer.LevelDebug)
	}
	if *trace {
		log.SetLevel(evtimer.LevelTrace)
	}

	opts := []evtimer.Option{
		evtimer.WithLog(log),
		evtimer.BaseResolution(time.Duration(conf.Resolution)),
	}
	switch conf.Mode {
	case "native":
		opts = append(opts, evtimer.Mode(evtimer.ModeNative))
	case "tick":
		opts = append(opts, evtimer.Mode(evtimer.ModeTick))
	}

	reactor, err := evtimer.NewReactor()
	if err != nil {
		panic(err.Error())
	}
	defer reactor.Close()
	timers := evtimer.New(opts...)

	nt, err := evtimer.NewNotify(reactor, func() int {
		done.Store(true)
		return evtimer.Break
	})
	if err != nil {
		panic(err.Error())
	}
	defer nt.Close()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		nt.Notify()
	}()

	if samples > 0 && term.IsTerminal(int(os.Stderr.Fd())) {
		bar = progressbar.Default(int64(samples))
	}

	for _, p := range conf.Timers {
		tt := &timerTest{period: time.Duration(p)}
		tests = append(tests, tt)
		tt.timer, err = timers.Start(tt, uint32(tt.period/time.Microsecond),
			evtimer.PollerCallbacks(reactor, onRead, onClose))
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			done.Store(true)
			break
		}
		tt.next = time.Now().Add(tt.period)
	}

	runtime.LockOSThread()
	for !done.Load() {
		if err = reactor.Poll(-1); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			break
		}
	}
	timers.Shutdown()
	if bar != nil {
		bar.Close()
	}
	fmt.Fprintln(os.Stderr, "Exiting")

	fmt.Print("timer\tperiod\tcount\tdiff")
	for j, s := range slices {
		if j == 0 {
			fmt.Printf("\t0-%d", s)
		} else {
			fmt.Printf("\t%d-%d", slices[j-1], s)
		}
	}
	fmt.Printf("\t>%d\n", slices[len(slices)-1])
	for i, tt := range tests {
		if tt.count == 0 {
			continue
		}
		fmt.Printf("%d\t%dus\t%d\t%d/1K", i, tt.period/time.Microsecond, tt.count,
			tt.sum*1000/time.Duration(tt.count)/tt.period)
		for _, c := range tt.slices {
			fmt.Printf("\t%d", c)
		}
		fmt.Println()
	}
}
