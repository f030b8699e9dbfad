package logging

import (
	"fmt"
	"io"
	"net/netip"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/muonblog/mycoserve/internal/errors"
)

// LogEvent is the immutable record of one served connection.
type LogEvent struct {
	Time       time.Time
	Worker     int
	IP         netip.Addr
	Host       string
	Path       string
	Referer    string
	UserAgent  string
	Status     string
	Length     int
	Turnaround time.Duration
	Tally      TallySnapshot
}

// AggregatorConfig configures an Aggregator.
type AggregatorConfig struct {
	// FilePath is opened append-only. Empty means console only.
	FilePath string
	// Console receives every access record. Defaults to os.Stdout.
	Console io.Writer
	// Buffer is the channel capacity; Submit drops events once it is full.
	Buffer int
	// Now is the clock used for up-time. Defaults to time.Now.
	Now func() time.Time
}

type entry struct {
	text string
	echo bool
}

// Aggregator is the single writer for access records. Connections hand it
// events through Submit; one consumer goroutine formats them and writes to
// the log file and the console, so records never interleave.
type Aggregator struct {
	entries chan entry
	console io.Writer
	file    io.WriteCloser
	path    string
	started time.Time

	mu     sync.RWMutex
	closed bool
	done   chan struct{}

	dropped  atomic.Uint64
	reported atomic.Uint64
}

// NewAggregator opens the log file and starts the consumer. A file that
// cannot be opened degrades the aggregator to console-only output.
func NewAggregator(cfg AggregatorConfig) *Aggregator {
	if cfg.Console == nil {
		cfg.Console = os.Stdout
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 256
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	a := &Aggregator{
		entries: make(chan entry, cfg.Buffer),
		console: cfg.Console,
		path:    cfg.FilePath,
		started: cfg.Now(),
		done:    make(chan struct{}),
	}

	if cfg.FilePath != "" {
		f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			werr := errors.NewIOError(errors.ErrCodeLogWrite, "cannot open log file, logging to console only", err).
				WithPath(cfg.FilePath)
			fmt.Fprintf(a.console, "ERROR - %v\n", werr)
		} else {
			a.file = f
		}
	}

	go a.run()

	return a
}

// Submit queues ev for writing. It never blocks: when the queue is full or
// the aggregator is closed the event is dropped and counted.
func (a *Aggregator) Submit(ev LogEvent) bool {
	if ev.Tally.Repeat {
		return a.enqueue(entry{text: a.formatShort(ev), echo: true})
	}
	return a.enqueue(entry{text: a.formatFull(ev), echo: true})
}

func (a *Aggregator) enqueue(e entry) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		a.dropped.Add(1)
		select {
		case <-a.done:
			// No consumer left to report it.
			a.reportDropped()
		default:
		}
		return false
	}

	select {
	case a.entries <- e:
		return true
	default:
		a.dropped.Add(1)
		return false
	}
}

// Dropped returns how many entries were discarded so far.
func (a *Aggregator) Dropped() uint64 {
	return a.dropped.Load()
}

// Writer returns an io.Writer whose output is appended to the log file
// through the consumer. Writes never block and always report success.
func (a *Aggregator) Writer() io.Writer {
	return aggregatorWriter{a}
}

type aggregatorWriter struct {
	a *Aggregator
}

func (w aggregatorWriter) Write(p []byte) (int, error) {
	w.a.enqueue(entry{text: string(p), echo: false})
	return len(p), nil
}

// Close stops accepting events, drains the queue and closes the file. Drops
// not yet reported by the consumer are reported before it returns.
func (a *Aggregator) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		<-a.done
		a.reportDropped()
		return nil
	}
	a.closed = true
	close(a.entries)
	a.mu.Unlock()

	<-a.done
	a.reportDropped()

	if a.file != nil {
		return a.file.Close()
	}
	return nil
}

func (a *Aggregator) run() {
	defer close(a.done)

	for e := range a.entries {
		a.reportDropped()

		if e.echo {
			io.WriteString(a.console, e.text)
		}
		if a.file == nil {
			continue
		}
		if _, err := io.WriteString(a.file, e.text); err != nil {
			werr := errors.NewIOError(errors.ErrCodeLogWrite, "error writing to log file", err).WithPath(a.path)
			fmt.Fprintf(a.console, "ERROR - %v\n", werr)
		}
	}
}

// reportDropped prints a console warning when entries were lost since the
// last report. The consumer calls it before each entry; Close and late
// submitters call it once the consumer is gone.
func (a *Aggregator) reportDropped() {
	total := a.dropped.Load()
	prev := a.reported.Load()
	if total == prev || !a.reported.CompareAndSwap(prev, total) {
		return
	}
	fmt.Fprintf(a.console, "WARN - log queue full, dropped %d entries\n", total-prev)
}

func (a *Aggregator) formatFull(ev LogEvent) string {
	var b strings.Builder
	ts := ev.Time.UTC()

	fmt.Fprintf(&b, "START connection %d\n", ev.Tally.Total)
	fmt.Fprintf(&b, "\tDate: %s\n", ts.Format("2006-01-02"))
	fmt.Fprintf(&b, "\tTime: %s\n", ts.Format("15:04:05.000"))
	fmt.Fprintf(&b, "\tWorker: %d\n", ev.Worker)
	fmt.Fprintf(&b, "\tConnections: %d unique / %d total\n", ev.Tally.Unique, ev.Tally.Total)
	b.WriteString("\tRequest:\n")
	fmt.Fprintf(&b, "\t\tIP: %s\n", formatIP(ev.IP))
	fmt.Fprintf(&b, "\t\tHost: %s\n", orDash(ev.Host))
	fmt.Fprintf(&b, "\t\tPath: %s\n", orDash(ev.Path))
	fmt.Fprintf(&b, "\t\tReferer: %s\n", orDash(ev.Referer))
	fmt.Fprintf(&b, "\t\tUser-Agent: %s\n", orDash(ev.UserAgent))
	b.WriteString("\tResponse:\n")
	fmt.Fprintf(&b, "\t\tStatus: %s\n", ev.Status)
	fmt.Fprintf(&b, "\t\tLength: %d bytes\n", ev.Length)
	fmt.Fprintf(&b, "\t\tTime: %dμs\n", ev.Turnaround.Microseconds())
	fmt.Fprintf(&b, "\tUp-time: %s\n", FormatUptime(ev.Time.Sub(a.started)))
	fmt.Fprintf(&b, "END connection %d\n", ev.Tally.Total)

	return b.String()
}

func (a *Aggregator) formatShort(ev LogEvent) string {
	return fmt.Sprintf("[%d/%d] %dμs %d bytes %s\n",
		ev.Tally.Unique, ev.Tally.Total, ev.Turnaround.Microseconds(), ev.Length, orDash(ev.Path))
}

// FormatUptime renders d as weeks, days, hours, mins and secs, leaving out
// zero units.
func FormatUptime(d time.Duration) string {
	secs := uint64(d / time.Second)
	if d < 0 {
		secs = 0
	}
	units := []struct {
		name  string
		value uint64
	}{
		{"weeks", secs / 604800},
		{"days", (secs / 86400) % 7},
		{"hours", (secs / 3600) % 24},
		{"mins", (secs / 60) % 60},
		{"secs", secs % 60},
	}

	parts := make([]string, 0, len(units))
	for _, u := range units {
		if u.value != 0 {
			parts = append(parts, fmt.Sprintf("%d %s", u.value, u.name))
		}
	}
	if len(parts) == 0 {
		return "0 secs"
	}
	return strings.Join(parts, " ")
}

func formatIP(ip netip.Addr) string {
	if !ip.IsValid() {
		return "anonymous"
	}
	return ip.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
