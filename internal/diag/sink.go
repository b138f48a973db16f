// Package diag persists timestamped diagnostic lines through a bounded queue
// drained by one writer goroutine. Producers never block: when the queue is
// full the line is dropped and counted.
package diag

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ErrClosed is returned by a second Close.
var ErrClosed = errors.New("diag: sink already closed")

type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

type Options struct {
	Capacity         int           // queue bound, default 1000
	DrainTimeout     time.Duration // how long Close waits for the writer, default 2s
	DropWarnInterval time.Duration // rate limit for overflow warnings, default 5s
	Clock            Clock
}

func (o Options) withDefaults() Options {
	if o.Capacity <= 0 {
		o.Capacity = 1000
	}
	if o.DrainTimeout <= 0 {
		o.DrainTimeout = 2 * time.Second
	}
	if o.DropWarnInterval <= 0 {
		o.DropWarnInterval = 5 * time.Second
	}
	if o.Clock == nil {
		o.Clock = ClockFunc(time.Now)
	}
	return o
}

// Stats is a snapshot of sink counters.
type Stats struct {
	Written uint64
	Dropped uint64
	Queued  int
}

// Sink is the diagnostics pipeline. Safe for concurrent producers.
type Sink struct {
	opts  Options
	start time.Time
	queue chan string
	stop  chan struct{}
	done  chan struct{}
	log   *zap.Logger

	mu       sync.Mutex // serializes writes between the writer goroutine and Close
	out      *bufio.Writer
	closer   io.Closer
	finished bool

	closed      atomic.Bool
	written     atomic.Uint64
	dropped     atomic.Uint64
	lastDropLog atomic.Int64
}

// Open truncates (or creates) the file at path and starts a sink writing to it.
func Open(path string, opts Options, log *zap.Logger) (*Sink, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create diagnostics dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open diagnostics log %s: %w", path, err)
	}
	return New(f, opts, log), nil
}

// New starts a sink writing to w. If w is an io.Closer it is closed by Close.
func New(w io.Writer, opts Options, log *zap.Logger) *Sink {
	opts = opts.withDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	s := &Sink{
		opts:  opts,
		start: opts.Clock.Now(),
		queue: make(chan string, opts.Capacity),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
		log:   log,
		out:   bufio.NewWriter(w),
	}
	if c, ok := w.(io.Closer); ok {
		s.closer = c
	}
	go s.run()
	return s
}

func (s *Sink) elapsed() int64 {
	return s.opts.Clock.Now().Sub(s.start).Milliseconds()
}

func (s *Sink) format(msg string) string {
	return fmt.Sprintf("[%dms] %s", s.elapsed(), msg)
}

// Log stamps msg with the elapsed time and enqueues it. Never blocks.
func (s *Sink) Log(msg string) {
	if s.closed.Load() {
		return
	}
	line := s.format(msg)
	select {
	case s.queue <- line:
	default:
		s.handleDrop(msg)
	}
}

func (s *Sink) Logf(format string, args ...any) {
	if s.closed.Load() {
		return
	}
	s.Log(fmt.Sprintf(format, args...))
}

func (s *Sink) handleDrop(msg string) {
	s.dropped.Add(1)
	now := time.Now().UnixNano()
	next := s.lastDropLog.Load()
	if next == 0 || now >= next {
		if s.lastDropLog.CompareAndSwap(next, now+s.opts.DropWarnInterval.Nanoseconds()) {
			s.log.Warn("diagnostics queue full, dropping event",
				zap.Int("capacity", s.opts.Capacity),
				zap.Uint64("dropped_total", s.dropped.Load()),
				zap.String("event", msg),
			)
		}
	}
}

// run is the single consumer. It writes one line at a time and flushes after
// each, then drains whatever is left once stop is closed.
func (s *Sink) run() {
	defer close(s.done)
	for {
		select {
		case line := <-s.queue:
			s.write(line)
		case <-s.stop:
			for {
				select {
				case line := <-s.queue:
					s.write(line)
				default:
					return
				}
			}
		}
	}
}

func (s *Sink) write(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeLocked(line)
}

func (s *Sink) writeLocked(line string) {
	if s.finished {
		// dequeued by a writer that outlived the drain timeout
		s.dropped.Add(1)
		return
	}
	if _, err := s.out.WriteString(line + "\n"); err != nil {
		s.log.Warn("diagnostics write failed", zap.Error(err))
		return
	}
	if err := s.out.Flush(); err != nil {
		s.log.Warn("diagnostics flush failed", zap.Error(err))
		return
	}
	s.written.Add(1)
}

// Close stops accepting lines, gives the writer DrainTimeout to empty the
// queue, then synchronously writes anything still queued plus a summary line
// and closes the underlying writer.
func (s *Sink) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	close(s.stop)

	timer := time.NewTimer(s.opts.DrainTimeout)
	defer timer.Stop()
	select {
	case <-s.done:
	case <-timer.C:
		s.log.Warn("diagnostics writer did not drain in time, flushing remaining entries",
			zap.Duration("timeout", s.opts.DrainTimeout),
			zap.Int("queued", len(s.queue)),
		)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.drainLocked()
	s.writeLocked(s.format(fmt.Sprintf("diagnostics closed: written=%d dropped=%d",
		s.written.Load(), s.dropped.Load())))
	s.finished = true

	if s.closer != nil {
		if err := s.closer.Close(); err != nil {
			return fmt.Errorf("close diagnostics log: %w", err)
		}
	}
	return nil
}

func (s *Sink) drainLocked() {
	for {
		select {
		case line := <-s.queue:
			s.writeLocked(line)
		default:
			return
		}
	}
}

func (s *Sink) Stats() Stats {
	return Stats{
		Written: s.written.Load(),
		Dropped: s.dropped.Load(),
		Queued:  len(s.queue),
	}
}
