package sim

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ballsim/arena/internal/core/event"
	"github.com/ballsim/arena/internal/core/geom"
	"github.com/ballsim/arena/internal/diag"
	"github.com/ballsim/arena/internal/world"
	"go.uber.org/zap/zaptest"
)

// syncBuffer is written by the diagnostics writer goroutine and read by the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestSim(t *testing.T, sched Scheduler) (*Simulation, *syncBuffer) {
	t.Helper()
	out := &syncBuffer{}
	log := zaptest.NewLogger(t)
	sink := diag.New(out, diag.Options{Capacity: 4096}, log)
	s := New(Config{
		Scheduler:    sched,
		TickInterval: 2 * time.Millisecond,
		Width:        1000,
		Height:       800,
		Seed:         42,
	}, sink, log)
	return s, out
}

func disposeWithin(t *testing.T, s *Simulation, d time.Duration) {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- s.Dispose() }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Dispose: %v", err)
		}
	case <-time.After(d):
		t.Fatalf("Dispose did not return within %s", d)
	}
}

func TestStartCreatesBallsAndCallsBack(t *testing.T) {
	for _, n := range []int{0, 1, 10, 25} {
		s, _ := newTestSim(t, PerEntity)
		calls := 0
		err := s.Start(n, func(pos geom.Vector, b *world.Ball) {
			calls++
			if b == nil {
				t.Fatalf("nil ball handed to callback")
			}
		})
		if err != nil {
			t.Fatalf("Start(%d): %v", n, err)
		}
		if calls != n {
			t.Fatalf("Start(%d): callback called %d times", n, calls)
		}
		if got := s.World().Len(); got != n {
			t.Fatalf("Start(%d): registry holds %d balls", n, got)
		}
		disposeWithin(t, s, 5*time.Second)
	}
}

func TestStartPositionsInsideInnerArena(t *testing.T) {
	s, _ := newTestSim(t, PerEntity)
	s.SetBounds(1000, 800)

	var positions []geom.Vector
	if err := s.Start(50, func(pos geom.Vector, _ *world.Ball) {
		positions = append(positions, pos)
	}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer disposeWithin(t, s, 5*time.Second)

	for _, p := range positions {
		if p.X < 100 || p.X > 900 || p.Y < 80 || p.Y > 720 {
			t.Fatalf("start position %v outside [100,900]x[80,720]", p)
		}
	}
}

func TestStartAssignsIncreasingIDs(t *testing.T) {
	s, _ := newTestSim(t, PerEntity)
	var ids []int64
	start := func(pos geom.Vector, b *world.Ball) { ids = append(ids, b.ID()) }
	if err := s.Start(3, start); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(2, start); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	defer disposeWithin(t, s, 5*time.Second)

	for i := 1; i < len(ids); i++ {
		if ids[i] <= ids[i-1] {
			t.Fatalf("ids not increasing: %v", ids)
		}
	}
	if s.World().Len() != 5 {
		t.Fatalf("registry holds %d balls, want 5", s.World().Len())
	}
}

func TestStartRejectsNilHandler(t *testing.T) {
	s, _ := newTestSim(t, PerEntity)
	defer disposeWithin(t, s, time.Second)

	if err := s.Start(5, nil); !errors.Is(err, ErrNilHandler) {
		t.Fatalf("Start(nil) = %v, want ErrNilHandler", err)
	}
	if s.World().Len() != 0 {
		t.Fatalf("balls created despite error")
	}
}

func TestStartRejectsNegativeCount(t *testing.T) {
	s, _ := newTestSim(t, PerEntity)
	defer disposeWithin(t, s, time.Second)

	if err := s.Start(-1, func(geom.Vector, *world.Ball) {}); !errors.Is(err, ErrNegativeCount) {
		t.Fatalf("Start(-1) = %v, want ErrNegativeCount", err)
	}
}

func TestDisposeIsSingleShot(t *testing.T) {
	s, out := newTestSim(t, PerEntity)
	if err := s.Start(3, func(geom.Vector, *world.Ball) {}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	disposeWithin(t, s, 5*time.Second)

	if !s.Disposed() {
		t.Fatalf("Disposed() = false after Dispose")
	}
	if err := s.Dispose(); !errors.Is(err, ErrDisposed) {
		t.Fatalf("second Dispose = %v, want ErrDisposed", err)
	}
	if err := s.Start(1, func(geom.Vector, *world.Ball) {}); !errors.Is(err, ErrDisposed) {
		t.Fatalf("Start after Dispose = %v, want ErrDisposed", err)
	}
	// disposed check comes before the argument check
	if err := s.Start(1, nil); !errors.Is(err, ErrDisposed) {
		t.Fatalf("Start(nil) after Dispose = %v, want ErrDisposed", err)
	}
	if s.World().Len() != 0 {
		t.Fatalf("registry not cleared")
	}

	text := out.String()
	if strings.Count(text, "worker stopped") != 3 {
		t.Fatalf("want 3 worker stop lines in diagnostics:\n%s", text)
	}
	if !strings.Contains(text, "diagnostics closed:") {
		t.Fatalf("diagnostics sink not closed:\n%s", text)
	}
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		if !strings.HasPrefix(line, "[") || !strings.Contains(line, "ms] ") {
			t.Fatalf("line without elapsed prefix: %q", line)
		}
	}
}

func TestStartThenDisposeImmediately(t *testing.T) {
	for _, sched := range []Scheduler{PerEntity, Global} {
		t.Run(string(sched), func(t *testing.T) {
			s, _ := newTestSim(t, sched)
			if err := s.Start(10, func(geom.Vector, *world.Ball) {}); err != nil {
				t.Fatalf("Start: %v", err)
			}
			disposeWithin(t, s, 5*time.Second)
			if n := s.World().Len(); n != 0 {
				t.Fatalf("registry holds %d balls after Dispose", n)
			}
		})
	}
}

func TestBallsMove(t *testing.T) {
	for _, sched := range []Scheduler{PerEntity, Global} {
		t.Run(string(sched), func(t *testing.T) {
			s, _ := newTestSim(t, sched)

			var initial geom.Vector
			var moved atomic.Bool
			err := s.Start(1, func(pos geom.Vector, b *world.Ball) {
				initial = pos
				b.OnPositionChange(func(ev event.PositionChanged) {
					if !ev.Position.Equal(initial) {
						moved.Store(true)
					}
				})
			})
			if err != nil {
				t.Fatalf("Start: %v", err)
			}
			defer disposeWithin(t, s, 5*time.Second)

			deadline := time.After(2 * time.Second)
			for !moved.Load() {
				select {
				case <-deadline:
					t.Fatalf("ball never left %v; states %+v", initial, s.States())
				case <-time.After(5 * time.Millisecond):
				}
			}
		})
	}
}

func TestBallsStayInsideArena(t *testing.T) {
	for _, sched := range []Scheduler{PerEntity, Global} {
		t.Run(string(sched), func(t *testing.T) {
			s, _ := newTestSim(t, sched)
			if err := s.Start(30, func(geom.Vector, *world.Ball) {}); err != nil {
				t.Fatalf("Start: %v", err)
			}
			defer disposeWithin(t, s, 5*time.Second)

			const d = 20.0
			for i := 0; i < 40; i++ {
				time.Sleep(5 * time.Millisecond)
				for _, st := range s.States() {
					p := st.Position
					if p.X < 0 || p.X > 1000-d || p.Y < 0 || p.Y > 800-d {
						t.Fatalf("ball %d at %v outside arena", st.ID, p)
					}
				}
			}
		})
	}
}

func TestStatsAfterRun(t *testing.T) {
	s, _ := newTestSim(t, Global)
	if err := s.Start(5, func(geom.Vector, *world.Ball) {}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	disposeWithin(t, s, 5*time.Second)

	st := s.Stats()
	if st.RunID != s.RunID() || st.RunID == "" {
		t.Fatalf("run id = %q", st.RunID)
	}
	if st.Balls != 5 {
		t.Fatalf("balls = %d, want 5", st.Balls)
	}
	if st.Physics.Ticks == 0 || st.Notifications == 0 {
		t.Fatalf("no ticks recorded: %+v", st)
	}
	if st.Finished.IsZero() || st.Finished.Before(st.Started) {
		t.Fatalf("finished = %v, started = %v", st.Finished, st.Started)
	}
	if st.Diagnostics.Written == 0 {
		t.Fatalf("no diagnostics written: %+v", st.Diagnostics)
	}
}

func TestConcurrentStartAndDispose(t *testing.T) {
	s, _ := newTestSim(t, PerEntity)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Start(3, func(geom.Vector, *world.Ball) {})
			if err != nil && !errors.Is(err, ErrDisposed) {
				t.Errorf("Start: %v", err)
			}
		}()
	}
	time.Sleep(5 * time.Millisecond)
	disposeWithin(t, s, 5*time.Second)
	wg.Wait()

	if s.World().Len() != 0 {
		t.Fatalf("registry not empty after Dispose")
	}
}

func TestWithoutSink(t *testing.T) {
	s := New(Config{TickInterval: time.Millisecond, Width: 300, Height: 300}, nil, nil)
	if err := s.Start(2, func(geom.Vector, *world.Ball) {}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	disposeWithin(t, s, 5*time.Second)
}
