package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestRunOnStartTicksImmediately(t *testing.T) {
	s := New(Options{Interval: time.Hour, RunOnStart: true}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	ticked := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, func(ctx context.Context, at time.Time) error {
			ticked <- struct{}{}
			return nil
		})
	}()

	select {
	case <-ticked:
	case <-time.After(time.Second):
		t.Fatal("first tick should run at start")
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRunTicksEveryInterval(t *testing.T) {
	s := New(Options{Interval: 10 * time.Millisecond}, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var count atomic.Int32
	_ = s.Run(ctx, func(ctx context.Context, at time.Time) error {
		if count.Add(1) == 3 {
			cancel()
		}
		return errors.New("tick errors are logged, not fatal")
	})

	if count.Load() < 3 {
		t.Fatalf("expected at least 3 ticks, got %d", count.Load())
	}
}

func TestRunStartupDelayCancelled(t *testing.T) {
	s := New(Options{Interval: time.Hour, RunOnStart: true, StartupDelay: time.Hour}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Run(ctx, func(ctx context.Context, at time.Time) error {
		t.Fatal("tick must not run")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNextTickAlignment(t *testing.T) {
	s := New(Options{Interval: 15 * time.Minute, AlignToStart: true}, zerolog.Nop())
	now := time.Date(2024, 1, 1, 10, 7, 0, 0, time.UTC)

	if got := s.nextTick(now); !got.Equal(time.Date(2024, 1, 1, 10, 15, 0, 0, time.UTC)) {
		t.Fatalf("unexpected aligned tick %s", got)
	}

	s = New(Options{Interval: 15 * time.Minute}, zerolog.Nop())
	if got := s.nextTick(now); !got.Equal(now.Add(15 * time.Minute)) {
		t.Fatalf("unexpected unaligned tick %s", got)
	}
}

func TestNewPanicsOnZeroInterval(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	New(Options{}, zerolog.Nop())
}
