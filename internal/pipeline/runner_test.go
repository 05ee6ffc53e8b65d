package pipeline_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Lllllllleong/bookcastflow/internal/pipeline"
)

func TestRunBoundedNeverExceedsCeiling(t *testing.T) {
	var inFlight, peak atomic.Int32
	units := make([]pipeline.Unit[int], 25)
	for i := range units {
		units[i] = func(ctx context.Context) (int, error) {
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			inFlight.Add(-1)
			return i, nil
		}
	}

	results, err := pipeline.RunBounded(context.Background(), 10, units)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 25 {
		t.Fatalf("expected 25 results, got %d", len(results))
	}
	if got := peak.Load(); got > 10 {
		t.Fatalf("expected at most 10 units in flight, observed %d", got)
	}
	if got := peak.Load(); got < 2 {
		t.Fatalf("expected units to overlap, observed peak %d", got)
	}
}

func TestRunBoundedFailureDoesNotCancelSiblings(t *testing.T) {
	boom := errors.New("boom")
	var completed atomic.Int32
	units := []pipeline.Unit[string]{
		func(ctx context.Context) (string, error) { return "", boom },
		func(ctx context.Context) (string, error) {
			time.Sleep(10 * time.Millisecond)
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			completed.Add(1)
			return "b", nil
		},
		func(ctx context.Context) (string, error) {
			completed.Add(1)
			return "c", nil
		},
	}

	results, err := pipeline.RunBounded(context.Background(), 1, units)
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error to contain boom, got %v", err)
	}
	if completed.Load() != 2 {
		t.Fatalf("expected both siblings to complete, got %d", completed.Load())
	}
	if len(results) != 2 || results[0] != "b" || results[1] != "c" {
		t.Fatalf("expected successful results in input order, got %v", results)
	}
}

func TestRunBoundedEmpty(t *testing.T) {
	results, err := pipeline.RunBounded[int](context.Background(), 3, nil)
	if err != nil || len(results) != 0 {
		t.Fatalf("expected no results and no error, got %v %v", results, err)
	}
}
