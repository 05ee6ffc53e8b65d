package handoff_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Lllllllleong/bookcastflow/internal/handoff"
	"github.com/Lllllllleong/bookcastflow/internal/models"
)

func TestQueueTriggerOrder(t *testing.T) {
	q := handoff.NewQueue()
	ctx := context.Background()

	id1, err := q.Trigger(ctx, "p1", models.StageScripting)
	if err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}
	id2, _ := q.Trigger(ctx, "p2", models.StageExtraction)
	if id1 == id2 || id1 != "local-1" || id2 != "local-2" {
		t.Fatalf("unexpected task ids %q %q", id1, id2)
	}
	if q.Len() != 2 {
		t.Fatalf("Len = %d, want 2", q.Len())
	}

	first, ok := q.Next()
	if !ok || first.ProjectID != "p1" || first.Stage != models.StageScripting || first.ExecutionID != "local-1" {
		t.Fatalf("unexpected first request %+v", first)
	}
	second, ok := q.Next()
	if !ok || second.ProjectID != "p2" {
		t.Fatalf("unexpected second request %+v", second)
	}
	if _, ok := q.Next(); ok {
		t.Fatal("expected empty queue")
	}
}

func TestQueueDrainFollowsChain(t *testing.T) {
	q := handoff.NewQueue()
	ctx := context.Background()
	_, _ = q.Trigger(ctx, "p1", models.StageExtraction)

	next := map[models.StageName]models.StageName{
		models.StageExtraction: models.StageScripting,
		models.StageScripting:  models.StageSynthesis,
		models.StageSynthesis:  models.StageMastering,
	}
	var ran []models.StageName
	err := q.Drain(ctx, func(ctx context.Context, req models.StageRequest) error {
		ran = append(ran, req.Stage)
		if stage, ok := next[req.Stage]; ok {
			_, err := q.Trigger(ctx, req.ProjectID, stage)
			return err
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	want := []models.StageName{models.StageExtraction, models.StageScripting, models.StageSynthesis, models.StageMastering}
	if len(ran) != len(want) {
		t.Fatalf("ran %v, want %v", ran, want)
	}
	for i := range want {
		if ran[i] != want[i] {
			t.Fatalf("ran %v, want %v", ran, want)
		}
	}
}

func TestQueueDrainStopsOnError(t *testing.T) {
	q := handoff.NewQueue()
	ctx := context.Background()
	_, _ = q.Trigger(ctx, "p1", models.StageSynthesis)
	_, _ = q.Trigger(ctx, "p2", models.StageSynthesis)

	boom := errors.New("boom")
	calls := 0
	err := q.Drain(ctx, func(context.Context, models.StageRequest) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if calls != 1 || q.Len() != 1 {
		t.Fatalf("calls=%d len=%d, want 1 and 1", calls, q.Len())
	}
}

func TestQueueDrainHonoursCancellation(t *testing.T) {
	q := handoff.NewQueue()
	ctx, cancel := context.WithCancel(context.Background())
	_, _ = q.Trigger(ctx, "p1", models.StageMastering)
	cancel()
	if err := q.Drain(ctx, func(context.Context, models.StageRequest) error { return nil }); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
