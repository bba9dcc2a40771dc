package workpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestForEachVisitsEveryIndex(t *testing.T) {
	const n = 500
	slots := make([]int, n)
	if err := ForEach(context.Background(), n, 4, func(i int) { slots[i] = i * 2 }); err != nil {
		t.Fatalf("ForEach: %v", err)
	}
	for i, v := range slots {
		if v != i*2 {
			t.Fatalf("slot %d = %d", i, v)
		}
	}
}

func TestForEachStopsAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var started atomic.Int64
	err := ForEach(ctx, 10_000, 2, func(i int) {
		if started.Add(1) == 50 {
			cancel()
		}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	// At most the in-flight tasks may start after the 50th.
	if got := started.Load(); got > 52 {
		t.Fatalf("expected work to stop near 50 items, started %d", got)
	}
}

func TestForEachZeroWorkersUsesDefault(t *testing.T) {
	var count atomic.Int64
	if err := ForEach(context.Background(), 10, 0, func(int) { count.Add(1) }); err != nil {
		t.Fatalf("ForEach: %v", err)
	}
	if count.Load() != 10 {
		t.Fatalf("expected 10 calls, got %d", count.Load())
	}
}
