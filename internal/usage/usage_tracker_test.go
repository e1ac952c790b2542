package usage

import (
	"context"
	"sync"
	"testing"
)

func TestTracker_TrackAggregates(t *testing.T) {
	tracker := NewTracker()

	ctx := WithAttempt(context.Background(), "run-1", 1)
	tracker.Track(ctx, "gemini-2.5-flash", "gemini", 10, 5, "synthesis")
	ctx = WithAttempt(context.Background(), "run-1", 2)
	tracker.Track(ctx, "gemini-2.5-flash", "gemini", 2, 3, "synthesis")

	stats := tracker.Stats()
	if stats.Total.Input != 12 || stats.Total.Output != 8 || stats.Total.Total != 20 {
		t.Fatalf("Total=%+v, want input=12 output=8 total=20", stats.Total)
	}
	if stats.Calls != 2 {
		t.Fatalf("Calls=%d, want 2", stats.Calls)
	}
	if got := stats.ByModel["gemini-2.5-flash"]; got.Total != 20 {
		t.Fatalf("ByModel=%+v, want total=20", got)
	}
	if got := stats.ByOperation["synthesis"]; got.Total != 20 {
		t.Fatalf("ByOperation=%+v, want total=20", got)
	}
	if got := stats.ByAttempt[2]; got.Total != 5 {
		t.Fatalf("ByAttempt[2]=%+v, want total=5", got)
	}

	events := tracker.Events()
	if len(events) != 2 || events[1].RunID != "run-1" || events[1].Attempt != 2 {
		t.Fatalf("events=%+v", events)
	}
}

func TestTracker_StatsIsACopy(t *testing.T) {
	tracker := NewTracker()
	tracker.Track(context.Background(), "m", "gemini", 1, 1, "synthesis")

	stats := tracker.Stats()
	stats.ByModel["m"] = TokenCounts{}

	if got := tracker.Stats().ByModel["m"]; got.Total != 2 {
		t.Fatalf("tracker state changed through copy: %+v", got)
	}
	if _, ok := tracker.Stats().ByAttempt[0]; ok {
		t.Fatalf("untagged calls must not be counted per attempt")
	}
}

func TestTracker_Concurrent(t *testing.T) {
	tracker := NewTracker()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Track(context.Background(), "m", "gemini", 1, 2, "synthesis")
		}()
	}
	wg.Wait()

	if got := tracker.Stats().Total.Total; got != 60 {
		t.Fatalf("Total=%d, want 60", got)
	}
}

func TestTracker_Summary(t *testing.T) {
	tracker := NewTracker()
	tracker.Track(context.Background(), "m", "gemini", 100, 50, "synthesis")

	want := "1 calls, 100 input + 50 output = 150 tokens"
	if got := tracker.Summary(); got != want {
		t.Fatalf("Summary()=%q, want %q", got, want)
	}
}

func TestTracker_ContextHelpers(t *testing.T) {
	tracker := NewTracker()

	ctx := NewContext(context.Background(), tracker)
	if got := FromContext(ctx); got != tracker {
		t.Fatalf("FromContext mismatch")
	}
	if got := FromContext(context.Background()); got != nil {
		t.Fatalf("FromContext on empty ctx = %v, want nil", got)
	}
}
