// Package usage counts provider tokens for one synthesis run. Nothing is
// persisted; the totals are reported when the run ends.
package usage

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type (
	contextKey struct{}
	runKey     struct{}
	attemptKey struct{}
)

// Tracker aggregates token usage in memory.
type Tracker struct {
	mu     sync.Mutex
	events []UsageEvent
	stats  AggregatedStats
	now    func() time.Time
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		stats: AggregatedStats{
			ByModel:     make(map[string]TokenCounts),
			ByOperation: make(map[string]TokenCounts),
			ByAttempt:   make(map[int]TokenCounts),
		},
		now: time.Now,
	}
}

// Track records a new usage event. Run id and attempt come from ctx.
func (t *Tracker) Track(ctx context.Context, model, provider string, input, output int, operation string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	runID, _ := ctx.Value(runKey{}).(string)
	attempt, _ := ctx.Value(attemptKey{}).(int)

	t.events = append(t.events, UsageEvent{
		Timestamp:     t.now(),
		Model:         model,
		Provider:      provider,
		InputTokens:   input,
		OutputTokens:  output,
		RunID:         runID,
		Attempt:       attempt,
		OperationType: operation,
	})

	t.stats.Calls++
	t.stats.Total.Add(input, output)
	addToMap(t.stats.ByModel, model, input, output)
	addToMap(t.stats.ByOperation, operation, input, output)
	if attempt > 0 {
		entry := t.stats.ByAttempt[attempt]
		entry.Add(input, output)
		t.stats.ByAttempt[attempt] = entry
	}
}

// Events returns a copy of the recorded events.
func (t *Tracker) Events() []UsageEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]UsageEvent(nil), t.events...)
}

// Stats returns a copy of the aggregated stats.
func (t *Tracker) Stats() AggregatedStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	stats := t.stats
	stats.ByModel = copyMap(stats.ByModel)
	stats.ByOperation = copyMap(stats.ByOperation)
	stats.ByAttempt = copyMap(stats.ByAttempt)
	return stats
}

// Summary is a one-line report for the end of a run.
func (t *Tracker) Summary() string {
	s := t.Stats()
	return fmt.Sprintf("%d calls, %d input + %d output = %d tokens", s.Calls, s.Total.Input, s.Total.Output, s.Total.Total)
}

func copyMap[K comparable](src map[K]TokenCounts) map[K]TokenCounts {
	if src == nil {
		return nil
	}
	dst := make(map[K]TokenCounts, len(src))
	for key, counts := range src {
		dst[key] = counts
	}
	return dst
}

func addToMap(m map[string]TokenCounts, key string, input, output int) {
	entry := m[key]
	entry.Add(input, output)
	m[key] = entry
}

// Context Helpers

// NewContext returns a new context carrying the tracker.
func NewContext(ctx context.Context, t *Tracker) context.Context {
	return context.WithValue(ctx, contextKey{}, t)
}

// FromContext retrieves the tracker from the context.
func FromContext(ctx context.Context) *Tracker {
	t, _ := ctx.Value(contextKey{}).(*Tracker)
	return t
}

// WithAttempt tags ctx with the run id and attempt number.
func WithAttempt(ctx context.Context, runID string, attempt int) context.Context {
	ctx = context.WithValue(ctx, runKey{}, runID)
	return context.WithValue(ctx, attemptKey{}, attempt)
}
