package usage

import "time"

// UsageEvent represents a single LLM call.
type UsageEvent struct {
	Timestamp     time.Time `json:"timestamp"`
	Model         string    `json:"model"`
	Provider      string    `json:"provider"`
	InputTokens   int       `json:"input_tokens"`
	OutputTokens  int       `json:"output_tokens"`
	RunID         string    `json:"run_id"`
	Attempt       int       `json:"attempt"`
	OperationType string    `json:"operation_type"` // synthesis
}

// AggregatedStats holds counters broken down by various dimensions.
type AggregatedStats struct {
	Total       TokenCounts            `json:"total"`
	Calls       int                    `json:"calls"`
	ByModel     map[string]TokenCounts `json:"by_model"`
	ByOperation map[string]TokenCounts `json:"by_operation"`
	ByAttempt   map[int]TokenCounts    `json:"by_attempt"`
}

// TokenCounts holds input/output sums.
type TokenCounts struct {
	Input  int64 `json:"input"`
	Output int64 `json:"output"`
	Total  int64 `json:"total"`
}

func (tc *TokenCounts) Add(input, output int) {
	tc.Input += int64(input)
	tc.Output += int64(output)
	tc.Total += int64(input + output)
}
