// Package synth asks the language model for candidate parser source.
//
// A GeminiClient is built per run from an explicit Config. Each Synthesize
// call makes exactly one provider request; retrying is the attempt loop's job.
package synth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"parsersmith/internal/logging"
	"parsersmith/internal/usage"
)

// Synthesizer turns a prompt into candidate source code.
type Synthesizer interface {
	Synthesize(ctx context.Context, prompt string) (string, error)
}

// Config configures a GeminiClient.
type Config struct {
	APIKey            string
	Model             string
	Temperature       float32
	MaxOutputTokens   int32
	Timeout           time.Duration // per call; 0 leaves ctx untouched
	RequestsPerMinute int           // 0 disables spacing
	SystemInstruction string
}

// Failure is a synthesis fault: provider error, timeout, blocked prompt, or
// a response without usable source.
type Failure struct {
	Reason string
	Err    error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("synthesis failed: %s: %v", f.Reason, f.Err)
	}
	return "synthesis failed: " + f.Reason
}

func (f *Failure) Unwrap() error { return f.Err }

// IsFailure reports whether err is a synthesis failure.
func IsFailure(err error) bool {
	var f *Failure
	return errors.As(err, &f)
}

// generator is the slice of the genai Models service the client needs.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiClient implements Synthesizer on the Gemini API.
type GeminiClient struct {
	gen     generator
	cfg     Config
	limiter *rate.Limiter
	tracker *usage.Tracker
}

// Option configures a GeminiClient.
type Option func(*GeminiClient)

// WithTracker records token usage into t.
func WithTracker(t *usage.Tracker) Option {
	return func(c *GeminiClient) { c.tracker = t }
}

// NewGeminiClient creates a client for one run.
func NewGeminiClient(ctx context.Context, cfg Config, opts ...Option) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return newClient(client.Models, cfg, opts...), nil
}

func newClient(gen generator, cfg Config, opts ...Option) *GeminiClient {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	c := &GeminiClient{gen: gen, cfg: cfg}
	if cfg.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the configured model name.
func (c *GeminiClient) Model() string { return c.cfg.Model }

// Synthesize sends prompt and returns the fence-stripped source.
func (c *GeminiClient) Synthesize(ctx context.Context, prompt string) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", &Failure{Reason: "rate limiter", Err: err}
		}
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(c.cfg.Temperature),
	}
	if c.cfg.MaxOutputTokens > 0 {
		config.MaxOutputTokens = c.cfg.MaxOutputTokens
	}
	if c.cfg.SystemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(c.cfg.SystemInstruction, genai.RoleUser)
	}

	start := time.Now()
	logging.APIDebug("generateContent: model=%s prompt_len=%d", c.cfg.Model, len(prompt))

	resp, err := c.gen.GenerateContent(ctx, c.cfg.Model, genai.Text(prompt), config)
	if err != nil {
		if ctx.Err() != nil {
			return "", &Failure{Reason: "provider timeout", Err: ctx.Err()}
		}
		return "", &Failure{Reason: "provider error", Err: err}
	}
	if resp == nil {
		return "", &Failure{Reason: "empty response"}
	}
	c.track(ctx, resp)

	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		return "", &Failure{Reason: fmt.Sprintf("prompt blocked: %s", fb.BlockReason)}
	}
	if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason == genai.FinishReasonMaxTokens {
		logging.SynthesisWarn("response hit the output token limit (%d)", c.cfg.MaxOutputTokens)
	}

	raw := resp.Text()
	logging.API("generateContent: completed in %v response_len=%d", time.Since(start), len(raw))

	code := StripFences(raw)
	if code == "" {
		return "", &Failure{Reason: "empty response"}
	}
	if !hasPackageClause(code) {
		return "", &Failure{Reason: "response contains no Go source"}
	}
	return code, nil
}

func (c *GeminiClient) track(ctx context.Context, resp *genai.GenerateContentResponse) {
	t := c.tracker
	if t == nil {
		t = usage.FromContext(ctx)
	}
	if t == nil || resp.UsageMetadata == nil {
		return
	}
	t.Track(ctx, c.cfg.Model, "gemini",
		int(resp.UsageMetadata.PromptTokenCount), int(resp.UsageMetadata.CandidatesTokenCount), "synthesis")
}

// fenceOpen matches an opening fence with any info string, in any case,
// with trailing blanks allowed before the newline.
var fenceOpen = regexp.MustCompile("```[A-Za-z0-9_+-]*[ \t]*\n")

// StripFences extracts source from a markdown code block. Text without a
// fence is returned trimmed. An opening fence with no closing one (a
// truncated response) yields everything after the opener.
func StripFences(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	loc := fenceOpen.FindStringIndex(text)
	if loc == nil {
		return strings.TrimSpace(text)
	}
	start := loc[1]
	if end := strings.Index(text[start:], "```"); end != -1 {
		return strings.TrimSpace(text[start : start+end])
	}
	return strings.TrimSpace(text[start:])
}

func hasPackageClause(code string) bool {
	for _, line := range strings.Split(code, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "package ") {
			return true
		}
	}
	return false
}
