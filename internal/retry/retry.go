// Package retry runs the bounded synthesis loop for one target.
//
// States move Idle -> Attempting(k) -> Passed | Attempting(k+1) | Exhausted.
// Every attempt builds a prompt, synthesizes, loads and verifies, in that
// order and one at a time. Failures at any stage end the attempt, never the
// loop. The artifact on disk always holds the last attempt's source.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"parsersmith/internal/candidate"
	"parsersmith/internal/config"
	"parsersmith/internal/logging"
	"parsersmith/internal/prompt"
	"parsersmith/internal/sample"
	"parsersmith/internal/synth"
	"parsersmith/internal/usage"
	"parsersmith/internal/verify"
)

// ErrExhausted is returned by Outcome.Err when no attempt passed.
var ErrExhausted = errors.New("synthesis attempts exhausted")

// State is the controller state.
type State int

const (
	StateIdle State = iota
	StateAttempting
	StatePassed
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAttempting:
		return "attempting"
	case StatePassed:
		return "passed"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Stage names the step an attempt ended at.
type Stage string

const (
	StageSynthesis Stage = "synthesis"
	StageLoad      Stage = "load"
	StageVerify    Stage = "verify"
)

// Attempt records one iteration.
type Attempt struct {
	Number   int
	Stage    Stage
	Report   verify.Report // set when Stage is StageVerify
	Err      error         // set for synthesis and load failures
	Duration time.Duration
}

// Passed reports whether the attempt produced a passing candidate.
func (a Attempt) Passed() bool {
	return a.Stage == StageVerify && a.Report.Passed
}

// Reason is the one-line failure summary, empty when passed.
func (a Attempt) Reason() string {
	if a.Err != nil {
		return a.Err.Error()
	}
	return a.Report.Reason
}

// Detail is the longer diagnostic fed back into the next prompt.
func (a Attempt) Detail() string {
	return a.Report.Detail
}

// Outcome is the typed result of a run.
type Outcome struct {
	RunID        string
	State        State
	Attempts     int
	Last         *Attempt // only the final attempt is retained
	ArtifactPath string
	Cancelled    bool
}

// Err is nil when the run passed.
func (o Outcome) Err() error {
	switch {
	case o.State == StatePassed:
		return nil
	case o.Cancelled:
		return fmt.Errorf("run cancelled after %d attempts: %w", o.Attempts, context.Canceled)
	case o.Last != nil:
		return fmt.Errorf("%w after %d attempts: %s", ErrExhausted, o.Attempts, o.Last.Reason())
	default:
		return ErrExhausted
	}
}

// Observer receives every finished attempt.
type Observer func(Attempt)

// Loader is the part of candidate.Loader the controller uses.
type Loader interface {
	Load(ctx context.Context, source, artifactPath string) (candidate.Candidate, error)
}

// Target is what one run works on.
type Target struct {
	ID            string
	SampleText    string
	Schema        sample.Schema
	PDFPath       string
	ReferencePath string
	ArtifactPath  string
}

// Config tunes the controller.
type Config struct {
	MaxAttempts    int
	AttemptTimeout time.Duration
	Feedback       bool
	SampleChars    int
	PreviewRows    int
}

// Controller drives attempts.
type Controller struct {
	synth    synth.Synthesizer
	loader   Loader
	prompts  *prompt.Builder
	cfg      Config
	observer Observer
	state    State
}

// NewController creates a controller. MaxAttempts below 1 uses
// config.DefaultMaxAttempts.
func NewController(s synth.Synthesizer, l Loader, cfg Config) *Controller {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = config.DefaultMaxAttempts
	}
	return &Controller{
		synth:   s,
		loader:  l,
		prompts: prompt.NewBuilder(cfg.SampleChars, cfg.PreviewRows),
		cfg:     cfg,
		state:   StateIdle,
	}
}

// SetObserver installs the attempt hook.
func (c *Controller) SetObserver(o Observer) { c.observer = o }

// State returns the current state.
func (c *Controller) State() State { return c.state }

// Run executes attempts until one passes or the budget is spent.
func (c *Controller) Run(ctx context.Context, t Target) Outcome {
	out := Outcome{RunID: uuid.NewString(), ArtifactPath: t.ArtifactPath}
	log := logging.WithRequestID(logging.CategoryRetry, out.RunID).WithField("target", t.ID)
	log.Info("starting synthesis: max_attempts=%d", c.cfg.MaxAttempts)

	var feedback *prompt.Feedback
	for k := 1; k <= c.cfg.MaxAttempts; k++ {
		if ctx.Err() != nil {
			out.Cancelled = true
			break
		}
		c.state = StateAttempting
		log.Info("attempt %d/%d", k, c.cfg.MaxAttempts)

		a := c.attempt(usage.WithAttempt(ctx, out.RunID, k), k, t, feedback)
		out.Attempts = k
		out.Last = &a
		if c.observer != nil {
			c.observer(a)
		}

		if a.Passed() {
			c.state = StatePassed
			out.State = StatePassed
			log.Info("attempt %d passed in %v", k, a.Duration)
			return out
		}
		log.Warn("attempt %d failed at %s: %s", k, a.Stage, a.Reason())

		if c.cfg.Feedback {
			feedback = &prompt.Feedback{Attempt: k, Stage: string(a.Stage), Reason: a.Reason(), Detail: a.Detail()}
		}
	}

	c.state = StateExhausted
	out.State = StateExhausted
	log.Warn("no passing candidate after %d attempts", out.Attempts)
	return out
}

func (c *Controller) attempt(ctx context.Context, k int, t Target, fb *prompt.Feedback) Attempt {
	start := time.Now()
	a := Attempt{Number: k}

	if c.cfg.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.AttemptTimeout)
		defer cancel()
	}

	p := c.prompts.Build(prompt.Request{BankID: t.ID, SampleText: t.SampleText, Schema: t.Schema, Feedback: fb})
	logging.SynthesisDebug("attempt %d prompt: %d chars", k, len(p))

	source, err := c.synth.Synthesize(ctx, p)
	if err != nil {
		if !synth.IsFailure(err) {
			err = &synth.Failure{Reason: "provider error", Err: err}
		}
		a.Stage, a.Err = StageSynthesis, err
		return c.finish(a, start)
	}

	cand, err := c.loader.Load(ctx, source, t.ArtifactPath)
	if err != nil {
		a.Stage, a.Err = StageLoad, err
		return c.finish(a, start)
	}

	a.Stage = StageVerify
	// The reference is re-read every attempt so edits between attempts count.
	ref, err := sample.LoadReference(t.ReferencePath)
	if err != nil {
		a.Err = fmt.Errorf("load reference: %w", err)
		return c.finish(a, start)
	}
	a.Report = verify.Verify(ctx, cand, t.PDFPath, ref)
	return c.finish(a, start)
}

func (c *Controller) finish(a Attempt, start time.Time) Attempt {
	a.Duration = time.Since(start)
	return a
}
