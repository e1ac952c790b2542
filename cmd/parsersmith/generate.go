package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"parsersmith/internal/candidate"
	"parsersmith/internal/config"
	"parsersmith/internal/extract"
	"parsersmith/internal/metrics"
	"parsersmith/internal/prompt"
	"parsersmith/internal/retry"
	"parsersmith/internal/sample"
	"parsersmith/internal/synth"
	"parsersmith/internal/usage"
)

var generateTarget string

// newSynthesizer builds the provider client. Tests replace it.
var newSynthesizer = func(ctx context.Context, c *config.Config, tracker *usage.Tracker) (synth.Synthesizer, error) {
	return synth.NewGeminiClient(ctx, synth.Config{
		APIKey:            c.LLM.APIKey,
		Model:             c.LLM.Model,
		Temperature:       float32(c.LLM.Temperature),
		MaxOutputTokens:   int32(c.LLM.MaxOutputTokens),
		Timeout:           c.GetLLMTimeout(),
		RequestsPerMinute: c.LLM.RequestsPerMinute,
		SystemInstruction: prompt.SystemInstruction,
	}, synth.WithTracker(tracker))
}

var generateCmd = &cobra.Command{
	Use:   "generate [id]",
	Short: "Synthesize and verify a parser for one bank",
	Long: `Extracts the sample PDF, analyzes the reference table, and runs the
synthesis loop. Prints one line per attempt and a final "success" or
"failed after N attempts". Exits non-zero only when inputs are missing or
unreadable.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := targetID(generateTarget, args)
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd.Context())
		defer cancel()
		return runGenerate(ctx, cmd.OutOrStdout(), id)
	},
}

func init() {
	generateCmd.Flags().StringVarP(&generateTarget, "target", "t", "", "Bank id (directory under data/)")
}

func runGenerate(ctx context.Context, w io.Writer, id string) error {
	layout := cfg.LayoutFor(workspace, id)
	for _, p := range []string{layout.PDFPath, layout.ReferencePath} {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("missing input: %s", p)
		}
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	res := extract.Extract(layout.PDFPath)
	if err := res.Err(); err != nil {
		return err
	}
	_, schema, err := sample.Analyze(layout.ReferencePath, cfg.Synthesis.PreviewRows)
	if err != nil {
		return fmt.Errorf("analyze %s: %w", layout.ReferencePath, err)
	}

	tracker := usage.NewTracker()
	s, err := newSynthesizer(ctx, cfg, tracker)
	if err != nil {
		return err
	}

	m := metrics.New()
	ctrl := retry.NewController(s, newLoader(), retry.Config{
		MaxAttempts:    cfg.Synthesis.MaxAttempts,
		AttemptTimeout: cfg.GetAttemptTimeout(),
		Feedback:       cfg.Synthesis.Feedback,
		SampleChars:    cfg.Synthesis.SampleChars,
		PreviewRows:    cfg.Synthesis.PreviewRows,
	})
	budget := cfg.Synthesis.MaxAttempts
	ctrl.SetObserver(func(a retry.Attempt) {
		m.ObserveAttempt(a)
		printAttempt(w, a, budget)
	})

	fmt.Fprintf(w, "%s %s\n", titleStyle.Render("target"), id)
	out := ctrl.Run(ctx, retry.Target{
		ID:            id,
		SampleText:    res.Text,
		Schema:        schema,
		PDFPath:       layout.PDFPath,
		ReferencePath: layout.ReferencePath,
		ArtifactPath:  layout.ArtifactPath,
	})
	m.ObserveRun(out)
	stats := tracker.Stats()
	m.ObserveUsage(stats)

	logger.Info("generate finished",
		zap.String("target", id),
		zap.String("run_id", out.RunID),
		zap.String("state", out.State.String()),
		zap.Int("attempts", out.Attempts))

	switch {
	case out.State == retry.StatePassed:
		fmt.Fprintln(w, okStyle.Render("success"))
	case out.Cancelled:
		fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("cancelled after %d attempts", out.Attempts)))
	default:
		fmt.Fprintln(w, failStyle.Render(fmt.Sprintf("failed after %d attempts", out.Attempts)))
	}
	fmt.Fprintf(w, "%s %s\n", dimStyle.Render("parser:"), out.ArtifactPath)
	if stats.Calls > 0 {
		fmt.Fprintf(w, "%s %s\n", dimStyle.Render("usage:"), tracker.Summary())
	}

	return writeMetrics(m)
}

func printAttempt(w io.Writer, a retry.Attempt, budget int) {
	head := fmt.Sprintf("attempt %d/%d [%s]", a.Number, budget, a.Stage)
	if a.Passed() {
		fmt.Fprintf(w, "%s %s\n", head, okStyle.Render("passed"))
		return
	}
	fmt.Fprintf(w, "%s %s %s\n", head, failStyle.Render("failed:"), a.Reason())
	if verbose && a.Detail() != "" {
		fmt.Fprintln(w, dimStyle.Render(a.Detail()))
	}
}

// newLoader builds the candidate loader for the configured isolation.
func newLoader() *candidate.Loader {
	return &candidate.Loader{
		Isolation: candidate.Isolation(cfg.Execution.Isolation),
		Timeout:   cfg.GetExecuteTimeout(),
	}
}

func writeMetrics(m *metrics.Metrics) error {
	if metricsFile == "" {
		return nil
	}
	if err := m.WriteTextfile(metricsFile); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
