package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"parsersmith/internal/metrics"
	"parsersmith/internal/regression"
)

var (
	verifyTarget   string
	verifyWatch    bool
	verifyParallel int
	verifyDebounce time.Duration
)

var verifyCmd = &cobra.Command{
	Use:   "verify [id]",
	Short: "Re-verify generated parsers against their references",
	Long: `Runs every generated parser under custom_parsers/ against its sample
PDF and compares the result with the reference table. No model calls are
made. Exits non-zero when any parser fails. With --watch, re-runs whenever
a parser or input changes until interrupted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if verifyTarget == "" && len(args) > 0 {
			verifyTarget = args[0]
		}
		ctx, cancel := commandContext(cmd.Context())
		defer cancel()

		failed, err := runVerify(ctx, cmd.OutOrStdout(), verifyTarget)
		if err != nil {
			return err
		}
		if verifyWatch {
			return watchVerify(ctx, cmd.OutOrStdout())
		}
		if failed {
			return fmt.Errorf("regression battery failed")
		}
		return nil
	},
}

func init() {
	verifyCmd.Flags().StringVarP(&verifyTarget, "target", "t", "", "Only verify this bank id")
	verifyCmd.Flags().BoolVar(&verifyWatch, "watch", false, "Re-run on changes under data/ and custom_parsers/")
	verifyCmd.Flags().IntVar(&verifyParallel, "parallel", 4, "Targets verified concurrently")
	verifyCmd.Flags().DurationVar(&verifyDebounce, "debounce", 500*time.Millisecond, "Quiet period before a watch re-run")
}

// runVerify runs the battery once and reports whether any target failed.
func runVerify(ctx context.Context, w io.Writer, only string) (bool, error) {
	targets, err := regression.Discover(cfg.DataDir(workspace), cfg.ParsersDir(workspace))
	if err != nil {
		return false, err
	}
	if only != "" {
		var picked []regression.Target
		for _, t := range targets {
			if t.ID == only {
				picked = append(picked, t)
			}
		}
		if len(picked) == 0 {
			return false, fmt.Errorf("unknown target %q under %s", only, cfg.DataDir(workspace))
		}
		targets = picked
	}

	results := regression.RunBattery(ctx, targets, newLoader(), regression.Options{
		Concurrency: verifyParallel,
		Timeout:     cfg.GetExecuteTimeout(),
	})

	m := metrics.New()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, r := range results {
		m.ObserveVerification(string(r.Status))
		fmt.Fprintf(tw, "%s\t%s\t%dms\t%s\n", r.Target.ID, renderStatus(r.Status), r.DurationMs, r.Reason)
	}
	if err := tw.Flush(); err != nil {
		return false, err
	}

	counts := regression.Summary(results)
	fmt.Fprintf(w, "%d passed, %d failed, %d skipped\n",
		counts[regression.StatusPassed], counts[regression.StatusFailed], counts[regression.StatusSkipped])

	if err := writeMetrics(m); err != nil {
		return false, err
	}
	return regression.Failed(results), nil
}

func watchVerify(ctx context.Context, w io.Writer) error {
	dirs := []string{cfg.ParsersDir(workspace)}
	targets, err := regression.Discover(cfg.DataDir(workspace), cfg.ParsersDir(workspace))
	if err != nil {
		return err
	}
	for _, t := range targets {
		dirs = append(dirs, filepath.Dir(t.PDFPath))
	}

	fmt.Fprintln(w, dimStyle.Render("watching for changes, ctrl-c to stop"))
	return regression.Watch(ctx, dirs, verifyDebounce, func(changed []string) {
		fmt.Fprintf(w, "%s %d file(s) changed\n", dimStyle.Render("--"), len(changed))
		if _, err := runVerify(ctx, w, verifyTarget); err != nil {
			fmt.Fprintln(w, failStyle.Render("error: ")+err.Error())
		}
	})
}

func renderStatus(s regression.Status) string {
	switch s {
	case regression.StatusPassed:
		return okStyle.Render(string(s))
	case regression.StatusFailed:
		return failStyle.Render(string(s))
	default:
		return warnStyle.Render(string(s))
	}
}
