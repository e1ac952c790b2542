// Package regression re-verifies previously generated parsers offline.
//
// Discover enumerates data/<id>/ directories; RunBattery runs the verify
// contract against each target that has an artifact. Nothing is synthesized.
package regression

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"parsersmith/internal/candidate"
	"parsersmith/internal/config"
	"parsersmith/internal/logging"
	"parsersmith/internal/sample"
	"parsersmith/internal/verify"
)

// Target is one discovered bank directory.
type Target struct {
	ID            string
	PDFPath       string
	ReferencePath string
	ArtifactPath  string
}

// HasArtifact reports whether a parser has been generated for the target.
func (t Target) HasArtifact() bool {
	_, err := os.Stat(t.ArtifactPath)
	return err == nil
}

// Status is the battery verdict for one target.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Result captures the outcome for a target.
type Result struct {
	Target     Target
	Status     Status
	Reason     string
	Report     verify.Report
	DurationMs int64
}

// Loader loads an existing artifact. candidate.Loader implements it.
type Loader interface {
	LoadFile(ctx context.Context, artifactPath string) (candidate.Candidate, error)
}

// Options tunes RunBattery.
type Options struct {
	Concurrency int           // <= 0 means 4
	Timeout     time.Duration // per target, 0 for none
}

// Discover lists every subdirectory of dataDir as a target, in name order.
func Discover(dataDir, parsersDir string) ([]Target, error) {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	var targets []Target
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		id := e.Name()
		dir := filepath.Join(dataDir, id)
		t := Target{
			ID:           id,
			PDFPath:      filepath.Join(dir, id+"_sample.pdf"),
			ArtifactPath: filepath.Join(parsersDir, id+"_parser.go"),
		}
		t.ReferencePath = filepath.Join(dir, id+"_sample"+config.ReferenceExtensions[0])
		for _, ext := range config.ReferenceExtensions {
			p := filepath.Join(dir, id+"_sample"+ext)
			if _, err := os.Stat(p); err == nil {
				t.ReferencePath = p
				break
			}
		}
		targets = append(targets, t)
	}
	logging.Regression("discovered %d targets under %s", len(targets), dataDir)
	return targets, nil
}

// RunBattery verifies targets concurrently. Results keep the order of
// targets; targets without an artifact are skipped.
func RunBattery(ctx context.Context, targets []Target, loader Loader, opts Options) []Result {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	results := make([]Result, len(targets))

	var g errgroup.Group
	g.SetLimit(opts.Concurrency)
	for i, t := range targets {
		g.Go(func() error {
			results[i] = runTarget(ctx, t, loader, opts.Timeout)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func runTarget(ctx context.Context, t Target, loader Loader, timeout time.Duration) Result {
	start := time.Now()
	res := Result{Target: t}
	defer func() {
		logging.Regression("%s: %s %s", t.ID, res.Status, res.Reason)
	}()

	if !t.HasArtifact() {
		res.Status, res.Reason = StatusSkipped, "no generated parser"
		return res
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	for _, p := range []string{t.PDFPath, t.ReferencePath} {
		if _, err := os.Stat(p); err != nil {
			res.Status, res.Reason = StatusFailed, "missing input: "+p
			return res
		}
	}

	ref, err := sample.LoadReference(t.ReferencePath)
	if err != nil {
		res.Status, res.Reason = StatusFailed, err.Error()
		return res
	}

	cand, err := loader.LoadFile(ctx, t.ArtifactPath)
	if err != nil {
		res.Status, res.Reason = StatusFailed, err.Error()
		return res
	}

	res.Report = verify.Verify(ctx, cand, t.PDFPath, ref)
	res.Status, res.Reason = StatusFailed, res.Report.Reason
	if res.Report.Passed {
		res.Status = StatusPassed
	}
	res.DurationMs = time.Since(start).Milliseconds()
	return res
}

// Summary counts results by status.
func Summary(results []Result) map[Status]int {
	counts := map[Status]int{StatusPassed: 0, StatusFailed: 0, StatusSkipped: 0}
	for _, r := range results {
		counts[r.Status]++
	}
	return counts
}

// Failed reports whether any verified target failed.
func Failed(results []Result) bool {
	for _, r := range results {
		if r.Status == StatusFailed {
			return true
		}
	}
	return false
}
