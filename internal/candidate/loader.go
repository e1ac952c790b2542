package candidate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"parsersmith/internal/logging"
	"parsersmith/pkg/table"
)

// Isolation selects where a loaded candidate runs.
type Isolation string

const (
	InProcess  Isolation = "inprocess"
	Subprocess Isolation = "subprocess"
)

// Loader writes, checks and loads candidates.
type Loader struct {
	Isolation Isolation
	// Timeout bounds one Run. Zero relies on the caller's context.
	Timeout time.Duration
	// Command is the child command prefix for Subprocess isolation. Empty
	// means the current executable with the exec-candidate subcommand.
	Command []string
	// Env is appended to the child environment.
	Env []string
}

// Load writes source to artifactPath, replacing any previous file, and
// loads it. The file stays on disk whether or not loading succeeds.
func (l *Loader) Load(ctx context.Context, source, artifactPath string) (Candidate, error) {
	if err := WriteArtifact(artifactPath, source); err != nil {
		return nil, err
	}
	return l.load(ctx, source, artifactPath)
}

// LoadFile loads an existing artifact.
func (l *Loader) LoadFile(ctx context.Context, artifactPath string) (Candidate, error) {
	data, err := os.ReadFile(artifactPath)
	if err != nil {
		return nil, &LoadError{Kind: KindWrite, Path: artifactPath, Msg: "read artifact", Err: err}
	}
	return l.load(ctx, string(data), artifactPath)
}

func (l *Loader) load(ctx context.Context, source, artifactPath string) (Candidate, error) {
	timer := logging.StartTimer(logging.CategoryLoader, "load "+filepath.Base(artifactPath))
	defer timer.Stop()

	if err := ctx.Err(); err != nil {
		return nil, &LoadError{Kind: KindCompile, Path: artifactPath, Msg: "load cancelled", Err: err}
	}

	fn, err := Interpret(artifactPath, source)
	if err != nil {
		logging.LoaderWarn("candidate %s rejected: %v", artifactPath, err)
		return nil, err
	}

	if l.Isolation == Subprocess {
		logging.Loader("candidate %s loaded (subprocess)", artifactPath)
		return &ProcessCandidate{
			ArtifactPath: artifactPath,
			Command:      l.Command,
			Env:          l.Env,
			Timeout:      l.Timeout,
		}, nil
	}
	logging.Loader("candidate %s loaded (in-process)", artifactPath)
	return &InterpretedCandidate{Func: fn, Timeout: l.Timeout}, nil
}

// WriteArtifact writes source to path, creating parent directories.
func WriteArtifact(path, source string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return &LoadError{Kind: KindWrite, Path: path, Msg: "create artifact directory", Err: err}
	}
	if err := os.WriteFile(path, []byte(source), 0644); err != nil {
		return &LoadError{Kind: KindWrite, Path: path, Msg: "write artifact", Err: err}
	}
	logging.LoaderDebug("wrote %d bytes to %s", len(source), path)
	return nil
}

// Interpret checks source and evaluates it with yaegi, returning the
// entry point.
func Interpret(filename, source string) (fn ParseFunc, err error) {
	if err := Check(filename, source); err != nil {
		return nil, err
	}

	// yaegi panics on some malformed programs instead of returning an error.
	defer func() {
		if r := recover(); r != nil {
			fn = nil
			err = &LoadError{Kind: KindCompile, Path: filename, Msg: fmt.Sprintf("interpreter panic: %v", r)}
		}
	}()

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, &LoadError{Kind: KindCompile, Path: filename, Msg: "failed to load stdlib", Err: err}
	}
	if err := i.Use(Symbols); err != nil {
		return nil, &LoadError{Kind: KindCompile, Path: filename, Msg: "failed to load module symbols", Err: err}
	}

	if _, err := i.Eval(source); err != nil {
		return nil, &LoadError{Kind: KindCompile, Path: filename, Err: err}
	}

	v, err := i.Eval("main." + EntryPoint)
	if err != nil {
		return nil, &LoadError{Kind: KindMissingEntryPoint, Path: filename, Err: err}
	}

	parse, ok := v.Interface().(func(string) (*table.Table, error))
	if !ok {
		return nil, &LoadError{Kind: KindSignature, Path: filename,
			Msg: fmt.Sprintf("Parse has type %s, want func(string) (*table.Table, error)", v.Type())}
	}
	return parse, nil
}

// InterpretedCandidate runs the entry point inside the current process.
// A candidate that never returns keeps its goroutine after a timeout; use
// Subprocess isolation when that matters.
type InterpretedCandidate struct {
	Func    ParseFunc
	Timeout time.Duration
}

type runResult struct {
	table *table.Table
	err   error
}

// Run calls the entry point, converting errors and panics into
// *ExecutionError.
func (c *InterpretedCandidate) Run(ctx context.Context, pdfPath string) (*table.Table, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	done := make(chan runResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logging.LoaderDebug("candidate panic: %v\n%s", r, debug.Stack())
				done <- runResult{err: &ExecutionError{Msg: fmt.Sprintf("panic: %v", r)}}
			}
		}()
		t, err := c.Func(pdfPath)
		done <- runResult{table: t, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			if IsExecutionError(res.err) {
				return nil, res.err
			}
			return nil, &ExecutionError{Err: res.err}
		}
		if res.table == nil {
			return nil, &ExecutionError{Msg: "Parse returned a nil table"}
		}
		return res.table, nil
	case <-ctx.Done():
		return nil, &ExecutionError{Msg: "candidate timed out", Err: ctx.Err()}
	}
}
