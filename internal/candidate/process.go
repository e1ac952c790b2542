package candidate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"parsersmith/internal/logging"
	"parsersmith/pkg/table"
)

// ExecCommand is the hidden subcommand that runs a candidate in a child.
const ExecCommand = "exec-candidate"

// maxStderr bounds the child stderr kept in error messages.
const maxStderr = 4096

// envelope is the child's stdout.
type envelope struct {
	Table *table.Table `json:"table,omitempty"`
	Error string       `json:"error,omitempty"`
}

// ProcessCandidate runs an artifact in a child process.
type ProcessCandidate struct {
	ArtifactPath string
	Command      []string
	Env          []string
	Timeout      time.Duration
}

// Run starts the child, waits for its envelope and decodes the table.
func (c *ProcessCandidate) Run(ctx context.Context, pdfPath string) (*table.Table, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	argv := c.Command
	if len(argv) == 0 {
		exe, err := os.Executable()
		if err != nil {
			return nil, &ExecutionError{Msg: "locate executable", Err: err}
		}
		argv = []string{exe, ExecCommand}
	}
	args := append(append([]string{}, argv[1:]...), "--artifact", c.ArtifactPath, "--pdf", pdfPath)

	cmd := exec.CommandContext(ctx, argv[0], args...)
	cmd.Env = append(os.Environ(), c.Env...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logging.LoaderDebug("exec: %s %s", argv[0], strings.Join(args, " "))
	err := cmd.Run()
	if ctx.Err() != nil {
		return nil, &ExecutionError{Msg: "candidate timed out", Err: ctx.Err()}
	}
	if err != nil {
		msg := "child process failed"
		if s := tail(stderr.String(), maxStderr); s != "" {
			msg += ": " + s
		}
		return nil, &ExecutionError{Msg: msg, Err: err}
	}

	var env envelope
	if err := json.Unmarshal(stdout.Bytes(), &env); err != nil {
		return nil, &ExecutionError{Msg: "decode child output", Err: err}
	}
	if env.Error != "" {
		return nil, &ExecutionError{Msg: env.Error}
	}
	if env.Table == nil {
		return nil, &ExecutionError{Msg: "Parse returned a nil table"}
	}
	return env.Table, nil
}

// RunChild is the child side of ProcessCandidate: it loads the artifact in
// process, runs it against pdfPath and writes the envelope to w. Candidate
// faults travel in the envelope; only I/O failures are returned.
func RunChild(ctx context.Context, artifactPath, pdfPath string, w io.Writer) error {
	loader := &Loader{Isolation: InProcess}

	var env envelope
	cand, err := loader.LoadFile(ctx, artifactPath)
	if err != nil {
		env.Error = err.Error()
	} else if t, err := cand.Run(ctx, pdfPath); err != nil {
		env.Error = err.Error()
	} else {
		env.Table = t
	}

	if err := json.NewEncoder(w).Encode(env); err != nil {
		return fmt.Errorf("write envelope: %w", err)
	}
	return nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) > n {
		s = "..." + s[len(s)-n:]
	}
	return s
}
