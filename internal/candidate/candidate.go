// Package candidate loads synthesized parser source and runs it.
//
// A candidate is one Go file in package main declaring
//
//	func Parse(pdfPath string) (*table.Table, error)
//
// It is checked with go/parser against an import allowlist, then interpreted
// with yaegi. It runs either inside the current process or in a child process
// of the parsersmith binary.
package candidate

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"parsersmith/pkg/table"
)

// EntryPoint is the function every candidate must declare.
const EntryPoint = "Parse"

// Candidate is a loaded parser.
type Candidate interface {
	Run(ctx context.Context, pdfPath string) (*table.Table, error)
}

// ParseFunc is the entry point signature.
type ParseFunc func(pdfPath string) (*table.Table, error)

var allowedImports = map[string]bool{
	"parsersmith/pkg/table":   true,
	"parsersmith/pkg/pdftext": true,
	"errors":                  true,
	"fmt":                     true,
	"math":                    true,
	"regexp":                  true,
	"sort":                    true,
	"strconv":                 true,
	"strings":                 true,
	"time":                    true,
	"unicode":                 true,
	"unicode/utf8":            true,
}

// AllowedImports returns the import allowlist, module packages first.
func AllowedImports() []string {
	var local, std []string
	for pkg := range allowedImports {
		if pkg == "parsersmith/pkg/table" || pkg == "parsersmith/pkg/pdftext" {
			local = append(local, pkg)
		} else {
			std = append(std, pkg)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(local)))
	sort.Strings(std)
	return append(local, std...)
}

// Kind classifies load failures.
type Kind int

const (
	KindWrite Kind = iota
	KindSyntax
	KindForbiddenImport
	KindMissingEntryPoint
	KindCompile
	KindSignature
)

func (k Kind) String() string {
	switch k {
	case KindWrite:
		return "write"
	case KindSyntax:
		return "syntax"
	case KindForbiddenImport:
		return "forbidden_import"
	case KindMissingEntryPoint:
		return "missing_entry_point"
	case KindCompile:
		return "compile"
	case KindSignature:
		return "signature"
	default:
		return "unknown"
	}
}

// LoadError reports why a candidate could not be loaded.
type LoadError struct {
	Kind Kind
	Path string
	Msg  string
	Err  error
}

func (e *LoadError) Error() string {
	msg := e.Msg
	if e.Err != nil {
		if msg != "" {
			msg += ": "
		}
		msg += e.Err.Error()
	}
	return fmt.Sprintf("load failed (%s): %s", e.Kind, msg)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ExecutionError reports a candidate that loaded but failed when run: a
// returned error, a panic, a timeout or a crashed child process.
type ExecutionError struct {
	Msg string
	Err error
}

func (e *ExecutionError) Error() string {
	if e.Err != nil && e.Msg == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// IsLoadError reports whether err is a load failure.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}

// IsExecutionError reports whether err is an execution failure.
func IsExecutionError(err error) bool {
	var ee *ExecutionError
	return errors.As(err, &ee)
}
