// Package extract turns a statement PDF into the text the prompt is built from.
//
// Extract never panics and never returns an error: every fault is folded
// into a Failed result so the caller decides whether it is fatal.
package extract

import (
	"errors"
	"fmt"
	"strings"

	"parsersmith/internal/logging"
	"parsersmith/pkg/pdftext"
)

// Status tags a Result.
type Status int

const (
	StatusOK Status = iota
	StatusFailed
)

func (s Status) String() string {
	if s == StatusOK {
		return "ok"
	}
	return "failed"
}

// Result is either Ok (Text and Pages set) or Failed (Reason set).
type Result struct {
	Status Status
	Path   string
	Text   string
	Pages  []pdftext.Page
	Reason string
}

// OK reports whether extraction succeeded.
func (r Result) OK() bool { return r.Status == StatusOK }

// Excerpt returns the first n characters of the text. The cut is by rune so
// multi-byte text is never split mid-character.
func (r Result) Excerpt(n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(r.Text)
	if len(runes) <= n {
		return r.Text
	}
	return string(runes[:n])
}

// Err returns a *Failure for a failed result, nil otherwise.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	return &Failure{Path: r.Path, Reason: r.Reason}
}

// Failure is the error form of a failed extraction.
type Failure struct {
	Path   string
	Reason string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("extraction failed for %s: %s", f.Path, f.Reason)
}

// IsFailure reports whether err is an extraction failure.
func IsFailure(err error) bool {
	var f *Failure
	return errors.As(err, &f)
}

// Extract reads the PDF at path. Layout text is preferred; when row
// reconstruction yields nothing the content-stream text is used instead.
func Extract(path string) (res Result) {
	res = Result{Path: path}
	defer func() {
		if rec := recover(); rec != nil {
			res = failed(path, fmt.Sprintf("panic: %v", rec))
		}
	}()

	timer := logging.StartTimer(logging.CategoryExtract, "extract "+path)
	defer timer.Stop()

	doc, err := pdftext.Open(path)
	if err != nil {
		return failed(path, err.Error())
	}

	text := doc.Text()
	if strings.TrimSpace(text) == "" {
		plain, err := pdftext.PlainText(path)
		if err != nil {
			return failed(path, err.Error())
		}
		text = plain
	}
	if strings.TrimSpace(text) == "" {
		return failed(path, "document contains no extractable text")
	}

	logging.Extract("extracted %d pages, %d chars from %s", len(doc.Pages), len(text), path)
	return Result{Status: StatusOK, Path: path, Text: text, Pages: doc.Pages}
}

func failed(path, reason string) Result {
	logging.ExtractWarn("extraction failed for %s: %s", path, reason)
	return Result{Status: StatusFailed, Path: path, Reason: reason}
}
