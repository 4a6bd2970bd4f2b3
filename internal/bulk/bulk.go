// Package bulk runs one operation over several items in order and summarises
// the outcome as a process exit code.
package bulk

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/lherron/syncp/internal/domain"
)

// Exit codes shared by every command
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitInvalid = 2
	ExitPartial = 5
)

// Operation represents a bulk operation configuration
type Operation struct {
	ContinueOnError bool
	// Progress receives one line per failed item when set.
	Progress io.Writer
}

// Result represents the result of a bulk operation
type Result struct {
	TotalItems int
	Succeeded  int
	// Partial counts items that finished with some of their work skipped.
	Partial int
	Failed  int
	Errors  []ItemError
}

// ItemError represents an error for a specific item
type ItemError struct {
	Item  string
	Error error
}

// ItemFunc is the function to execute for each item
type ItemFunc func(ctx context.Context, item string) error

// partial is implemented by errors reporting that an item was only partly
// processed
type partial interface {
	Partial() bool
}

// IsPartial reports whether err marks partial success
func IsPartial(err error) bool {
	var p partial
	return errors.As(err, &p) && p.Partial()
}

// Execute runs fn for each item in order. Without ContinueOnError it stops
// at the first item that fails outright.
func (op *Operation) Execute(ctx context.Context, items []string, fn ItemFunc) *Result {
	result := &Result{
		TotalItems: len(items),
	}

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, ItemError{Item: item, Error: err})
			return result
		}

		err := fn(ctx, item)
		switch {
		case err == nil:
			result.Succeeded++
			continue
		case IsPartial(err):
			result.Partial++
		default:
			result.Failed++
		}
		result.Errors = append(result.Errors, ItemError{Item: item, Error: err})
		if op.Progress != nil {
			fmt.Fprintf(op.Progress, "%s: error: %v\n", item, err)
		}
		if !op.ContinueOnError && !IsPartial(err) {
			return result
		}
	}

	return result
}

// ExitCode returns the appropriate exit code for the result
func (r *Result) ExitCode() int {
	if r.Failed == 0 && r.Partial == 0 {
		return ExitOK
	}
	if r.Succeeded > 0 || r.Partial > 0 {
		return ExitPartial
	}
	for _, e := range r.Errors {
		if !domain.IsValueError(e.Error) {
			return ExitFailure
		}
	}
	return ExitInvalid
}

// Err returns the first error, or nil when every item succeeded
func (r *Result) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	if len(r.Errors) == 1 {
		return r.Errors[0].Error
	}
	return fmt.Errorf("%d of %d items failed; first: %s: %w", len(r.Errors), r.TotalItems, r.Errors[0].Item, r.Errors[0].Error)
}

// PrintSummary prints a human-readable summary of the result
func (r *Result) PrintSummary(w io.Writer) {
	switch {
	case r.Failed == 0 && r.Partial == 0:
		fmt.Fprintf(w, "\n✓ All %d operations succeeded\n", r.TotalItems)
	case r.Succeeded == 0 && r.Partial == 0:
		fmt.Fprintf(w, "\n✗ All %d operations failed\n", r.TotalItems)
	default:
		fmt.Fprintf(w, "\n⚠ Partial success: %d succeeded, %d partial, %d failed (out of %d)\n",
			r.Succeeded, r.Partial, r.Failed, r.TotalItems)
	}

	if len(r.Errors) > 0 && len(r.Errors) <= 10 {
		fmt.Fprintf(w, "\nErrors:\n")
		for _, e := range r.Errors {
			fmt.Fprintf(w, "  %s: %v\n", e.Item, e.Error)
		}
	} else if len(r.Errors) > 10 {
		fmt.Fprintf(w, "\nShowing first 10 errors (of %d):\n", len(r.Errors))
		for _, e := range r.Errors[:10] {
			fmt.Fprintf(w, "  %s: %v\n", e.Item, e.Error)
		}
	}
}
