package treecopy

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/lherron/syncp/internal/domain"
)

// Outcome is the result of copying one entity. A merged outcome is a source
// Project whose children went into an existing destination Project; it never
// appears in the mapping.
type Outcome struct {
	SourceID      string            `json:"source_id"`
	DestinationID string            `json:"destination_id,omitempty"`
	Type          domain.EntityType `json:"type,omitempty"`
	Merged        bool              `json:"merged,omitempty"`
	Reason        string            `json:"reason,omitempty"`
}

// Copied reports whether a new entity was created for the source.
func (o Outcome) Copied() bool {
	return o.DestinationID != "" && !o.Merged
}

// Skipped reports whether the source was left behind.
func (o Outcome) Skipped() bool {
	return o.DestinationID == ""
}

func (o Outcome) String() string {
	switch {
	case o.Merged:
		return fmt.Sprintf("Merged %s into %s", o.SourceID, o.DestinationID)
	case o.Copied():
		return fmt.Sprintf("Copied %s to %s", o.SourceID, o.DestinationID)
	}
	return fmt.Sprintf("%s not copied - %s", o.SourceID, o.Reason)
}

// WikiOutcome is the result of copying one owner's wiki.
type WikiOutcome struct {
	SourceOwnerID      string              `json:"source_owner_id"`
	DestinationOwnerID string              `json:"destination_owner_id"`
	Pages              []domain.WikiHeader `json:"pages"`
}

// Reporter receives one outcome per entity visited by Copy.
type Reporter interface {
	Report(ctx context.Context, o Outcome)
}

// WikiReporter is implemented by reporters that also record wiki copies.
type WikiReporter interface {
	ReportWiki(ctx context.Context, o WikiOutcome)
}

// WriterReporter prints one status line per outcome.
type WriterReporter struct {
	W io.Writer
}

// Report prints the outcome's status line.
func (r WriterReporter) Report(_ context.Context, o Outcome) {
	fmt.Fprintln(r.W, o.String())
}

// ReportWiki prints a summary of the copied pages.
func (r WriterReporter) ReportWiki(_ context.Context, o WikiOutcome) {
	if len(o.Pages) == 0 {
		return
	}
	fmt.Fprintf(r.W, "Copied %d wiki page(s) from %s to %s\n", len(o.Pages), o.SourceOwnerID, o.DestinationOwnerID)
}

// Reporters fans outcomes out to several reporters.
type Reporters []Reporter

// Report forwards o to every reporter.
func (rs Reporters) Report(ctx context.Context, o Outcome) {
	for _, r := range rs {
		r.Report(ctx, o)
	}
}

// ReportWiki forwards o to every reporter that records wikis.
func (rs Reporters) ReportWiki(ctx context.Context, o WikiOutcome) {
	for _, r := range rs {
		if wr, ok := r.(WikiReporter); ok {
			wr.ReportWiki(ctx, o)
		}
	}
}

type nopReporter struct{}

func (nopReporter) Report(context.Context, Outcome) {}

// PartialError is returned when ContinueOnError let a copy finish with some
// entities not copied.
type PartialError struct {
	Failures []Outcome
}

func (e *PartialError) Error() string {
	ids := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		ids[i] = f.SourceID
	}
	return fmt.Sprintf("%d entities not copied: %s", len(e.Failures), strings.Join(ids, ", "))
}

// Partial reports that the copy finished with some entities skipped.
func (e *PartialError) Partial() bool { return true }
