package treecopy

import (
	"context"

	"go.uber.org/zap"

	"github.com/lherron/syncp/internal/events"
	"github.com/lherron/syncp/internal/logging"
)

// JournalReporter writes every outcome to the copy journal. Journal write
// failures are logged and never abort a copy.
type JournalReporter struct {
	Journal *events.Journal
	Log     *zap.Logger
}

// Report records o as merged, copied or skipped.
func (r JournalReporter) Report(ctx context.Context, o Outcome) {
	var err error
	switch {
	case o.Merged:
		err = r.Journal.Merged(ctx, o.SourceID, o.DestinationID, o.Type)
	case o.Copied():
		err = r.Journal.Copied(ctx, o.SourceID, o.DestinationID, o.Type)
	default:
		err = r.Journal.Skipped(ctx, o.SourceID, o.Type, o.Reason)
	}
	if err != nil && r.Log != nil {
		r.Log.Warn("failed to journal copy outcome", zap.String(logging.FieldSource, o.SourceID), zap.Error(err))
	}
}

// ReportWiki records the destination pages of a wiki copy.
func (r JournalReporter) ReportWiki(ctx context.Context, o WikiOutcome) {
	if len(o.Pages) == 0 {
		return
	}
	ids := make([]string, len(o.Pages))
	for i, p := range o.Pages {
		ids[i] = p.ID
	}
	if err := r.Journal.WikiCopied(ctx, o.SourceOwnerID, o.DestinationOwnerID, ids); err != nil && r.Log != nil {
		r.Log.Warn("failed to journal wiki copy", zap.String(logging.FieldSource, o.SourceOwnerID), zap.Error(err))
	}
}
