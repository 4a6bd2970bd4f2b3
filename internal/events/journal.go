package events

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lherron/syncp/internal/domain"
)

// Journal records copy outcomes in the event log. It is the record used to
// find and clean up partially copied trees, since copies are never rolled back.
type Journal struct {
	w         *Writer
	principal string
}

// NewJournal creates a journal writing on behalf of principal
func NewJournal(db *sql.DB, principal string) *Journal {
	return &Journal{w: NewWriter(db), principal: principal}
}

// Copied records that sourceID was copied to destinationID
func (j *Journal) Copied(ctx context.Context, sourceID, destinationID string, t domain.EntityType) error {
	return j.w.Log(nil, j.principal, string(t), sourceID, EntityCopied, map[string]string{
		"source_id":      sourceID,
		"destination_id": destinationID,
	})
}

// Merged records that the children of sourceID were copied into the existing
// destinationID
func (j *Journal) Merged(ctx context.Context, sourceID, destinationID string, t domain.EntityType) error {
	return j.w.Log(nil, j.principal, string(t), sourceID, EntityMerged, map[string]string{
		"source_id":      sourceID,
		"destination_id": destinationID,
	})
}

// Skipped records that sourceID was not copied
func (j *Journal) Skipped(ctx context.Context, sourceID string, t domain.EntityType, reason string) error {
	return j.w.Log(nil, j.principal, string(t), sourceID, EntitySkipped, map[string]string{
		"source_id": sourceID,
		"reason":    reason,
	})
}

// WikiCopied records a wiki copy between two owners
func (j *Journal) WikiCopied(ctx context.Context, sourceOwnerID, destinationOwnerID string, pageIDs []string) error {
	return j.w.Log(nil, j.principal, "wiki", sourceOwnerID, WikiCopied, map[string]interface{}{
		"source_owner_id":      sourceOwnerID,
		"destination_owner_id": destinationOwnerID,
		"pages":                pageIDs,
	})
}

// MetadataChanged records a file metadata change
func (j *Journal) MetadataChanged(ctx context.Context, f *domain.File, fileName, contentType string) error {
	return j.w.Log(nil, j.principal, string(domain.EntityTypeFile), f.ID, MetadataChanged, map[string]interface{}{
		"data_file_handle_id": f.DataFileHandleID,
		"version_number":      f.VersionNumber,
		"file_name":           fileName,
		"content_type":        contentType,
	})
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	ResourceID string
	EventTypes []string
	Since      time.Time
	// AfterID skips events up to and including this id.
	AfterID int64
	Limit   int
}

// List returns matching events, oldest first
func List(ctx context.Context, db *sql.DB, f Filter) ([]domain.Event, error) {
	query := `SELECT id, timestamp, principal, resource_type, resource_id, event_type, payload FROM event_log WHERE 1=1`
	var args []interface{}

	if f.ResourceID != "" {
		query += ` AND resource_id = ?`
		args = append(args, f.ResourceID)
	}
	if len(f.EventTypes) > 0 {
		query += ` AND event_type IN (?` + strings.Repeat(`, ?`, len(f.EventTypes)-1) + `)`
		for _, t := range f.EventTypes {
			args = append(args, t)
		}
	}
	if !f.Since.IsZero() {
		query += ` AND timestamp >= ?`
		args = append(args, f.Since.UTC().Format("2006-01-02T15:04:05.000Z"))
	}
	if f.AfterID > 0 {
		query += ` AND id > ?`
		args = append(args, f.AfterID)
	}
	query += ` ORDER BY id`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		var e domain.Event
		var ts string
		if err := rows.Scan(&e.ID, &ts, &e.Principal, &e.ResourceType, &e.ResourceID, &e.EventType, &e.Payload); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Timestamp, err = time.Parse(time.RFC3339, ts)
		if err != nil {
			return nil, fmt.Errorf("failed to parse event timestamp %q: %w", ts, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
