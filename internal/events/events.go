package events

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lherron/syncp/internal/domain"
)

// Event types written to the event log
const (
	EntityCreated    = "entity.created"
	EntityUpdated    = "entity.updated"
	EntityCopied     = "entity.copied"
	EntitySkipped    = "entity.skipped"
	EntityMerged     = "entity.merged"
	FileHandleCopied = "filehandle.copied"
	ProvenanceSet    = "provenance.set"
	RowsAppended     = "table.rows_appended"
	WikiPageCreated  = "wiki.created"
	WikiPageUpdated  = "wiki.updated"
	WikiCopied       = "wiki.copied"
	MetadataChanged  = "file.metadata_changed"
)

// Writer handles writing events to the event log
type Writer struct {
	db *sql.DB
}

// NewWriter creates a new event writer
func NewWriter(db *sql.DB) *Writer {
	return &Writer{db: db}
}

// LogEvent writes an event to the event log
func (w *Writer) LogEvent(tx *sql.Tx, event *domain.Event) error {
	query := `
		INSERT INTO event_log (principal, resource_type, resource_id, event_type, payload)
		VALUES (?, ?, ?, ?, ?)
	`

	executor := w.getExecutor(tx)
	_, err := executor.Exec(query, event.Principal, event.ResourceType, event.ResourceID, event.EventType, event.Payload)
	if err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	return nil
}

// Log marshals payload and writes one event
func (w *Writer) Log(tx *sql.Tx, principal, resourceType, resourceID, eventType string, payload interface{}) error {
	event := &domain.Event{
		ResourceType: resourceType,
		EventType:    eventType,
	}
	if principal != "" {
		event.Principal = &principal
	}
	if resourceID != "" {
		event.ResourceID = &resourceID
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal event payload: %w", err)
		}
		payloadStr := string(data)
		event.Payload = &payloadStr
	}
	return w.LogEvent(tx, event)
}

// LogEntityCreated logs an entity creation event
func (w *Writer) LogEntityCreated(tx *sql.Tx, principal string, e domain.Entity) error {
	b := e.Base()
	return w.Log(tx, principal, string(e.Type()), b.ID, EntityCreated, map[string]interface{}{
		"name":      b.Name,
		"parent_id": b.ParentID,
	})
}

// LogEntityUpdated logs an entity update event
func (w *Writer) LogEntityUpdated(tx *sql.Tx, principal string, e domain.Entity, changes map[string]interface{}) error {
	return w.Log(tx, principal, string(e.Type()), e.Base().ID, EntityUpdated, changes)
}

// getExecutor returns the appropriate executor (tx or db)
func (w *Writer) getExecutor(tx *sql.Tx) interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
} {
	if tx != nil {
		return tx
	}
	return w.db
}
