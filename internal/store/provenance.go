package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/lherron/syncp/internal/domain"
	"github.com/lherron/syncp/internal/events"
	"github.com/lherron/syncp/internal/id"
)

// GetProvenance returns the activity attached to an entity version, or a
// NotFoundError when there is none.
func (s *Store) GetProvenance(ctx context.Context, entityID string, version *int) (*domain.Activity, error) {
	n, idVersion, err := id.Parse(entityID)
	if err != nil {
		return nil, domain.NewValueError("%v", err)
	}
	if version == nil {
		version = idVersion
	}
	current, err := loadEntity(ctx, s.db.DB, n)
	if err != nil {
		return nil, err
	}
	v := current.version
	if version != nil {
		v = *version
	}

	var a domain.Activity
	var activityID int64
	var description, used sql.NullString
	err = s.db.QueryRowContext(ctx, `
		SELECT a.id, a.name, a.description, a.used
		FROM entity_provenance p JOIN activities a ON a.id = p.activity_id
		WHERE p.entity_id = ? AND p.version_number = ?
	`, n, v).Scan(&activityID, &a.Name, &description, &used)
	if err == sql.ErrNoRows {
		return nil, &domain.NotFoundError{Resource: "activity", ID: id.WithVersion(id.Format(n), v)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load provenance of %s: %w", entityID, err)
	}
	a.ID = strconv.FormatInt(activityID, 10)
	a.Description = description.String
	if used.Valid && used.String != "" {
		if err := json.Unmarshal([]byte(used.String), &a.Used); err != nil {
			return nil, fmt.Errorf("failed to decode provenance of %s: %w", entityID, err)
		}
	}
	return &a, nil
}

// SetProvenance attaches an activity to the current version of an entity,
// replacing any previous one. The stored activity is returned with its id.
func (s *Store) SetProvenance(ctx context.Context, entityID string, activity *domain.Activity) (*domain.Activity, error) {
	n, err := rowID(entityID)
	if err != nil {
		return nil, err
	}
	if activity == nil || activity.Name == "" {
		return nil, domain.NewValueError("provenance activity requires a name")
	}

	var out domain.Activity
	err = s.withTx(ctx, func(tx *sql.Tx, ew *events.Writer) error {
		current, err := loadEntity(ctx, tx, n)
		if err != nil {
			return err
		}

		used, err := json.Marshal(activity.Used)
		if err != nil {
			return fmt.Errorf("failed to encode used entities: %w", err)
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO activities (name, description, used) VALUES (?, ?, ?)
		`, activity.Name, nullString(activity.Description), string(used))
		if err != nil {
			return fmt.Errorf("failed to create activity: %w", err)
		}
		activityID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert ID: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO entity_provenance (entity_id, version_number, activity_id) VALUES (?, ?, ?)
			ON CONFLICT (entity_id, version_number) DO UPDATE SET activity_id = excluded.activity_id
		`, n, current.version, activityID); err != nil {
			return fmt.Errorf("failed to attach provenance: %w", err)
		}

		out = *activity
		out.ID = strconv.FormatInt(activityID, 10)
		return ew.Log(tx, s.principal, "entity", id.Format(n), events.ProvenanceSet,
			map[string]interface{}{"activity_id": out.ID, "version_number": current.version})
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
