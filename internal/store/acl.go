package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lherron/syncp/internal/domain"
	"github.com/lherron/syncp/internal/events"
)

// canDownload reports whether principal may download entity n. A
// restriction on the entity or any ancestor denies it.
func canDownload(ctx context.Context, q querier, n int64, principal string) (bool, error) {
	var restricted int
	err := q.QueryRowContext(ctx, `
		WITH RECURSIVE ancestry(id, parent_id) AS (
			SELECT id, parent_id FROM entities WHERE id = ?
			UNION ALL
			SELECT e.id, e.parent_id FROM entities e JOIN ancestry a ON e.id = a.parent_id
		)
		SELECT COUNT(*) FROM entity_restrictions r JOIN ancestry a ON r.entity_id = a.id
		WHERE r.principal = ?
	`, n, principal).Scan(&restricted)
	if err != nil {
		return false, fmt.Errorf("failed to check permissions: %w", err)
	}
	return restricted == 0, nil
}

// GetPermissions returns the acting principal's rights on an entity.
func (s *Store) GetPermissions(ctx context.Context, entityID string) (*domain.Permissions, error) {
	n, err := rowID(entityID)
	if err != nil {
		return nil, err
	}
	if _, err := loadEntity(ctx, s.db.DB, n); err != nil {
		return nil, err
	}
	ok, err := canDownload(ctx, s.db.DB, n, s.principal)
	if err != nil {
		return nil, err
	}
	return &domain.Permissions{CanDownload: ok}, nil
}

// GetAccessRequirements lists the requirements on an entity and whether the
// acting principal has met each of them.
func (s *Store) GetAccessRequirements(ctx context.Context, entityID string) ([]domain.AccessRequirement, error) {
	n, err := rowID(entityID)
	if err != nil {
		return nil, err
	}
	if _, err := loadEntity(ctx, s.db.DB, n); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, IFNULL(r.description, ''),
			NOT EXISTS (SELECT 1 FROM access_approvals a WHERE a.requirement_id = r.id AND a.principal = ?)
		FROM access_requirements r
		WHERE r.entity_id = ?
		ORDER BY r.id
	`, s.principal, n)
	if err != nil {
		return nil, fmt.Errorf("failed to list access requirements: %w", err)
	}
	defer rows.Close()

	var reqs []domain.AccessRequirement
	for rows.Next() {
		req := domain.AccessRequirement{SubjectID: entityID}
		if err := rows.Scan(&req.ID, &req.Description, &req.Unmet); err != nil {
			return nil, fmt.Errorf("failed to scan access requirement: %w", err)
		}
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}

// Restrict denies principal download access to an entity and its descendants.
func (s *Store) Restrict(ctx context.Context, entityID, principal string) error {
	n, err := rowID(entityID)
	if err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx, ew *events.Writer) error {
		if _, err := loadEntity(ctx, tx, n); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO entity_restrictions (entity_id, principal) VALUES (?, ?)
		`, n, principal); err != nil {
			return fmt.Errorf("failed to restrict %s: %w", entityID, err)
		}
		return ew.Log(tx, s.principal, "entity", entityID, "entity.restricted", map[string]string{"principal": principal})
	})
}

// AddAccessRequirement attaches a requirement to an entity and returns its id.
func (s *Store) AddAccessRequirement(ctx context.Context, entityID, description string) (int64, error) {
	n, err := rowID(entityID)
	if err != nil {
		return 0, err
	}
	var reqID int64
	err = s.withTx(ctx, func(tx *sql.Tx, ew *events.Writer) error {
		if _, err := loadEntity(ctx, tx, n); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO access_requirements (entity_id, description) VALUES (?, ?)
		`, n, description)
		if err != nil {
			return fmt.Errorf("failed to add access requirement: %w", err)
		}
		reqID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert ID: %w", err)
		}
		return ew.Log(tx, s.principal, "entity", entityID, "access_requirement.created",
			map[string]interface{}{"requirement_id": reqID, "description": description})
	})
	return reqID, err
}

// Approve records that principal meets an access requirement.
func (s *Store) Approve(ctx context.Context, requirementID int64, principal string) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO access_approvals (requirement_id, principal)
		SELECT id, ? FROM access_requirements WHERE id = ?
	`, principal, requirementID)
	if err != nil {
		return fmt.Errorf("failed to approve requirement %d: %w", requirementID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM access_requirements WHERE id = ?", requirementID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check requirement %d: %w", requirementID, err)
		}
		if exists == 0 {
			return &domain.NotFoundError{Resource: "access requirement", ID: fmt.Sprint(requirementID)}
		}
	}
	return nil
}
