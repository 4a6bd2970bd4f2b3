package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/lherron/syncp/internal/domain"
	"github.com/lherron/syncp/internal/events"
	"github.com/lherron/syncp/internal/id"
)

const entityColumns = `id, parent_id, name, concrete_type, etag, annotations, data_file_handle_id,
	version_number, links_to_id, links_to_version, column_ids, created_by, modified_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

// entityRow is one row of the entities table.
type entityRow struct {
	id             int64
	parentID       sql.NullInt64
	name           string
	concreteType   string
	etag           string
	annotations    sql.NullString
	dataHandle     sql.NullInt64
	version        int
	linksTo        sql.NullString
	linksToVersion sql.NullInt64
	columnIDs      sql.NullString
	createdBy      string
	modifiedAt     string
}

func scanEntity(row scanner) (*entityRow, error) {
	var r entityRow
	err := row.Scan(&r.id, &r.parentID, &r.name, &r.concreteType, &r.etag, &r.annotations, &r.dataHandle,
		&r.version, &r.linksTo, &r.linksToVersion, &r.columnIDs, &r.createdBy, &r.modifiedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func loadEntity(ctx context.Context, q querier, n int64) (*entityRow, error) {
	row := q.QueryRowContext(ctx, "SELECT "+entityColumns+" FROM entities WHERE id = ?", n)
	r, err := scanEntity(row)
	if err == sql.ErrNoRows {
		return nil, &domain.NotFoundError{Resource: "entity", ID: id.Format(n)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load entity %s: %w", id.Format(n), err)
	}
	return r, nil
}

func (r *entityRow) entityType() domain.EntityType {
	t, _ := domain.EntityTypeFromConcrete(r.concreteType)
	return t
}

func (r *entityRow) toEntity() (domain.Entity, error) {
	t, ok := domain.EntityTypeFromConcrete(r.concreteType)
	if !ok {
		return nil, domain.NewValueError("not able to copy this type of entity: %q", r.concreteType)
	}
	e, err := domain.NewEntity(t)
	if err != nil {
		return nil, err
	}

	b := e.Base()
	b.ID = id.Format(r.id)
	if r.parentID.Valid {
		b.ParentID = id.Format(r.parentID.Int64)
	}
	b.Name = r.name
	b.Etag = r.etag
	b.CreatedBy = r.createdBy
	if ts, err := time.Parse(time.RFC3339, r.modifiedAt); err == nil {
		b.ModifiedOn = &ts
	}
	if r.annotations.Valid && r.annotations.String != "" {
		if err := json.Unmarshal([]byte(r.annotations.String), &b.Annotations); err != nil {
			return nil, fmt.Errorf("failed to decode annotations of %s: %w", b.ID, err)
		}
	}

	switch v := e.(type) {
	case *domain.File:
		v.VersionNumber = r.version
		if r.dataHandle.Valid {
			v.DataFileHandleID = strconv.FormatInt(r.dataHandle.Int64, 10)
		}
	case *domain.Link:
		v.LinksTo.TargetID = r.linksTo.String
		if r.linksToVersion.Valid {
			tv := int(r.linksToVersion.Int64)
			v.LinksTo.TargetVersionNumber = &tv
		}
	case *domain.Table:
		if r.columnIDs.Valid && r.columnIDs.String != "" {
			if err := json.Unmarshal([]byte(r.columnIDs.String), &v.ColumnIDs); err != nil {
				return nil, fmt.Errorf("failed to decode columns of %s: %w", b.ID, err)
			}
		}
	}
	return e, nil
}

// entityFields are the variant specific columns of an entity write.
type entityFields struct {
	annotations    sql.NullString
	dataHandle     sql.NullInt64
	linksTo        sql.NullString
	linksToVersion sql.NullInt64
	columnIDs      sql.NullString
}

func encodeFields(e domain.Entity) (*entityFields, error) {
	var f entityFields
	if a := e.Base().Annotations; len(a) > 0 {
		data, err := json.Marshal(a)
		if err != nil {
			return nil, fmt.Errorf("failed to encode annotations: %w", err)
		}
		f.annotations = sql.NullString{String: string(data), Valid: true}
	}

	switch v := e.(type) {
	case *domain.File:
		if v.DataFileHandleID == "" {
			return nil, domain.NewValueError("file %q requires a dataFileHandleId", v.Name)
		}
		n, err := numericID("file handle", v.DataFileHandleID)
		if err != nil {
			return nil, err
		}
		f.dataHandle = sql.NullInt64{Int64: n, Valid: true}
	case *domain.Link:
		target, _, err := id.Normalize(v.LinksTo.TargetID)
		if err != nil {
			return nil, domain.NewValueError("invalid link target: %v", err)
		}
		f.linksTo = sql.NullString{String: target, Valid: true}
		if v.LinksTo.TargetVersionNumber != nil {
			f.linksToVersion = sql.NullInt64{Int64: int64(*v.LinksTo.TargetVersionNumber), Valid: true}
		}
	case *domain.Table:
		data, err := json.Marshal(v.ColumnIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to encode column ids: %w", err)
		}
		f.columnIDs = sql.NullString{String: string(data), Valid: true}
	}
	return &f, nil
}

// GetEntity loads an entity. version selects a File version; it is ignored
// for other variants. A version suffix on the id is honored when version is nil.
func (s *Store) GetEntity(ctx context.Context, entityID string, version *int) (domain.Entity, error) {
	n, idVersion, err := id.Parse(entityID)
	if err != nil {
		return nil, domain.NewValueError("%v", err)
	}
	if version == nil {
		version = idVersion
	}

	r, err := loadEntity(ctx, s.db.DB, n)
	if err != nil {
		return nil, err
	}
	e, err := r.toEntity()
	if err != nil {
		return nil, err
	}

	f, ok := e.(*domain.File)
	if !ok || version == nil || *version == r.version {
		return e, nil
	}

	var handle int64
	err = s.db.QueryRowContext(ctx, `
		SELECT data_file_handle_id FROM entity_versions WHERE entity_id = ? AND version_number = ?
	`, n, *version).Scan(&handle)
	if err == sql.ErrNoRows {
		return nil, &domain.NotFoundError{Resource: "entity version", ID: id.WithVersion(f.ID, *version)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load version %d of %s: %w", *version, f.ID, err)
	}
	f.VersionNumber = *version
	f.DataFileHandleID = strconv.FormatInt(handle, 10)
	return f, nil
}

// CreateEntity creates an entity under its parent. A same-named sibling of
// the same type is updated in place; one of another type is a ValueError.
func (s *Store) CreateEntity(ctx context.Context, e domain.Entity) (domain.Entity, error) {
	b := e.Base()
	if err := domain.ValidateName(b.Name); err != nil {
		return nil, err
	}
	fields, err := encodeFields(e)
	if err != nil {
		return nil, err
	}

	var resultID int64
	err = s.withTx(ctx, func(tx *sql.Tx, ew *events.Writer) error {
		parent, err := s.checkParent(ctx, tx, e)
		if err != nil {
			return err
		}
		if err := s.checkReferences(ctx, tx, fields); err != nil {
			return err
		}

		existing, err := findSibling(ctx, tx, parent, b.Name)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.concreteType != e.Type().ConcreteType() {
				return domain.NewValueError("an entity named %q already exists in %s with type %s",
					b.Name, parentLabel(parent), existing.entityType())
			}
			resultID = existing.id
			return s.updateRow(ctx, tx, ew, existing, e, fields, fields.dataHandle != existing.dataHandle)
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO entities (parent_id, name, concrete_type, etag, annotations, data_file_handle_id,
				version_number, links_to_id, links_to_version, column_ids, created_by)
			VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?, ?, ?)
		`, parent, b.Name, e.Type().ConcreteType(), newETag(), fields.annotations, fields.dataHandle,
			fields.linksTo, fields.linksToVersion, fields.columnIDs, s.principal)
		if err != nil {
			return fmt.Errorf("failed to create entity: %w", err)
		}

		resultID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert ID: %w", err)
		}

		if fields.dataHandle.Valid {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO entity_versions (entity_id, version_number, data_file_handle_id) VALUES (?, 1, ?)
			`, resultID, fields.dataHandle); err != nil {
				return fmt.Errorf("failed to record file version: %w", err)
			}
		}

		created := *b
		created.ID = id.Format(resultID)
		if parent.Valid {
			created.ParentID = id.Format(parent.Int64)
		}
		return ew.LogEntityCreated(tx, s.principal, withBase(e, created))
	})
	if err != nil {
		return nil, err
	}

	return s.GetEntity(ctx, id.Format(resultID), nil)
}

// UpdateEntity stores changes to an existing entity. A File gets a new
// version only when forceVersion is set.
func (s *Store) UpdateEntity(ctx context.Context, e domain.Entity, forceVersion bool) (domain.Entity, error) {
	b := e.Base()
	n, err := rowID(b.ID)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateName(b.Name); err != nil {
		return nil, err
	}
	fields, err := encodeFields(e)
	if err != nil {
		return nil, err
	}

	err = s.withTx(ctx, func(tx *sql.Tx, ew *events.Writer) error {
		current, err := loadEntity(ctx, tx, n)
		if err != nil {
			return err
		}
		if current.concreteType != e.Type().ConcreteType() {
			return domain.NewValueError("cannot change %s from %s to %s", b.ID, current.entityType(), e.Type())
		}
		if err := checkETag(b.ID, current.etag, b.Etag); err != nil {
			return err
		}
		if err := s.checkReferences(ctx, tx, fields); err != nil {
			return err
		}
		if current.name != b.Name {
			sibling, err := findSibling(ctx, tx, current.parentID, b.Name)
			if err != nil {
				return err
			}
			if sibling != nil {
				return domain.NewValueError("an entity named %q already exists in %s", b.Name, parentLabel(current.parentID))
			}
		}
		return s.updateRow(ctx, tx, ew, current, e, fields, forceVersion)
	})
	if err != nil {
		return nil, err
	}

	return s.GetEntity(ctx, id.Format(n), nil)
}

// updateRow writes e over current. newVersion starts a new File version.
func (s *Store) updateRow(ctx context.Context, tx *sql.Tx, ew *events.Writer, current *entityRow, e domain.Entity, fields *entityFields, newVersion bool) error {
	version := current.version
	newVersion = newVersion && fields.dataHandle.Valid
	if newVersion {
		version++
	}

	etag := newETag()
	_, err := tx.ExecContext(ctx, `
		UPDATE entities
		SET name = ?, annotations = ?, data_file_handle_id = ?, version_number = ?,
			links_to_id = ?, links_to_version = ?, column_ids = ?, etag = ?,
			modified_at = strftime('%Y-%m-%dT%H:%M:%SZ','now')
		WHERE id = ?
	`, e.Base().Name, fields.annotations, fields.dataHandle, version, fields.linksTo, fields.linksToVersion,
		fields.columnIDs, etag, current.id)
	if err != nil {
		return fmt.Errorf("failed to update entity: %w", err)
	}

	if fields.dataHandle.Valid {
		if newVersion {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO entity_versions (entity_id, version_number, data_file_handle_id) VALUES (?, ?, ?)
			`, current.id, version, fields.dataHandle)
		} else {
			_, err = tx.ExecContext(ctx, `
				UPDATE entity_versions SET data_file_handle_id = ? WHERE entity_id = ? AND version_number = ?
			`, fields.dataHandle, current.id, version)
		}
		if err != nil {
			return fmt.Errorf("failed to record file version: %w", err)
		}
	}

	updated := *e.Base()
	updated.ID = id.Format(current.id)
	changes := map[string]interface{}{"etag": etag}
	if newVersion {
		changes["version_number"] = version
	}
	return ew.LogEntityUpdated(tx, s.principal, withBase(e, updated), changes)
}

// checkParent validates the parent of a new entity and returns its row id.
func (s *Store) checkParent(ctx context.Context, tx *sql.Tx, e domain.Entity) (sql.NullInt64, error) {
	b := e.Base()
	if e.Type() == domain.EntityTypeProject {
		if b.ParentID != "" {
			return sql.NullInt64{}, domain.NewValueError("project %q cannot have a parent", b.Name)
		}
		return sql.NullInt64{}, nil
	}
	if b.ParentID == "" {
		return sql.NullInt64{}, domain.NewValueError("%s %q requires a parent", e.Type(), b.Name)
	}
	pn, err := rowID(b.ParentID)
	if err != nil {
		return sql.NullInt64{}, err
	}
	parent, err := loadEntity(ctx, tx, pn)
	if err != nil {
		return sql.NullInt64{}, err
	}
	switch parent.entityType() {
	case domain.EntityTypeProject, domain.EntityTypeFolder:
	default:
		return sql.NullInt64{}, domain.NewValueError("%s is a %s; only projects and folders have children",
			b.ParentID, parent.entityType())
	}
	return sql.NullInt64{Int64: pn, Valid: true}, nil
}

// checkReferences verifies that link targets and file handles exist.
func (s *Store) checkReferences(ctx context.Context, tx *sql.Tx, fields *entityFields) error {
	if fields.linksTo.Valid {
		tn, err := rowID(fields.linksTo.String)
		if err != nil {
			return err
		}
		if _, err := loadEntity(ctx, tx, tn); err != nil {
			if domain.IsNotFound(err) {
				return &domain.NotFoundError{Resource: "link target", ID: fields.linksTo.String}
			}
			return err
		}
	}
	if fields.dataHandle.Valid {
		if _, err := loadFileHandle(ctx, tx, fields.dataHandle.Int64); err != nil {
			return err
		}
	}
	return nil
}

func findSibling(ctx context.Context, q querier, parent sql.NullInt64, name string) (*entityRow, error) {
	row := q.QueryRowContext(ctx, "SELECT "+entityColumns+" FROM entities WHERE IFNULL(parent_id, 0) = ? AND name = ?",
		parent.Int64, name)
	r, err := scanEntity(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up %q: %w", name, err)
	}
	return r, nil
}

func parentLabel(parent sql.NullInt64) string {
	if !parent.Valid {
		return "the repository root"
	}
	return id.Format(parent.Int64)
}

// withBase returns a shallow copy of e carrying the given base.
func withBase(e domain.Entity, b domain.EntityBase) domain.Entity {
	switch v := e.(type) {
	case *domain.Project:
		c := *v
		c.EntityBase = b
		return &c
	case *domain.Folder:
		c := *v
		c.EntityBase = b
		return &c
	case *domain.File:
		c := *v
		c.EntityBase = b
		return &c
	case *domain.Link:
		c := *v
		c.EntityBase = b
		return &c
	case *domain.Table:
		c := *v
		c.EntityBase = b
		return &c
	}
	return e
}

// ListChildren lists the direct children of a container, ordered by name.
// An empty includeTypes lists every type.
func (s *Store) ListChildren(ctx context.Context, parentID string, includeTypes []domain.EntityType) ([]domain.EntityHeader, error) {
	n, err := rowID(parentID)
	if err != nil {
		return nil, err
	}
	if _, err := loadEntity(ctx, s.db.DB, n); err != nil {
		return nil, err
	}

	include := make(map[string]bool, len(includeTypes))
	for _, t := range includeTypes {
		include[t.ConcreteType()] = true
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, concrete_type, version_number FROM entities WHERE parent_id = ? ORDER BY name, id
	`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to list children of %s: %w", parentID, err)
	}
	defer rows.Close()

	var headers []domain.EntityHeader
	for rows.Next() {
		var childID int64
		var name, concrete string
		var version int
		if err := rows.Scan(&childID, &name, &concrete, &version); err != nil {
			return nil, fmt.Errorf("failed to scan child: %w", err)
		}
		if len(include) > 0 && !include[concrete] {
			continue
		}
		t, ok := domain.EntityTypeFromConcrete(concrete)
		if !ok {
			continue
		}
		h := domain.EntityHeader{ID: id.Format(childID), Name: name, Type: t}
		if t == domain.EntityTypeFile {
			h.VersionNumber = version
		}
		headers = append(headers, h)
	}
	return headers, rows.Err()
}

// FindEntityID returns the id of the child named name under parentID, or ""
// when there is none. An empty parentID searches projects.
func (s *Store) FindEntityID(ctx context.Context, name, parentID string) (string, error) {
	var parent sql.NullInt64
	if parentID != "" {
		n, err := rowID(parentID)
		if err != nil {
			return "", err
		}
		parent = sql.NullInt64{Int64: n, Valid: true}
	}
	r, err := findSibling(ctx, s.db.DB, parent, name)
	if err != nil || r == nil {
		return "", err
	}
	return id.Format(r.id), nil
}
