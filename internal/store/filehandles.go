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

func loadFileHandle(ctx context.Context, q querier, n int64) (*domain.FileHandle, error) {
	var h domain.FileHandle
	var contentType, md5 sql.NullString
	err := q.QueryRowContext(ctx, `
		SELECT file_name, content_type, content_md5, content_size, concrete_type, created_by
		FROM file_handles WHERE id = ?
	`, n).Scan(&h.FileName, &contentType, &md5, &h.ContentSize, &h.ConcreteType, &h.CreatedBy)
	if err == sql.ErrNoRows {
		return nil, &domain.NotFoundError{Resource: "file handle", ID: strconv.FormatInt(n, 10)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load file handle %d: %w", n, err)
	}
	h.ID = strconv.FormatInt(n, 10)
	h.ContentType = contentType.String
	h.ContentMD5 = md5.String
	return &h, nil
}

func insertFileHandle(ctx context.Context, tx *sql.Tx, h *domain.FileHandle, createdBy string) (*domain.FileHandle, error) {
	concrete := h.ConcreteType
	if concrete == "" {
		concrete = domain.ConcreteTypeS3FileHandle
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO file_handles (file_name, content_type, content_md5, content_size, concrete_type, created_by)
		VALUES (?, ?, ?, ?, ?, ?)
	`, h.FileName, nullString(h.ContentType), nullString(h.ContentMD5), h.ContentSize, concrete, createdBy)
	if err != nil {
		return nil, fmt.Errorf("failed to create file handle: %w", err)
	}
	n, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert ID: %w", err)
	}
	out := *h
	out.ID = strconv.FormatInt(n, 10)
	out.ConcreteType = concrete
	out.CreatedBy = createdBy
	return &out, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// CreateFileHandle registers blob metadata owned by the acting principal.
func (s *Store) CreateFileHandle(ctx context.Context, h *domain.FileHandle) (*domain.FileHandle, error) {
	if h.FileName == "" {
		return nil, domain.NewValueError("file handle requires a fileName")
	}
	var out *domain.FileHandle
	err := s.withTx(ctx, func(tx *sql.Tx, ew *events.Writer) error {
		var err error
		out, err = insertFileHandle(ctx, tx, h, s.principal)
		if err != nil {
			return err
		}
		return ew.Log(tx, s.principal, "filehandle", out.ID, "filehandle.created",
			map[string]string{"file_name": out.FileName})
	})
	return out, err
}

// GetFileHandle returns the data file handle of a File version.
func (s *Store) GetFileHandle(ctx context.Context, entityID string, version *int) (*domain.FileHandle, error) {
	e, err := s.GetEntity(ctx, entityID, version)
	if err != nil {
		return nil, err
	}
	f, ok := e.(*domain.File)
	if !ok {
		return nil, domain.NewValueError("%s is a %s, not a file", entityID, e.Type())
	}
	n, _ := rowID(f.ID)
	allowed, err := canDownload(ctx, s.db.DB, n, s.principal)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, &domain.ForbiddenError{Message: fmt.Sprintf("%s may not download %s", s.principal, f.ID)}
	}
	hn, err := numericID("file handle", f.DataFileHandleID)
	if err != nil {
		return nil, err
	}
	return loadFileHandle(ctx, s.db.DB, hn)
}

// CopyFileHandles copies handle metadata for the acting principal. Each
// request yields one result in order; failures are reported per item.
func (s *Store) CopyFileHandles(ctx context.Context, reqs []domain.FileHandleCopyRequest) ([]domain.FileHandleCopyResult, error) {
	results := make([]domain.FileHandleCopyResult, len(reqs))
	err := s.withTx(ctx, func(tx *sql.Tx, ew *events.Writer) error {
		for i, req := range reqs {
			result := domain.FileHandleCopyResult{OriginalFileHandleID: req.FileHandleID}

			n, err := id.ParseNumeric(req.FileHandleID)
			if err != nil {
				result.FailureCode = domain.FailureNotFound
				results[i] = result
				continue
			}
			original, err := loadFileHandle(ctx, tx, n)
			if domain.IsNotFound(err) {
				result.FailureCode = domain.FailureNotFound
				results[i] = result
				continue
			}
			if err != nil {
				return err
			}

			allowed, err := s.mayCopy(ctx, tx, n, original, req)
			if err != nil {
				return err
			}
			if !allowed {
				result.FailureCode = domain.FailureUnauthorized
				results[i] = result
				continue
			}

			copied := *original
			if req.NewFileName != nil {
				copied.FileName = *req.NewFileName
			}
			if req.NewContentType != nil {
				copied.ContentType = *req.NewContentType
			}
			result.NewFileHandle, err = insertFileHandle(ctx, tx, &copied, s.principal)
			if err != nil {
				return err
			}
			if err := ew.Log(tx, s.principal, "filehandle", result.NewFileHandle.ID, events.FileHandleCopied,
				map[string]string{
					"original_file_handle_id": original.ID,
					"associate_object_type":   req.AssociateObjectType,
					"associate_object_id":     req.AssociateObjectID,
				}); err != nil {
				return err
			}
			results[i] = result
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// mayCopy reports whether the acting principal may copy a handle: it created
// the handle, or the associated object references it and is downloadable.
func (s *Store) mayCopy(ctx context.Context, tx *sql.Tx, handleID int64, h *domain.FileHandle, req domain.FileHandleCopyRequest) (bool, error) {
	if h.CreatedBy == s.principal {
		return true, nil
	}

	switch req.AssociateObjectType {
	case domain.ObjectTypeFileEntity:
		n, _, err := id.Parse(req.AssociateObjectID)
		if err != nil {
			return false, nil
		}
		var refs int
		if err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM entity_versions WHERE entity_id = ? AND data_file_handle_id = ?
		`, n, handleID).Scan(&refs); err != nil {
			return false, fmt.Errorf("failed to check file handle association: %w", err)
		}
		if refs == 0 {
			return false, nil
		}
		return canDownload(ctx, tx, n, s.principal)

	case domain.ObjectTypeWikiAttachment:
		wn, err := id.ParseNumeric(req.AssociateObjectID)
		if err != nil {
			return false, nil
		}
		var owner int64
		var attachments sql.NullString
		err = tx.QueryRowContext(ctx, "SELECT owner_id, attachments FROM wiki_pages WHERE id = ?", wn).Scan(&owner, &attachments)
		if err == sql.ErrNoRows {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("failed to check wiki attachment: %w", err)
		}
		ids, err := decodeIDs(attachments)
		if err != nil {
			return false, err
		}
		for _, a := range ids {
			if a == h.ID {
				return canDownload(ctx, tx, owner, s.principal)
			}
		}
		return false, nil
	}
	return false, nil
}

func decodeIDs(s sql.NullString) ([]string, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(s.String), &ids); err != nil {
		return nil, fmt.Errorf("failed to decode id list: %w", err)
	}
	return ids, nil
}

func encodeIDs(ids []string) (sql.NullString, error) {
	if len(ids) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode id list: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
