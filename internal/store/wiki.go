package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/lherron/syncp/internal/domain"
	"github.com/lherron/syncp/internal/events"
)

type wikiRow struct {
	id          int64
	owner       int64
	parent      sql.NullInt64
	title       string
	markdown    string
	attachments sql.NullString
	etag        string
}

func (r *wikiRow) toPage() (*domain.WikiPage, error) {
	ids, err := decodeIDs(r.attachments)
	if err != nil {
		return nil, err
	}
	p := &domain.WikiPage{
		ID:                      strconv.FormatInt(r.id, 10),
		Title:                   r.title,
		Markdown:                r.markdown,
		AttachmentFileHandleIDs: ids,
		Etag:                    r.etag,
	}
	if r.parent.Valid {
		p.ParentWikiID = strconv.FormatInt(r.parent.Int64, 10)
	}
	return p, nil
}

func loadWikiPage(ctx context.Context, q querier, owner, wikiID int64) (*wikiRow, error) {
	var r wikiRow
	err := q.QueryRowContext(ctx, `
		SELECT id, owner_id, parent_wiki_id, title, markdown, attachments, etag
		FROM wiki_pages WHERE id = ? AND owner_id = ?
	`, wikiID, owner).Scan(&r.id, &r.owner, &r.parent, &r.title, &r.markdown, &r.attachments, &r.etag)
	if err == sql.ErrNoRows {
		return nil, &domain.NotFoundError{Resource: "wiki page", ID: strconv.FormatInt(wikiID, 10)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load wiki page %d: %w", wikiID, err)
	}
	return &r, nil
}

// GetWikiHeaders lists an owner's wiki pages with parents before children.
// An owner without a wiki is a NotFoundError.
func (s *Store) GetWikiHeaders(ctx context.Context, ownerID string) ([]domain.WikiHeader, error) {
	owner, err := rowID(ownerID)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, parent_wiki_id FROM wiki_pages WHERE owner_id = ? ORDER BY id
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list wiki of %s: %w", ownerID, err)
	}
	defer rows.Close()

	var headers []domain.WikiHeader
	for rows.Next() {
		var wikiID int64
		var parent sql.NullInt64
		var h domain.WikiHeader
		if err := rows.Scan(&wikiID, &h.Title, &parent); err != nil {
			return nil, fmt.Errorf("failed to scan wiki header: %w", err)
		}
		h.ID = strconv.FormatInt(wikiID, 10)
		if parent.Valid {
			h.ParentID = strconv.FormatInt(parent.Int64, 10)
		}
		headers = append(headers, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(headers) == 0 {
		return nil, &domain.NotFoundError{Resource: "wiki", ID: ownerID}
	}
	return headers, nil
}

// GetWikiPage loads one page of an owner's wiki.
func (s *Store) GetWikiPage(ctx context.Context, ownerID, wikiID string) (*domain.WikiPage, error) {
	owner, err := rowID(ownerID)
	if err != nil {
		return nil, err
	}
	wn, err := numericID("wiki page", wikiID)
	if err != nil {
		return nil, err
	}
	r, err := loadWikiPage(ctx, s.db.DB, owner, wn)
	if err != nil {
		return nil, err
	}
	return r.toPage()
}

// GetWikiAttachments returns the file handles attached to a page, previews
// included.
func (s *Store) GetWikiAttachments(ctx context.Context, ownerID, wikiID string) ([]domain.FileHandle, error) {
	page, err := s.GetWikiPage(ctx, ownerID, wikiID)
	if err != nil {
		return nil, err
	}
	handles := make([]domain.FileHandle, 0, len(page.AttachmentFileHandleIDs))
	for _, hid := range page.AttachmentFileHandleIDs {
		n, err := numericID("file handle", hid)
		if err != nil {
			return nil, err
		}
		h, err := loadFileHandle(ctx, s.db.DB, n)
		if err != nil {
			return nil, err
		}
		handles = append(handles, *h)
	}
	return handles, nil
}

// CreateWikiPage adds a page to an owner's wiki. A page without a parent
// becomes the root, and an owner can only have one root.
func (s *Store) CreateWikiPage(ctx context.Context, ownerID string, page *domain.WikiPage) (*domain.WikiPage, error) {
	owner, err := rowID(ownerID)
	if err != nil {
		return nil, err
	}
	attachments, err := encodeIDs(page.AttachmentFileHandleIDs)
	if err != nil {
		return nil, err
	}

	var wikiID int64
	err = s.withTx(ctx, func(tx *sql.Tx, ew *events.Writer) error {
		if _, err := loadEntity(ctx, tx, owner); err != nil {
			return err
		}

		var parent sql.NullInt64
		if page.ParentWikiID == "" {
			var roots int
			if err := tx.QueryRowContext(ctx, `
				SELECT COUNT(*) FROM wiki_pages WHERE owner_id = ? AND parent_wiki_id IS NULL
			`, owner).Scan(&roots); err != nil {
				return fmt.Errorf("failed to check wiki root: %w", err)
			}
			if roots > 0 {
				return domain.NewValueError("%s already has a root wiki page", ownerID)
			}
		} else {
			pn, err := numericID("wiki page", page.ParentWikiID)
			if err != nil {
				return err
			}
			if _, err := loadWikiPage(ctx, tx, owner, pn); err != nil {
				return err
			}
			parent = sql.NullInt64{Int64: pn, Valid: true}
		}

		if err := checkAttachments(ctx, tx, page.AttachmentFileHandleIDs); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO wiki_pages (owner_id, parent_wiki_id, title, markdown, attachments, etag)
			VALUES (?, ?, ?, ?, ?, ?)
		`, owner, parent, page.Title, page.Markdown, attachments, newETag())
		if err != nil {
			return fmt.Errorf("failed to create wiki page: %w", err)
		}
		wikiID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert ID: %w", err)
		}
		return ew.Log(tx, s.principal, "wiki", strconv.FormatInt(wikiID, 10), events.WikiPageCreated,
			map[string]string{"owner_id": ownerID, "title": page.Title, "parent_wiki_id": page.ParentWikiID})
	})
	if err != nil {
		return nil, err
	}
	return s.GetWikiPage(ctx, ownerID, strconv.FormatInt(wikiID, 10))
}

// UpdateWikiPage stores a page's title, markdown, and attachments. The page
// keeps its place in the tree.
func (s *Store) UpdateWikiPage(ctx context.Context, ownerID string, page *domain.WikiPage) (*domain.WikiPage, error) {
	owner, err := rowID(ownerID)
	if err != nil {
		return nil, err
	}
	wn, err := numericID("wiki page", page.ID)
	if err != nil {
		return nil, err
	}
	attachments, err := encodeIDs(page.AttachmentFileHandleIDs)
	if err != nil {
		return nil, err
	}

	err = s.withTx(ctx, func(tx *sql.Tx, ew *events.Writer) error {
		current, err := loadWikiPage(ctx, tx, owner, wn)
		if err != nil {
			return err
		}
		if err := checkETag(page.ID, current.etag, page.Etag); err != nil {
			return err
		}
		if err := checkAttachments(ctx, tx, page.AttachmentFileHandleIDs); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE wiki_pages SET title = ?, markdown = ?, attachments = ?, etag = ? WHERE id = ?
		`, page.Title, page.Markdown, attachments, newETag(), wn); err != nil {
			return fmt.Errorf("failed to update wiki page: %w", err)
		}
		return ew.Log(tx, s.principal, "wiki", page.ID, events.WikiPageUpdated,
			map[string]string{"owner_id": ownerID, "title": page.Title})
	})
	if err != nil {
		return nil, err
	}
	return s.GetWikiPage(ctx, ownerID, page.ID)
}

func checkAttachments(ctx context.Context, q querier, ids []string) error {
	for _, hid := range ids {
		n, err := numericID("file handle", hid)
		if err != nil {
			return err
		}
		if _, err := loadFileHandle(ctx, q, n); err != nil {
			return err
		}
	}
	return nil
}
