// Package store is the local SQLite repository. It implements the remote
// repository operations the copy engine needs, scoped to an acting principal,
// and handles etags, versions, and event logging.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lherron/syncp/internal/db"
	"github.com/lherron/syncp/internal/domain"
	"github.com/lherron/syncp/internal/events"
	"github.com/lherron/syncp/internal/id"
)

// DefaultPrincipal acts when no principal was configured
const DefaultPrincipal = "anonymous"

// Store is the local repository bound to one acting principal.
type Store struct {
	db        *db.DB
	principal string
}

// New creates a new Store wrapping the given database connection.
func New(database *db.DB) *Store {
	return &Store{db: database, principal: DefaultPrincipal}
}

// As returns a view of the store acting as the given principal.
func (s *Store) As(principal string) *Store {
	if principal == "" {
		principal = DefaultPrincipal
	}
	return &Store{db: s.db, principal: principal}
}

// Principal returns the acting principal.
func (s *Store) Principal() string {
	return s.principal
}

// DB returns the underlying database connection (for read-only queries).
func (s *Store) DB() *db.DB {
	return s.db
}

// WhoAmI returns the acting principal.
func (s *Store) WhoAmI(ctx context.Context) (string, error) {
	return s.principal, nil
}

// withTx executes fn within a transaction. If fn returns nil, the transaction
// is committed; otherwise it is rolled back.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx, ew *events.Writer) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	ew := events.NewWriter(s.db.DB)
	if err := fn(tx, ew); err != nil {
		return err
	}

	return tx.Commit()
}

// newETag returns a fresh etag for a write.
func newETag() string {
	return uuid.NewString()
}

// checkETag verifies the etag matches when one was supplied.
func checkETag(entityID, currentETag, ifMatch string) error {
	if ifMatch != "" && currentETag != ifMatch {
		return &domain.ETagMismatchError{ID: entityID, Expected: ifMatch, Actual: currentETag}
	}
	return nil
}

// rowID parses an entity id into its row id.
func rowID(entityID string) (int64, error) {
	n, _, err := id.Parse(entityID)
	if err != nil {
		return 0, domain.NewValueError("%v", err)
	}
	return n, nil
}

// numericID parses a wiki page or file handle id.
func numericID(kind, s string) (int64, error) {
	n, err := id.ParseNumeric(s)
	if err != nil {
		return 0, domain.NewValueError("invalid %s id: %q", kind, s)
	}
	return n, nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}
