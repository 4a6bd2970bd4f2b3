package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/lherron/syncp/internal/db"
	"github.com/lherron/syncp/internal/domain"
	"github.com/lherron/syncp/internal/store"
)

// TempDB creates a temporary migrated SQLite database for testing
func TempDB(t *testing.T) (*db.DB, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")

	database, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	if _, err := database.Migrate(); err != nil {
		database.Close()
		t.Fatalf("Failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		database.Close()
	})

	return database, dbPath
}

// TempStore creates a store over a temporary database acting as principal
func TempStore(t *testing.T, principal string) *store.Store {
	t.Helper()
	database, _ := TempDB(t)
	return store.New(database).As(principal)
}

// WriteFile writes content to a file in a temporary directory
func WriteFile(t *testing.T, dir, filename, content string) string {
	t.Helper()
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
	return path
}

// ReadFile reads content from a file
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(data)
}

// Project creates a project and returns its id
func Project(t *testing.T, s *store.Store, name string) string {
	t.Helper()
	return create(t, s, &domain.Project{EntityBase: domain.EntityBase{Name: name}})
}

// Folder creates a folder under parent and returns its id
func Folder(t *testing.T, s *store.Store, parent, name string) string {
	t.Helper()
	return create(t, s, &domain.Folder{EntityBase: domain.EntityBase{Name: name, ParentID: parent}})
}

// File creates a file handle and a file referencing it, returning the file id
func File(t *testing.T, s *store.Store, parent, name string, annotations domain.Annotations) string {
	t.Helper()
	h := Handle(t, s, name, "text/plain")
	return create(t, s, &domain.File{
		EntityBase:       domain.EntityBase{Name: name, ParentID: parent, Annotations: annotations},
		DataFileHandleID: h,
	})
}

// Link creates a link to target and returns its id
func Link(t *testing.T, s *store.Store, parent, name, target string) string {
	t.Helper()
	return create(t, s, &domain.Link{
		EntityBase: domain.EntityBase{Name: name, ParentID: parent},
		LinksTo:    domain.Reference{TargetID: target},
	})
}

// Table creates a table with the given columns and rows and returns its id
func Table(t *testing.T, s *store.Store, parent, name string, columns []string, rows ...[]string) string {
	t.Helper()
	tableID := create(t, s, &domain.Table{
		EntityBase: domain.EntityBase{Name: name, ParentID: parent},
		ColumnIDs:  columns,
	})
	if len(rows) > 0 {
		rs := &domain.RowSet{TableID: tableID}
		for _, r := range rows {
			rs.Rows = append(rs.Rows, domain.Row{Values: r})
		}
		if _, err := s.AppendRows(context.Background(), tableID, rs); err != nil {
			t.Fatalf("Failed to append rows to %s: %v", tableID, err)
		}
	}
	return tableID
}

// Handle creates a file handle and returns its id
func Handle(t *testing.T, s *store.Store, fileName, contentType string) string {
	t.Helper()
	h, err := s.CreateFileHandle(context.Background(), &domain.FileHandle{
		FileName:    fileName,
		ContentType: contentType,
	})
	if err != nil {
		t.Fatalf("Failed to create file handle %s: %v", fileName, err)
	}
	return h.ID
}

// WikiPage creates a wiki page under owner and returns its id
func WikiPage(t *testing.T, s *store.Store, owner, parent, title, markdown string, attachments ...string) string {
	t.Helper()
	p, err := s.CreateWikiPage(context.Background(), owner, &domain.WikiPage{
		ParentWikiID:            parent,
		Title:                   title,
		Markdown:                markdown,
		AttachmentFileHandleIDs: attachments,
	})
	if err != nil {
		t.Fatalf("Failed to create wiki page %q: %v", title, err)
	}
	return p.ID
}

func create(t *testing.T, s *store.Store, e domain.Entity) string {
	t.Helper()
	out, err := s.CreateEntity(context.Background(), e)
	if err != nil {
		t.Fatalf("Failed to create %s %q: %v", e.Type(), e.Base().Name, err)
	}
	return out.Base().ID
}
