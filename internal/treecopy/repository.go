// Package treecopy copies entity trees between locations of a repository,
// together with their wikis, provenance, and annotations, remapping every
// source id to its newly created destination id.
package treecopy

import (
	"context"

	"github.com/lherron/syncp/internal/domain"
)

// HandleCopier issues one bulk file handle copy request.
type HandleCopier interface {
	CopyFileHandles(ctx context.Context, reqs []domain.FileHandleCopyRequest) ([]domain.FileHandleCopyResult, error)
}

// Repository is the remote content repository the engine reads from and
// writes to. Missing objects are reported as *domain.NotFoundError.
type Repository interface {
	HandleCopier

	WhoAmI(ctx context.Context) (string, error)

	GetEntity(ctx context.Context, entityID string, version *int) (domain.Entity, error)
	CreateEntity(ctx context.Context, e domain.Entity) (domain.Entity, error)
	UpdateEntity(ctx context.Context, e domain.Entity, forceVersion bool) (domain.Entity, error)
	ListChildren(ctx context.Context, parentID string, includeTypes []domain.EntityType) ([]domain.EntityHeader, error)
	FindEntityID(ctx context.Context, name, parentID string) (string, error)

	GetPermissions(ctx context.Context, entityID string) (*domain.Permissions, error)
	GetAccessRequirements(ctx context.Context, entityID string) ([]domain.AccessRequirement, error)

	GetFileHandle(ctx context.Context, entityID string, version *int) (*domain.FileHandle, error)

	GetProvenance(ctx context.Context, entityID string, version *int) (*domain.Activity, error)
	SetProvenance(ctx context.Context, entityID string, activity *domain.Activity) (*domain.Activity, error)

	QueryRows(ctx context.Context, tableID, query string) (*domain.RowSet, error)
	AppendRows(ctx context.Context, tableID string, rows *domain.RowSet) (int, error)

	GetWikiHeaders(ctx context.Context, ownerID string) ([]domain.WikiHeader, error)
	GetWikiPage(ctx context.Context, ownerID, wikiID string) (*domain.WikiPage, error)
	GetWikiAttachments(ctx context.Context, ownerID, wikiID string) ([]domain.FileHandle, error)
	CreateWikiPage(ctx context.Context, ownerID string, page *domain.WikiPage) (*domain.WikiPage, error)
	UpdateWikiPage(ctx context.Context, ownerID string, page *domain.WikiPage) (*domain.WikiPage, error)
}

// FileCache is told when a copied handle has the same bytes as one it
// already holds. Only used to avoid downloads later.
type FileCache interface {
	Associate(ctx context.Context, originalHandleID, newHandleID string) error
}
