package treecopy

import (
	"go.uber.org/zap"

	"github.com/lherron/syncp/internal/domain"
)

// Options control one Copy call.
type Options struct {
	// Version copies a specific File version. Not allowed for containers.
	Version *int
	// SetProvenance is a provenance mode name; empty means traceback.
	SetProvenance string
	// UpdateExisting skips collision checks and lets creates upsert.
	UpdateExisting bool
	// ExcludeTypes lists variants to skip: file, link, table.
	ExcludeTypes []domain.EntityType
	// ContinueOnError reports remote errors per entity and keeps walking.
	ContinueOnError bool

	SkipCopyAnnotations bool
	SkipCopyWikiPage    bool

	// Forwarded to each CopyWiki call.
	EntitySubPageID      string
	DestinationSubPageID string
	UpdateLinks          bool
	UpdateSynIDs         bool
}

// DefaultOptions returns options with link and id rewriting enabled.
func DefaultOptions() Options {
	return Options{UpdateLinks: true, UpdateSynIDs: true}
}

func (o Options) excludes(t domain.EntityType) bool {
	for _, x := range o.ExcludeTypes {
		if x == t {
			return true
		}
	}
	return false
}

// Config wires a Copier to its collaborators.
type Config struct {
	// MaxFileHandlesPerCopy bounds each bulk file handle copy.
	MaxFileHandlesPerCopy int
	// Reporter receives one outcome per entity. Defaults to no reporting.
	Reporter Reporter
	// Cache is notified of copied file handles when set.
	Cache  FileCache
	Logger *zap.Logger
}
