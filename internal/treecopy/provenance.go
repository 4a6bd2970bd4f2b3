package treecopy

import (
	"context"
	"strings"

	"github.com/lherron/syncp/internal/domain"
)

// ProvenanceMode selects the activity attached to a copied File.
type ProvenanceMode string

const (
	// ProvenanceTraceback records the source file as the copy's input.
	ProvenanceTraceback ProvenanceMode = "traceback"
	// ProvenanceExisting reuses the source file's own activity.
	ProvenanceExisting ProvenanceMode = "existing"
	// ProvenanceNone attaches nothing.
	ProvenanceNone ProvenanceMode = "none"
)

// CopiedFileActivity is the name of traceback activities.
const CopiedFileActivity = "Copied file"

// ParseProvenanceMode parses a mode name. The empty string is traceback.
func ParseProvenanceMode(s string) (ProvenanceMode, error) {
	switch ProvenanceMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ProvenanceTraceback:
		return ProvenanceTraceback, nil
	case ProvenanceExisting:
		return ProvenanceExisting, nil
	case ProvenanceNone:
		return ProvenanceNone, nil
	default:
		return "", domain.NewValueError("setProvenance must be one of none, existing, or traceback (got %q)", s)
	}
}

// resolveProvenance returns the activity to attach to a copy of f, or nil.
func resolveProvenance(ctx context.Context, repo Repository, mode ProvenanceMode, f *domain.File) (*domain.Activity, error) {
	switch mode {
	case ProvenanceTraceback:
		version := f.VersionNumber
		ref := &domain.Reference{TargetID: f.ID}
		if version > 0 {
			ref.TargetVersionNumber = &version
		}
		return &domain.Activity{
			Name: CopiedFileActivity,
			Used: []domain.UsedEntity{{Reference: ref, Name: f.Name}},
		}, nil
	case ProvenanceExisting:
		var version *int
		if f.VersionNumber > 0 {
			v := f.VersionNumber
			version = &v
		}
		act, err := repo.GetProvenance(ctx, f.ID, version)
		if domain.IsNotFound(err) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		existing := *act
		existing.ID = ""
		return &existing, nil
	default:
		return nil, nil
	}
}
