package treecopy

import (
	"context"

	"github.com/lherron/syncp/internal/domain"
)

// MetadataChange renames or retypes the data file of a File.
type MetadataChange struct {
	// DownloadAs is the new file name; empty keeps the current one.
	DownloadAs string
	// ContentType is the new content type; empty keeps the current one.
	ContentType string
	// ForceVersion stores the change as a new version of the File.
	ForceVersion bool
}

// ChangeFileMetadata points a File at a copy of its own data file handle
// carrying a new name or content type. No bytes are transferred.
func (c *Copier) ChangeFileMetadata(ctx context.Context, entityID string, change MetadataChange) (*domain.File, error) {
	ent, err := c.repo.GetEntity(ctx, entityID, nil)
	if err != nil {
		return nil, err
	}
	f, ok := ent.(*domain.File)
	if !ok {
		return nil, domain.NewValueError("%s is a %s; only files have file metadata", ent.Base().ID, ent.Type())
	}

	handle, err := c.repo.GetFileHandle(ctx, f.ID, nil)
	if err != nil {
		return nil, err
	}
	fileName := change.DownloadAs
	if fileName == "" {
		fileName = handle.FileName
	}
	contentType := change.ContentType
	if contentType == "" {
		contentType = handle.ContentType
	}

	copied, err := c.batch.copyOne(ctx, domain.FileHandleCopyRequest{
		FileHandleID:        handle.ID,
		AssociateObjectType: domain.ObjectTypeFileEntity,
		AssociateObjectID:   f.ID,
		NewContentType:      &contentType,
		NewFileName:         &fileName,
	}, "dataFileHandleId")
	if err != nil {
		return nil, err
	}

	f.DataFileHandleID = copied.ID
	updated, err := c.repo.UpdateEntity(ctx, f, change.ForceVersion)
	if err != nil {
		return nil, err
	}
	return updated.(*domain.File), nil
}
