package treecopy

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lherron/syncp/internal/domain"
	"github.com/lherron/syncp/internal/logging"
)

// DefaultMaxFileHandlesPerCopyRequest is the bulk copy endpoint's batch limit.
const DefaultMaxFileHandlesPerCopyRequest = 100

// BatchCopier splits file handle copies into batches the bulk endpoint
// accepts and issues them one at a time.
type BatchCopier struct {
	repo  HandleCopier
	limit int
	log   *zap.Logger
}

// NewBatchCopier returns a copier sending at most limit handles per request.
// A non-positive limit uses DefaultMaxFileHandlesPerCopyRequest.
func NewBatchCopier(repo HandleCopier, limit int, log *zap.Logger) *BatchCopier {
	if limit <= 0 {
		limit = DefaultMaxFileHandlesPerCopyRequest
	}
	return &BatchCopier{repo: repo, limit: limit, log: logging.OrNop(log)}
}

// Limit returns the batch size.
func (b *BatchCopier) Limit() int {
	return b.limit
}

// CopyFileHandles copies handles[i] for association with objectIDs[i] of type
// objectTypes[i]. contentTypes and fileNames may be nil, and an empty element
// keeps the original value. Results are returned in input order; a failed
// item carries a FailureCode and does not stop the others.
func (b *BatchCopier) CopyFileHandles(ctx context.Context, handles, objectTypes, objectIDs, contentTypes, fileNames []string) ([]domain.FileHandleCopyResult, error) {
	n := len(handles)
	if len(objectTypes) != n || len(objectIDs) != n ||
		(contentTypes != nil && len(contentTypes) != n) ||
		(fileNames != nil && len(fileNames) != n) {
		return nil, domain.NewValueError("all input lists must be the same length (handles: %d, object types: %d, object ids: %d, content types: %d, file names: %d)",
			n, len(objectTypes), len(objectIDs), len(contentTypes), len(fileNames))
	}

	reqs := make([]domain.FileHandleCopyRequest, n)
	for i := range handles {
		reqs[i] = domain.FileHandleCopyRequest{
			FileHandleID:        handles[i],
			AssociateObjectType: objectTypes[i],
			AssociateObjectID:   objectIDs[i],
		}
		if contentTypes != nil && contentTypes[i] != "" {
			ct := contentTypes[i]
			reqs[i].NewContentType = &ct
		}
		if fileNames != nil && fileNames[i] != "" {
			name := fileNames[i]
			reqs[i].NewFileName = &name
		}
	}
	return b.CopyRequests(ctx, reqs)
}

// CopyRequests copies the given requests in batches.
func (b *BatchCopier) CopyRequests(ctx context.Context, reqs []domain.FileHandleCopyRequest) ([]domain.FileHandleCopyResult, error) {
	results := make([]domain.FileHandleCopyResult, 0, len(reqs))
	for start := 0; start < len(reqs); start += b.limit {
		end := start + b.limit
		if end > len(reqs) {
			end = len(reqs)
		}
		batch := reqs[start:end]

		b.log.Debug("copying file handle batch", zap.Int(logging.FieldCount, len(batch)), zap.Int("offset", start))
		out, err := b.repo.CopyFileHandles(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("failed to copy file handles %d-%d: %w", start, end-1, err)
		}
		if len(out) != len(batch) {
			return nil, fmt.Errorf("bulk copy returned %d results for %d file handles", len(out), len(batch))
		}
		results = append(results, out...)
	}
	return results, nil
}

// copyOne copies a single handle and escalates a failure code to a ValueError.
func (b *BatchCopier) copyOne(ctx context.Context, req domain.FileHandleCopyRequest, label string) (*domain.FileHandle, error) {
	results, err := b.CopyRequests(ctx, []domain.FileHandleCopyRequest{req})
	if err != nil {
		return nil, err
	}
	if results[0].Failed() {
		code := results[0].FailureCode
		if code == "" {
			code = domain.FailureNotFound
		}
		return nil, domain.NewValueError("%s %s: %s", code, label, req.FileHandleID)
	}
	return results[0].NewFileHandle, nil
}
