package treecopy

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lherron/syncp/internal/domain"
)

// recordingCopier answers bulk copies locally and records batch sizes.
type recordingCopier struct {
	batches [][]domain.FileHandleCopyRequest
	fail    map[string]domain.FailureCode
	err     error
}

func (r *recordingCopier) CopyFileHandles(_ context.Context, reqs []domain.FileHandleCopyRequest) ([]domain.FileHandleCopyResult, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.batches = append(r.batches, reqs)
	out := make([]domain.FileHandleCopyResult, len(reqs))
	for i, req := range reqs {
		out[i].OriginalFileHandleID = req.FileHandleID
		if code, ok := r.fail[req.FileHandleID]; ok {
			out[i].FailureCode = code
			continue
		}
		h := &domain.FileHandle{ID: "new-" + req.FileHandleID}
		if req.NewFileName != nil {
			h.FileName = *req.NewFileName
		}
		if req.NewContentType != nil {
			h.ContentType = *req.NewContentType
		}
		out[i].NewFileHandle = h
	}
	return out, nil
}

func (r *recordingCopier) sizes() []int {
	sizes := make([]int, len(r.batches))
	for i, b := range r.batches {
		sizes[i] = len(b)
	}
	return sizes
}

func handleInputs(n int) (handles, types, ids []string) {
	for i := 0; i < n; i++ {
		handles = append(handles, fmt.Sprint(100+i))
		types = append(types, domain.ObjectTypeFileEntity)
		ids = append(ids, fmt.Sprintf("syn%d", i))
	}
	return handles, types, ids
}

func TestBatchCopier_SplitsIntoBatches(t *testing.T) {
	rec := &recordingCopier{}
	b := NewBatchCopier(rec, 5, nil)

	handles, types, ids := handleInputs(12)
	results, err := b.CopyFileHandles(context.Background(), handles, types, ids, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, []int{5, 5, 2}, rec.sizes())
	require.Len(t, results, 12)
	for i, r := range results {
		assert.Equal(t, handles[i], r.OriginalFileHandleID)
		assert.Equal(t, "new-"+handles[i], r.NewFileHandle.ID)
	}
}

func TestBatchCopier_CallCountIsCeiling(t *testing.T) {
	tests := []struct {
		n, limit, calls int
	}{
		{0, 5, 0},
		{1, 5, 1},
		{5, 5, 1},
		{6, 5, 2},
		{100, 100, 1},
		{101, 100, 2},
		{250, 0, 3},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.n, tt.limit), func(t *testing.T) {
			rec := &recordingCopier{}
			handles, types, ids := handleInputs(tt.n)
			results, err := NewBatchCopier(rec, tt.limit, nil).CopyFileHandles(context.Background(), handles, types, ids, nil, nil)
			require.NoError(t, err)
			assert.Len(t, rec.batches, tt.calls)
			assert.Len(t, results, tt.n)
		})
	}
}

func TestBatchCopier_LengthMismatch(t *testing.T) {
	b := NewBatchCopier(&recordingCopier{}, 5, nil)
	handles, types, ids := handleInputs(3)

	_, err := b.CopyFileHandles(context.Background(), handles, types[:2], ids, nil, nil)
	assert.True(t, domain.IsValueError(err), "got %v", err)

	_, err = b.CopyFileHandles(context.Background(), handles, types, ids, []string{"text/plain"}, nil)
	assert.True(t, domain.IsValueError(err), "got %v", err)

	_, err = b.CopyFileHandles(context.Background(), handles, types, ids, nil, []string{"a", "b"})
	assert.True(t, domain.IsValueError(err), "got %v", err)
}

func TestBatchCopier_OptionalOverrides(t *testing.T) {
	rec := &recordingCopier{}
	b := NewBatchCopier(rec, 5, nil)
	handles, types, ids := handleInputs(2)

	results, err := b.CopyFileHandles(context.Background(), handles, types, ids, []string{"text/csv", ""}, []string{"", "b.txt"})
	require.NoError(t, err)

	sent := rec.batches[0]
	require.NotNil(t, sent[0].NewContentType)
	assert.Equal(t, "text/csv", *sent[0].NewContentType)
	assert.Nil(t, sent[0].NewFileName)
	assert.Nil(t, sent[1].NewContentType)
	require.NotNil(t, sent[1].NewFileName)
	assert.Equal(t, "b.txt", *sent[1].NewFileName)
	assert.Equal(t, "b.txt", results[1].NewFileHandle.FileName)
}

func TestBatchCopier_FailuresDoNotAbort(t *testing.T) {
	rec := &recordingCopier{fail: map[string]domain.FailureCode{
		"101": domain.FailureUnauthorized,
		"107": domain.FailureNotFound,
	}}
	b := NewBatchCopier(rec, 3, nil)
	handles, types, ids := handleInputs(9)

	results, err := b.CopyFileHandles(context.Background(), handles, types, ids, nil, nil)
	require.NoError(t, err)
	require.Len(t, results, 9)
	assert.Equal(t, domain.FailureUnauthorized, results[1].FailureCode)
	assert.Equal(t, domain.FailureNotFound, results[7].FailureCode)
	assert.False(t, results[8].Failed())
	assert.Len(t, rec.batches, 3)
}

func TestBatchCopier_TransportError(t *testing.T) {
	rec := &recordingCopier{err: errors.New("connection refused")}
	handles, types, ids := handleInputs(2)
	_, err := NewBatchCopier(rec, 5, nil).CopyFileHandles(context.Background(), handles, types, ids, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.False(t, domain.IsValueError(err))
}

func TestBatchCopier_CopyOneEscalatesFailure(t *testing.T) {
	rec := &recordingCopier{fail: map[string]domain.FailureCode{"123": domain.FailureUnauthorized}}
	b := NewBatchCopier(rec, 5, nil)

	_, err := b.copyOne(context.Background(), domain.FileHandleCopyRequest{FileHandleID: "123"}, "dataFileHandleId")
	require.Error(t, err)
	assert.True(t, domain.IsValueError(err))
	assert.Equal(t, "UNAUTHORIZED dataFileHandleId: 123", err.Error())
}
