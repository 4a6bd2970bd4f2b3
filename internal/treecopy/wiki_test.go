package treecopy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lherron/syncp/internal/domain"
	"github.com/lherron/syncp/internal/testutil"
)

func TestCopyWikiRootAndChild(t *testing.T) {
	ctx := context.Background()
	s := testutil.TempStore(t, "alice")
	src := testutil.Project(t, s, "src")
	dst := testutil.Project(t, s, "dst")
	root := testutil.WikiPage(t, s, src, "", "root", "welcome")
	testutil.WikiPage(t, s, src, root, "childA", "details")

	rep := &recordingReporter{}
	headers, err := New(s, Config{Reporter: rep}).CopyWiki(ctx, NewWikiCopyRequest(src, dst))
	require.NoError(t, err)

	require.Len(t, headers, 2)
	assert.Equal(t, "root", headers[0].Title)
	assert.Empty(t, headers[0].ParentID)
	assert.Equal(t, "childA", headers[1].Title)
	assert.Equal(t, headers[0].ID, headers[1].ParentID)

	stored, err := s.GetWikiHeaders(ctx, dst)
	require.NoError(t, err)
	assert.Equal(t, headers, stored)
	require.Len(t, rep.wikis, 1)
	assert.Len(t, rep.wikis[0].Pages, 2)
}

func TestCopyWikiMissingSource(t *testing.T) {
	ctx := context.Background()
	s := testutil.TempStore(t, "alice")
	src := testutil.Project(t, s, "src")
	dst := testutil.Project(t, s, "dst")

	headers, err := New(s, Config{}).CopyWiki(ctx, NewWikiCopyRequest(src, dst))
	require.NoError(t, err)
	assert.Empty(t, headers)
}

func TestCopyWikiRewritesLinks(t *testing.T) {
	ctx := context.Background()
	s := testutil.TempStore(t, "alice")
	src := testutil.Project(t, s, "src")
	dst := testutil.Project(t, s, "dst")
	root := testutil.WikiPage(t, s, src, "", "root", "intro")
	child := testutil.WikiPage(t, s, src, root, "child", "back to "+src)
	sibling := testutil.WikiPage(t, s, src, root, "sibling", "plain text")

	// root links forward to pages created after it
	page, err := s.GetWikiPage(ctx, src, root)
	require.NoError(t, err)
	page.Markdown = "[child](#!Synapse:" + src + "/wiki/" + child + ") [sibling](#!Synapse:" + src + "/wiki/" + sibling + ")"
	_, err = s.UpdateWikiPage(ctx, src, page)
	require.NoError(t, err)

	res, err := New(s, Config{}).CopyWikiDetailed(ctx, NewWikiCopyRequest(src, dst))
	require.NoError(t, err)
	require.Len(t, res.Headers, 3)

	newRoot, err := s.GetWikiPage(ctx, dst, res.WikiIDs[root])
	require.NoError(t, err)
	assert.Equal(t, "[child](#!Synapse:"+dst+"/wiki/"+res.WikiIDs[child]+") [sibling](#!Synapse:"+dst+"/wiki/"+res.WikiIDs[sibling]+")", newRoot.Markdown)

	newChild, err := s.GetWikiPage(ctx, dst, res.WikiIDs[child])
	require.NoError(t, err)
	assert.Equal(t, "back to "+dst, newChild.Markdown)

	// only changed pages are rewritten
	require.Len(t, res.Rewrites, 2)
	assert.Equal(t, res.WikiIDs[root], res.Rewrites[0].WikiID)
	assert.Equal(t, res.WikiIDs[child], res.Rewrites[1].WikiID)
}

func TestCopyWikiWithoutRewrites(t *testing.T) {
	ctx := context.Background()
	s := testutil.TempStore(t, "alice")
	src := testutil.Project(t, s, "src")
	dst := testutil.Project(t, s, "dst")
	root := testutil.WikiPage(t, s, src, "", "root", "see "+src)

	req := NewWikiCopyRequest(src, dst)
	req.UpdateLinks = false
	req.UpdateSynIDs = false
	res, err := New(s, Config{}).CopyWikiDetailed(ctx, req)
	require.NoError(t, err)
	assert.Empty(t, res.Rewrites)

	page, err := s.GetWikiPage(ctx, dst, res.WikiIDs[root])
	require.NoError(t, err)
	assert.Equal(t, "see "+src, page.Markdown)
}

func TestCopyWikiAttachments(t *testing.T) {
	ctx := context.Background()
	s := testutil.TempStore(t, "alice")
	src := testutil.Project(t, s, "src")
	dst := testutil.Project(t, s, "dst")
	att := testutil.Handle(t, s, "figure.png", "image/png")
	preview, err := s.CreateFileHandle(ctx, &domain.FileHandle{
		FileName:     "figure-preview.png",
		ConcreteType: domain.ConcreteTypePreviewFileHandle,
	})
	require.NoError(t, err)
	root := testutil.WikiPage(t, s, src, "", "root", "![fig](figure.png)", att, preview.ID)

	rec := &countingRepo{Repository: s}
	res, err := New(rec, Config{}).CopyWikiDetailed(ctx, NewWikiCopyRequest(src, dst))
	require.NoError(t, err)

	page, err := s.GetWikiPage(ctx, dst, res.WikiIDs[root])
	require.NoError(t, err)
	require.Len(t, page.AttachmentFileHandleIDs, 1)
	assert.NotEqual(t, att, page.AttachmentFileHandleIDs[0])

	handles, err := s.GetWikiAttachments(ctx, dst, page.ID)
	require.NoError(t, err)
	assert.Equal(t, "figure.png", handles[0].FileName)
	assert.Equal(t, "image/png", handles[0].ContentType)

	require.Len(t, rec.copies, 1)
	assert.Equal(t, domain.ObjectTypeWikiAttachment, rec.copies[0][0].AssociateObjectType)
	assert.Equal(t, root, rec.copies[0][0].AssociateObjectID)
}

func TestCopyWikiAttachmentFailure(t *testing.T) {
	ctx := context.Background()
	alice := testutil.TempStore(t, "alice")
	src := testutil.Project(t, alice, "src")
	att := testutil.Handle(t, alice, "figure.png", "image/png")
	testutil.WikiPage(t, alice, src, "", "root", "", att)
	require.NoError(t, alice.Restrict(ctx, src, "bob"))

	bob := alice.As("bob")
	dst := testutil.Project(t, bob, "dst")
	_, err := New(bob, Config{}).CopyWiki(ctx, NewWikiCopyRequest(src, dst))
	require.Error(t, err)
	assert.True(t, domain.IsValueError(err), "got %v", err)
	assert.Contains(t, err.Error(), "UNAUTHORIZED")
}

func TestCopyWikiSubPage(t *testing.T) {
	ctx := context.Background()
	s := testutil.TempStore(t, "alice")
	src := testutil.Project(t, s, "src")
	dst := testutil.Project(t, s, "dst")
	root := testutil.WikiPage(t, s, src, "", "root", "")
	a := testutil.WikiPage(t, s, src, root, "A", "")
	testutil.WikiPage(t, s, src, a, "A1", "")
	testutil.WikiPage(t, s, src, root, "B", "")

	req := NewWikiCopyRequest(src, dst)
	req.EntitySubPageID = a
	headers, err := New(s, Config{}).CopyWiki(ctx, req)
	require.NoError(t, err)

	require.Len(t, headers, 2)
	assert.Equal(t, "A", headers[0].Title)
	assert.Empty(t, headers[0].ParentID)
	assert.Equal(t, "A1", headers[1].Title)
	assert.Equal(t, headers[0].ID, headers[1].ParentID)
}

func TestCopyWikiIntoDestinationSubPage(t *testing.T) {
	ctx := context.Background()
	s := testutil.TempStore(t, "alice")
	src := testutil.Project(t, s, "src")
	dst := testutil.Project(t, s, "dst")
	root := testutil.WikiPage(t, s, src, "", "root", "copied root")
	testutil.WikiPage(t, s, src, root, "child", "")

	dstRoot := testutil.WikiPage(t, s, dst, "", "home", "")
	slot := testutil.WikiPage(t, s, dst, dstRoot, "placeholder", "replace me")

	req := NewWikiCopyRequest(src, dst)
	req.DestinationSubPageID = slot
	headers, err := New(s, Config{}).CopyWiki(ctx, req)
	require.NoError(t, err)

	require.Len(t, headers, 2)
	assert.Equal(t, slot, headers[0].ID, "existing sub page is updated in place")
	assert.Equal(t, dstRoot, headers[0].ParentID)
	assert.Equal(t, slot, headers[1].ParentID)

	page, err := s.GetWikiPage(ctx, dst, slot)
	require.NoError(t, err)
	assert.Equal(t, "root", page.Title)
	assert.Equal(t, "copied root", page.Markdown)

	all, err := s.GetWikiHeaders(ctx, dst)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

// detachedRepo reports one wiki page as having no parent.
type detachedRepo struct {
	Repository
	detached string
}

func (d *detachedRepo) GetWikiHeaders(ctx context.Context, ownerID string) ([]domain.WikiHeader, error) {
	headers, err := d.Repository.GetWikiHeaders(ctx, ownerID)
	for i := range headers {
		if headers[i].ID == d.detached {
			headers[i].ParentID = ""
		}
	}
	return headers, err
}

func TestCopyWikiSeveralRootsIntoDestinationSubPage(t *testing.T) {
	ctx := context.Background()
	s := testutil.TempStore(t, "alice")
	src := testutil.Project(t, s, "src")
	dst := testutil.Project(t, s, "dst")
	root := testutil.WikiPage(t, s, src, "", "first", "one")
	second := testutil.WikiPage(t, s, src, root, "second", "two")

	dstRoot := testutil.WikiPage(t, s, dst, "", "home", "")
	slot := testutil.WikiPage(t, s, dst, dstRoot, "placeholder", "")

	req := NewWikiCopyRequest(src, dst)
	req.DestinationSubPageID = slot
	res, err := New(&detachedRepo{Repository: s, detached: second}, Config{}).CopyWikiDetailed(ctx, req)
	require.NoError(t, err)

	require.Len(t, res.Headers, 2)
	assert.Equal(t, slot, res.WikiIDs[root])
	assert.NotEqual(t, slot, res.WikiIDs[second], "later roots get their own page")
	assert.Equal(t, slot, res.Headers[1].ParentID)

	page, err := s.GetWikiPage(ctx, dst, slot)
	require.NoError(t, err)
	assert.Equal(t, "first", page.Title)
	page, err = s.GetWikiPage(ctx, dst, res.WikiIDs[second])
	require.NoError(t, err)
	assert.Equal(t, "second", page.Title)
	assert.Equal(t, "two", page.Markdown)

	all, err := s.GetWikiHeaders(ctx, dst)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestCopyRewritesEntityIDsInWikis(t *testing.T) {
	ctx := context.Background()
	s := testutil.TempStore(t, "alice")
	src := testutil.Project(t, s, "src")
	dst := testutil.Project(t, s, "dst")
	folder := testutil.Folder(t, s, src, "raw")
	file := testutil.File(t, s, folder, "a.txt", nil)
	testutil.WikiPage(t, s, folder, "", "readme", "data lives in "+file)

	mapping, err := New(s, Config{}).Copy(ctx, folder, dst, DefaultOptions())
	require.NoError(t, err)

	newFolder, _ := mapping.Get(folder)
	newFile, _ := mapping.Get(file)
	headers, err := s.GetWikiHeaders(ctx, newFolder)
	require.NoError(t, err)
	require.Len(t, headers, 1)
	page, err := s.GetWikiPage(ctx, newFolder, headers[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "data lives in "+newFile, page.Markdown)

	// SkipCopyWikiPage leaves the destination without a wiki
	dst2 := testutil.Project(t, s, "dst2")
	opts := DefaultOptions()
	opts.SkipCopyWikiPage = true
	mapping, err = New(s, Config{}).Copy(ctx, folder, dst2, opts)
	require.NoError(t, err)
	newFolder, _ = mapping.Get(folder)
	_, err = s.GetWikiHeaders(ctx, newFolder)
	assert.True(t, domain.IsNotFound(err), "got %v", err)
}

func TestOrderWikiHeaders(t *testing.T) {
	headers := []domain.WikiHeader{
		{ID: "5", ParentID: "1"},
		{ID: "1"},
		{ID: "3", ParentID: "2"},
		{ID: "2", ParentID: "1"},
		{ID: "4", ParentID: "3"},
	}

	ids := func(hs []domain.WikiHeader) []string {
		out := make([]string, len(hs))
		for i, h := range hs {
			out[i] = h.ID
		}
		return out
	}

	ordered, err := orderWikiHeaders(headers, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "5", "2", "3", "4"}, ids(ordered))

	sub, err := orderWikiHeaders(headers, "2")
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3", "4"}, ids(sub))
	assert.Empty(t, sub[0].ParentID)
	assert.Equal(t, "2", sub[1].ParentID)

	_, err = orderWikiHeaders(headers, "99")
	assert.True(t, domain.IsNotFound(err))
}

// countingRepo records bulk file handle copy requests.
type countingRepo struct {
	Repository
	copies [][]domain.FileHandleCopyRequest
}

func (c *countingRepo) CopyFileHandles(ctx context.Context, reqs []domain.FileHandleCopyRequest) ([]domain.FileHandleCopyResult, error) {
	c.copies = append(c.copies, reqs)
	return c.Repository.CopyFileHandles(ctx, reqs)
}
