package treecopy

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lherron/syncp/internal/domain"
	"github.com/lherron/syncp/internal/id"
	"github.com/lherron/syncp/internal/logging"
)

// WikiCopyRequest describes one CopyWiki call.
type WikiCopyRequest struct {
	SourceOwnerID      string
	DestinationOwnerID string
	// EntitySubPageID limits the copy to the subtree rooted at this page.
	EntitySubPageID string
	// DestinationSubPageID attaches the copied tree under this page. When the
	// page exists it receives the content of the first copied root and any
	// further roots are created as its children.
	DestinationSubPageID string
	UpdateLinks          bool
	UpdateSynIDs         bool
	// EntityMap maps source entity ids to destination ids for id rewriting.
	EntityMap map[string]string
}

// NewWikiCopyRequest returns a request with link and id rewriting enabled.
func NewWikiCopyRequest(sourceOwnerID, destinationOwnerID string) WikiCopyRequest {
	return WikiCopyRequest{
		SourceOwnerID:      sourceOwnerID,
		DestinationOwnerID: destinationOwnerID,
		UpdateLinks:        true,
		UpdateSynIDs:       true,
	}
}

// PageRewrite records markdown changed by the rewrite passes.
type PageRewrite struct {
	WikiID string
	Title  string
	Before string
	After  string
}

// WikiResult is the outcome of a wiki copy.
type WikiResult struct {
	// Headers of the destination pages, parents before children.
	Headers []domain.WikiHeader
	// WikiIDs maps source page ids to destination page ids.
	WikiIDs  map[string]string
	Rewrites []PageRewrite
}

// CopyWiki copies the wiki of one owner to another and returns the headers
// of the destination pages. An owner without a wiki yields no headers.
func (c *Copier) CopyWiki(ctx context.Context, req WikiCopyRequest) ([]domain.WikiHeader, error) {
	res, err := c.CopyWikiDetailed(ctx, req)
	if err != nil {
		return nil, err
	}
	return res.Headers, nil
}

// CopyWikiDetailed is CopyWiki returning the page id map and the markdown
// rewrites as well. Pages created before a failure are not removed.
func (c *Copier) CopyWikiDetailed(ctx context.Context, req WikiCopyRequest) (*WikiResult, error) {
	res := &WikiResult{WikiIDs: make(map[string]string)}

	srcOwner, _, err := id.Normalize(req.SourceOwnerID)
	if err != nil {
		return nil, domain.NewValueError("%v", err)
	}
	dstOwner, _, err := id.Normalize(req.DestinationOwnerID)
	if err != nil {
		return nil, domain.NewValueError("%v", err)
	}

	headers, err := c.repo.GetWikiHeaders(ctx, srcOwner)
	if domain.IsNotFound(err) {
		return res, nil
	}
	if err != nil {
		return nil, err
	}

	var destSubPage *domain.WikiPage
	if req.DestinationSubPageID != "" {
		destSubPage, err = c.repo.GetWikiPage(ctx, dstOwner, req.DestinationSubPageID)
		if err != nil && !domain.IsNotFound(err) {
			return nil, err
		}
	}

	ordered, err := orderWikiHeaders(headers, req.EntitySubPageID)
	if err != nil {
		return nil, err
	}

	var created []*domain.WikiPage
	for _, h := range ordered {
		page, err := c.copyWikiPage(ctx, srcOwner, dstOwner, h, req.DestinationSubPageID, destSubPage, res.WikiIDs)
		if err != nil {
			return nil, err
		}
		if h.ParentID == "" {
			// only the first root takes over an existing sub page; later
			// roots become its children
			destSubPage = nil
		}
		res.WikiIDs[h.ID] = page.ID
		created = append(created, page)
		res.Headers = append(res.Headers, domain.WikiHeader{ID: page.ID, Title: page.Title, ParentID: page.ParentWikiID})
	}

	rw := Rewrite{
		SourceOwnerID:      srcOwner,
		DestinationOwnerID: dstOwner,
		WikiIDs:            res.WikiIDs,
		EntityIDs:          req.EntityMap,
		UpdateLinks:        req.UpdateLinks,
		UpdateSynIDs:       req.UpdateSynIDs && len(req.EntityMap) > 0,
	}
	for _, page := range created {
		markdown := RewriteMarkdown(page.Markdown, rw)
		if markdown == page.Markdown {
			continue
		}
		res.Rewrites = append(res.Rewrites, PageRewrite{WikiID: page.ID, Title: page.Title, Before: page.Markdown, After: markdown})
		page.Markdown = markdown
		if _, err := c.repo.UpdateWikiPage(ctx, dstOwner, page); err != nil {
			return nil, fmt.Errorf("failed to store rewritten wiki page %s: %w", page.ID, err)
		}
	}

	c.log.Debug("copied wiki",
		zap.String(logging.FieldSource, srcOwner),
		zap.String(logging.FieldDestination, dstOwner),
		zap.Int(logging.FieldCount, len(created)))
	if wr, ok := c.reporter.(WikiReporter); ok {
		wr.ReportWiki(ctx, WikiOutcome{SourceOwnerID: srcOwner, DestinationOwnerID: dstOwner, Pages: res.Headers})
	}
	return res, nil
}

// copyWikiPage copies one page and its attachments to the destination owner.
func (c *Copier) copyWikiPage(ctx context.Context, srcOwner, dstOwner string, h domain.WikiHeader, destSubPageID string, destSubPage *domain.WikiPage, wikiIDs map[string]string) (*domain.WikiPage, error) {
	old, err := c.repo.GetWikiPage(ctx, srcOwner, h.ID)
	if err != nil {
		return nil, err
	}

	attachments, err := c.copyAttachments(ctx, srcOwner, old)
	if err != nil {
		return nil, err
	}

	if h.ParentID != "" {
		parent, ok := wikiIDs[h.ParentID]
		if !ok {
			return nil, fmt.Errorf("wiki page %s was reached before its parent %s", h.ID, h.ParentID)
		}
		return c.repo.CreateWikiPage(ctx, dstOwner, &domain.WikiPage{
			ParentWikiID:            parent,
			Title:                   old.Title,
			Markdown:                old.Markdown,
			AttachmentFileHandleIDs: attachments,
		})
	}

	if destSubPage != nil {
		updated := *destSubPage
		updated.Title = old.Title
		updated.Markdown = old.Markdown
		updated.AttachmentFileHandleIDs = attachments
		return c.repo.UpdateWikiPage(ctx, dstOwner, &updated)
	}
	return c.repo.CreateWikiPage(ctx, dstOwner, &domain.WikiPage{
		ParentWikiID:            destSubPageID,
		Title:                   old.Title,
		Markdown:                old.Markdown,
		AttachmentFileHandleIDs: attachments,
	})
}

// copyAttachments copies a page's non-preview attachments and returns the new
// handle ids.
func (c *Copier) copyAttachments(ctx context.Context, owner string, page *domain.WikiPage) ([]string, error) {
	if len(page.AttachmentFileHandleIDs) == 0 {
		return nil, nil
	}
	handles, err := c.repo.GetWikiAttachments(ctx, owner, page.ID)
	if err != nil {
		return nil, err
	}

	var ids, objectTypes, objectIDs []string
	for _, h := range handles {
		if h.IsPreview() {
			continue
		}
		ids = append(ids, h.ID)
		objectTypes = append(objectTypes, domain.ObjectTypeWikiAttachment)
		objectIDs = append(objectIDs, page.ID)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	results, err := c.batch.CopyFileHandles(ctx, ids, objectTypes, objectIDs, nil, nil)
	if err != nil {
		return nil, err
	}
	newIDs := make([]string, len(results))
	for i, r := range results {
		if r.Failed() {
			return nil, domain.NewValueError("%s: %s", r.FailureCode, r.OriginalFileHandleID)
		}
		newIDs[i] = r.NewFileHandle.ID
	}
	return newIDs, nil
}

// orderWikiHeaders returns headers with every parent before its children and
// siblings in their original order. With a sub page id only that subtree is
// kept and its root loses its parent.
func orderWikiHeaders(headers []domain.WikiHeader, subPageID string) ([]domain.WikiHeader, error) {
	children := make(map[string][]domain.WikiHeader)
	byID := make(map[string]domain.WikiHeader, len(headers))
	for _, h := range headers {
		byID[h.ID] = h
	}

	var roots []domain.WikiHeader
	for _, h := range headers {
		if _, ok := byID[h.ParentID]; h.ParentID == "" || !ok {
			roots = append(roots, h)
			continue
		}
		children[h.ParentID] = append(children[h.ParentID], h)
	}

	if subPageID != "" {
		root, ok := byID[subPageID]
		if !ok {
			return nil, &domain.NotFoundError{Resource: "wiki page", ID: subPageID}
		}
		root.ParentID = ""
		roots = []domain.WikiHeader{root}
	}

	ordered := make([]domain.WikiHeader, 0, len(headers))
	seen := make(map[string]bool, len(headers))
	var visit func(h domain.WikiHeader)
	visit = func(h domain.WikiHeader) {
		if seen[h.ID] {
			return
		}
		seen[h.ID] = true
		ordered = append(ordered, h)
		for _, child := range children[h.ID] {
			visit(child)
		}
	}
	for _, r := range roots {
		r.ParentID = ""
		visit(r)
	}
	return ordered, nil
}
