package client

import (
	"context"

	"github.com/lherron/syncp/internal/api"
	"github.com/lherron/syncp/internal/domain"
)

// WhoAmI returns the principal the server acts for
func (c *Client) WhoAmI(ctx context.Context) (string, error) {
	var out api.WhoAmIResponse
	if err := c.call(ctx, api.RouteWhoAmI, struct{}{}, &out); err != nil {
		return "", err
	}
	return out.Principal, nil
}

// GetEntity fetches an entity, optionally at a version
func (c *Client) GetEntity(ctx context.Context, entityID string, version *int) (domain.Entity, error) {
	var out api.EntityResponse
	if err := c.call(ctx, api.RouteEntityGet, api.EntityRequest{ID: entityID, Version: version}, &out); err != nil {
		return nil, err
	}
	return out.Entity.Entity, nil
}

// CreateEntity creates or upserts an entity
func (c *Client) CreateEntity(ctx context.Context, e domain.Entity) (domain.Entity, error) {
	var out api.EntityResponse
	if err := c.call(ctx, api.RouteEntityCreate, api.CreateEntityRequest{Entity: domain.EntityEnvelope{Entity: e}}, &out); err != nil {
		return nil, err
	}
	return out.Entity.Entity, nil
}

// UpdateEntity stores an entity under its etag
func (c *Client) UpdateEntity(ctx context.Context, e domain.Entity, forceVersion bool) (domain.Entity, error) {
	var out api.EntityResponse
	req := api.UpdateEntityRequest{Entity: domain.EntityEnvelope{Entity: e}, ForceVersion: forceVersion}
	if err := c.call(ctx, api.RouteEntityUpdate, req, &out); err != nil {
		return nil, err
	}
	return out.Entity.Entity, nil
}

// ListChildren lists the children of a container
func (c *Client) ListChildren(ctx context.Context, parentID string, includeTypes []domain.EntityType) ([]domain.EntityHeader, error) {
	var out api.ChildrenResponse
	if err := c.call(ctx, api.RouteEntityChildren, api.ChildrenRequest{ParentID: parentID, IncludeTypes: includeTypes}, &out); err != nil {
		return nil, err
	}
	return out.Children, nil
}

// FindEntityID returns the id of the named child, or "" when there is none
func (c *Client) FindEntityID(ctx context.Context, name, parentID string) (string, error) {
	var out api.LookupResponse
	if err := c.call(ctx, api.RouteEntityLookup, api.LookupRequest{Name: name, ParentID: parentID}, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// GetPermissions returns the caller's rights on an entity
func (c *Client) GetPermissions(ctx context.Context, entityID string) (*domain.Permissions, error) {
	var out domain.Permissions
	if err := c.call(ctx, api.RouteEntityPermissions, api.EntityRequest{ID: entityID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetAccessRequirements lists the access requirements of an entity
func (c *Client) GetAccessRequirements(ctx context.Context, entityID string) ([]domain.AccessRequirement, error) {
	var out api.AccessRequirementsResponse
	if err := c.call(ctx, api.RouteEntityAccessReqs, api.EntityRequest{ID: entityID}, &out); err != nil {
		return nil, err
	}
	return out.Requirements, nil
}

// AddAccessRequirement adds an access requirement to an entity
func (c *Client) AddAccessRequirement(ctx context.Context, entityID, description string) (int64, error) {
	var out api.AddAccessRequirementResponse
	req := api.AddAccessRequirementRequest{ID: entityID, Description: description}
	if err := c.call(ctx, api.RouteEntityAccessReqsAdd, req, &out); err != nil {
		return 0, err
	}
	return out.RequirementID, nil
}

// Restrict denies principal download access to an entity
func (c *Client) Restrict(ctx context.Context, entityID, principal string) error {
	return c.call(ctx, api.RouteEntityRestrict, api.RestrictRequest{ID: entityID, Principal: principal}, nil)
}

// GetFileHandle returns the data file handle of a File version
func (c *Client) GetFileHandle(ctx context.Context, entityID string, version *int) (*domain.FileHandle, error) {
	var out domain.FileHandle
	if err := c.call(ctx, api.RouteEntityFileHandle, api.EntityRequest{ID: entityID, Version: version}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CopyFileHandles issues one bulk copy request
func (c *Client) CopyFileHandles(ctx context.Context, reqs []domain.FileHandleCopyRequest) ([]domain.FileHandleCopyResult, error) {
	var out api.CopyFileHandlesResponse
	if err := c.call(ctx, api.RouteFileHandlesCopy, api.CopyFileHandlesRequest{Requests: reqs}, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// CreateFileHandle registers file handle metadata
func (c *Client) CreateFileHandle(ctx context.Context, h *domain.FileHandle) (*domain.FileHandle, error) {
	var out domain.FileHandle
	if err := c.call(ctx, api.RouteFileHandlesCreate, h, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetProvenance returns the activity of a File version
func (c *Client) GetProvenance(ctx context.Context, entityID string, version *int) (*domain.Activity, error) {
	var out domain.Activity
	if err := c.call(ctx, api.RouteProvenanceGet, api.EntityRequest{ID: entityID, Version: version}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetProvenance attaches an activity to the current version of a File
func (c *Client) SetProvenance(ctx context.Context, entityID string, activity *domain.Activity) (*domain.Activity, error) {
	var out domain.Activity
	if err := c.call(ctx, api.RouteProvenanceSet, api.SetProvenanceRequest{ID: entityID, Activity: *activity}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// QueryRows runs a table query
func (c *Client) QueryRows(ctx context.Context, tableID, query string) (*domain.RowSet, error) {
	var out domain.RowSet
	if err := c.call(ctx, api.RouteTablesQuery, api.QueryRowsRequest{TableID: tableID, Query: query}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AppendRows appends rows to a table
func (c *Client) AppendRows(ctx context.Context, tableID string, rows *domain.RowSet) (int, error) {
	var out api.AppendRowsResponse
	if err := c.call(ctx, api.RouteTablesAppend, api.AppendRowsRequest{TableID: tableID, Rows: *rows}, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// GetWikiHeaders lists an owner's wiki pages
func (c *Client) GetWikiHeaders(ctx context.Context, ownerID string) ([]domain.WikiHeader, error) {
	var out api.WikiHeadersResponse
	if err := c.call(ctx, api.RouteWikiHeaders, api.WikiRequest{OwnerID: ownerID}, &out); err != nil {
		return nil, err
	}
	return out.Headers, nil
}

// GetWikiPage fetches one wiki page
func (c *Client) GetWikiPage(ctx context.Context, ownerID, wikiID string) (*domain.WikiPage, error) {
	var out domain.WikiPage
	if err := c.call(ctx, api.RouteWikiGet, api.WikiRequest{OwnerID: ownerID, WikiID: wikiID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetWikiAttachments returns the file handles attached to a page
func (c *Client) GetWikiAttachments(ctx context.Context, ownerID, wikiID string) ([]domain.FileHandle, error) {
	var out api.WikiAttachmentsResponse
	if err := c.call(ctx, api.RouteWikiAttachments, api.WikiRequest{OwnerID: ownerID, WikiID: wikiID}, &out); err != nil {
		return nil, err
	}
	return out.FileHandles, nil
}

// CreateWikiPage adds a page to an owner's wiki
func (c *Client) CreateWikiPage(ctx context.Context, ownerID string, page *domain.WikiPage) (*domain.WikiPage, error) {
	var out domain.WikiPage
	if err := c.call(ctx, api.RouteWikiCreate, api.WikiPageRequest{OwnerID: ownerID, Page: *page}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateWikiPage stores a wiki page
func (c *Client) UpdateWikiPage(ctx context.Context, ownerID string, page *domain.WikiPage) (*domain.WikiPage, error) {
	var out domain.WikiPage
	if err := c.call(ctx, api.RouteWikiUpdate, api.WikiPageRequest{OwnerID: ownerID, Page: *page}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
