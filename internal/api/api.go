// Package api defines the JSON bodies exchanged between syncp and syncpd.
// Every route is a POST under /v1/ except health.
package api

import "github.com/lherron/syncp/internal/domain"

// Route paths
const (
	RouteHealth              = "/v1/health"
	RouteWhoAmI              = "/v1/whoami"
	RouteEntityGet           = "/v1/entities/get"
	RouteEntityCreate        = "/v1/entities/create"
	RouteEntityUpdate        = "/v1/entities/update"
	RouteEntityChildren      = "/v1/entities/children"
	RouteEntityLookup        = "/v1/entities/lookup"
	RouteEntityPermissions   = "/v1/entities/permissions"
	RouteEntityAccessReqs    = "/v1/entities/access-requirements"
	RouteEntityAccessReqsAdd = "/v1/entities/access-requirements/add"
	RouteEntityRestrict      = "/v1/entities/restrict"
	RouteEntityFileHandle    = "/v1/entities/filehandle"
	RouteFileHandlesCopy     = "/v1/filehandles/copy"
	RouteFileHandlesCreate   = "/v1/filehandles/create"
	RouteProvenanceGet       = "/v1/provenance/get"
	RouteProvenanceSet       = "/v1/provenance/set"
	RouteTablesQuery         = "/v1/tables/query"
	RouteTablesAppend        = "/v1/tables/append"
	RouteWikiHeaders         = "/v1/wiki/headers"
	RouteWikiGet             = "/v1/wiki/get"
	RouteWikiAttachments     = "/v1/wiki/attachments"
	RouteWikiCreate          = "/v1/wiki/create"
	RouteWikiUpdate          = "/v1/wiki/update"
)

// Headers
const (
	HeaderPrincipal = "X-Syncp-As"
)

// Error codes carried by ErrorResponse
const (
	CodeInvalid       = "invalid"
	CodeNotFound      = "not_found"
	CodeForbidden     = "forbidden"
	CodeETagMismatch  = "etag_mismatch"
	CodeUnauthorized  = "unauthorized"
	CodeInternal      = "internal"
	CodeMethodInvalid = "method_not_allowed"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Resource string `json:"resource,omitempty"`
	ID       string `json:"id,omitempty"`
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`
}

type WhoAmIResponse struct {
	Principal string `json:"principal"`
}

type EntityRequest struct {
	ID      string `json:"id"`
	Version *int   `json:"version,omitempty"`
}

type EntityResponse struct {
	Entity domain.EntityEnvelope `json:"entity"`
}

type CreateEntityRequest struct {
	Entity domain.EntityEnvelope `json:"entity"`
}

type UpdateEntityRequest struct {
	Entity       domain.EntityEnvelope `json:"entity"`
	ForceVersion bool                  `json:"forceVersion,omitempty"`
}

type ChildrenRequest struct {
	ParentID     string              `json:"parentId"`
	IncludeTypes []domain.EntityType `json:"includeTypes,omitempty"`
}

type ChildrenResponse struct {
	Children []domain.EntityHeader `json:"children"`
}

type LookupRequest struct {
	Name     string `json:"name"`
	ParentID string `json:"parentId,omitempty"`
}

type LookupResponse struct {
	ID string `json:"id"`
}

type AccessRequirementsResponse struct {
	Requirements []domain.AccessRequirement `json:"requirements"`
}

type AddAccessRequirementRequest struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

type AddAccessRequirementResponse struct {
	RequirementID int64 `json:"requirementId"`
}

type RestrictRequest struct {
	ID        string `json:"id"`
	Principal string `json:"principal"`
}

type CopyFileHandlesRequest struct {
	Requests []domain.FileHandleCopyRequest `json:"copyRequests"`
}

type CopyFileHandlesResponse struct {
	Results []domain.FileHandleCopyResult `json:"copyResults"`
}

type SetProvenanceRequest struct {
	ID       string          `json:"id"`
	Activity domain.Activity `json:"activity"`
}

type QueryRowsRequest struct {
	TableID string `json:"tableId"`
	Query   string `json:"sql"`
}

type AppendRowsRequest struct {
	TableID string        `json:"tableId"`
	Rows    domain.RowSet `json:"rowSet"`
}

type AppendRowsResponse struct {
	Count int `json:"count"`
}

type WikiRequest struct {
	OwnerID string `json:"ownerId"`
	WikiID  string `json:"wikiId,omitempty"`
}

type WikiHeadersResponse struct {
	Headers []domain.WikiHeader `json:"headers"`
}

type WikiAttachmentsResponse struct {
	FileHandles []domain.FileHandle `json:"fileHandles"`
}

type WikiPageRequest struct {
	OwnerID string          `json:"ownerId"`
	Page    domain.WikiPage `json:"page"`
}
