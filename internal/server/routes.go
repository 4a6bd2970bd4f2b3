package server

import (
	"context"
	"net/http"
	"time"

	"github.com/lherron/syncp/internal/api"
	"github.com/lherron/syncp/internal/domain"
	"github.com/lherron/syncp/internal/store"
)

type empty struct{}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc(api.RouteHealth, s.withAuth(s.handleHealth))
	s.mux.HandleFunc(api.RouteWhoAmI, handle(s, whoAmI))

	s.mux.HandleFunc(api.RouteEntityGet, handle(s, getEntity))
	s.mux.HandleFunc(api.RouteEntityCreate, handle(s, createEntity))
	s.mux.HandleFunc(api.RouteEntityUpdate, handle(s, updateEntity))
	s.mux.HandleFunc(api.RouteEntityChildren, handle(s, listChildren))
	s.mux.HandleFunc(api.RouteEntityLookup, handle(s, lookupEntity))
	s.mux.HandleFunc(api.RouteEntityPermissions, handle(s, getPermissions))
	s.mux.HandleFunc(api.RouteEntityAccessReqs, handle(s, getAccessRequirements))
	s.mux.HandleFunc(api.RouteEntityAccessReqsAdd, handle(s, addAccessRequirement))
	s.mux.HandleFunc(api.RouteEntityRestrict, handle(s, restrict))
	s.mux.HandleFunc(api.RouteEntityFileHandle, handle(s, getFileHandle))

	s.mux.HandleFunc(api.RouteFileHandlesCopy, handle(s, copyFileHandles))
	s.mux.HandleFunc(api.RouteFileHandlesCreate, handle(s, createFileHandle))

	s.mux.HandleFunc(api.RouteProvenanceGet, handle(s, getProvenance))
	s.mux.HandleFunc(api.RouteProvenanceSet, handle(s, setProvenance))

	s.mux.HandleFunc(api.RouteTablesQuery, handle(s, queryRows))
	s.mux.HandleFunc(api.RouteTablesAppend, handle(s, appendRows))

	s.mux.HandleFunc(api.RouteWikiHeaders, handle(s, wikiHeaders))
	s.mux.HandleFunc(api.RouteWikiGet, handle(s, wikiGet))
	s.mux.HandleFunc(api.RouteWikiAttachments, handle(s, wikiAttachments))
	s.mux.HandleFunc(api.RouteWikiCreate, handle(s, wikiCreate))
	s.mux.HandleFunc(api.RouteWikiUpdate, handle(s, wikiUpdate))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSON(w, http.StatusMethodNotAllowed, api.ErrorResponse{Code: api.CodeMethodInvalid, Message: "method not allowed"})
		return
	}
	if err := s.db.PingContext(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":   true,
		"time": time.Now().UTC().Format(time.RFC3339),
	})
}

func whoAmI(ctx context.Context, st *store.Store, _ *empty) (interface{}, error) {
	principal, err := st.WhoAmI(ctx)
	if err != nil {
		return nil, err
	}
	return api.WhoAmIResponse{Principal: principal}, nil
}

func requireID(id string) error {
	if id == "" {
		return domain.NewValueError("id required")
	}
	return nil
}

func getEntity(ctx context.Context, st *store.Store, req *api.EntityRequest) (interface{}, error) {
	if err := requireID(req.ID); err != nil {
		return nil, err
	}
	e, err := st.GetEntity(ctx, req.ID, req.Version)
	if err != nil {
		return nil, err
	}
	return api.EntityResponse{Entity: domain.EntityEnvelope{Entity: e}}, nil
}

func createEntity(ctx context.Context, st *store.Store, req *api.CreateEntityRequest) (interface{}, error) {
	if req.Entity.Entity == nil {
		return nil, domain.NewValueError("entity required")
	}
	e, err := st.CreateEntity(ctx, req.Entity.Entity)
	if err != nil {
		return nil, err
	}
	return api.EntityResponse{Entity: domain.EntityEnvelope{Entity: e}}, nil
}

func updateEntity(ctx context.Context, st *store.Store, req *api.UpdateEntityRequest) (interface{}, error) {
	if req.Entity.Entity == nil {
		return nil, domain.NewValueError("entity required")
	}
	e, err := st.UpdateEntity(ctx, req.Entity.Entity, req.ForceVersion)
	if err != nil {
		return nil, err
	}
	return api.EntityResponse{Entity: domain.EntityEnvelope{Entity: e}}, nil
}

func listChildren(ctx context.Context, st *store.Store, req *api.ChildrenRequest) (interface{}, error) {
	if err := requireID(req.ParentID); err != nil {
		return nil, err
	}
	children, err := st.ListChildren(ctx, req.ParentID, req.IncludeTypes)
	if err != nil {
		return nil, err
	}
	if children == nil {
		children = []domain.EntityHeader{}
	}
	return api.ChildrenResponse{Children: children}, nil
}

func lookupEntity(ctx context.Context, st *store.Store, req *api.LookupRequest) (interface{}, error) {
	entityID, err := st.FindEntityID(ctx, req.Name, req.ParentID)
	if err != nil {
		return nil, err
	}
	return api.LookupResponse{ID: entityID}, nil
}

func getPermissions(ctx context.Context, st *store.Store, req *api.EntityRequest) (interface{}, error) {
	if err := requireID(req.ID); err != nil {
		return nil, err
	}
	return st.GetPermissions(ctx, req.ID)
}

func getAccessRequirements(ctx context.Context, st *store.Store, req *api.EntityRequest) (interface{}, error) {
	if err := requireID(req.ID); err != nil {
		return nil, err
	}
	reqs, err := st.GetAccessRequirements(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if reqs == nil {
		reqs = []domain.AccessRequirement{}
	}
	return api.AccessRequirementsResponse{Requirements: reqs}, nil
}

func addAccessRequirement(ctx context.Context, st *store.Store, req *api.AddAccessRequirementRequest) (interface{}, error) {
	if err := requireID(req.ID); err != nil {
		return nil, err
	}
	n, err := st.AddAccessRequirement(ctx, req.ID, req.Description)
	if err != nil {
		return nil, err
	}
	return api.AddAccessRequirementResponse{RequirementID: n}, nil
}

func restrict(ctx context.Context, st *store.Store, req *api.RestrictRequest) (interface{}, error) {
	if err := requireID(req.ID); err != nil {
		return nil, err
	}
	if req.Principal == "" {
		return nil, domain.NewValueError("principal required")
	}
	if err := st.Restrict(ctx, req.ID, req.Principal); err != nil {
		return nil, err
	}
	return empty{}, nil
}

func getFileHandle(ctx context.Context, st *store.Store, req *api.EntityRequest) (interface{}, error) {
	if err := requireID(req.ID); err != nil {
		return nil, err
	}
	return st.GetFileHandle(ctx, req.ID, req.Version)
}

func copyFileHandles(ctx context.Context, st *store.Store, req *api.CopyFileHandlesRequest) (interface{}, error) {
	results, err := st.CopyFileHandles(ctx, req.Requests)
	if err != nil {
		return nil, err
	}
	return api.CopyFileHandlesResponse{Results: results}, nil
}

func createFileHandle(ctx context.Context, st *store.Store, req *domain.FileHandle) (interface{}, error) {
	return st.CreateFileHandle(ctx, req)
}

func getProvenance(ctx context.Context, st *store.Store, req *api.EntityRequest) (interface{}, error) {
	if err := requireID(req.ID); err != nil {
		return nil, err
	}
	return st.GetProvenance(ctx, req.ID, req.Version)
}

func setProvenance(ctx context.Context, st *store.Store, req *api.SetProvenanceRequest) (interface{}, error) {
	if err := requireID(req.ID); err != nil {
		return nil, err
	}
	return st.SetProvenance(ctx, req.ID, &req.Activity)
}

func queryRows(ctx context.Context, st *store.Store, req *api.QueryRowsRequest) (interface{}, error) {
	return st.QueryRows(ctx, req.TableID, req.Query)
}

func appendRows(ctx context.Context, st *store.Store, req *api.AppendRowsRequest) (interface{}, error) {
	n, err := st.AppendRows(ctx, req.TableID, &req.Rows)
	if err != nil {
		return nil, err
	}
	return api.AppendRowsResponse{Count: n}, nil
}

func wikiHeaders(ctx context.Context, st *store.Store, req *api.WikiRequest) (interface{}, error) {
	headers, err := st.GetWikiHeaders(ctx, req.OwnerID)
	if err != nil {
		return nil, err
	}
	return api.WikiHeadersResponse{Headers: headers}, nil
}

func wikiGet(ctx context.Context, st *store.Store, req *api.WikiRequest) (interface{}, error) {
	return st.GetWikiPage(ctx, req.OwnerID, req.WikiID)
}

func wikiAttachments(ctx context.Context, st *store.Store, req *api.WikiRequest) (interface{}, error) {
	handles, err := st.GetWikiAttachments(ctx, req.OwnerID, req.WikiID)
	if err != nil {
		return nil, err
	}
	return api.WikiAttachmentsResponse{FileHandles: handles}, nil
}

func wikiCreate(ctx context.Context, st *store.Store, req *api.WikiPageRequest) (interface{}, error) {
	return st.CreateWikiPage(ctx, req.OwnerID, &req.Page)
}

func wikiUpdate(ctx context.Context, st *store.Store, req *api.WikiPageRequest) (interface{}, error) {
	return st.UpdateWikiPage(ctx, req.OwnerID, &req.Page)
}
