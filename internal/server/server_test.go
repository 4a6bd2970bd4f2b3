package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lherron/syncp/internal/api"
	"github.com/lherron/syncp/internal/testutil"
)

func setupServer(t *testing.T, opts Options) http.Handler {
	t.Helper()
	database, _ := testutil.TempDB(t)
	return New(database, opts).Handler()
}

func do(t *testing.T, h http.Handler, method, route, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, route, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) api.ErrorResponse {
	t.Helper()
	var body api.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	h := setupServer(t, Options{})

	rec := do(t, h, http.MethodGet, api.RouteHealth, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok":true`)

	rec = do(t, h, http.MethodPost, api.RouteHealth, "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAuth(t *testing.T) {
	h := setupServer(t, Options{Token: "s3cret"})

	rec := do(t, h, http.MethodPost, api.RouteWhoAmI, "{}", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, api.CodeUnauthorized, decodeError(t, rec).Code)

	rec = do(t, h, http.MethodPost, api.RouteWhoAmI, "{}", map[string]string{"Authorization": "Bearer s3cret"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPrincipal(t *testing.T) {
	h := setupServer(t, Options{Principal: "svc"})

	rec := do(t, h, http.MethodPost, api.RouteWhoAmI, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"principal":"svc"}`, rec.Body.String())

	rec = do(t, h, http.MethodPost, api.RouteWhoAmI, "", map[string]string{api.HeaderPrincipal: "carol"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"principal":"carol"}`, rec.Body.String())
}

func TestRequestErrors(t *testing.T) {
	h := setupServer(t, Options{})

	rec := do(t, h, http.MethodGet, api.RouteEntityGet, "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = do(t, h, http.MethodPost, api.RouteEntityGet, "{not json", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, api.CodeInvalid, decodeError(t, rec).Code)

	rec = do(t, h, http.MethodPost, api.RouteEntityGet, `{}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, api.RouteEntityGet, `{"id":"syn42"}`, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, api.CodeNotFound, body.Code)
	assert.Equal(t, "syn42", body.ID)

	rec = do(t, h, http.MethodPost, api.RouteEntityCreate, `{"entity":{"name":"x","concreteType":"org.example.Unknown"}}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateAndGetEntity(t *testing.T) {
	h := setupServer(t, Options{})

	rec := do(t, h, http.MethodPost, api.RouteEntityCreate,
		`{"entity":{"name":"proj","concreteType":"org.sagebionetworks.repo.model.Project"}}`,
		map[string]string{api.HeaderPrincipal: "alice"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var created api.EntityResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	entityID := created.Entity.Entity.Base().ID
	assert.Equal(t, "alice", created.Entity.Entity.Base().CreatedBy)

	rec = do(t, h, http.MethodPost, api.RouteEntityGet, `{"id":"`+entityID+`"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"concreteType":"org.sagebionetworks.repo.model.Project"`)
}
