package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hageln/forgext/internal/bridge"
	"github.com/hageln/forgext/internal/registry"
	"github.com/hageln/forgext/internal/router"
	"github.com/hageln/forgext/internal/schema"
)

func testHandler(t *testing.T, opts ...Option) *Handler {
	t.Helper()
	reg := registry.New()
	require.NoError(t, reg.Register("issues", &schema.Fragment{Types: []schema.Type{
		&schema.ObjectType{Name: "Query", IsExtension: true, Fields: []*schema.FieldDefinition{
			{Name: "getIssue", Type: schema.Named("Issue"), Arguments: []*schema.InputValueDefinition{
				{Name: "id", Type: schema.NonNull(schema.Named("ID"))},
			}},
		}},
		&schema.ObjectType{Name: "Issue", Fields: []*schema.FieldDefinition{
			{Name: "id", Type: schema.NonNull(schema.Named("ID"))},
			{Name: "title", Type: schema.Named("String")},
		}},
	}}))
	require.NoError(t, reg.Freeze())

	inst := bridge.NewInstance("issues", &bridge.MockGuest{
		ResolveFieldFn: func(field string, argsJSON []byte) ([]byte, error) {
			return []byte(`{"id":"5","title":"crash on push"}`), nil
		},
	}, nil)
	rt := router.New(reg, map[string]*bridge.Instance{"issues": inst}, 0)
	return New(reg, rt, opts...)
}

func TestSchemaEndpoint(t *testing.T) {
	h := testHandler(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/graphql/schema", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "application/graphql")
	body := rec.Body.String()
	require.Contains(t, body, "extend type Query")
	require.Contains(t, body, "getIssue(id: ID!): Issue")
	require.Contains(t, body, "type Issue")
}

func TestOwnershipEndpoint(t *testing.T) {
	h := testHandler(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/ownership", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var rep registry.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	require.Equal(t, "issues", rep.Types["Issue"])
	require.Len(t, rep.RootFields, 1)
	require.Equal(t, "getIssue", rep.RootFields[0].Field)
}

func TestResolveEndpoint(t *testing.T) {
	h := testHandler(t, WithDebug(true))
	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"type":"Query","field":"getIssue","args":{"id":"5"}}`)
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/debug/resolve", body))

	require.Equal(t, http.StatusOK, rec.Code)
	var res struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.JSONEq(t, `{"id":"5","title":"crash on push"}`, string(res.Data))
}

func TestResolveEndpointUnknownField(t *testing.T) {
	h := testHandler(t, WithDebug(true))
	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"type":"Query","field":"noSuchField"}`)
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/debug/resolve", body))

	require.Equal(t, http.StatusNotFound, rec.Code)
	var res struct {
		Error struct {
			Kind string `json:"kind"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Equal(t, "UnknownField", res.Error.Kind)
}

func TestResolveEndpointDisabledByDefault(t *testing.T) {
	h := testHandler(t)
	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"type":"Query","field":"getIssue"}`)
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/debug/resolve", body))

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthz(t *testing.T) {
	h := testHandler(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var res healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Equal(t, "ok", res.Status)
	require.Equal(t, []string{"issues"}, res.Extensions)
}
