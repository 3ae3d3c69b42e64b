package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/inovacc/recstore/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	t  *testing.T
	db *engine.DB
	ts *httptest.Server
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := engine.Open(filepath.Join(t.TempDir(), "server.bolt"))
	require.NoError(t, err)

	require.NoError(t, db.CreateCollection(engine.CollectionSchema{
		Name:    "users",
		KeyPath: engine.Path("id"),
		Indexes: []engine.IndexSchema{{Name: "by_name", KeyPath: engine.Path("name")}},
	}))

	ts := httptest.NewServer(New(db))

	t.Cleanup(func() {
		ts.Close()
		_ = db.Close()
	})

	return &testServer{t: t, db: db, ts: ts}
}

func (s *testServer) do(method, path, body string) (int, APIResponse) {
	s.t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, s.ts.URL+path, r)
	require.NoError(s.t, err)

	resp, err := s.ts.Client().Do(req)
	require.NoError(s.t, err)
	defer func() { _ = resp.Body.Close() }()

	var out APIResponse
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(s.t, json.NewDecoder(resp.Body).Decode(&out))
	}

	return resp.StatusCode, out
}

func (s *testServer) ids(path string) []any {
	s.t.Helper()

	status, resp := s.do(http.MethodGet, path, "")
	require.Equal(s.t, http.StatusOK, status, resp.Error)

	records, ok := resp.Data.([]any)
	require.True(s.t, ok, "data is %T", resp.Data)

	ids := make([]any, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.(map[string]any)["id"])
	}

	return ids
}

func TestServer_Scenario(t *testing.T) {
	s := setupTestServer(t)

	status, _ := s.do(http.MethodPost, "/api/collections/users/records", `{"id": "1", "name": "Alice"}`)
	assert.Equal(t, http.StatusCreated, status)

	status, resp := s.do(http.MethodPost, "/api/collections/users/records", `{"id": "1", "name": "Alice"}`)
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, resp.Error, "ConstraintError")

	status, _ = s.do(http.MethodPut, "/api/collections/users/records?durability=strict", `{"id": "1", "name": "Zed"}`)
	assert.Equal(t, http.StatusOK, status)

	status, _ = s.do(http.MethodPost, "/api/collections/users/records", `{"id": "2", "name": "Bob"}`)
	assert.Equal(t, http.StatusCreated, status)

	assert.Equal(t, []any{"1", "2"}, s.ids("/api/collections/users/records"))
	assert.Equal(t, []any{"2", "1"}, s.ids("/api/collections/users/records?index=by_name"))
	assert.Equal(t, []any{"1", "2"}, s.ids("/api/collections/users/records?index=missing"))

	status, _ = s.do(http.MethodDelete, `/api/collections/users/records/%221%22`, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{"2"}, s.ids("/api/collections/users/records"))

	status, _ = s.do(http.MethodPost, "/api/collections/users/clear", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Empty(t, s.ids("/api/collections/users/records"))
}

func TestServer_DeleteRange(t *testing.T) {
	s := setupTestServer(t)

	for _, id := range []string{"a", "b", "c", "d"} {
		status, _ := s.do(http.MethodPost, "/api/collections/users/records", `{"id": "`+id+`"}`)
		require.Equal(t, http.StatusCreated, status)
	}

	status, _ := s.do(http.MethodDelete, `/api/collections/users/records?lower=%22b%22&upper=%22d%22&upper_open=true`, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{"a", "d"}, s.ids("/api/collections/users/records"))

	status, _ = s.do(http.MethodDelete, "/api/collections/users/records", "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.do(http.MethodDelete, "/api/collections/users/records?lower=a&lower_open=maybe", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestServer_DeleteKeyEscaping(t *testing.T) {
	s := setupTestServer(t)

	for _, id := range []string{"a%41", "aA", "a/b", "c"} {
		body, err := json.Marshal(map[string]string{"id": id})
		require.NoError(t, err)

		status, _ := s.do(http.MethodPost, "/api/collections/users/records", string(body))
		require.Equal(t, http.StatusCreated, status)
	}

	tests := []struct {
		name string
		path string
		want []any
	}{
		{"percent in key", "a%2541", []any{"a/b", "aA", "c"}},
		{"escaped slash", "a%2Fb", []any{"aA", "c"}},
		{"plain key", "c", []any{"aA"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := s.do(http.MethodDelete, "/api/collections/users/records/"+tt.path, "")
			require.Equal(t, http.StatusOK, status, resp.Error)
			assert.Equal(t, tt.want, s.ids("/api/collections/users/records"))
		})
	}
}

func TestServer_Errors(t *testing.T) {
	s := setupTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknown collection", http.MethodGet, "/api/collections/nope/records", "", http.StatusNotFound},
		{"empty index hint", http.MethodGet, "/api/collections/users/records?index=", "", http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/api/collections/users/records", `{"id":`, http.StatusBadRequest},
		{"payload not an object", http.MethodPost, "/api/collections/users/records", `[1]`, http.StatusBadRequest},
		{"missing key field", http.MethodPut, "/api/collections/users/records", `{"name": "x"}`, http.StatusBadRequest},
		{"keyless write", http.MethodPost, "/api/collections/users/records", `{"name": "x"}`, http.StatusBadRequest},
		{"bad durability", http.MethodPost, "/api/collections/users/clear?durability=eventual", "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := s.do(tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, status)
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestServer_HealthMetricsCollections(t *testing.T) {
	s := setupTestServer(t)

	status, resp := s.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, resp.Success)

	status, resp = s.do(http.MethodGet, "/api/collections", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{"users"}, resp.Data)

	s.ids("/api/collections/users/records")

	res, err := s.ts.Client().Get(s.ts.URL + "/metrics")
	require.NoError(t, err)
	defer func() { _ = res.Body.Close() }()

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `recstore_actions_total{action="read",outcome="ok"} 1`)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, statusFor(engine.ErrConstraint))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(engine.ErrInvalidState))
	assert.Equal(t, http.StatusInternalServerError, statusFor(io.EOF))
}
