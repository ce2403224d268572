package admin

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/setfield/internal/setfield"
	"github.com/roach88/setfield/internal/store"
)

func newTestServer(t *testing.T) (*httptest.Server, *store.Store) {
	t.Helper()
	s := createTestStore(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(NewServer(s, WithLogger(logger)).Handler())
	t.Cleanup(srv.Close)
	return srv, s
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[map[string]any](t, resp)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "sqlite", body["driver"])

	id, err := uuid.Parse(resp.Header.Get(RequestIDHeader))
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
}

func TestRequestID_Propagated(t *testing.T) {
	srv, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "abc")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "abc", resp.Header.Get(RequestIDHeader))
}

func TestModels(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/api/models/", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	models := decode[[]ModelResponse](t, resp)
	require.Len(t, models, 1)
	assert.Equal(t, testModel, models[0].Label)
	assert.Equal(t, "tests_testmodel", models[0].Table)
	require.Len(t, models[0].Fields, 1)
	assert.Equal(t, testOptions, models[0].Fields[0].Options)
}

func TestCreateAndGet(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/api/models/tests.testmodel/records/",
		`{"fields": {"tags": ["NANA", "TOMTOM"]}}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	created := decode[RecordResponse](t, resp)
	assert.NotZero(t, created.PK)
	assert.True(t, created.Fields["tags"].Equal(setfield.NewSet("NANA", "TOMTOM")))
	assert.Contains(t, created.Display["tags"], ">NANA</span><span")

	resp = do(t, http.MethodGet, srv.URL+"/api/models/tests.testmodel/records/1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[RecordResponse](t, resp)
	assert.Equal(t, created.PK, got.PK)
}

func TestCreate_InvalidOption(t *testing.T) {
	srv, s := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/api/models/tests.testmodel/records/",
		`{"fields": {"tags": ["???", "TOMTOM"]}}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decode[map[string]string](t, resp)
	assert.Contains(t, body["error"], "not a valid choice")
	assert.NotEmpty(t, body["request_id"])

	records, err := s.All(t.Context(), testModel)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestUpdateAndDelete(t *testing.T) {
	srv, s := newTestServer(t)
	ids := seed(t, s, []string{"TOMTOM"})
	url := srv.URL + "/api/models/tests.testmodel/records/"

	resp := do(t, http.MethodPut, url+"1", `{"fields": {"tags": ["BOBO"]}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[RecordResponse](t, resp)
	assert.True(t, updated.Fields["tags"].Equal(setfield.NewSet("BOBO")))

	resp = do(t, http.MethodDelete, url+"1", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	_, err := s.Get(t.Context(), testModel, ids[0])
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestErrorStatus(t *testing.T) {
	srv, s := newTestServer(t)
	seed(t, s, []string{"TOMTOM"})
	base := srv.URL + "/api/models/"

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknown model", http.MethodGet, "tests.nope/records/", "", http.StatusNotFound},
		{"missing row", http.MethodGet, "tests.testmodel/records/99", "", http.StatusNotFound},
		{"bad pk", http.MethodGet, "tests.testmodel/records/one", "", http.StatusBadRequest},
		{"unknown lookup", http.MethodGet, "tests.testmodel/records/?tags__contains=NANA", "", http.StatusBadRequest},
		{"unknown filter field", http.MethodGet, "tests.testmodel/records/?colors=red", "", http.StatusBadRequest},
		{"unknown option", http.MethodGet, "tests.testmodel/records/?tags__includes=%3F%3F%3F", "", http.StatusBadRequest},
		{"unknown body field", http.MethodPost, "tests.testmodel/records/", `{"fields": {"colors": ["red"]}}`, http.StatusBadRequest},
		{"malformed body", http.MethodPost, "tests.testmodel/records/", `{"fields":`, http.StatusBadRequest},
		{"update missing row", http.MethodPut, "tests.testmodel/records/99", `{"fields": {"tags": []}}`, http.StatusNotFound},
		{"delete missing row", http.MethodDelete, "tests.testmodel/records/99", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, tt.method, base+tt.path, tt.body)
			assert.Equal(t, tt.want, resp.StatusCode)
			assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		})
	}
}

func TestList_Includes(t *testing.T) {
	srv, s := newTestServer(t)
	ids := seed(t, s,
		[]string{"TOMTOM"},
		[]string{"NANA"},
		[]string{"TOMTOM", "NANA"},
		nil,
	)

	resp := do(t, http.MethodGet, srv.URL+"/api/models/tests.testmodel/records/?tags__includes=NANA", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	list := decode[ListResponse](t, resp)
	assert.Equal(t, testModel, list.Model)
	require.Equal(t, 2, list.Count)
	assert.Equal(t, ids[1], list.Results[0].PK)
	assert.Equal(t, ids[2], list.Results[1].PK)

	require.Len(t, list.Filters, 1)
	filter := list.Filters[0]
	assert.Equal(t, "tags__includes", filter.Parameter)
	require.Len(t, filter.Choices, 4)

	counts := map[string]uint64{}
	selected := map[string]bool{}
	for _, c := range filter.Choices {
		counts[c.Display] = c.Count
		selected[c.Display] = c.Selected
	}
	assert.Equal(t, map[string]uint64{"All": 2, "TOMTOM": 1, "NANA": 2, "BOBO": 0}, counts)
	assert.True(t, selected["NANA"])
	assert.False(t, selected["All"])
}

func TestList_IncludesTrimsValue(t *testing.T) {
	srv, s := newTestServer(t)
	ids := seed(t, s, []string{"TOMTOM"}, []string{"NANA"})

	resp := do(t, http.MethodGet, srv.URL+"/api/models/tests.testmodel/records/?tags__includes=%20NANA", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	list := decode[ListResponse](t, resp)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, ids[1], list.Results[0].PK)

	require.Len(t, list.Filters, 1)
	for _, c := range list.Filters[0].Choices {
		assert.Equal(t, c.Display == "NANA", c.Selected, c.Display)
	}
}

func TestList_MultipleSelectionIsAnd(t *testing.T) {
	srv, s := newTestServer(t)
	ids := seed(t, s, []string{"TOMTOM"}, []string{"NANA"}, []string{"TOMTOM", "NANA"})

	resp := do(t, http.MethodGet,
		srv.URL+"/api/models/tests.testmodel/records/?tags__includes=NANA&tags__includes=TOMTOM", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	list := decode[ListResponse](t, resp)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, ids[2], list.Results[0].PK)
}

func TestList_All(t *testing.T) {
	srv, s := newTestServer(t)
	seed(t, s, []string{"TOMTOM"}, nil)

	resp := do(t, http.MethodGet, srv.URL+"/api/models/tests.testmodel/records/", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	list := decode[ListResponse](t, resp)
	assert.Equal(t, 2, list.Count)
	assert.True(t, list.Filters[0].Choices[0].Selected)
	assert.Equal(t, uint64(2), list.Filters[0].Choices[0].Count)
}

func TestMetrics(t *testing.T) {
	srv, _ := newTestServer(t)

	do(t, http.MethodGet, srv.URL+"/health", "")
	do(t, http.MethodPost, srv.URL+"/api/models/tests.testmodel/records/", `{"fields": {"tags": ["???"]}}`)

	resp := do(t, http.MethodGet, srv.URL+"/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `setfield_admin_requests_total{code="200",route="health"} 1`)
	assert.Contains(t, string(body), `setfield_validation_failures_total{model="tests.testmodel"} 1`)
}

func TestWriteJSON_LogsEncodeFailure(t *testing.T) {
	var logs strings.Builder
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	srv := NewServer(createTestStore(t), WithLogger(logger))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/models/", nil)
	srv.writeJSON(rec, req, http.StatusOK, map[string]any{"bad": make(chan int)})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, logs.String(), "write response failed")
	assert.Contains(t, logs.String(), "path=/api/models/")
	assert.Contains(t, logs.String(), "unsupported type")
}
