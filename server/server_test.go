package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commandcenter/aggregator/cache"
	"github.com/commandcenter/aggregator/config"
	"github.com/commandcenter/aggregator/fetch"
	"github.com/commandcenter/aggregator/query"
)

const testBaseURL = "http://provider.test"

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.ProviderBaseURL = testBaseURL
	cfg.Timeout = 5 * time.Second
	cfg.Sources = []config.Source{{SourceID: "app1", Collections: []string{"tblA"}}}

	fetcher, err := fetch.NewFetcher(cfg, fetch.NewMetrics())
	require.NoError(t, err)
	transport := httpmock.NewMockTransport()
	fetcher.WithTransport(transport)
	transport.RegisterResponder("GET", testBaseURL+"/v0/app1/tblA?pageSize=100",
		httpmock.NewJsonResponderOrPanic(200, map[string]any{
			"records": []map[string]any{
				{"id": "rec1", "fields": map[string]any{
					"Title": "Database Internals", "Year": 2019,
					"Author": "Alex Petrov", "Publication": "Beta Journal",
				}},
				{"id": "rec2", "fields": map[string]any{
					"Title": "Designing Data-Intensive Applications", "Year": 2017,
					"Author": "Martin Kleppmann",
				}},
			},
		}))

	svc, err := query.NewService(cfg, fetcher, cache.NewMemoryStore())
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })

	return New(svc).Routes()
}

func doRequest(t *testing.T, handler http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

type testEnvelope struct {
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Success bool            `json:"success"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) testEnvelope {
	t.Helper()
	var env testEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestHealthz(t *testing.T) {
	handler := newTestHandler(t)
	rec := doRequest(t, handler, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestQueryEndpoint(t *testing.T) {
	handler := newTestHandler(t)

	rec := doRequest(t, handler, http.MethodGet, "/api/query?year=2019")
	require.Equal(t, http.StatusOK, rec.Code)

	env := decodeEnvelope(t, rec)
	require.True(t, env.Success)

	var result query.Result
	require.NoError(t, json.Unmarshal(env.Data, &result))
	require.Len(t, result.Records, 1)
	assert.Equal(t, "rec1", result.Records[0].ID)
	assert.Equal(t, 1, result.Summary.TotalRecords)
}

func TestQueryEndpointRejectsBadPage(t *testing.T) {
	handler := newTestHandler(t)

	rec := doRequest(t, handler, http.MethodGet, "/api/query?page=two")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "page")
}

func TestRecordEndpoint(t *testing.T) {
	handler := newTestHandler(t)

	rec := doRequest(t, handler, http.MethodGet, "/api/records/rec2")
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Contains(t, string(env.Data), "Kleppmann")

	rec = doRequest(t, handler, http.MethodGet, "/api/records/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFacetsEndpoint(t *testing.T) {
	handler := newTestHandler(t)

	rec := doRequest(t, handler, http.MethodGet, "/api/facets")
	require.Equal(t, http.StatusOK, rec.Code)

	var facets query.Facets
	env := decodeEnvelope(t, rec)
	require.NoError(t, json.Unmarshal(env.Data, &facets))
	assert.Equal(t, []string{"2019", "2017"}, facets.Years)
}

func TestRefreshEndpoint(t *testing.T) {
	handler := newTestHandler(t)

	rec := doRequest(t, handler, http.MethodPost, "/api/refresh")
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Contains(t, string(env.Data), `"records":2`)
}

func TestExportEndpoint(t *testing.T) {
	handler := newTestHandler(t)

	rec := doRequest(t, handler, http.MethodGet, "/api/export?format=csv")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "records.csv")

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "source,collection,id"))

	rec = doRequest(t, handler, http.MethodGet, "/api/export?format=xml")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
