package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/config"
	"github.com/ekaya-inc/ekaya-insight/pkg/models"
	"github.com/ekaya-inc/ekaya-insight/pkg/services"
)

type fakeInsightService struct {
	projectID uuid.UUID
	ids       []uuid.UUID
	maxRows   int
	mapping   map[string]string
	calls     int
	profiler  services.SourceProfiler
}

func (f *fakeInsightService) BuildInsightContext(_ context.Context, projectID uuid.UUID, ids []uuid.UUID, maxRows int, mapping map[string]string) *services.InsightContextResult {
	f.calls++
	f.projectID, f.ids, f.maxRows, f.mapping = projectID, ids, maxRows, mapping
	return &services.InsightContextResult{
		Context:  &models.InsightContext{ProjectID: projectID, TotalSources: len(ids)},
		Markdown: "# Data Source Context\n",
	}
}

type fakeProfiler struct {
	result  models.DataSourceContext
	maxRows int
}

func (f *fakeProfiler) ProfileSource(_ context.Context, _ uuid.UUID, id uuid.UUID, maxRows int, _ map[string]string) models.DataSourceContext {
	f.maxRows = maxRows
	f.result.DataSourceID = id
	return f.result
}

// ProfileDataSource delegates to the embedded profiler so single-source
// tests can assert on what reached it.
func (f *fakeInsightService) ProfileDataSource(ctx context.Context, projectID, id uuid.UUID, maxRows int) models.DataSourceContext {
	return f.profiler.ProfileSource(ctx, projectID, id, maxRows, nil)
}

func newInsightMux(svc *fakeInsightService, profiler *fakeProfiler) *http.ServeMux {
	svc.profiler = profiler
	mux := http.NewServeMux()
	NewInsightContextHandler(svc, config.DefaultSamplingConfig(), zap.NewNop()).RegisterRoutes(mux)
	return mux
}

func postContext(t *testing.T, mux http.Handler, path string, body any, accept string) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestInsightContextHandler_BuildContext(t *testing.T) {
	svc := &fakeInsightService{}
	mux := newInsightMux(svc, &fakeProfiler{})
	projectID := uuid.New()
	a, b := uuid.New(), uuid.New()

	rec := postContext(t, mux, "/api/projects/"+projectID.String()+"/insight-context", InsightContextRequest{
		DatasourceIDs:    []string{a.String(), b.String()},
		MaxRowsPerTable:  25,
		TableNameMapping: map[string]string{"cust": "Customers"},
	}, "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	assert.Equal(t, projectID, svc.projectID)
	assert.Equal(t, []uuid.UUID{a, b}, svc.ids)
	assert.Equal(t, 25, svc.maxRows)
	assert.Equal(t, "Customers", svc.mapping["cust"])

	var body struct {
		Context  models.InsightContext `json:"context"`
		Markdown string                `json:"markdown"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, 2, body.Context.TotalSources)
	assert.Equal(t, "# Data Source Context\n", body.Markdown)
}

func TestInsightContextHandler_BuildContext_Markdown(t *testing.T) {
	mux := newInsightMux(&fakeInsightService{}, &fakeProfiler{})

	rec := postContext(t, mux, "/api/projects/"+uuid.NewString()+"/insight-context",
		InsightContextRequest{DatasourceIDs: []string{uuid.NewString()}}, "text/markdown")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/markdown")
	assert.Equal(t, "# Data Source Context\n", rec.Body.String())
}

func TestInsightContextHandler_BuildContext_BadRequests(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		body      string
		wantError string
	}{
		{"invalid project", "/api/projects/nope/insight-context", `{"datasource_ids":["` + uuid.NewString() + `"]}`, "invalid_project_id"},
		{"malformed body", "/api/projects/" + uuid.NewString() + "/insight-context", `{`, "invalid_request"},
		{"no ids", "/api/projects/" + uuid.NewString() + "/insight-context", `{"datasource_ids":[]}`, "missing_datasource_ids"},
		{"bad id", "/api/projects/" + uuid.NewString() + "/insight-context", `{"datasource_ids":["x"]}`, "invalid_datasource_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeInsightService{}
			mux := newInsightMux(svc, &fakeProfiler{})

			req := httptest.NewRequest(http.MethodPost, tt.path, bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var resp map[string]string
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.wantError, resp["error"])
			assert.Zero(t, svc.calls)
		})
	}
}

func TestInsightContextHandler_ProfileDatasource(t *testing.T) {
	profiler := &fakeProfiler{result: models.DataSourceContext{
		DataSourceName:   "warehouse",
		ConnectionStatus: models.ConnectionStatusSuccess,
		Schemas:          []models.SchemaSample{},
	}}
	mux := newInsightMux(&fakeInsightService{}, profiler)
	dsid := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/api/projects/"+uuid.NewString()+"/datasources/"+dsid.String()+"/profile?max_rows=20", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 20, profiler.maxRows)

	var resp struct {
		Success bool                     `json:"success"`
		Data    models.DataSourceContext `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, dsid, resp.Data.DataSourceID)
	assert.Equal(t, "warehouse", resp.Data.DataSourceName)
}

func TestInsightContextHandler_ProfileDatasource_MaxRowsClamped(t *testing.T) {
	for _, q := range []string{"", "?max_rows=0", "?max_rows=100000"} {
		profiler := &fakeProfiler{result: models.DataSourceContext{ConnectionStatus: models.ConnectionStatusSuccess}}
		mux := newInsightMux(&fakeInsightService{}, profiler)

		req := httptest.NewRequest(http.MethodGet, "/api/projects/"+uuid.NewString()+"/datasources/"+uuid.NewString()+"/profile"+q, nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, q)
		assert.Equal(t, 100, profiler.maxRows, q)
	}
}

func TestInsightContextHandler_ProfileDatasource_TimesOut(t *testing.T) {
	profiler := newHangingProfiler()
	t.Cleanup(profiler.release)
	cfg := config.DefaultSamplingConfig()
	cfg.SamplingTimeoutMs = 20
	svc := services.NewInsightContextService(profiler, cfg, zap.NewNop())
	mux := http.NewServeMux()
	NewInsightContextHandler(svc, cfg, zap.NewNop()).RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/api/projects/"+uuid.NewString()+"/datasources/"+uuid.NewString()+"/profile", nil)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		mux.ServeHTTP(rec, req)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("profile request was not bounded by the sampling timeout")
	}

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ApiResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "datasource_unavailable", resp.Error)
	assert.Equal(t, services.SamplingTimeoutMessage, resp.Message)
}

// hangingProfiler blocks until released, ignoring its context.
type hangingProfiler struct {
	ch   chan struct{}
	once sync.Once
}

func newHangingProfiler() *hangingProfiler { return &hangingProfiler{ch: make(chan struct{})} }

func (p *hangingProfiler) release() { p.once.Do(func() { close(p.ch) }) }

func (p *hangingProfiler) ProfileSource(context.Context, uuid.UUID, uuid.UUID, int, map[string]string) models.DataSourceContext {
	<-p.ch
	return models.DataSourceContext{ConnectionStatus: models.ConnectionStatusSuccess}
}

func TestInsightContextHandler_ProfileDatasource_Unavailable(t *testing.T) {
	profiler := &fakeProfiler{result: models.FailedDataSourceContext(uuid.Nil, "billing", "mysql", "dial tcp: connection refused")}
	mux := newInsightMux(&fakeInsightService{}, profiler)

	req := httptest.NewRequest(http.MethodGet, "/api/projects/"+uuid.NewString()+"/datasources/"+uuid.NewString()+"/profile", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ApiResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "datasource_unavailable", resp.Error)
	assert.Equal(t, "dial tcp: connection refused", resp.Message)
}
