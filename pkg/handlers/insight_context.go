package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/config"
	"github.com/ekaya-inc/ekaya-insight/pkg/services"
)

// InsightContextRequest is the body of POST /api/projects/{pid}/insight-context.
type InsightContextRequest struct {
	DatasourceIDs    []string          `json:"datasource_ids"`
	MaxRowsPerTable  int               `json:"max_rows_per_table,omitempty"`
	TableNameMapping map[string]string `json:"table_name_mapping,omitempty"`
}

// InsightContextHandler exposes context assembly and single-source profiling.
type InsightContextHandler struct {
	insightService services.InsightContextService
	maxRows        int
	logger         *zap.Logger
}

// NewInsightContextHandler creates a new insight context handler.
func NewInsightContextHandler(insightService services.InsightContextService, cfg config.SamplingConfig, logger *zap.Logger) *InsightContextHandler {
	return &InsightContextHandler{
		insightService: insightService,
		maxRows:        cfg.MaxRowsPerTable,
		logger:         logger,
	}
}

// RegisterRoutes registers the insight context routes on the given mux.
func (h *InsightContextHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/projects/{pid}/insight-context", h.BuildContext)
	mux.HandleFunc("GET /api/projects/{pid}/datasources/{dsid}/profile", h.ProfileDatasource)
}

// BuildContext handles POST /api/projects/{pid}/insight-context.
// Responds with {context, markdown}, or the bare markdown when the client
// accepts text/markdown.
func (h *InsightContextHandler) BuildContext(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}

	var req InsightContextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	if len(req.DatasourceIDs) == 0 {
		writeError(w, h.logger, http.StatusBadRequest, "missing_datasource_ids", "At least one datasource ID is required")
		return
	}

	ids := make([]uuid.UUID, 0, len(req.DatasourceIDs))
	for _, raw := range req.DatasourceIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, h.logger, http.StatusBadRequest, "invalid_datasource_id", "Invalid datasource ID format: "+raw)
			return
		}
		ids = append(ids, id)
	}

	result := h.insightService.BuildInsightContext(r.Context(), projectID, ids, req.MaxRowsPerTable, req.TableNameMapping)

	if strings.Contains(r.Header.Get("Accept"), "text/markdown") {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(result.Markdown)); err != nil {
			h.logger.Error("Failed to write markdown response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ProfileDatasource handles GET /api/projects/{pid}/datasources/{dsid}/profile.
// A source that cannot be reached or times out is still a 200 with
// connection_status=failed.
func (h *InsightContextHandler) ProfileDatasource(w http.ResponseWriter, r *http.Request) {
	projectID, datasourceID, ok := ParseProjectAndDatasourceIDs(w, r, h.logger)
	if !ok {
		return
	}

	maxRows, ok := ParseOptionalInt(w, r, "max_rows", h.maxRows, h.logger)
	if !ok {
		return
	}
	if maxRows <= 0 || maxRows > h.maxRows {
		maxRows = h.maxRows
	}

	profile := h.insightService.ProfileDataSource(r.Context(), projectID, datasourceID, maxRows)

	response := ApiResponse{Success: profile.Succeeded(), Data: profile}
	if !profile.Succeeded() {
		response.Error = "datasource_unavailable"
		response.Message = profile.ErrorMessage
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
