package handlers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ParseProjectID extracts and validates the project ID from the request path.
// Returns the parsed UUID and true on success, or uuid.Nil and false on error
// (after writing an error response).
// Expects path parameter: pid
func ParseProjectID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "pid", "invalid_project_id", "Invalid project ID format", logger)
}

// ParseDatasourceID extracts and validates the datasource ID from the request path.
// Expects path parameter: dsid
func ParseDatasourceID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "dsid", "invalid_datasource_id", "Invalid datasource ID format", logger)
}

// ParseProjectAndDatasourceIDs extracts and validates both project and datasource IDs.
// Expects path parameters: pid, dsid
func ParseProjectAndDatasourceIDs(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, uuid.UUID, bool) {
	projectID, ok := ParseProjectID(w, r, logger)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}

	datasourceID, ok := ParseDatasourceID(w, r, logger)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}

	return projectID, datasourceID, true
}

// ParseOptionalInt reads an integer query parameter. A missing parameter
// yields def; a malformed one writes a 400 and returns false.
func ParseOptionalInt(w http.ResponseWriter, r *http.Request, name string, def int, logger *zap.Logger) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, logger, http.StatusBadRequest, "invalid_"+name, "Query parameter "+name+" must be an integer")
		return 0, false
	}
	return n, true
}

// parseUUID is the internal helper that does the actual parsing work.
func parseUUID(w http.ResponseWriter, r *http.Request, pathParam, errorCode, errorMessage string, logger *zap.Logger) (uuid.UUID, bool) {
	idStr := r.PathValue(pathParam)
	id, err := uuid.Parse(idStr)
	if err != nil {
		writeError(w, logger, http.StatusBadRequest, errorCode, errorMessage)
		return uuid.Nil, false
	}
	return id, true
}
