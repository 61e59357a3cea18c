package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/mcp"
)

// MCPHandler handles MCP protocol requests over HTTP.
type MCPHandler struct {
	httpServer http.Handler
	logger     *zap.Logger
}

// NewMCPHandler creates a new MCP handler from an MCP server.
func NewMCPHandler(mcpServer *mcp.Server, logger *zap.Logger) *MCPHandler {
	return newMCPHandler(mcpServer.NewStreamableHTTPServer(), logger)
}

func newMCPHandler(httpServer http.Handler, logger *zap.Logger) *MCPHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MCPHandler{httpServer: httpServer, logger: logger}
}

// RegisterRoutes registers the project-scoped MCP endpoint.
// Route: /mcp/{pid}; tools run against the project in the path.
func (h *MCPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/mcp/{pid}", h.requirePOST(h.withProject(h.httpServer)))
}

// withProject puts the path project ID on the request context for tools.
func (h *MCPHandler) withProject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		projectID, ok := ParseProjectID(w, r, h.logger)
		if !ok {
			return
		}
		next.ServeHTTP(w, r.WithContext(mcp.WithProjectID(r.Context(), projectID)))
	})
}

// requirePOST returns 405 Method Not Allowed for non-POST requests.
// MCP over HTTP Streaming requires POST for JSON-RPC requests.
func (h *MCPHandler) requirePOST(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", "POST")
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		next.ServeHTTP(w, r)
	})
}
