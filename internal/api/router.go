package api

import (
	"net/http"

	"github.com/triage-ai/toolgate/internal/audit"
	"github.com/triage-ai/toolgate/internal/auth"
	"github.com/triage-ai/toolgate/internal/gateway"
	"github.com/triage-ai/toolgate/internal/registry"
	"github.com/triage-ai/toolgate/internal/schema"
	"go.uber.org/zap"
)

// Dependencies holds shared state injected into all HTTP handlers.
type Dependencies struct {
	Registry    *registry.Registry
	Dispatcher  *gateway.Dispatcher
	Synthesizer *schema.Synthesizer
	Auth        auth.Authenticator
	Writer      audit.Writer
	Logger      *zap.Logger
}

// NewRouter builds the HTTP mux with all routes wired up.
func NewRouter(deps *Dependencies) http.Handler {
	mux := http.NewServeMux()

	// Execute endpoint (auth required via Bearer tgk_ token)
	mux.HandleFunc("POST /v1/execute", deps.authMiddleware(deps.handleExecute))

	// Discovery (read-only, no auth)
	mux.HandleFunc("GET /v1/tools", deps.handleListTools)
	mux.HandleFunc("GET /v1/tools/{tool_name}", deps.handleGetTool)
	mux.HandleFunc("GET /v1/capabilities", deps.handleCapabilities)
	mux.HandleFunc("GET /v1/categories", deps.handleCategories)
	mux.HandleFunc("GET /v1/stats", deps.handleStats)

	// Health check
	mux.HandleFunc("GET /healthz", deps.handleHealth)

	return corsMiddleware(requestLogging(mux, deps.Logger))
}
