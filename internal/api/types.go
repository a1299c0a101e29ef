package api

import "github.com/triage-ai/toolgate/internal/gateway"

// --- POST /v1/execute ---

// ExecuteRequest is the JSON body for POST /v1/execute. The caller
// credential travels in the Authorization header and the read-only flag in
// X-Read-Only; both are out-of-band of the body.
type ExecuteRequest struct {
	ToolName  string         `json:"tool_name"`
	Arguments map[string]any `json:"arguments,omitempty"`
	DryRun    bool           `json:"dry_run,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

// ExecuteResponse reuses the gateway's response document verbatim.
type ExecuteResponse = gateway.ExecutionResponse

// --- Discovery ---

// ToolSummary is one entry in GET /v1/tools.
type ToolSummary struct {
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	Category       string `json:"category"`
	Classification string `json:"classification"`
	SideEffect     bool   `json:"side_effect"`
	ParameterCount int    `json:"parameter_count"`
}

// ToolListResp is the body of GET /v1/tools.
type ToolListResp struct {
	Tools []ToolSummary `json:"tools"`
	Total int           `json:"total"`
}

// CategoriesResp is the body of GET /v1/categories.
type CategoriesResp struct {
	Categories map[string]int `json:"categories"`
}

// StatsResp is the body of GET /v1/stats.
type StatsResp struct {
	ByCategory       map[string]gateway.OutcomeCounts `json:"by_category"`
	ByClassification map[string]gateway.OutcomeCounts `json:"by_classification"`
	UnknownLookups   int64                            `json:"unknown_lookups"`
	RegisteredTools  map[string]int                   `json:"registered_tools_by_category"`
}

// --- Health ---

// ComponentHealth is one sub-status in GET /healthz.
type ComponentHealth struct {
	Status string `json:"status"` // "ok" or "degraded"
	Detail string `json:"detail,omitempty"`
}

// HealthResp is the body of GET /healthz.
type HealthResp struct {
	Status   string          `json:"status"`
	Registry ComponentHealth `json:"registry"`
	Audit    ComponentHealth `json:"audit"`
}

// ErrorResp is a standard error response body.
type ErrorResp struct {
	Detail string `json:"detail"`
}
