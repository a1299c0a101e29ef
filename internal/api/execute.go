package api

import (
	"net/http"

	"github.com/triage-ai/toolgate/internal/gateway"
	"github.com/triage-ai/toolgate/internal/governance"
)

// handleExecute implements POST /v1/execute.
func (d *Dependencies) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req ExecuteRequest
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}
	if req.ToolName == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "tool_name is required"})
		return
	}

	client := clientFromContext(r.Context())
	caller := governance.CallerContext{
		ClientID: client.ClientID,
		ReadOnly: client.ReadOnly,
	}

	resp := d.Dispatcher.Execute(r.Context(), &gateway.ExecutionRequest{
		ToolName:  req.ToolName,
		Arguments: req.Arguments,
		DryRun:    req.DryRun,
		RequestID: req.RequestID,
	}, caller)

	// Denials and failures are structured documents, not transport errors:
	// the verdict travels in the body. Rate-limited denials additionally
	// get the conventional status so generic clients back off.
	status := http.StatusOK
	if !resp.Success && resp.RetryAfterSeconds != nil {
		status = http.StatusTooManyRequests
	}
	writeJSON(w, status, resp)
}
