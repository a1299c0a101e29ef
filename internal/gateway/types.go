package gateway

// lifecycleState tracks where a request is in its pipeline. Every request
// moves strictly forward; terminal outcomes always pass through the audit
// write before the response is returned.
type lifecycleState string

const (
	stateReceived  lifecycleState = "RECEIVED"
	stateResolved  lifecycleState = "RESOLVED"
	stateGoverned  lifecycleState = "GOVERNED"
	stateDryRun    lifecycleState = "DRY_RUN_RETURNED"
	stateInvoked   lifecycleState = "INVOKED"
	stateSucceeded lifecycleState = "SUCCEEDED"
	stateFailed    lifecycleState = "FAILED"
	stateAudited   lifecycleState = "AUDITED"
)

// ExecutionRequest is one inbound call. Created per call and discarded
// after the response.
type ExecutionRequest struct {
	ToolName  string
	Arguments map[string]any
	DryRun    bool
	RequestID string // generated when absent
	Depth     int    // 0 for external callers; >0 for tool-to-tool calls
}

// ExecutionResponse is the single structured document every call returns,
// success or failure. The core never returns an empty error.
type ExecutionResponse struct {
	Success           bool    `json:"success"`
	RequestID         string  `json:"request_id"`
	ToolName          string  `json:"tool_name"`
	Result            any     `json:"result"`
	Error             *string `json:"error"`
	RetryAfterSeconds *int    `json:"retry_after_seconds,omitempty"`
	ExecutionTimeMs   float64 `json:"execution_time_ms"`
	GovernanceLevel   string  `json:"governance_level"`
}

func errResponse(requestID, toolName, level, msg string) *ExecutionResponse {
	return &ExecutionResponse{
		Success:         false,
		RequestID:       requestID,
		ToolName:        toolName,
		Error:           &msg,
		GovernanceLevel: level,
	}
}
