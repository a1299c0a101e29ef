package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/triage-ai/toolgate/internal/audit"
	"github.com/triage-ai/toolgate/internal/governance"
	"github.com/triage-ai/toolgate/internal/registry"
	"go.uber.org/zap"
)

// Config tunes the dispatcher.
type Config struct {
	InvokeTimeout time.Duration // per-collaborator call; default 30s
	MaxDepth      int           // recursion cap for tool-to-tool calls; default 4
}

func (c Config) withDefaults() Config {
	if c.InvokeTimeout <= 0 {
		c.InvokeTimeout = 30 * time.Second
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = 4
	}
	return c
}

// Dispatcher orchestrates the request lifecycle: resolution, governance,
// invocation, audit, response. It never branches on tool identity — only
// on generic descriptor fields. Collaborator bindings are established once
// at startup and read-only afterwards.
type Dispatcher struct {
	registry      *registry.Registry
	policy        *governance.Policy
	writer        audit.Writer
	stats         *UsageStats
	collaborators map[string]Collaborator
	cfg           Config
	logger        *zap.Logger
}

// NewDispatcher creates a Dispatcher over the given dependencies.
func NewDispatcher(
	reg *registry.Registry,
	policy *governance.Policy,
	writer audit.Writer,
	cfg Config,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		registry:      reg,
		policy:        policy,
		writer:        writer,
		stats:         NewUsageStats(),
		collaborators: make(map[string]Collaborator),
		cfg:           cfg.withDefaults(),
		logger:        logger,
	}
}

// Bind attaches a collaborator to a registered tool. Startup-time only.
func (d *Dispatcher) Bind(name string, c Collaborator) error {
	if _, err := d.registry.Lookup(name); err != nil {
		return fmt.Errorf("Bind: %w", err)
	}
	if _, exists := d.collaborators[name]; exists {
		return fmt.Errorf("Bind: collaborator already bound for %s", name)
	}
	d.collaborators[name] = c
	return nil
}

// Stats returns the usage counters backing the discovery stats endpoint.
func (d *Dispatcher) Stats() *UsageStats {
	return d.stats
}

// Execute runs one request through the full lifecycle. Authentication has
// already happened by the time a request reaches the dispatcher; every
// terminal outcome below writes exactly one audit record before returning.
func (d *Dispatcher) Execute(ctx context.Context, req *ExecutionRequest, caller governance.CallerContext) *ExecutionResponse {
	start := time.Now()

	if req.RequestID == "" {
		req.RequestID = uuid.New().String()
	}
	// Nested calls placed through InvokerFromContext inherit the parent's
	// depth; external callers arrive at depth 0.
	if req.Depth == 0 {
		if parent, ok := depthFromContext(ctx); ok {
			req.Depth = parent + 1
		}
	}

	if req.Depth > d.cfg.MaxDepth {
		reason := fmt.Sprintf("recursion depth %d exceeds cap %d", req.Depth, d.cfg.MaxDepth)
		d.finalize(req, caller, nil, "", audit.OutcomeDenied, reason, start)
		return d.respond(req, "", errResponse(req.RequestID, req.ToolName, "", reason), start)
	}

	// RESOLVED
	desc, err := d.registry.Lookup(req.ToolName)
	if err != nil {
		d.stats.recordUnknownLookup()
		d.finalize(req, caller, nil, "", audit.OutcomeUnknownTool, err.Error(), start)
		return d.respond(req, "", errResponse(req.RequestID, req.ToolName, "", err.Error()), start)
	}

	resolved, err := desc.ResolveArguments(req.Arguments)
	if err != nil {
		level := string(desc.Classification)
		d.finalize(req, caller, desc, level, audit.OutcomeInvalidArgs, err.Error(), start)
		return d.respond(req, stateResolved, errResponse(req.RequestID, req.ToolName, level, err.Error()), start)
	}

	// GOVERNED
	decision := d.policy.Evaluate(desc, caller)
	level := string(decision.Classification)
	if !decision.Allowed {
		d.finalize(req, caller, desc, level, audit.OutcomeDenied, decision.Reason, start)
		resp := errResponse(req.RequestID, req.ToolName, level, decision.Reason)
		if decision.RetryAfterSeconds > 0 {
			retry := decision.RetryAfterSeconds
			resp.RetryAfterSeconds = &retry
		}
		return d.respond(req, stateGoverned, resp, start)
	}

	// DRY_RUN_RETURNED: governance ran, the collaborator is never touched.
	if req.DryRun {
		result := map[string]any{
			"dry_run":            true,
			"tool_name":          desc.Name,
			"classification":     level,
			"side_effect":        desc.SideEffect,
			"resolved_arguments": resolved,
		}
		d.finalize(req, caller, desc, level, audit.OutcomeDryRun, "", start)
		return d.respond(req, stateDryRun, &ExecutionResponse{
			Success:         true,
			RequestID:       req.RequestID,
			ToolName:        req.ToolName,
			Result:          result,
			GovernanceLevel: level,
		}, start)
	}

	collab, ok := d.collaborators[desc.Name]
	if !ok {
		reason := "no collaborator bound for tool " + desc.Name
		d.finalize(req, caller, desc, level, audit.OutcomeFailed, reason, start)
		return d.respond(req, stateGoverned, errResponse(req.RequestID, req.ToolName, level, reason), start)
	}

	// INVOKED. Token consumption already happened and no lock is held
	// here, so a slow collaborator cannot starve other callers.
	invokeCtx, cancel := context.WithTimeout(WithInvoker(withDepth(ctx, req.Depth), d), d.cfg.InvokeTimeout)
	defer cancel()

	result, err := d.invoke(invokeCtx, collab, resolved)
	if err != nil {
		reason := "collaborator invocation failed: " + err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			reason = fmt.Sprintf("collaborator timeout after %s", d.cfg.InvokeTimeout)
		}
		d.finalize(req, caller, desc, level, audit.OutcomeFailed, reason, start)
		return d.respond(req, stateFailed, errResponse(req.RequestID, req.ToolName, level, reason), start)
	}

	d.finalize(req, caller, desc, level, audit.OutcomeSucceeded, "", start)
	return d.respond(req, stateSucceeded, &ExecutionResponse{
		Success:         true,
		RequestID:       req.RequestID,
		ToolName:        req.ToolName,
		Result:          result,
		GovernanceLevel: level,
	}, start)
}

// invoke runs the collaborator under the bounded timeout. Panics and
// errors are captured as values; nothing propagates as a fault. The
// goroutine writes into a buffered channel so an abandoned call cannot
// leak on timeout.
func (d *Dispatcher) invoke(ctx context.Context, c Collaborator, args map[string]any) (any, error) {
	type invokeOutput struct {
		result any
		err    error
	}
	ch := make(chan invokeOutput, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- invokeOutput{err: fmt.Errorf("collaborator panic: %v", r)}
			}
		}()
		result, err := c.Invoke(ctx, args)
		ch <- invokeOutput{result: result, err: err}
	}()

	select {
	case out := <-ch:
		return out.result, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// finalize writes the single audit record for a terminal outcome and
// feeds the usage counters. Audit is fail-open: the writer never blocks
// and never fails the request.
func (d *Dispatcher) finalize(
	req *ExecutionRequest,
	caller governance.CallerContext,
	desc *registry.ToolDescriptor,
	level string,
	outcome, reason string,
	start time.Time,
) {
	record := &audit.ExecutionRecord{
		RequestID:      req.RequestID,
		Timestamp:      time.Now(),
		ClientID:       caller.ClientID,
		ToolName:       req.ToolName,
		Classification: level,
		Outcome:        outcome,
		Reason:         reason,
		DryRun:         req.DryRun,
		ReadOnly:       caller.ReadOnly,
		DurationMs:     float64(time.Since(start)) / float64(time.Millisecond),
		Depth:          int32(req.Depth),
	}
	if desc != nil {
		record.Category = desc.Category
		d.stats.record(desc.Category, desc.Classification, outcome)
	}
	d.writer.Write(record)
}

// respond stamps the total wall-clock time and logs the terminal transition.
func (d *Dispatcher) respond(req *ExecutionRequest, terminal lifecycleState, resp *ExecutionResponse, start time.Time) *ExecutionResponse {
	resp.ExecutionTimeMs = float64(time.Since(start)) / float64(time.Millisecond)
	d.logger.Debug("request responded",
		zap.String("request_id", req.RequestID),
		zap.String("tool_name", req.ToolName),
		zap.String("terminal_state", string(terminal)),
		zap.Bool("success", resp.Success),
		zap.Float64("execution_time_ms", resp.ExecutionTimeMs),
	)
	return resp
}
