package gateway

import (
	"context"

	"github.com/triage-ai/toolgate/internal/governance"
)

// Collaborator is the contract every wrapped external API/CLI implements:
// a pure invocation that may fail. Collaborators perform no governance or
// rate limiting themselves and must tolerate cancellation through ctx —
// the dispatcher imposes the timeout from outside.
type Collaborator interface {
	Invoke(ctx context.Context, args map[string]any) (any, error)
}

// CollaboratorFunc adapts a plain function to the Collaborator interface.
type CollaboratorFunc func(ctx context.Context, args map[string]any) (any, error)

func (f CollaboratorFunc) Invoke(ctx context.Context, args map[string]any) (any, error) {
	return f(ctx, args)
}

// Invoker lets a collaborator issue a nested tool call through the same
// dispatcher, so the inner call is re-governed and re-audited like any
// external request. The dispatcher tracks call depth through the context;
// nested requests inherit depth automatically.
type Invoker interface {
	Execute(ctx context.Context, req *ExecutionRequest, caller governance.CallerContext) *ExecutionResponse
}

type contextKey int

const (
	invokerCtxKey contextKey = iota
	depthCtxKey
)

// WithInvoker returns a context carrying inv for nested tool calls.
func WithInvoker(ctx context.Context, inv Invoker) context.Context {
	return context.WithValue(ctx, invokerCtxKey, inv)
}

// InvokerFromContext extracts the dispatcher handle placed by WithInvoker.
func InvokerFromContext(ctx context.Context) (Invoker, bool) {
	inv, ok := ctx.Value(invokerCtxKey).(Invoker)
	return inv, ok
}

func withDepth(ctx context.Context, depth int) context.Context {
	return context.WithValue(ctx, depthCtxKey, depth)
}

func depthFromContext(ctx context.Context) (int, bool) {
	d, ok := ctx.Value(depthCtxKey).(int)
	return d, ok
}
