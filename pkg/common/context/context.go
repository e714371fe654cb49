// Package context carries execution-context identity on a context.Context.
//
// Goroutines have no names, so every scheduler tags the context it hands to a
// task with the name of the execution context running it. Log sinks read the
// name back with ExecutionContext.
package context

import (
	"context"
)

// CallerName is reported for work running outside any scheduler.
const CallerName = "caller"

type executionContextKey struct{}

// WithExecutionContext returns a context tagged with the name of the execution
// context that will run work receiving it.
func WithExecutionContext(parent context.Context, name string) context.Context {
	return context.WithValue(parent, executionContextKey{}, name)
}

// ExecutionContext returns the execution context name carried by ctx, or
// CallerName when ctx was not produced by a scheduler.
func ExecutionContext(ctx context.Context) string {
	if ctx == nil {
		return CallerName
	}
	if name, ok := ctx.Value(executionContextKey{}).(string); ok && name != "" {
		return name
	}
	return CallerName
}

// OnExecutionContext reports whether ctx was tagged by a scheduler.
func OnExecutionContext(ctx context.Context) bool {
	return ExecutionContext(ctx) != CallerName
}

// IsCanceled returns true if the context has been canceled
func IsCanceled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
