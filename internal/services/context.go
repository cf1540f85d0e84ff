package services

import "context"

type contextKey string

const (
	runIDKey  contextKey = "run_id"
	itemKey   contextKey = "item"
	targetKey contextKey = "target"
	sourceKey contextKey = "source"
)

// WithRunID annotates context with the import run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the import run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithItem annotates context with the manifest item index.
func WithItem(ctx context.Context, index int) context.Context {
	return context.WithValue(ctx, itemKey, index)
}

// ItemFromContext extracts the manifest item index if present.
func ItemFromContext(ctx context.Context) (int, bool) {
	v, ok := ctx.Value(itemKey).(int)
	return v, ok
}

// WithTarget annotates context with the target index within its item.
func WithTarget(ctx context.Context, index int) context.Context {
	return context.WithValue(ctx, targetKey, index)
}

// TargetFromContext extracts the target index if present.
func TargetFromContext(ctx context.Context) (int, bool) {
	v, ok := ctx.Value(targetKey).(int)
	return v, ok
}

// WithSource annotates context with a source name.
func WithSource(ctx context.Context, name string) context.Context {
	if name == "" {
		return ctx
	}
	return context.WithValue(ctx, sourceKey, name)
}

// SourceFromContext returns the source name if present.
func SourceFromContext(ctx context.Context) (string, bool) {
	if str, ok := ctx.Value(sourceKey).(string); ok && str != "" {
		return str, true
	}
	return "", false
}
