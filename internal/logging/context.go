package logging

import "context"

type contextKey struct{}

var fieldsKey contextKey

// ContextWithFields annotates ctx with structured fields that loggers
// merge into every entry emitted under that context. Later annotations
// win on key collisions with earlier ones.
func ContextWithFields(ctx context.Context, fields map[string]any) context.Context {
	if ctx == nil || len(fields) == 0 {
		return ctx
	}
	merged := cloneFields(ContextFields(ctx), len(fields))
	for key, value := range fields {
		merged[key] = value
	}
	return context.WithValue(ctx, fieldsKey, merged)
}

// ContextFields returns the logging fields carried by ctx, or nil. The
// result is a fresh map that the caller may mutate.
func ContextFields(ctx context.Context) map[string]any {
	if ctx == nil {
		return nil
	}
	fields, ok := ctx.Value(fieldsKey).(map[string]any)
	if !ok || len(fields) == 0 {
		return nil
	}
	return cloneFields(fields, 0)
}

func cloneFields(fields map[string]any, extra int) map[string]any {
	cloned := make(map[string]any, len(fields)+extra)
	for key, value := range fields {
		cloned[key] = value
	}
	return cloned
}
