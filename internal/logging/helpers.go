package logging

import "github.com/goliatone/go-bookmarks/pkg/interfaces"

// WithFields attaches structured fields when the logger supports the
// optional FieldsLogger extension, and is a no-op otherwise. The map is
// copied so the caller may reuse it.
func WithFields(logger interfaces.Logger, fields map[string]any) interfaces.Logger {
	if logger == nil || len(fields) == 0 {
		return logger
	}
	fieldsLogger, ok := logger.(interfaces.FieldsLogger)
	if !ok {
		return logger
	}
	copied := make(map[string]any, len(fields))
	for key, value := range fields {
		copied[key] = value
	}
	return fieldsLogger.WithFields(copied)
}
