package logging

import (
	"context"
	"strings"

	"github.com/goliatone/go-bookmarks/pkg/interfaces"
)

const (
	rootModule       = "bookmarks"
	markdownModule   = "bookmarks.markdown"
	mergeModule      = "bookmarks.merge"
	syncModule       = "bookmarks.sync"
	collectionModule = "bookmarks.collection"
	storeModule      = "bookmarks.store"
)

const (
	fieldDocumentID = "document_id"
	fieldSyncState  = "sync_state"
	fieldOperation  = "operation"
)

// ModuleLogger returns a module-scoped logger, defaulting to a no-op
// implementation when no provider is supplied. The returned logger attaches
// the module identifier as structured context so downstream entries can be
// filtered predictably.
func ModuleLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	if module == "" {
		module = rootModule
	}

	logger := NoOp()
	if provider != nil {
		if provided := provider.GetLogger(module); provided != nil {
			logger = provided
		}
	}

	if fieldsLogger, ok := logger.(interfaces.FieldsLogger); ok {
		return fieldsLogger.WithFields(map[string]any{
			"module": module,
		})
	}

	return WithFields(logger, map[string]any{
		"module": module,
	})
}

// MarkdownLogger returns the logger namespace reserved for the document codec.
func MarkdownLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, markdownModule)
}

// MergeLogger returns the logger namespace reserved for the merge engine.
func MergeLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, mergeModule)
}

// SyncLogger returns the logger namespace reserved for the sync shell.
func SyncLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, syncModule)
}

// CollectionLogger returns the logger namespace reserved for the collection service.
func CollectionLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, collectionModule)
}

// StoreLogger returns the logger namespace reserved for local persistence backends.
func StoreLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, storeModule)
}

// WithSyncContext enriches the provided logger with common sync fields such as
// the remote document id, the operation name, and the shell state. Empty
// values are ignored.
func WithSyncContext(logger interfaces.Logger, documentID, operation, state string) interfaces.Logger {
	fields := map[string]any{}
	if trimmed := strings.TrimSpace(documentID); trimmed != "" {
		fields[fieldDocumentID] = trimmed
	}
	if trimmed := strings.TrimSpace(operation); trimmed != "" {
		fields[fieldOperation] = trimmed
	}
	if trimmed := strings.TrimSpace(state); trimmed != "" {
		fields[fieldSyncState] = trimmed
	}
	return WithFields(logger, fields)
}

// NoOp returns a logger that drops every log entry. It satisfies the Logger
// contract so services can safely operate when logging is disabled.
func NoOp() interfaces.Logger {
	return noopLogger{}
}

type noopLogger struct{}

var _ interfaces.Logger = noopLogger{}

func (noopLogger) Trace(string, ...any) {}
func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) Fatal(string, ...any) {}

func (n noopLogger) WithFields(map[string]any) interfaces.Logger {
	return n
}

func (n noopLogger) WithContext(context.Context) interfaces.Logger {
	return n
}
