package commands

import (
	"strings"

	"github.com/goliatone/go-bookmarks/internal/logging"
	"github.com/goliatone/go-bookmarks/pkg/interfaces"
)

// CommandLogger returns a logger scoped under bookmarks.commands.<module>
// with fields that let hosts filter executions per module.
func CommandLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	name := strings.TrimSpace(module)
	if name == "" {
		name = "core"
	}
	return logging.WithFields(
		logging.ModuleLogger(provider, "bookmarks.commands."+name),
		map[string]any{
			"component":      "command",
			"command_module": name,
		},
	)
}
