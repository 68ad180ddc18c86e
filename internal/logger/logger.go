// Package logger provides the filecarver CLI's internal structured logger.
package logger

import (
	"os"
	"strings"

	"github.com/willibrandon/mtlog"
	"github.com/willibrandon/mtlog/core"
)

// Log is the package-level logger shared across the engine and CLI.
var Log core.Logger

func init() {
	Log = mtlog.New(
		mtlog.WithConsole(),
		mtlog.WithMinimumLevel(levelFromEnv("FILECARVER_LOG_LEVEL", core.InformationLevel)),
	)
}

func levelFromEnv(key string, fallback core.LogEventLevel) core.LogEventLevel {
	switch strings.ToLower(os.Getenv(key)) {
	case "verbose", "trace":
		return core.VerboseLevel
	case "debug":
		return core.DebugLevel
	case "information", "info":
		return core.InformationLevel
	case "warning", "warn":
		return core.WarningLevel
	case "error":
		return core.ErrorLevel
	case "fatal":
		return core.FatalLevel
	default:
		return fallback
	}
}
