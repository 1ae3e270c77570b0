package internal

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetupLogging sends logs to stderr and to a per-run file under
// ~/.medindex/logs. The returned func closes the file.
func SetupLogging(subcommand string, verbose bool) (func(), error) {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	log.Logger = zerolog.New(console).With().Timestamp().Logger()

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return func() {}, err
	}
	logDir := filepath.Join(homeDir, ".medindex", "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return func() {}, err
	}

	timestamp := time.Now().Format("20060102-150405")
	logPath := filepath.Join(logDir, fmt.Sprintf("medindex-%s-%s.log", subcommand, timestamp))
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return func() {}, err
	}

	var out io.Writer = zerolog.MultiLevelWriter(console, logFile)
	log.Logger = zerolog.New(out).With().Timestamp().Str("cmd", subcommand).Logger()
	log.Debug().Str("path", logPath).Msg("log file")
	return func() { logFile.Close() }, nil
}
