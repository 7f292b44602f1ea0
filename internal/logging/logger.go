package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"travelbooking/internal/config"

	"github.com/rs/zerolog"
)

// New builds the process logger. Empty fields fall back to JSON at info level on stdout.
func New(cfg config.LoggingConfig, app config.AppConfig) (*zerolog.Logger, io.Closer, error) {
	output, closer, err := openOutput(cfg)
	if err != nil {
		return nil, nil, err
	}

	if strings.EqualFold(strings.TrimSpace(cfg.Format), "console") {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	name := app.Name
	if name == "" {
		name = "travelbooking"
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	base := zerolog.New(output).
		Level(parseLevel(cfg.Level)).
		With().
		Timestamp().
		Str("app", name).
		Str("env", app.Environment).
		Str("version", app.Version).
		Logger()

	return &base, closer, nil
}

// Component returns a child logger tagged with the component name.
func Component(parent *zerolog.Logger, name string) *zerolog.Logger {
	l := parent.With().Str("component", name).Logger()
	return &l
}

func parseLevel(raw string) zerolog.Level {
	if parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(raw))); err == nil && raw != "" {
		return parsed
	}
	return zerolog.InfoLevel
}

func openOutput(cfg config.LoggingConfig) (io.Writer, io.Closer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Output)) {
	case "stderr":
		return os.Stderr, nil, nil
	case "file":
		if cfg.FilePath == "" {
			return nil, nil, fmt.Errorf("logging.output=file requires logging.file_path")
		}
		file, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		return file, file, nil
	default:
		return os.Stdout, nil, nil
	}
}
