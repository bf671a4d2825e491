package logger

import (
    "io"
    "os"
    "strings"
    "time"

    "github.com/michaelbontyes/dev-board-v2/internal/config"
    "github.com/rs/zerolog"
    "github.com/rs/zerolog/log"
)

// New builds the process-wide logger. Dev gets a human console writer, every
// other env writes JSON lines. The result is also installed as the zerolog
// global so package-level log calls agree with it.
func New(cfg config.Config) zerolog.Logger {
    level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
    if err != nil || level == zerolog.NoLevel { level = zerolog.InfoLevel }

    var out io.Writer = os.Stdout
    if cfg.AppEnv == "dev" {
        out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
    } else {
        zerolog.TimeFieldFormat = time.RFC3339
    }
    logger := zerolog.New(out).Level(level).With().Timestamp().Str("app", "dev-board").Logger()
    log.Logger = logger
    return logger
}
