package logx

import (
	"fmt"
	"io"
	"os"
	"strings"

	fcolor "github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

var (
	isTerminal           = isatty.IsTerminal(os.Stderr.Fd())
	Output     io.Writer = os.Stderr
	noColor    bool
)

func init() {
	zerolog.TimeFieldFormat = "2006-01-02 15:04:05"
	SetLogLevel(EnvStr("LLMSVC_LOG_LEVEL", "info"))
}

// New returns a component logger. Terminals get the console writer, everything
// else gets JSON lines.
func New(name string) zerolog.Logger {
	if isTerminal && Output == os.Stderr {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05", NoColor: noColor}).
			With().
			Timestamp().
			Str("component", name).
			Logger()
	}
	return zerolog.New(Output).
		With().
		Str("component", name).
		Timestamp().
		Logger()
}

// DisableColor turns off colored output for loggers created afterwards and
// for prompt and error output.
func DisableColor() {
	noColor = true
	fcolor.NoColor = true
}

// SetLogLevel sets the global level. Unknown values fall back to info.
func SetLogLevel(level string) {
	zerolog.SetGlobalLevel(ParseLevel(level))
}

func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error", "err":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Env helpers
func EnvStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	s := strings.ToLower(v)
	return s == "1" || s == "true" || s == "yes"
}

func EnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var n int
		_, err := fmt.Sscanf(v, "%d", &n)
		if err == nil {
			return n
		}
	}
	return def
}
