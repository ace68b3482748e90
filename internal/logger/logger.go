package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color" // Import the fatih/color package for colored console output
)

// Level is the minimum severity a message needs in order to be printed.
type Level int

const (
	// LevelDebug prints everything, including detailed internal steps.
	LevelDebug Level = iota
	// LevelInfo prints progress, successes, warnings, and errors (default).
	LevelInfo
	// LevelWarn prints only warnings and errors.
	LevelWarn
	// LevelError prints only errors.
	LevelError
)

// Define colorized printers for the different log levels using fatih/color.
// Green is used for successes, bright magenta for warnings so they stand out
// without being alarming, red for errors, and cyan for debug chatter.
var (
	infoColor    = color.New(color.Reset)
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgHiMagenta)
	errorColor   = color.New(color.FgRed)
	debugColor   = color.New(color.FgCyan)
)

var mu sync.Mutex

var (
	current Level     = LevelInfo
	out     io.Writer = os.Stdout
)

// Init sets the minimum level that will be printed. LevelDebug enables debug
// output, LevelWarn silences progress messages.
func Init(level Level) {
	mu.Lock()
	defer mu.Unlock()
	current = level
}

// SetOutput redirects all log output, mainly so tests can capture it.
// A nil writer restores stdout.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		w = os.Stdout
	}
	out = w
}

// Enabled reports whether messages at level would currently be printed.
func Enabled(level Level) bool {
	mu.Lock()
	defer mu.Unlock()
	return level >= current
}

// Debug logs debug messages in cyan when debug logging is enabled.
func Debug(format string, a ...any) { emit(LevelDebug, debugColor, "[DEBUG]", format, a...) }

// Info logs informational progress messages.
func Info(format string, a ...any) { emit(LevelInfo, infoColor, "[INFO]", format, a...) }

// Success logs completed actions in green.
func Success(format string, a ...any) { emit(LevelInfo, successColor, "[SUCCESS]", format, a...) }

// Warn logs warning messages in bright magenta.
func Warn(format string, a ...any) { emit(LevelWarn, warnColor, "[WARN]", format, a...) }

// Error logs error messages in red. Errors are always printed.
func Error(format string, a ...any) { emit(LevelError, errorColor, "[ERROR]", format, a...) }

func emit(level Level, c *color.Color, tag, format string, a ...any) {
	mu.Lock()
	defer mu.Unlock()
	if level < current {
		return
	}
	msg := strings.TrimRight(fmt.Sprintf(format, a...), "\n")
	_, _ = c.Fprintf(out, "%s %s\n", tag, msg)
}
