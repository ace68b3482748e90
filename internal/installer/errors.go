package installer

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrExecutableNotFound means an archive held no file named after the command.
var ErrExecutableNotFound = errors.New("executable not found in archive")

// DownloadError is a network or HTTP failure while fetching an asset.
type DownloadError struct {
	URL        string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *DownloadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("download %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// ExtractionError is a failure to unpack an archive or to find the command in it.
type ExtractionError struct {
	Archive string
	Err     error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Archive, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// HookError is a post-install hook that could not start or exited non-zero.
// The installed binary is left in place.
type HookError struct {
	Hook     string
	ExitCode int
	Output   string
	Err      error
}

func (e *HookError) Error() string {
	var msg string
	if e.ExitCode > 0 {
		msg = fmt.Sprintf("post-install hook %s exited with status %d", e.Hook, e.ExitCode)
	} else {
		msg = fmt.Sprintf("post-install hook %s: %v", e.Hook, e.Err)
	}
	if last := tailLines(e.Output, 1); last != "" {
		msg += ": " + last
	}
	return msg
}

// hookOutputLines is how much of a failed hook's output is logged.
const hookOutputLines = 20

// tailLines returns the last n non-empty lines of s.
func tailLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	kept := make([]string, 0, n)
	for i := len(lines) - 1; i >= 0 && len(kept) < n; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			kept = append(kept, line)
		}
	}
	slices.Reverse(kept)
	return strings.Join(kept, "\n")
}

func (e *HookError) Unwrap() error { return e.Err }
