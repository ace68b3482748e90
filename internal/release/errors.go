package release

import (
	"errors"
	"fmt"
)

var (
	// ErrNoReleaseFound means the repository has no release for the requested tag.
	ErrNoReleaseFound = errors.New("no release found")
	// ErrNoAssetFound means the release has no asset for the host OS and architecture.
	ErrNoAssetFound = errors.New("no asset found")
)

// ResolutionError reports that a tool version could not be turned into a
// download URL. It is fatal for that tool only.
type ResolutionError struct {
	Repository string
	Version    string
	Err        error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %s@%s: %v", e.Repository, e.Version, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// APIError is a non-2xx response from the release API.
type APIError struct {
	URL        string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("release API %s: HTTP %d: %s", e.URL, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("release API %s: HTTP %d", e.URL, e.StatusCode)
}
