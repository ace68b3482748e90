package installer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"epic-postinstall/internal/logger"
)

// download streams url into the file at destPath, creating or truncating it.
// A partially written file is removed on failure.
func (i *Installer) download(ctx context.Context, url, destPath string, mode os.FileMode) (err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &DownloadError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", i.userAgent)

	logger.Debug("GET %s", url)
	resp, err := i.client.Do(req)
	if err != nil {
		return &DownloadError{URL: url, Err: err}
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			logger.Warn("Failed to close response body of %s: %v", url, cerr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return &DownloadError{URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	// Unlink first so a running copy of the old binary is not written through.
	if err := os.Remove(destPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("replace %s: %w", destPath, err)
	}
	out, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("create %s: %w", destPath, err)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", destPath, cerr)
		}
		if err != nil {
			_ = os.Remove(destPath)
		}
	}()

	n, err := io.Copy(out, resp.Body)
	if err != nil {
		return &DownloadError{URL: url, Err: err}
	}
	logger.Debug("Downloaded %d bytes from %s to %s", n, url, destPath)
	return nil
}
