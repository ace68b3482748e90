// Package installer downloads a release asset, turns it into one executable in
// a target directory, and runs the tool's post-install hook.
package installer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"epic-postinstall/internal/config"
	"epic-postinstall/internal/logger"
	"epic-postinstall/internal/release"
)

const (
	// DefaultTimeout bounds each asset download.
	DefaultTimeout = 5 * time.Minute

	executableMode = 0755
	workDirPrefix  = "epic-postinstall-"
)

// Installer installs release assets. The zero value is not usable; call New.
type Installer struct {
	client    *http.Client
	userAgent string
	tempRoot  string
}

// Option configures an Installer.
type Option func(*Installer)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(i *Installer) { i.client = c }
}

// WithTimeout sets the per-download timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(i *Installer) { i.client.Timeout = d }
}

// WithTempRoot sets the directory private work directories are created under.
// It defaults to os.TempDir().
func WithTempRoot(dir string) Option {
	return func(i *Installer) { i.tempRoot = dir }
}

// New returns an Installer configured by opts.
func New(opts ...Option) *Installer {
	i := &Installer{
		client:    &http.Client{Timeout: DefaultTimeout},
		userAgent: release.UserAgent,
		tempRoot:  os.TempDir(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Install fetches downloadURL and leaves exactly one executable at
// targetDir/command, which it returns. Archives are staged in a private work
// directory that is removed before Install returns; anything else is streamed
// straight to the final path.
//
// When hook fails the binary stays installed: Install returns the final path
// together with a *HookError.
func (i *Installer) Install(ctx context.Context, downloadURL, targetDir, command string, hook *config.Hook) (string, error) {
	if command == "" || command != filepath.Base(command) {
		return "", fmt.Errorf("invalid command name %q", command)
	}
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return "", fmt.Errorf("create target directory %s: %w", targetDir, err)
	}
	finalPath := filepath.Join(targetDir, command)

	name := assetName(downloadURL)
	if release.IsArchive(name) {
		if err := i.installArchive(ctx, downloadURL, name, command, finalPath); err != nil {
			return "", err
		}
	} else {
		logger.Info("Downloading %s to %s", downloadURL, finalPath)
		if err := i.download(ctx, downloadURL, finalPath, executableMode); err != nil {
			return "", err
		}
	}

	// The umask may have stripped bits at create time.
	if err := os.Chmod(finalPath, executableMode); err != nil {
		return "", fmt.Errorf("chmod %s: %w", finalPath, err)
	}
	logger.Success("Installed %s at %s", command, finalPath)

	if !hook.IsZero() {
		if err := runHook(ctx, hook, targetDir, finalPath); err != nil {
			return finalPath, err
		}
	}
	return finalPath, nil
}

func (i *Installer) installArchive(ctx context.Context, downloadURL, name, command, finalPath string) error {
	workDir := filepath.Join(i.tempRoot, workDirPrefix+uuid.NewString())
	if err := os.MkdirAll(workDir, 0700); err != nil {
		return fmt.Errorf("create work directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			logger.Warn("Failed to remove work directory %s: %v", workDir, err)
		}
	}()

	archivePath := filepath.Join(workDir, name)
	logger.Info("Downloading %s", downloadURL)
	if err := i.download(ctx, downloadURL, archivePath, 0600); err != nil {
		return err
	}

	extractDir := filepath.Join(workDir, "extracted")
	if err := os.Mkdir(extractDir, 0700); err != nil {
		return fmt.Errorf("create extraction directory: %w", err)
	}
	if err := extractArchive(archivePath, extractDir); err != nil {
		return &ExtractionError{Archive: name, Err: err}
	}

	src, err := findExecutable(extractDir, command)
	if err != nil {
		if errors.Is(err, ErrExecutableNotFound) {
			err = fmt.Errorf("%w: no file named %s", err, command)
		}
		return &ExtractionError{Archive: name, Err: err}
	}
	logger.Debug("Found %s in %s", src, name)

	if err := copyFile(src, finalPath, executableMode); err != nil {
		return fmt.Errorf("install %s: %w", finalPath, err)
	}
	if err := os.Remove(src); err != nil {
		logger.Debug("Could not remove %s: %v", src, err)
	}
	return nil
}

// assetName is the file name at the end of the URL path.
func assetName(downloadURL string) string {
	if u, err := url.Parse(downloadURL); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	return path.Base(downloadURL)
}
