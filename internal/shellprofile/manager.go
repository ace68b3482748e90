package shellprofile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"epic-postinstall/internal/config"
	"epic-postinstall/internal/logger"
)

// UpdateError is a profile file that could not be read or written for a
// reason other than not existing.
type UpdateError struct {
	Shell string
	Path  string
	Err   error
}

func (e *UpdateError) Error() string {
	return fmt.Sprintf("update %s profile %s: %v", e.Shell, e.Path, e.Err)
}

func (e *UpdateError) Unwrap() error { return e.Err }

// Manager applies and removes marked blocks in the profiles of detected shells.
// Shells are detected once, on first use.
type Manager struct {
	home     string
	detector Detector

	once     sync.Once
	detected []Dialect
}

// NewManager returns a Manager writing profiles under home.
func NewManager(home string, detector Detector) *Manager {
	if detector == nil {
		detector = SystemDetector{}
	}
	return &Manager{home: home, detector: detector}
}

// Shells returns the detected dialects.
func (m *Manager) Shells(ctx context.Context) []Dialect {
	m.once.Do(func() {
		m.detected = m.detector.Detect(ctx)
		names := make([]string, len(m.detected))
		for i, d := range m.detected {
			names[i] = d.Name()
		}
		logger.Debug("Detected shells: %s", strings.Join(names, ", "))
	})
	return m.detected
}

// Apply writes the block for programID into the profile of every detected
// shell that integration has a snippet for. A profile already holding the
// block is left alone, and a profile shared by two shells is written once.
// Failures are per shell: other shells are still updated, and the joined
// *UpdateError values are returned.
func (m *Manager) Apply(ctx context.Context, programID string, integration *config.ShellIntegration) error {
	if integration.IsZero() {
		return nil
	}

	touched := make(map[string]bool)
	var errs []error
	for _, d := range m.Shells(ctx) {
		t, ok := d.Target(m.home, integration)
		if !ok {
			logger.Debug("No %s configuration for %s, skipping", d.Name(), programID)
			continue
		}
		if t.FallbackFrom != "" {
			logger.Info("Using %s configuration for %s as no %s configuration was provided for %s", t.FallbackFrom, d.Name(), d.Name(), programID)
		}
		if touched[t.Path] {
			logger.Debug("%s already handled in this run", t.Path)
			continue
		}
		touched[t.Path] = true

		if err := appendBlock(t.Path, programID, t.Lines); err != nil {
			logger.Error("Failed to update %s profile %s for %s: %v", d.Name(), t.Path, programID, err)
			errs = append(errs, &UpdateError{Shell: d.Name(), Path: t.Path, Err: err})
		}
	}
	return errors.Join(errs...)
}

// Remove deletes every block for programID from all candidate profiles of the
// detected shells, login and interactive alike. Missing files and absent
// blocks are not errors.
func (m *Manager) Remove(ctx context.Context, programID string) error {
	touched := make(map[string]bool)
	var errs []error
	for _, d := range m.Shells(ctx) {
		for _, path := range d.Candidates(m.home) {
			if touched[path] {
				continue
			}
			touched[path] = true

			if err := removeBlock(path, programID); err != nil {
				logger.Error("Failed to clean %s profile %s for %s: %v", d.Name(), path, programID, err)
				errs = append(errs, &UpdateError{Shell: d.Name(), Path: path, Err: err})
			}
		}
	}
	return errors.Join(errs...)
}

func appendBlock(path, programID string, lines []string) error {
	content, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if errors.Is(err, fs.ErrNotExist) {
		logger.Debug("%s does not exist, creating it", path)
	}
	if HasBlock(string(content), programID) {
		logger.Info("Configuration for %s already exists in %s", programID, path)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString("\n" + Block(programID, lines) + "\n"); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	logger.Success("Added configuration for %s to %s", programID, path)
	return nil
}

func removeBlock(path, programID string) error {
	content, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Debug("%s does not exist, nothing to remove", path)
		return nil
	}
	if err != nil {
		return err
	}

	out, changed := StripBlocks(string(content), programID)
	if !changed {
		return nil
	}
	// WriteFile keeps the file's mode and writes through symlinked dotfiles.
	if err := os.WriteFile(path, []byte(out), 0644); err != nil {
		return err
	}
	logger.Success("Removed configuration for %s from %s", programID, path)
	return nil
}
