// Package state persists the ledger of installations performed for a project
// so that a later run can undo exactly those changes.
package state

import (
	"encoding/json" // For JSON encoding and decoding of the state file
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"epic-postinstall/internal/config"
	"epic-postinstall/internal/logger"
)

const (
	// FileName is the state file kept at the project root.
	FileName = ".epic-postinstall-state.json"

	ignoreFile    = ".gitignore"
	ignoreComment = "# epic-postinstall state"
)

// Incomplete stages recorded on a partial installation.
const (
	StageHook  = "hook"
	StageShell = "shell"
)

// Record is one installation. It is keyed by (Command, Version).
type Record struct {
	Command       string    `json:"cmd"`
	Version       string    `json:"version"`
	RepositoryURL string    `json:"githubRepo"`
	Timestamp     time.Time `json:"timestamp"`
	BinaryPath    string    `json:"binaryPath"`
	// ShellIntegrationID is the program id the shell blocks were written under.
	ShellIntegrationID string `json:"shellUpdateProgramName,omitempty"`
	// VersionManagerHome is removed together with the binary on uninstall.
	VersionManagerHome string `json:"asdfHome,omitempty"`
	// Incomplete lists the stages that failed after the binary was installed.
	Incomplete []string `json:"incomplete,omitempty"`
}

// State is the whole ledger of one project.
type State struct {
	ProjectID     string   `json:"projectId"`
	Installations []Record `json:"installations"`
}

// IOError is a failure to read or write the ledger.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("state %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Store owns the state file of one project root. No other package reads or
// writes the file.
type Store struct {
	root string
	path string
}

// NewStore returns the Store for the project rooted at root.
func NewStore(root string) *Store {
	return &Store{root: root, path: filepath.Join(root, FileName)}
}

// Path is the location of the state file.
func (s *Store) Path() string { return s.path }

// LoadState reads the ledger. A missing file yields an empty state whose
// project id is derived from the project root.
func (s *Store) LoadState() (*State, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Debug("No state file at %s", s.path)
		return &State{ProjectID: config.ProjectName(s.root)}, nil
	}
	if err != nil {
		return nil, &IOError{Op: "read", Path: s.path, Err: err}
	}

	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, &IOError{Op: "parse", Path: s.path, Err: err}
	}
	if st.ProjectID == "" {
		st.ProjectID = config.ProjectName(s.root)
	}
	return &st, nil
}

// SaveState replaces the state file with st. The new content is written to a
// temporary file in the same directory and renamed over the old one.
func (s *Store) SaveState(st *State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return &IOError{Op: "encode", Path: s.path, Err: err}
	}
	data = append(data, '\n')
	if logger.Enabled(logger.LevelDebug) {
		logger.Debug("Writing state to %s:\n%s", s.path, data)
	}

	tmp, err := os.CreateTemp(s.root, FileName+".*.tmp")
	if err != nil {
		return &IOError{Op: "write", Path: s.path, Err: err}
	}
	tmpName := tmp.Name()
	defer func() {
		if _, statErr := os.Stat(tmpName); statErr == nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return &IOError{Op: "write", Path: s.path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return &IOError{Op: "write", Path: s.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &IOError{Op: "write", Path: s.path, Err: err}
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return &IOError{Op: "write", Path: s.path, Err: err}
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return &IOError{Op: "write", Path: s.path, Err: err}
	}
	return nil
}

// AddInstallation upserts rec: a record with the same command and version is
// replaced in place, otherwise rec is appended.
func (s *Store) AddInstallation(rec Record) error {
	st, err := s.LoadState()
	if err != nil {
		return err
	}

	replaced := false
	for i, r := range st.Installations {
		if r.Command == rec.Command && r.Version == rec.Version {
			st.Installations[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		st.Installations = append(st.Installations, rec)
	}

	if err := s.SaveState(st); err != nil {
		return err
	}
	logger.Debug("Recorded %s@%s at %s", rec.Command, rec.Version, rec.BinaryPath)
	return nil
}

// RemoveInstallation drops every record for command.
func (s *Store) RemoveInstallation(command string) error {
	st, err := s.LoadState()
	if err != nil {
		return err
	}

	kept := st.Installations[:0]
	for _, r := range st.Installations {
		if r.Command != command {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(st.Installations) {
		return nil
	}
	st.Installations = kept
	return s.SaveState(st)
}

// Exists reports whether the state file is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Delete removes the state file. A missing file is not an error.
func (s *Store) Delete() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &IOError{Op: "delete", Path: s.path, Err: err}
	}
	return nil
}

// EnsureIgnoreEntry adds the state file to the project's .gitignore, creating
// the file when needed. It does nothing if the entry is already there.
func (s *Store) EnsureIgnoreEntry() error {
	path := filepath.Join(s.root, ignoreFile)
	entry := "/" + FileName

	raw, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &IOError{Op: "read", Path: path, Err: err}
	}
	content := string(raw)
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == entry || line == FileName {
			return nil
		}
	}

	var b strings.Builder
	if content != "" && !strings.HasSuffix(content, "\n") {
		b.WriteString("\n")
	}
	if content != "" {
		b.WriteString("\n")
	}
	b.WriteString(ignoreComment + "\n" + entry + "\n")

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return &IOError{Op: "write", Path: path, Err: err}
	}
	if _, err := f.WriteString(b.String()); err != nil {
		f.Close()
		return &IOError{Op: "write", Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &IOError{Op: "write", Path: path, Err: err}
	}
	logger.Info("Added %s to %s", entry, path)
	return nil
}
