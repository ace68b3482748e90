package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	gogit "github.com/go-git/go-git/v5"
	"golang.org/x/mod/modfile"

	"epic-postinstall/internal/logger"
)

// UnknownProject is the project id used when no project name can be found.
const UnknownProject = "unknown-project"

// projectMarkers identify the root of a project, nearest first wins.
var projectMarkers = []string{"package.json", "go.mod"}

// FindProjectRoot returns the directory that owns the state file for a run.
// It walks up from startDir looking for a project manifest, then falls back to
// the enclosing git worktree, and finally to startDir itself.
func FindProjectRoot(startDir string) string {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return startDir
	}

	for current := dir; ; {
		for _, marker := range projectMarkers {
			if _, err := os.Stat(filepath.Join(current, marker)); err == nil {
				logger.Debug("Project root %s (found %s)", current, marker)
				return current
			}
		}
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}

	repo, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err == nil {
		if wt, err := repo.Worktree(); err == nil {
			root := wt.Filesystem.Root()
			logger.Debug("Project root %s (git worktree)", root)
			return root
		}
	} else if !errors.Is(err, gogit.ErrRepositoryNotExists) {
		logger.Debug("Could not open git repository above %s: %v", dir, err)
	}

	return dir
}

// ProjectName returns the declared name of the project rooted at root:
// the package.json name, else the go.mod module path, else UnknownProject.
func ProjectName(root string) string {
	if raw, err := os.ReadFile(filepath.Join(root, "package.json")); err == nil {
		var pkg struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(raw, &pkg); err == nil && pkg.Name != "" {
			return pkg.Name
		}
		logger.Warn("Could not read a project name from %s", filepath.Join(root, "package.json"))
	}

	if raw, err := os.ReadFile(filepath.Join(root, "go.mod")); err == nil {
		if path := modfile.ModulePath(raw); path != "" {
			return path
		}
	}

	return UnknownProject
}
