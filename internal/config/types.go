package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Lines is a snippet body. In the config file it may be written either as a
// single string or as a list of strings.
type Lines []string

// UnmarshalYAML accepts a scalar or a sequence of scalars.
func (l *Lines) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		if s == "" {
			*l = nil
			return nil
		}
		*l = Lines{s}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*l = Lines(list)
		return nil
	default:
		return fmt.Errorf("line %d: snippet must be a string or a list of strings", node.Line)
	}
}

// Posix is the integration data for the POSIX-login-capable shells (bash, zsh, sh).
// LoginProfile selects the login profile (~/.bash_profile, ~/.zprofile) instead
// of the interactive one (~/.bashrc, ~/.zshrc). Snippet holds the lines placed
// inside the marked block.
type Posix struct {
	LoginProfile bool  `yaml:"loginShell"`
	Snippet      Lines `yaml:"snippet"`
}

// ShellIntegration holds one snippet per shell dialect. A nil or empty entry
// means the tool has no integration for that shell.
type ShellIntegration struct {
	Bash    *Posix `yaml:"bash,omitempty"`
	Zsh     *Posix `yaml:"zsh,omitempty"`
	Sh      *Posix `yaml:"sh,omitempty"`
	Fish    Lines  `yaml:"fish,omitempty"`
	Nushell Lines  `yaml:"nushell,omitempty"`
	Elvish  Lines  `yaml:"elvish,omitempty"`
}

// IsZero reports whether no dialect has any snippet.
func (s *ShellIntegration) IsZero() bool {
	if s == nil {
		return true
	}
	return posixEmpty(s.Bash) && posixEmpty(s.Zsh) && posixEmpty(s.Sh) &&
		len(s.Fish) == 0 && len(s.Nushell) == 0 && len(s.Elvish) == 0
}

func posixEmpty(p *Posix) bool {
	return p == nil || len(p.Snippet) == 0
}

// Hook is a post-install hook: either inline shell text or a script path.
type Hook struct {
	Inline string `yaml:"inline,omitempty"`
	Path   string `yaml:"path,omitempty"`
}

// IsZero reports whether the hook has nothing to run.
func (h *Hook) IsZero() bool {
	return h == nil || (h.Inline == "" && h.Path == "")
}

// Describe returns a short label used in logs and errors.
func (h *Hook) Describe() string {
	switch {
	case h.IsZero():
		return "<none>"
	case h.Path != "":
		return h.Path
	default:
		return "inline script"
	}
}

// ToolSpec is the immutable request to install one command at one version
// from one repository. It is built once from the config file and passed
// into the core by value; nothing downstream re-reads configuration.
type ToolSpec struct {
	Command          string
	RequiredVersion  string
	RepositoryURL    string
	ShellIntegration *ShellIntegration
	PostInstallHook  *Hook
}

// GitBinary is the config-file shape of a tool installed from GitHub releases.
type GitBinary struct {
	Cmd               string            `yaml:"cmd"`
	Version           string            `yaml:"version"`
	GithubRepo        string            `yaml:"githubRepo"`
	ShellUpdate       *ShellIntegration `yaml:"shellUpdate,omitempty"`
	PostInstallScript *Hook             `yaml:"postInstallScript,omitempty"`
}

// VersionedTool is a built-in tool section where only the version is chosen.
type VersionedTool struct {
	Version string `yaml:"version"`
}

// Script is a project script run once all tools are installed.
type Script struct {
	Name string   `yaml:"name"`
	Path string   `yaml:"path"`
	Args []string `yaml:"args,omitempty"`
}

// Config is the parsed project configuration file.
type Config struct {
	Message       string               `yaml:"message,omitempty"`
	TargetBinPath string               `yaml:"targetBinPath,omitempty"`
	Timeout       Duration             `yaml:"timeout,omitempty"`
	Asdf          *VersionedTool       `yaml:"asdf,omitempty"`
	Direnv        *VersionedTool       `yaml:"direnv,omitempty"`
	GitBinaries   map[string]GitBinary `yaml:"gitBinaries,omitempty"`
	Scripts       []Script             `yaml:"scripts,omitempty"`

	// Path is the file the config was read from; Dir is its directory.
	Path string `yaml:"-"`
	Dir  string `yaml:"-"`
}

// Duration decodes Go duration strings such as "90s" or "5m".
type Duration time.Duration

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q: %w", node.Line, s, err)
	}
	*d = Duration(parsed)
	return nil
}
