// Package shellprofile injects and removes marked configuration blocks in the
// profile files of every shell installed on the host.
package shellprofile

import (
	"path/filepath"
	"strings"

	"epic-postinstall/internal/config"
)

// Dialect is one supported shell. The set is closed: Bash, Zsh, Sh, Fish,
// Nushell and Elvish are the only implementations.
type Dialect interface {
	// Name is the canonical shell name.
	Name() string
	// Target picks the profile file and snippet for integration. ok is false
	// when the integration has nothing for this shell.
	Target(home string, integration *config.ShellIntegration) (t Target, ok bool)
	// Candidates lists every profile file a block may have been written to.
	Candidates(home string) []string

	dialect()
}

// Target is where and what to write for one shell.
type Target struct {
	Path  string
	Lines []string
	// FallbackFrom names the dialect whose snippet was borrowed, if any.
	FallbackFrom string
}

// The dialects.
type (
	Bash    struct{}
	Zsh     struct{}
	Sh      struct{}
	Fish    struct{}
	Nushell struct{}
	Elvish  struct{}
)

// Dialects returns every supported dialect in a fixed order.
func Dialects() []Dialect {
	return []Dialect{Bash{}, Zsh{}, Sh{}, Fish{}, Nushell{}, Elvish{}}
}

// ParseDialect maps a shell name or executable path to its dialect.
func ParseDialect(name string) (Dialect, bool) {
	switch strings.ToLower(filepath.Base(strings.TrimSpace(name))) {
	case "bash":
		return Bash{}, true
	case "zsh":
		return Zsh{}, true
	case "sh":
		return Sh{}, true
	case "fish":
		return Fish{}, true
	case "nu", "nushell":
		return Nushell{}, true
	case "elvish":
		return Elvish{}, true
	default:
		return nil, false
	}
}

func (Bash) Name() string    { return "bash" }
func (Zsh) Name() string     { return "zsh" }
func (Sh) Name() string      { return "sh" }
func (Fish) Name() string    { return "fish" }
func (Nushell) Name() string { return "nushell" }
func (Elvish) Name() string  { return "elvish" }

func (Bash) dialect()    {}
func (Zsh) dialect()     {}
func (Sh) dialect()      {}
func (Fish) dialect()    {}
func (Nushell) dialect() {}
func (Elvish) dialect()  {}

const (
	bashRC      = ".bashrc"
	bashProfile = ".bash_profile"
	zshRC       = ".zshrc"
	zshProfile  = ".zprofile"
)

func (Bash) Target(home string, si *config.ShellIntegration) (Target, bool) {
	if si == nil {
		return Target{}, false
	}
	return posixTarget(home, si.Bash, bashRC, bashProfile, "")
}

// Target for zsh borrows the bash snippet when no zsh one is given.
func (Zsh) Target(home string, si *config.ShellIntegration) (Target, bool) {
	if si == nil {
		return Target{}, false
	}
	if t, ok := posixTarget(home, si.Zsh, zshRC, zshProfile, ""); ok {
		return t, true
	}
	return posixTarget(home, si.Bash, zshRC, zshProfile, "bash")
}

// Target for sh shares the bash profile files and borrows the bash snippet
// when no sh one is given.
func (Sh) Target(home string, si *config.ShellIntegration) (Target, bool) {
	if si == nil {
		return Target{}, false
	}
	if t, ok := posixTarget(home, si.Sh, bashRC, bashProfile, ""); ok {
		return t, true
	}
	return posixTarget(home, si.Bash, bashRC, bashProfile, "bash")
}

func (Fish) Target(home string, si *config.ShellIntegration) (Target, bool) {
	if si == nil {
		return Target{}, false
	}
	return singleTarget(fishConfig(home), si.Fish)
}

func (Nushell) Target(home string, si *config.ShellIntegration) (Target, bool) {
	if si == nil {
		return Target{}, false
	}
	return singleTarget(nushellConfig(home), si.Nushell)
}

func (Elvish) Target(home string, si *config.ShellIntegration) (Target, bool) {
	if si == nil {
		return Target{}, false
	}
	return singleTarget(elvishConfig(home), si.Elvish)
}

func (Bash) Candidates(home string) []string {
	return []string{filepath.Join(home, bashProfile), filepath.Join(home, bashRC)}
}

func (Zsh) Candidates(home string) []string {
	return []string{filepath.Join(home, zshProfile), filepath.Join(home, zshRC)}
}

func (Sh) Candidates(home string) []string { return Bash{}.Candidates(home) }

func (Fish) Candidates(home string) []string    { return []string{fishConfig(home)} }
func (Nushell) Candidates(home string) []string { return []string{nushellConfig(home)} }
func (Elvish) Candidates(home string) []string  { return []string{elvishConfig(home)} }

func fishConfig(home string) string    { return filepath.Join(home, ".config", "fish", "config.fish") }
func nushellConfig(home string) string { return filepath.Join(home, ".config", "nushell", "config.nu") }
func elvishConfig(home string) string  { return filepath.Join(home, ".elvish", "rc.elv") }

func posixTarget(home string, p *config.Posix, rc, profile, fallbackFrom string) (Target, bool) {
	if p == nil || len(p.Snippet) == 0 {
		return Target{}, false
	}
	name := rc
	if p.LoginProfile {
		name = profile
	}
	return Target{Path: filepath.Join(home, name), Lines: p.Snippet, FallbackFrom: fallbackFrom}, true
}

func singleTarget(path string, lines config.Lines) (Target, bool) {
	if len(lines) == 0 {
		return Target{}, false
	}
	return Target{Path: path, Lines: lines}, true
}
