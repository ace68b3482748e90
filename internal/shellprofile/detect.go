package shellprofile

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"epic-postinstall/internal/logger"
)

// Detector reports the shells installed on the host.
type Detector interface {
	Detect(ctx context.Context) []Dialect
}

// wellKnownShells are probed directly. Shells without a dialect (dash, ksh,
// tcsh, csh) are listed so detection logs them as skipped.
var wellKnownShells = []string{
	"/bin/bash",
	"/usr/bin/bash",
	"/bin/zsh",
	"/usr/bin/zsh",
	"/usr/local/bin/zsh",
	"/bin/sh",
	"/usr/bin/fish",
	"/usr/local/bin/fish",
	"/opt/homebrew/bin/fish",
	"/usr/bin/nu",
	"/usr/local/bin/nu",
	"/usr/bin/elvish",
	"/usr/local/bin/elvish",
	"/bin/dash",
	"/bin/ksh",
	"/bin/tcsh",
	"/bin/csh",
}

const etcShells = "/etc/shells"

// SystemDetector probes well-known shell paths and the login-shell list.
type SystemDetector struct {
	// Paths overrides the probed executables; nil means the built-in list.
	Paths []string
	// LoginShells overrides how the login-shell list is read; nil means
	// "chsh -l", falling back to /etc/shells.
	LoginShells func(ctx context.Context) ([]string, error)
}

// Detect returns the de-duplicated dialects found, in discovery order.
func (d SystemDetector) Detect(ctx context.Context) []Dialect {
	paths := d.Paths
	if paths == nil {
		paths = wellKnownShells
	}

	var found []string
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			found = append(found, p)
		} else if err != nil {
			logger.Debug("Shell %s not present: %v", p, err)
		}
	}

	list := d.LoginShells
	if list == nil {
		list = loginShells
	}
	if runtime.GOOS != "windows" {
		if shells, err := list(ctx); err != nil {
			logger.Debug("Could not list login shells: %v", err)
		} else {
			found = append(found, shells...)
		}
	}

	return dedupe(found)
}

func dedupe(names []string) []Dialect {
	seen := make(map[string]bool)
	var out []Dialect
	for _, name := range names {
		d, ok := ParseDialect(name)
		if !ok {
			logger.Debug("Skipping unsupported shell %s", name)
			continue
		}
		if seen[d.Name()] {
			continue
		}
		seen[d.Name()] = true
		out = append(out, d)
	}
	return out
}

// loginShells runs "chsh -l" and falls back to reading /etc/shells.
func loginShells(ctx context.Context) ([]string, error) {
	out, err := exec.CommandContext(ctx, "chsh", "-l").Output()
	if err == nil {
		return parseShellList(out), nil
	}
	logger.Debug("'chsh -l' failed (%v), reading %s", err, etcShells)

	raw, readErr := os.ReadFile(etcShells)
	if readErr != nil {
		return nil, readErr
	}
	return parseShellList(raw), nil
}

func parseShellList(raw []byte) []string {
	var shells []string
	sc := bufio.NewScanner(bytes.NewReader(raw))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		shells = append(shells, line)
	}
	return shells
}

// Fixed is a Detector that always reports the same dialects, for hosts where
// the set of shells to configure is chosen explicitly.
type Fixed []Dialect

// Detect returns the fixed dialects.
func (f Fixed) Detect(context.Context) []Dialect { return f }
