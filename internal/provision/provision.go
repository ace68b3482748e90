// Package provision runs the install and uninstall flows: it decides per tool
// whether to install, then drives the resolver, the installer, the shell
// profile manager and the state store in that order.
package provision

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"epic-postinstall/internal/config"
	"epic-postinstall/internal/installer"
	"epic-postinstall/internal/logger"
	"epic-postinstall/internal/platform"
	"epic-postinstall/internal/release"
	"epic-postinstall/internal/state"
)

// PathProgramID identifies the block that puts the install directory on PATH.
const PathProgramID = "epic-postinstall-path-installation"

// Resolver turns a repository and version into the asset to install.
type Resolver interface {
	Resolve(ctx context.Context, repoURL, version string, host platform.Host) (release.Asset, error)
}

// BinaryInstaller places one executable in a directory.
type BinaryInstaller interface {
	Install(ctx context.Context, downloadURL, targetDir, command string, hook *config.Hook) (string, error)
}

// ShellManager applies and removes marked profile blocks.
type ShellManager interface {
	Apply(ctx context.Context, programID string, integration *config.ShellIntegration) error
	Remove(ctx context.Context, programID string) error
}

// Prober reports the version of a command that is already installed.
type Prober interface {
	InstalledVersion(ctx context.Context, command, binDir string) (string, bool)
}

// Provisioner wires the components of one run together.
type Provisioner struct {
	Resolver  Resolver
	Installer BinaryInstaller
	Shells    ShellManager
	Store     *state.Store
	Host      platform.Host
	BinDir    string
	// Prober defaults to ExecProber.
	Prober Prober
	// Now defaults to time.Now.
	Now func() time.Time
}

// Install processes tools one after another. A failure in one tool is logged
// and does not stop the others; all of them are returned joined. A failure to
// write the state file stops the run at once.
func (p *Provisioner) Install(ctx context.Context, tools []config.ToolSpec) error {
	if err := p.Store.EnsureIgnoreEntry(); err != nil {
		logger.Warn("Could not add the state file to .gitignore: %v", err)
	}

	var errs []error
	if err := p.Shells.Apply(ctx, PathProgramID, config.PathIntegration(p.BinDir)); err != nil {
		logger.Warn("Could not add %s to PATH in every shell: %v", p.BinDir, err)
		errs = append(errs, err)
	}

	for _, tool := range tools {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}

		err := p.installTool(ctx, tool)
		if err == nil {
			continue
		}
		var ioErr *state.IOError
		if errors.As(err, &ioErr) {
			logger.Error("Cannot record %s, stopping: %v", tool.Command, err)
			return errors.Join(append(errs, err)...)
		}
		logger.Error("%s %s from %s: %v", tool.Command, tool.RequiredVersion, tool.RepositoryURL, err)
		errs = append(errs, fmt.Errorf("%s: %w", tool.Command, err))
	}
	return errors.Join(errs...)
}

func (p *Provisioner) installTool(ctx context.Context, tool config.ToolSpec) error {
	if installed, ok := p.prober().InstalledVersion(ctx, tool.Command, p.BinDir); ok {
		if release.IsCompatible(installed, tool.RequiredVersion) {
			logger.Info("%s %s is installed and satisfies %s, skipping", tool.Command, installed, tool.RequiredVersion)
			return nil
		}
		logger.Info("Upgrading %s from %s to %s", tool.Command, installed, tool.RequiredVersion)
	} else {
		logger.Info("Installing %s %s", tool.Command, tool.RequiredVersion)
	}

	asset, err := p.Resolver.Resolve(ctx, tool.RepositoryURL, tool.RequiredVersion, p.Host)
	if err != nil {
		return err
	}

	binPath, err := p.Installer.Install(ctx, asset.DownloadURL, p.BinDir, tool.Command, tool.PostInstallHook)
	var partial []error
	rec := state.Record{
		Command:       tool.Command,
		Version:       tool.RequiredVersion,
		RepositoryURL: tool.RepositoryURL,
		Timestamp:     p.now().UTC(),
		BinaryPath:    binPath,
	}
	if err != nil {
		var hookErr *installer.HookError
		if !errors.As(err, &hookErr) || binPath == "" {
			return err
		}
		rec.Incomplete = append(rec.Incomplete, state.StageHook)
		partial = append(partial, err)
	}

	if !tool.ShellIntegration.IsZero() {
		rec.ShellIntegrationID = tool.Command
		if err := p.Shells.Apply(ctx, tool.Command, tool.ShellIntegration); err != nil {
			rec.Incomplete = append(rec.Incomplete, state.StageShell)
			partial = append(partial, err)
		}
	}

	if tool.Command == config.AsdfCommand {
		rec.VersionManagerHome = VersionManagerHome()
	}

	if err := p.Store.AddInstallation(rec); err != nil {
		return err
	}
	if len(partial) > 0 {
		logger.Warn("%s is installed but incomplete (%v)", tool.Command, rec.Incomplete)
		return errors.Join(partial...)
	}
	return nil
}

// Uninstall undoes every recorded installation using only the state file:
// shell blocks are removed under the recorded id, binaries are deleted, and
// the version manager's home goes with it. Each record leaves the ledger as
// soon as it is undone, so a cancelled run can be resumed. Records are
// independent; their failures are joined. The PATH block and the state file
// go last, and a failure to delete the state file is returned even if
// everything else worked.
func (p *Provisioner) Uninstall(ctx context.Context) error {
	st, err := p.Store.LoadState()
	if err != nil {
		return err
	}
	if len(st.Installations) == 0 {
		// Install applies the PATH block even when every tool was skipped.
		logger.Info("No recorded installations for %s, removing only the PATH block", st.ProjectID)
	}

	var errs []error
	for _, rec := range st.Installations {
		if err := ctx.Err(); err != nil {
			logger.Warn("Uninstall interrupted, remaining records stay in %s", p.Store.Path())
			return errors.Join(append(errs, err)...)
		}
		if err := p.uninstallRecord(ctx, rec); err != nil {
			logger.Error("Uninstalling %s %s: %v", rec.Command, rec.Version, err)
			errs = append(errs, fmt.Errorf("%s: %w", rec.Command, err))
			continue
		}
		if err := p.Store.RemoveInstallation(rec.Command); err != nil {
			errs = append(errs, err)
			continue
		}
		logger.Success("Uninstalled %s %s", rec.Command, rec.Version)
	}

	if err := p.Shells.Remove(ctx, PathProgramID); err != nil {
		errs = append(errs, err)
	}
	if p.Store.Exists() {
		if err := p.Store.Delete(); err != nil {
			logger.Error("Could not delete %s: %v", p.Store.Path(), err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *Provisioner) uninstallRecord(ctx context.Context, rec state.Record) error {
	var errs []error
	if rec.ShellIntegrationID != "" {
		if err := p.Shells.Remove(ctx, rec.ShellIntegrationID); err != nil {
			errs = append(errs, err)
		}
	}
	if err := installer.RemoveBinary(rec.BinaryPath); err != nil {
		errs = append(errs, err)
	}
	if rec.Command == config.AsdfCommand {
		home := rec.VersionManagerHome
		if home == "" {
			home = VersionManagerHome()
		}
		if err := installer.RemoveDataDir(home); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Status returns the recorded installations.
func (p *Provisioner) Status() (*state.State, error) {
	return p.Store.LoadState()
}

// VersionManagerHome is asdf's data directory: $ASDF_DATA_DIR, else ~/.asdf.
func VersionManagerHome() string {
	if dir := os.Getenv("ASDF_DATA_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".asdf")
}

func (p *Provisioner) prober() Prober {
	if p.Prober == nil {
		return ExecProber{}
	}
	return p.Prober
}

func (p *Provisioner) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}
