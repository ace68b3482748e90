package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"epic-postinstall/internal/config"
	"epic-postinstall/internal/installer"
	"epic-postinstall/internal/logger"
	"epic-postinstall/internal/platform"
	"epic-postinstall/internal/provision"
	"epic-postinstall/internal/release"
	"epic-postinstall/internal/shellprofile"
	"epic-postinstall/internal/state"
)

// session is everything one run needs: the parsed config (nil when none was
// found and none is required), the project root, and the wired provisioner.
type session struct {
	cfg  *config.Config
	root string
	prov *provision.Provisioner
	lock state.Lock
}

// openSession loads the config, takes the project lock and builds the
// provisioner. requireConfig is false for commands that only need the state
// file. The caller must call close.
func openSession(ctx context.Context, requireConfig bool) (*session, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	cfg, err := loadConfig(cwd)
	switch {
	case errors.Is(err, config.ErrNotFound) && !requireConfig:
		logger.Debug("No config file found from %s", cwd)
	case err != nil:
		return nil, err
	}

	start := cwd
	if cfg != nil {
		start = cfg.Dir
	}
	root := config.FindProjectRoot(start)

	lock, err := state.AcquireLock(root)
	if err != nil {
		return nil, err
	}

	prov, err := newProvisioner(ctx, cfg, root)
	if err != nil {
		_ = lock.Release()
		return nil, err
	}
	return &session{cfg: cfg, root: root, prov: prov, lock: lock}, nil
}

func (s *session) close() {
	if err := s.lock.Release(); err != nil {
		logger.Warn("Could not release the lock in %s: %v", s.root, err)
	}
}

func loadConfig(cwd string) (*config.Config, error) {
	path := configPath
	if path == "" {
		found, err := config.Discover(cwd)
		if err != nil {
			return nil, err
		}
		path = found
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	logger.Debug("Loaded config %s", cfg.Path)
	return cfg, nil
}

func newProvisioner(ctx context.Context, cfg *config.Config, root string) (*provision.Provisioner, error) {
	host, err := platform.Detect(ctx)
	if err != nil {
		return nil, err
	}
	logger.Debug("Host platform: %s", host)

	reqTimeout := config.DefaultTimeout
	if cfg != nil {
		reqTimeout = time.Duration(cfg.Timeout)
	}
	if timeout > 0 {
		reqTimeout = timeout
	}

	dir := binDir
	if dir == "" && cfg != nil {
		dir = cfg.TargetBinPath
	}
	if dir == "" {
		dir = config.DefaultTargetBinPath
	}
	dir, err = config.ExpandHome(dir)
	if err != nil {
		return nil, err
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("locate home directory: %w", err)
	}
	detector, err := shellDetector()
	if err != nil {
		return nil, err
	}

	return &provision.Provisioner{
		Resolver:  release.NewClient(release.WithTimeout(reqTimeout)),
		Installer: installer.New(installer.WithTimeout(reqTimeout)),
		Shells:    shellprofile.NewManager(home, detector),
		Store:     state.NewStore(root),
		Host:      host,
		BinDir:    dir,
	}, nil
}

// shellDetector honours --shells; without it the installed shells are probed.
func shellDetector() (shellprofile.Detector, error) {
	if len(shells) == 0 {
		return nil, nil
	}
	var fixed shellprofile.Fixed
	for _, name := range shells {
		d, ok := shellprofile.ParseDialect(name)
		if !ok {
			return nil, fmt.Errorf("unsupported shell %q", name)
		}
		fixed = append(fixed, d)
	}
	return fixed, nil
}
