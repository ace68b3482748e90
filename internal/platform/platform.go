// Package platform reports the host operating system and architecture in the
// vocabulary used by release asset names.
package platform

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v4/host"

	"epic-postinstall/internal/logger"
)

// Operating systems.
const (
	OSLinux   = "linux"
	OSMacOS   = "macos"
	OSWindows = "windows"
)

// Architectures.
const (
	ArchX64     = "x64"
	ArchARM64   = "arm64"
	ArchARM     = "arm"
	ArchRISCV64 = "riscv64"
)

// Host describes the machine binaries are installed for.
type Host struct {
	OS   string
	Arch string
	// Distro is the Linux distribution and version ("ubuntu 24.04"), empty elsewhere
	// or when it could not be read. Informational only.
	Distro string
}

func (h Host) String() string {
	if h.Distro != "" {
		return fmt.Sprintf("%s/%s (%s)", h.OS, h.Arch, h.Distro)
	}
	return h.OS + "/" + h.Arch
}

// Detect returns the current host. Distribution details are best effort: a
// failure to read them is logged and ignored unless ctx was cancelled.
func Detect(ctx context.Context) (Host, error) {
	h := FromGo(runtime.GOOS, runtime.GOARCH)

	if runtime.GOOS == "linux" {
		name, _, version, err := host.PlatformInformationWithContext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return Host{}, fmt.Errorf("platform detection cancelled: %w", ctx.Err())
			}
			logger.Debug("Could not read Linux distribution: %v", err)
			return h, nil
		}
		h.Distro = strings.TrimSpace(strings.ToLower(name) + " " + version)
	}
	return h, nil
}

// FromGo maps GOOS/GOARCH values to Host values. Unknown values pass through
// unchanged, so they simply match no asset.
func FromGo(goos, goarch string) Host {
	return Host{OS: mapOS(goos), Arch: mapArch(goarch)}
}

func mapOS(goos string) string {
	switch goos {
	case "darwin":
		return OSMacOS
	case "linux":
		return OSLinux
	case "windows":
		return OSWindows
	default:
		return goos
	}
}

func mapArch(goarch string) string {
	switch goarch {
	case "amd64":
		return ArchX64
	case "arm64":
		return ArchARM64
	case "arm":
		return ArchARM
	case "riscv64":
		return ArchRISCV64
	default:
		return goarch
	}
}
