package release

import (
	"strings"

	"epic-postinstall/internal/platform"
)

// ArchiveExtensions lists the archive formats in selection priority order.
// The installer unpacks every one of them.
var ArchiveExtensions = []string{".zip", ".tar.gz", ".tgz", ".tar.xz", ".tar.zst", ".tar.bz2", ".7z"}

var osAliases = map[string][]string{
	platform.OSMacOS:   {"darwin", "macos"},
	platform.OSLinux:   {"linux"},
	platform.OSWindows: {"windows"},
}

var archAliases = map[string][]string{
	platform.ArchX64:     {"x64", "amd64", "x86_64"},
	platform.ArchARM64:   {"arm64", "aarch64"},
	platform.ArchARM:     {"armv6hf"},
	platform.ArchRISCV64: {"riscv64"},
}

// IsArchive reports whether name ends in one of ArchiveExtensions.
func IsArchive(name string) bool {
	return ArchiveExtension(name) != ""
}

// ArchiveExtension returns the archive extension of name, or "" if it is not an archive.
func ArchiveExtension(name string) string {
	lower := strings.ToLower(name)
	for _, ext := range ArchiveExtensions {
		if strings.HasSuffix(lower, ext) {
			return ext
		}
	}
	return ""
}

// SelectAsset picks the single asset to install on host. Assets are filtered
// by OS alias, then by architecture alias; among the rest the first archive in
// ArchiveExtensions order wins. With no archive left, a Windows host takes the
// first ".exe", and otherwise the first remaining asset is used.
// The result depends only on the inputs and their order.
func SelectAsset(assets []Asset, host platform.Host) (Asset, bool) {
	candidates := filterByAliases(assets, osAliases[host.OS])
	candidates = filterByAliases(candidates, archAliases[host.Arch])
	if len(candidates) == 0 {
		return Asset{}, false
	}

	for _, ext := range ArchiveExtensions {
		for _, a := range candidates {
			if strings.HasSuffix(strings.ToLower(a.Name), ext) {
				return a, true
			}
		}
	}

	if host.OS == platform.OSWindows {
		for _, a := range candidates {
			if strings.HasSuffix(strings.ToLower(a.Name), ".exe") {
				return a, true
			}
		}
	}
	return candidates[0], true
}

func filterByAliases(assets []Asset, aliases []string) []Asset {
	var out []Asset
	for _, a := range assets {
		name := strings.ToLower(a.Name)
		for _, alias := range aliases {
			if strings.Contains(name, alias) {
				out = append(out, a)
				break
			}
		}
	}
	return out
}
