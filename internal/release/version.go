package release

import (
	"regexp"
	"strconv"
	"strings"
)

var bareVersion = regexp.MustCompile(`^\d+(\.\d+)*$`)

// NormalizeTag prefixes a bare numeric version with "v" ("1.9.1" -> "v1.9.1").
// Anything else is returned unchanged.
func NormalizeTag(version string) string {
	if bareVersion.MatchString(version) {
		return "v" + version
	}
	return version
}

// CompareVersions compares two dotted version strings numerically.
// Every rune other than digits and dots is dropped first, so "v1.2.3" and
// "1.2.3" are equal, and missing parts count as zero ("1.2" == "1.2.0").
// It returns -1, 0, or 1.
func CompareVersions(a, b string) int {
	pa, pb := versionParts(a), versionParts(b)
	n := max(len(pa), len(pb))
	for i := 0; i < n; i++ {
		var x, y int
		if i < len(pa) {
			x = pa[i]
		}
		if i < len(pb) {
			y = pb[i]
		}
		switch {
		case x > y:
			return 1
		case x < y:
			return -1
		}
	}
	return 0
}

// IsCompatible reports whether installed satisfies required (installed >= required).
func IsCompatible(installed, required string) bool {
	return CompareVersions(installed, required) >= 0
}

func versionParts(v string) []int {
	cleaned := strings.Map(func(r rune) rune {
		if r == '.' || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, v)

	fields := strings.Split(cleaned, ".")
	parts := make([]int, len(fields))
	for i, f := range fields {
		// Empty fields ("1..2", "") count as zero.
		n, _ := strconv.Atoi(f)
		parts[i] = n
	}
	return parts
}
