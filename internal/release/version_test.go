package release

import "testing"

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.2.3", "1.2.3", 0},
		{"v1.2.3", "1.2.3", 0},
		{"1.2", "1.2.0", 0},
		{"1.10.0", "1.9.9", 1},
		{"0.9.0", "0.10.0", -1},
		{"2.0.0", "1.99.99", 1},
		{"shellcheck 0.10.0", "0.10.0", 0},
		{"1.2.3-rc1", "1.2.3", 1}, // "rc1" leaves a stray digit: 1.2.31
		{"", "0.0.1", -1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_vs_"+tt.b, func(t *testing.T) {
			if got := CompareVersions(tt.a, tt.b); got != tt.want {
				t.Errorf("CompareVersions(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestIsCompatible(t *testing.T) {
	if !IsCompatible("0.10.0", "0.10.0") {
		t.Error("equal versions should be compatible")
	}
	if !IsCompatible("0.11.0", "0.10.0") {
		t.Error("newer installed version should be compatible")
	}
	if IsCompatible("0.9.0", "0.10.0") {
		t.Error("older installed version should not be compatible")
	}
}

func TestNormalizeTag(t *testing.T) {
	tests := map[string]string{
		"1.9.1":     "v1.9.1",
		"v1.9.1":    "v1.9.1",
		"2":         "v2",
		"jq-1.7.1":  "jq-1.7.1",
		"1.0.0-rc1": "1.0.0-rc1",
	}
	for in, want := range tests {
		if got := NormalizeTag(in); got != want {
			t.Errorf("NormalizeTag(%q) = %q, want %q", in, got, want)
		}
	}
}
