package release

import "testing"

func TestParseRepositoryURL(t *testing.T) {
	tests := []struct {
		in      string
		want    Repository
		wantErr bool
	}{
		{in: "https://github.com/koalaman/shellcheck", want: Repository{"github.com", "koalaman", "shellcheck"}},
		{in: "https://github.com/asdf-vm/asdf.git", want: Repository{"github.com", "asdf-vm", "asdf"}},
		{in: "github.com/direnv/direnv/releases", want: Repository{"github.com", "direnv", "direnv"}},
		{in: "https://www.GitHub.com/a/b/", want: Repository{"github.com", "a", "b"}},
		{in: "https://github.com/only-owner", wantErr: true},
		{in: "ftp://github.com/a/b", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRepositoryURL(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseRepositoryURL(%q) expected error, got %+v", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRepositoryURL(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseRepositoryURL(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestRepositoryMediaType(t *testing.T) {
	r := Repository{Host: "github.com", Owner: "a", Name: "b"}
	if got := r.mediaType(); got != "application/vnd.github+json" {
		t.Errorf("mediaType() = %q", got)
	}
	if got := r.APIBase(); got != "https://api.github.com" {
		t.Errorf("APIBase() = %q", got)
	}
}
