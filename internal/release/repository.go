package release

import (
	"fmt"
	"net/url"
	"strings"
)

// Repository identifies a repository on a release-hosting service.
type Repository struct {
	Host  string
	Owner string
	Name  string
}

func (r Repository) String() string {
	return r.Host + "/" + r.Owner + "/" + r.Name
}

// APIBase returns the default REST endpoint for the repository's host,
// e.g. https://api.github.com.
func (r Repository) APIBase() string {
	return "https://api." + r.Host
}

// mediaType is the Accept header the host expects, e.g. application/vnd.github+json.
func (r Repository) mediaType() string {
	label, _, _ := strings.Cut(r.Host, ".")
	return "application/vnd." + label + "+json"
}

// ParseRepositoryURL accepts https://<host>/<owner>/<repo>, with or without a
// scheme, a trailing ".git", or extra path segments such as "/releases".
func ParseRepositoryURL(raw string) (Repository, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Repository{}, fmt.Errorf("empty repository URL")
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return Repository{}, fmt.Errorf("parse repository URL %q: %w", raw, err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return Repository{}, fmt.Errorf("repository URL %q: unsupported scheme %q", raw, u.Scheme)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if u.Hostname() == "" || len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return Repository{}, fmt.Errorf("repository URL %q: want https://<host>/<owner>/<repo>", raw)
	}

	return Repository{
		Host:  strings.ToLower(strings.TrimPrefix(u.Hostname(), "www.")),
		Owner: parts[0],
		Name:  strings.TrimSuffix(parts[1], ".git"),
	}, nil
}
