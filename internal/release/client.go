// Package release resolves a repository, version and host platform to the
// download URL of a single release asset.
package release

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"epic-postinstall/internal/logger"
	"epic-postinstall/internal/platform"
)

const (
	// DefaultTimeout bounds each release API request.
	DefaultTimeout = 5 * time.Minute
	// UserAgent is sent with every API request.
	UserAgent = "epic-postinstall"

	apiVersion = "2022-11-28"
	perPage    = 100
	maxPages   = 10
)

// Asset is one downloadable file attached to a release.
type Asset struct {
	Name        string `json:"name"`
	DownloadURL string `json:"browser_download_url"`
}

// Release is a tagged publication of assets.
type Release struct {
	Tag    string  `json:"tag_name"`
	Assets []Asset `json:"assets"`
}

// Index maps a normalized tag to its release.
type Index map[string]Release

// Lookup finds the release for version, accepting "1.9.1" and "v1.9.1" alike.
func (idx Index) Lookup(version string) (Release, bool) {
	if r, ok := idx[NormalizeTag(version)]; ok {
		return r, true
	}
	r, ok := idx[version]
	return r, ok
}

// Client talks to the release API of a repository host.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithBaseURL overrides the API endpoint derived from the repository host,
// for enterprise installations and tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithToken sets the bearer token. The default comes from GITHUB_TOKEN or GH_TOKEN.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// NewClient returns a Client configured by opts.
func NewClient(opts ...Option) *Client {
	c := &Client{
		http:  &http.Client{Timeout: DefaultTimeout},
		token: tokenFromEnv(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func tokenFromEnv() string {
	for _, key := range []string{"GITHUB_TOKEN", "GH_TOKEN"} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ""
}

// Resolve returns the asset to install for version of the repository at
// repoURL on host. Failures to match are *ResolutionError; API failures are
// wrapped in one too.
func (c *Client) Resolve(ctx context.Context, repoURL, version string, host platform.Host) (Asset, error) {
	fail := func(err error) (Asset, error) {
		return Asset{}, &ResolutionError{Repository: repoURL, Version: version, Err: err}
	}

	repo, err := ParseRepositoryURL(repoURL)
	if err != nil {
		return fail(err)
	}

	idx, err := c.Releases(ctx, repo)
	if err != nil {
		return fail(err)
	}
	if len(idx) == 0 {
		return fail(fmt.Errorf("%w: %s has no releases", ErrNoReleaseFound, repo))
	}

	rel, ok := idx.Lookup(version)
	if !ok {
		return fail(fmt.Errorf("%w: tag %s does not exist in %s, check %s/releases for a valid version",
			ErrNoReleaseFound, NormalizeTag(version), repo, strings.TrimSuffix(repoURL, "/")))
	}

	asset, ok := SelectAsset(rel.Assets, host)
	if !ok {
		return fail(fmt.Errorf("%w: none of the %d assets of %s match %s", ErrNoAssetFound, len(rel.Assets), rel.Tag, host))
	}

	logger.Info("Selected asset %s for %s", asset.Name, host)
	return asset, nil
}

// Releases fetches every release of repo and indexes it by normalized tag.
// When two releases normalize to the same tag the first (newest) one wins.
func (c *Client) Releases(ctx context.Context, repo Repository) (Index, error) {
	base := c.baseURL
	if base == "" {
		base = repo.APIBase()
	}

	idx := make(Index)
	for page := 1; page <= maxPages; page++ {
		url := fmt.Sprintf("%s/repos/%s/%s/releases?per_page=%d&page=%d", base, repo.Owner, repo.Name, perPage, page)
		batch, err := c.fetchPage(ctx, repo, url)
		if err != nil {
			return nil, err
		}
		for _, r := range batch {
			key := NormalizeTag(r.Tag)
			if _, dup := idx[key]; !dup {
				idx[key] = r
			}
		}
		if len(batch) < perPage {
			break
		}
	}

	logger.Debug("Indexed %d releases of %s", len(idx), repo)
	return idx, nil
}

func (c *Client) fetchPage(ctx context.Context, repo Repository, url string) ([]Release, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request %s: %w", url, err)
	}
	req.Header.Set("Accept", repo.mediaType())
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("User-Agent", UserAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	logger.Debug("GET %s", url)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch releases %s: %w", url, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			logger.Warn("Failed to close response body of %s: %v", url, cerr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp, url, c.token != "")
	}

	var releases []Release
	if err := json.NewDecoder(resp.Body).Decode(&releases); err != nil {
		return nil, fmt.Errorf("decode releases from %s: %w", url, err)
	}
	return releases, nil
}

func apiError(resp *http.Response, url string, authenticated bool) error {
	var body struct {
		Message string `json:"message"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(raw, &body)

	msg := body.Message
	if resp.Header.Get("X-RateLimit-Remaining") == "0" && !authenticated {
		msg = strings.TrimSpace(msg + " (set GITHUB_TOKEN to raise the rate limit)")
	}
	return &APIError{URL: url, StatusCode: resp.StatusCode, Message: msg}
}
