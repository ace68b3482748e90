package installer

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"epic-postinstall/internal/config"
)

type entry struct {
	name string
	body string
	link string // makes the entry a symlink to link
}

func tarBytes(t *testing.T, entries []entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.name, Mode: 0755, Size: int64(len(e.body)), Typeflag: tar.TypeReg}
		if e.link != "" {
			hdr = &tar.Header{Name: e.name, Mode: 0777, Typeflag: tar.TypeSymlink, Linkname: e.link}
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("tar header: %v", err)
		}
		if e.link != "" {
			continue
		}
		if _, err := tw.Write([]byte(e.body)); err != nil {
			t.Fatalf("tar write: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("tar close: %v", err)
	}
	return buf.Bytes()
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(data); err != nil {
		t.Fatalf("gzip: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

func xzBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	xw, err := xz.NewWriter(&buf)
	if err != nil {
		t.Fatalf("xz: %v", err)
	}
	if _, err := xw.Write(data); err != nil {
		t.Fatalf("xz write: %v", err)
	}
	if err := xw.Close(); err != nil {
		t.Fatalf("xz close: %v", err)
	}
	return buf.Bytes()
}

func zstdBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	if _, err := zw.Write(data); err != nil {
		t.Fatalf("zstd write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zstd close: %v", err)
	}
	return buf.Bytes()
}

func zipBytes(t *testing.T, entries []entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		hdr := &zip.FileHeader{Name: e.name, Method: zip.Deflate}
		body := e.body
		if e.link != "" {
			hdr.SetMode(fs.ModeSymlink | 0777)
			body = e.link
		}
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			t.Fatalf("zip create: %v", err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("zip write: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

// assetServer serves each file under /dl/<name>; anything else is a 404.
func assetServer(t *testing.T, files map[string][]byte) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := files[strings.TrimPrefix(r.URL.Path, "/dl/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(body)
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestInstaller(t *testing.T) (*Installer, string) {
	t.Helper()
	tempRoot := t.TempDir()
	return New(WithTempRoot(tempRoot)), tempRoot
}

func assertNoWorkDirs(t *testing.T, tempRoot string) {
	t.Helper()
	left, err := os.ReadDir(tempRoot)
	if err != nil {
		t.Fatalf("read temp root: %v", err)
	}
	if len(left) != 0 {
		t.Errorf("temp artifacts left behind: %v", left)
	}
}

func assertExecutable(t *testing.T, path, wantBody string) {
	t.Helper()
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	if string(got) != wantBody {
		t.Errorf("%s content = %q, want %q", path, got, wantBody)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0755 {
		t.Errorf("%s mode = %v, want 0755", path, info.Mode().Perm())
	}
}

func TestInstallArchives(t *testing.T) {
	entries := []entry{
		{name: "shellcheck-v0.10.0/README.txt", body: "docs"},
		{name: "shellcheck-v0.10.0/shellcheck", body: "#!/bin/sh\necho shellcheck\n"},
	}
	tarball := tarBytes(t, entries)

	tests := []struct {
		name string
		data []byte
	}{
		{"shellcheck-v0.10.0.linux.x86_64.tar.xz", xzBytes(t, tarball)},
		{"shellcheck-v0.10.0.linux.x86_64.tar.gz", gzipBytes(t, tarball)},
		{"shellcheck-v0.10.0.linux.x86_64.tgz", gzipBytes(t, tarball)},
		{"shellcheck-v0.10.0.linux.x86_64.tar.zst", zstdBytes(t, tarball)},
		{"shellcheck-v0.10.0.linux.x86_64.zip", zipBytes(t, entries)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := assetServer(t, map[string][]byte{tt.name: tt.data})
			inst, tempRoot := newTestInstaller(t)
			targetDir := filepath.Join(t.TempDir(), "bin")

			got, err := inst.Install(context.Background(), server.URL+"/dl/"+tt.name, targetDir, "shellcheck", nil)
			if err != nil {
				t.Fatalf("Install() error = %v", err)
			}
			if want := filepath.Join(targetDir, "shellcheck"); got != want {
				t.Errorf("Install() = %q, want %q", got, want)
			}
			assertExecutable(t, got, entries[1].body)
			assertNoWorkDirs(t, tempRoot)

			// Only the executable lands in the target directory.
			files, _ := os.ReadDir(targetDir)
			if len(files) != 1 {
				t.Errorf("target directory holds %d entries, want 1", len(files))
			}
		})
	}
}

func TestInstallRawBinary(t *testing.T) {
	server := assetServer(t, map[string][]byte{"jq-linux-amd64": []byte("jq-binary")})
	inst, tempRoot := newTestInstaller(t)
	targetDir := t.TempDir()

	got, err := inst.Install(context.Background(), server.URL+"/dl/jq-linux-amd64", targetDir, "jq", nil)
	if err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	assertExecutable(t, got, "jq-binary")
	assertNoWorkDirs(t, tempRoot)
}

func TestInstallReplacesExistingBinary(t *testing.T) {
	server := assetServer(t, map[string][]byte{"tool-linux-x64": []byte("new")})
	inst, _ := newTestInstaller(t)
	targetDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(targetDir, "tool"), []byte("old"), 0755); err != nil {
		t.Fatal(err)
	}

	got, err := inst.Install(context.Background(), server.URL+"/dl/tool-linux-x64", targetDir, "tool", nil)
	if err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	assertExecutable(t, got, "new")
}

func TestInstallAmbiguousArchivePicksFirst(t *testing.T) {
	data := gzipBytes(t, tarBytes(t, []entry{
		{name: "b/tool", body: "second"},
		{name: "a/tool", body: "first"},
	}))
	server := assetServer(t, map[string][]byte{"tool.tar.gz": data})
	inst, tempRoot := newTestInstaller(t)

	got, err := inst.Install(context.Background(), server.URL+"/dl/tool.tar.gz", t.TempDir(), "tool", nil)
	if err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	assertExecutable(t, got, "first")
	assertNoWorkDirs(t, tempRoot)
}

func TestInstallSymlinkedExecutable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	entries := []entry{
		{name: "tool-1.0/libexec/tool-real", body: "real-binary"},
		{name: "tool-1.0/bin/tool", link: "../libexec/tool-real"},
	}
	assets := map[string][]byte{
		"tool.tar.gz": gzipBytes(t, tarBytes(t, entries)),
		"tool.zip":    zipBytes(t, entries),
	}

	for name := range assets {
		t.Run(name, func(t *testing.T) {
			server := assetServer(t, assets)
			inst, tempRoot := newTestInstaller(t)
			targetDir := t.TempDir()

			got, err := inst.Install(context.Background(), server.URL+"/dl/"+name, targetDir, "tool", nil)
			if err != nil {
				t.Fatalf("Install() error = %v", err)
			}
			info, err := os.Lstat(got)
			if err != nil {
				t.Fatal(err)
			}
			if !info.Mode().IsRegular() {
				t.Errorf("%s is %v, want a regular file copied through the link", got, info.Mode())
			}
			assertExecutable(t, got, "real-binary")
			assertNoWorkDirs(t, tempRoot)
		})
	}
}

func TestInstallIgnoresEscapingSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	outside := filepath.Join(t.TempDir(), "outside")
	if err := os.WriteFile(outside, []byte("not from the archive"), 0755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		link string
	}{
		{"absolute", outside},
		{"relative", "../../../../../../../../../../" + outside},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := gzipBytes(t, tarBytes(t, []entry{{name: "pkg/tool", link: tt.link}}))
			server := assetServer(t, map[string][]byte{"tool.tar.gz": data})
			inst, tempRoot := newTestInstaller(t)
			targetDir := t.TempDir()

			_, err := inst.Install(context.Background(), server.URL+"/dl/tool.tar.gz", targetDir, "tool", nil)
			if !errors.Is(err, ErrExecutableNotFound) {
				t.Fatalf("Install() error = %v, want ErrExecutableNotFound", err)
			}
			if _, err := os.Stat(filepath.Join(targetDir, "tool")); !os.IsNotExist(err) {
				t.Errorf("binary installed from an escaping link (stat err = %v)", err)
			}
			assertNoWorkDirs(t, tempRoot)
		})
	}
}

func TestFindExecutableSkipsDanglingSymlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "a"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink("missing", filepath.Join(root, "a", "tool")); err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(root, "b", "tool")
	if err := os.MkdirAll(filepath.Dir(want), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(want, []byte("x"), 0755); err != nil {
		t.Fatal(err)
	}

	got, err := findExecutable(root, "tool")
	if err != nil {
		t.Fatalf("findExecutable() error = %v", err)
	}
	if got != want {
		t.Errorf("findExecutable() = %q, want %q", got, want)
	}
}

func TestInstallFailures(t *testing.T) {
	data := gzipBytes(t, tarBytes(t, []entry{{name: "pkg/other", body: "x"}}))
	escaping := gzipBytes(t, tarBytes(t, []entry{{name: "../../evil", body: "x"}}))
	server := assetServer(t, map[string][]byte{
		"tool.tar.gz":   data,
		"evil.tar.gz":   escaping,
		"broken.tar.xz": []byte("not xz at all"),
	})

	tests := []struct {
		name     string
		asset    string
		check    func(error) bool
		wantKind string
	}{
		{
			name:  "executable missing from archive",
			asset: "tool.tar.gz",
			check: func(err error) bool {
				var e *ExtractionError
				return errors.As(err, &e) && errors.Is(err, ErrExecutableNotFound)
			},
			wantKind: "ExtractionError wrapping ErrExecutableNotFound",
		},
		{
			name:  "entry escapes extraction directory",
			asset: "evil.tar.gz",
			check: func(err error) bool {
				var e *ExtractionError
				return errors.As(err, &e)
			},
			wantKind: "ExtractionError",
		},
		{
			name:  "corrupt archive",
			asset: "broken.tar.xz",
			check: func(err error) bool {
				var e *ExtractionError
				return errors.As(err, &e)
			},
			wantKind: "ExtractionError",
		},
		{
			name:  "http 404",
			asset: "missing.tar.gz",
			check: func(err error) bool {
				var e *DownloadError
				return errors.As(err, &e) && e.StatusCode == http.StatusNotFound
			},
			wantKind: "DownloadError with status 404",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst, tempRoot := newTestInstaller(t)
			targetDir := t.TempDir()

			_, err := inst.Install(context.Background(), server.URL+"/dl/"+tt.asset, targetDir, "tool", nil)
			if err == nil {
				t.Fatal("expected error but got none")
			}
			if !tt.check(err) {
				t.Errorf("Install() error = %v, want %s", err, tt.wantKind)
			}
			if _, statErr := os.Stat(filepath.Join(targetDir, "tool")); !os.IsNotExist(statErr) {
				t.Errorf("no binary should be installed, stat error = %v", statErr)
			}
			assertNoWorkDirs(t, tempRoot)
		})
	}
}

func TestInstallRawBinaryDownloadFailureLeavesNothing(t *testing.T) {
	server := assetServer(t, nil)
	inst, _ := newTestInstaller(t)
	targetDir := t.TempDir()

	_, err := inst.Install(context.Background(), server.URL+"/dl/tool-linux-x64", targetDir, "tool", nil)
	var dlErr *DownloadError
	if !errors.As(err, &dlErr) {
		t.Fatalf("Install() error = %v, want *DownloadError", err)
	}
	if _, statErr := os.Stat(filepath.Join(targetDir, "tool")); !os.IsNotExist(statErr) {
		t.Errorf("partial file left behind: %v", statErr)
	}
}

func TestInstallHooks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("hooks run through sh")
	}
	server := assetServer(t, map[string][]byte{"tool-linux-x64": []byte("bin")})

	t.Run("inline hook runs in the install directory", func(t *testing.T) {
		inst, _ := newTestInstaller(t)
		targetDir := t.TempDir()
		hook := &config.Hook{Inline: `printf '%s' "$EPIC_POSTINSTALL_BIN" > hook-ran`}

		got, err := inst.Install(context.Background(), server.URL+"/dl/tool-linux-x64", targetDir, "tool", hook)
		if err != nil {
			t.Fatalf("Install() error = %v", err)
		}
		marker, err := os.ReadFile(filepath.Join(targetDir, "hook-ran"))
		if err != nil {
			t.Fatalf("hook did not run in %s: %v", targetDir, err)
		}
		if string(marker) != got {
			t.Errorf("hook saw %s=%q, want %q", BinEnv, marker, got)
		}
	})

	t.Run("script hook", func(t *testing.T) {
		inst, _ := newTestInstaller(t)
		targetDir := t.TempDir()
		script := filepath.Join(t.TempDir(), "post.sh")
		if err := os.WriteFile(script, []byte("touch script-ran\n"), 0644); err != nil {
			t.Fatal(err)
		}

		if _, err := inst.Install(context.Background(), server.URL+"/dl/tool-linux-x64", targetDir, "tool", &config.Hook{Path: script}); err != nil {
			t.Fatalf("Install() error = %v", err)
		}
		if _, err := os.Stat(filepath.Join(targetDir, "script-ran")); err != nil {
			t.Errorf("script hook did not run: %v", err)
		}
	})

	t.Run("failing hook keeps the binary", func(t *testing.T) {
		inst, _ := newTestInstaller(t)
		targetDir := t.TempDir()
		hook := &config.Hook{Inline: "echo boom >&2; exit 3"}

		got, err := inst.Install(context.Background(), server.URL+"/dl/tool-linux-x64", targetDir, "tool", hook)
		var hookErr *HookError
		if !errors.As(err, &hookErr) {
			t.Fatalf("Install() error = %v, want *HookError", err)
		}
		if hookErr.ExitCode != 3 {
			t.Errorf("ExitCode = %d, want 3", hookErr.ExitCode)
		}
		if !strings.Contains(hookErr.Output, "boom") {
			t.Errorf("Output = %q, want hook stderr", hookErr.Output)
		}
		if !strings.Contains(err.Error(), "boom") {
			t.Errorf("error %q does not carry the hook's last output line", err)
		}
		if got != filepath.Join(targetDir, "tool") {
			t.Errorf("Install() path = %q, want the installed binary", got)
		}
		assertExecutable(t, got, "bin")
	})
}

func TestTailLines(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"", 1, ""},
		{"one", 1, "one"},
		{"a\nb\nc\n\n", 1, "c"},
		{"a\n\nb\nc", 2, "b\nc"},
		{"a\nb", 5, "a\nb"},
	}
	for _, tt := range tests {
		if got := tailLines(tt.in, tt.n); got != tt.want {
			t.Errorf("tailLines(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestInstallRejectsBadCommandName(t *testing.T) {
	inst, _ := newTestInstaller(t)
	for _, name := range []string{"", "../tool", "dir/tool"} {
		if _, err := inst.Install(context.Background(), "http://127.0.0.1:0/x", t.TempDir(), name, nil); err == nil {
			t.Errorf("Install(command=%q) expected error", name)
		}
	}
}

func TestSafeJoin(t *testing.T) {
	dest := t.TempDir()
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"bin/tool", false},
		{"./tool", false},
		{"a/../tool", false},
		{"../tool", true},
		{"a/../../tool", true},
	}
	for _, tt := range tests {
		_, err := safeJoin(dest, tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("safeJoin(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestAssetName(t *testing.T) {
	tests := map[string]string{
		"https://github.com/o/r/releases/download/v1/tool.tar.gz":      "tool.tar.gz",
		"https://example.test/dl/tool.zip?token=abc":                   "tool.zip",
		"https://github.com/o/r/releases/download/v1/tool-linux-amd64": "tool-linux-amd64",
	}
	for in, want := range tests {
		if got := assetName(in); got != want {
			t.Errorf("assetName(%q) = %q, want %q", in, got, want)
		}
	}
}
