//go:build unix

package provision

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"epic-postinstall/internal/config"
)

func writeScript(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755); err != nil {
		t.Fatal(err)
	}
}

func TestExecProber(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   string
		wantOK bool
	}{
		{
			name:   "long flag",
			script: `[ "$1" = "--version" ] && echo "ShellCheck - shell script analysis tool\nversion: 0.10.0"` + "\n",
			want:   "0.10.0",
			wantOK: true,
		},
		{
			name:   "short flag only",
			script: "if [ \"$1\" = \"-v\" ]; then echo v2.36.0; else echo unknown flag >&2; exit 2; fi\n",
			want:   "2.36.0",
			wantOK: true,
		},
		{
			name:   "non-zero exit with a version",
			script: "echo 'tool 1.2.3'\nexit 1\n",
			want:   "1.2.3",
			wantOK: true,
		},
		{
			name:   "no version printed",
			script: "echo hello\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			binDir := t.TempDir()
			writeScript(t, filepath.Join(binDir, "probe-me"), tt.script)

			got, ok := ExecProber{}.InstalledVersion(context.Background(), "probe-me", binDir)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("InstalledVersion() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestExecProberMissingCommand(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	if v, ok := (ExecProber{}).InstalledVersion(context.Background(), "no-such-tool", t.TempDir()); ok {
		t.Errorf("InstalledVersion() = %q, want not installed", v)
	}
}

func TestRunScripts(t *testing.T) {
	dir := t.TempDir()
	binDir := filepath.Join(dir, "bin")
	writeScript(t, filepath.Join(binDir, "helper"), "echo helped\n")

	ok := filepath.Join(dir, "ok.sh")
	writeScript(t, ok, `echo "$1" > "$PWD/args.txt"; helper > "$PWD/helper.txt"`+"\n")
	failing := filepath.Join(dir, "fail.sh")
	writeScript(t, failing, "exit 4\n")

	p := &Provisioner{BinDir: binDir}
	err := p.RunScripts(context.Background(), []config.Script{
		{Name: "fail.sh", Path: failing},
		{Name: "ok.sh", Path: ok, Args: []string{"--fast"}},
	}, dir)
	if err == nil {
		t.Fatal("expected error from the failing script")
	}

	args, rerr := os.ReadFile(filepath.Join(dir, "args.txt"))
	if rerr != nil {
		t.Fatalf("script after a failure did not run: %v", rerr)
	}
	if string(args) != "--fast\n" {
		t.Errorf("args = %q, want --fast", args)
	}
	if out, _ := os.ReadFile(filepath.Join(dir, "helper.txt")); string(out) != "helped\n" {
		t.Errorf("install directory not on PATH: helper output = %q", out)
	}
}
