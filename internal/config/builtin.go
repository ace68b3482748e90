package config

import (
	"fmt"
	"sort"
)

const (
	// AsdfCommand is the version-manager tool. Uninstalling it also removes its data directory.
	AsdfCommand = "asdf"
	asdfRepo    = "https://github.com/asdf-vm/asdf"

	direnvCommand = "direnv"
	direnvRepo    = "https://github.com/direnv/direnv"
)

var asdfShellIntegration = ShellIntegration{
	Bash: &Posix{
		LoginProfile: true,
		Snippet: Lines{
			`export PATH="${ASDF_DATA_DIR:-$HOME/.asdf}/shims:$PATH"`,
			`. <(asdf completion bash)`,
		},
	},
	Zsh: &Posix{
		Snippet: Lines{
			`export PATH="${ASDF_DATA_DIR:-$HOME/.asdf}/shims:$PATH"`,
			`fpath=(${ASDF_DATA_DIR:-$HOME/.asdf}/completions $fpath)`,
			`autoload -Uz compinit && compinit`,
		},
	},
	Sh: &Posix{
		LoginProfile: true,
		Snippet: Lines{
			`export PATH="${ASDF_DATA_DIR:-$HOME/.asdf}/shims:$PATH"`,
		},
	},
	Fish: Lines{
		`if test -z $ASDF_DATA_DIR`,
		`    set _asdf_shims "$HOME/.asdf/shims"`,
		`else`,
		`    set _asdf_shims "$ASDF_DATA_DIR/shims"`,
		`end`,
		`if not contains $_asdf_shims $PATH`,
		`    set -gx --prepend PATH $_asdf_shims`,
		`end`,
		`set --erase _asdf_shims`,
	},
	Nushell: Lines{
		`let shims_dir = (`,
		`  if ( $env | get --ignore-errors ASDF_DATA_DIR | is-empty ) {`,
		`    $env.HOME | path join '.asdf'`,
		`  } else {`,
		`    $env.ASDF_DATA_DIR`,
		`  } | path join 'shims'`,
		`)`,
		`$env.PATH = ( $env.PATH | split row (char esep) | where { |p| $p != $shims_dir } | prepend $shims_dir )`,
	},
	Elvish: Lines{
		`var asdf_data_dir = ~'/.asdf'`,
		`if (and (has-env ASDF_DATA_DIR) (!=s $E:ASDF_DATA_DIR '')) {`,
		`  set asdf_data_dir = $E:ASDF_DATA_DIR`,
		`}`,
		`if (not (has-value $paths $asdf_data_dir'/shims')) {`,
		`  set paths = [$asdf_data_dir'/shims' $@paths]`,
		`}`,
	},
}

var direnvShellIntegration = ShellIntegration{
	Bash:   &Posix{Snippet: Lines{`eval "$(direnv hook bash)"`}},
	Zsh:    &Posix{Snippet: Lines{`eval "$(direnv hook zsh)"`}},
	Fish:   Lines{`direnv hook fish | source`},
	Elvish: Lines{`eval (direnv hook elvish | slurp)`},
}

// PathIntegration builds the block that puts binDir on PATH for every dialect.
func PathIntegration(binDir string) *ShellIntegration {
	export := fmt.Sprintf(`export PATH="%s:$PATH"`, binDir)
	return &ShellIntegration{
		Bash: &Posix{Snippet: Lines{export}},
		Zsh:  &Posix{Snippet: Lines{export}},
		Sh:   &Posix{LoginProfile: true, Snippet: Lines{export}},
		Fish: Lines{fmt.Sprintf(`set -gx PATH "%s" $PATH`, binDir)},
		Nushell: Lines{
			fmt.Sprintf(`let target_bin_path = "%s"`, binDir),
			`$env.PATH = ( $env.PATH | split row (char esep) | where { |p| $p != $target_bin_path } | prepend $target_bin_path )`,
		},
		Elvish: Lines{
			fmt.Sprintf(`var target_bin_path = "%s"`, binDir),
			`if (not (has-value $paths $target_bin_path)) {`,
			`  set paths = [$target_bin_path $@paths]`,
			`}`,
		},
	}
}

// Tools flattens the config into the ordered tool list handed to the core:
// asdf first, then direnv, then gitBinaries sorted by their config key.
func (c *Config) Tools() []ToolSpec {
	var tools []ToolSpec

	if c.Asdf != nil && c.Asdf.Version != "" {
		integration := asdfShellIntegration
		tools = append(tools, ToolSpec{
			Command:          AsdfCommand,
			RequiredVersion:  c.Asdf.Version,
			RepositoryURL:    asdfRepo,
			ShellIntegration: &integration,
		})
	}
	if c.Direnv != nil && c.Direnv.Version != "" {
		integration := direnvShellIntegration
		tools = append(tools, ToolSpec{
			Command:          direnvCommand,
			RequiredVersion:  c.Direnv.Version,
			RepositoryURL:    direnvRepo,
			ShellIntegration: &integration,
		})
	}

	keys := make([]string, 0, len(c.GitBinaries))
	for key := range c.GitBinaries {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		b := c.GitBinaries[key]
		tools = append(tools, ToolSpec{
			Command:          b.Cmd,
			RequiredVersion:  b.Version,
			RepositoryURL:    b.GithubRepo,
			ShellIntegration: b.ShellUpdate,
			PostInstallHook:  b.PostInstallScript,
		})
	}
	return tools
}
