package cli

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Build-time variables set via ldflags
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const asciiLogo = `                 _
 _ __   __ _ ___| |_ __ _  __ _  ___
| '_ \ / _' / __| __/ _' |/ _' |/ _ \
| |_) | (_| \__ \ || (_| | (_| |  __/
| .__/ \__, |___/\__\__,_|\__, |\___|
|_|    |___/              |___/`

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		printVersionInfo(cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// resolveVersionInfo prefers the ldflags values and falls back to the
// module build info for binaries installed with go install.
func resolveVersionInfo() (string, string, string) {
	v, c, d := version, commit, date
	if v != "dev" {
		return v, c, d
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return v, c, d
	}
	if info.Main.Version != "" && info.Main.Version != "(devel)" {
		v = info.Main.Version
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if len(s.Value) > 7 {
				c = s.Value[:7]
			} else if s.Value != "" {
				c = s.Value
			}
		case "vcs.time":
			if s.Value != "" {
				d = s.Value
			}
		}
	}
	return v, c, d
}

// versionLine is the machine-parseable version string.
func versionLine() string {
	v, c, d := resolveVersionInfo()
	return fmt.Sprintf("pgstage %s (%s, %s) %s/%s", v, c, d, runtime.GOOS, runtime.GOARCH)
}

// printVersionInfo writes the version line to stdout for pipelines and the
// logo and project details to stderr.
func printVersionInfo(stdout, stderr io.Writer) {
	fmt.Fprintln(stderr, asciiLogo)
	fmt.Fprintln(stderr)
	fmt.Fprintln(stdout, versionLine())
	fmt.Fprintln(stderr, "Staged CSV loader for PostgreSQL")
	fmt.Fprintln(stderr)
	fmt.Fprintln(stderr, "Repository: https://github.com/vvka-141/pgstage")
}
