// =============================================================================
// Constituent Import - Version Command
// =============================================================================
//
// COMMAND USAGE:
//   constituent-import version [--short]
//
// Version and BuildDate are stamped with ldflags, for example:
//   go build -ldflags "-X 'github.com/ginjaninja78/constituent-import/cmd.Version=1.2.0'"
//
// Unstamped builds fall back to the module version and VCS revision recorded
// by the Go toolchain.
//
// =============================================================================

package cmd

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Version is the application version.
var Version = "dev"

// BuildDate is the date the application was built.
var BuildDate = "unknown"

var shortVersion bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display the application version",
	Run: func(cmd *cobra.Command, args []string) {
		version, revision := buildVersion()
		out := cmd.OutOrStdout()

		if shortVersion {
			fmt.Fprintln(out, version)
			return
		}

		fmt.Fprintln(out, "Constituent Import")
		fmt.Fprintf(out, "Version:    %s\n", version)
		if revision != "" {
			fmt.Fprintf(out, "Revision:   %s\n", revision)
		}
		fmt.Fprintf(out, "Build Date: %s\n", BuildDate)
		fmt.Fprintf(out, "Go Version: %s\n", runtime.Version())
	},
}

func init() {
	versionCmd.Flags().BoolVar(&shortVersion, "short", false, "Print only the version number")
	rootCmd.AddCommand(versionCmd)
}

// buildVersion returns the stamped version, or the module version when the
// binary was not stamped, plus the VCS revision if known.
func buildVersion() (version, revision string) {
	version = Version

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return version, ""
	}
	if version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		version = info.Main.Version
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			revision = s.Value
		}
	}
	return version, revision
}
