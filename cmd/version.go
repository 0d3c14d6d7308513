package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	appVersion = "dev"
	appBuilt   = "unknown"
)

// SetVersion records the build metadata injected by the linker
func SetVersion(version, buildTime string) {
	appVersion = version
	appBuilt = buildTime
	rootCmd.Version = version
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	// runs without config
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("reelpick %s (built %s, %s %s/%s)\n", appVersion, appBuilt, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
