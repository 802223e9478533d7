package main

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// appVersion prefers APP_VERSION so Sentry releases and the info metric agree.
func appVersion() string {
	return envOr("APP_VERSION", version)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show build metadata for this binary",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Version:      %s\n", appVersion())
			if info, ok := debug.ReadBuildInfo(); ok {
				for _, s := range info.Settings {
					if s.Key == "vcs.revision" {
						fmt.Fprintf(out, "Commit:       %s\n", s.Value)
					}
				}
			}
			fmt.Fprintf(out, "Architecture: %s/%s\n", runtime.GOOS, runtime.GOARCH)
			fmt.Fprintf(out, "Go Version:   %s\n", runtime.Version())
		},
	}
}
