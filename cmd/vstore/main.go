package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "vstore",
		Short: "Inspect and edit reactive storage backings",
		Long: `vstore works with the persistent storage used by reactive applications.

It opens the backing described by vstore.toml (or the platform default
file storage) and lets you list, read, write, and delete keys, or serve
the HTTP inspector for live debugging.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Path to vstore.toml (default: search upward from the working directory)")

	rootCmd.AddCommand(
		listCmd(&configPath),
		getCmd(&configPath),
		setCmd(&configPath),
		rmCmd(&configPath),
		serveCmd(&configPath),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}
