package main

import (
	"fmt"
	"os"

	"github.com/danmuck/vndbctl/internal/logging"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "vndbctl",
	Short:         "vndbctl queries the VNDB TCP API and maintains a local tag index.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a vndbctl toml config")
}

func main() {
	logging.ConfigureRuntime()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "vndbctl: %v\n", err)
		os.Exit(1)
	}
}
