// Package main is the entry point of the storefront renderer.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

var configPath string

func main() {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "storefront",
	Short: "storefront - multi-tenant Liquid storefront renderer",
	Long: `storefront renders merchant storefronts. Each request host is resolved to a
store, the store's theme is loaded and analyzed, the data its templates need is
fetched in parallel and the page is rendered through the Liquid engine.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetVersionTemplate("storefront version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML config file (optional)")
}
