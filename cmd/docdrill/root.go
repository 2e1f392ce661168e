package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "docdrill",
	Short: "docdrill checks that documented procedures are still executable",
	Long: `docdrill parses directive-markup documentation, expands documented
alternative paths into concrete variants, and executes every testable action
to verify the procedures still work as written.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("source", ".", "Directory containing the documentation sources")
	rootCmd.PersistentFlags().String("env-file", "", "KEY=VALUE environment file (default: <source>/.env)")
	rootCmd.PersistentFlags().String("constants", "", "Project constants TOML file (default: <source>/constants.toml)")
	rootCmd.PersistentFlags().String("roles", "", "Role-resolution YAML file (default: <source>/roles.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
}
