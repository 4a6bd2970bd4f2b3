package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "syncp",
	Short: "Copy entity trees and wikis between repository locations",
	Long: `syncp copies projects, folders, files, links and tables together with their
wikis, annotations and provenance, remapping every copied id in the
destination. It works against a local SQLite repository or a syncpd
endpoint.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to database file (overrides SYNCP_DB_PATH)")
	rootCmd.PersistentFlags().String("as", "", "Principal to act as (overrides SYNCP_PRINCIPAL)")
	rootCmd.PersistentFlags().String("endpoint", "", "syncpd endpoint URL (overrides SYNCP_ENDPOINT)")
	rootCmd.PersistentFlags().String("token", "", "syncpd bearer token (overrides SYNCP_TOKEN)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output format: table, json, ndjson, yaml, tsv")
}
