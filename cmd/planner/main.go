// Command planner runs the content planner API as a long-lived server and
// prepares its database.
package main

import (
	"fmt"
	"os"

	"content-planner-backend/pkg/handlers"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "planner",
	Short: "Content planner backend",
	Long: `Content planner backend.

Available subcommands:
  serve   - Run the HTTP API
  migrate - Create the database tables
  version - Print the build version`,
	SilenceUsage: true,
}

// versionCmd prints the build version
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), handlers.Version)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
