package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "sigdesk",
	Short: "sigdesk - signalDesk chat sync client",
	Long: `sigdesk is a headless client for the signalDesk team-chat backend.

Commands:
  sigdesk login              Authenticate and store a session token
  sigdesk watch <channel>... Connect and tail channel activity
  sigdesk logout             Drop the stored session token`,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute(ver string) error {
	version = ver
	return rootCmd.Execute()
}

var version string

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("sigdesk %s\n", version)
	},
}
