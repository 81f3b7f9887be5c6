// taigabot relays Taiga webhook events to Telegram.
//
// Usage:
//
//	taigabot serve    --config ./config.yaml
//	taigabot validate --config ./config.yaml
//	taigabot render   --config ./config.yaml --event ./event.json
//	taigabot version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	cfgPath string
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "taigabot",
		Short: "Relay Taiga webhook events to Telegram",
		Long: `taigabot receives Taiga webhooks (comments, mentions, description and
status changes, assignments) and sends each affected user a Telegram message,
honoring the per-user notification preferences in the users file.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "./config.json", "path to the config file (JSON or YAML)")

	root.AddCommand(serveCmd())
	root.AddCommand(validateCmd())
	root.AddCommand(renderCmd())
	root.AddCommand(versionCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
