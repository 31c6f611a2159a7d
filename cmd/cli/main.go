package main

import (
	"log"
	"time"

	"github.com/absmach/cortex/cli"
	"github.com/absmach/cortex/pkg/sdk"
	"github.com/spf13/cobra"
)

func main() {
	var (
		nodeURL = cli.DefNodeURL
		timeout = 10 * time.Second
	)

	rootCmd := &cobra.Command{
		Use:   "cortex-cli",
		Short: "Cortex CLI",
		Long:  `Cortex CLI is a command line interface for interacting with Cortex nodes.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			sdkConf := sdk.Config{
				NodeURL:         nodeURL,
				TLSVerification: cli.DefTLSVerification,
				Timeout:         timeout,
			}
			s := sdk.NewSDK(sdkConf)
			cli.SetSDK(s)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&nodeURL, "node-url", "n", nodeURL, "Node API URL")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", timeout, "Request timeout")

	rootCmd.AddCommand(
		cli.NewStatusCmd(),
		cli.NewPrivacyCmd(),
		cli.NewTasksCmd(),
		cli.NewInputCmd(),
		cli.NewConfigCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
