package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

func NewInputCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "input [send]",
		Short: "User input",
		Long:  `Send user input to a node. The response is delivered on the node's IO layer.`,
	}

	sendCmd := &cobra.Command{
		Use:   "send <text>...",
		Short: "Send input",
		Long: `Queue a user input for the next tick.

Examples:
  cortex-cli input send "what is federated learning?"`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) == 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			if err := csdk.SendInput(strings.Join(args, " ")); err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logOKCmd(*cmd)
		},
	}

	cmd.AddCommand(sendCmd)

	return cmd
}
