package cli

import "github.com/spf13/cobra"

var privacyCmd = []cobra.Command{
	{
		Use:   "view",
		Short: "View privacy budget",
		Long:  `View the differential privacy budget of the node.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			p, err := csdk.Privacy()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, p)
		},
	},
	{
		Use:   "reset",
		Short: "Reset privacy budget",
		Long:  `Reset the privacy accountant of the node, starting a new budget.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			p, err := csdk.ResetPrivacy()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logOKCmd(*cmd)
			logJSONCmd(*cmd, p)
		},
	},
}

func NewPrivacyCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "privacy [view|reset]",
		Short: "Privacy budget",
		Long:  `View or reset the privacy budget of a node.`,
	}

	for i := range privacyCmd {
		cmd.AddCommand(&privacyCmd[i])
	}

	return &cmd
}
