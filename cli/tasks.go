package cli

import (
	"github.com/spf13/cobra"
)

func NewTasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks [enqueue]",
		Short: "Node tasks",
		Long:  `Queue tasks on the scheduler of a node.`,
	}

	enqueueCmd := &cobra.Command{
		Use:   "enqueue <kind>",
		Short: "Enqueue task",
		Long: `Enqueue a task instance on its lane. It runs on a later tick when
the throttle allows its lane.

Kinds: user_inference, policy_evaluation, user_delivery, local_training,
delta_computation, delta_submission, metrics_sampling, snapshot_creation,
update_check, adaptive_rule_application.

Examples:
  cortex-cli tasks enqueue snapshot_creation`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			t, err := csdk.EnqueueTask(args[0])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, t)
		},
	}

	cmd.AddCommand(enqueueCmd)

	return cmd
}
