package cortexd

import (
	"io"
	"log/slog"

	"github.com/absmach/cortex/daemon"
	"github.com/absmach/cortex/pkg/profile"
	"github.com/absmach/cortex/pkg/throttle"
	"github.com/spf13/cobra"
)

type detection struct {
	Tier         profile.Tier         `json:"tier"`
	Capabilities profile.Capabilities `json:"capabilities"`
	CanTrain     bool                 `json:"can_train"`
	ComputePower float64              `json:"compute_power"`
	MaxWorkers   int                  `json:"max_parallel_workers"`
	Throttle     throttle.Config      `json:"throttle"`
}

func NewProfileCmd() *cobra.Command {
	var gpuVRAMMB uint64

	detectCmd := &cobra.Command{
		Use:   "detect",
		Short: "Detect node tier",
		Long:  `Detect the host capabilities and print the tier and throttle preset a node would use.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			tier, caps, err := daemon.ResolveTier(cmd.Context(), daemon.TierAuto, gpuVRAMMB, logger)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			logJSONCmd(*cmd, detection{
				Tier:         tier,
				Capabilities: caps,
				CanTrain:     tier.CanTrain(),
				ComputePower: tier.ComputePower(),
				MaxWorkers:   tier.MaxParallelWorkers(),
				Throttle:     throttle.ForProfile(tier),
			})
		},
	}
	detectCmd.Flags().Uint64Var(&gpuVRAMMB, "gpu-vram-mb", 0, "Dedicated GPU memory in MB")

	cmd := &cobra.Command{
		Use:   "profile [detect]",
		Short: "Hardware profile",
		Long:  `Inspect the hardware profile of this host.`,
	}
	cmd.AddCommand(detectCmd)

	return cmd
}
