package cortexd

import (
	"github.com/absmach/cortex/pkg/dp"
	"github.com/spf13/cobra"
)

type noise struct {
	Preset string    `json:"preset,omitempty"`
	Config dp.Config `json:"mechanism"`
	Sigma  float32   `json:"sigma"`
}

func NewPrivacyCmd() *cobra.Command {
	var custom dp.Config

	noiseCmd := &cobra.Command{
		Use:   "noise [strong|moderate|weak]",
		Short: "Print noise scale",
		Long: `Print the Gaussian noise scale of a privacy preset, or of an explicit
mechanism given by --epsilon, --delta and --clip.

Examples:
  cortexd privacy noise strong
  cortexd privacy noise --epsilon 2 --delta 1e-6 --clip 0.5`,
		Run: func(cmd *cobra.Command, args []string) {
			var res noise
			switch len(args) {
			case 0:
				res.Config = custom
			case 1:
				cfg, err := dp.Preset(args[0])
				if err != nil {
					logErrorCmd(*cmd, err)

					return
				}
				res.Preset = args[0]
				res.Config = cfg
			default:
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			if err := res.Config.Validate(); err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			res.Sigma = res.Config.NoiseScale()
			logJSONCmd(*cmd, res)
		},
	}

	def := dp.Moderate()
	noiseCmd.Flags().Float32Var(&custom.Epsilon, "epsilon", def.Epsilon, "Privacy loss per round")
	noiseCmd.Flags().Float32Var(&custom.Delta, "delta", def.Delta, "Failure probability")
	noiseCmd.Flags().Float32Var(&custom.MaxGradNorm, "clip", def.MaxGradNorm, "Gradient clipping norm")

	cmd := &cobra.Command{
		Use:   "privacy [noise]",
		Short: "Differential privacy",
		Long:  `Inspect differential privacy settings.`,
	}
	cmd.AddCommand(noiseCmd)

	return cmd
}
