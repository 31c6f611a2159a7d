package cortexd

import (
	"fmt"
	"os"

	"github.com/absmach/cortex/pkg/fl"
	"github.com/spf13/cobra"
)

type deltaSummary struct {
	ID         string  `json:"id"`
	NodeID     string  `json:"node_id"`
	RoundIndex uint32  `json:"round_index"`
	Params     int     `json:"params"`
	NumSamples uint64  `json:"num_samples"`
	Epsilon    float32 `json:"epsilon"`
}

func summarize(d fl.Delta) deltaSummary {
	return deltaSummary{
		ID:         d.ID,
		NodeID:     d.NodeID,
		RoundIndex: d.RoundIndex,
		Params:     len(d.Params),
		NumSamples: d.NumSamples,
		Epsilon:    d.Epsilon,
	}
}

func readDelta(path string) (fl.Delta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fl.Delta{}, fmt.Errorf("failed to read delta %s: %w", path, err)
	}

	return fl.DecodeDelta(data)
}

func NewDeltaCmd() *cobra.Command {
	var out string

	inspectCmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Inspect delta",
		Long:  `Decode a CBOR encoded model delta and print it.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			d, err := readDelta(args[0])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, d)
		},
	}

	aggregateCmd := &cobra.Command{
		Use:   "aggregate <file>...",
		Short: "Aggregate deltas",
		Long: `Average CBOR encoded model deltas weighted by their sample counts.

Examples:
  cortexd delta aggregate node-a.cbor node-b.cbor --out global.cbor`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) == 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			deltas := make([]fl.Delta, 0, len(args))
			for _, path := range args {
				d, err := readDelta(path)
				if err != nil {
					logErrorCmd(*cmd, err)

					return
				}
				deltas = append(deltas, d)
			}

			global, err := fl.FedAvg(deltas)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			if out != "" {
				data, err := fl.EncodeDelta(global)
				if err != nil {
					logErrorCmd(*cmd, err)

					return
				}
				if err := os.WriteFile(out, data, 0o600); err != nil {
					logErrorCmd(*cmd, err)

					return
				}
			}
			logJSONCmd(*cmd, summarize(global))
		},
	}
	aggregateCmd.Flags().StringVarP(&out, "out", "o", "", "Write the aggregated delta to this file")

	cmd := &cobra.Command{
		Use:   "delta [inspect|aggregate]",
		Short: "Model deltas",
		Long:  `Inspect and aggregate federated learning deltas.`,
	}
	cmd.AddCommand(inspectCmd, aggregateCmd)

	return cmd
}
