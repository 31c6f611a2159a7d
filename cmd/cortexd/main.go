package main

import (
	"log"

	"github.com/absmach/cortex/cortexd"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cortexd",
		Short: "Cortex Daemon",
		Long:  `Cortex Daemon runs an edge node and inspects its hardware profile, privacy settings and model deltas.`,
	}

	rootCmd.AddCommand(
		cortexd.NewNodeCmd(),
		cortexd.NewProfileCmd(),
		cortexd.NewPrivacyCmd(),
		cortexd.NewDeltaCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
