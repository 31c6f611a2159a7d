package cli

import (
	"errors"
	"strconv"

	"github.com/absmach/cortex"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var (
	errEmptyPath     = errors.New("config path is required")
	errInvalidBudget = errors.New("epsilon budget must be a non-negative number")
)

func NewConfigCmd() *cobra.Command {
	var (
		path     string
		defaults bool
	)

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create config file",
		Long: `Create a node config file interactively. With --defaults the
defaults are written without prompting.

Examples:
  cortex-cli config init --path cortex.toml`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}
			if path == "" {
				logErrorCmd(*cmd, errEmptyPath)

				return
			}

			cfg := cortex.DefaultConfig()
			if !defaults {
				if err := configForm(&cfg).Run(); err != nil {
					logErrorCmd(*cmd, err)

					return
				}
			}

			if err := cortex.SaveConfig(path, cfg); err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logOKCmd(*cmd)
		},
	}
	initCmd.Flags().StringVarP(&path, "path", "p", "cortex.toml", "Config file to write")
	initCmd.Flags().BoolVar(&defaults, "defaults", false, "Write the defaults without prompting")

	cmd := &cobra.Command{
		Use:   "config [init]",
		Short: "Node configuration",
		Long:  `Manage node config files.`,
	}
	cmd.AddCommand(initCmd)

	return cmd
}

func configForm(cfg *cortex.Config) *huh.Form {
	budget := strconv.FormatFloat(float64(cfg.Privacy.EpsilonBudget), 'f', -1, 32)

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Node ID").
				Description("Leave empty to generate a name.").
				Value(&cfg.Node.ID),
			huh.NewSelect[string]().
				Title("Tier").
				Options(huh.NewOptions("auto", "heavy-gpu", "heavy-cpu", "desktop", "mobile")...).
				Value(&cfg.Node.Tier),
			huh.NewSelect[string]().
				Title("Inference engine").
				Options(huh.NewOptions("template", "wasm")...).
				Value(&cfg.Node.Engine),
			huh.NewSelect[string]().
				Title("User IO").
				Options(huh.NewOptions("stdio", "mqtt", "none")...).
				Value(&cfg.Node.IO),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable local training?").
				Value(&cfg.Privacy.Training),
			huh.NewSelect[string]().
				Title("Privacy preset").
				Options(huh.NewOptions("strong", "moderate", "weak")...).
				Value(&cfg.Privacy.Preset),
			huh.NewInput().
				Title("Epsilon budget").
				Value(&budget).
				Validate(func(s string) error {
					v, err := strconv.ParseFloat(s, 32)
					if err != nil || v < 0 {
						return errInvalidBudget
					}
					cfg.Privacy.EpsilonBudget = float32(v)

					return nil
				}),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Storage").
				Options(huh.NewOptions("memory", "badger", "sqlite", "postgres")...).
				Value(&cfg.Storage.Type),
			huh.NewConfirm().
				Title("Connect to an MQTT broker?").
				Value(&cfg.MQTT.Enabled),
			huh.NewInput().
				Title("MQTT address").
				Value(&cfg.MQTT.Address),
		),
	)
}
