package cortexd

import (
	"context"
	"log/slog"

	"github.com/absmach/cortex"
	"github.com/absmach/cortex/daemon"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func NewNodeCmd() *cobra.Command {
	cfg, err := daemon.DefaultConfig()
	if err != nil {
		slog.Error("failed to load default configuration", slog.Any("error", err))
	}
	var configPath string

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start node",
		Long: `Start a node daemon.

Settings are taken from the defaults, then from the --config file (TOML or
YAML), then from explicitly set flags.

Examples:
  # Start a node with detected tier and the template engine
  cortexd node start

  # Start from a config file, overriding the privacy preset
  cortexd node start --config cortex.toml --privacy strong`,
		Run: func(cmd *cobra.Command, _ []string) {
			if configPath != "" {
				if err := loadFile(cmd.Flags(), &cfg, configPath); err != nil {
					logErrorCmd(*cmd, err)

					return
				}
			}
			if err := cfg.Validate(); err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			if err := daemon.Start(ctx, cancel, cfg); err != nil {
				slog.Error("failed to start node", slog.String("error", err.Error()))
			}
		},
	}

	flags := startCmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "Config file (.toml, .yaml or .yml)")
	flags.StringVarP(&cfg.LogLevel, "log-level", "l", cfg.LogLevel, "Log level")
	flags.StringVarP(&cfg.Node.NodeID, "id", "i", cfg.Node.NodeID, "Node ID, generated when empty")
	flags.StringVarP(&cfg.Tier, "tier", "t", cfg.Tier, "Node tier: auto, heavy-gpu, heavy-cpu, desktop or mobile")
	flags.Uint64Var(&cfg.GPUVRAMMB, "gpu-vram-mb", cfg.GPUVRAMMB, "Dedicated GPU memory in MB, 0 without a GPU")
	flags.DurationVar(&cfg.TickInterval, "tick-interval", cfg.TickInterval, "Tick interval")
	flags.DurationVar(&cfg.Node.CallTimeout, "call-timeout", cfg.Node.CallTimeout, "Timeout of inference and delivery calls, 0 for none")
	flags.StringVarP(&cfg.Engine, "engine", "e", cfg.Engine, "Inference engine: template or wasm")
	flags.StringVar(&cfg.WASM.ModulePath, "wasm-module", cfg.WASM.ModulePath, "WASM inference module")
	flags.BoolVar(&cfg.StrictPolicy, "strict", cfg.StrictPolicy, "Strict safety policy")
	flags.StringVar(&cfg.PolicyRulesFile, "policy-rules", cfg.PolicyRulesFile, "JSON policy rules file")
	flags.StringVar(&cfg.IO, "io", cfg.IO, "User IO layer: stdio, mqtt or none")
	flags.StringVar(&cfg.ThrottlePreset, "throttle", cfg.ThrottlePreset, "Throttle preset: auto, heavy, desktop or mobile")
	flags.StringVarP(&cfg.PrivacyPreset, "privacy", "p", cfg.PrivacyPreset, "Privacy preset: strong, moderate or weak")
	flags.Float32Var(&cfg.EpsilonBudget, "epsilon-budget", cfg.EpsilonBudget, "Total privacy budget of a session")
	flags.StringVar(&cfg.SessionSchedule, "session-schedule", cfg.SessionSchedule, "Cron schedule rotating the training session")
	flags.StringVar(&cfg.FL.DatasetPath, "dataset", cfg.FL.DatasetPath, "CSV training dataset, synthetic when empty")
	flags.StringVarP(&cfg.Storage.Type, "storage", "s", cfg.Storage.Type, "Storage backend: memory, badger, sqlite or postgres")
	flags.BoolVar(&cfg.MQTTEnabled, "mqtt", cfg.MQTTEnabled, "Connect to the MQTT broker")
	flags.StringVarP(&cfg.MQTT.Address, "mqtt-address", "m", cfg.MQTT.Address, "MQTT broker address")
	flags.StringVar(&cfg.Server.Port, "http-port", cfg.Server.Port, "HTTP API port")

	cmd := &cobra.Command{
		Use:   "node [start]",
		Short: "Node management",
		Long:  `Run a Cortex edge node.`,
	}
	cmd.AddCommand(startCmd)

	return cmd
}

// loadFile applies the config file to cfg, keeping flags set on the
// command line.
func loadFile(flags *pflag.FlagSet, cfg *daemon.Config, path string) error {
	file, err := cortex.LoadConfig(path)
	if err != nil {
		return err
	}

	changed := map[string]string{}
	flags.Visit(func(f *pflag.Flag) {
		changed[f.Name] = f.Value.String()
	})

	if err := applyFile(cfg, file); err != nil {
		return err
	}

	for name, value := range changed {
		if err := flags.Set(name, value); err != nil {
			return err
		}
	}

	return nil
}

func applyFile(cfg *daemon.Config, file *cortex.Config) error {
	tick, call, mqttTimeout, err := file.Durations()
	if err != nil {
		return err
	}

	n := file.Node
	cfg.Node.NodeID = n.ID
	cfg.Tier = n.Tier
	cfg.GPUVRAMMB = n.GPUVRAMMB
	cfg.LogLevel = n.LogLevel
	if tick > 0 {
		cfg.TickInterval = tick
	}
	cfg.Node.CallTimeout = call
	cfg.Node.MaxQueuedPerTick = n.MaxQueuedPerTick
	cfg.Engine = n.Engine
	cfg.WASM.ModulePath = n.WASMModule
	cfg.StrictPolicy = n.StrictPolicy
	cfg.PolicyRulesFile = n.PolicyRulesFile
	cfg.IO = n.IO
	cfg.IOBuffer = n.IOBuffer
	cfg.MonitoringProfile = n.MonitoringProfile
	cfg.Server.Host = n.HTTPHost
	cfg.Server.Port = n.HTTPPort

	s := file.Scheduler
	cfg.Node.Scheduler.MaxBudgetPerTick = s.MaxBudgetPerTick
	cfg.Node.Scheduler.TrainingEvery = s.TrainingEvery
	cfg.Node.Scheduler.DeltaEvery = s.DeltaEvery
	cfg.Node.Scheduler.MetricsEvery = s.MetricsEvery
	cfg.Node.Scheduler.SnapshotEvery = s.SnapshotEvery
	cfg.Node.Scheduler.UpdateCheckEvery = s.UpdateCheckEvery

	cfg.ThrottlePreset = file.Throttle.Preset

	p := file.Privacy
	cfg.PrivacyPreset = p.Preset
	cfg.LearningRate = p.LearningRate
	cfg.EpsilonBudget = p.EpsilonBudget
	cfg.FL.Enabled = p.Training
	cfg.FL.DatasetPath = p.DatasetPath
	cfg.SessionSchedule = p.SessionSchedule
	cfg.SessionTimezone = p.SessionTimezone

	st := file.Storage
	cfg.Storage.Type = st.Type
	cfg.Storage.SQLitePath = st.SQLitePath
	cfg.Storage.BadgerPath = st.BadgerPath
	if st.PostgresHost != "" {
		cfg.Storage.Postgres.Host = st.PostgresHost
	}
	if st.PostgresPort != "" {
		cfg.Storage.Postgres.Port = st.PostgresPort
	}
	if st.PostgresName != "" {
		cfg.Storage.Postgres.Name = st.PostgresName
	}
	cfg.Storage.ObjectStore.Endpoint = st.ObjectStoreEndpoint
	cfg.Storage.ObjectStore.Bucket = st.ObjectStoreBucket

	cfg.MQTTEnabled = file.MQTT.Enabled
	cfg.MQTT.Address = file.MQTT.Address
	cfg.MQTT.QoS = file.MQTT.QoS
	if mqttTimeout > 0 {
		cfg.MQTT.Timeout = mqttTimeout
	}

	return nil
}
