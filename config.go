// Package cortex holds the file configuration of a node. Durations are
// kept as strings so that TOML and YAML files share one layout.
package cortex

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"
)

var ErrUnsupportedFormat = errors.New("unsupported config file format")

type Config struct {
	Node      NodeConfig      `toml:"node"      yaml:"node"`
	Scheduler SchedulerConfig `toml:"scheduler" yaml:"scheduler"`
	Throttle  ThrottleConfig  `toml:"throttle"  yaml:"throttle"`
	Privacy   PrivacyConfig   `toml:"privacy"   yaml:"privacy"`
	Storage   StorageConfig   `toml:"storage"   yaml:"storage"`
	MQTT      MQTTConfig      `toml:"mqtt"      yaml:"mqtt"`
}

type NodeConfig struct {
	ID                string `toml:"id"                 yaml:"id"`
	Tier              string `toml:"tier"               yaml:"tier"`
	GPUVRAMMB         uint64 `toml:"gpu_vram_mb"        yaml:"gpu_vram_mb"`
	LogLevel          string `toml:"log_level"          yaml:"log_level"`
	TickInterval      string `toml:"tick_interval"      yaml:"tick_interval"`
	CallTimeout       string `toml:"call_timeout"       yaml:"call_timeout"`
	MaxQueuedPerTick  int    `toml:"max_queued_per_tick" yaml:"max_queued_per_tick"`
	Engine            string `toml:"engine"             yaml:"engine"`
	WASMModule        string `toml:"wasm_module"        yaml:"wasm_module"`
	StrictPolicy      bool   `toml:"strict_policy"      yaml:"strict_policy"`
	PolicyRulesFile   string `toml:"policy_rules_file"  yaml:"policy_rules_file"`
	IO                string `toml:"io"                 yaml:"io"`
	IOBuffer          int    `toml:"io_buffer"          yaml:"io_buffer"`
	MonitoringProfile string `toml:"monitoring_profile" yaml:"monitoring_profile"`
	HTTPHost          string `toml:"http_host"          yaml:"http_host"`
	HTTPPort          string `toml:"http_port"          yaml:"http_port"`
}

type SchedulerConfig struct {
	MaxBudgetPerTick float64 `toml:"max_budget_per_tick" yaml:"max_budget_per_tick"`
	TrainingEvery    uint64  `toml:"training_every"      yaml:"training_every"`
	DeltaEvery       uint64  `toml:"delta_every"         yaml:"delta_every"`
	MetricsEvery     uint64  `toml:"metrics_every"       yaml:"metrics_every"`
	SnapshotEvery    uint64  `toml:"snapshot_every"      yaml:"snapshot_every"`
	UpdateCheckEvery uint64  `toml:"update_check_every"  yaml:"update_check_every"`
}

type ThrottleConfig struct {
	// Preset is auto, heavy, desktop or mobile.
	Preset string `toml:"preset" yaml:"preset"`
}

type PrivacyConfig struct {
	// Preset is strong, moderate or weak.
	Preset          string  `toml:"preset"           yaml:"preset"`
	LearningRate    float32 `toml:"learning_rate"    yaml:"learning_rate"`
	EpsilonBudget   float32 `toml:"epsilon_budget"   yaml:"epsilon_budget"`
	Training        bool    `toml:"training"         yaml:"training"`
	DatasetPath     string  `toml:"dataset_path"     yaml:"dataset_path"`
	SessionSchedule string  `toml:"session_schedule" yaml:"session_schedule"`
	SessionTimezone string  `toml:"session_timezone" yaml:"session_timezone"`
}

// StorageConfig carries no secrets; passwords and keys come from the
// environment.
type StorageConfig struct {
	Type                string `toml:"type"                  yaml:"type"`
	SQLitePath          string `toml:"sqlite_path"           yaml:"sqlite_path"`
	BadgerPath          string `toml:"badger_path"           yaml:"badger_path"`
	PostgresHost        string `toml:"postgres_host"         yaml:"postgres_host"`
	PostgresPort        string `toml:"postgres_port"         yaml:"postgres_port"`
	PostgresName        string `toml:"postgres_name"         yaml:"postgres_name"`
	ObjectStoreEndpoint string `toml:"object_store_endpoint" yaml:"object_store_endpoint"`
	ObjectStoreBucket   string `toml:"object_store_bucket"   yaml:"object_store_bucket"`
}

type MQTTConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	Address string `toml:"address" yaml:"address"`
	QoS     uint8  `toml:"qos"     yaml:"qos"`
	Timeout string `toml:"timeout" yaml:"timeout"`
}

func DefaultConfig() Config {
	return Config{
		Node: NodeConfig{
			Tier:              "auto",
			LogLevel:          "info",
			TickInterval:      "100ms",
			CallTimeout:       "2s",
			MaxQueuedPerTick:  4,
			Engine:            "template",
			IO:                "stdio",
			IOBuffer:          64,
			MonitoringProfile: "standard",
			HTTPHost:          "localhost",
			HTTPPort:          "7080",
		},
		Scheduler: SchedulerConfig{
			MaxBudgetPerTick: 0.9,
			TrainingEvery:    10,
			DeltaEvery:       100,
			MetricsEvery:     1_000,
			SnapshotEvery:    10_000,
			UpdateCheckEvery: 50_000,
		},
		Throttle: ThrottleConfig{Preset: "auto"},
		Privacy: PrivacyConfig{
			Preset:          "moderate",
			LearningRate:    0.01,
			EpsilonBudget:   10,
			Training:        true,
			SessionTimezone: "UTC",
		},
		Storage: StorageConfig{
			Type:              "memory",
			SQLitePath:        "./cortex.db",
			BadgerPath:        "./data/badger",
			ObjectStoreBucket: "cortex-snapshots",
		},
		MQTT: MQTTConfig{
			Address: "tcp://localhost:1883",
			QoS:     1,
			Timeout: "30s",
		},
	}
}

// LoadConfig reads a TOML or YAML file, chosen by extension, on top of
// the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg := DefaultConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		tree, err := toml.Load(string(data))
		if err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
		if err := tree.Unmarshal(&cfg); err != nil {
			return nil, fmt.Errorf("error unmarshaling config: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("error unmarshaling config: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}

	return &cfg, nil
}

// SaveConfig writes cfg as TOML.
func SaveConfig(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("error creating config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// Durations parses the tick interval, the call timeout and the MQTT
// timeout. Empty values parse as zero.
func (c Config) Durations() (tick, call, mqtt time.Duration, err error) {
	if tick, err = parseDuration("node.tick_interval", c.Node.TickInterval); err != nil {
		return 0, 0, 0, err
	}
	if call, err = parseDuration("node.call_timeout", c.Node.CallTimeout); err != nil {
		return 0, 0, 0, err
	}
	if mqtt, err = parseDuration("mqtt.timeout", c.MQTT.Timeout); err != nil {
		return 0, 0, 0, err
	}

	return tick, call, mqtt, nil
}

func parseDuration(field, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", field, err)
	}

	return d, nil
}
