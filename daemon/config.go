// Package daemon assembles a node from its configuration and runs it
// until the context is cancelled or a stop signal arrives.
package daemon

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/absmach/cortex/node"
	pkgerrors "github.com/absmach/cortex/pkg/errors"
	"github.com/absmach/cortex/pkg/fl"
	"github.com/absmach/cortex/pkg/inference/template"
	"github.com/absmach/cortex/pkg/inference/wasm"
	"github.com/absmach/cortex/pkg/mqtt"
	"github.com/absmach/cortex/pkg/server"
	"github.com/absmach/cortex/pkg/storage/factory"
	"github.com/absmach/cortex/pkg/update"
	"github.com/caarlos0/env/v11"
)

const (
	EngineTemplate = "template"
	EngineWASM     = "wasm"

	IOStdio = "stdio"
	IOMQTT  = "mqtt"
	IONone  = "none"

	TierAuto = "auto"
)

// Config carries every setting of a node daemon. Env tags are relative;
// callers parse it with a prefix such as CORTEX_.
type Config struct {
	LogLevel     string        `env:"LOG_LEVEL"     envDefault:"info"`
	InstanceID   string        `env:"INSTANCE_ID"   envDefault:""`
	TickInterval time.Duration `env:"TICK_INTERVAL" envDefault:"100ms"`
	// Tier is a tier name or "auto" to classify the detected hardware.
	Tier      string `env:"TIER"        envDefault:"auto"`
	GPUVRAMMB uint64 `env:"GPU_VRAM_MB" envDefault:"0"`

	ThrottlePreset string  `env:"THROTTLE_PRESET" envDefault:"auto"`
	PrivacyPreset  string  `env:"PRIVACY_PRESET"  envDefault:"moderate"`
	LearningRate   float32 `env:"LEARNING_RATE"   envDefault:"0.01"`
	EpsilonBudget  float32 `env:"EPSILON_BUDGET"  envDefault:"10"`

	SessionSchedule string `env:"SESSION_SCHEDULE" envDefault:""`
	SessionTimezone string `env:"SESSION_TIMEZONE" envDefault:"UTC"`

	Engine          string `env:"ENGINE"            envDefault:"template"`
	StrictPolicy    bool   `env:"STRICT_POLICY"     envDefault:"false"`
	PolicyRulesFile string `env:"POLICY_RULES_FILE" envDefault:""`

	IO                string `env:"IO"                 envDefault:"stdio"`
	IOBuffer          int    `env:"IO_BUFFER"          envDefault:"64"`
	MonitoringProfile string `env:"MONITORING_PROFILE" envDefault:"standard"`
	MQTTEnabled       bool   `env:"MQTT_ENABLED"       envDefault:"false"`

	OTELURL    url.URL `env:"OTEL_URL"`
	TraceRatio float64 `env:"TRACE_RATIO" envDefault:"0"`

	Node     node.Config     `envPrefix:"NODE_"`
	Server   server.Config   `envPrefix:"HTTP_"`
	MQTT     mqtt.Config     `envPrefix:"MQTT_"`
	Storage  factory.Config  `envPrefix:"STORAGE_"`
	FL       fl.Config       `envPrefix:"FL_"`
	Template template.Config `envPrefix:"TEMPLATE_"`
	WASM     wasm.Config     `envPrefix:"WASM_"`
	Update   update.Config   `envPrefix:"UPDATE_"`
}

// DefaultConfig returns the tag defaults, ignoring the process environment.
func DefaultConfig() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: map[string]string{}}); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the settings Start cannot recover from. Presets, the
// tier and the cron schedule are checked while they are resolved.
func (c Config) Validate() error {
	switch {
	case c.TickInterval <= 0:
		return errors.Join(pkgerrors.ErrInvalidConfig, errors.New("tick interval must be positive"))
	case c.IOBuffer <= 0:
		return errors.Join(pkgerrors.ErrInvalidConfig, errors.New("io buffer must be positive"))
	case c.LearningRate <= 0:
		return errors.Join(pkgerrors.ErrInvalidConfig, errors.New("learning rate must be positive"))
	case c.EpsilonBudget < 0:
		return errors.Join(pkgerrors.ErrInvalidConfig, errors.New("epsilon budget must not be negative"))
	}

	switch c.Engine {
	case EngineTemplate:
	case EngineWASM:
		if c.WASM.ModulePath == "" {
			return errors.Join(pkgerrors.ErrInvalidConfig, errors.New("wasm engine requires a module path"))
		}
	default:
		return errors.Join(pkgerrors.ErrInvalidConfig, fmt.Errorf("unknown engine %q", c.Engine))
	}

	switch c.IO {
	case IOStdio, IONone:
	case IOMQTT:
		if !c.MQTTEnabled {
			return errors.Join(pkgerrors.ErrInvalidConfig, errors.New("mqtt io requires mqtt to be enabled"))
		}
	default:
		return errors.Join(pkgerrors.ErrInvalidConfig, fmt.Errorf("unknown io layer %q", c.IO))
	}

	return nil
}
