package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/0x6flab/namegenerator"
	"github.com/absmach/cortex/node"
	"github.com/absmach/cortex/node/api"
	"github.com/absmach/cortex/node/middleware"
	"github.com/absmach/cortex/pkg/cron"
	"github.com/absmach/cortex/pkg/dp"
	"github.com/absmach/cortex/pkg/fl"
	"github.com/absmach/cortex/pkg/inference/template"
	"github.com/absmach/cortex/pkg/inference/wasm"
	"github.com/absmach/cortex/pkg/jaeger"
	"github.com/absmach/cortex/pkg/monitoring"
	"github.com/absmach/cortex/pkg/mqtt"
	"github.com/absmach/cortex/pkg/observer"
	"github.com/absmach/cortex/pkg/policy"
	"github.com/absmach/cortex/pkg/profile"
	"github.com/absmach/cortex/pkg/prometheus"
	"github.com/absmach/cortex/pkg/server"
	httpserver "github.com/absmach/cortex/pkg/server/http"
	"github.com/absmach/cortex/pkg/storage"
	"github.com/absmach/cortex/pkg/storage/factory"
	"github.com/absmach/cortex/pkg/throttle"
	"github.com/absmach/cortex/pkg/trainer"
	"github.com/absmach/cortex/pkg/update"
	"github.com/absmach/cortex/pkg/userio"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"
)

const (
	svcName         = "cortex"
	shutdownTimeout = 5 * time.Second
)

// NewLogger builds the JSON logger of a daemon and makes it the default.
func NewLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("failed to parse log level: %s", err.Error())
	}
	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
	})
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	return logger, nil
}

// ResolveTier returns the named tier, or classifies the detected
// hardware when name is empty or "auto".
func ResolveTier(ctx context.Context, name string, gpuVRAMMB uint64, logger *slog.Logger) (profile.Tier, profile.Capabilities, error) {
	if name == "" || name == TierAuto {
		caps := profile.Detect(ctx, gpuVRAMMB, logger)

		return caps.Classify(), caps, nil
	}

	tier, err := profile.ParseTier(name)
	if err != nil {
		return 0, profile.Capabilities{}, err
	}

	return tier, profile.Capabilities{}, nil
}

// NodeName returns id, or a generated name when id is empty.
func NodeName(id string) string {
	if id != "" {
		return id
	}

	return namegenerator.NewGenerator().Generate()
}

// TrainerConfig combines a privacy preset with the learning rate and the
// epsilon budget.
func TrainerConfig(preset string, learningRate, budget float32) (trainer.Config, error) {
	dpCfg, err := dp.Preset(preset)
	if err != nil {
		return trainer.Config{}, err
	}
	cfg := trainer.FromDP(dpCfg, learningRate, budget)
	if err := cfg.Validate(); err != nil {
		return trainer.Config{}, err
	}

	return cfg, nil
}

// Start builds the node described by cfg and blocks until it stops.
func Start(ctx context.Context, cancel context.CancelFunc, cfg Config) error {
	g, ctx := errgroup.WithContext(ctx)

	logger, err := NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}
	nodeID := NodeName(cfg.Node.NodeID)

	tier, caps, err := ResolveTier(ctx, cfg.Tier, cfg.GPUVRAMMB, logger)
	if err != nil {
		return err
	}
	logger.Info("resolved node tier",
		slog.String("node_id", nodeID),
		slog.String("tier", tier.String()),
		slog.Int("cpu_cores", caps.CPUCores),
		slog.Uint64("ram_mb", caps.RAMMB),
	)

	throttleCfg, err := throttle.Preset(cfg.ThrottlePreset, tier)
	if err != nil {
		return err
	}
	trainerCfg, err := TrainerConfig(cfg.PrivacyPreset, cfg.LearningRate, cfg.EpsilonBudget)
	if err != nil {
		return err
	}

	var tp trace.TracerProvider
	switch {
	case cfg.OTELURL == (url.URL{}):
		tp = noop.NewTracerProvider()
	default:
		sdktp, err := jaeger.NewProvider(ctx, svcName, cfg.OTELURL, cfg.InstanceID, cfg.TraceRatio)
		if err != nil {
			return fmt.Errorf("failed to initialize opentelemetry: %s", err.Error())
		}
		defer func() {
			if err := sdktp.Shutdown(context.Background()); err != nil {
				slog.Error("error shutting down tracer provider", slog.Any("error", err))
			}
		}()
		tp = sdktp
	}
	tracer := tp.Tracer(svcName)

	repos, err := factory.NewRepositories(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize %s storage: %w", cfg.Storage.Type, err)
	}
	if repos.Closer != nil {
		defer func() {
			if err := repos.Closer.Close(); err != nil {
				logger.Error("failed to close storage", slog.Any("error", err))
			}
		}()
	}

	session, err := newSession(ctx, cfg, nodeID, tier, trainerCfg, repos.Snapshots, logger)
	if err != nil {
		return err
	}

	var pubsub mqtt.PubSub
	if cfg.MQTTEnabled {
		pubsub, err = mqtt.NewPubSub(cfg.MQTT, nodeID, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize mqtt pubsub: %s", err.Error())
		}
		defer func() {
			dctx, dcancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer dcancel()
			if err := pubsub.Disconnect(dctx); err != nil {
				logger.Error("failed to disconnect from mqtt broker", slog.Any("error", err))
			}
		}()
	}

	ioLayer, runIO, err := newIO(ctx, cfg, nodeID, pubsub)
	if err != nil {
		return err
	}

	engine, closeEngine, err := newEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeEngine()

	var policyOpts []policy.Option
	if cfg.PolicyRulesFile != "" {
		policyOpts = append(policyOpts, policy.WithRulesFile(cfg.PolicyRulesFile))
	}
	pol := policy.New(cfg.StrictPolicy, policyOpts...)
	if err := pol.ApplyRules(ctx); err != nil {
		return fmt.Errorf("failed to load policy rules: %w", err)
	}

	var updates node.UpdateChecker = update.Noop{Version: cfg.Update.CurrentVersion}
	if cfg.Update.RegistryURL != "" {
		registry, err := update.NewRegistry(cfg.Update)
		if err != nil {
			return fmt.Errorf("failed to initialize update registry: %w", err)
		}
		updates = registry
	}

	monitorProfile, err := monitoring.ProfileByName(cfg.MonitoringProfile)
	if err != nil {
		return err
	}
	monitor, err := monitoring.NewProcessMonitor(int32(os.Getpid()), monitorProfile)
	if err != nil {
		return fmt.Errorf("failed to initialize process monitor: %w", err)
	}

	observers := []observer.Observer{
		observer.NewPrometheus(svcName),
		observer.NewRecorder(repos.Rounds, nodeID, logger),
	}

	deps := node.Deps{
		Engine:    engine,
		Policy:    pol,
		IO:        ioLayer,
		Learner:   session,
		Snapshots: node.NewSnapshotStore(repos.Snapshots),
		Updates:   updates,
		Sampler:   monitor,
		Rules:     pol,
	}
	if pubsub != nil {
		deps.Submitter = fl.NewMQTTSubmitter(pubsub, nodeID)
		observers = append(observers, observer.NewMQTT(pubsub, nodeID, logger))
	}
	deps.Observer = observer.Fanout(observers...)

	nodeCfg := cfg.Node
	nodeCfg.NodeID = nodeID
	nodeCfg.Tier = tier
	nodeCfg.Throttle = throttleCfg
	nodeCfg.AutoThrottle = throttle.IsAuto(cfg.ThrottlePreset)

	svc, err := node.NewService(nodeCfg, deps, logger)
	if err != nil {
		return err
	}
	svc = middleware.Logging(logger, svc)
	svc = middleware.Tracing(tracer, svc)
	counter, latency := prometheus.MakeMetrics(svcName, "api")
	svc = middleware.Metrics(counter, latency, svc)

	hs := httpserver.NewServer(ctx, cancel, svcName, cfg.Server, api.MakeHandler(svc, logger, cfg.InstanceID), logger)

	g.Go(func() error {
		return hs.Start()
	})

	g.Go(func() error {
		return node.Run(ctx, svc, cfg.TickInterval, logger)
	})

	if runIO != nil {
		g.Go(func() error {
			return runIO(ctx)
		})
	}

	if cfg.SessionSchedule != "" {
		schedule, err := cron.ParseCronExpression(cfg.SessionSchedule)
		if err != nil {
			return err
		}
		rotator := cron.NewRotator(schedule, cfg.SessionTimezone, session.Rotate, logger)
		g.Go(func() error {
			return rotator.Run(ctx)
		})
	}

	g.Go(func() error {
		return server.StopSignalHandler(ctx, cancel, logger, svcName, hs)
	})

	logger.Info("node started",
		slog.String("node_id", nodeID),
		slog.String("engine", cfg.Engine),
		slog.String("io", cfg.IO),
		slog.Bool("training", session.Enabled()),
		slog.Duration("tick_interval", cfg.TickInterval),
	)

	if err := g.Wait(); err != nil {
		logger.Error(fmt.Sprintf("%s service exited with error: %s", svcName, err))
	}

	return nil
}

func newSession(ctx context.Context, cfg Config, nodeID string, tier profile.Tier, trainerCfg trainer.Config, snapshots storage.SnapshotRepository, logger *slog.Logger) (*fl.Session, error) {
	var (
		data *fl.Dataset
		err  error
	)
	switch cfg.FL.DatasetPath {
	case "":
		data, err = fl.Synthetic(cfg.FL.Samples, cfg.FL.Features, cfg.FL.BatchSize, dp.NewCryptoSource())
	default:
		data, err = fl.LoadCSVFile(cfg.FL.DatasetPath, cfg.FL.BatchSize)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load training data: %w", err)
	}

	enabled := cfg.FL.Enabled && tier.CanTrain()
	// Gradient noise is drawn from crypto/rand.
	session := fl.NewSession(nodeID, enabled, cfg.FL.MaxBatches, trainerCfg, fl.NewVectorModel(data.Features()), data, trainer.WithSource(dp.NewCryptoSource()))

	snap, err := snapshots.Latest(ctx, nodeID)
	switch {
	case err == nil:
		if err := session.Restore(snap.Params); err != nil {
			logger.Warn("failed to restore model snapshot", slog.String("snapshot_id", snap.ID), slog.Any("error", err))

			break
		}
		logger.Info("restored model snapshot", slog.String("snapshot_id", snap.ID), slog.Uint64("tick", snap.Tick))
	case errors.Is(err, storage.ErrNotFound):
	default:
		logger.Warn("failed to load latest model snapshot", slog.Any("error", err))
	}

	return session, nil
}

func newIO(ctx context.Context, cfg Config, nodeID string, pubsub mqtt.PubSub) (node.IOLayer, func(context.Context) error, error) {
	switch cfg.IO {
	case IOStdio:
		stream := userio.NewStream(os.Stdin, os.Stdout, cfg.IOBuffer)

		return stream, stream.Run, nil
	case IOMQTT:
		m := userio.NewMQTT(pubsub, nodeID, cfg.IOBuffer)
		if err := m.Start(ctx); err != nil {
			return nil, nil, err
		}
		stop := func(ctx context.Context) error {
			<-ctx.Done()
			sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer scancel()

			return m.Stop(sctx)
		}

		return m, stop, nil
	default:
		return userio.NewQueue(cfg.IOBuffer), nil, nil
	}
}

func newEngine(ctx context.Context, cfg Config) (node.InferenceEngine, func(), error) {
	if cfg.Engine != EngineWASM {
		return template.New(cfg.Template), func() {}, nil
	}

	binary, err := os.ReadFile(cfg.WASM.ModulePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read wasm module: %w", err)
	}
	engine, err := wasm.New(ctx, binary, cfg.WASM)
	if err != nil {
		return nil, nil, err
	}
	closeEngine := func() {
		if err := engine.Close(context.Background()); err != nil {
			slog.Error("failed to close wasm engine", slog.Any("error", err))
		}
	}

	return engine, closeEngine, nil
}
