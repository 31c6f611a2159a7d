package observer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/absmach/cortex/pkg/mqtt"
	"github.com/absmach/cortex/pkg/trainer"
)

const (
	TickTopic  = "cortex/%s/telemetry/ticks"
	RoundTopic = "cortex/%s/telemetry/rounds"

	publishTimeout = 5 * time.Second
)

var _ Observer = (*MQTT)(nil)

// MQTT publishes tick and round signals as JSON telemetry. Publishing
// failures are logged and dropped.
type MQTT struct {
	pubsub mqtt.PubSub
	nodeID string
	logger *slog.Logger
}

func NewMQTT(pubsub mqtt.PubSub, nodeID string, logger *slog.Logger) *MQTT {
	return &MQTT{
		pubsub: pubsub,
		nodeID: nodeID,
		logger: logger,
	}
}

func (m *MQTT) ObserveTick(t TickMetrics) {
	m.publish(fmt.Sprintf(TickTopic, m.nodeID), t)
}

func (m *MQTT) ObserveRound(s trainer.RoundStats) {
	m.publish(fmt.Sprintf(RoundTopic, m.nodeID), s)
}

func (m *MQTT) publish(topic string, payload any) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := m.pubsub.Publish(ctx, topic, payload); err != nil {
		m.logger.Warn("failed to publish telemetry", slog.String("topic", topic), slog.Any("error", err))
	}
}
