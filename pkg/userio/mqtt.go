package userio

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/absmach/cortex/pkg/mqtt"
)

const (
	InputTopic  = "cortex/%s/input"
	OutputTopic = "cortex/%s/output"
)

type inputMessage struct {
	Text string `json:"text"`
}

// MQTT receives inputs on the node's input topic, either as JSON
// {"text": ...} or as plain text, and publishes responses as JSON.
type MQTT struct {
	*Queue

	pubsub mqtt.PubSub
	input  string
	output string
}

func NewMQTT(pubsub mqtt.PubSub, nodeID string, buffer int) *MQTT {
	return &MQTT{
		Queue:  NewQueue(buffer),
		pubsub: pubsub,
		input:  fmt.Sprintf(InputTopic, nodeID),
		output: fmt.Sprintf(OutputTopic, nodeID),
	}
}

func (m *MQTT) Start(ctx context.Context) error {
	if err := m.pubsub.Subscribe(ctx, m.input, m.handle); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", m.input, err)
	}

	return nil
}

func (m *MQTT) Stop(ctx context.Context) error {
	return m.pubsub.Unsubscribe(ctx, m.input)
}

func (m *MQTT) handle(_ string, payload []byte) error {
	text := string(payload)

	var msg inputMessage
	if err := json.Unmarshal(payload, &msg); err == nil && msg.Text != "" {
		text = msg.Text
	}

	return m.Push(strings.TrimSpace(text))
}

func (m *MQTT) Deliver(ctx context.Context, r Response) error {
	if err := m.pubsub.Publish(ctx, m.output, r); err != nil {
		return fmt.Errorf("failed to deliver response: %w", err)
	}

	return nil
}
