package fl

import (
	"context"
	"fmt"

	"github.com/absmach/cortex/pkg/mqtt"
)

const DeltaTopic = "cortex/%s/deltas"

// MQTTSubmitter publishes CBOR encoded deltas.
type MQTTSubmitter struct {
	pubsub mqtt.PubSub
	topic  string
}

func NewMQTTSubmitter(pubsub mqtt.PubSub, nodeID string) *MQTTSubmitter {
	return &MQTTSubmitter{
		pubsub: pubsub,
		topic:  fmt.Sprintf(DeltaTopic, nodeID),
	}
}

func (s *MQTTSubmitter) SubmitDelta(ctx context.Context, d Delta) error {
	data, err := EncodeDelta(d)
	if err != nil {
		return err
	}

	if err := s.pubsub.Publish(ctx, s.topic, data); err != nil {
		return fmt.Errorf("failed to submit delta %s: %w", d.ID, err)
	}

	return nil
}
