// Package fl holds the node side of federated learning: a local model,
// its training data, the learning session and delta submission.
package fl

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Delta is the parameter change of one node since its last submission.
type Delta struct {
	ID         string    `cbor:"id"          json:"id"`
	NodeID     string    `cbor:"node_id"     json:"node_id"`
	RoundIndex uint32    `cbor:"round_index" json:"round_index"`
	Params     []float32 `cbor:"params"      json:"params"`
	NumSamples uint64    `cbor:"num_samples" json:"num_samples"`
	Epsilon    float32   `cbor:"epsilon"     json:"epsilon"`
	CreatedAt  time.Time `cbor:"created_at"  json:"created_at"`
}

var encMode = func() cbor.EncMode {
	em, err := cbor.EncOptions{
		Sort: cbor.SortCoreDeterministic,
		Time: cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic(err)
	}

	return em
}()

func EncodeDelta(d Delta) ([]byte, error) {
	data, err := encMode.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to encode delta: %w", err)
	}

	return data, nil
}

func DecodeDelta(data []byte) (Delta, error) {
	var d Delta
	if err := cbor.Unmarshal(data, &d); err != nil {
		return Delta{}, fmt.Errorf("failed to decode CBOR delta: %w", err)
	}

	return d, nil
}
