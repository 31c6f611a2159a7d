// Package update checks whether a newer build of the node is published.
package update

import (
	"context"
	"time"
)

type Info struct {
	Available bool      `json:"available"`
	Current   string    `json:"current"`
	Latest    string    `json:"latest,omitempty"`
	Digest    string    `json:"digest,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Noop never reports an update.
type Noop struct {
	Version string
}

func (n Noop) CheckForUpdates(ctx context.Context) (Info, error) {
	if err := ctx.Err(); err != nil {
		return Info{}, err
	}

	return Info{Current: n.Version, Latest: n.Version, CheckedAt: time.Now().UTC()}, nil
}
