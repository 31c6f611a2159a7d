package storage

import (
	"cmp"
	"context"
	"errors"
	"math"
	"slices"

	pkgerrors "github.com/absmach/cortex/pkg/errors"
)

type memorySnapshots struct {
	storage Storage
}

func NewMemorySnapshotRepository() SnapshotRepository {
	return &memorySnapshots{storage: NewInMemoryStorage()}
}

func (r *memorySnapshots) Save(ctx context.Context, s Snapshot) error {
	if s.ID == "" {
		return ErrInvalidID
	}
	s.Params = slices.Clone(s.Params)

	if err := r.storage.Create(ctx, s.ID, s); err != nil {
		return errors.Join(ErrCreate, err)
	}

	return nil
}

func (r *memorySnapshots) Get(ctx context.Context, id string) (Snapshot, error) {
	v, err := r.storage.Get(ctx, id)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrNotFound) || errors.Is(err, pkgerrors.ErrEmptyKey) {
			return Snapshot{}, ErrNotFound
		}

		return Snapshot{}, err
	}

	s, ok := v.(Snapshot)
	if !ok {
		return Snapshot{}, ErrDBScan
	}
	s.Params = slices.Clone(s.Params)

	return s, nil
}

func (r *memorySnapshots) Latest(ctx context.Context, nodeID string) (Snapshot, error) {
	snaps, err := r.byNode(ctx, nodeID)
	if err != nil {
		return Snapshot{}, err
	}
	if len(snaps) == 0 {
		return Snapshot{}, ErrNotFound
	}

	return snaps[0], nil
}

func (r *memorySnapshots) List(ctx context.Context, nodeID string, offset, limit uint64) ([]Snapshot, uint64, error) {
	snaps, err := r.byNode(ctx, nodeID)
	if err != nil {
		return nil, 0, err
	}

	total := uint64(len(snaps))
	start, end := Page(total, offset, limit)

	return snaps[start:end], total, nil
}

func (r *memorySnapshots) byNode(ctx context.Context, nodeID string) ([]Snapshot, error) {
	values, _, err := r.storage.List(ctx, 0, math.MaxUint64)
	if err != nil {
		return nil, err
	}

	var snaps []Snapshot
	for _, v := range values {
		if s, ok := v.(Snapshot); ok && s.NodeID == nodeID {
			s.Params = slices.Clone(s.Params)
			snaps = append(snaps, s)
		}
	}
	slices.SortStableFunc(snaps, func(a, b Snapshot) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	return snaps, nil
}

type memoryRounds struct {
	storage Storage
}

func NewMemoryRoundRepository() RoundRepository {
	return &memoryRounds{storage: NewInMemoryStorage()}
}

func (r *memoryRounds) Create(ctx context.Context, rec RoundRecord) error {
	if rec.ID == "" {
		return ErrInvalidID
	}
	if err := r.storage.Create(ctx, rec.ID, rec); err != nil {
		return errors.Join(ErrCreate, err)
	}

	return nil
}

func (r *memoryRounds) List(ctx context.Context, nodeID string, offset, limit uint64) ([]RoundRecord, uint64, error) {
	values, _, err := r.storage.List(ctx, 0, math.MaxUint64)
	if err != nil {
		return nil, 0, err
	}

	var recs []RoundRecord
	for _, v := range values {
		if rec, ok := v.(RoundRecord); ok && rec.NodeID == nodeID {
			recs = append(recs, rec)
		}
	}
	slices.SortStableFunc(recs, func(a, b RoundRecord) int {
		if c := b.At.Compare(a.At); c != 0 {
			return c
		}

		return cmp.Compare(b.Stats.RoundIndex, a.Stats.RoundIndex)
	})

	total := uint64(len(recs))
	start, end := Page(total, offset, limit)

	return recs[start:end], total, nil
}
