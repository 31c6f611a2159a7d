package sqlite_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/absmach/cortex/pkg/storage"
	"github.com/absmach/cortex/pkg/storage/sqlite"
	"github.com/absmach/cortex/pkg/storage/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDB *sqlite.Database

func TestMain(m *testing.M) {
	dbPath := filepath.Join(os.TempDir(), "test_"+uuid.NewString()+".db")

	var err error
	testDB, err = sqlite.NewDatabase(dbPath)
	if err != nil {
		panic(err)
	}

	code := m.Run()

	testDB.Close()
	os.Remove(dbPath)

	os.Exit(code)
}

func TestMigrateIdempotent(t *testing.T) {
	assert.NoError(t, testDB.Migrate())
}

func TestSnapshotRepository(t *testing.T) {
	repo := sqlite.NewRepositories(testDB).Snapshots
	ctx := context.Background()
	nodeID := uuid.NewString()
	base := time.Now().UTC()

	var saved []storage.Snapshot
	for i := range 4 {
		s := testutil.Snapshot(nodeID, uint64(i), base.Add(time.Duration(i)*time.Millisecond))
		require.NoError(t, repo.Save(ctx, s))
		saved = append(saved, s)
	}

	cases := []struct {
		desc   string
		offset uint64
		limit  uint64
		ticks  []uint64
	}{
		{desc: "all", offset: 0, limit: 10, ticks: []uint64{3, 2, 1, 0}},
		{desc: "page", offset: 1, limit: 2, ticks: []uint64{2, 1}},
		{desc: "past end", offset: 8, limit: 2, ticks: []uint64{}},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			snaps, total, err := repo.List(ctx, nodeID, tc.offset, tc.limit)
			require.NoError(t, err)
			assert.Equal(t, uint64(4), total)

			ticks := []uint64{}
			for _, s := range snaps {
				ticks = append(ticks, s.Tick)
			}
			assert.Equal(t, tc.ticks, ticks)
		})
	}

	got, err := repo.Get(ctx, saved[1].ID)
	require.NoError(t, err)
	testutil.AssertSnapshot(t, saved[1], got)

	latest, err := repo.Latest(ctx, nodeID)
	require.NoError(t, err)
	testutil.AssertSnapshot(t, saved[3], latest)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = repo.Latest(ctx, uuid.NewString())
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.ErrorIs(t, repo.Save(ctx, saved[0]), storage.ErrCreate)
}

func TestRoundRepository(t *testing.T) {
	repo := sqlite.NewRepositories(testDB).Rounds
	ctx := context.Background()
	nodeID := uuid.NewString()
	at := time.Now().UTC()

	var created []storage.RoundRecord
	for i := range 3 {
		rec := testutil.Round(nodeID, uint32(i), at)
		require.NoError(t, repo.Create(ctx, rec))
		created = append(created, rec)
	}

	recs, total, err := repo.List(ctx, nodeID, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), total)
	require.Len(t, recs, 3)
	assert.Equal(t, created[2].ID, recs[0].ID)
	assert.Equal(t, created[2].Stats, recs[0].Stats)
	assert.True(t, at.Equal(recs[0].At))

	rec := testutil.Round(nodeID, 9, at)
	rec.ID = ""
	assert.ErrorIs(t, repo.Create(ctx, rec), storage.ErrInvalidID)
}
