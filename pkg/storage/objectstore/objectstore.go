// Package objectstore keeps model snapshots in an S3 compatible bucket.
package objectstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/absmach/cortex/pkg/storage"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	byIDPrefix  = "by-id/"
	contentType = "application/json"
	noSuchKey   = "NoSuchKey"
)

type Config struct {
	Endpoint  string `env:"ENDPOINT"   envDefault:""                 toml:"endpoint"   yaml:"endpoint"`
	AccessKey string `env:"ACCESS_KEY" envDefault:""                 toml:"access_key" yaml:"access_key"`
	SecretKey string `env:"SECRET_KEY" envDefault:""                 toml:"secret_key" yaml:"secret_key"`
	Bucket    string `env:"BUCKET"     envDefault:"cortex-snapshots" toml:"bucket"     yaml:"bucket"`
	UseSSL    bool   `env:"USE_SSL"    envDefault:"false"            toml:"use_ssl"    yaml:"use_ssl"`
}

type snapshotRepo struct {
	client *minio.Client
	bucket string
}

// NewSnapshotRepository connects to the endpoint and creates the bucket
// when it does not exist yet.
func NewSnapshotRepository(ctx context.Context, cfg Config) (storage.SnapshotRepository, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("%w: object store endpoint is required", storage.ErrDBConnection)
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrDBConnection, err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrDBConnection, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("%w: %w", storage.ErrDBConnection, err)
		}
	}

	return &snapshotRepo{client: client, bucket: cfg.Bucket}, nil
}

func (r *snapshotRepo) Save(ctx context.Context, s storage.Snapshot) error {
	if s.ID == "" {
		return storage.ErrInvalidID
	}

	if _, err := r.client.StatObject(ctx, r.bucket, idKey(s.ID), minio.StatObjectOptions{}); err == nil {
		return fmt.Errorf("%w: snapshot %s exists", storage.ErrCreate, s.ID)
	} else if minio.ToErrorResponse(err).Code != noSuchKey {
		return fmt.Errorf("%w: %w", storage.ErrDBQuery, err)
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrCreate, err)
	}

	for _, key := range []string{nodeKey(s), idKey(s.ID)} {
		if _, err := r.client.PutObject(ctx, r.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{ContentType: contentType}); err != nil {
			return fmt.Errorf("%w: %w", storage.ErrCreate, err)
		}
	}

	return nil
}

func (r *snapshotRepo) Get(ctx context.Context, id string) (storage.Snapshot, error) {
	if id == "" {
		return storage.Snapshot{}, storage.ErrNotFound
	}

	return r.read(ctx, idKey(id))
}

func (r *snapshotRepo) Latest(ctx context.Context, nodeID string) (storage.Snapshot, error) {
	snaps, _, err := r.List(ctx, nodeID, 0, 1)
	if err != nil {
		return storage.Snapshot{}, err
	}
	if len(snaps) == 0 {
		return storage.Snapshot{}, storage.ErrNotFound
	}

	return snaps[0], nil
}

// List relies on object keys sorting newest first within a node prefix.
func (r *snapshotRepo) List(ctx context.Context, nodeID string, offset, limit uint64) ([]storage.Snapshot, uint64, error) {
	var keys []string
	for obj := range r.client.ListObjects(ctx, r.bucket, minio.ListObjectsOptions{Prefix: nodePrefix(nodeID), Recursive: true}) {
		if obj.Err != nil {
			return nil, 0, fmt.Errorf("%w: %w", storage.ErrDBQuery, obj.Err)
		}
		keys = append(keys, obj.Key)
	}

	total := uint64(len(keys))
	start, end := storage.Page(total, offset, limit)

	snaps := make([]storage.Snapshot, 0, end-start)
	for _, key := range keys[start:end] {
		s, err := r.read(ctx, key)
		if err != nil {
			return nil, 0, err
		}
		snaps = append(snaps, s)
	}

	return snaps, total, nil
}

func (r *snapshotRepo) read(ctx context.Context, key string) (storage.Snapshot, error) {
	obj, err := r.client.GetObject(ctx, r.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return storage.Snapshot{}, fmt.Errorf("%w: %w", storage.ErrDBQuery, err)
	}
	defer obj.Close()

	var s storage.Snapshot
	if err := json.NewDecoder(obj).Decode(&s); err != nil {
		if minio.ToErrorResponse(err).Code == noSuchKey {
			return storage.Snapshot{}, storage.ErrNotFound
		}

		return storage.Snapshot{}, fmt.Errorf("%w: %w", storage.ErrDBScan, err)
	}

	return s, nil
}

func idKey(id string) string {
	return byIDPrefix + id + ".json"
}

func nodePrefix(nodeID string) string {
	return "nodes/" + strings.ReplaceAll(nodeID, "/", "_") + "/"
}

// nodeKey inverts the creation time so lexical order is newest first.
func nodeKey(s storage.Snapshot) string {
	inverted := uint64(math.MaxInt64 - s.CreatedAt.UnixNano())

	return fmt.Sprintf("%s%020d-%s.json", nodePrefix(s.NodeID), inverted, s.ID)
}
