package catalog

import (
	"context"
	"fmt"
	"time"

	fsjetstream "github.com/go-monolith/mono/plugin/fs-jetstream"
)

// RecordStore defines the storage operations the catalog needs.
type RecordStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	// Keys lists stored keys starting with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// bucketStore implements RecordStore on an fs-jetstream bucket.
type bucketStore struct {
	bucket fsjetstream.FileStoragePort
}

// NewBucketStore wraps an fs-jetstream bucket.
func NewBucketStore(bucket fsjetstream.FileStoragePort) RecordStore {
	return &bucketStore{bucket: bucket}
}

func (s *bucketStore) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.bucket.Put(ctx, key, data,
		fsjetstream.WithDescription(fmt.Sprintf("Book record: %s", key)),
		fsjetstream.WithHeaders(map[string]string{
			"Content-Type": "application/json",
			"Stored-At":    time.Now().Format(time.RFC3339),
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to store record: %w", err)
	}
	return nil
}

func (s *bucketStore) Get(_ context.Context, key string) ([]byte, error) {
	data, err := s.bucket.Get(key)
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return data, nil
}

func (s *bucketStore) Keys(_ context.Context, prefix string) ([]string, error) {
	var (
		objects []fsjetstream.ObjectInfo
		err     error
	)
	if prefix == "" {
		objects, err = s.bucket.List()
	} else {
		objects, err = s.bucket.List(fsjetstream.WithPrefix(prefix))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	keys := make([]string, 0, len(objects))
	for _, obj := range objects {
		keys = append(keys, obj.Name)
	}
	return keys, nil
}
