package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
)

// NATSRankStore keeps rank positions in a JetStream key-value bucket.
type NATSRankStore struct {
	kv nats.KeyValue
}

// NewNATSRankStore binds to bucket, creating it when it does not exist yet.
func NewNATSRankStore(nc *nats.Conn, bucket string) (*NATSRankStore, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("nats: jetstream context: %w", err)
	}

	kv, err := js.KeyValue(bucket)
	if errors.Is(err, nats.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(&nats.KeyValueConfig{
			Bucket:      bucket,
			Description: "last known rank position per airline",
			History:     1,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("nats: bind bucket %q: %w", bucket, err)
	}

	return &NATSRankStore{kv: kv}, nil
}

func (s *NATSRankStore) Get(_ context.Context, key string) (string, bool, error) {
	entry, err := s.kv.Get(key)
	if errors.Is(err, nats.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("nats: get %q: %w", key, err)
	}
	return string(entry.Value()), true, nil
}

func (s *NATSRankStore) Set(_ context.Context, key, value string) error {
	if _, err := s.kv.PutString(key, value); err != nil {
		return fmt.Errorf("nats: put %q: %w", key, err)
	}
	return nil
}
