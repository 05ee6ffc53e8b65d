package services

import (
	"context"

	"github.com/Lllllllleong/bookcastflow/internal/pipeline"
)

// retryingStore retries transient object store failures under a policy.
type retryingStore struct {
	store  pipeline.ObjectStore
	policy pipeline.RetryPolicy
}

func withRetry(store pipeline.ObjectStore, policy pipeline.RetryPolicy) pipeline.ObjectStore {
	if rs, ok := store.(*retryingStore); ok {
		store = rs.store
	}
	return &retryingStore{store: store, policy: policy}
}

func (s *retryingStore) Write(ctx context.Context, path string, data []byte) (string, error) {
	return pipeline.Retry(ctx, s.policy, "write "+path, func(ctx context.Context) (string, error) {
		return s.store.Write(ctx, path, data)
	})
}

func (s *retryingStore) WriteIfAbsent(ctx context.Context, path string, data []byte) (string, error) {
	return pipeline.Retry(ctx, s.policy, "write "+path, func(ctx context.Context) (string, error) {
		return s.store.WriteIfAbsent(ctx, path, data)
	})
}

func (s *retryingStore) Download(ctx context.Context, path string) ([]byte, error) {
	return pipeline.Retry(ctx, s.policy, "download "+path, func(ctx context.Context) ([]byte, error) {
		return s.store.Download(ctx, path)
	})
}
