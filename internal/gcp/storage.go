package gcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"cloud.google.com/go/storage"
	"github.com/Lllllllleong/bookcastflow/internal/pipeline"
	"google.golang.org/api/googleapi"
)

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// SaveToGCSAtomically writes content to a GCS object only if it doesn't already exist.
// It reports whether this call created the object.
func SaveToGCSAtomically(ctx context.Context, bucket *storage.BucketHandle, objectName string, content []byte) (bool, error) {
	writer := bucket.Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)

	if _, err := io.Copy(writer, bytes.NewReader(content)); err != nil {
		_ = writer.Close()
		if preconditionFailed(err) {
			slog.Info("Object already exists, skipping write.", "gcsObject", objectName)
			return false, nil
		}
		return false, classify("failed to write to GCS", err)
	}

	if err := writer.Close(); err != nil {
		if preconditionFailed(err) {
			slog.Info("Object already exists, skipping write.", "gcsObject", objectName)
			return false, nil
		}
		return false, classify("failed to finalize GCS write", err)
	}
	return true, nil
}

func preconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}

// ObjectStore is a pipeline.ObjectStore backed by one GCS bucket.
type ObjectStore struct {
	bucket *storage.BucketHandle
	name   string
}

var _ pipeline.ObjectStore = (*ObjectStore)(nil)

func NewObjectStore(client *storage.Client, bucket string) *ObjectStore {
	return &ObjectStore{bucket: client.Bucket(bucket), name: bucket}
}

func (s *ObjectStore) uri(path string) string {
	return fmt.Sprintf("gs://%s/%s", s.name, path)
}

// Write overwrites the object at path.
func (s *ObjectStore) Write(ctx context.Context, path string, data []byte) (string, error) {
	writer := s.bucket.Object(path).NewWriter(ctx)
	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		_ = writer.Close()
		return "", classify(fmt.Sprintf("failed to write %s", s.uri(path)), err)
	}
	if err := writer.Close(); err != nil {
		return "", classify(fmt.Sprintf("failed to finalize %s", s.uri(path)), err)
	}
	return s.uri(path), nil
}

// WriteIfAbsent creates the object at path unless it already exists.
func (s *ObjectStore) WriteIfAbsent(ctx context.Context, path string, data []byte) (string, error) {
	if _, err := SaveToGCSAtomically(ctx, s.bucket, path, data); err != nil {
		return "", err
	}
	return s.uri(path), nil
}

func (s *ObjectStore) Download(ctx context.Context, path string) ([]byte, error) {
	reader, err := s.bucket.Object(path).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("object %s: %w", s.uri(path), pipeline.ErrNotFound)
		}
		return nil, classify(fmt.Sprintf("failed to open %s", s.uri(path)), err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, classify(fmt.Sprintf("failed to read %s", s.uri(path)), err)
	}
	return data, nil
}
