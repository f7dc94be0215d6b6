package docstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GCSStore keeps each document as a JSON object at collection/key.json in a
// Cloud Storage bucket. Preconditions on object generation provide the
// create-if-absent and read-merge-write guarantees.
type GCSStore struct {
	client *storage.Client
	bucket string
}

// NewGCSStore connects to Cloud Storage with a service-account JSON credential.
func NewGCSStore(ctx context.Context, bucket string, credentialsJSON []byte) (*GCSStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	if len(credentialsJSON) == 0 {
		return nil, fmt.Errorf("credentials are required")
	}

	client, err := storage.NewClient(ctx, option.WithCredentialsJSON(credentialsJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

// ObjectName maps a document address to its object path.
func ObjectName(collection, key string) string {
	return collection + "/" + url.PathEscape(key) + ".json"
}

func (s *GCSStore) object(collection, key string) *storage.ObjectHandle {
	return s.client.Bucket(s.bucket).Object(ObjectName(collection, key))
}

func (s *GCSStore) Get(ctx context.Context, collection, key string) (Document, error) {
	if err := validateKey(collection, key); err != nil {
		return nil, err
	}
	doc, _, err := s.read(ctx, s.object(collection, key))
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("%s/%s: %w", collection, key, ErrNotFound)
	}
	return doc, err
}

func (s *GCSStore) Set(ctx context.Context, collection, key string, doc Document) error {
	if err := validateKey(collection, key); err != nil {
		return err
	}
	data, err := encode(doc)
	if err != nil {
		return err
	}
	return s.write(ctx, s.object(collection, key), data)
}

func (s *GCSStore) Create(ctx context.Context, collection, key string, doc Document) error {
	if err := validateKey(collection, key); err != nil {
		return err
	}
	data, err := encode(doc)
	if err != nil {
		return err
	}
	obj := s.object(collection, key).If(storage.Conditions{DoesNotExist: true})
	err = s.write(ctx, obj, data)
	if isPreconditionFailed(err) {
		return fmt.Errorf("%s/%s: %w", collection, key, ErrAlreadyExists)
	}
	return err
}

func (s *GCSStore) Update(ctx context.Context, collection, key string, fields Document) error {
	if err := validateKey(collection, key); err != nil {
		return err
	}
	handle := s.object(collection, key)

	for range maxTxRetries {
		existing, generation, err := s.read(ctx, handle)
		if errors.Is(err, storage.ErrObjectNotExist) {
			return fmt.Errorf("%s/%s: %w", collection, key, ErrNotFound)
		}
		if err != nil {
			return err
		}
		data, err := encode(merge(existing, fields))
		if err != nil {
			return err
		}
		err = s.write(ctx, handle.If(storage.Conditions{GenerationMatch: generation}), data)
		if isPreconditionFailed(err) {
			continue
		}
		return err
	}
	return fmt.Errorf("update document %s/%s: too much contention", collection, key)
}

func (s *GCSStore) Ping(ctx context.Context) error {
	if _, err := s.client.Bucket(s.bucket).Attrs(ctx); err != nil {
		return fmt.Errorf("bucket %s: %w", s.bucket, err)
	}
	return nil
}

// Close releases the storage client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

func (s *GCSStore) read(ctx context.Context, obj *storage.ObjectHandle) (Document, int64, error) {
	r, err := obj.NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, 0, err
		}
		return nil, 0, fmt.Errorf("open object: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, fmt.Errorf("read object: %w", err)
	}
	doc, err := decodeBytes(data)
	if err != nil {
		return nil, 0, err
	}
	return doc, r.Attrs.Generation, nil
}

func (s *GCSStore) write(ctx context.Context, obj *storage.ObjectHandle, data []byte) error {
	w := obj.NewWriter(ctx)
	w.ContentType = "application/json"
	w.CacheControl = "no-cache, no-store, must-revalidate"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write object: %w", err)
	}
	if err := w.Close(); err != nil {
		if isPreconditionFailed(err) {
			return err
		}
		return fmt.Errorf("close object writer: %w", err)
	}
	return nil
}

func isPreconditionFailed(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusPreconditionFailed
}
