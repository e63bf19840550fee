package storage

import (
	"context"
	"errors"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/notekeep/apiserver/config"
	"google.golang.org/api/option"
)

type gcsBackend struct {
	client    *storage.Client
	bucket    string
	projectID string
}

func newGCSBackend(ctx context.Context, cfg config.GCSConfig) (*gcsBackend, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("bucket is required")
	}

	var opts []option.ClientOption
	if strings.TrimSpace(cfg.CredentialsFile) != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &gcsBackend{client: client, bucket: cfg.Bucket, projectID: cfg.ProjectID}, nil
}

// EnsureBucket creates the bucket when missing, which needs a project id.
func (g *gcsBackend) EnsureBucket(ctx context.Context) error {
	bucket := g.client.Bucket(g.bucket)
	_, err := bucket.Attrs(ctx)
	if !errors.Is(err, storage.ErrBucketNotExist) {
		return err
	}
	if strings.TrimSpace(g.projectID) == "" {
		return errors.New("project id is required to create bucket")
	}
	return bucket.Create(ctx, g.projectID, nil)
}

func (g *gcsBackend) Put(ctx context.Context, key string, r io.Reader, _ int64, contentType string) error {
	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (g *gcsBackend) Bucket() string {
	return g.bucket
}

func (g *gcsBackend) Close() error {
	return g.client.Close()
}
