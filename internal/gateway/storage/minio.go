package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/fleetgate-io/fleetgate/internal/gateway/core"
	"github.com/fleetgate-io/fleetgate/pkg/log"
	"github.com/fleetgate-io/fleetgate/pkg/options"
)

// minioArchiver stores the original ingest payload of every report as an
// object keyed {agentId}/{ts}.json, for offline analysis. Writes happen
// off the critical path and failures are only logged by the caller.
type minioArchiver struct {
	client     *minio.Client
	bucketName string
}

var _ core.Archiver = (*minioArchiver)(nil)

// NewMinIOArchiver creates the S3-backed raw payload archiver and ensures
// the bucket exists.
func NewMinIOArchiver(ctx context.Context, opts *options.S3Options) (core.Archiver, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKeyID, opts.SecretAccessKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	a := &minioArchiver{
		client:     client,
		bucketName: opts.BucketName,
	}

	if err := a.ensureBucket(ctx); err != nil {
		return nil, err
	}

	return a, nil
}

func (a *minioArchiver) ensureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		log.Info("archive bucket does not exist, creating", "bucket", a.bucketName)
		if err := a.client.MakeBucket(ctx, a.bucketName, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}

func (a *minioArchiver) Archive(ctx context.Context, agentID string, ts float64, raw []byte) error {
	objectKey := fmt.Sprintf("%s/%v.json", agentID, ts)

	_, err := a.client.PutObject(ctx, a.bucketName, objectKey,
		bytes.NewReader(raw), int64(len(raw)),
		minio.PutObjectOptions{ContentType: "application/json"},
	)
	if err != nil {
		return fmt.Errorf("failed to archive payload: %w", err)
	}
	return nil
}
