// Package s3 archives preview frames to MinIO so operators can scroll back
// through snapshot history.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Client struct {
	client *minio.Client
	bucket string
}

func NewMinioClient(endpoint, accessKey, secretKey, bucket string) (*Client, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}
	if bucket == "" {
		bucket = "snapshots"
	}

	return &Client{client: client, bucket: bucket}, nil
}

func (c *Client) ensureBucketExists(ctx context.Context) error {
	exists, err := c.client.BucketExists(ctx, c.bucket)
	if err != nil {
		return err
	}
	if !exists {
		return c.client.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{})
	}
	return nil
}

// ArchiveSnapshot uploads one JPEG frame under {stream_id}/{unix_nano}.jpg.
func (c *Client) ArchiveSnapshot(ctx context.Context, streamID string, data []byte) error {
	if err := c.ensureBucketExists(ctx); err != nil {
		return fmt.Errorf("bucket error: %w", err)
	}

	objectName := fmt.Sprintf("%s/%d.jpg", streamID, time.Now().UnixNano())
	_, err := c.client.PutObject(
		ctx,
		c.bucket,
		objectName,
		bytes.NewReader(data),
		int64(len(data)),
		minio.PutObjectOptions{
			ContentType: "image/jpeg",
		},
	)
	if err != nil {
		return fmt.Errorf("upload error: %w", err)
	}

	return nil
}
