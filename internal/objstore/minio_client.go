package objstore

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioClient struct {
	client *minio.Client
}

func NewMinioClient(opts Options) (*MinioClient, error) {
	host, secure := splitEndpoint(opts.Endpoint, opts.UseSSL)
	c, err := minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.KeyID, opts.KeySecret, ""),
		Secure: secure,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return &MinioClient{client: c}, nil
}

func (c *MinioClient) PutObject(ctx context.Context, req *PutObjectRequest) error {
	_, err := c.client.PutObject(ctx, req.Bucket, req.Key, req.Body, req.Size, minio.PutObjectOptions{
		ContentType: req.ContentType,
	})
	if err != nil {
		return fmt.Errorf("failed to put object: %w", err)
	}
	return nil
}

func (c *MinioClient) GetObject(ctx context.Context, req *GetObjectRequest) (io.ReadCloser, error) {
	obj, err := c.client.GetObject(ctx, req.Bucket, req.Key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", minioErr(err))
	}
	// GetObject is lazy; Stat surfaces a missing key before the caller
	// creates any local file.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, fmt.Errorf("failed to get object: %w", minioErr(err))
	}
	return obj, nil
}

func (c *MinioClient) HeadObject(ctx context.Context, req *HeadObjectRequest) (*ObjectInfo, error) {
	info, err := c.client.StatObject(ctx, req.Bucket, req.Key, minio.StatObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to head object: %w", minioErr(err))
	}
	return &ObjectInfo{Size: info.Size, ETag: info.ETag}, nil
}

// minioErr maps missing-key responses to ErrNotFound.
func minioErr(err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, err)
	}
	return err
}
