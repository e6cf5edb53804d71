// Package objstore talks to S3-compatible object storage through either the
// MinIO SDK or the AWS SDK, and adapts the result to transport.Transport.
package objstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNotFound is returned when an object does not exist.
var ErrNotFound = errors.New("object not found")

type PutObjectRequest struct {
	Bucket      string
	Key         string
	Body        io.Reader
	Size        int64
	ContentType string
}

type GetObjectRequest struct {
	Bucket string
	Key    string
}

type HeadObjectRequest struct {
	Bucket string
	Key    string
}

type ObjectInfo struct {
	Size int64
	ETag string
}

// Client is the storage API surface the tools need.
type Client interface {
	PutObject(ctx context.Context, req *PutObjectRequest) error
	GetObject(ctx context.Context, req *GetObjectRequest) (io.ReadCloser, error)
	HeadObject(ctx context.Context, req *HeadObjectRequest) (*ObjectInfo, error)
}

const (
	ProviderMinio = "minio"
	ProviderAWS   = "aws"
)

// Options selects and configures a Client.
type Options struct {
	Provider  string
	Endpoint  string
	Region    string
	KeyID     string
	KeySecret string
	UseSSL    bool
}

// NewClient builds the client for opts.Provider (minio when empty).
func NewClient(ctx context.Context, opts Options) (Client, error) {
	switch strings.ToLower(opts.Provider) {
	case "", ProviderMinio:
		return NewMinioClient(opts)
	case ProviderAWS:
		return NewAWSClient(ctx, opts)
	default:
		return nil, fmt.Errorf("unknown object storage provider %q", opts.Provider)
	}
}

// splitEndpoint separates an optional scheme from the host. An explicit
// scheme overrides useSSL.
func splitEndpoint(endpoint string, useSSL bool) (host string, secure bool) {
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		return strings.TrimSuffix(strings.TrimPrefix(endpoint, "https://"), "/"), true
	case strings.HasPrefix(endpoint, "http://"):
		return strings.TrimSuffix(strings.TrimPrefix(endpoint, "http://"), "/"), false
	default:
		return strings.TrimSuffix(endpoint, "/"), useSSL
	}
}

// endpointURL is the scheme-qualified form the AWS SDK expects.
func endpointURL(endpoint string, useSSL bool) string {
	host, secure := splitEndpoint(endpoint, useSSL)
	if secure {
		return "https://" + host
	}
	return "http://" + host
}
