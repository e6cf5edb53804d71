package objstore

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/corkine/cloud-native-tools/internal/xerr"
	"github.com/corkine/cloud-native-tools/pkg/transport"
)

// UploadTimeout bounds a single object upload.
const UploadTimeout = 300 * time.Second

// Transport stores files as objects in one bucket. Directories do not exist
// in object storage, so Mkdir is a no-op and Run is unsupported.
type Transport struct {
	client           Client
	bucket           string
	overrideExisting bool
	log              *logrus.Entry
	uploadTimeout    time.Duration
}

var _ transport.Transport = (*Transport)(nil)

// NewTransport wraps client for bucket. When overrideExisting is false an
// upload over an existing object is still performed but logged as a warning.
func NewTransport(client Client, bucket string, overrideExisting bool, log *logrus.Entry) *Transport {
	return &Transport{
		client:           client,
		bucket:           bucket,
		overrideExisting: overrideExisting,
		log:              log,
		uploadTimeout:    UploadTimeout,
	}
}

// Key turns a remote path into an object key.
func Key(remotePath string) string {
	return strings.TrimLeft(remotePath, "/")
}

func (t *Transport) Name() string { return "oss" }

func (t *Transport) Mkdir(ctx context.Context, remotePath string) error { return nil }

func (t *Transport) Put(ctx context.Context, remotePath string, body io.Reader, size int64) (int64, error) {
	key := Key(remotePath)

	if !t.overrideExisting {
		if exists, err := t.Exists(ctx, remotePath); err == nil && exists {
			t.log.Warnf("Object %s already exists and will be overwritten", key)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, t.uploadTimeout)
	defer cancel()

	cr := &countingReader{r: body}
	err := t.client.PutObject(ctx, &PutObjectRequest{
		Bucket:      t.bucket,
		Key:         key,
		Body:        cr,
		Size:        size,
		ContentType: guessContentType(key),
	})
	if err != nil {
		return cr.n, xerr.New(xerr.KindTransport, "put", t.bucket+"/"+key, err)
	}
	return cr.n, nil
}

func (t *Transport) Get(ctx context.Context, remotePath string) (io.ReadCloser, error) {
	key := Key(remotePath)
	rc, err := t.client.GetObject(ctx, &GetObjectRequest{Bucket: t.bucket, Key: key})
	if err != nil {
		return nil, xerr.New(xerr.KindTransport, "get", t.bucket+"/"+key, err)
	}
	return rc, nil
}

// Exists reports whether an object is stored at remotePath.
func (t *Transport) Exists(ctx context.Context, remotePath string) (bool, error) {
	_, err := t.client.HeadObject(ctx, &HeadObjectRequest{Bucket: t.bucket, Key: Key(remotePath)})
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return false, xerr.New(xerr.KindTransport, "head", t.bucket+"/"+Key(remotePath), err)
}

func (t *Transport) Run(ctx context.Context, command string) ([]byte, int, error) {
	return nil, -1, transport.ErrUnsupported
}

func (t *Transport) Close() error { return nil }

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
