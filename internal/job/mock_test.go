package job

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/corkine/cloud-native-tools/internal/config"
	"github.com/corkine/cloud-native-tools/internal/sshtransport"
	"github.com/corkine/cloud-native-tools/pkg/transport"
)

// fakeTransport records every call in order.
type fakeTransport struct {
	name    string
	calls   []string
	files   map[string][]byte
	runFunc func(command string) ([]byte, int, error)
	closed  bool
}

var _ transport.Transport = (*fakeTransport)(nil)

func newFake(name string) *fakeTransport {
	return &fakeTransport{name: name, files: map[string][]byte{}}
}

func (f *fakeTransport) Name() string { return f.name }

func (f *fakeTransport) Mkdir(ctx context.Context, remotePath string) error {
	f.calls = append(f.calls, "mkdir "+remotePath)
	return nil
}

func (f *fakeTransport) Put(ctx context.Context, remotePath string, body io.Reader, size int64) (int64, error) {
	f.calls = append(f.calls, "put "+remotePath)
	b, err := io.ReadAll(body)
	if err != nil {
		return 0, err
	}
	f.files[remotePath] = b
	return int64(len(b)), nil
}

func (f *fakeTransport) Get(ctx context.Context, remotePath string) (io.ReadCloser, error) {
	b, ok := f.files[remotePath]
	if !ok {
		return nil, errors.New("not found")
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (f *fakeTransport) Run(ctx context.Context, command string) ([]byte, int, error) {
	f.calls = append(f.calls, "run "+command)
	if f.runFunc != nil {
		return f.runFunc(command)
	}
	return []byte("ok\n"), 0, nil
}

func (f *fakeTransport) Close() error {
	f.closed = true
	return nil
}

func sshDialer(t transport.Transport, err error, got *sshtransport.Options) SSHDialer {
	return func(ctx context.Context, opts sshtransport.Options, log *logrus.Entry) (transport.Transport, error) {
		if got != nil {
			*got = opts
		}
		if err != nil {
			return nil, err
		}
		return t, nil
	}
}

func ossOpener(t transport.Transport, err error) OSSOpener {
	return func(ctx context.Context, cfg *config.OSSConfig, log *logrus.Entry) (transport.Transport, error) {
		if err != nil {
			return nil, err
		}
		return t, nil
	}
}
