package transfer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/corkine/cloud-native-tools/pkg/transport"
)

// memTransport records calls in memory. Func fields override the default
// behaviour for failure injection.
type memTransport struct {
	dirs  []string
	files map[string][]byte
	calls []string

	mkdirFunc func(ctx context.Context, remotePath string) error
	putFunc   func(ctx context.Context, remotePath string, body io.Reader, size int64) (int64, error)
}

var _ transport.Transport = (*memTransport)(nil)

func newMemTransport() *memTransport {
	return &memTransport{files: map[string][]byte{}}
}

func (m *memTransport) Name() string { return "mem" }

func (m *memTransport) Mkdir(ctx context.Context, remotePath string) error {
	m.calls = append(m.calls, "mkdir "+remotePath)
	if m.mkdirFunc != nil {
		return m.mkdirFunc(ctx, remotePath)
	}
	m.dirs = append(m.dirs, remotePath)
	return nil
}

func (m *memTransport) Put(ctx context.Context, remotePath string, body io.Reader, size int64) (int64, error) {
	m.calls = append(m.calls, "put "+remotePath)
	if m.putFunc != nil {
		return m.putFunc(ctx, remotePath, body, size)
	}
	var buf bytes.Buffer
	n, err := io.Copy(&buf, body)
	if err != nil {
		return n, err
	}
	m.files[remotePath] = buf.Bytes()
	return n, nil
}

func (m *memTransport) Get(ctx context.Context, remotePath string) (io.ReadCloser, error) {
	b, ok := m.files[remotePath]
	if !ok {
		return nil, fmt.Errorf("%s: not found", remotePath)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *memTransport) Run(ctx context.Context, command string) ([]byte, int, error) {
	return nil, -1, transport.ErrUnsupported
}

func (m *memTransport) Close() error { return nil }

func (m *memTransport) fileNames() []string {
	names := make([]string, 0, len(m.files))
	for k := range m.files {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
