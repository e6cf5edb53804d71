// Package transport defines the capability set shared by the SSH and
// object-storage backends, so the transfer engine, the command runner and the
// downloader never need to know which one they talk to.
package transport

import (
	"context"
	"errors"
	"io"
)

// ErrUnsupported is returned by a Transport that lacks a capability, e.g.
// running commands against object storage.
var ErrUnsupported = errors.New("operation not supported by transport")

// Transport is a remote data sink/source.
type Transport interface {
	// Name identifies the backend in logs ("ssh", "oss").
	Name() string

	// Mkdir creates remotePath and any missing parents. It succeeds if the
	// directory already exists.
	Mkdir(ctx context.Context, remotePath string) error

	// Put streams body to remotePath, replacing what is there, and returns the
	// number of bytes written.
	Put(ctx context.Context, remotePath string, body io.Reader, size int64) (int64, error)

	// Get opens remotePath for reading.
	Get(ctx context.Context, remotePath string) (io.ReadCloser, error)

	// Run executes command and returns its combined output and exit status.
	// A non-zero exit status is not an error.
	Run(ctx context.Context, command string) (output []byte, exitCode int, err error)

	io.Closer
}

// Executor is the subset of Transport needed to run remote commands.
type Executor interface {
	Run(ctx context.Context, command string) (output []byte, exitCode int, err error)
}
