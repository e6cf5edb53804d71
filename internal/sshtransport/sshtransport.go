// Package sshtransport implements transport.Transport over one SSH
// connection: SFTP for files, exec sessions for commands.
package sshtransport

import (
	"context"
	"errors"
	"io"
	"net"
	"strconv"

	"github.com/pkg/sftp"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/corkine/cloud-native-tools/internal/xerr"
	"github.com/corkine/cloud-native-tools/pkg/transport"
)

const (
	DefaultPort = 22

	copyBufferSize = 1 << 20
	fileMode       = 0644
)

// Options describes how to reach the remote host.
type Options struct {
	Host     string
	Port     int
	User     string
	Password string
	// KnownHostsFile enables host key verification. When empty any host key
	// is accepted.
	KnownHostsFile string
}

func (o Options) addr() string {
	port := o.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(o.Host, strconv.Itoa(port))
}

// Transport is an open SSH session with an SFTP subsystem.
type Transport struct {
	client *ssh.Client
	sftp   *sftp.Client
	log    *logrus.Entry
}

var _ transport.Transport = (*Transport)(nil)

// Dial connects, authenticates with the password (plain or
// keyboard-interactive) and opens the SFTP subsystem.
func Dial(ctx context.Context, opts Options, log *logrus.Entry) (*Transport, error) {
	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if opts.KnownHostsFile != "" {
		cb, err := knownhosts.New(opts.KnownHostsFile)
		if err != nil {
			return nil, xerr.New(xerr.KindConfigFormat, "known_hosts", opts.KnownHostsFile, err)
		}
		hostKeyCallback = cb
	}

	password := opts.Password
	config := &ssh.ClientConfig{
		User: opts.User,
		Auth: []ssh.AuthMethod{
			ssh.Password(password),
			ssh.KeyboardInteractive(func(user, instruction string, questions []string, echos []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = password
				}
				return answers, nil
			}),
		},
		HostKeyCallback: hostKeyCallback,
	}

	addr := opts.addr()
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, xerr.New(xerr.KindTransport, "dial", addr, err)
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, xerr.New(xerr.KindTransport, "handshake", addr, err)
	}
	client := ssh.NewClient(c, chans, reqs)

	sc, err := sftp.NewClient(client)
	if err != nil {
		client.Close()
		return nil, xerr.New(xerr.KindTransport, "sftp", addr, err)
	}

	log.WithField("user", opts.User).Debugf("Connected to %s", addr)
	return &Transport{client: client, sftp: sc, log: log}, nil
}

func (t *Transport) Name() string { return "ssh" }

func (t *Transport) Mkdir(ctx context.Context, remotePath string) error {
	if err := t.sftp.MkdirAll(remotePath); err != nil {
		return xerr.New(xerr.KindTransport, "mkdir", remotePath, err)
	}
	return nil
}

func (t *Transport) Put(ctx context.Context, remotePath string, body io.Reader, size int64) (int64, error) {
	f, err := t.sftp.Create(remotePath)
	if err != nil {
		return 0, xerr.New(xerr.KindTransport, "create", remotePath, err)
	}

	n, err := io.CopyBuffer(f, body, make([]byte, copyBufferSize))
	if err != nil {
		f.Close()
		return n, xerr.New(xerr.KindTransport, "write", remotePath, err)
	}
	if err := f.Chmod(fileMode); err != nil {
		f.Close()
		return n, xerr.New(xerr.KindTransport, "chmod", remotePath, err)
	}
	if err := f.Close(); err != nil {
		return n, xerr.New(xerr.KindTransport, "close", remotePath, err)
	}
	return n, nil
}

func (t *Transport) Get(ctx context.Context, remotePath string) (io.ReadCloser, error) {
	f, err := t.sftp.Open(remotePath)
	if err != nil {
		return nil, xerr.New(xerr.KindTransport, "open", remotePath, err)
	}
	return f, nil
}

// Run executes command in a fresh session. The remote exit status is
// returned, not treated as an error; a session that ends without one yields
// -1.
func (t *Transport) Run(ctx context.Context, command string) ([]byte, int, error) {
	session, err := t.client.NewSession()
	if err != nil {
		return nil, -1, xerr.New(xerr.KindTransport, "session", "", err)
	}
	defer session.Close()

	out, err := session.CombinedOutput(command)
	if err == nil {
		return out, 0, nil
	}

	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return out, exitErr.ExitStatus(), nil
	}
	var missing *ssh.ExitMissingError
	if errors.As(err, &missing) {
		return out, -1, nil
	}
	return out, -1, xerr.New(xerr.KindTransport, "exec", "", err)
}

func (t *Transport) Close() error {
	sftpErr := t.sftp.Close()
	if err := t.client.Close(); err != nil {
		return err
	}
	return sftpErr
}
