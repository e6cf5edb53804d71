// Package job wires parsed configuration, transports and the transfer,
// command and fetch layers into the two end-to-end flows: uploading to one
// or more destinations and downloading a single object.
package job

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/corkine/cloud-native-tools/internal/config"
	"github.com/corkine/cloud-native-tools/internal/objstore"
	"github.com/corkine/cloud-native-tools/internal/sshtransport"
	"github.com/corkine/cloud-native-tools/pkg/transport"
)

// SSHDialer opens an SSH transport.
type SSHDialer func(ctx context.Context, opts sshtransport.Options, log *logrus.Entry) (transport.Transport, error)

// OSSOpener opens an object storage transport for cfg.
type OSSOpener func(ctx context.Context, cfg *config.OSSConfig, log *logrus.Entry) (transport.Transport, error)

// DialSSH is the default SSHDialer.
func DialSSH(ctx context.Context, opts sshtransport.Options, log *logrus.Entry) (transport.Transport, error) {
	t, err := sshtransport.Dial(ctx, opts, log)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// OpenOSS is the default OSSOpener.
func OpenOSS(ctx context.Context, cfg *config.OSSConfig, log *logrus.Entry) (transport.Transport, error) {
	opts, err := cfg.ObjstoreOptions()
	if err != nil {
		return nil, err
	}
	client, err := objstore.NewClient(ctx, opts)
	if err != nil {
		return nil, err
	}
	return objstore.NewTransport(client, cfg.Bucket, cfg.Override(), log), nil
}

// WriteJSON writes v, indented, to path.
func WriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}
