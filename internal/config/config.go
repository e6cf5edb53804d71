// Package config parses the destination and storage configuration strings
// accepted on the command line and from the environment.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/zalando/go-keyring"

	"github.com/corkine/cloud-native-tools/internal/objstore"
	"github.com/corkine/cloud-native-tools/internal/xerr"
	"github.com/corkine/cloud-native-tools/pkg/payload"
)

// Environment fallbacks for values not given as flags.
const (
	EnvDestination    = "CI_TRANSFER_DESTINATION"
	EnvOSSDestination = "CI_TRANSFER_OSS_DESTINATION"
	EnvOSSResConfig   = "OSS_RES_CONFIG"
)

// keyringPrefix marks a secret stored in the OS keyring: "keyring:<service>".
const keyringPrefix = "keyring:"

// LoadDotEnv loads .env from the working directory. A missing file is
// ignored.
func LoadDotEnv() {
	_ = godotenv.Load(".env")
}

// FromEnv returns flag when set, otherwise the named environment variable.
func FromEnv(flag, env string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv(env)
}

// SSHDestination is a parsed "user:password@host[:port]:/path" specifier.
type SSHDestination struct {
	User     string
	Password string
	Host     string
	// Port is zero when the specifier does not name one.
	Port int
	Path string
}

// String hides the password.
func (d *SSHDestination) String() string {
	host := d.Host
	if d.Port != 0 {
		host += ":" + strconv.Itoa(d.Port)
	}
	return fmt.Sprintf("%s@%s:%s", d.User, host, d.Path)
}

// ParseSSHDestination parses s, which may be base64 wrapped. The password may
// contain '@' and ':'; the host part may not.
func ParseSSHDestination(s string) (*SSHDestination, error) {
	s = strings.TrimSpace(payload.Resolve(s, payload.DefaultMaxDepth))
	if s == "" {
		return nil, xerr.Errorf(xerr.KindConfigFormat, "ssh destination", "destination cannot be empty")
	}

	at := strings.LastIndex(s, "@")
	if at < 0 {
		return nil, xerr.Errorf(xerr.KindConfigFormat, "ssh destination", "missing '@' in user:pass@host:/path")
	}
	user, password, ok := strings.Cut(s[:at], ":")
	if !ok || user == "" {
		return nil, xerr.Errorf(xerr.KindConfigFormat, "ssh destination", "credentials must be user:password")
	}

	d := &SSHDestination{User: user, Password: password}

	parts := strings.SplitN(s[at+1:], ":", 3)
	switch {
	case len(parts) < 2:
		return nil, xerr.Errorf(xerr.KindConfigFormat, "ssh destination", "server must be host:/path")
	case len(parts) == 3 && isPort(parts[1]):
		d.Host = parts[0]
		d.Port, _ = strconv.Atoi(parts[1])
		d.Path = parts[2]
	default:
		d.Host = parts[0]
		d.Path = strings.Join(parts[1:], ":")
	}

	if d.Host == "" || d.Path == "" {
		return nil, xerr.Errorf(xerr.KindConfigFormat, "ssh destination", "host and path are required")
	}
	return d, nil
}

func isPort(s string) bool {
	n, err := strconv.Atoi(s)
	return err == nil && n > 0 && n < 65536
}

// ResolveSecret returns value unchanged unless it has the form
// "keyring:<service>", in which case the secret for account is read from the
// OS keyring.
func ResolveSecret(value, account string) (string, error) {
	service, ok := strings.CutPrefix(value, keyringPrefix)
	if !ok {
		return value, nil
	}
	secret, err := keyring.Get(service, account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", xerr.Errorf(xerr.KindConfigFormat, "keyring", "no secret for %s in service %q", account, service)
		}
		return "", xerr.New(xerr.KindConfigFormat, "keyring", service, err)
	}
	return secret, nil
}

// OSSConfig is the JSON object storage configuration.
type OSSConfig struct {
	Bucket           string `json:"oss_bucket"`
	Endpoint         string `json:"oss_endpoint"`
	KeyID            string `json:"key_id"`
	KeySecret        string `json:"key_secret"`
	Path             string `json:"path,omitempty"`
	OverrideExisting *bool  `json:"override_existing,omitempty"`

	Provider string `json:"provider,omitempty"`
	Region   string `json:"region,omitempty"`
	UseSSL   *bool  `json:"use_ssl,omitempty"`
}

// Override reports whether existing objects may be replaced silently.
func (c *OSSConfig) Override() bool {
	return c.OverrideExisting == nil || *c.OverrideExisting
}

// ObjstoreOptions converts c for objstore.NewClient, resolving a keyring
// secret if needed.
func (c *OSSConfig) ObjstoreOptions() (objstore.Options, error) {
	secret, err := ResolveSecret(c.KeySecret, c.KeyID)
	if err != nil {
		return objstore.Options{}, err
	}
	useSSL := c.UseSSL == nil || *c.UseSSL
	return objstore.Options{
		Provider:  c.Provider,
		Endpoint:  c.Endpoint,
		Region:    c.Region,
		KeyID:     c.KeyID,
		KeySecret: secret,
		UseSSL:    useSSL,
	}, nil
}

// ExampleOSSConfig is shown when no usable configuration was given.
const ExampleOSSConfig = `{
  "oss_bucket": "my-bucket",
  "oss_endpoint": "oss-cn-beijing.aliyuncs.com",
  "key_secret": "your-secret-key",
  "key_id": "your-access-key-id",
  "path": "/path/oss",
  "override_existing": true
}`

func parseOSSJSON(s string) (*OSSConfig, error) {
	var c OSSConfig
	if err := json.Unmarshal([]byte(s), &c); err != nil {
		return nil, xerr.New(xerr.KindConfigFormat, "oss config", "", err)
	}
	if c.Bucket == "" {
		return nil, xerr.Errorf(xerr.KindConfigFormat, "oss config", "oss_bucket is required")
	}
	if c.Endpoint == "" && !strings.EqualFold(c.Provider, objstore.ProviderAWS) {
		return nil, xerr.Errorf(xerr.KindConfigFormat, "oss config", "oss_endpoint is required")
	}
	return &c, nil
}

// ParseOSSDestination parses an upload destination: JSON, possibly base64
// wrapped, with a "path" naming the remote destination specifier.
func ParseOSSDestination(s string) (*OSSConfig, error) {
	s = strings.TrimSpace(payload.Resolve(s, payload.DefaultMaxDepth))
	if s == "" {
		return nil, xerr.Errorf(xerr.KindConfigFormat, "oss destination", "destination cannot be empty")
	}
	c, err := parseOSSJSON(s)
	if err != nil {
		return nil, err
	}
	if c.Path == "" {
		return nil, xerr.Errorf(xerr.KindConfigFormat, "oss destination", "path is required")
	}
	return c, nil
}

// LoadOSSConfig accepts, in order: base64 wrapped JSON, a path to a JSON
// file, or literal JSON.
func LoadOSSConfig(s string) (*OSSConfig, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, xerr.Errorf(xerr.KindConfigFormat, "oss config", "config cannot be empty")
	}

	if decoded, ok := payload.Decode(s); ok {
		return parseOSSJSON(payload.Resolve(decoded, payload.DefaultMaxDepth-1))
	}

	if info, err := os.Stat(s); err == nil && info.Mode().IsRegular() {
		b, err := os.ReadFile(s)
		if err != nil {
			return nil, xerr.New(xerr.KindIO, "read", s, err)
		}
		return parseOSSJSON(strings.TrimSpace(payload.Resolve(string(b), payload.DefaultMaxDepth)))
	}

	return parseOSSJSON(s)
}
