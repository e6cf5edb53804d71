package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/zalando/go-keyring"

	"github.com/corkine/cloud-native-tools/internal/xerr"
)

func TestParseSSHDestination(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    SSHDestination
		wantErr bool
	}{
		{
			name:  "basic",
			input: "root:secret@10.0.0.5:/opt/app/",
			want:  SSHDestination{User: "root", Password: "secret", Host: "10.0.0.5", Path: "/opt/app/"},
		},
		{
			name:  "base64 wrapped",
			input: "cm9vdDpzZWNyZXRAMTAuMC4wLjU6L29wdC9hcHAv",
			want:  SSHDestination{User: "root", Password: "secret", Host: "10.0.0.5", Path: "/opt/app/"},
		},
		{
			name:  "port and special characters in password",
			input: "Y2k6cEBzczp3b3JkQDEwLjAuMC41OjIyMjI6L3Nydi9hcHAv",
			want:  SSHDestination{User: "ci", Password: "p@ss:word", Host: "10.0.0.5", Port: 2222, Path: "/srv/app/"},
		},
		{
			name:  "colon inside path",
			input: "u:p@host:/data/a:b",
			want:  SSHDestination{User: "u", Password: "p", Host: "host", Path: "/data/a:b"},
		},
		{
			name:  "empty password",
			input: "deploy:@host:/srv",
			want:  SSHDestination{User: "deploy", Host: "host", Path: "/srv"},
		},
		{name: "empty", input: "", wantErr: true},
		{name: "no at", input: "root:secret-host:/x", wantErr: true},
		{name: "no password separator", input: "root@host:/x", wantErr: true},
		{name: "no path", input: "root:pw@host", wantErr: true},
		{name: "empty path", input: "root:pw@host:", wantErr: true},
		{name: "empty host", input: "root:pw@:/x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSSHDestination(tt.input)
			if tt.wantErr {
				if !xerr.Is(err, xerr.KindConfigFormat) {
					t.Errorf("ParseSSHDestination() error = %v, want config format error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSSHDestination() error = %v", err)
			}
			if *got != tt.want {
				t.Errorf("ParseSSHDestination() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}

func TestSSHDestinationStringHidesPassword(t *testing.T) {
	d := SSHDestination{User: "root", Password: "hunter2", Host: "h", Port: 2200, Path: "/p"}
	if got := d.String(); got != "root@h:2200:/p" {
		t.Errorf("String() = %q", got)
	}
}

func TestResolveSecret(t *testing.T) {
	keyring.MockInit()
	if err := keyring.Set("ci-transfer", "deploy", "from-keyring"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		value   string
		account string
		want    string
		wantErr bool
	}{
		{"literal", "plain-password", "deploy", "plain-password", false},
		{"keyring hit", "keyring:ci-transfer", "deploy", "from-keyring", false},
		{"keyring miss", "keyring:ci-transfer", "someone-else", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveSecret(tt.value, tt.account)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResolveSecret() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ResolveSecret() = %q, want %q", got, tt.want)
			}
		})
	}
}

const ossJSON = `{"oss_bucket":"cm-binary","oss_endpoint":"oss-cn-hangzhou.aliyuncs.com","key_id":"id","key_secret":"secret","path":"/releases/"}`

func TestParseOSSDestination(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantPath string
		wantErr  bool
	}{
		{name: "json", input: ossJSON, wantPath: "/releases/"},
		{
			name:     "base64",
			input:    "eyJvc3NfYnVja2V0IjoiY20tYmluYXJ5Iiwib3NzX2VuZHBvaW50Ijoib3NzLWNuLWhhbmd6aG91LmFsaXl1bmNzLmNvbSIsImtleV9pZCI6ImlkIiwia2V5X3NlY3JldCI6InNlY3JldCIsInBhdGgiOiIvcmVsZWFzZXMvIn0=",
			wantPath: "/releases/",
		},
		{
			name:    "path is required for uploads",
			input:   "eyJvc3NfYnVja2V0IjoiY20tYmluYXJ5Iiwib3NzX2VuZHBvaW50Ijoib3NzLWNuLWhhbmd6aG91LmFsaXl1bmNzLmNvbSIsImtleV9pZCI6ImlkIiwia2V5X3NlY3JldCI6InNlY3JldCJ9",
			wantErr: true,
		},
		{name: "not json", input: "root:pw@host:/x", wantErr: true},
		{name: "missing bucket", input: `{"oss_endpoint":"e","path":"/p"}`, wantErr: true},
		{name: "missing endpoint", input: `{"oss_bucket":"b","path":"/p"}`, wantErr: true},
		{name: "aws needs no endpoint", input: `{"oss_bucket":"b","path":"/p","provider":"aws","region":"eu-west-1"}`, wantPath: "/p"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOSSDestination(tt.input)
			if tt.wantErr {
				if !xerr.Is(err, xerr.KindConfigFormat) {
					t.Errorf("ParseOSSDestination() error = %v, want config format error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseOSSDestination() error = %v", err)
			}
			if got.Path != tt.wantPath {
				t.Errorf("Path = %q, want %q", got.Path, tt.wantPath)
			}
		})
	}
}

func TestLoadOSSConfig(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "oss.json")
	if err := os.WriteFile(file, []byte(ossJSON+"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"base64", "eyJvc3NfYnVja2V0IjoiY20tYmluYXJ5Iiwib3NzX2VuZHBvaW50Ijoib3NzLWNuLWhhbmd6aG91LmFsaXl1bmNzLmNvbSIsImtleV9pZCI6ImlkIiwia2V5X3NlY3JldCI6InNlY3JldCJ9", false},
		{"file path", file, false},
		{"literal json", ossJSON, false},
		{"missing file is parsed as json", filepath.Join(dir, "nope.json"), true},
		{"empty", "  ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LoadOSSConfig(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("LoadOSSConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && (got.Bucket != "cm-binary" || got.KeyID != "id") {
				t.Errorf("LoadOSSConfig() = %+v", got)
			}
		})
	}
}

func TestOSSConfigDefaults(t *testing.T) {
	keyring.MockInit()
	if err := keyring.Set("oss", "id", "kept-secret"); err != nil {
		t.Fatal(err)
	}

	no := false
	c := &OSSConfig{Bucket: "b", Endpoint: "http://minio:9000", KeyID: "id", KeySecret: "keyring:oss"}
	if !c.Override() {
		t.Errorf("Override() should default to true")
	}
	c.OverrideExisting = &no
	if c.Override() {
		t.Errorf("Override() = true with override_existing=false")
	}

	opts, err := c.ObjstoreOptions()
	if err != nil {
		t.Fatalf("ObjstoreOptions() error = %v", err)
	}
	if opts.KeySecret != "kept-secret" || !opts.UseSSL {
		t.Errorf("ObjstoreOptions() = %+v", opts)
	}

	c.UseSSL = &no
	opts, _ = c.ObjstoreOptions()
	if opts.UseSSL {
		t.Errorf("use_ssl=false ignored")
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv(EnvDestination, "from-env")

	if got := FromEnv("from-flag", EnvDestination); got != "from-flag" {
		t.Errorf("FromEnv() = %q, flag should win", got)
	}
	if got := FromEnv("", EnvDestination); got != "from-env" {
		t.Errorf("FromEnv() = %q, want env value", got)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(EnvOSSResConfig+"=from-dotenv\n"), 0600); err != nil {
		t.Fatal(err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
	t.Setenv(EnvOSSResConfig, "")
	os.Unsetenv(EnvOSSResConfig)

	LoadDotEnv()
	if got := os.Getenv(EnvOSSResConfig); got != "from-dotenv" {
		t.Errorf("%s = %q after LoadDotEnv", EnvOSSResConfig, got)
	}
}
