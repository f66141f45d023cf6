package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "all flags", args: []string{"cmd",
			"-a", "127.0.0.1:9090", "-d", "memory://", "-s", "secret", "-k", "enc",
			"-t", "1", "-r", "3", "-l", "debug", "-f", "/var/mail", "-m", "smtp.example.com", "-n", "465",
			"-u", "user", "-p", "password", "-b", "bucket", "-g", "us-west-1", "-e", "http://endpoint",
		}, expected: &Config{
			HTTPAddr:                     "127.0.0.1:9090",
			DatabaseDSN:                  "memory://",
			SecretKey:                    "secret",
			EncryptionSecret:             "enc",
			AccessTokenValidityDuration:  1 * time.Minute,
			RefreshTokenValidityDuration: 3 * time.Minute,
			LogLevel:                     "debug",
			AttachmentBasePath:           "/var/mail",
			SMTPHost:                     "smtp.example.com",
			SMTPPort:                     465,
			S3RootUser:                   "user",
			S3RootPassword:               "password",
			S3Bucket:                     "bucket",
			S3Region:                     "us-west-1",
			S3BaseEndpoint:               "http://endpoint",
		}},
		{name: "bad port", args: []string{"cmd", "-n", "abc"}, expectPanic: true},
		{name: "config flag is ignored here", args: []string{"cmd", "-c", "x.yaml", "-a", ":1"},
			expected: &Config{HTTPAddr: ":1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			origArgs := os.Args
			t.Cleanup(func() { os.Args = origArgs })
			os.Args = tt.args

			config := &Config{}

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(config) })
				return
			}
			require.NotPanics(t, func() { parseFlags(config) })
			assert.Empty(t, cmp.Diff(tt.expected, config))
		})
	}
}
