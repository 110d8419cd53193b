package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), configFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestApplyConfigFile(t *testing.T) {
	path := writeConfig(t, `
transport: streamable-http
http-addr: 127.0.0.1:9000
callback-timeout: 2m
no-browser: true
rate-limit: 2.5
`)
	cmd := newServeCmd()
	require.NoError(t, cmd.Flags().Set("http-addr", "127.0.0.1:7000"))

	require.NoError(t, applyConfigFile(cmd, path, true, changedFlags(cmd)))

	transport, _ := cmd.Flags().GetString("transport")
	addr, _ := cmd.Flags().GetString("http-addr")
	timeout, _ := cmd.Flags().GetDuration("callback-timeout")
	noBrowser, _ := cmd.Flags().GetBool("no-browser")
	rateLimit, _ := cmd.Flags().GetFloat64("rate-limit")

	assert.Equal(t, TransportStreamableHTTP, transport)
	assert.Equal(t, "127.0.0.1:7000", addr, "command line wins over the file")
	assert.Equal(t, 2*time.Minute, timeout)
	assert.True(t, noBrowser)
	assert.Equal(t, 2.5, rateLimit)
}

func TestApplyConfigFileErrors(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		required bool
		missing  bool
		wantErr  string
	}{
		{name: "missing optional file", missing: true},
		{name: "missing required file", missing: true, required: true, wantErr: "failed to read config file"},
		{name: "unknown key", content: "verbose: true\n", wantErr: `unknown setting "verbose"`},
		{name: "config key", content: "config: other.yaml\n", wantErr: `unknown setting "config"`},
		{name: "bad value", content: "callback-timeout: soon\n", wantErr: `invalid value for "callback-timeout"`},
		{name: "malformed", content: "transport: [\n", wantErr: "error loading config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), configFileName)
			if !tt.missing {
				path = writeConfig(t, tt.content)
			}
			cmd := newServeCmd()

			err := applyConfigFile(cmd, path, tt.required, changedFlags(cmd))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEnvironmentWinsOverConfigFile(t *testing.T) {
	path := writeConfig(t, "metrics-addr: 127.0.0.1:9500\nmetrics-enabled: false\n")
	cmd := newServeCmd()
	explicit := changedFlags(cmd)
	require.NoError(t, applyConfigFile(cmd, path, true, explicit))

	enabled, _ := cmd.Flags().GetBool("metrics-enabled")
	addr, _ := cmd.Flags().GetString("metrics-addr")
	cfg := MetricsConfig{Enabled: enabled, Addr: addr}
	loadMetricsEnv(explicit, &cfg, func(key string) string {
		if key == "METRICS_ADDR" {
			return "127.0.0.1:9600"
		}
		return ""
	})

	assert.Equal(t, MetricsConfig{Enabled: false, Addr: "127.0.0.1:9600"}, cfg)
}
