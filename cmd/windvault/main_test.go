package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGlobal(t *testing.T) {
	t.Setenv("WINDVAULT_TOKEN", "")
	tests := []struct {
		name       string
		args       []string
		wantOpts   globalOptions
		wantRemain []string
		wantErr    bool
	}{
		{
			name:       "default values",
			args:       []string{},
			wantOpts:   globalOptions{socketPath: defaultSocketPath, timeout: defaultRequestTimeout},
			wantRemain: []string{},
		},
		{
			name:       "with remaining args",
			args:       []string{"order", "list"},
			wantOpts:   globalOptions{socketPath: defaultSocketPath, timeout: defaultRequestTimeout},
			wantRemain: []string{"order", "list"},
		},
		{
			name:       "custom socket path",
			args:       []string{"--socket", "/tmp/test.sock"},
			wantOpts:   globalOptions{socketPath: "/tmp/test.sock", timeout: defaultRequestTimeout},
			wantRemain: []string{},
		},
		{
			name:       "json output flag",
			args:       []string{"--json"},
			wantOpts:   globalOptions{socketPath: defaultSocketPath, jsonOutput: true, timeout: defaultRequestTimeout},
			wantRemain: []string{},
		},
		{
			name:       "custom timeout",
			args:       []string{"--timeout", "5m"},
			wantOpts:   globalOptions{socketPath: defaultSocketPath, timeout: 5 * time.Minute},
			wantRemain: []string{},
		},
		{
			name:       "token flag",
			args:       []string{"--token", "secret"},
			wantOpts:   globalOptions{socketPath: defaultSocketPath, token: "secret", timeout: defaultRequestTimeout},
			wantRemain: []string{},
		},
		{
			name:       "version flag",
			args:       []string{"--version"},
			wantOpts:   globalOptions{socketPath: defaultSocketPath, showVersion: true, timeout: defaultRequestTimeout},
			wantRemain: []string{},
		},
		{
			name:       "empty socket falls back to default",
			args:       []string{"--socket", ""},
			wantOpts:   globalOptions{socketPath: defaultSocketPath, timeout: defaultRequestTimeout},
			wantRemain: []string{},
		},
		{
			name:    "invalid timeout",
			args:    []string{"--timeout", "invalid"},
			wantErr: true,
		},
		{
			name:       "all flags with args",
			args:       []string{"--socket", "/custom.sock", "--json", "--timeout", "30s", "order", "list"},
			wantOpts:   globalOptions{socketPath: "/custom.sock", jsonOutput: true, timeout: 30 * time.Second},
			wantRemain: []string{"order", "list"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, remain, err := parseGlobal(tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOpts, opts)
			assert.Equal(t, tt.wantRemain, remain)
		})
	}
}

func TestParseGlobalTokenFromEnv(t *testing.T) {
	t.Setenv("WINDVAULT_TOKEN", "env-token")
	opts, _, err := parseGlobal(nil)
	require.NoError(t, err)
	assert.Equal(t, "env-token", opts.token)
}

func TestIsHelpToken(t *testing.T) {
	assert.True(t, isHelpToken("help"))
	assert.True(t, isHelpToken("--help"))
	assert.True(t, isHelpToken("-h"))
	assert.False(t, isHelpToken("status"))
}
