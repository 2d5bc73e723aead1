package config

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    func() *Config
		wantErr bool
	}{
		{
			name: "all flags",
			args: []string{"-d", "/data", "-b", "memory", "-H", "unix:///run/docker.sock", "-l", "debug"},
			want: func() *Config {
				c := Default()
				c.DataDir = "/data"
				c.VaultBackend = BackendMemory
				c.DockerHost = "unix:///run/docker.sock"
				c.LogLevel = "debug"
				return c
			},
		},
		{
			name: "foreign flags ignored",
			args: []string{"-c", "cfg.json", "-x", "1", "-l", "warn"},
			want: func() *Config {
				c := Default()
				c.LogLevel = "warn"
				return c
			},
		},
		{
			name:    "equals form with empty value is accepted",
			args:    []string{"-b="},
			want:    func() *Config { c := Default(); c.VaultBackend = ""; return c },
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			err := parseFlags(cfg, tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tt.want(), cfg))
		})
	}
}
