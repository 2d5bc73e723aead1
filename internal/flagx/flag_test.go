package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		allowedFlags []string
		want         []string
	}{
		{
			name:         "short flag with separate value",
			args:         []string{"-c", "conf.json", "-H", "unix:///var/run/docker.sock"},
			allowedFlags: []string{"-c", "--config"},
			want:         []string{"-c", "conf.json"},
		},
		{
			name:         "long flag with equals",
			args:         []string{"--config=alt.json", "-d", "/tmp/data"},
			allowedFlags: []string{"-c", "--config"},
			want:         []string{"--config=alt.json"},
		},
		{
			name:         "unknown flags ignored",
			args:         []string{"-x", "1", "--y=2", "positional"},
			allowedFlags: []string{"-c"},
			want:         []string{},
		},
		{
			name:         "flag without value at end",
			args:         []string{"-c"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c"},
		},
		{
			name:         "next dash token is not a value",
			args:         []string{"-b", "-l", "debug"},
			allowedFlags: []string{"-b", "-l"},
			want:         []string{"-b", "-l", "debug"},
		},
		{
			name:         "several allowed flags keep order",
			args:         []string{"-d", "/data", "-c", "conf.json", "--other", "x", "-b", "s3"},
			allowedFlags: []string{"-d", "-b"},
			want:         []string{"-d", "/data", "-b", "s3"},
		},
		{
			name:         "empty args",
			args:         nil,
			allowedFlags: []string{"-c"},
			want:         []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowedFlags))
		})
	}
}

func TestConfigPath(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"short", []string{"-c", "/path/short.json"}, "/path/short.json"},
		{"long", []string{"-config", "/path/long.json"}, "/path/long.json"},
		{"equals", []string{"-config=/path/eq.json"}, "/path/eq.json"},
		{"mixed with other flags", []string{"-d", "/data", "-c", "x.json", "-l", "debug"}, "x.json"},
		{"last wins", []string{"-c", "/path/1.json", "-config", "/path/2.json"}, "/path/2.json"},
		{"absent", []string{"-d", "/data"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConfigPath(tt.args))
		})
	}
}
