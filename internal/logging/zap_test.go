package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLogger_LevelsAndFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := NewZapLogger(zap.New(core))
	ctx := context.Background()

	log.Debug(ctx, "dbg", "a", 1)
	log.Info(ctx, "inf", "b", 2)
	log.With("record_id", "r1").Warn(ctx, "wrn", "c", 3)
	log.Error(ctx, "err", "d", 4)

	entries := logs.AllUntimed()
	require.Len(t, entries, 4)
	assert.Equal(t, "dbg", entries[0].Message)
	assert.Equal(t, zap.WarnLevel, entries[2].Level)
	assert.Equal(t, "r1", entries[2].ContextMap()["record_id"])
	assert.EqualValues(t, 4, entries[3].ContextMap()["d"])
}

func TestNew_Formats(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		format string
		want   string
	}{
		{FormatText, "msg=hello"},
		{FormatJSON, `"msg":"hello"`},
		{FormatZap, `"msg":"hello"`},
		{"", "msg=hello"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			l, err := New(tt.format, "info", &buf)
			require.NoError(t, err)
			l.Info(ctx, "hello", "k", "v")
			l.Debug(ctx, "hidden")
			if z, ok := l.(*ZapLogger); ok {
				_ = z.Sync()
			}
			out := buf.String()
			assert.Contains(t, out, tt.want)
			assert.False(t, strings.Contains(out, "hidden"), "debug must be filtered at info level")
		})
	}
}

func TestNew_Errors(t *testing.T) {
	_, err := New("xml", "info", &bytes.Buffer{})
	assert.Error(t, err)

	_, err = New("text", "loud", &bytes.Buffer{})
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Info(context.Background(), "nothing")
	l.With("a", 1).Error(context.Background(), "nothing")
}

func TestZapLogger_MasksSecrets(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := NewZapLogger(zap.New(core))

	args := []any{"name", "db1", "password", "s3cr3t"}
	log.With("dsn", "postgres://u:p@h/db").Info(context.Background(), "created", args...)

	entries := logs.AllUntimed()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, redacted, fields["password"])
	assert.Equal(t, redacted, fields["dsn"])
	assert.Equal(t, "db1", fields["name"])
	assert.Equal(t, "s3cr3t", args[3])
}
