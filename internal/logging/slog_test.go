package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlogLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	log := newSlogText(&buf, slog.LevelDebug)
	ctx := context.Background()

	log.Debug(ctx, "pulling image", "ref", "postgres:15")
	log.Info(ctx, "container started", "record_id", "r1")
	log.Warn(ctx, "cleanup failed", "volume", "v1")
	log.Error(ctx, "probe error", "attempt", 3)

	out := buf.String()
	for _, want := range []string{
		"level=DEBUG", `msg="pulling image"`, "ref=postgres:15",
		"level=INFO", "record_id=r1",
		"level=WARN", "volume=v1",
		"level=ERROR", "attempt=3",
	} {
		assert.Contains(t, out, want)
	}
}

func TestSlogLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := newSlogText(&buf, slog.LevelWarn)

	log.Info(context.Background(), "hidden")
	log.Warn(context.Background(), "shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestSlogLogger_With(t *testing.T) {
	var buf bytes.Buffer
	log := newSlogJSON(&buf, slog.LevelInfo).With("record_id", "r1", "kind", "redis")
	log.Info(context.Background(), "ready", "port", 6379)

	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	assert.Equal(t, "r1", m["record_id"])
	assert.Equal(t, "redis", m["kind"])
	assert.EqualValues(t, 6379, m["port"])
}

func TestSlogLogger_MasksSecrets(t *testing.T) {
	var buf bytes.Buffer
	log := newSlogText(&buf, slog.LevelInfo)

	log.With("passphrase", "hunter2").Info(context.Background(), "oops", "password", "s3cr3t", "Root_Password", "r00t")

	out := buf.String()
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "s3cr3t")
	assert.NotContains(t, out, "r00t")
	assert.Contains(t, out, "password="+redacted)
}
