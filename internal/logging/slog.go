package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

const redacted = "[REDACTED]"

// secretKeys are attribute keys whose values never reach the output, even
// when a caller passes them by mistake.
var secretKeys = map[string]bool{
	"password":      true,
	"root_password": true,
	"passphrase":    true,
	"dsn":           true,
	"conn":          true,
}

func isSecretKey(k string) bool {
	return secretKeys[strings.ToLower(k)]
}

// SlogLogger adapts a *slog.Logger to Logger.
type SlogLogger struct {
	l *slog.Logger
}

func NewSlogLogger(l *slog.Logger) *SlogLogger {
	return &SlogLogger{l: l}
}

// handlerOptions returns options that drop records below lvl and mask
// secret attributes.
func handlerOptions(lvl slog.Leveler) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if isSecretKey(a.Key) {
				return slog.String(a.Key, redacted)
			}
			return a
		},
	}
}

func newSlogText(w io.Writer, lvl slog.Leveler) *SlogLogger {
	return NewSlogLogger(slog.New(slog.NewTextHandler(w, handlerOptions(lvl))))
}

func newSlogJSON(w io.Writer, lvl slog.Leveler) *SlogLogger {
	return NewSlogLogger(slog.New(slog.NewJSONHandler(w, handlerOptions(lvl))))
}

func (s *SlogLogger) Debug(ctx context.Context, msg string, args ...any) {
	s.l.DebugContext(ctx, msg, args...)
}

func (s *SlogLogger) Info(ctx context.Context, msg string, args ...any) {
	s.l.InfoContext(ctx, msg, args...)
}

func (s *SlogLogger) Warn(ctx context.Context, msg string, args ...any) {
	s.l.WarnContext(ctx, msg, args...)
}

func (s *SlogLogger) Error(ctx context.Context, msg string, args ...any) {
	s.l.ErrorContext(ctx, msg, args...)
}

func (s *SlogLogger) With(args ...any) Logger {
	return &SlogLogger{l: s.l.With(args...)}
}
