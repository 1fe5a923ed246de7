package logger

import (
	"context"
	"log/slog"
	"testing"
)

func TestNewProvidesJSONLogger(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("APP_ENV", "")

	l := New()
	if l == nil {
		t.Fatal("expected logger, got nil")
	}
	if !l.Enabled(context.Background(), slog.LevelDebug) {
		t.Errorf("expected debug level outside production")
	}
	if _, ok := l.Handler().(*slog.JSONHandler); !ok {
		t.Fatalf("expected JSON handler, got %T", l.Handler())
	}
}

func TestNewRespectsProductionEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("APP_ENV", "production")

	l := New()
	if l.Enabled(context.Background(), slog.LevelDebug) {
		t.Errorf("did not expect debug level in production")
	}
	if !l.Enabled(context.Background(), slog.LevelInfo) {
		t.Errorf("expected info level in production")
	}
}

func TestNewRespectsLogLevelEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")

	l := New()
	if l.Enabled(context.Background(), slog.LevelWarn) {
		t.Errorf("did not expect warn level with LOG_LEVEL=error")
	}
	if !l.Enabled(context.Background(), slog.LevelError) {
		t.Errorf("expected error level to be enabled")
	}
}
