package logger

import (
	"context"
	"log/slog"
	"testing"

	"homeowner-assistant-platform/internal/config"
)

func TestInitLoggerSetsGlobal(t *testing.T) {
	Logger = nil
	InitLogger(&config.Config{GinMode: "release"})
	if Logger == nil {
		t.Fatal("InitLogger left the global logger nil")
	}
	if Logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Errorf("release mode should not enable debug logging")
	}
}

func TestInitLoggerDebugLevel(t *testing.T) {
	InitLogger(&config.Config{GinMode: "debug"})
	if !Logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Errorf("debug mode should enable debug logging")
	}
}
