package cli

import (
	"context"
	"log/slog"
	"testing"

	"teamfinance/internal/config"
)

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger := SetupLogger(tt.level, "json", "test")
			ctx := context.Background()
			if !logger.Enabled(ctx, tt.want) {
				t.Errorf("level %s should be enabled", tt.want)
			}
			if tt.want > slog.LevelDebug && logger.Enabled(ctx, tt.want-4) {
				t.Errorf("level below %s should be disabled", tt.want)
			}
			if logger.Component() != "test" {
				t.Errorf("component = %q", logger.Component())
			}
		})
	}
}

func TestInitBackendMemory(t *testing.T) {
	cfg, err := config.LoadFrom(map[string]string{})
	if err != nil {
		t.Fatal(err)
	}
	res := InitBackend(context.Background(), SetupLogger("error", "text", "test"), cfg, false)
	defer res.Cleanup()

	if err := res.Store.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if res.Publisher != nil {
		t.Fatal("events are disabled by default")
	}
}
