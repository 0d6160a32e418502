package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		level   string
		dev     bool
		enabled zapcore.Level
		off     zapcore.Level
		wantErr bool
	}{
		{level: "info", enabled: zapcore.InfoLevel, off: zapcore.DebugLevel},
		{level: "debug", dev: true, enabled: zapcore.DebugLevel, off: zapcore.DebugLevel - 1},
		{level: "warn", enabled: zapcore.ErrorLevel, off: zapcore.InfoLevel},
		{level: "loud", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			l, err := New(tt.level, tt.dev)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if !l.Core().Enabled(tt.enabled) {
				t.Errorf("%s not enabled", tt.enabled)
			}
			if l.Core().Enabled(tt.off) {
				t.Errorf("%s enabled", tt.off)
			}
		})
	}
}
