package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContext(t *testing.T) {
	t.Run("falls back to no-op", func(t *testing.T) {
		if _, ok := FromContext(context.Background()).(*noOpLogger); !ok {
			t.Errorf("FromContext() without a logger should return the no-op logger")
		}
	})

	t.Run("returns stored logger", func(t *testing.T) {
		l, err := NewZapLogger(Options{Level: "error"})
		if err != nil {
			t.Fatalf("NewZapLogger() error = %v", err)
		}
		ctx := WithLogger(context.Background(), l)
		if got := FromContext(ctx); got != Logger(l) {
			t.Errorf("FromContext() = %v, want %v", got, l)
		}
	})
}

func Test_toZapLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
		{"ERROR", zapcore.ErrorLevel},
		{"chatty", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := toZapLevel(tt.in); got != tt.want {
				t.Errorf("toZapLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewZapLogger(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"", false},
		{"console", false},
		{"json", false},
		{"logfmt", true},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			_, err := NewZapLogger(Options{Level: "info", Format: tt.format, Service: "go-hillshades"})
			if (err != nil) != tt.wantErr {
				t.Errorf("NewZapLogger(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
			}
		})
	}
}

func TestZapLogger_With(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := newZapLogger(zap.New(core).With(zap.String("service", "go-hillshades")))

	l.With("tile", "12/654/1583").Warn("elevation read failed", "attempt", 2)
	l.Info("plain")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("logged %d entries, want 2", len(entries))
	}

	fields := entries[0].ContextMap()
	if fields["tile"] != "12/654/1583" || fields["service"] != "go-hillshades" || fields["attempt"] != int64(2) {
		t.Errorf("scoped entry fields = %v", fields)
	}
	if _, ok := entries[1].ContextMap()["tile"]; ok {
		t.Errorf("With leaked fields into the parent logger: %v", entries[1].ContextMap())
	}

	if Nop().With("tile", "1/0/0") == nil {
		t.Error("no-op With returned nil")
	}
}
