package observability

import (
	"context"
	"log/slog"
	"testing"

	"go.opentelemetry.io/contrib/processors/minsev"
	"go.opentelemetry.io/otel"
)

func restoreDefaults(t *testing.T) {
	t.Helper()
	logger := slog.Default()
	propagator := otel.GetTextMapPropagator()
	t.Cleanup(func() {
		slog.SetDefault(logger)
		otel.SetTextMapPropagator(propagator)
	})
}

func TestInstrument_LocalFormats(t *testing.T) {
	for _, format := range []string{"", "text", "json"} {
		t.Run("format="+format, func(t *testing.T) {
			restoreDefaults(t)
			ctx := context.Background()

			shutdown, err := Instrument(ctx, slog.LevelWarn, format, ExporterNone)
			if err != nil {
				t.Fatalf("Instrument failed: %v", err)
			}
			defer func() { _ = shutdown(ctx) }()

			if slog.Default().Enabled(ctx, slog.LevelInfo) {
				t.Error("info must be disabled at warn level")
			}
			if !slog.Default().Enabled(ctx, slog.LevelWarn) {
				t.Error("warn must be enabled at warn level")
			}

			fields := otel.GetTextMapPropagator().Fields()
			found := false
			for _, f := range fields {
				if f == "traceparent" {
					found = true
				}
			}
			if !found {
				t.Errorf("expected traceparent propagation, got fields %v", fields)
			}
		})
	}
}

func TestInstrument_StdoutExporter(t *testing.T) {
	restoreDefaults(t)
	ctx := context.Background()

	shutdown, err := Instrument(ctx, slog.LevelDebug, "json", ExporterStdout)
	if err != nil {
		t.Fatalf("Instrument failed: %v", err)
	}
	if !slog.Default().Enabled(ctx, slog.LevelDebug) {
		t.Error("debug must be enabled")
	}
	if err := shutdown(ctx); err != nil {
		t.Errorf("shutdown failed: %v", err)
	}
}

func TestInstrument_Invalid(t *testing.T) {
	restoreDefaults(t)
	ctx := context.Background()

	if _, err := Instrument(ctx, slog.LevelInfo, "xml", ExporterNone); err == nil {
		t.Error("expected error for unsupported format")
	}
	if _, err := Instrument(ctx, slog.LevelInfo, "text", "zipkin"); err == nil {
		t.Error("expected error for unsupported exporter")
	}
}

func TestSeverity(t *testing.T) {
	tests := []struct {
		level slog.Level
		want  minsev.Severity
	}{
		{slog.LevelDebug - 4, minsev.SeverityDebug},
		{slog.LevelDebug, minsev.SeverityDebug},
		{slog.LevelInfo, minsev.SeverityInfo},
		{slog.LevelWarn, minsev.SeverityWarn},
		{slog.LevelError, minsev.SeverityError},
		{slog.LevelError + 4, minsev.SeverityError},
	}
	for _, tt := range tests {
		if got := severity(tt.level); got != tt.want {
			t.Errorf("severity(%v) = %v, want %v", tt.level, got, tt.want)
		}
	}
}
