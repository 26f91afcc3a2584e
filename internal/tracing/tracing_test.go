package tracing

import (
	"context"
	"errors"
	"testing"
)

func TestNewProviderDisabled(t *testing.T) {
	p, err := NewProvider(Config{Enabled: false})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if p.IsEnabled() {
		t.Error("provider reports enabled with tracing off")
	}
	if p.Tracer("test") == nil {
		t.Error("Tracer returned nil")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown on disabled provider: %v", err)
	}
}

func TestNewProviderValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{
			name: "missing service name",
			cfg:  Config{Enabled: true, SamplingRate: 0.5},
		},
		{
			name: "sampling rate above one",
			cfg:  Config{Enabled: true, ServiceName: "rankd", SamplingRate: 1.5},
		},
		{
			name: "negative sampling rate",
			cfg:  Config{Enabled: true, ServiceName: "rankd", SamplingRate: -0.1},
		},
		{
			name: "unsupported exporter",
			cfg:  Config{Enabled: true, ServiceName: "rankd", SamplingRate: 0.5, ExporterType: "jaeger"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewProvider(tt.cfg); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestStartDBSpan(t *testing.T) {
	ctx, endSpan := StartDBSpan(context.Background(), "posts", DBOperationQuery)
	if ctx == nil {
		t.Fatal("StartDBSpan returned nil context")
	}
	// Ending with an error must not panic even with the noop tracer.
	endSpan(errors.New("boom"))

	ctx, endSpan = StartDBSpan(context.Background(), "", DBOperationExec)
	if ctx == nil {
		t.Fatal("StartDBSpan returned nil context for empty table")
	}
	endSpan(nil)
}
