package observability

import (
	"context"
	"testing"

	"github.com/rrronit/flash/internal/config"
)

func TestSetupTracing_Disabled(t *testing.T) {
	shutdown, err := SetupTracing(config.Config{OTLPEndpoint: ""})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if shutdown != nil {
		t.Fatal("expected nil shutdown when disabled")
	}
}

func TestSetupTracing_WithEndpoint(t *testing.T) {
	cfg := config.Config{
		OTLPEndpoint:    "localhost:4317",
		OTELServiceName: "test-service",
	}
	// The exporter connects lazily, so setup succeeds without a collector.
	shutdown, err := SetupTracing(cfg)
	if err != nil {
		if shutdown != nil {
			t.Fatal("expected nil shutdown function on error")
		}
		return
	}
	if shutdown != nil {
		_ = shutdown(context.Background())
	}
}
