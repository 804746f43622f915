package telemetry

import (
	"context"
	"testing"
)

func TestSetupAndShutdown(t *testing.T) {
	// No collector is listening; the exporter connects lazily and no
	// spans are recorded, so setup and shutdown must both succeed.
	p, err := Setup(context.Background(), Config{
		Endpoint: "127.0.0.1:4318",
		Insecure: true,
	}, nil)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}

func TestShutdown_NilProvider(t *testing.T) {
	t.Parallel()

	var p *Provider
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("nil provider Shutdown: %v", err)
	}
}
