package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDisabled(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{name: "nil config", cfg: nil},
		{name: "disabled config", cfg: &Config{Enabled: false, ServiceName: "event-manager"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tel, err := Init(context.Background(), tt.cfg)
			require.NoError(t, err)
			require.NotNil(t, tel)

			// No-op tracer must still hand out usable spans
			assert.NotNil(t, tel.Tracer())
			_, span := tel.Tracer().Start(context.Background(), "test-span")
			assert.NotNil(t, span)
			span.End()

			// Shutdown without a provider is a no-op
			assert.NoError(t, tel.Shutdown(context.Background()))
		})
	}
}
