package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rsc-forge/pkg/config"
)

func clearOTELEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"OTEL_ENABLED", "OTEL_SERVICE_NAME", "OTEL_SERVICE_VERSION",
		"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_PROTOCOL",
		"OTEL_EXPORTER_OTLP_HEADERS", "OTEL_EXPORTER_OTLP_INSECURE",
		"OTEL_TRACES_SAMPLER", "OTEL_TRACES_SAMPLER_ARG", "OTEL_RESOURCE_ATTRIBUTES",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		clearOTELEnv(t)
		cfg := LoadFromEnv()
		assert.False(t, cfg.Enabled)
		assert.Equal(t, "rsc-forge", cfg.ServiceName)
		assert.Equal(t, "unknown", cfg.ServiceVersion)
		assert.Equal(t, "grpc", cfg.Protocol)
		assert.Empty(t, cfg.Headers)
	})

	t.Run("overrides", func(t *testing.T) {
		clearOTELEnv(t)
		t.Setenv("OTEL_ENABLED", "TRUE")
		t.Setenv("OTEL_SERVICE_NAME", "converter")
		t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "http/protobuf")
		t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "Authorization=Bearer a=b, x-team = forge")
		t.Setenv("OTEL_RESOURCE_ATTRIBUTES", "env=prod,,=skip")

		cfg := LoadFromEnv()
		assert.True(t, cfg.Enabled)
		assert.Equal(t, "converter", cfg.ServiceName)
		assert.Equal(t, "http/protobuf", cfg.Protocol)
		assert.Equal(t, map[string]string{"Authorization": "Bearer a=b", "x-team": "forge"}, cfg.Headers)
		assert.Equal(t, map[string]string{"env": "prod"}, cfg.ResourceAttrs)
	})
}

func TestFromConfig(t *testing.T) {
	clearOTELEnv(t)
	tc := config.TelemetryConfig{
		Enabled:     true,
		ServiceName: "from-file",
		Protocol:    "grpc",
		Endpoint:    "http://otel:4317",
		Headers:     map[string]string{"k": "v"},
	}

	cfg := FromConfig(tc)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "from-file", cfg.ServiceName)
	assert.Equal(t, "v", cfg.Headers["k"])

	t.Setenv("OTEL_SERVICE_NAME", "from-env")
	t.Setenv("OTEL_ENABLED", "false")
	cfg = FromConfig(tc)
	assert.Equal(t, "from-env", cfg.ServiceName)
	assert.False(t, cfg.Enabled)

	cfg.Headers["k"] = "changed"
	assert.Equal(t, "v", tc.Headers["k"], "config map is copied")
}
