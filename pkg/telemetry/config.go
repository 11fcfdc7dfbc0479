package telemetry

import (
	"os"
	"strings"

	"github.com/rsc-forge/pkg/config"
)

// Config holds exporter settings.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	// Endpoint of the OTLP collector; a http:// scheme implies Insecure.
	Endpoint string
	// Protocol is grpc or http/protobuf.
	Protocol      string
	Headers       map[string]string
	Insecure      bool
	Sampler       string
	SamplerArg    string
	ResourceAttrs map[string]string
}

// FromConfig converts the application telemetry section. Standard OTEL_*
// environment variables take precedence over file values.
func FromConfig(tc config.TelemetryConfig) *Config {
	cfg := &Config{
		Enabled:        tc.Enabled,
		ServiceName:    tc.ServiceName,
		ServiceVersion: tc.ServiceVersion,
		Endpoint:       tc.Endpoint,
		Protocol:       tc.Protocol,
		Headers:        copyMap(tc.Headers),
		Insecure:       tc.Insecure,
		Sampler:        tc.Sampler,
		SamplerArg:     tc.SamplerArg,
		ResourceAttrs:  copyMap(tc.ResourceAttrs),
	}
	applyEnv(cfg)
	return cfg
}

// LoadFromEnv builds a Config from the OTEL_* environment alone.
func LoadFromEnv() *Config {
	cfg := &Config{
		ServiceName:    "rsc-forge",
		ServiceVersion: "unknown",
		Protocol:       "grpc",
		Headers:        map[string]string{},
		ResourceAttrs:  map[string]string{},
	}
	applyEnv(cfg)
	return cfg
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("OTEL_ENABLED"); v != "" {
		cfg.Enabled = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("OTEL_SERVICE_NAME"); v != "" {
		cfg.ServiceName = v
	}
	if v := os.Getenv("OTEL_SERVICE_VERSION"); v != "" {
		cfg.ServiceVersion = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.Endpoint = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_PROTOCOL"); v != "" {
		cfg.Protocol = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_INSECURE"); v != "" {
		cfg.Insecure = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("OTEL_TRACES_SAMPLER"); v != "" {
		cfg.Sampler = v
	}
	if v := os.Getenv("OTEL_TRACES_SAMPLER_ARG"); v != "" {
		cfg.SamplerArg = v
	}
	cfg.Headers = mergePairs(cfg.Headers, os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))
	cfg.ResourceAttrs = mergePairs(cfg.ResourceAttrs, os.Getenv("OTEL_RESOURCE_ATTRIBUTES"))
}

// mergePairs adds "k1=v1,k2=v2" entries to dst. Values may contain '='.
func mergePairs(dst map[string]string, s string) map[string]string {
	if dst == nil {
		dst = make(map[string]string)
	}
	for _, pair := range strings.Split(s, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		dst[key] = strings.TrimSpace(value)
	}
	return dst
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
