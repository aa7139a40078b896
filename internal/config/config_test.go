package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"REPAIR_CEILING", "SEARCH_TIMEOUT", "ALLOWED_SCHEMAS", "LLM_TEMPERATURE", "CONVERSATION_STORE"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, 3, cfg.Pipeline.RepairCeiling)
	assert.Equal(t, 60*time.Second, cfg.Pipeline.SearchTimeout)
	assert.Equal(t, []string{"parcels", "geographic_features", "infrastructure_features"}, cfg.Database.AllowedSchemas)
	assert.Equal(t, 0.2, cfg.LLM.Temperature)
	assert.Equal(t, "", cfg.Memory.Store)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("REPAIR_CEILING", "5")
	t.Setenv("SEARCH_TIMEOUT", "15s")
	t.Setenv("ALLOWED_SCHEMAS", " parcels , infrastructure_features ,")
	t.Setenv("LLM_TEMPERATURE", "0")
	t.Setenv("SESSION_TTL", "not-a-duration")
	t.Setenv("GO_ENV", "production")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "jaeger:4318")
	t.Setenv("LLM_LOG_FILE_PATH", "/var/log/parcel/llm.log")

	cfg := Load()

	assert.Equal(t, 5, cfg.Pipeline.RepairCeiling)
	assert.Equal(t, 15*time.Second, cfg.Pipeline.SearchTimeout)
	assert.Equal(t, []string{"parcels", "infrastructure_features"}, cfg.Database.AllowedSchemas)
	assert.Equal(t, 0.0, cfg.LLM.Temperature)
	assert.Equal(t, "/var/log/parcel/llm.log", cfg.LLM.LogFilePath)
	assert.Equal(t, 24*time.Hour, cfg.Memory.SessionTTL)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, TracingConfig{Enabled: true, Endpoint: "jaeger:4318"}, cfg.Tracing)
}
