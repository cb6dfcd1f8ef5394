package main

import (
	"testing"

	log "github.com/sirupsen/logrus"

	"github.com/adepetun22/shopapp/internal/app"
)

func TestLogLevelFromEnv(t *testing.T) {
	cases := []struct {
		raw  string
		want log.Level
	}{
		{"", log.InfoLevel},
		{"debug", log.DebugLevel},
		{"warn", log.WarnLevel},
		{"error", log.ErrorLevel},
		{"not-a-level", log.InfoLevel},
	}

	for _, tc := range cases {
		if got := logLevelFromEnv(tc.raw); got != tc.want {
			t.Errorf("logLevelFromEnv(%q) = %s, want %s", tc.raw, got, tc.want)
		}
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := app.LoadConfig()

	if cfg.HTTPAddr == "" {
		t.Error("HTTPAddr should not be empty")
	}
	if cfg.MetricsAddr == "" {
		t.Error("MetricsAddr should not be empty")
	}
	if cfg.StorageDriver == "" {
		t.Error("StorageDriver should not be empty")
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("SHOP_HTTP_ADDR", "127.0.0.1:18099")

	cfg := app.LoadConfig()
	if cfg.HTTPAddr != "127.0.0.1:18099" {
		t.Errorf("HTTPAddr = %s, want 127.0.0.1:18099", cfg.HTTPAddr)
	}
}
