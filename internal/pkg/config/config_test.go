package config

import (
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("lokal-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Content.Source != SourceDirectus {
		t.Errorf("expected directus source, got %s", cfg.Content.Source)
	}
	if cfg.Telemetry.ServiceName != "lokal-test" {
		t.Errorf("expected service name lokal-test, got %s", cfg.Telemetry.ServiceName)
	}
	if cfg.Search.MaxRadiusKm != 100 {
		t.Errorf("expected max radius 100, got %v", cfg.Search.MaxRadiusKm)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("LOKAL_CONTENT_SOURCE", "postgres")
	t.Setenv("LOKAL_SERVER_PORT", "9090")

	cfg, err := Load("lokal-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Content.Source != SourcePostgres {
		t.Errorf("expected postgres source, got %s", cfg.Content.Source)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
}

func TestValidate_CollectsErrors(t *testing.T) {
	cfg := &Config{
		Server:  ServerConfig{Port: 0, ReadTimeout: 1, WriteTimeout: 1},
		Content: ContentConfig{Source: "ftp", Timeout: 1},
		Search:  SearchConfig{DefaultRadiusKm: 5, MaxRadiusKm: 1, MaxLimit: 10, ClusterRes: 20},
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{
		"server.port",
		"database.host",
		"content.source",
		"search.max_radius_km",
		"search.cluster_resolution",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to mention %s, got:\n%v", want, err)
		}
	}
}
