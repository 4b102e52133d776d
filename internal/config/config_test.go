package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SearchCandidateLimit != 100 || cfg.SearchResultLimit != 50 {
		t.Errorf("search limits = %d/%d, want 100/50", cfg.SearchCandidateLimit, cfg.SearchResultLimit)
	}
	if cfg.NearbyDefaultRadiusKM != 50 {
		t.Errorf("NearbyDefaultRadiusKM = %v, want 50", cfg.NearbyDefaultRadiusKM)
	}
	if cfg.SeatOpTimeout != 3*time.Second {
		t.Errorf("SeatOpTimeout = %v, want 3s", cfg.SeatOpTimeout)
	}
	if cfg.KafkaEnabled() {
		t.Error("Kafka should be disabled without brokers")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("SEAT_OP_TIMEOUT", "750ms")
	t.Setenv("SEARCH_RESULT_LIMIT", "20")
	t.Setenv("ENV", "production")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Errorf("KafkaBrokers = %v", cfg.KafkaBrokers)
	}
	if cfg.SeatOpTimeout != 750*time.Millisecond {
		t.Errorf("SeatOpTimeout = %v", cfg.SeatOpTimeout)
	}
	if cfg.SearchResultLimit != 20 {
		t.Errorf("SearchResultLimit = %d", cfg.SearchResultLimit)
	}
	if !cfg.IsProduction() {
		t.Error("IsProduction() = false")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("SEARCH_CANDIDATE_LIMIT", "lots")
	t.Setenv("SEAT_OP_TIMEOUT", "-1s")
	t.Setenv("SEARCH_RESULT_LIMIT", "500")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"SEARCH_CANDIDATE_LIMIT", "SEAT_OP_TIMEOUT", "SEARCH_RESULT_LIMIT"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}
