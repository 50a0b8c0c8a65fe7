package config

import (
	"os"
	"path/filepath"
	"testing"

	"gateway-reconciliation-service/internal/gateway"
	"gateway-reconciliation-service/pkg/errors"
)

func TestBuildRegistryDefaults(t *testing.T) {
	registry, err := BuildRegistry(0, 0)
	if err != nil {
		t.Fatalf("BuildRegistry failed: %v", err)
	}

	cfg, err := registry.Get("equity", gateway.ConfigTypeExternal)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if cfg.FuzzyThreshold != gateway.DefaultFuzzyThreshold {
		t.Errorf("fuzzy threshold = %d, expected default %d", cfg.FuzzyThreshold, gateway.DefaultFuzzyThreshold)
	}
}

func TestBuildRegistryOverrides(t *testing.T) {
	registry, err := BuildRegistry(80, 60)
	if err != nil {
		t.Fatalf("BuildRegistry failed: %v", err)
	}

	for _, gw := range registry.Gateways() {
		cfg, err := registry.Get(gw, gateway.ConfigTypeExternal)
		if err != nil {
			t.Fatalf("Get(%s) failed: %v", gw, err)
		}
		if cfg.FuzzyThreshold != 80 {
			t.Errorf("%s fuzzy threshold = %d, expected override 80", gw, cfg.FuzzyThreshold)
		}
		if cfg.ChargeKeywordThreshold != 60 {
			t.Errorf("%s charge threshold = %d, expected override 60", gw, cfg.ChargeKeywordThreshold)
		}
	}
}

func TestBuildRegistryRejectsOutOfRange(t *testing.T) {
	for _, args := range [][2]int{{101, 0}, {-1, 0}, {0, 101}, {0, -1}} {
		if _, err := BuildRegistry(args[0], args[1]); err == nil {
			t.Errorf("BuildRegistry(%d, %d) should fail", args[0], args[1])
		}
	}
}

func TestLoadRawFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "equity_march.csv")
	if err := os.WriteFile(path, []byte("Date,Debit\n01-03-2024,100"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	files, err := LoadRawFiles([]string{path})
	if err != nil {
		t.Fatalf("LoadRawFiles failed: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(files))
	}
	if files[0].Filename != "equity_march.csv" {
		t.Errorf("filename = %q, expected basename only", files[0].Filename)
	}
	if len(files[0].Content) == 0 {
		t.Error("content should be loaded")
	}
}

func TestLoadRawFilesMissing(t *testing.T) {
	_, err := LoadRawFiles([]string{"/nonexistent/file.csv"})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.HasCode(err, errors.CodeFileReadError) {
		t.Errorf("expected code %s, got %v", errors.CodeFileReadError, err)
	}
}

func TestLoadCarryForward(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "carry.json")
	payload := `{
		"external": [{
			"date": "2024-03-01",
			"reference": "EXT4",
			"details": "TPG/REF200/PAY",
			"debit": "800",
			"credit": "0",
			"gateway": "equity",
			"gateway_type": "EXTERNAL",
			"transaction_type": "DEBIT",
			"reconciliation_category": "RECONCILABLE",
			"extracted_reference": "REF200",
			"reconciliation_key": "REF200|800"
		}],
		"internal": []
	}`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cf, err := LoadCarryForward(path)
	if err != nil {
		t.Fatalf("LoadCarryForward failed: %v", err)
	}
	if len(cf.External) != 1 || len(cf.Internal) != 0 {
		t.Fatalf("sides = %d/%d, expected 1/0", len(cf.External), len(cf.Internal))
	}
	if cf.External[0].ExtractedReference != "REF200" {
		t.Errorf("extracted reference = %q, expected REF200", cf.External[0].ExtractedReference)
	}
}

func TestLoadCarryForwardInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "carry.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if _, err := LoadCarryForward(path); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}
