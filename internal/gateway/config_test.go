package gateway

import (
	"strings"
	"testing"
)

func validConfig() *FileConfig {
	return &FileConfig{
		Gateway:           "equity",
		ConfigType:        ConfigTypeExternal,
		ExpectedFiletypes: []string{".csv", ".xlsx"},
	}
}

func TestFileConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*FileConfig)
		wantErr string
	}{
		{"valid", func(fc *FileConfig) {}, ""},
		{"empty gateway", func(fc *FileConfig) { fc.Gateway = "  " }, "gateway name"},
		{"bad config type", func(fc *FileConfig) { fc.ConfigType = "sideways" }, "config type"},
		{"no filetypes", func(fc *FileConfig) { fc.ExpectedFiletypes = nil }, "filetypes"},
		{"filetype without dot", func(fc *FileConfig) { fc.ExpectedFiletypes = []string{"csv"} }, "leading dot"},
		{"charge threshold out of range", func(fc *FileConfig) { fc.ChargeKeywordThreshold = 101 }, "charge keyword threshold"},
		{"fuzzy threshold out of range", func(fc *FileConfig) { fc.FuzzyThreshold = -1 }, "fuzzy threshold"},
		{"unknown scorer", func(fc *FileConfig) { fc.FuzzyScorer = "soundex" }, "scorer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("expected valid config, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := validConfig()
	cfg.ApplyDefaults()

	if cfg.ChargeKeywordThreshold != DefaultChargeKeywordThreshold {
		t.Errorf("charge threshold = %d, expected %d", cfg.ChargeKeywordThreshold, DefaultChargeKeywordThreshold)
	}
	if cfg.FuzzyThreshold != DefaultFuzzyThreshold {
		t.Errorf("fuzzy threshold = %d, expected %d", cfg.FuzzyThreshold, DefaultFuzzyThreshold)
	}
	if cfg.FuzzyScorer != ScorerTokenSort {
		t.Errorf("scorer = %s, expected %s", cfg.FuzzyScorer, ScorerTokenSort)
	}

	// Explicit values survive.
	cfg = validConfig()
	cfg.FuzzyThreshold = 85
	cfg.FuzzyScorer = ScorerPartial
	cfg.ApplyDefaults()
	if cfg.FuzzyThreshold != 85 || cfg.FuzzyScorer != ScorerPartial {
		t.Errorf("explicit values overwritten: threshold=%d scorer=%s", cfg.FuzzyThreshold, cfg.FuzzyScorer)
	}
}

func TestScorerKindIsValid(t *testing.T) {
	for _, s := range []ScorerKind{ScorerTokenSort, ScorerTokenSet, ScorerPartial} {
		if !s.IsValid() {
			t.Errorf("%s should be valid", s)
		}
	}
	if ScorerKind("soundex").IsValid() {
		t.Error("unknown scorer should be invalid")
	}
}

func TestSupportsFiletype(t *testing.T) {
	cfg := validConfig()
	if !cfg.SupportsFiletype(".CSV") {
		t.Error("expected case-insensitive filetype match")
	}
	if cfg.SupportsFiletype(".pdf") {
		t.Error("expected .pdf to be rejected")
	}
}

func TestMatchesFilename(t *testing.T) {
	cfg := validConfig()
	cfg.FilenamePrefix = "equity"

	tests := []struct {
		filename string
		expected bool
	}{
		{"equity_statement_jan.xlsx", true},
		{"EQUITY-2024.csv", true},
		{"workpay_equity.csv", false},
		{"kcb_statement.csv", false},
	}
	for _, tt := range tests {
		if got := cfg.MatchesFilename(tt.filename); got != tt.expected {
			t.Errorf("MatchesFilename(%q) = %v, expected %v", tt.filename, got, tt.expected)
		}
	}

	// No prefix accepts everything.
	cfg.FilenamePrefix = ""
	if !cfg.MatchesFilename("anything.csv") {
		t.Error("expected empty prefix to accept any filename")
	}
}

func TestHeaderRowsFor(t *testing.T) {
	cfg := validConfig()
	cfg.HeaderRows = map[string]int{".xlsx": 8, ".csv": 0}

	if got := cfg.HeaderRowsFor(".XLSX"); got != 8 {
		t.Errorf("HeaderRowsFor(.XLSX) = %d, expected 8", got)
	}
	if got := cfg.HeaderRowsFor(".csv"); got != 0 {
		t.Errorf("HeaderRowsFor(.csv) = %d, expected 0", got)
	}
	if got := cfg.HeaderRowsFor(".xls"); got != 0 {
		t.Errorf("unconfigured extension should skip nothing, got %d", got)
	}
}

func TestExtractReference(t *testing.T) {
	cfg := validConfig()
	cfg.NarrativeRules = []NarrativeRule{
		{Prefix: "TPG", Extract: SplitTakeFromEnd("/", 2)},
		{Prefix: "B2C", Extract: SplitStripPrefix(" ", "B2C")},
	}

	tests := []struct {
		name      string
		narrative string
		expected  string
	}{
		{"tpg second from end", "TPG/REF123/EXTRA", "REF123"},
		{"tpg lowercase prefix", "tpg/ref456/tail", "ref456"},
		{"b2c strip prefix", "B2C-REF998 payment to vendor", "REF998"},
		{"no rule matches", "SALARY MARCH", ""},
		{"empty narrative", "   ", ""},
		{"tpg with too few segments", "TPG", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cfg.ExtractReference(tt.narrative); got != tt.expected {
				t.Errorf("ExtractReference(%q) = %q, expected %q", tt.narrative, got, tt.expected)
			}
		})
	}
}

func TestExtractReferenceFirstRuleWins(t *testing.T) {
	cfg := validConfig()
	cfg.NarrativeRules = []NarrativeRule{
		{Prefix: "FT", Extract: func(string) string { return "FIRST" }},
		{Prefix: "FT", Extract: func(string) string { return "SECOND" }},
	}
	if got := cfg.ExtractReference("FT/ABC/DEF"); got != "FIRST" {
		t.Errorf("expected first matching rule to win, got %q", got)
	}
}

func TestSplitStripPrefixEdgeCases(t *testing.T) {
	extract := SplitStripPrefix(" ", "BULK")

	if got := extract("BULK_REF42 transfer"); got != "REF42" {
		t.Errorf("expected separators trimmed after prefix, got %q", got)
	}
	if got := extract("REFUND 42"); got != "" {
		t.Errorf("expected non-matching prefix to yield empty, got %q", got)
	}
}
