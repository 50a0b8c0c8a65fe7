// Package gateway holds the per-gateway configuration that drives the
// reconciliation pipeline.
//
// Each banking gateway (Equity, KCB, M-Pesa and variants) exports statements
// with its own layout: different header offsets, trailing summary blocks,
// column naming and narrative conventions. Rather than one type per gateway,
// a single pipeline is driven by a FileConfig record selected from the
// registry by gateway name and side.
package gateway

import (
	"fmt"
	"strings"

	"gateway-reconciliation-service/internal/models"
)

// ConfigType selects which side of a gateway a file configuration describes.
type ConfigType string

const (
	// ConfigTypeExternal describes the bank-issued statement files.
	ConfigTypeExternal ConfigType = "external"
	// ConfigTypeInternal describes the workpay payout ledger files.
	ConfigTypeInternal ConfigType = "internal"
)

// GatewayType maps the config type onto the model-level gateway type.
func (c ConfigType) GatewayType() models.GatewayType {
	if c == ConfigTypeInternal {
		return models.GatewayTypeInternal
	}
	return models.GatewayTypeExternal
}

// FileConfig is the complete rule set for one gateway side.
type FileConfig struct {
	Gateway    string     `json:"gateway"`
	ConfigType ConfigType `json:"config_type"`

	// ExpectedFiletypes are the extensions (with dot) this side may upload.
	ExpectedFiletypes []string `json:"expected_filetypes"`

	// FilenamePrefix selects this gateway's files out of a mixed upload set.
	FilenamePrefix string `json:"filename_prefix"`

	// HeaderRows maps a file extension to the number of leading rows to skip
	// before the header row. Spreadsheet exports often carry branding or
	// title rows that csv exports of the same statement do not.
	HeaderRows map[string]int `json:"header_row_config"`

	// EndOfDataSignal truncates the file at the first row whose cells contain
	// this text, stripping trailing totals and disclaimer blocks. Empty
	// disables truncation.
	EndOfDataSignal string `json:"end_of_data_signal,omitempty"`

	// ChargeKeywords classify a row as a gateway charge when its narrative
	// matches any keyword by substring or fuzzy partial ratio.
	ChargeKeywords []string `json:"charge_keywords,omitempty"`

	// ColumnMapping maps each template field to acceptable raw column names.
	// Fields not listed fall back to the built-in synonym table.
	ColumnMapping map[string][]string `json:"column_mapping,omitempty"`

	// NarrativeRules recover an embedded reference from free-text narratives,
	// evaluated in order with first match winning.
	NarrativeRules []NarrativeRule `json:"-"`

	// DateFormat is the display format of this gateway's dates, informational.
	DateFormat string `json:"date_format,omitempty"`

	// ChargeKeywordThreshold is the minimum partial-ratio score for a fuzzy
	// charge-keyword hit.
	ChargeKeywordThreshold int `json:"charge_keyword_threshold"`

	// FuzzyThreshold is the minimum similarity score for the matcher's fuzzy
	// pass to accept a candidate.
	FuzzyThreshold int `json:"fuzzy_threshold"`

	// FuzzyScorer selects the similarity function for the matcher's fuzzy
	// pass. The source systems used different scorers per gateway with no
	// documented rationale, so the choice stays configurable.
	FuzzyScorer ScorerKind `json:"fuzzy_scorer"`
}

// ScorerKind names a similarity function from pkg/textmatch.
type ScorerKind string

const (
	ScorerTokenSort ScorerKind = "token_sort_ratio"
	ScorerTokenSet  ScorerKind = "token_set_ratio"
	ScorerPartial   ScorerKind = "partial_ratio"
)

// IsValid checks if the scorer kind is known.
func (s ScorerKind) IsValid() bool {
	return s == ScorerTokenSort || s == ScorerTokenSet || s == ScorerPartial
}

// Default thresholds, applied when a config leaves them zero.
const (
	DefaultChargeKeywordThreshold = 70
	DefaultFuzzyThreshold         = 90
)

// Validate checks the configuration is internally consistent.
func (fc *FileConfig) Validate() error {
	if strings.TrimSpace(fc.Gateway) == "" {
		return fmt.Errorf("gateway name cannot be empty")
	}
	if fc.ConfigType != ConfigTypeExternal && fc.ConfigType != ConfigTypeInternal {
		return fmt.Errorf("invalid config type: %s", fc.ConfigType)
	}
	if len(fc.ExpectedFiletypes) == 0 {
		return fmt.Errorf("expected filetypes cannot be empty")
	}
	for _, ext := range fc.ExpectedFiletypes {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("filetype %q must include the leading dot", ext)
		}
	}
	if fc.ChargeKeywordThreshold < 0 || fc.ChargeKeywordThreshold > 100 {
		return fmt.Errorf("charge keyword threshold must be within [0,100], got %d", fc.ChargeKeywordThreshold)
	}
	if fc.FuzzyThreshold < 0 || fc.FuzzyThreshold > 100 {
		return fmt.Errorf("fuzzy threshold must be within [0,100], got %d", fc.FuzzyThreshold)
	}
	if fc.FuzzyScorer != "" && !fc.FuzzyScorer.IsValid() {
		return fmt.Errorf("invalid fuzzy scorer: %s", fc.FuzzyScorer)
	}
	return nil
}

// ApplyDefaults fills zero-valued thresholds and scorer choice.
func (fc *FileConfig) ApplyDefaults() {
	if fc.ChargeKeywordThreshold == 0 {
		fc.ChargeKeywordThreshold = DefaultChargeKeywordThreshold
	}
	if fc.FuzzyThreshold == 0 {
		fc.FuzzyThreshold = DefaultFuzzyThreshold
	}
	if fc.FuzzyScorer == "" {
		fc.FuzzyScorer = ScorerTokenSort
	}
}

// SupportsFiletype reports whether the extension (with dot, any case) is
// acceptable for this side.
func (fc *FileConfig) SupportsFiletype(ext string) bool {
	ext = strings.ToLower(ext)
	for _, e := range fc.ExpectedFiletypes {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

// MatchesFilename reports whether an uploaded filename belongs to this side,
// by case-insensitive prefix.
func (fc *FileConfig) MatchesFilename(filename string) bool {
	if fc.FilenamePrefix == "" {
		return true
	}
	return strings.HasPrefix(strings.ToLower(filename), strings.ToLower(fc.FilenamePrefix))
}

// HeaderRowsFor returns the configured header skip for an extension.
func (fc *FileConfig) HeaderRowsFor(ext string) int {
	if fc.HeaderRows == nil {
		return 0
	}
	return fc.HeaderRows[strings.ToLower(ext)]
}

// ExtractReference runs the narrative rule table in order and returns the
// first extracted reference, or empty when no rule matches. Records without
// an extracted reference rely solely on fuzzy matching downstream.
func (fc *FileConfig) ExtractReference(narrative string) string {
	narrative = strings.TrimSpace(narrative)
	if narrative == "" {
		return ""
	}
	for _, rule := range fc.NarrativeRules {
		if rule.Matches(narrative) {
			if ref := strings.TrimSpace(rule.Extract(narrative)); ref != "" {
				return ref
			}
		}
	}
	return ""
}
