package gateway

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"gateway-reconciliation-service/pkg/errors"
)

// Registry holds the file configurations for every known gateway, keyed by
// gateway name and side. Configurations are treated as immutable for the
// duration of a run; concurrent runs share the registry read-only.
type Registry struct {
	mu      sync.RWMutex
	configs map[string]*FileConfig
}

func registryKey(gateway string, ct ConfigType) string {
	return strings.ToLower(strings.TrimSpace(gateway)) + "/" + string(ct)
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{configs: make(map[string]*FileConfig)}
}

// Register validates and stores a configuration, replacing any existing one
// for the same gateway and side.
func (r *Registry) Register(cfg *FileConfig) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return errors.ConfigurationError(cfg.Gateway, cfg.ConfigType, err)
	}
	cfg.ApplyDefaults()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[registryKey(cfg.Gateway, cfg.ConfigType)] = cfg
	return nil
}

// Get returns the configuration for a gateway side.
func (r *Registry) Get(gateway string, ct ConfigType) (*FileConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.configs[registryKey(gateway, ct)]
	if !ok {
		return nil, errors.UnknownGateway(gateway)
	}
	return cfg, nil
}

// Gateways returns the sorted names of all registered gateways.
func (r *Registry) Gateways() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	for _, cfg := range r.configs {
		seen[strings.ToLower(cfg.Gateway)] = true
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry returns a registry pre-loaded with the built-in gateway
// configurations.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, cfg := range BuiltinConfigs() {
		// Built-ins are validated by tests; Register cannot fail here.
		_ = r.Register(cfg)
	}
	return r
}

// BuiltinConfigs returns the configurations shipped for the supported
// gateways. Each external side carries the gateway's own narrative rules and
// charge keywords; each internal side describes the workpay payout export,
// which shares one layout across gateways.
func BuiltinConfigs() []*FileConfig {
	return []*FileConfig{
		// Equity bank statements: xlsx exports with a branding block above
		// the header and a trailing totals section.
		{
			Gateway:           "equity",
			ConfigType:        ConfigTypeExternal,
			ExpectedFiletypes: []string{".xlsx", ".xls", ".csv"},
			FilenamePrefix:    "equity",
			HeaderRows:        map[string]int{".xlsx": 8, ".xls": 8, ".csv": 0},
			EndOfDataSignal:   "closing balance",
			ChargeKeywords:    []string{"eft comm", "commission", "excise duty", "exchange", "tariff"},
			ColumnMapping: map[string][]string{
				"date":      {"transaction date", "tran date"},
				"reference": {"transaction ref", "reference number", "ref no"},
				"details":   {"narrative", "transaction details", "particulars"},
				"debit":     {"debit", "withdrawal", "paid out"},
				"credit":    {"credit", "deposit", "paid in"},
			},
			NarrativeRules: []NarrativeRule{
				{Prefix: "TPG", Extract: SplitTakeFromEnd("/", 2)},
			},
			DateFormat:  "02-01-2006",
			FuzzyScorer: ScorerTokenSort,
		},

		// KCB statements: csv exports, reference embedded in slash-delimited
		// narratives behind an FT token.
		{
			Gateway:           "kcb",
			ConfigType:        ConfigTypeExternal,
			ExpectedFiletypes: []string{".csv", ".xlsx"},
			FilenamePrefix:    "kcb",
			HeaderRows:        map[string]int{".xlsx": 5, ".csv": 1},
			EndOfDataSignal:   "total",
			ChargeKeywords:    []string{"ledger fee", "commission", "excise", "charge"},
			ColumnMapping: map[string][]string{
				"date":      {"value date", "posting date"},
				"reference": {"reference", "doc no"},
				"details":   {"transaction details", "description"},
				"debit":     {"debit amount", "dr amount"},
				"credit":    {"credit amount", "cr amount"},
			},
			NarrativeRules: []NarrativeRule{
				{Prefix: "FT", Extract: SplitTakeFromEnd("/", 2)},
				{Prefix: "TPG", Extract: SplitTakeFromEnd("/", 2)},
			},
			DateFormat:  "2006-01-02",
			FuzzyScorer: ScorerPartial,
		},

		// M-Pesa bulk payouts (B2C): reference follows the prefix token in
		// underscore-delimited narratives.
		{
			Gateway:           "mpesa",
			ConfigType:        ConfigTypeExternal,
			ExpectedFiletypes: []string{".csv", ".xlsx"},
			FilenamePrefix:    "mpesa",
			HeaderRows:        map[string]int{".xlsx": 6, ".csv": 0},
			EndOfDataSignal:   "disclaimer",
			ChargeKeywords:    []string{"b2c charge", "transaction fee", "commission"},
			ColumnMapping: map[string][]string{
				"date":      {"completion time", "initiation time"},
				"reference": {"receipt no", "receipt number"},
				"details":   {"details", "description", "other party info"},
				"debit":     {"withdrawn", "paid out", "debit"},
				"credit":    {"paid in", "deposit", "credit"},
			},
			NarrativeRules: []NarrativeRule{
				{Prefix: "B2C", Extract: SplitStripPrefix(" ", "B2C")},
				{Prefix: "BULK", Extract: SplitStripPrefix(" ", "BULK")},
			},
			// M-Pesa rows without a rule hit fall back to matching their
			// free-text narrative, where the counterpart reference sits among
			// beneficiary words; the token-set scorer ignores that noise.
			DateFormat:  "02-01-2006 15:04:05",
			FuzzyScorer: ScorerTokenSet,
		},

		// Workpay payout ledger, one per gateway. The export layout is the
		// organization's own and identical across gateways.
		workpayConfig("equity"),
		workpayConfig("kcb"),
		workpayConfig("mpesa"),
	}
}

func workpayConfig(gateway string) *FileConfig {
	return &FileConfig{
		Gateway:           gateway,
		ConfigType:        ConfigTypeInternal,
		ExpectedFiletypes: []string{".xlsx", ".csv"},
		FilenamePrefix:    "workpay",
		HeaderRows:        map[string]int{".xlsx": 0, ".csv": 0},
		ColumnMapping: map[string][]string{
			"date":      {"payout date", "created at"},
			"reference": {"payout reference", "transaction id", "workpay ref"},
			"details":   {"beneficiary", "payout details", "description"},
			"debit":     {"amount", "payout amount"},
			"credit":    {"credited", "refund amount"},
		},
		DateFormat: "2006-01-02",
	}
}
