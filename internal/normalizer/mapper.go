package normalizer

import (
	"sort"
	"strings"

	"gateway-reconciliation-service/pkg/logger"
)

// Template field keys used throughout mapping, always lowercase.
const (
	fieldDate      = "date"
	fieldReference = "reference"
	fieldDetails   = "details"
	fieldDebit     = "debit"
	fieldCredit    = "credit"
)

// templateFields is the canonical field order.
var templateFields = []string{fieldDate, fieldReference, fieldDetails, fieldDebit, fieldCredit}

// defaultSynonyms is the built-in fallback synonym table, used for any
// template field the gateway's own column mapping leaves unspecified.
var defaultSynonyms = map[string][]string{
	fieldDate:      {"transaction date", "tran date", "value date", "posting date", "completion time"},
	fieldReference: {"transaction ref", "reference", "ref no", "reference number", "receipt no", "transaction id"},
	fieldDetails:   {"narrative", "description", "particulars", "transaction details", "details"},
	fieldDebit:     {"debit", "withdrawal", "dr amount", "debit amount", "paid out", "withdrawn"},
	fieldCredit:    {"credit", "deposit", "cr amount", "credit amount", "paid in"},
}

// MappingReport records how raw columns resolved to template fields, for
// diagnostics and audit logging.
type MappingReport struct {
	// Mapped is template field -> raw column name as it appeared in the file.
	Mapped map[string]string `json:"mapped"`
	// MissingFields are template fields no raw column matched; their values
	// are synthesized with type-appropriate defaults.
	MissingFields []string `json:"missing_fields,omitempty"`
	// UnmappedColumns are raw columns that matched no template field.
	UnmappedColumns []string `json:"unmapped_columns,omitempty"`
}

// MapColumns resolves raw column names to template fields using the
// gateway's configured synonyms, falling back to the built-in table.
// Matching is case-insensitive, whitespace-trimmed and exact; each template
// field's own name is always an implicit synonym. Returns the raw column
// index -> template field assignment alongside the report.
func MapColumns(rawColumns []string, overrides map[string][]string) (map[int]string, *MappingReport) {
	log := logger.GetGlobalLogger().WithComponent("column_mapper")

	assignment := make(map[int]string, len(templateFields))
	report := &MappingReport{Mapped: make(map[string]string)}

	claimed := make(map[int]bool)
	for _, field := range templateFields {
		idx := findColumn(rawColumns, claimed, synonymsFor(field, overrides))
		if idx < 0 {
			report.MissingFields = append(report.MissingFields, field)
			continue
		}
		assignment[idx] = field
		claimed[idx] = true
		report.Mapped[field] = strings.TrimSpace(rawColumns[idx])
	}

	for i, raw := range rawColumns {
		if !claimed[i] && strings.TrimSpace(raw) != "" {
			report.UnmappedColumns = append(report.UnmappedColumns, strings.TrimSpace(raw))
		}
	}
	sort.Strings(report.UnmappedColumns)

	log.WithFields(logger.Fields{
		"mapped":           report.Mapped,
		"missing_fields":   report.MissingFields,
		"unmapped_columns": report.UnmappedColumns,
	}).Debug("resolved raw columns to template fields")

	return assignment, report
}

// synonymsFor returns the acceptable raw names for a template field: the
// gateway override when present, otherwise the built-in defaults, with the
// field's own name always included.
func synonymsFor(field string, overrides map[string][]string) []string {
	syns := defaultSynonyms[field]
	if overrides != nil {
		if configured, ok := overrides[field]; ok && len(configured) > 0 {
			syns = configured
		}
	}
	return append([]string{field}, syns...)
}

func findColumn(rawColumns []string, claimed map[int]bool, synonyms []string) int {
	for _, syn := range synonyms {
		want := strings.ToLower(strings.TrimSpace(syn))
		if want == "" {
			continue
		}
		for i, raw := range rawColumns {
			if claimed[i] {
				continue
			}
			if strings.ToLower(strings.TrimSpace(raw)) == want {
				return i
			}
		}
	}
	return -1
}
