// Package normalizer turns heterogeneous raw gateway exports (xlsx, xls, csv)
// into the canonical five-column template: Date, Reference, Details, Debit,
// Credit.
//
// Normalization tolerates the mess real bank exports carry: branding rows
// above the header, trailing totals and disclaimer blocks, arbitrary column
// naming and references exported as floating point. A file that cannot be
// read yields a Result carrying errors instead of failing the whole batch.
package normalizer

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"gateway-reconciliation-service/internal/gateway"
	"gateway-reconciliation-service/internal/models"
	"gateway-reconciliation-service/pkg/errors"
	"gateway-reconciliation-service/pkg/logger"
)

// Result is the outcome of normalizing one raw file. Errors are accumulated,
// never raised across the stage boundary, so the caller can distinguish
// partial success with warnings from hard failure.
type Result struct {
	Filename string                    `json:"filename"`
	Records  []models.NormalizedRecord `json:"records"`
	Report   *MappingReport            `json:"report,omitempty"`
	Warnings []string                  `json:"warnings,omitempty"`
	Errors   *errors.ErrorList         `json:"errors,omitempty"`
}

// HasErrors reports whether the file failed to produce data.
func (r *Result) HasErrors() bool {
	return r.Errors != nil && r.Errors.HasErrors()
}

// Normalize converts raw file bytes into NormalizedRecords under the
// gateway's file configuration.
func Normalize(content []byte, filename string, cfg *gateway.FileConfig) *Result {
	log := logger.GetGlobalLogger().WithComponent("normalizer").WithFields(logger.Fields{
		"filename": filename,
		"gateway":  cfg.Gateway,
		"side":     cfg.ConfigType,
	})

	result := &Result{Filename: filename, Errors: &errors.ErrorList{}}

	ext := strings.ToLower(filepath.Ext(filename))
	if !cfg.SupportsFiletype(ext) {
		result.Errors.Add(errors.UnsupportedFileType(filename, ext))
		log.WithField("extension", ext).Warn("file type not expected for gateway")
		return result
	}

	rows, readErr := readRows(content, filename)
	if readErr != nil {
		result.Errors.Add(readErr)
		log.WithError(readErr).Error("failed to read raw file")
		return result
	}

	skip := cfg.HeaderRowsFor(ext)
	if skip >= len(rows) {
		log.WithFields(logger.Fields{"rows": len(rows), "header_skip": skip}).
			Warn("file exhausted by header skip")
		return result
	}
	rows = rows[skip:]

	if cfg.EndOfDataSignal != "" {
		rows = truncateAtSignal(rows, cfg.EndOfDataSignal)
	}
	if len(rows) == 0 {
		return result
	}

	header, data := rows[0], rows[1:]
	assignment, report := MapColumns(header, cfg.ColumnMapping)
	result.Report = report

	for _, field := range report.MissingFields {
		warning := fmt.Sprintf("column for %q not found; filled with default", field)
		result.Warnings = append(result.Warnings, warning)
		log.WithField("field", field).Warn("template field unmapped, synthesizing default")
	}

	for _, row := range data {
		record := buildRecord(row, assignment)
		if record.IsEmpty() {
			continue
		}
		result.Records = append(result.Records, record)
	}

	log.WithFields(logger.Fields{
		"rows_in":     len(data),
		"records_out": len(result.Records),
	}).Info("normalized raw file")

	return result
}

// truncateAtSignal drops the first row whose cells contain the end-of-data
// signal and every row after it. Comparison is trimmed and case-folded.
func truncateAtSignal(rows [][]string, signal string) [][]string {
	needle := strings.ToLower(strings.TrimSpace(signal))
	for i, row := range rows {
		for _, cell := range row {
			if strings.Contains(strings.ToLower(strings.TrimSpace(cell)), needle) {
				return rows[:i]
			}
		}
	}
	return rows
}

func buildRecord(row []string, assignment map[int]string) models.NormalizedRecord {
	record := models.NormalizedRecord{
		Debit:  decimal.Zero,
		Credit: decimal.Zero,
	}
	for idx, field := range assignment {
		var value string
		if idx < len(row) {
			value = row[idx]
		}
		switch field {
		case fieldDate:
			record.Date = normalizeDate(value)
		case fieldReference:
			record.Reference = normalizeText(value)
		case fieldDetails:
			record.Details = normalizeText(value)
		case fieldDebit:
			record.Debit = normalizeAmount(value)
		case fieldCredit:
			record.Credit = normalizeAmount(value)
		}
	}
	return record
}

var nonNumeric = regexp.MustCompile(`[^0-9.\-]`)

// normalizeAmount strips currency symbols and thousand separators, parses the
// remainder and coerces it to its absolute value. Direction is determined by
// which column the amount appeared in, not by arithmetic sign; unparseable
// values become zero.
func normalizeAmount(value string) decimal.Decimal {
	cleaned := nonNumeric.ReplaceAllString(strings.TrimSpace(value), "")
	if cleaned == "" || cleaned == "-" || cleaned == "." {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return d.Abs()
}

var floatArtifact = regexp.MustCompile(`^(-?\d+)\.0+$`)

// normalizeText trims whitespace and repairs references exported as floats,
// so "123.0" compares equal to "123" during matching.
func normalizeText(value string) string {
	trimmed := strings.TrimSpace(value)
	if m := floatArtifact.FindStringSubmatch(trimmed); m != nil {
		return m[1]
	}
	return trimmed
}

// dateLayouts are temporal forms gateways are known to emit. A value parsing
// as one of these is reformatted to the ISO date; anything else is preserved
// as its original lossless token.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-01-2006 15:04:05",
	"02-01-2006",
	"02/01/2006",
	"01/02/2006",
}

func normalizeDate(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return trimmed
}
