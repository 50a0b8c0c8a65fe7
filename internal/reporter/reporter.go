// Package reporter renders reconciliation run results for people and for
// downstream tooling.
//
// Three formats are supported: console for terminal display, JSON for
// programmatic consumption and CSV for spreadsheet import. Rendering is
// read-only over the run result; persistence belongs to other collaborators.
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gateway-reconciliation-service/internal/models"
	"gateway-reconciliation-service/internal/reconciler"
)

// OutputFormat represents the supported report output formats.
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported.
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	}
	return false
}

// Options controls report contents.
type Options struct {
	Format OutputFormat

	// IncludeTransactions emits the per-record outcomes, not just the
	// run summary.
	IncludeTransactions bool

	// IncludeDiagnostics emits per-file mapping reports and warnings.
	IncludeDiagnostics bool
}

// DefaultOptions returns options rendering the summary plus transactions.
func DefaultOptions() *Options {
	return &Options{
		Format:              FormatConsole,
		IncludeTransactions: true,
	}
}

// Write renders the run result to w in the configured format.
func Write(w io.Writer, result *reconciler.RunResult, opts *Options) error {
	if opts == nil {
		opts = DefaultOptions()
	}
	switch opts.Format {
	case FormatJSON:
		return writeJSON(w, result, opts)
	case FormatCSV:
		return writeCSV(w, result)
	case FormatConsole:
		return writeConsole(w, result, opts)
	default:
		return fmt.Errorf("unsupported output format: %s", opts.Format)
	}
}

func writeJSON(w io.Writer, result *reconciler.RunResult, opts *Options) error {
	payload := struct {
		Run          *models.ReconciliationRun       `json:"run"`
		Transactions []*models.ClassifiedTransaction `json:"transactions,omitempty"`
		Diagnostics  interface{}                     `json:"diagnostics,omitempty"`
	}{Run: result.Run}
	if opts.IncludeTransactions {
		payload.Transactions = result.Transactions
	}
	if opts.IncludeDiagnostics {
		payload.Diagnostics = result.Diagnostics
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}

var csvHeader = []string{
	"gateway", "gateway_type", "transaction_type", "reconciliation_category",
	"date", "reference", "details", "debit", "credit",
	"extracted_reference", "reconciliation_key", "status", "note", "counterpart_reference",
}

func writeCSV(w io.Writer, result *reconciler.RunResult) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return err
	}
	for _, tx := range result.Transactions {
		status, note, counterpart := "", "", ""
		if tx.Match != nil {
			status, note, counterpart = string(tx.Match.Status), tx.Match.Note, tx.Match.CounterpartReference
		}
		row := []string{
			tx.Gateway, string(tx.GatewayType), string(tx.Type), string(tx.Category),
			tx.Date, tx.Reference, tx.Details, tx.Debit.String(), tx.Credit.String(),
			tx.ExtractedReference, tx.ReconciliationKey, status, note, counterpart,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func writeConsole(w io.Writer, result *reconciler.RunResult, opts *Options) error {
	run := result.Run
	var b strings.Builder

	b.WriteString("Reconciliation Run Summary\n")
	b.WriteString("==========================\n")
	fmt.Fprintf(&b, "Run ID:                 %s\n", run.RunID)
	fmt.Fprintf(&b, "Gateway:                %s\n", run.Gateway)
	fmt.Fprintf(&b, "Created:                %s\n", run.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Total external:         %d\n", run.TotalExternal)
	fmt.Fprintf(&b, "Total internal:         %d\n", run.TotalInternal)
	fmt.Fprintf(&b, "Matched:                %d\n", run.Matched)
	fmt.Fprintf(&b, "Unmatched external:     %d\n", run.UnmatchedExternal)
	fmt.Fprintf(&b, "Unmatched internal:     %d\n", run.UnmatchedInternal)
	fmt.Fprintf(&b, "Carry-forward matched:  %d\n", run.CarryForwardMatched)

	if result.FileErrors != nil && result.FileErrors.HasErrors() {
		b.WriteString("\nFile errors\n-----------\n")
		for _, err := range result.FileErrors.Errors {
			fmt.Fprintf(&b, "  - %s\n", err.Error())
		}
	}

	if opts.IncludeDiagnostics {
		for _, diag := range result.Diagnostics {
			if len(diag.Warnings) == 0 {
				continue
			}
			fmt.Fprintf(&b, "\nWarnings for %s\n", diag.Filename)
			for _, warning := range diag.Warnings {
				fmt.Fprintf(&b, "  - %s\n", warning)
			}
		}
	}

	if opts.IncludeTransactions {
		b.WriteString("\nTransactions\n------------\n")
		fmt.Fprintf(&b, "%-10s %-9s %-7s %-16s %-20s %-12s %s\n",
			"GATEWAY", "SIDE", "TYPE", "CATEGORY", "REFERENCE", "STATUS", "DEBIT")
		for _, tx := range result.Transactions {
			status := ""
			if tx.Match != nil {
				status = string(tx.Match.Status)
			}
			fmt.Fprintf(&b, "%-10s %-9s %-7s %-16s %-20s %-12s %s\n",
				tx.Gateway, tx.GatewayType, tx.Type, tx.Category,
				truncate(tx.MatchReference(), 20), status, tx.Debit.String())
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
