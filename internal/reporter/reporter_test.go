package reporter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"gateway-reconciliation-service/internal/models"
	"gateway-reconciliation-service/internal/reconciler"
)

func sampleResult() *reconciler.RunResult {
	return &reconciler.RunResult{
		Run: &models.ReconciliationRun{
			RunID:             "run-42",
			Gateway:           "equity",
			TotalExternal:     2,
			TotalInternal:     1,
			Matched:           1,
			UnmatchedExternal: 1,
			CreatedAt:         time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		},
		Transactions: []*models.ClassifiedTransaction{
			{
				NormalizedRecord: models.NormalizedRecord{
					Date:    "2024-03-01",
					Details: "TPG/REF100/PAY",
					Debit:   decimal.NewFromInt(1500),
				},
				Gateway:            "equity",
				GatewayType:        models.GatewayTypeExternal,
				Type:               models.TransactionTypeDebit,
				Category:           models.CategoryReconcilable,
				ExtractedReference: "REF100",
				ReconciliationKey:  "REF100|1500",
				Match:              models.SystemReconciled("REF100"),
			},
			{
				NormalizedRecord: models.NormalizedRecord{
					Date:    "2024-03-02",
					Details: "TPG/REF200/PAY",
					Debit:   decimal.NewFromInt(800),
				},
				Gateway:            "equity",
				GatewayType:        models.GatewayTypeExternal,
				Type:               models.TransactionTypeDebit,
				Category:           models.CategoryReconcilable,
				ExtractedReference: "REF200",
				ReconciliationKey:  "REF200|800",
				Match:              models.Unreconciled(),
			},
		},
	}
}

func TestWriteConsole(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleResult(), DefaultOptions()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"run-42", "equity", "Matched:", "REF100", "Unreconciled"} {
		if !strings.Contains(out, want) {
			t.Errorf("console output missing %q", want)
		}
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	opts := &Options{Format: FormatJSON, IncludeTransactions: true}
	if err := Write(&buf, sampleResult(), opts); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	var payload struct {
		Run          *models.ReconciliationRun `json:"run"`
		Transactions []map[string]interface{}  `json:"transactions"`
	}
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if payload.Run.RunID != "run-42" {
		t.Errorf("run id = %q, expected run-42", payload.Run.RunID)
	}
	if len(payload.Transactions) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(payload.Transactions))
	}

	// Each rendered transaction carries the classification fields and the
	// match outcome, not just the five template columns.
	first := payload.Transactions[0]
	if first["gateway"] != "equity" {
		t.Errorf("transaction gateway = %v, expected equity", first["gateway"])
	}
	if first["transaction_type"] != string(models.TransactionTypeDebit) {
		t.Errorf("transaction type = %v, expected %s", first["transaction_type"], models.TransactionTypeDebit)
	}
	if first["reconciliation_key"] != "REF100|1500" {
		t.Errorf("reconciliation key = %v, expected REF100|1500", first["reconciliation_key"])
	}
	match, ok := first["match"].(map[string]interface{})
	if !ok {
		t.Fatalf("match missing from rendered transaction: %v", first["match"])
	}
	if match["status"] != string(models.StatusReconciled) {
		t.Errorf("match status = %v, expected %s", match["status"], models.StatusReconciled)
	}
}

func TestWriteJSONSummaryOnly(t *testing.T) {
	var buf bytes.Buffer
	opts := &Options{Format: FormatJSON}
	if err := Write(&buf, sampleResult(), opts); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if strings.Contains(buf.String(), "REF100|1500") {
		t.Error("summary-only output should omit transactions")
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleResult(), &Options{Format: FormatCSV}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "gateway" {
		t.Errorf("header starts with %q, expected gateway", rows[0][0])
	}
	if rows[1][11] != string(models.StatusReconciled) {
		t.Errorf("first row status = %q, expected %s", rows[1][11], models.StatusReconciled)
	}
	if rows[2][11] != string(models.StatusUnreconciled) {
		t.Errorf("second row status = %q, expected %s", rows[2][11], models.StatusUnreconciled)
	}
}

func TestWriteUnsupportedFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleResult(), &Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input    string
		n        int
		expected string
	}{
		{"short", 20, "short"},
		{"exactly twenty chars", 20, "exactly twenty chars"},
		{"this reference is far too long", 10, "this re..."},
		{"abc", 2, "ab"},
	}
	for _, tt := range tests {
		if got := truncate(tt.input, tt.n); got != tt.expected {
			t.Errorf("truncate(%q, %d) = %q, expected %q", tt.input, tt.n, got, tt.expected)
		}
	}
}
