package reconciler

import (
	"context"
	"strings"
	"testing"

	"gateway-reconciliation-service/internal/matcher"
	"gateway-reconciliation-service/internal/models"
	"gateway-reconciliation-service/pkg/errors"
)

func externalCSV(rows ...string) []byte {
	lines := append([]string{"Date,Reference,Narrative,Debit,Credit"}, rows...)
	return []byte(strings.Join(lines, "\n"))
}

func internalCSV(rows ...string) []byte {
	lines := append([]string{"Payout Date,Payout Reference,Beneficiary,Amount,Credited"}, rows...)
	return []byte(strings.Join(lines, "\n"))
}

func basicRequest() *Request {
	return &Request{
		Gateway: "equity",
		ExternalFiles: []RawFile{{
			Filename: "equity_march.csv",
			Content: externalCSV(
				"01-03-2024,EXT1,TPG/REF100/PAY,\"1,500.00\",",
				"01-03-2024,EXT2,EFT COMMISSION KES 50,50,",
				"02-03-2024,EXT3,ACCOUNT TOP UP,,\"5,000.00\"",
				"02-03-2024,EXT4,TPG/REF200/PAY,800,",
			),
		}},
		InternalFiles: []RawFile{{
			Filename: "workpay_equity_march.csv",
			Content: internalCSV(
				"2024-03-01,REF100,John Doe,1500,",
				"2024-03-02,REF300,Jane Roe,650,",
			),
		}},
	}
}

func TestReconcileEndToEnd(t *testing.T) {
	svc := NewService(nil)

	result, err := svc.Reconcile(context.Background(), basicRequest())
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	run := result.Run
	if run.RunID == "" {
		t.Error("run must carry an id")
	}
	if run.Gateway != "equity" {
		t.Errorf("gateway = %q, expected equity", run.Gateway)
	}

	// External side: 2 debits (reconcilable), 1 charge, 1 credit.
	if run.TotalExternal != 4 {
		t.Errorf("total external = %d, expected 4", run.TotalExternal)
	}
	if run.TotalInternal != 2 {
		t.Errorf("total internal = %d, expected 2", run.TotalInternal)
	}

	// REF100 matches exactly; REF200 and REF300 stay unmatched.
	if run.Matched != 1 {
		t.Errorf("matched = %d, expected 1", run.Matched)
	}
	if run.UnmatchedExternal != 1 {
		t.Errorf("unmatched external = %d, expected 1", run.UnmatchedExternal)
	}
	if run.UnmatchedInternal != 1 {
		t.Errorf("unmatched internal = %d, expected 1", run.UnmatchedInternal)
	}

	if result.FileErrors.HasErrors() {
		t.Errorf("unexpected file errors: %v", result.FileErrors)
	}
}

func TestReconcileCountConsistency(t *testing.T) {
	svc := NewService(nil)

	result, err := svc.Reconcile(context.Background(), basicRequest())
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	var extReconcilable, intReconcilable int
	for _, tx := range result.Transactions {
		if tx.Category != models.CategoryReconcilable {
			continue
		}
		if tx.GatewayType == models.GatewayTypeExternal {
			extReconcilable++
		} else {
			intReconcilable++
		}
	}

	run := result.Run
	if run.Matched+run.UnmatchedExternal != extReconcilable {
		t.Errorf("matched(%d) + unmatched external(%d) != reconcilable external(%d)",
			run.Matched, run.UnmatchedExternal, extReconcilable)
	}
	if run.Matched+run.UnmatchedInternal != intReconcilable {
		t.Errorf("matched(%d) + unmatched internal(%d) != reconcilable internal(%d)",
			run.Matched, run.UnmatchedInternal, intReconcilable)
	}
}

func TestReconcileEveryRecordCarriesAStatus(t *testing.T) {
	svc := NewService(nil)

	result, err := svc.Reconcile(context.Background(), basicRequest())
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	for _, tx := range result.Transactions {
		switch tx.Category {
		case models.CategoryNonReconcilable:
			// Stored without an outcome.
		default:
			if tx.Match == nil {
				t.Errorf("record %s has no match result", tx.ReconciliationKey)
			}
		}
	}
}

func TestReconcileKeyUniqueness(t *testing.T) {
	svc := NewService(nil)

	req := basicRequest()
	// Upload the same external row twice across two files.
	req.ExternalFiles = append(req.ExternalFiles, RawFile{
		Filename: "equity_march_copy.csv",
		Content:  externalCSV("01-03-2024,EXT1,TPG/REF100/PAY,\"1,500.00\","),
	})

	result, err := svc.Reconcile(context.Background(), req)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	seen := make(map[string]bool)
	for _, tx := range result.Transactions {
		key := tx.ReconciliationKey + "|" + tx.Gateway + "|" + string(tx.GatewayType)
		if seen[key] {
			t.Errorf("duplicate persisted key %q", key)
		}
		seen[key] = true
	}
}

func TestReconcilePartialBatchContinuesOnFileError(t *testing.T) {
	svc := NewService(nil)

	req := basicRequest()
	req.ExternalFiles = append(req.ExternalFiles, RawFile{
		Filename: "equity_broken.xlsx",
		Content:  []byte("not a workbook"),
	})

	result, err := svc.Reconcile(context.Background(), req)
	if err != nil {
		t.Fatalf("one bad file must not abort the batch: %v", err)
	}

	if !result.FileErrors.HasErrors() {
		t.Fatal("expected the broken file to be recorded")
	}
	if !errors.HasCode(result.FileErrors.Errors[0], errors.CodeFileReadError) {
		t.Errorf("expected code %s, got %v", errors.CodeFileReadError, result.FileErrors.Errors[0])
	}
	if result.Run.Matched != 1 {
		t.Errorf("good files should still reconcile, matched = %d", result.Run.Matched)
	}
}

func TestReconcileSkipsForeignFilenames(t *testing.T) {
	svc := NewService(nil)

	req := basicRequest()
	req.ExternalFiles = append(req.ExternalFiles, RawFile{
		Filename: "kcb_statement.csv",
		Content:  externalCSV("01-03-2024,KCB1,TPG/REF900/PAY,100,"),
	})

	result, err := svc.Reconcile(context.Background(), req)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	for _, tx := range result.Transactions {
		if strings.Contains(tx.ReconciliationKey, "REF900") {
			t.Error("rows from a foreign gateway's file must not enter the run")
		}
	}
	if result.Run.TotalExternal != 4 {
		t.Errorf("total external = %d, expected foreign file skipped", result.Run.TotalExternal)
	}
}

func TestReconcileEmptyInternalSideAborts(t *testing.T) {
	svc := NewService(nil)

	req := basicRequest()
	req.InternalFiles = nil

	_, err := svc.Reconcile(context.Background(), req)
	if err == nil {
		t.Fatal("expected empty dataset error")
	}
	if !errors.HasCode(err, errors.CodeEmptyDataset) {
		t.Errorf("expected code %s, got %v", errors.CodeEmptyDataset, err)
	}
}

func TestReconcileUnknownGateway(t *testing.T) {
	svc := NewService(nil)

	req := basicRequest()
	req.Gateway = "paypal"

	_, err := svc.Reconcile(context.Background(), req)
	if err == nil {
		t.Fatal("expected unknown gateway error")
	}
	if !errors.HasCode(err, errors.CodeUnknownGateway) {
		t.Errorf("expected code %s, got %v", errors.CodeUnknownGateway, err)
	}
}

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     *Request
		wantErr bool
	}{
		{"valid", basicRequest(), false},
		{"missing gateway", &Request{ExternalFiles: []RawFile{{Filename: "a.csv"}}}, true},
		{"no files", &Request{Gateway: "equity"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestReconcileWithCarryForward(t *testing.T) {
	svc := NewService(nil)

	// First run: REF200 stays unmatched on the external side.
	first, err := svc.Reconcile(context.Background(), basicRequest())
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	var unmatched []*models.ClassifiedTransaction
	for _, tx := range first.Transactions {
		if tx.GatewayType == models.GatewayTypeExternal &&
			tx.Category == models.CategoryReconcilable &&
			tx.Match.Status == models.StatusUnreconciled {
			unmatched = append(unmatched, tx)
		}
	}
	if len(unmatched) != 1 {
		t.Fatalf("expected 1 unmatched external, got %d", len(unmatched))
	}

	// Second run uploads the missing internal counterpart for REF200.
	second := &Request{
		Gateway: "equity",
		ExternalFiles: []RawFile{{
			Filename: "equity_april.csv",
			Content:  externalCSV("01-04-2024,EXT9,TPG/REF500/PAY,120,"),
		}},
		InternalFiles: []RawFile{{
			Filename: "workpay_equity_april.csv",
			Content: internalCSV(
				"2024-04-01,REF200,Late Arrival,800,",
				"2024-04-01,REF500,April Payee,120,",
			),
		}},
		PriorUnmatched: &matcher.CarryForward{External: unmatched},
	}

	result, err := svc.Reconcile(context.Background(), second)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	if result.Run.Matched != 2 {
		t.Errorf("matched = %d, expected carried-forward and current both matched", result.Run.Matched)
	}
	if result.Run.CarryForwardMatched != 1 {
		t.Errorf("carry forward matched = %d, expected 1", result.Run.CarryForwardMatched)
	}
}

func TestReconcileIdempotentDecisions(t *testing.T) {
	svc := NewService(nil)

	first, err := svc.Reconcile(context.Background(), basicRequest())
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	second, err := svc.Reconcile(context.Background(), basicRequest())
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	if first.Run.RunID == second.Run.RunID {
		t.Error("each run must carry a fresh id")
	}
	if first.Run.Matched != second.Run.Matched ||
		first.Run.UnmatchedExternal != second.Run.UnmatchedExternal ||
		first.Run.UnmatchedInternal != second.Run.UnmatchedInternal {
		t.Errorf("identical inputs diverged: %s vs %s", first.Run, second.Run)
	}
	if len(first.Transactions) != len(second.Transactions) {
		t.Fatalf("transaction counts diverged: %d vs %d", len(first.Transactions), len(second.Transactions))
	}
	for i := range first.Transactions {
		a, b := first.Transactions[i], second.Transactions[i]
		if a.ReconciliationKey != b.ReconciliationKey {
			t.Fatalf("ordering diverged at %d: %q vs %q", i, a.ReconciliationKey, b.ReconciliationKey)
		}
	}
}

func TestReconcileMany(t *testing.T) {
	svc := NewService(nil)

	reqs := []*Request{
		basicRequest(),
		{Gateway: "paypal", ExternalFiles: []RawFile{{Filename: "x.csv", Content: []byte("a,b")}}},
	}

	results, errs := svc.ReconcileMany(context.Background(), reqs)

	if len(results) != 2 || len(errs) != 2 {
		t.Fatalf("expected slot per request, got %d/%d", len(results), len(errs))
	}
	if errs[0] != nil || results[0] == nil {
		t.Errorf("first request should succeed, got %v", errs[0])
	}
	if errs[1] == nil || results[1] != nil {
		t.Error("unknown gateway should fail in its own slot")
	}
}
