// Package models defines the canonical records flowing through the
// reconciliation pipeline.
//
// Raw gateway exports are normalized into NormalizedRecord (the five-column
// template), classified into ClassifiedTransaction, decorated with a
// MatchResult by the matching engine and summarized into a ReconciliationRun.
// Ownership is strictly forward: no stage mutates an upstream stage's output.
package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Template column names, stable across all gateways.
const (
	ColumnDate      = "Date"
	ColumnReference = "Reference"
	ColumnDetails   = "Details"
	ColumnDebit     = "Debit"
	ColumnCredit    = "Credit"
)

// TemplateColumns returns the canonical column order used by every
// normalized file.
func TemplateColumns() []string {
	return []string{ColumnDate, ColumnReference, ColumnDetails, ColumnDebit, ColumnCredit}
}

// GatewayType distinguishes the bank-issued view from the internal ledger.
type GatewayType string

const (
	// GatewayTypeExternal marks records from a bank-issued statement.
	GatewayTypeExternal GatewayType = "EXTERNAL"
	// GatewayTypeInternal marks records from the organization's own payout ledger.
	GatewayTypeInternal GatewayType = "INTERNAL"
)

// IsValid checks if the gateway type is valid.
func (g GatewayType) IsValid() bool {
	return g == GatewayTypeExternal || g == GatewayTypeInternal
}

// TransactionType is the classification of a normalized record.
type TransactionType string

const (
	// TransactionTypeCharge is a gateway fee or commission row.
	TransactionTypeCharge TransactionType = "CHARGE"
	// TransactionTypeCredit is a deposit/top-up row.
	TransactionTypeCredit TransactionType = "CREDIT"
	// TransactionTypeDebit is a payout row, the only type that is matched.
	TransactionTypeDebit TransactionType = "DEBIT"
	// TransactionTypeOther covers legacy top-up/refund rows that carry
	// neither a usable debit nor credit; stored, never matched.
	TransactionTypeOther TransactionType = "OTHER"
)

// IsValid checks if the transaction type is valid.
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeCharge, TransactionTypeCredit, TransactionTypeDebit, TransactionTypeOther:
		return true
	}
	return false
}

// Category derives deterministically from the transaction type.
func (t TransactionType) Category() Category {
	switch t {
	case TransactionTypeCharge, TransactionTypeCredit:
		return CategoryAutoReconciled
	case TransactionTypeDebit:
		return CategoryReconcilable
	default:
		return CategoryNonReconcilable
	}
}

// Category is the reconciliation category of a classified transaction.
type Category string

const (
	// CategoryReconcilable records must be matched against the counterpart side.
	CategoryReconcilable Category = "RECONCILABLE"
	// CategoryAutoReconciled records are assumed correct without matching.
	CategoryAutoReconciled Category = "AUTO_RECONCILED"
	// CategoryNonReconcilable records are stored but never matched.
	CategoryNonReconcilable Category = "NON_RECONCILABLE"
)

// IsValid checks if the category is valid.
func (c Category) IsValid() bool {
	switch c {
	case CategoryReconcilable, CategoryAutoReconciled, CategoryNonReconcilable:
		return true
	}
	return false
}

// Status is the reconciliation outcome of a record.
type Status string

const (
	StatusReconciled   Status = "Reconciled"
	StatusUnreconciled Status = "Unreconciled"
)

// NoteSystemReconciled is the note attached to every automatic match.
// Manual overrides supplied by collaborators carry a free-text note instead.
const NoteSystemReconciled = "System Reconciled"

// NormalizedRecord is one row of a raw file after normalization into the
// five-column template. Dates stay textual at this stage; strict parsing
// would lose the lossless original token some gateways require downstream.
type NormalizedRecord struct {
	Date      string          `json:"date"`
	Reference string          `json:"reference"`
	Details   string          `json:"details"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
}

// IsEmpty reports whether the row carries no amount and no reference, the
// condition under which normalization drops it.
func (r *NormalizedRecord) IsEmpty() bool {
	return !r.Debit.IsPositive() && !r.Credit.IsPositive() &&
		strings.TrimSpace(r.Reference) == ""
}

// ClassifiedTransaction is a NormalizedRecord augmented with its gateway
// identity, classification and derived reconciliation key. Immutable once
// classified within a run; the matcher attaches the MatchResult without
// touching the classification fields.
type ClassifiedTransaction struct {
	NormalizedRecord

	Gateway            string          `json:"gateway"`
	GatewayType        GatewayType     `json:"gateway_type"`
	Type               TransactionType `json:"transaction_type"`
	Category           Category        `json:"reconciliation_category"`
	ExtractedReference string          `json:"extracted_reference,omitempty"`
	ReconciliationKey  string          `json:"reconciliation_key"`

	// CarriedForward marks a record re-presented from a prior run's
	// unmatched set.
	CarriedForward bool `json:"carried_forward,omitempty"`

	Match *MatchResult `json:"match,omitempty"`
}

// MatchReference returns the identity string used during matching: the
// extracted reference when narrative parsing recovered one, otherwise the
// record's own reference, otherwise its details text.
func (t *ClassifiedTransaction) MatchReference() string {
	if ref := strings.TrimSpace(t.ExtractedReference); ref != "" {
		return ref
	}
	if ref := strings.TrimSpace(t.Reference); ref != "" {
		return ref
	}
	return strings.TrimSpace(t.Details)
}

// Amount returns the magnitude relevant to the record's type.
func (t *ClassifiedTransaction) Amount() decimal.Decimal {
	if t.Type == TransactionTypeCredit {
		return t.Credit.Abs()
	}
	return t.Debit.Abs()
}

// Validate performs basic validation on the classified transaction.
func (t *ClassifiedTransaction) Validate() error {
	if strings.TrimSpace(t.Gateway) == "" {
		return fmt.Errorf("gateway cannot be empty")
	}
	if !t.GatewayType.IsValid() {
		return fmt.Errorf("invalid gateway type: %s", t.GatewayType)
	}
	if !t.Type.IsValid() {
		return fmt.Errorf("invalid transaction type: %s", t.Type)
	}
	if !t.Category.IsValid() {
		return fmt.Errorf("invalid category: %s", t.Category)
	}
	if strings.TrimSpace(t.ReconciliationKey) == "" {
		return fmt.Errorf("reconciliation key cannot be empty")
	}
	return nil
}

// String returns a compact representation for logs.
func (t *ClassifiedTransaction) String() string {
	return fmt.Sprintf("ClassifiedTransaction{Gateway: %s/%s, Type: %s, Key: %s, Debit: %s, Credit: %s}",
		t.Gateway, t.GatewayType, t.Type, t.ReconciliationKey, t.Debit.String(), t.Credit.String())
}

// BuildReconciliationKey derives the identity used for exact matching and for
// the (key, gateway) uniqueness constraint at the persistence boundary:
// the normalized match reference joined with the absolute debit amount.
func BuildReconciliationKey(reference string, debit decimal.Decimal) string {
	ref := strings.ToUpper(strings.Join(strings.Fields(reference), " "))
	return ref + "|" + debit.Abs().String()
}

// MatchResult is the reconciliation outcome attached to a transaction.
type MatchResult struct {
	Status               Status `json:"status"`
	Note                 string `json:"note"`
	CounterpartReference string `json:"matched_counterpart_reference,omitempty"`
}

// SystemReconciled builds the result for an automatic match.
func SystemReconciled(counterpart string) *MatchResult {
	return &MatchResult{
		Status:               StatusReconciled,
		Note:                 NoteSystemReconciled,
		CounterpartReference: counterpart,
	}
}

// Unreconciled builds the result for a record no pass could match.
func Unreconciled() *MatchResult {
	return &MatchResult{Status: StatusUnreconciled}
}

// ReconciliationRun summarizes one invocation of the matching engine for a
// gateway. Immutable after creation.
type ReconciliationRun struct {
	RunID               string    `json:"run_id"`
	Gateway             string    `json:"gateway"`
	TotalExternal       int       `json:"total_external"`
	TotalInternal       int       `json:"total_internal"`
	Matched             int       `json:"matched"`
	UnmatchedExternal   int       `json:"unmatched_external"`
	UnmatchedInternal   int       `json:"unmatched_internal"`
	CarryForwardMatched int       `json:"carry_forward_matched"`
	CreatedAt           time.Time `json:"created_at"`
}

// String returns a one-line summary for logs.
func (r *ReconciliationRun) String() string {
	return fmt.Sprintf("Run{%s gateway=%s ext=%d int=%d matched=%d unmatched_ext=%d unmatched_int=%d cf=%d}",
		r.RunID, r.Gateway, r.TotalExternal, r.TotalInternal, r.Matched,
		r.UnmatchedExternal, r.UnmatchedInternal, r.CarryForwardMatched)
}

// MarshalJSON renders the creation time as RFC 3339.
func (r *ReconciliationRun) MarshalJSON() ([]byte, error) {
	type Alias ReconciliationRun
	return json.Marshal(&struct {
		CreatedAt string `json:"created_at"`
		*Alias
	}{
		CreatedAt: r.CreatedAt.Format(time.RFC3339),
		Alias:     (*Alias)(r),
	})
}
