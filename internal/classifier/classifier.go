// Package classifier splits normalized gateway records into reconciliation
// categories and recovers embedded references from free-text narratives.
//
// Classification is keyword-driven: a gateway's charge keywords mark fee and
// commission rows, which are auto-reconciled regardless of amount; remaining
// rows classify by which amount column is populated. Charge detection wins
// over credit, which wins over debit, so a "charge" narrative carrying a
// nonzero credit is still a charge.
package classifier

import (
	"strings"

	"gateway-reconciliation-service/internal/gateway"
	"gateway-reconciliation-service/internal/models"
	"gateway-reconciliation-service/pkg/logger"
	"gateway-reconciliation-service/pkg/textmatch"
)

// Classify converts normalized records into classified transactions under
// the gateway's rule set. Records are immutable once classified within a
// run; the matcher only ever attaches a MatchResult.
func Classify(records []models.NormalizedRecord, cfg *gateway.FileConfig) []*models.ClassifiedTransaction {
	log := logger.GetGlobalLogger().WithComponent("classifier").WithFields(logger.Fields{
		"gateway": cfg.Gateway,
		"side":    cfg.ConfigType,
	})

	transactions := make([]*models.ClassifiedTransaction, 0, len(records))
	counts := map[models.TransactionType]int{}

	for _, record := range records {
		tx := classifyRecord(record, cfg)
		counts[tx.Type]++
		transactions = append(transactions, tx)
	}

	log.WithFields(logger.Fields{
		"total":   len(transactions),
		"charges": counts[models.TransactionTypeCharge],
		"credits": counts[models.TransactionTypeCredit],
		"debits":  counts[models.TransactionTypeDebit],
		"other":   counts[models.TransactionTypeOther],
	}).Info("classified normalized records")

	return transactions
}

func classifyRecord(record models.NormalizedRecord, cfg *gateway.FileConfig) *models.ClassifiedTransaction {
	tx := &models.ClassifiedTransaction{
		NormalizedRecord: record,
		Gateway:          cfg.Gateway,
		GatewayType:      cfg.ConfigType.GatewayType(),
	}

	switch {
	case IsCharge(record.Details, cfg):
		tx.Type = models.TransactionTypeCharge
	case record.Credit.IsPositive():
		tx.Type = models.TransactionTypeCredit
	case record.Debit.IsPositive():
		tx.Type = models.TransactionTypeDebit
	default:
		tx.Type = models.TransactionTypeOther
	}
	tx.Category = tx.Type.Category()

	// Narrative parsing only pays off for payout rows: they are the ones the
	// matcher must identify across datasets. No rule matching means the
	// record relies solely on fuzzy text matching.
	if tx.Type == models.TransactionTypeDebit {
		tx.ExtractedReference = cfg.ExtractReference(record.Details)
	}

	tx.ReconciliationKey = models.BuildReconciliationKey(tx.MatchReference(), record.Debit)

	// Auto-reconciled records are pre-decided here; they never enter the
	// matching engine.
	if tx.Category == models.CategoryAutoReconciled {
		tx.Match = models.SystemReconciled("")
	}

	return tx
}

// IsCharge reports whether the narrative marks a gateway charge: any
// configured keyword matching as a case-insensitive substring, or by fuzzy
// partial ratio at or above the gateway's threshold. The fuzzy path absorbs
// OCR and export inconsistencies such as "EFT Comm" vs "EFT COMMISSION".
func IsCharge(details string, cfg *gateway.FileConfig) bool {
	narrative := strings.ToLower(strings.TrimSpace(details))
	if narrative == "" {
		return false
	}
	for _, keyword := range cfg.ChargeKeywords {
		kw := strings.ToLower(strings.TrimSpace(keyword))
		if kw == "" {
			continue
		}
		if strings.Contains(narrative, kw) {
			return true
		}
		if textmatch.PartialRatio(narrative, kw) >= cfg.ChargeKeywordThreshold {
			return true
		}
	}
	return false
}

// Partition splits classified transactions by category, preserving input
// order within each group.
func Partition(transactions []*models.ClassifiedTransaction) (reconcilable, autoReconciled, nonReconcilable []*models.ClassifiedTransaction) {
	for _, tx := range transactions {
		switch tx.Category {
		case models.CategoryReconcilable:
			reconcilable = append(reconcilable, tx)
		case models.CategoryAutoReconciled:
			autoReconciled = append(autoReconciled, tx)
		default:
			nonReconcilable = append(nonReconcilable, tx)
		}
	}
	return reconcilable, autoReconciled, nonReconcilable
}
