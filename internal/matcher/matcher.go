// Package matcher matches reconcilable external gateway records against the
// internal workpay ledger.
//
// Matching runs in two passes. The exact pass compares extracted references
// against the internal reference set; the fuzzy pass scores every remaining
// pair with the gateway's configured similarity function and accepts the best
// candidate at or above the threshold. Records left unmatched by a prior run
// can be carried forward into the current batch so late-arriving counterpart
// data still produces a match.
//
// All iteration is in input order with first-seen tie-breaking, so re-running
// the engine on identical inputs yields identical decisions.
package matcher

import (
	"strings"

	"gateway-reconciliation-service/internal/gateway"
	"gateway-reconciliation-service/internal/models"
	"gateway-reconciliation-service/pkg/errors"
	"gateway-reconciliation-service/pkg/logger"
	"gateway-reconciliation-service/pkg/textmatch"
)

// Scorer computes a similarity score in [0, 100] between two references.
type Scorer func(a, b string) int

// Config holds the engine's matching parameters, taken from the gateway's
// file configuration.
type Config struct {
	Gateway        string
	FuzzyThreshold int
	Scorer         Scorer
}

// ConfigFromGateway builds a matcher configuration from a gateway config.
func ConfigFromGateway(cfg *gateway.FileConfig) *Config {
	threshold := cfg.FuzzyThreshold
	if threshold == 0 {
		threshold = gateway.DefaultFuzzyThreshold
	}

	scorer := textmatch.TokenSortRatio
	switch cfg.FuzzyScorer {
	case gateway.ScorerPartial:
		scorer = textmatch.PartialRatio
	case gateway.ScorerTokenSet:
		scorer = textmatch.TokenSetRatio
	}

	return &Config{
		Gateway:        cfg.Gateway,
		FuzzyThreshold: threshold,
		Scorer:         scorer,
	}
}

// CarryForward holds a prior run's unmatched records, re-presented to the
// current batch on the side they originated from.
type CarryForward struct {
	External []*models.ClassifiedTransaction
	Internal []*models.ClassifiedTransaction
}

// Outcome is the result of one matching invocation over the reconcilable
// category. Every record on both sides carries a MatchResult.
type Outcome struct {
	External []*models.ClassifiedTransaction
	Internal []*models.ClassifiedTransaction

	Matched             int
	UnmatchedExternal   int
	UnmatchedInternal   int
	CarryForwardMatched int
}

// Engine matches reconcilable records for a single gateway.
type Engine struct {
	config *Config
	logger logger.Logger
}

// NewEngine creates a matching engine with the given configuration.
func NewEngine(config *Config) *Engine {
	return &Engine{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("matcher").WithField("gateway", config.Gateway),
	}
}

// Match reconciles external against internal records, merging any prior
// unmatched carry-forward set first. Both sides empty is a signalled
// condition: a gateway with uploaded files but zero usable rows usually
// means normalization failed upstream.
func (e *Engine) Match(external, internal []*models.ClassifiedTransaction, prior *CarryForward) (*Outcome, error) {
	if prior != nil {
		external = append(markCarriedForward(prior.External), external...)
		internal = append(markCarriedForward(prior.Internal), internal...)
	}

	if len(external) == 0 {
		return nil, errors.EmptyDataset(e.config.Gateway, "external")
	}
	if len(internal) == 0 {
		return nil, errors.EmptyDataset(e.config.Gateway, "internal")
	}

	outcome := &Outcome{External: external, Internal: internal}

	claimedExternal := make([]bool, len(external))
	claimedInternal := make([]bool, len(internal))

	exact := e.exactPass(external, internal, claimedExternal, claimedInternal)
	fuzzy := e.fuzzyPass(external, internal, claimedExternal, claimedInternal)

	for i, tx := range external {
		if !claimedExternal[i] {
			tx.Match = models.Unreconciled()
		}
	}
	for i, tx := range internal {
		if !claimedInternal[i] {
			tx.Match = models.Unreconciled()
		}
	}

	// Matched counts pairs: each accepted match claims exactly one record on
	// each side, so the external and internal matched tallies are equal.
	outcome.Matched = exact + fuzzy
	for _, tx := range external {
		if tx.Match.Status == models.StatusUnreconciled {
			outcome.UnmatchedExternal++
		}
	}
	for _, tx := range internal {
		if tx.Match.Status == models.StatusUnreconciled {
			outcome.UnmatchedInternal++
		}
	}
	for _, tx := range append(external, internal...) {
		if tx.CarriedForward && tx.Match.Status == models.StatusReconciled {
			outcome.CarryForwardMatched++
		}
	}

	e.logger.WithFields(logger.Fields{
		"external":              len(external),
		"internal":              len(internal),
		"exact_matches":         exact,
		"fuzzy_matches":         fuzzy,
		"unmatched_external":    outcome.UnmatchedExternal,
		"unmatched_internal":    outcome.UnmatchedInternal,
		"carry_forward_matched": outcome.CarryForwardMatched,
	}).Info("matching complete")

	return outcome, nil
}

// exactPass matches external extracted references verbatim against the
// internal reference set.
func (e *Engine) exactPass(external, internal []*models.ClassifiedTransaction, claimedExternal, claimedInternal []bool) int {
	index := make(map[string][]int)
	for i, tx := range internal {
		key := normalizeReference(tx.MatchReference())
		if key == "" {
			continue
		}
		index[key] = append(index[key], i)
	}

	matches := 0
	for i, ext := range external {
		ref := normalizeReference(ext.ExtractedReference)
		if ref == "" {
			continue
		}
		for _, j := range index[ref] {
			if claimedInternal[j] {
				continue
			}
			e.reconcilePair(ext, internal[j])
			claimedExternal[i] = true
			claimedInternal[j] = true
			matches++
			break
		}
	}
	return matches
}

// fuzzyPass scores each remaining external record against every remaining
// internal reference and accepts the single best candidate at or above the
// threshold. Externals are processed in input order, so when several tie for
// the same internal record the first-seen one wins and the rest fall through
// to Unreconciled, eligible for carry-forward next run.
func (e *Engine) fuzzyPass(external, internal []*models.ClassifiedTransaction, claimedExternal, claimedInternal []bool) int {
	matches := 0
	for i, ext := range external {
		if claimedExternal[i] {
			continue
		}
		extRef := ext.MatchReference()
		if extRef == "" {
			continue
		}

		bestScore, bestIdx := -1, -1
		for j, in := range internal {
			if claimedInternal[j] {
				continue
			}
			score := e.config.Scorer(extRef, in.MatchReference())
			if score > bestScore {
				bestScore, bestIdx = score, j
			}
		}

		if bestIdx >= 0 && bestScore >= e.config.FuzzyThreshold {
			e.reconcilePair(ext, internal[bestIdx])
			claimedExternal[i] = true
			claimedInternal[bestIdx] = true
			matches++

			e.logger.WithFields(logger.Fields{
				"external_ref": extRef,
				"internal_ref": internal[bestIdx].MatchReference(),
				"score":        bestScore,
			}).Debug("fuzzy match accepted")
		}
	}
	return matches
}

func (e *Engine) reconcilePair(ext, in *models.ClassifiedTransaction) {
	ext.Match = models.SystemReconciled(in.MatchReference())
	in.Match = models.SystemReconciled(ext.MatchReference())
}

func normalizeReference(ref string) string {
	return strings.ToUpper(strings.TrimSpace(ref))
}

// markCarriedForward clones prior-run records with a cleared match and the
// carry-forward flag set, leaving the persisted originals untouched.
func markCarriedForward(prior []*models.ClassifiedTransaction) []*models.ClassifiedTransaction {
	out := make([]*models.ClassifiedTransaction, 0, len(prior))
	for _, tx := range prior {
		clone := *tx
		clone.Match = nil
		clone.CarriedForward = true
		out = append(out, &clone)
	}
	return out
}
