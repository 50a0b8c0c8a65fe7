// Package reconciler orchestrates the end-to-end reconciliation pipeline for
// a gateway: raw file normalization, classification, matching and run
// aggregation.
//
// One invocation processes one gateway's file set synchronously from raw
// bytes to a ReconciliationRun. Gateways share no mutable state beyond the
// read-only registry, so multiple runs may execute concurrently; see
// ReconcileMany.
package reconciler

import (
	"context"
	"time"

	"github.com/google/uuid"

	"gateway-reconciliation-service/internal/classifier"
	"gateway-reconciliation-service/internal/gateway"
	"gateway-reconciliation-service/internal/matcher"
	"gateway-reconciliation-service/internal/models"
	"gateway-reconciliation-service/internal/normalizer"
	"gateway-reconciliation-service/pkg/errors"
	"gateway-reconciliation-service/pkg/logger"
)

// RawFile is an uploaded file's bytes plus its original name. Ephemeral and
// owned by the caller; the service never persists it.
type RawFile struct {
	Filename string
	Content  []byte
}

// Request describes one gateway reconciliation invocation. The prior
// unmatched set comes from the persistence collaborator: the most recent
// prior run's records still in Unreconciled status.
type Request struct {
	Gateway        string
	ExternalFiles  []RawFile
	InternalFiles  []RawFile
	PriorUnmatched *matcher.CarryForward
}

// Validate validates the reconciliation request.
func (r *Request) Validate() error {
	if r.Gateway == "" {
		return errors.ConfigurationError("gateway", r.Gateway, nil).
			WithSuggestion("provide the gateway name the uploaded files belong to")
	}
	if len(r.ExternalFiles) == 0 && len(r.InternalFiles) == 0 {
		return errors.ConfigurationError("files", 0, nil).
			WithSuggestion("provide at least one external or internal file")
	}
	return nil
}

// RunResult is everything one invocation produces for its collaborators: the
// persisted-record set, the run summary and transformation diagnostics.
type RunResult struct {
	Run          *models.ReconciliationRun       `json:"run"`
	Transactions []*models.ClassifiedTransaction `json:"transactions"`

	// Diagnostics carries per-file mapping reports and warnings for the
	// observability collaborators.
	Diagnostics []*normalizer.Result `json:"diagnostics,omitempty"`

	// FileErrors records files that failed to parse; the run's totals
	// reflect only successfully parsed data.
	FileErrors *errors.ErrorList `json:"file_errors,omitempty"`
}

// Service runs reconciliation for gateways registered in its registry. The
// registry is treated as immutable for the duration of every run.
type Service struct {
	registry *gateway.Registry
	logger   logger.Logger
}

// NewService creates a reconciliation service over a gateway registry.
func NewService(registry *gateway.Registry) *Service {
	if registry == nil {
		registry = gateway.DefaultRegistry()
	}
	return &Service{
		registry: registry,
		logger:   logger.GetGlobalLogger().WithComponent("reconciler"),
	}
}

// Reconcile processes one gateway's file set end to end. Per-file failures
// are recorded in the result and the batch continues; an empty usable
// dataset on either side aborts the run with an error.
func (s *Service) Reconcile(ctx context.Context, req *Request) (*RunResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.InternalError("reconcile", err)
	}

	log := s.logger.WithField("gateway", req.Gateway)
	log.WithFields(logger.Fields{
		"external_files": len(req.ExternalFiles),
		"internal_files": len(req.InternalFiles),
	}).Info("starting reconciliation run")

	externalCfg, err := s.registry.Get(req.Gateway, gateway.ConfigTypeExternal)
	if err != nil {
		return nil, err
	}
	internalCfg, err := s.registry.Get(req.Gateway, gateway.ConfigTypeInternal)
	if err != nil {
		return nil, err
	}

	result := &RunResult{FileErrors: &errors.ErrorList{}}

	externalRecords := s.normalizeFiles(req.ExternalFiles, externalCfg, result)
	internalRecords := s.normalizeFiles(req.InternalFiles, internalCfg, result)

	externalTxs := classifier.Classify(externalRecords, externalCfg)
	internalTxs := classifier.Classify(internalRecords, internalCfg)

	extReconcilable, extAuto, extNon := classifier.Partition(externalTxs)
	intReconcilable, intAuto, intNon := classifier.Partition(internalTxs)

	engine := matcher.NewEngine(matcher.ConfigFromGateway(externalCfg))
	outcome, err := engine.Match(extReconcilable, intReconcilable, req.PriorUnmatched)
	if err != nil {
		log.WithError(err).Error("matching aborted")
		return nil, err
	}

	result.Transactions = s.assembleRecords(outcome, extAuto, extNon, intAuto, intNon)
	result.Run = s.aggregateRun(req.Gateway, outcome, extAuto, extNon, intAuto, intNon)

	log.WithField("run", result.Run.String()).Info("reconciliation run complete")
	return result, nil
}

// normalizeFiles runs the normalizer over the side's files, skipping files
// that do not belong to the gateway by filename prefix and accumulating
// per-file failures without aborting the batch.
func (s *Service) normalizeFiles(files []RawFile, cfg *gateway.FileConfig, result *RunResult) []models.NormalizedRecord {
	var records []models.NormalizedRecord
	for _, file := range files {
		if !cfg.MatchesFilename(file.Filename) {
			s.logger.WithFields(logger.Fields{
				"filename": file.Filename,
				"gateway":  cfg.Gateway,
				"prefix":   cfg.FilenamePrefix,
			}).Warn("file does not match gateway prefix, skipping")
			continue
		}

		res := normalizer.Normalize(file.Content, file.Filename, cfg)
		result.Diagnostics = append(result.Diagnostics, res)
		if res.HasErrors() {
			for _, err := range res.Errors.Errors {
				result.FileErrors.Add(err)
			}
			continue
		}
		records = append(records, res.Records...)
	}
	return records
}

// assembleRecords builds the persisted-record set in deterministic order and
// deduplicates on the (reconciliation key, gateway, side) triple. A matched
// pair shares key and gateway across its external and internal rows, so the
// persistence boundary enforces uniqueness on the triple, not the pair.
func (s *Service) assembleRecords(outcome *matcher.Outcome, groups ...[]*models.ClassifiedTransaction) []*models.ClassifiedTransaction {
	ordered := make([]*models.ClassifiedTransaction, 0,
		len(outcome.External)+len(outcome.Internal))
	ordered = append(ordered, outcome.External...)
	ordered = append(ordered, outcome.Internal...)
	for _, group := range groups {
		ordered = append(ordered, group...)
	}

	seen := make(map[string]bool, len(ordered))
	deduped := make([]*models.ClassifiedTransaction, 0, len(ordered))
	for _, tx := range ordered {
		key := tx.ReconciliationKey + "|" + tx.Gateway + "|" + string(tx.GatewayType)
		if seen[key] {
			s.logger.WithFields(logger.Fields{
				"reconciliation_key": tx.ReconciliationKey,
				"gateway":            tx.Gateway,
			}).Warn("dropping duplicate reconciliation key")
			continue
		}
		seen[key] = true
		deduped = append(deduped, tx)
	}
	return deduped
}

// aggregateRun computes the per-run totals. Auto-reconciled and
// non-reconcilable records count toward totals only; the matched/unmatched
// tallies cover the reconcilable category including carried-forward records.
func (s *Service) aggregateRun(gatewayName string, outcome *matcher.Outcome, extAuto, extNon, intAuto, intNon []*models.ClassifiedTransaction) *models.ReconciliationRun {
	return &models.ReconciliationRun{
		RunID:               uuid.NewString(),
		Gateway:             gatewayName,
		TotalExternal:       len(outcome.External) + len(extAuto) + len(extNon),
		TotalInternal:       len(outcome.Internal) + len(intAuto) + len(intNon),
		Matched:             outcome.Matched,
		UnmatchedExternal:   outcome.UnmatchedExternal,
		UnmatchedInternal:   outcome.UnmatchedInternal,
		CarryForwardMatched: outcome.CarryForwardMatched,
		CreatedAt:           time.Now().UTC(),
	}
}

// ReconcileMany runs several gateways' requests concurrently. Requests are
// independent: they share only the read-only registry. Results are returned
// in request order; a failed gateway occupies its slot with a nil result and
// the error.
func (s *Service) ReconcileMany(ctx context.Context, reqs []*Request) ([]*RunResult, []error) {
	results := make([]*RunResult, len(reqs))
	errs := make([]error, len(reqs))

	type indexed struct{ i int }
	done := make(chan indexed, len(reqs))
	for i, req := range reqs {
		go func(i int, req *Request) {
			results[i], errs[i] = s.Reconcile(ctx, req)
			done <- indexed{i}
		}(i, req)
	}
	for range reqs {
		<-done
	}
	return results, errs
}
