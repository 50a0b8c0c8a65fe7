// Package config assembles domain configuration for the CLI: the gateway
// registry with any per-invocation overrides, raw file loading and the
// carry-forward set from a prior run.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gateway-reconciliation-service/internal/gateway"
	"gateway-reconciliation-service/internal/matcher"
	"gateway-reconciliation-service/internal/models"
	"gateway-reconciliation-service/internal/reconciler"
	"gateway-reconciliation-service/pkg/errors"
)

// BuildRegistry returns the built-in gateway registry with optional
// threshold overrides applied to every gateway. A zero override keeps the
// gateway's configured value.
func BuildRegistry(fuzzyThreshold, chargeThreshold int) (*gateway.Registry, error) {
	if fuzzyThreshold < 0 || fuzzyThreshold > 100 {
		return nil, errors.ConfigurationError("fuzzy-threshold", fuzzyThreshold, nil).
			WithSuggestion("use a value between 1 and 100, or 0 to keep gateway defaults")
	}
	if chargeThreshold < 0 || chargeThreshold > 100 {
		return nil, errors.ConfigurationError("charge-threshold", chargeThreshold, nil).
			WithSuggestion("use a value between 1 and 100, or 0 to keep gateway defaults")
	}

	registry := gateway.NewRegistry()
	for _, cfg := range gateway.BuiltinConfigs() {
		if fuzzyThreshold > 0 {
			cfg.FuzzyThreshold = fuzzyThreshold
		}
		if chargeThreshold > 0 {
			cfg.ChargeKeywordThreshold = chargeThreshold
		}
		if err := registry.Register(cfg); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// LoadRawFiles reads the given paths into RawFile values for the service.
func LoadRawFiles(paths []string) ([]reconciler.RawFile, error) {
	files := make([]reconciler.RawFile, 0, len(paths))
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.FileReadError(path, err)
		}
		files = append(files, reconciler.RawFile{
			Filename: filepath.Base(path),
			Content:  content,
		})
	}
	return files, nil
}

// carryForwardFile is the on-disk shape of a prior run's unmatched set, as
// exported by the persistence collaborator.
type carryForwardFile struct {
	External []*models.ClassifiedTransaction `json:"external"`
	Internal []*models.ClassifiedTransaction `json:"internal"`
}

// LoadCarryForward reads a prior run's unmatched records from a JSON file.
func LoadCarryForward(path string) (*matcher.CarryForward, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.FileReadError(path, err)
	}

	var parsed carryForwardFile
	if err := json.Unmarshal(content, &parsed); err != nil {
		return nil, errors.FileReadError(path, fmt.Errorf("invalid carry-forward JSON: %w", err))
	}
	return &matcher.CarryForward{
		External: parsed.External,
		Internal: parsed.Internal,
	}, nil
}
