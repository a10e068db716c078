package config

import (
	"hash/fnv"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FeatureFlags manages feature toggles for the training hub. Flags
// gate background sweeps and certification behavior so that risky
// changes can be rolled out per training center.
type FeatureFlags struct {
	mu sync.RWMutex

	features map[string]*Feature

	// Override rules (for testing/debugging)
	centerOverrides map[string]map[string]bool // centerID -> feature -> enabled
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Rollout percentage (0-100)
	// Training centers are assigned based on hash of their ID
	RolloutPercent int

	// Time-based activation
	EnabledFrom  *time.Time
	EnabledUntil *time.Time
}

// FeatureContext provides context for feature flag evaluation.
type FeatureContext struct {
	CenterID string // Training center the evaluation runs for
	IsAdmin  bool   // Admin bypass
}

// Predefined feature flag names.
const (
	// === Background sweeps ===
	FeatureProgressSweep = "sweep.course_progress" // Periodic course progress re-evaluation
	FeatureExpirySweep   = "sweep.certificate_expiry" // Daily expiry marking

	// === Notifications ===
	FeatureNotifyExpiry  = "notify.certificate_expiry" // Warn holders inside the renewal window
	FeatureNotifySignOff = "notify.sign_off"           // Prompt approvers after a batch

	// === Certification behavior ===
	FeatureStrictRecurrentRenewal = "cert.strict_recurrent_renewal" // Fail instead of skip when no prior certificate
	FeatureRenewalInference       = "cert.renewal_inference"        // Timestamp inference for pre-log certificate rows
	FeatureDecisionIssuance       = "cert.decision_issuance"        // Administrative decision records
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features:        make(map[string]*Feature),
		centerOverrides: make(map[string]map[string]bool),
	}

	ff.initializeDefaults()
	ff.loadFromEnvironment()

	return ff
}

// initializeDefaults sets up all features with default values.
func (ff *FeatureFlags) initializeDefaults() {
	ff.features[FeatureProgressSweep] = &Feature{
		Name:           FeatureProgressSweep,
		Description:    "Re-evaluate course progress periodically",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureExpirySweep] = &Feature{
		Name:           FeatureExpirySweep,
		Description:    "Mark expired certificates daily",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureNotifyExpiry] = &Feature{
		Name:           FeatureNotifyExpiry,
		Description:    "Warn certificate holders inside the renewal window",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureNotifySignOff] = &Feature{
		Name:           FeatureNotifySignOff,
		Description:    "Notify approvers when a batch needs sign-off",
		Enabled:        true,
		RolloutPercent: 100,
	}

	// Strict mode turns silent renewal skips into per-trainee
	// failures. Off until all centers have backfilled legacy rows.
	ff.features[FeatureStrictRecurrentRenewal] = &Feature{
		Name:           FeatureStrictRecurrentRenewal,
		Description:    "Fail recurrent issuance without a prior certificate",
		Enabled:        false,
		RolloutPercent: 0,
	}

	ff.features[FeatureRenewalInference] = &Feature{
		Name:           FeatureRenewalInference,
		Description:    "Infer renewals from timestamps for pre-log rows",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureDecisionIssuance] = &Feature{
		Name:           FeatureDecisionIssuance,
		Description:    "Record administrative decisions for batches",
		Enabled:        true,
		RolloutPercent: 100,
	}
}

// loadFromEnvironment loads feature flag overrides from env vars.
// Format: FEATURE_<NAME>=true|false|<percent>
// Example: FEATURE_CERT_STRICT_RECURRENT_RENEWAL=true
// Example: FEATURE_NOTIFY_CERTIFICATE_EXPIRY=50 (50% rollout)
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		envKey := featureNameToEnvKey(name)
		if val := os.Getenv(envKey); val != "" {
			// Try parsing as boolean
			if b, err := strconv.ParseBool(val); err == nil {
				feature.Enabled = b
				if b {
					feature.RolloutPercent = 100
				} else {
					feature.RolloutPercent = 0
				}
				continue
			}

			// Try parsing as percentage
			if p, err := strconv.Atoi(val); err == nil && p >= 0 && p <= 100 {
				feature.Enabled = p > 0
				feature.RolloutPercent = p
			}
		}
	}
}

// featureNameToEnvKey converts feature name to environment variable key.
// "cert.strict_recurrent_renewal" -> "FEATURE_CERT_STRICT_RECURRENT_RENEWAL"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled checks if a feature is enabled for the given context.
func (ff *FeatureFlags) IsEnabled(featureName string, ctx *FeatureContext) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	// Check center overrides first
	if ctx != nil && ctx.CenterID != "" {
		if overrides, ok := ff.centerOverrides[ctx.CenterID]; ok {
			if enabled, ok := overrides[featureName]; ok {
				return enabled
			}
		}
	}

	feature, ok := ff.features[featureName]
	if !ok {
		return false
	}

	// Admins get all features
	if ctx != nil && ctx.IsAdmin {
		return true
	}

	if !feature.Enabled {
		return false
	}

	// Check time-based activation
	now := time.Now()
	if feature.EnabledFrom != nil && now.Before(*feature.EnabledFrom) {
		return false
	}
	if feature.EnabledUntil != nil && now.After(*feature.EnabledUntil) {
		return false
	}

	// Check rollout percentage
	if feature.RolloutPercent < 100 && ctx != nil && ctx.CenterID != "" {
		return ff.isInRollout(ctx.CenterID, featureName, feature.RolloutPercent)
	}

	return feature.RolloutPercent > 0
}

// isInRollout determines if a center is in the rollout percentage.
// Uses consistent hashing so centers stay in their bucket.
func (ff *FeatureFlags) isInRollout(centerID, featureName string, percent int) bool {
	h := fnv.New32a()
	h.Write([]byte(featureName))
	h.Write([]byte(centerID))
	hash := h.Sum32()

	// Map to 0-99 range
	bucket := int(hash % 100)

	return bucket < percent
}

// SetCenterOverride sets a feature override for a specific center.
// Useful for testing and debugging.
func (ff *FeatureFlags) SetCenterOverride(centerID, featureName string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if _, ok := ff.centerOverrides[centerID]; !ok {
		ff.centerOverrides[centerID] = make(map[string]bool)
	}
	ff.centerOverrides[centerID][featureName] = enabled
}

// ClearCenterOverrides removes all overrides for a center.
func (ff *FeatureFlags) ClearCenterOverrides(centerID string) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	delete(ff.centerOverrides, centerID)
}

// SetRolloutPercent updates the rollout percentage for a feature.
// Thread-safe for live updates.
func (ff *FeatureFlags) SetRolloutPercent(featureName string, percent int) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}

	if percent < 0 || percent > 100 {
		return ErrInvalidRolloutPercent
	}

	feature.RolloutPercent = percent
	feature.Enabled = percent > 0

	return nil
}

// EnableFeature enables a feature at 100% rollout.
func (ff *FeatureFlags) EnableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 100)
}

// DisableFeature disables a feature completely.
func (ff *FeatureFlags) DisableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 0)
}

// GetAllFeatures returns a copy of all feature configurations.
func (ff *FeatureFlags) GetAllFeatures() map[string]*Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	result := make(map[string]*Feature, len(ff.features))
	for k, v := range ff.features {
		featureCopy := *v
		result[k] = &featureCopy
	}
	return result
}

// --- Errors ---

var (
	ErrFeatureNotFound       = &FeatureFlagError{Message: "feature not found"}
	ErrInvalidRolloutPercent = &FeatureFlagError{Message: "rollout percent must be 0-100"}
)

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
