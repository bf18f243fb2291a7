package cosi

import (
	"fmt"
)

// SecurityLevel represents the security level of threshold parameters
type SecurityLevel string

const (
	SecurityLevelLow    SecurityLevel = "low"
	SecurityLevelMedium SecurityLevel = "medium"
	SecurityLevelHigh   SecurityLevel = "high"
)

// ValidationResult contains the result of parameter validation
type ValidationResult struct {
	Valid         bool          `json:"valid"`
	SecurityLevel SecurityLevel `json:"security_level"`
	Warnings      []string      `json:"warnings,omitempty"`
	Errors        []string      `json:"errors,omitempty"`
}

// ValidateThreshold checks 1 <= m <= n <= MaxSigners
func ValidateThreshold(n, m int) error {
	if n < 1 || n > MaxSigners {
		return ErrTooManySigners.WithDetails("n=%d, allowed 1..%d", n, MaxSigners)
	}
	if m < 1 || m > n {
		return ErrInvalidThreshold.WithDetails("m=%d, n=%d", m, n)
	}
	return nil
}

// ThresholdValidator grades threshold parameters for operators choosing a
// signer set. It never rejects a set ValidateThreshold accepts; it only
// attaches warnings.
type ThresholdValidator struct {
	MinSecureThreshold int     `json:"min_secure_threshold"`
	RecommendedRatio   float64 `json:"recommended_ratio"`
}

// NewDefaultThresholdValidator creates a validator with default parameters
func NewDefaultThresholdValidator() *ThresholdValidator {
	return &ThresholdValidator{
		MinSecureThreshold: 2,    // a single compromised key must not suffice
		RecommendedRatio:   0.51, // majority of the signer set
	}
}

// ValidateThresholdParameters validates and grades n-of-m parameters
func (tv *ThresholdValidator) ValidateThresholdParameters(n, m int) *ValidationResult {
	result := &ValidationResult{
		Valid:         true,
		SecurityLevel: SecurityLevelMedium,
		Warnings:      []string{},
		Errors:        []string{},
	}

	if err := ValidateThreshold(n, m); err != nil {
		result.Valid = false
		result.SecurityLevel = SecurityLevelLow
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	if m < tv.MinSecureThreshold {
		result.SecurityLevel = SecurityLevelLow
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("threshold %d lets a single key holder sign alone", m))
	}

	ratio := float64(m) / float64(n)
	if ratio < tv.RecommendedRatio {
		result.SecurityLevel = SecurityLevelLow
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("threshold ratio %.2f is below the recommended %.2f", ratio, tv.RecommendedRatio))
	} else if m >= tv.MinSecureThreshold && m < n {
		result.SecurityLevel = SecurityLevelHigh
	}

	if m == n && n > 1 {
		result.Warnings = append(result.Warnings,
			"threshold equals signer count: losing any key prevents signing")
	}

	return result
}
