package cosi

import (
	"errors"
	"fmt"
)

// ErrorCategory represents the category of a CoSi error
type ErrorCategory string

const (
	ErrorCategoryDecoding         ErrorCategory = "decoding"
	ErrorCategoryInvalidPoint     ErrorCategory = "invalid_point"
	ErrorCategoryInvalidKey       ErrorCategory = "invalid_key"
	ErrorCategoryFormat           ErrorCategory = "format"
	ErrorCategorySignature        ErrorCategory = "signature"
	ErrorCategoryProtocolSequence ErrorCategory = "protocol_sequence"
	ErrorCategoryThreshold        ErrorCategory = "threshold"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	ErrorSeverityMedium   ErrorSeverity = "medium"   // Malformed input, caller may supply other input
	ErrorSeverityHigh     ErrorSeverity = "high"     // Authentication failure
	ErrorSeverityCritical ErrorSeverity = "critical" // Session must be abandoned
)

// CoSiError represents a structured error raised at the trust boundary
type CoSiError struct {
	Category ErrorCategory          `json:"category"`
	Severity ErrorSeverity          `json:"severity"`
	Code     string                 `json:"code"`
	Message  string                 `json:"message"`
	Details  string                 `json:"details,omitempty"`
	Cause    error                  `json:"-"`
	Context  map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *CoSiError) Error() string {
	msg := fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error
func (e *CoSiError) Unwrap() error {
	return e.Cause
}

// Is matches errors of the same category. A target without a code matches
// every error of its category, a target with a code matches only that code.
func (e *CoSiError) Is(target error) bool {
	t, ok := target.(*CoSiError)
	if !ok {
		return false
	}
	if t.Category != e.Category {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

func (e *CoSiError) clone() *CoSiError {
	newError := &CoSiError{
		Category: e.Category,
		Severity: e.Severity,
		Code:     e.Code,
		Message:  e.Message,
		Details:  e.Details,
		Cause:    e.Cause,
		Context:  make(map[string]interface{}, len(e.Context)+1),
	}
	for k, v := range e.Context {
		newError.Context[k] = v
	}
	return newError
}

// WithContext returns a copy of the error with a context entry added
func (e *CoSiError) WithContext(key string, value interface{}) *CoSiError {
	newError := e.clone()
	newError.Context[key] = value
	return newError
}

// WithCause returns a copy of the error wrapping cause
func (e *CoSiError) WithCause(cause error) *CoSiError {
	newError := e.clone()
	newError.Cause = cause
	return newError
}

// WithDetails returns a copy of the error with formatted details
func (e *CoSiError) WithDetails(format string, args ...interface{}) *CoSiError {
	newError := e.clone()
	newError.Details = fmt.Sprintf(format, args...)
	return newError
}

// NewCoSiError creates a new CoSi error
func NewCoSiError(category ErrorCategory, severity ErrorSeverity, code, message string) *CoSiError {
	return &CoSiError{
		Category: category,
		Severity: severity,
		Code:     code,
		Message:  message,
		Context:  make(map[string]interface{}),
	}
}

// Category sentinels, usable with errors.Is against any error of the category
var (
	ErrDecoding         = &CoSiError{Category: ErrorCategoryDecoding, Severity: ErrorSeverityMedium, Message: "decoding error"}
	ErrInvalidPoint     = &CoSiError{Category: ErrorCategoryInvalidPoint, Severity: ErrorSeverityMedium, Message: "invalid point"}
	ErrInvalidKey       = &CoSiError{Category: ErrorCategoryInvalidKey, Severity: ErrorSeverityMedium, Message: "invalid key"}
	ErrFormat           = &CoSiError{Category: ErrorCategoryFormat, Severity: ErrorSeverityHigh, Message: "format error"}
	ErrSignatureInvalid = &CoSiError{Category: ErrorCategorySignature, Severity: ErrorSeverityHigh, Message: "signature invalid"}
	ErrProtocolSequence = &CoSiError{Category: ErrorCategoryProtocolSequence, Severity: ErrorSeverityCritical, Message: "protocol sequence error"}
	ErrThreshold        = &CoSiError{Category: ErrorCategoryThreshold, Severity: ErrorSeverityMedium, Message: "threshold error"}
)

// Decoding Errors
var (
	ErrInvalidScalarLength = NewCoSiError(
		ErrorCategoryDecoding, ErrorSeverityMedium, "INVALID_SCALAR_LENGTH",
		"scalar encoding has wrong length")

	ErrNonCanonicalScalar = NewCoSiError(
		ErrorCategoryDecoding, ErrorSeverityMedium, "NON_CANONICAL_SCALAR",
		"scalar encoding is not reduced modulo the group order")

	ErrNonCanonicalPoint = NewCoSiError(
		ErrorCategoryDecoding, ErrorSeverityMedium, "NON_CANONICAL_POINT",
		"point encoding is not the canonical encoding of its point")

	ErrInvalidPointLength = NewCoSiError(
		ErrorCategoryDecoding, ErrorSeverityMedium, "INVALID_POINT_LENGTH",
		"point encoding has wrong length")

	ErrInvalidKeyLength = NewCoSiError(
		ErrorCategoryDecoding, ErrorSeverityMedium, "INVALID_KEY_LENGTH",
		"key encoding has wrong length")

	ErrInvalidHex = NewCoSiError(
		ErrorCategoryDecoding, ErrorSeverityMedium, "INVALID_HEX",
		"value is not valid hexadecimal")

	ErrInvalidSignatureLength = NewCoSiError(
		ErrorCategoryDecoding, ErrorSeverityMedium, "INVALID_SIGNATURE_LENGTH",
		"signature encoding has wrong length")
)

// Point and Key Errors
var (
	ErrPointDecompression = NewCoSiError(
		ErrorCategoryInvalidPoint, ErrorSeverityMedium, "POINT_DECOMPRESSION_FAILED",
		"point encoding is not on the curve")

	ErrIdentityPoint = NewCoSiError(
		ErrorCategoryInvalidPoint, ErrorSeverityMedium, "IDENTITY_POINT",
		"point is the identity element")

	ErrIdentityKey = NewCoSiError(
		ErrorCategoryInvalidKey, ErrorSeverityMedium, "IDENTITY_KEY",
		"public key is the identity element")

	ErrKeyNotOnCurve = NewCoSiError(
		ErrorCategoryInvalidKey, ErrorSeverityMedium, "KEY_NOT_ON_CURVE",
		"public key encoding is not on the curve")

	ErrNoKeys = NewCoSiError(
		ErrorCategoryInvalidKey, ErrorSeverityMedium, "NO_KEYS",
		"at least one key is required")

	ErrPossessionProof = NewCoSiError(
		ErrorCategoryInvalidKey, ErrorSeverityHigh, "POSSESSION_PROOF_INVALID",
		"proof of possession does not verify")
)

// Format Errors
var (
	ErrBadMagic = NewCoSiError(
		ErrorCategoryFormat, ErrorSeverityHigh, "BAD_MAGIC",
		"magic tag mismatch")

	ErrBadHeaderLength = NewCoSiError(
		ErrorCategoryFormat, ErrorSeverityHigh, "BAD_HEADER_LENGTH",
		"header length mismatch")

	ErrBadCodeLength = NewCoSiError(
		ErrorCategoryFormat, ErrorSeverityHigh, "BAD_CODE_LENGTH",
		"code length does not match payload")

	ErrBlockAlignment = NewCoSiError(
		ErrorCategoryFormat, ErrorSeverityHigh, "BLOCK_ALIGNMENT",
		"image size is not a multiple of the block size")

	ErrImageTooSmall = NewCoSiError(
		ErrorCategoryFormat, ErrorSeverityHigh, "IMAGE_TOO_SMALL",
		"image is below the minimum size")

	ErrImageTooLarge = NewCoSiError(
		ErrorCategoryFormat, ErrorSeverityHigh, "IMAGE_TOO_LARGE",
		"image exceeds the platform maximum")

	ErrReservedNotZero = NewCoSiError(
		ErrorCategoryFormat, ErrorSeverityHigh, "RESERVED_NOT_ZERO",
		"reserved region is not zero-filled")

	ErrTruncated = NewCoSiError(
		ErrorCategoryFormat, ErrorSeverityHigh, "TRUNCATED",
		"data is shorter than the declared layout")

	ErrBadSignerCount = NewCoSiError(
		ErrorCategoryFormat, ErrorSeverityHigh, "BAD_SIGNER_COUNT",
		"signer count or threshold out of range")

	ErrLabelTooLong = NewCoSiError(
		ErrorCategoryFormat, ErrorSeverityHigh, "LABEL_TOO_LONG",
		"label exceeds 255 bytes")

	ErrMaskOutOfRange = NewCoSiError(
		ErrorCategoryFormat, ErrorSeverityHigh, "MASK_OUT_OF_RANGE",
		"signer mask selects an index outside the signer set")

	ErrMaskThresholdMismatch = NewCoSiError(
		ErrorCategoryFormat, ErrorSeverityHigh, "MASK_THRESHOLD_MISMATCH",
		"signer mask popcount does not equal the threshold")

	ErrVendorBindingMismatch = NewCoSiError(
		ErrorCategoryFormat, ErrorSeverityHigh, "VENDOR_BINDING_MISMATCH",
		"vendor header does not bind the following firmware header")
)

// Signature Errors
var (
	ErrSignatureMismatch = NewCoSiError(
		ErrorCategorySignature, ErrorSeverityHigh, "SIGNATURE_MISMATCH",
		"signature does not verify against the aggregate key")

	ErrPartialSignatureInvalid = NewCoSiError(
		ErrorCategorySignature, ErrorSeverityHigh, "PARTIAL_SIGNATURE_INVALID",
		"partial signature does not verify against the signer key")
)

// Protocol Sequence Errors
var (
	ErrSessionState = NewCoSiError(
		ErrorCategoryProtocolSequence, ErrorSeverityCritical, "SESSION_STATE",
		"operation not allowed in the current session state")

	ErrCommitmentDrift = NewCoSiError(
		ErrorCategoryProtocolSequence, ErrorSeverityCritical, "COMMITMENT_DRIFT",
		"recomputed commitment differs from the published one")

	ErrCommitmentMismatch = NewCoSiError(
		ErrorCategoryProtocolSequence, ErrorSeverityCritical, "COMMITMENT_MISMATCH",
		"aggregated commitment does not match the confirmed value")

	ErrAggregateKeyMismatch = NewCoSiError(
		ErrorCategoryProtocolSequence, ErrorSeverityCritical, "AGGREGATE_KEY_MISMATCH",
		"aggregate public key does not match the confirmed value")

	ErrMissingContribution = NewCoSiError(
		ErrorCategoryProtocolSequence, ErrorSeverityCritical, "MISSING_CONTRIBUTION",
		"a participating signer has not contributed")

	ErrMissingConfirmation = NewCoSiError(
		ErrorCategoryProtocolSequence, ErrorSeverityCritical, "MISSING_CONFIRMATION",
		"a participating signer has not confirmed the aggregates")

	ErrDuplicateContribution = NewCoSiError(
		ErrorCategoryProtocolSequence, ErrorSeverityCritical, "DUPLICATE_CONTRIBUTION",
		"signer contributed twice")

	ErrUnexpectedSigner = NewCoSiError(
		ErrorCategoryProtocolSequence, ErrorSeverityCritical, "UNEXPECTED_SIGNER",
		"signer is not selected by the session mask")
)

// Threshold Errors
var (
	ErrInvalidThreshold = NewCoSiError(
		ErrorCategoryThreshold, ErrorSeverityMedium, "INVALID_THRESHOLD",
		"threshold must satisfy 1 <= m <= n")

	ErrTooManySigners = NewCoSiError(
		ErrorCategoryThreshold, ErrorSeverityMedium, "TOO_MANY_SIGNERS",
		"signer count exceeds the mask width")

	ErrTooManyCombinations = NewCoSiError(
		ErrorCategoryThreshold, ErrorSeverityMedium, "TOO_MANY_COMBINATIONS",
		"number of combinations exceeds the enumeration limit")

	ErrIndexOutOfRange = NewCoSiError(
		ErrorCategoryThreshold, ErrorSeverityMedium, "INDEX_OUT_OF_RANGE",
		"combination index out of range")
)

// IsErrorCategory checks if an error belongs to a specific category
func IsErrorCategory(err error, category ErrorCategory) bool {
	var cosiErr *CoSiError
	if errors.As(err, &cosiErr) {
		return cosiErr.Category == category
	}
	return false
}

// ErrorCode returns the code of a CoSi error, or the empty string
func ErrorCode(err error) string {
	var cosiErr *CoSiError
	if errors.As(err, &cosiErr) {
		return cosiErr.Code
	}
	return ""
}
