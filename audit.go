package cosi

import (
	"time"

	"github.com/google/uuid"
)

// AuditEventType represents the type of audit event
type AuditEventType string

const (
	// Signing session events
	AuditEventSessionCommitted AuditEventType = "session_committed"
	AuditEventSessionSigned    AuditEventType = "session_signed"
	AuditEventSessionAborted   AuditEventType = "session_aborted"

	// Ceremony events
	AuditEventCeremonyFinalized AuditEventType = "ceremony_finalized"
	AuditEventCeremonyAborted   AuditEventType = "ceremony_aborted"

	// Verification events
	AuditEventVerificationFailure AuditEventType = "verification_failure"
)

// AuditEvent represents a single audit event
type AuditEvent struct {
	EventID   string         `json:"event_id"`
	Timestamp time.Time      `json:"timestamp"`
	EventType AuditEventType `json:"event_type"`

	// Session information
	SessionID string `json:"session_id,omitempty"`
	Counter   uint32 `json:"counter"`
	Digest    []byte `json:"digest,omitempty"`

	// Signer information
	SignerKey   string `json:"signer_key,omitempty"`
	SignerMask  Mask   `json:"signer_mask,omitempty"`
	SignerCount int    `json:"signer_count,omitempty"`

	// Success/failure information
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`

	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// AuditEventHandler receives audit events. The library never logs on its
// own; applications route these events to their logger.
type AuditEventHandler interface {
	// OnSessionEvent is called on signing session state transitions and aborts
	OnSessionEvent(event *AuditEvent)

	// OnCeremonyFinalized is called when a ceremony produces a signature
	OnCeremonyFinalized(event *AuditEvent)

	// OnVerificationFailure is called when an image or signature is rejected
	OnVerificationFailure(event *AuditEvent)
}

// NullAuditHandler is a no-op implementation of AuditEventHandler
type NullAuditHandler struct{}

func (n *NullAuditHandler) OnSessionEvent(event *AuditEvent)        {}
func (n *NullAuditHandler) OnCeremonyFinalized(event *AuditEvent)   {}
func (n *NullAuditHandler) OnVerificationFailure(event *AuditEvent) {}

// AuditEventBuilder helps construct audit events with proper defaults
type AuditEventBuilder struct {
	event *AuditEvent
}

// NewAuditEventBuilder creates a new audit event builder
func NewAuditEventBuilder(eventType AuditEventType) *AuditEventBuilder {
	return &AuditEventBuilder{
		event: &AuditEvent{
			EventID:   uuid.NewString(),
			Timestamp: time.Now(),
			EventType: eventType,
			Success:   true,
			Metadata:  make(map[string]interface{}),
		},
	}
}

// WithSession sets the session identity for the event
func (b *AuditEventBuilder) WithSession(sessionID string, counter uint32, digest []byte) *AuditEventBuilder {
	b.event.SessionID = sessionID
	b.event.Counter = counter
	b.event.Digest = append([]byte(nil), digest...)
	return b
}

// WithSigner sets the signer public key
func (b *AuditEventBuilder) WithSigner(key PublicKey) *AuditEventBuilder {
	b.event.SignerKey = key.String()
	return b
}

// WithMask sets the signer subset
func (b *AuditEventBuilder) WithMask(mask Mask) *AuditEventBuilder {
	b.event.SignerMask = mask
	b.event.SignerCount = mask.Count()
	return b
}

// WithError marks the event as failed and sets error information
func (b *AuditEventBuilder) WithError(err error) *AuditEventBuilder {
	b.event.Success = false
	if err != nil {
		b.event.Error = err.Error()
	}
	return b
}

// WithMetadata adds metadata to the event
func (b *AuditEventBuilder) WithMetadata(key string, value interface{}) *AuditEventBuilder {
	b.event.Metadata[key] = value
	return b
}

// Build returns the constructed audit event
func (b *AuditEventBuilder) Build() *AuditEvent {
	return b.event
}

// auditOrNull returns h, or a NullAuditHandler when h is nil
func auditOrNull(h AuditEventHandler) AuditEventHandler {
	if h == nil {
		return &NullAuditHandler{}
	}
	return h
}
