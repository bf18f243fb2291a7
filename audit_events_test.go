package cosi

import (
	"encoding/json"
	"testing"
	"time"
)

// MockAuditHandler is a test implementation of AuditEventHandler
type MockAuditHandler struct {
	events        []*AuditEvent
	sessionEvents []*AuditEvent
	finalized     []*AuditEvent
	failures      []*AuditEvent
}

func NewMockAuditHandler() *MockAuditHandler {
	return &MockAuditHandler{
		events:        make([]*AuditEvent, 0),
		sessionEvents: make([]*AuditEvent, 0),
		finalized:     make([]*AuditEvent, 0),
		failures:      make([]*AuditEvent, 0),
	}
}

func (h *MockAuditHandler) OnSessionEvent(event *AuditEvent) {
	h.sessionEvents = append(h.sessionEvents, event)
	h.events = append(h.events, event)
}

func (h *MockAuditHandler) OnCeremonyFinalized(event *AuditEvent) {
	h.finalized = append(h.finalized, event)
	h.events = append(h.events, event)
}

func (h *MockAuditHandler) OnVerificationFailure(event *AuditEvent) {
	h.failures = append(h.failures, event)
	h.events = append(h.events, event)
}

func (h *MockAuditHandler) GetEventCount() int {
	return len(h.events)
}

func (h *MockAuditHandler) GetEventsByType(eventType AuditEventType) []*AuditEvent {
	var filtered []*AuditEvent
	for _, event := range h.events {
		if event.EventType == eventType {
			filtered = append(filtered, event)
		}
	}
	return filtered
}

func TestAuditEventBuilder(t *testing.T) {
	_, publics := testKeySet(t, 1)
	mask, _ := MaskFromIndices(0, 2)

	before := time.Now()
	event := NewAuditEventBuilder(AuditEventSessionSigned).
		WithSession("session-1", 7, []byte{0xde, 0xad}).
		WithSigner(publics[0]).
		WithMask(mask).
		WithMetadata("note", "value").
		Build()

	if event.EventType != AuditEventSessionSigned {
		t.Errorf("Expected event type %s, got %s", AuditEventSessionSigned, event.EventType)
	}
	if event.EventID == "" {
		t.Error("Expected an event ID")
	}
	if event.Timestamp.Before(before) {
		t.Error("Timestamp predates the builder")
	}
	if event.SessionID != "session-1" || event.Counter != 7 {
		t.Errorf("Unexpected session fields: %q %d", event.SessionID, event.Counter)
	}
	if event.SignerKey != publics[0].String() {
		t.Errorf("Expected signer key %s, got %s", publics[0], event.SignerKey)
	}
	if event.SignerMask != mask || event.SignerCount != 2 {
		t.Errorf("Expected mask %#02x with 2 signers, got %#02x with %d", uint8(mask), uint8(event.SignerMask), event.SignerCount)
	}
	if !event.Success {
		t.Error("Events default to success")
	}
	if event.Metadata["note"] != "value" {
		t.Error("Metadata not recorded")
	}

	other := NewAuditEventBuilder(AuditEventSessionSigned).Build()
	if other.EventID == event.EventID {
		t.Error("Event IDs must be unique")
	}
}

func TestAuditEventWithError(t *testing.T) {
	event := NewAuditEventBuilder(AuditEventVerificationFailure).
		WithError(ErrSignatureMismatch).
		Build()

	if event.Success {
		t.Error("Expected failed event")
	}
	if event.Error != ErrSignatureMismatch.Error() {
		t.Errorf("Expected error %q, got %q", ErrSignatureMismatch.Error(), event.Error)
	}
}

func TestAuditEventJSON(t *testing.T) {
	event := NewAuditEventBuilder(AuditEventCeremonyFinalized).
		WithSession("ceremony", 0, []byte{1, 2, 3}).
		WithMask(0x05).
		Build()

	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("Failed to marshal event: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal event: %v", err)
	}
	if decoded["event_type"] != string(AuditEventCeremonyFinalized) {
		t.Errorf("Unexpected event_type %v", decoded["event_type"])
	}
	if decoded["signer_mask"] != float64(5) {
		t.Errorf("Unexpected signer_mask %v", decoded["signer_mask"])
	}
	if _, ok := decoded["signer_key"]; ok {
		t.Error("Empty signer_key should be omitted")
	}
}

func TestSessionAuditTrail(t *testing.T) {
	secrets, publics := testKeySet(t, 2)
	handler := NewMockAuditHandler()
	digest := []byte("audited digest")

	session, err := NewSigningSession(&secrets[0], digest, 3, WithAuditHandler(handler), WithSessionID("fixed-id"))
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	commitment, err := session.Commit()
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if _, err := session.Sign(commitment, publics[0]); err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if _, err := session.Sign(commitment, publics[0]); err == nil {
		t.Fatal("Expected second sign to fail")
	}

	if handler.GetEventCount() != 3 {
		t.Fatalf("Expected 3 events, got %d", handler.GetEventCount())
	}
	if len(handler.GetEventsByType(AuditEventSessionCommitted)) != 1 ||
		len(handler.GetEventsByType(AuditEventSessionSigned)) != 1 ||
		len(handler.GetEventsByType(AuditEventSessionAborted)) != 1 {
		t.Fatal("Expected one committed, one signed and one aborted event")
	}

	for _, event := range handler.sessionEvents {
		if event.SessionID != "fixed-id" {
			t.Errorf("Expected session ID fixed-id, got %s", event.SessionID)
		}
		if event.Counter != 3 {
			t.Errorf("Expected counter 3, got %d", event.Counter)
		}
		if event.SignerKey != publics[0].String() {
			t.Error("Event does not name the signer")
		}
	}

	aborted := handler.GetEventsByType(AuditEventSessionAborted)[0]
	if aborted.Success || aborted.Error == "" {
		t.Error("Aborted event must carry the error")
	}
}

func TestCeremonyAuditOnFailure(t *testing.T) {
	secrets, publics := testKeySet(t, 3)
	set, _ := NewSignerSet(publics, 2)
	digest := []byte("digest")
	mask, _ := MaskFromIndices(0, 1)
	handler := NewMockAuditHandler()

	ceremony, err := NewCeremony(set, mask, digest, WithCeremonyAudit(handler))
	if err != nil {
		t.Fatalf("Failed to create ceremony: %v", err)
	}
	for _, i := range mask.Indices() {
		session, _ := NewSigningSession(&secrets[i], digest, 0)
		commitment, _ := session.Commit()
		if err := ceremony.AddCommitment(i, commitment); err != nil {
			t.Fatalf("AddCommitment failed: %v", err)
		}
	}
	combined, _ := ceremony.AggregateCommitment()
	if err := ceremony.Confirm(0, combined, publics[2]); err == nil {
		t.Fatal("Expected aggregate key mismatch")
	}

	if len(handler.failures) != 0 {
		t.Fatalf("A protocol abort is not a verification failure, got %d failure events", len(handler.failures))
	}
	aborted := handler.GetEventsByType(AuditEventCeremonyAborted)
	if len(aborted) != 1 || len(handler.sessionEvents) != 1 {
		t.Fatalf("Expected 1 ceremony aborted event, got %d of %d session events", len(aborted), len(handler.sessionEvents))
	}
	if aborted[0].Success || aborted[0].Error == "" {
		t.Error("Aborted event must carry the error")
	}
	if aborted[0].SessionID != ceremony.ID() || aborted[0].SignerMask != mask {
		t.Error("Aborted event does not identify the ceremony")
	}
	if len(handler.finalized) != 0 {
		t.Error("A failed ceremony must not report finalization")
	}
}

func TestNullAuditHandler(t *testing.T) {
	var handler AuditEventHandler = &NullAuditHandler{}
	event := NewAuditEventBuilder(AuditEventSessionCommitted).Build()

	handler.OnSessionEvent(event)
	handler.OnCeremonyFinalized(event)
	handler.OnVerificationFailure(event)

	if auditOrNull(nil) == nil {
		t.Error("auditOrNull must never return nil")
	}
}
