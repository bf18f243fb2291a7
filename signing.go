package cosi

import (
    "fmt"

    "github.com/google/uuid"
)

// SessionState tracks a signer's progress through one signing session
type SessionState int

const (
    SessionIdle SessionState = iota
    SessionCommitted
    SessionSigned
    SessionAborted
)

func (s SessionState) String() string {
    switch s {
    case SessionIdle:
        return "idle"
    case SessionCommitted:
        return "committed"
    case SessionSigned:
        return "signed"
    case SessionAborted:
        return "aborted"
    default:
        return fmt.Sprintf("SessionState(%d)", int(s))
    }
}

// SessionOption configures a SigningSession
type SessionOption func(*SigningSession)

// WithAuditHandler routes session events to h
func WithAuditHandler(h AuditEventHandler) SessionOption {
    return func(ss *SigningSession) {
        ss.audit = auditOrNull(h)
    }
}

// WithSessionID overrides the generated session ID, e.g. to correlate the
// sessions of all signers in one ceremony.
func WithSessionID(id string) SessionOption {
    return func(ss *SigningSession) {
        ss.id = id
    }
}

// SigningSession runs one signer's side of the two-round protocol for a
// single digest and counter: Idle -> Committed -> Signed. There is no
// rollback; a protocol sequence failure moves the session to Aborted, and a
// stalled or failed session is replaced by a new one with a counter never
// used before with this key.
type SigningSession struct {
    id      string
    secret  *expandedKey
    public  PublicKey
    digest  []byte
    counter uint32
    audit   AuditEventHandler

    state      SessionState
    nonce      Scalar
    commitment Point
}

// NewSigningSession prepares a session. The secret key is expanded
// immediately; the caller may zeroize its copy afterwards.
func NewSigningSession(sk *SecretKey, digest []byte, counter uint32, opts ...SessionOption) (*SigningSession, error) {
    if sk == nil {
        return nil, ErrInvalidKey.WithDetails("secret key is nil")
    }
    if len(digest) == 0 {
        return nil, ErrDecoding.WithDetails("digest is empty")
    }

    ek, err := sk.expand()
    if err != nil {
        return nil, err
    }

    ss := &SigningSession{
        id:      uuid.NewString(),
        secret:  ek,
        public:  publicKeyFromPoint(sharedCurve.BasePoint().Mul(ek.scalar)),
        digest:  append([]byte(nil), digest...),
        counter: counter,
        audit:   &NullAuditHandler{},
        state:   SessionIdle,
    }
    for _, opt := range opts {
        opt(ss)
    }
    return ss, nil
}

// ID returns the session identifier used in audit events
func (ss *SigningSession) ID() string { return ss.id }

// State returns the current session state
func (ss *SigningSession) State() SessionState { return ss.state }

// PublicKey returns the signer's public key
func (ss *SigningSession) PublicKey() PublicKey { return ss.public }

// Counter returns the session counter
func (ss *SigningSession) Counter() uint32 { return ss.counter }

// Commit runs round one and publishes R_i = r_i*B. The nonce r_i stays in
// the session.
func (ss *SigningSession) Commit() ([]byte, error) {
    if ss.state != SessionIdle {
        return nil, ss.abort(ErrSessionState.WithDetails("commit in state %s", ss.state))
    }

    nonce, commitment, err := deriveNonce(ss.secret, ss.digest, ss.counter)
    if err != nil {
        return nil, ss.abort(err)
    }

    ss.nonce = nonce
    ss.commitment = commitment
    ss.state = SessionCommitted

    ss.audit.OnSessionEvent(ss.event(AuditEventSessionCommitted).
        WithMetadata("commitment", commitment.String()).Build())

    return commitment.Bytes(), nil
}

// Sign runs round two against the combined commitment R and the aggregate
// public key A that this signer has confirmed. It returns
// s_i = r_i + H(R || A || digest)*a_i mod L.
func (ss *SigningSession) Sign(combinedCommitment []byte, aggregateKey PublicKey) ([]byte, error) {
    if ss.state != SessionCommitted {
        return nil, ss.abort(ErrSessionState.WithDetails("sign in state %s", ss.state))
    }

    R, err := sharedCurve.PointFromBytes(combinedCommitment)
    if err != nil {
        return nil, ss.abort(err)
    }
    if R.IsIdentity() {
        return nil, ss.abort(ErrIdentityPoint.WithDetails("combined commitment"))
    }
    A, err := aggregateKey.Point()
    if err != nil {
        return nil, ss.abort(err)
    }

    // the published commitment must still be the one derived from the key
    nonce, commitment, err := deriveNonce(ss.secret, ss.digest, ss.counter)
    if err != nil {
        return nil, ss.abort(err)
    }
    if !commitment.Equal(ss.commitment) {
        nonce.Zeroize()
        return nil, ss.abort(ErrCommitmentDrift)
    }

    challenge, err := ChallengeHash(R, A, ss.digest)
    if err != nil {
        nonce.Zeroize()
        return nil, ss.abort(err)
    }

    partial := nonce.Add(challenge.Mul(ss.secret.scalar))
    nonce.Zeroize()

    ss.finish()
    ss.state = SessionSigned

    ss.audit.OnSessionEvent(ss.event(AuditEventSessionSigned).
        WithMetadata("combined_commitment", R.String()).
        WithMetadata("aggregate_key", aggregateKey.String()).Build())

    return partial.Bytes(), nil
}

// SignContributions runs round two after independently recomputing the
// combined commitment and aggregate key from every participant's
// commitment and public key. It refuses to sign if this signer's own
// commitment or key is not part of the aggregates.
func (ss *SigningSession) SignContributions(commitments [][]byte, keys []PublicKey) ([]byte, error) {
    if ss.state != SessionCommitted {
        return nil, ss.abort(ErrSessionState.WithDetails("sign in state %s", ss.state))
    }
    if len(commitments) != len(keys) {
        return nil, ss.abort(ErrMissingContribution.WithDetails("%d commitments, %d keys", len(commitments), len(keys)))
    }

    ownCommitment := ss.commitment.Bytes()
    foundCommitment, foundKey := false, false
    for i := range commitments {
        if SecureCompare(commitments[i], ownCommitment) {
            foundCommitment = true
        }
        if keys[i] == ss.public {
            foundKey = true
        }
    }
    if !foundCommitment {
        return nil, ss.abort(ErrCommitmentMismatch.WithDetails("own commitment not included"))
    }
    if !foundKey {
        return nil, ss.abort(ErrAggregateKeyMismatch.WithDetails("own public key not included"))
    }

    R, err := CombineCommitments(commitments)
    if err != nil {
        return nil, ss.abort(err)
    }
    A, err := CombineKeys(keys)
    if err != nil {
        return nil, ss.abort(err)
    }
    return ss.Sign(R.Bytes(), A)
}

// finish clears the nonce and secret once the session is terminal
func (ss *SigningSession) finish() {
    if ss.nonce != nil {
        ss.nonce.Zeroize()
        ss.nonce = nil
    }
    if ss.secret != nil {
        ss.secret.Zeroize()
    }
}

// abort reports err to the audit handler and returns it unchanged. A
// protocol sequence failure is fatal for the session.
func (ss *SigningSession) abort(err error) error {
    if IsErrorCategory(err, ErrorCategoryProtocolSequence) && ss.state != SessionSigned {
        ss.finish()
        ss.state = SessionAborted
    }
    ss.audit.OnSessionEvent(ss.event(AuditEventSessionAborted).WithError(err).Build())
    return err
}

func (ss *SigningSession) event(eventType AuditEventType) *AuditEventBuilder {
    return NewAuditEventBuilder(eventType).
        WithSession(ss.id, ss.counter, ss.digest).
        WithSigner(ss.public)
}

// SignSingle produces a plain one-signer signature with the deterministic
// nonce for counter. The result verifies with crypto/ed25519.
func SignSingle(sk *SecretKey, digest []byte, counter uint32) (Signature, error) {
    ss, err := NewSigningSession(sk, digest, counter)
    if err != nil {
        return Signature{}, err
    }
    commitment, err := ss.Commit()
    if err != nil {
        return Signature{}, err
    }
    partial, err := ss.Sign(commitment, ss.PublicKey())
    if err != nil {
        return Signature{}, err
    }
    return CombineSignatureBytes(commitment, [][]byte{partial})
}
