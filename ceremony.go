package cosi

import (
    "context"
    "fmt"

    "github.com/google/uuid"
    "golang.org/x/sync/errgroup"
)

// Ceremony is the coordinator's view of one m-of-n signing session. It
// collects commitments, publishes the combined commitment, records each
// signer's independent confirmation of the aggregates, checks partial
// signatures and assembles the final signature.
//
// Finalize refuses to produce a signature unless every selected signer
// confirmed exactly the combined commitment and aggregate key the ceremony
// computed. A mismatch is fatal; recovery is a new ceremony with fresh
// counters.
type Ceremony struct {
    id           string
    set          *SignerSet
    mask         Mask
    digest       []byte
    aggregateKey PublicKey
    audit        AuditEventHandler

    commitments   map[int]Point
    combined      Point
    confirmations map[int]bool
    partials      map[int]Scalar
    failed        error
    signature     *Signature
}

// CeremonyOption configures a Ceremony
type CeremonyOption func(*Ceremony)

// WithCeremonyAudit routes ceremony events to h
func WithCeremonyAudit(h AuditEventHandler) CeremonyOption {
    return func(c *Ceremony) {
        c.audit = auditOrNull(h)
    }
}

// NewCeremony starts a ceremony for the signers selected by mask
func NewCeremony(set *SignerSet, mask Mask, digest []byte, opts ...CeremonyOption) (*Ceremony, error) {
    if set == nil {
        return nil, ErrNoKeys
    }
    if len(digest) == 0 {
        return nil, ErrDecoding.WithDetails("digest is empty")
    }
    aggregateKey, err := set.AggregateKey(mask)
    if err != nil {
        return nil, err
    }

    c := &Ceremony{
        id:            uuid.NewString(),
        set:           set,
        mask:          mask,
        digest:        append([]byte(nil), digest...),
        aggregateKey:  aggregateKey,
        audit:         &NullAuditHandler{},
        commitments:   make(map[int]Point),
        confirmations: make(map[int]bool),
        partials:      make(map[int]Scalar),
    }
    for _, opt := range opts {
        opt(c)
    }
    return c, nil
}

// ID returns the ceremony identifier
func (c *Ceremony) ID() string { return c.id }

// Mask returns the participating signer subset
func (c *Ceremony) Mask() Mask { return c.mask }

// AggregateKey returns the aggregate public key of the participating signers
func (c *Ceremony) AggregateKey() PublicKey { return c.aggregateKey }

// Digest returns a copy of the digest being signed
func (c *Ceremony) Digest() []byte { return append([]byte(nil), c.digest...) }

func (c *Ceremony) checkSigner(index int) error {
    if c.failed != nil {
        return ErrSessionState.WithCause(c.failed).WithDetails("ceremony failed")
    }
    if c.signature != nil {
        return ErrSessionState.WithDetails("ceremony already finalized")
    }
    if !c.mask.Has(index) {
        return ErrUnexpectedSigner.WithContext("index", index)
    }
    return nil
}

// fail marks the ceremony as unusable
func (c *Ceremony) fail(err error) error {
    if c.failed == nil {
        c.failed = err
    }
    c.audit.OnSessionEvent(c.event(AuditEventCeremonyAborted).WithError(err).Build())
    return err
}

// AddCommitment records signer index's round-one commitment
func (c *Ceremony) AddCommitment(index int, commitment []byte) error {
    if err := c.checkSigner(index); err != nil {
        return err
    }
    if c.combined != nil {
        return ErrSessionState.WithDetails("combined commitment already published")
    }
    if _, dup := c.commitments[index]; dup {
        return c.fail(ErrDuplicateContribution.WithContext("index", index))
    }

    R, err := sharedCurve.PointFromBytes(commitment)
    if err != nil {
        return err
    }
    if R.IsIdentity() {
        return ErrIdentityPoint.WithContext("index", index)
    }
    c.commitments[index] = R
    return nil
}

// AggregateCommitment publishes R = sum R_i once every selected signer has
// committed. No commitments are accepted afterwards.
func (c *Ceremony) AggregateCommitment() ([]byte, error) {
    if c.combined != nil {
        return c.combined.Bytes(), nil
    }
    points := make([]Point, 0, c.mask.Count())
    for _, i := range c.mask.Indices() {
        R, ok := c.commitments[i]
        if !ok {
            return nil, ErrMissingContribution.WithDetails("no commitment from signer %d", i)
        }
        points = append(points, R)
    }

    combined, err := Combine(points)
    if err != nil {
        return nil, err
    }
    c.combined = combined
    return combined.Bytes(), nil
}

// Contributions returns the commitments and public keys of the selected
// signers in index order, for signers that recompute the aggregates
// themselves.
func (c *Ceremony) Contributions() ([][]byte, []PublicKey, error) {
    if _, err := c.AggregateCommitment(); err != nil {
        return nil, nil, err
    }
    commitments := make([][]byte, 0, c.mask.Count())
    keys := make([]PublicKey, 0, c.mask.Count())
    for _, i := range c.mask.Indices() {
        key, _ := c.set.Key(i)
        commitments = append(commitments, c.commitments[i].Bytes())
        keys = append(keys, key)
    }
    return commitments, keys, nil
}

// Confirm records that signer index computed the same combined commitment
// and aggregate key. Any difference aborts the ceremony.
func (c *Ceremony) Confirm(index int, combinedCommitment []byte, aggregateKey PublicKey) error {
    if err := c.checkSigner(index); err != nil {
        return err
    }
    if c.combined == nil {
        return ErrSessionState.WithDetails("combined commitment not published")
    }
    if c.confirmations[index] {
        return c.fail(ErrDuplicateContribution.WithDetails("signer %d confirmed twice", index))
    }
    if !SecureCompare(combinedCommitment, c.combined.Bytes()) {
        return c.fail(ErrCommitmentMismatch.WithContext("index", index))
    }
    if aggregateKey != c.aggregateKey {
        return c.fail(ErrAggregateKeyMismatch.WithContext("index", index))
    }
    c.confirmations[index] = true
    return nil
}

// AddPartial records signer index's partial signature after checking
// s_i*B == R_i + e*A_i.
func (c *Ceremony) AddPartial(index int, partial []byte) error {
    if err := c.checkSigner(index); err != nil {
        return err
    }
    if !c.confirmations[index] {
        return c.fail(ErrMissingConfirmation.WithContext("index", index))
    }
    if _, dup := c.partials[index]; dup {
        return c.fail(ErrDuplicateContribution.WithDetails("signer %d sent two partial signatures", index))
    }

    s, err := sharedCurve.ScalarFromBytes(partial)
    if err != nil {
        return err
    }

    key, _ := c.set.Key(index)
    A, err := key.Point()
    if err != nil {
        return err
    }
    aggregate, err := c.aggregateKey.Point()
    if err != nil {
        return err
    }
    challenge, err := ChallengeHash(c.combined, aggregate, c.digest)
    if err != nil {
        return err
    }

    leftSide := sharedCurve.BasePoint().Mul(s)
    rightSide := c.commitments[index].Add(A.Mul(challenge))
    if !leftSide.Equal(rightSide) {
        return c.fail(ErrPartialSignatureInvalid.WithContext("index", index))
    }

    c.partials[index] = s
    return nil
}

// Finalize combines the partial signatures and verifies the result under
// the aggregate key
func (c *Ceremony) Finalize() (Signature, error) {
    if c.signature != nil {
        return *c.signature, nil
    }
    if c.failed != nil {
        return Signature{}, ErrSessionState.WithCause(c.failed).WithDetails("ceremony failed")
    }
    if c.combined == nil {
        return Signature{}, ErrSessionState.WithDetails("combined commitment not published")
    }

    partials := make([]Scalar, 0, c.mask.Count())
    for _, i := range c.mask.Indices() {
        if !c.confirmations[i] {
            return Signature{}, c.fail(ErrMissingConfirmation.WithContext("index", i))
        }
        s, ok := c.partials[i]
        if !ok {
            return Signature{}, ErrMissingContribution.WithDetails("no partial signature from signer %d", i)
        }
        partials = append(partials, s)
    }

    sig, err := CombineSignatures(c.combined, partials)
    if err != nil {
        return Signature{}, err
    }
    if err := Verify(c.aggregateKey, c.digest, sig); err != nil {
        return Signature{}, c.fail(err)
    }

    c.signature = &sig
    c.audit.OnCeremonyFinalized(c.event(AuditEventCeremonyFinalized).
        WithMetadata("aggregate_key", c.aggregateKey.String()).
        WithMetadata("signature", sig.String()).Build())
    return sig, nil
}

func (c *Ceremony) event(eventType AuditEventType) *AuditEventBuilder {
    return NewAuditEventBuilder(eventType).
        WithSession(c.id, 0, c.digest).
        WithMask(c.mask)
}

// Confirmation is a signer's round-two output: the aggregates it computed
// on its own and its partial signature over them
type Confirmation struct {
    CombinedCommitment []byte
    AggregateKey       PublicKey
    Partial            []byte
}

// Participant is one signer as seen by RunCeremony. Implementations may sit
// behind any transport; each call blocks until the signer answers.
type Participant interface {
    Index() int
    Commit(ctx context.Context) ([]byte, error)
    Sign(ctx context.Context, commitments [][]byte, keys []PublicKey) (*Confirmation, error)
}

// LocalParticipant drives an in-process SigningSession
type LocalParticipant struct {
    index   int
    session *SigningSession
}

// NewLocalParticipant wraps session as signer index
func NewLocalParticipant(index int, session *SigningSession) *LocalParticipant {
    return &LocalParticipant{index: index, session: session}
}

func (p *LocalParticipant) Index() int { return p.index }

func (p *LocalParticipant) Commit(ctx context.Context) ([]byte, error) {
    if err := ctx.Err(); err != nil {
        return nil, err
    }
    return p.session.Commit()
}

func (p *LocalParticipant) Sign(ctx context.Context, commitments [][]byte, keys []PublicKey) (*Confirmation, error) {
    if err := ctx.Err(); err != nil {
        return nil, err
    }
    R, err := CombineCommitments(commitments)
    if err != nil {
        return nil, err
    }
    A, err := CombineKeys(keys)
    if err != nil {
        return nil, err
    }
    partial, err := p.session.SignContributions(commitments, keys)
    if err != nil {
        return nil, err
    }
    return &Confirmation{CombinedCommitment: R.Bytes(), AggregateKey: A, Partial: partial}, nil
}

// RunCeremony runs both rounds across participants concurrently. Round two
// starts only after every commitment is in, and the signature is assembled
// only after every participant confirmed and signed.
func RunCeremony(ctx context.Context, c *Ceremony, participants []Participant) (Signature, error) {
    var covered Mask
    for _, p := range participants {
        if !c.mask.Has(p.Index()) {
            return Signature{}, ErrUnexpectedSigner.WithContext("index", p.Index())
        }
        if covered.Has(p.Index()) {
            return Signature{}, ErrDuplicateContribution.WithContext("index", p.Index())
        }
        covered |= 1 << uint(p.Index())
    }
    if covered != c.mask {
        return Signature{}, ErrMissingContribution.WithDetails("participants %#02x, mask %#02x", uint8(covered), uint8(c.mask))
    }

    // Round 1
    commitments := make([][]byte, len(participants))
    g, gctx := errgroup.WithContext(ctx)
    for i, p := range participants {
        i, p := i, p
        g.Go(func() error {
            commitment, err := p.Commit(gctx)
            if err != nil {
                return fmt.Errorf("signer %d commit: %w", p.Index(), err)
            }
            commitments[i] = commitment
            return nil
        })
    }
    if err := g.Wait(); err != nil {
        return Signature{}, err
    }
    for i, p := range participants {
        if err := c.AddCommitment(p.Index(), commitments[i]); err != nil {
            return Signature{}, err
        }
    }

    ordered, keys, err := c.Contributions()
    if err != nil {
        return Signature{}, err
    }
    if err := ctx.Err(); err != nil {
        return Signature{}, err
    }

    // Round 2
    confirmations := make([]*Confirmation, len(participants))
    g, gctx = errgroup.WithContext(ctx)
    for i, p := range participants {
        i, p := i, p
        g.Go(func() error {
            confirmation, err := p.Sign(gctx, ordered, keys)
            if err != nil {
                return fmt.Errorf("signer %d sign: %w", p.Index(), err)
            }
            confirmations[i] = confirmation
            return nil
        })
    }
    if err := g.Wait(); err != nil {
        return Signature{}, err
    }
    for i, p := range participants {
        conf := confirmations[i]
        if err := c.Confirm(p.Index(), conf.CombinedCommitment, conf.AggregateKey); err != nil {
            return Signature{}, err
        }
        if err := c.AddPartial(p.Index(), conf.Partial); err != nil {
            return Signature{}, err
        }
    }

    return c.Finalize()
}
