package cosi

import (
    "crypto/sha512"
    "fmt"
)

const possessionDomain = "COSI_POSSESSION_PROOF_Ed25519"

// PossessionProof is a Schnorr proof of knowledge of the secret scalar
// behind a public key. Requiring one per key at signer set construction
// rules out rogue-key attacks on plain key summation.
type PossessionProof struct {
    Commitment []byte
    Response   []byte
}

// PossessionProofSize is the encoded size: commitment || response
const PossessionProofSize = PointSize + ScalarSize

// PossessionProofFromBytes decodes commitment || response
func PossessionProofFromBytes(data []byte) (*PossessionProof, error) {
    if len(data) != PossessionProofSize {
        return nil, ErrDecoding.WithDetails("possession proof is %d bytes, expected %d", len(data), PossessionProofSize)
    }
    return &PossessionProof{
        Commitment: append([]byte(nil), data[:PointSize]...),
        Response:   append([]byte(nil), data[PointSize:]...),
    }, nil
}

// Bytes encodes the proof as commitment || response
func (p *PossessionProof) Bytes() []byte {
    out := make([]byte, 0, PossessionProofSize)
    out = append(out, p.Commitment...)
    return append(out, p.Response...)
}

// ProvePossession proves knowledge of sk's secret scalar
func ProvePossession(sk *SecretKey) (*PossessionProof, error) {
    ek, err := sk.expand()
    if err != nil {
        return nil, err
    }
    defer ek.Zeroize()

    nonce, err := sharedCurve.ScalarRandom()
    if err != nil {
        return nil, fmt.Errorf("failed to generate nonce: %w", err)
    }
    defer nonce.Zeroize()

    public := sharedCurve.BasePoint().Mul(ek.scalar)
    commitment := sharedCurve.BasePoint().Mul(nonce)

    challenge, err := possessionChallenge(public, commitment)
    if err != nil {
        return nil, err
    }

    // s = k + c*a
    response := nonce.Add(challenge.Mul(ek.scalar))

    return &PossessionProof{
        Commitment: commitment.Bytes(),
        Response:   response.Bytes(),
    }, nil
}

// VerifyPossession checks proof against pk: s*B == R + c*A
func VerifyPossession(pk PublicKey, proof *PossessionProof) error {
    if proof == nil {
        return ErrPossessionProof.WithDetails("proof is nil")
    }

    A, err := pk.Point()
    if err != nil {
        return err
    }
    R, err := sharedCurve.PointFromBytes(proof.Commitment)
    if err != nil {
        return err
    }
    s, err := sharedCurve.ScalarFromBytes(proof.Response)
    if err != nil {
        return err
    }

    challenge, err := possessionChallenge(A, R)
    if err != nil {
        return err
    }

    if !sharedCurve.BasePoint().Mul(s).Equal(R.Add(A.Mul(challenge))) {
        return ErrPossessionProof.WithContext("public_key", pk.String())
    }
    return nil
}

func possessionChallenge(public, commitment Point) (Scalar, error) {
    hasher := sha512.New()
    hasher.Write([]byte(possessionDomain))
    hasher.Write(public.Bytes())
    hasher.Write(commitment.Bytes())

    challenge, err := sharedCurve.ScalarFromUniformBytes(hasher.Sum(nil))
    if err != nil {
        return nil, fmt.Errorf("failed to convert challenge bytes to scalar: %w", err)
    }
    return challenge, nil
}
