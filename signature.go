package cosi

import (
    "encoding/hex"
)

// Signature is the 64-byte encoding R || S, identical in format to a plain
// Ed25519 signature.
type Signature [SignatureSize]byte

// SignatureFromBytes copies a 64-byte signature
func SignatureFromBytes(data []byte) (Signature, error) {
    var sig Signature
    if len(data) != SignatureSize {
        return sig, ErrInvalidSignatureLength.WithContext("length", len(data))
    }
    copy(sig[:], data)
    return sig, nil
}

// SignatureFromHex decodes a hex encoded signature
func SignatureFromHex(s string) (Signature, error) {
    data, err := hex.DecodeString(s)
    if err != nil {
        return Signature{}, ErrInvalidHex.WithCause(err)
    }
    return SignatureFromBytes(data)
}

// R returns the commitment half
func (sig Signature) R() []byte {
    return append([]byte(nil), sig[:PointSize]...)
}

// S returns the scalar half
func (sig Signature) S() []byte {
    return append([]byte(nil), sig[PointSize:]...)
}

// IsZero reports whether the signature field is unset
func (sig Signature) IsZero() bool {
    return sig == Signature{}
}

func (sig Signature) String() string {
    return hex.EncodeToString(sig[:])
}

// CombineSignatures sums partial signatures modulo L and prepends the
// combined commitment: R || encode(sum s_i).
func CombineSignatures(R Point, partials []Scalar) (Signature, error) {
    if R == nil {
        return Signature{}, ErrInvalidPoint.WithDetails("combined commitment is nil")
    }
    if len(partials) == 0 {
        return Signature{}, ErrMissingContribution.WithDetails("no partial signatures")
    }

    s := sharedCurve.ScalarZero()
    for i, partial := range partials {
        if partial == nil {
            return Signature{}, ErrMissingContribution.WithContext("index", i)
        }
        s = s.Add(partial)
    }

    var sig Signature
    copy(sig[:PointSize], R.Bytes())
    copy(sig[PointSize:], s.Bytes())
    return sig, nil
}

// CombineSignatureBytes is CombineSignatures over encoded inputs
func CombineSignatureBytes(commitment []byte, partials [][]byte) (Signature, error) {
    R, err := sharedCurve.PointFromBytes(commitment)
    if err != nil {
        return Signature{}, err
    }
    scalars := make([]Scalar, len(partials))
    for i, p := range partials {
        s, err := sharedCurve.ScalarFromBytes(p)
        if err != nil {
            return Signature{}, err
        }
        scalars[i] = s
    }
    return CombineSignatures(R, scalars)
}

// Verify checks sig over digest under pub with the Ed25519 equation
// S*B == R + H(R || A || digest)*A. The verifier needs no knowledge of how
// many parties contributed to pub or sig.
func Verify(pub PublicKey, digest []byte, sig Signature) error {
    A, err := pub.Point()
    if err != nil {
        return err
    }

    R, err := sharedCurve.PointFromBytes(sig[:PointSize])
    if err != nil {
        return err
    }

    S, err := sharedCurve.ScalarFromBytes(sig[PointSize:])
    if err != nil {
        return err
    }

    challenge, err := ChallengeHash(R, A, digest)
    if err != nil {
        return ErrSignatureMismatch.WithCause(err)
    }

    leftSide := sharedCurve.BasePoint().Mul(S)
    rightSide := R.Add(A.Mul(challenge))
    if !leftSide.Equal(rightSide) {
        return ErrSignatureMismatch.WithContext("public_key", pub.String())
    }
    return nil
}

// VerifyWithSignerSet resolves the aggregate key selected by mask and checks
// sig against it
func VerifyWithSignerSet(set *SignerSet, mask Mask, digest []byte, sig Signature) error {
    key, err := set.AggregateKey(mask)
    if err != nil {
        return err
    }
    return Verify(key, digest, sig)
}
