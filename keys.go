package cosi

import (
    "crypto/rand"
    "crypto/sha512"
    "encoding/hex"
    "io"
)

// SecretKeySize is the size of a signer seed
const SecretKeySize = 32

// SecretKey is a signer's 32-byte seed. It never leaves the signer.
type SecretKey [SecretKeySize]byte

// PublicKey is the 32-byte encoding of a signer's public point
type PublicKey [PointSize]byte

// expandedKey holds the values derived from a seed: the clamped private
// scalar a and the 32-byte nonce prefix.
type expandedKey struct {
    scalar Scalar
    prefix [32]byte
}

func (ek *expandedKey) Zeroize() {
    ek.scalar.Zeroize()
    ZeroizeBytes(ek.prefix[:])
}

// GenerateKey creates a fresh key pair. If rand is nil, crypto/rand.Reader is used.
func GenerateKey(random io.Reader) (SecretKey, PublicKey, error) {
    if random == nil {
        random = rand.Reader
    }

    var sk SecretKey
    if _, err := io.ReadFull(random, sk[:]); err != nil {
        return SecretKey{}, PublicKey{}, err
    }

    pk, err := sk.PublicKey()
    if err != nil {
        return SecretKey{}, PublicKey{}, err
    }
    return sk, pk, nil
}

// SecretKeyFromBytes copies a 32-byte seed
func SecretKeyFromBytes(data []byte) (SecretKey, error) {
    var sk SecretKey
    if len(data) != SecretKeySize {
        return sk, ErrInvalidKeyLength.WithContext("length", len(data))
    }
    copy(sk[:], data)
    return sk, nil
}

// SecretKeyFromHex decodes a hex encoded seed
func SecretKeyFromHex(s string) (SecretKey, error) {
    data, err := hex.DecodeString(s)
    if err != nil {
        return SecretKey{}, ErrInvalidHex.WithCause(err)
    }
    defer ZeroizeBytes(data)
    return SecretKeyFromBytes(data)
}

// expand derives the private scalar and nonce prefix: h = SHA512(seed),
// a = clamp(h[0:32]), prefix = h[32:64].
func (sk *SecretKey) expand() (*expandedKey, error) {
    h := sha512.Sum512(sk[:])
    defer ZeroizeBytes(h[:])

    scalar, err := sharedCurve.ScalarFromClampedBytes(h[:32])
    if err != nil {
        return nil, err
    }

    ek := &expandedKey{scalar: scalar}
    copy(ek.prefix[:], h[32:])
    return ek, nil
}

// PublicKey derives the public key a*B
func (sk *SecretKey) PublicKey() (PublicKey, error) {
    ek, err := sk.expand()
    if err != nil {
        return PublicKey{}, err
    }
    defer ek.Zeroize()

    var pk PublicKey
    copy(pk[:], sharedCurve.BasePoint().Mul(ek.scalar).Bytes())
    return pk, nil
}

// Zeroize clears the seed
func (sk *SecretKey) Zeroize() {
    ZeroizeBytes(sk[:])
}

// String never prints key material
func (sk SecretKey) String() string {
    return "SecretKey(redacted)"
}

// Hex returns the seed in hex. Callers own the resulting copy.
func (sk SecretKey) Hex() string {
    return hex.EncodeToString(sk[:])
}

// PublicKeyFromBytes decodes and validates a public key: the encoding must
// decompress and must not be the identity element.
func PublicKeyFromBytes(data []byte) (PublicKey, error) {
    var pk PublicKey
    if len(data) != PointSize {
        return pk, ErrInvalidKeyLength.WithContext("length", len(data))
    }
    copy(pk[:], data)
    if _, err := pk.Point(); err != nil {
        return PublicKey{}, err
    }
    return pk, nil
}

// PublicKeyFromHex decodes a hex encoded public key
func PublicKeyFromHex(s string) (PublicKey, error) {
    data, err := hex.DecodeString(s)
    if err != nil {
        return PublicKey{}, ErrInvalidHex.WithCause(err)
    }
    return PublicKeyFromBytes(data)
}

// Point decodes the key into a curve point
func (pk PublicKey) Point() (Point, error) {
    p, err := sharedCurve.PointFromBytes(pk[:])
    if err != nil {
        if IsErrorCategory(err, ErrorCategoryInvalidPoint) {
            return nil, ErrKeyNotOnCurve.WithCause(err)
        }
        return nil, err
    }
    if p.IsIdentity() {
        return nil, ErrIdentityKey
    }
    return p, nil
}

// Bytes returns a copy of the encoding
func (pk PublicKey) Bytes() []byte {
    return append([]byte(nil), pk[:]...)
}

func (pk PublicKey) String() string {
    return hex.EncodeToString(pk[:])
}

// publicKeyFromPoint encodes a point as a public key
func publicKeyFromPoint(p Point) PublicKey {
    var pk PublicKey
    copy(pk[:], p.Bytes())
    return pk
}
