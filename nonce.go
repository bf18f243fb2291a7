package cosi

import (
    "crypto/sha512"
    "encoding/binary"
)

// DeriveNonce computes a signer's per-session nonce and commitment:
//
//     r = SHA512(prefix || digest || BE32(counter)) mod L
//     R = r*B
//
// where prefix is the second half of SHA512(seed). The derivation is
// deterministic so a retried session with the same counter reproduces the
// same commitment.
//
// Callers must never reuse a counter with the same key for a different
// digest. Two partial signatures under one nonce and two challenges reveal
// the private scalar. Nothing in this package can detect such reuse.
func DeriveNonce(sk *SecretKey, digest []byte, counter uint32) (Scalar, Point, error) {
    ek, err := sk.expand()
    if err != nil {
        return nil, nil, err
    }
    defer ek.Zeroize()

    return deriveNonce(ek, digest, counter)
}

func deriveNonce(ek *expandedKey, digest []byte, counter uint32) (Scalar, Point, error) {
    var ctr [4]byte
    binary.BigEndian.PutUint32(ctr[:], counter)

    hasher := sha512.New()
    hasher.Write(ek.prefix[:])
    hasher.Write(digest)
    hasher.Write(ctr[:])
    wide := hasher.Sum(nil)
    defer ZeroizeBytes(wide)

    nonce, err := sharedCurve.ScalarFromUniformBytes(wide)
    if err != nil {
        return nil, nil, err
    }
    return nonce, sharedCurve.BasePoint().Mul(nonce), nil
}
