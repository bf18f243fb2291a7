package cosi

import (
    "crypto/sha512"
    "crypto/subtle"
    "fmt"
)

// ChallengeHash computes the RFC 8032 challenge e = SHA512(R || A || M) mod L.
// Plain Ed25519 signing uses the same construction, which is what makes a
// combined signature indistinguishable from a single-signer one.
func ChallengeHash(R Point, A Point, message []byte) (Scalar, error) {
    if R == nil || A == nil {
        return nil, fmt.Errorf("challenge computation requires non-nil points")
    }

    hasher := sha512.New()
    hasher.Write(R.Bytes())
    hasher.Write(A.Bytes())
    hasher.Write(message)

    challenge, err := sharedCurve.ScalarFromUniformBytes(hasher.Sum(nil))
    if err != nil {
        return nil, fmt.Errorf("failed to derive challenge scalar: %w", err)
    }
    return challenge, nil
}

// SecureCompare performs constant-time comparison of byte slices
func SecureCompare(a, b []byte) bool {
    return subtle.ConstantTimeCompare(a, b) == 1
}

// ZeroizeBytes securely clears a byte slice
func ZeroizeBytes(data []byte) {
    for i := range data {
        data[i] = 0
    }
}
