package cosi

import (
    "bytes"
    "errors"
    "testing"
)

func TestPossessionProof(t *testing.T) {
    secrets, publics := testKeySet(t, 2)

    proof, err := ProvePossession(&secrets[0])
    if err != nil {
        t.Fatalf("Failed to create proof: %v", err)
    }
    if err := VerifyPossession(publics[0], proof); err != nil {
        t.Fatalf("Valid proof rejected: %v", err)
    }

    // proofs are bound to their key
    if err := VerifyPossession(publics[1], proof); !errors.Is(err, ErrPossessionProof) {
        t.Fatalf("Expected ErrPossessionProof for the wrong key, got %v", err)
    }

    encoded := proof.Bytes()
    if len(encoded) != PossessionProofSize {
        t.Fatalf("Expected %d bytes, got %d", PossessionProofSize, len(encoded))
    }
    decoded, err := PossessionProofFromBytes(encoded)
    if err != nil {
        t.Fatalf("Failed to decode proof: %v", err)
    }
    if !bytes.Equal(decoded.Bytes(), encoded) {
        t.Fatal("Decoded proof differs")
    }
    if err := VerifyPossession(publics[0], decoded); err != nil {
        t.Fatalf("Decoded proof rejected: %v", err)
    }

    if _, err := PossessionProofFromBytes(encoded[:63]); !IsErrorCategory(err, ErrorCategoryDecoding) {
        t.Fatalf("Expected decoding error for a short proof, got %v", err)
    }
    if err := VerifyPossession(publics[0], nil); !errors.Is(err, ErrPossessionProof) {
        t.Fatalf("Expected ErrPossessionProof for a nil proof, got %v", err)
    }
}

func TestPossessionProofTampered(t *testing.T) {
    secrets, publics := testKeySet(t, 1)
    proof, err := ProvePossession(&secrets[0])
    if err != nil {
        t.Fatalf("Failed to create proof: %v", err)
    }

    // flipping the low bit keeps the response canonical
    tampered := &PossessionProof{
        Commitment: proof.Commitment,
        Response:   append([]byte(nil), proof.Response...),
    }
    tampered.Response[0] ^= 1
    if err := VerifyPossession(publics[0], tampered); err == nil {
        t.Fatal("Tampered response accepted")
    }

    // proofs use fresh randomness
    other, _ := ProvePossession(&secrets[0])
    if bytes.Equal(other.Commitment, proof.Commitment) {
        t.Fatal("Two proofs share a commitment")
    }
}
