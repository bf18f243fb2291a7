package cosi

import (
	"errors"
	"testing"
)

func TestNewSignerSet(t *testing.T) {
	_, publics := testKeySet(t, 5)

	set, err := NewSignerSet(publics, 3)
	if err != nil {
		t.Fatalf("Failed to create signer set: %v", err)
	}
	if set.Len() != 5 || set.Threshold() != 3 {
		t.Fatalf("Expected 3-of-5, got %d-of-%d", set.Threshold(), set.Len())
	}

	// the set holds its own copy
	keys := set.Keys()
	keys[0] = publics[1]
	if k, _ := set.Key(0); k != publics[0] {
		t.Fatal("Keys() must return a copy")
	}
	if set.IndexOf(publics[4]) != 4 {
		t.Error("IndexOf returned the wrong position")
	}
	if set.IndexOf(PublicKey{}) != -1 {
		t.Error("IndexOf of an unknown key must be -1")
	}
	if _, ok := set.Key(5); ok {
		t.Error("Key(5) must not exist in a 5 key set")
	}

	tests := []struct {
		name      string
		keys      []PublicKey
		threshold int
		want      error
	}{
		{"no keys", nil, 1, ErrNoKeys},
		{"zero threshold", publics, 0, ErrInvalidThreshold},
		{"threshold above n", publics, 6, ErrInvalidThreshold},
		{"duplicate key", []PublicKey{publics[0], publics[1], publics[0]}, 2, ErrInvalidKey},
		{"identity key", []PublicKey{publics[0], {1}}, 1, ErrInvalidKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSignerSet(tt.keys, tt.threshold); !errors.Is(err, tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, err)
			}
		})
	}

	nine := append(append([]PublicKey(nil), publics...), publics[:4]...)
	if _, err := NewSignerSet(nine, 2); !errors.Is(err, ErrTooManySigners) {
		t.Fatalf("Expected ErrTooManySigners for 9 keys, got %v", err)
	}
}

func TestSignerSetMasks(t *testing.T) {
	_, publics := testKeySet(t, 4)
	set, _ := NewSignerSet(publics, 2)

	if err := set.ValidateMask(0x05); err != nil {
		t.Errorf("0x05 should be valid: %v", err)
	}
	if err := set.ValidateMask(0x11); !errors.Is(err, ErrMaskOutOfRange) {
		t.Errorf("bit 4 of a 4 key set: expected ErrMaskOutOfRange, got %v", err)
	}
	if err := set.ValidateMask(0x07); !errors.Is(err, ErrMaskThresholdMismatch) {
		t.Errorf("three bits for threshold two: expected ErrMaskThresholdMismatch, got %v", err)
	}

	selected, err := set.Select(0x0a)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if len(selected) != 2 || selected[0] != publics[1] || selected[1] != publics[3] {
		t.Fatal("Select must return keys in index order")
	}

	keys, masks, err := set.AggregateKeys(DefaultEnumerationLimit)
	if err != nil {
		t.Fatalf("AggregateKeys failed: %v", err)
	}
	if len(masks) != 6 || len(keys) != 6 {
		t.Fatalf("Expected C(4,2)=6 aggregates, got %d", len(masks))
	}
	for i, mask := range masks {
		want, _ := MaskOf(4, 2, uint64(i))
		if mask != want {
			t.Errorf("mask %d out of rank order", i)
		}
		direct, _ := set.AggregateKey(mask)
		if keys[mask] != direct {
			t.Errorf("aggregate for %#02x differs from AggregateKey", uint8(mask))
		}
	}

	if _, _, err := set.AggregateKeys(5); !errors.Is(err, ErrTooManyCombinations) {
		t.Errorf("Expected ErrTooManyCombinations, got %v", err)
	}
}

func TestSignerSetWithProofs(t *testing.T) {
	secrets, publics := testKeySet(t, 3)
	proofs := make([]*PossessionProof, len(secrets))
	for i := range secrets {
		proof, err := ProvePossession(&secrets[i])
		if err != nil {
			t.Fatalf("ProvePossession failed: %v", err)
		}
		proofs[i] = proof
	}

	if _, err := NewSignerSetWithProofs(publics, proofs, 2); err != nil {
		t.Fatalf("Failed to create signer set with proofs: %v", err)
	}

	swapped := []*PossessionProof{proofs[1], proofs[0], proofs[2]}
	if _, err := NewSignerSetWithProofs(publics, swapped, 2); !errors.Is(err, ErrPossessionProof) {
		t.Fatalf("Expected ErrPossessionProof for swapped proofs, got %v", err)
	}
	if _, err := NewSignerSetWithProofs(publics, proofs[:2], 2); !errors.Is(err, ErrPossessionProof) {
		t.Fatalf("Expected ErrPossessionProof for a missing proof, got %v", err)
	}
}
