package cosi

import (
    "errors"
    "testing"

    "filippo.io/edwards25519"
)

func TestCombineKeys(t *testing.T) {
    _, publics := testKeySet(t, 4)

    single, err := CombineKeys(publics[:1])
    if err != nil {
        t.Fatalf("CombineKeys of one key failed: %v", err)
    }
    if single != publics[0] {
        t.Fatal("the aggregate of a single key must be the key itself")
    }

    ab, _ := CombineKeys([]PublicKey{publics[0], publics[1]})
    ba, _ := CombineKeys([]PublicKey{publics[1], publics[0]})
    if ab != ba {
        t.Fatal("key aggregation must be commutative")
    }

    // (a+b)+c == a+(b+c)
    abc, _ := CombineKeys(publics[:3])
    left, _ := CombineKeys([]PublicKey{ab, publics[2]})
    bc, _ := CombineKeys(publics[1:3])
    right, _ := CombineKeys([]PublicKey{publics[0], bc})
    if abc != left || abc != right {
        t.Fatal("key aggregation must be associative")
    }
}

func TestCombineRejects(t *testing.T) {
    _, publics := testKeySet(t, 2)

    if _, err := CombineKeys(nil); !errors.Is(err, ErrNoKeys) {
        t.Errorf("empty input: expected ErrNoKeys, got %v", err)
    }

    var identity PublicKey
    identity[0] = 1
    if _, err := CombineKeys([]PublicKey{publics[0], identity}); !errors.Is(err, ErrIdentityKey) {
        t.Errorf("identity key: expected ErrIdentityKey, got %v", err)
    }

    if _, err := Combine([]Point{nil}); !IsErrorCategory(err, ErrorCategoryInvalidKey) {
        t.Errorf("nil point: expected invalid key error, got %v", err)
    }

    // a key and its negation sum to the identity
    p, err := new(edwards25519.Point).SetBytes(publics[0][:])
    if err != nil {
        t.Fatalf("SetBytes failed: %v", err)
    }
    var negated PublicKey
    copy(negated[:], new(edwards25519.Point).Negate(p).Bytes())
    if _, err := CombineKeys([]PublicKey{publics[0], negated}); !errors.Is(err, ErrIdentityKey) {
        t.Errorf("cancelling keys: expected ErrIdentityKey, got %v", err)
    }

    if _, err := CombineCommitments([][]byte{make([]byte, 31)}); !IsErrorCategory(err, ErrorCategoryDecoding) {
        t.Errorf("short commitment: expected decoding error, got %v", err)
    }
    if _, err := CombineCommitments([][]byte{identity[:]}); !errors.Is(err, ErrIdentityPoint) {
        t.Errorf("identity commitment: expected ErrIdentityPoint, got %v", err)
    }
}

func TestPublicKeyDecoding(t *testing.T) {
    _, publics := testKeySet(t, 1)

    decoded, err := PublicKeyFromHex(publics[0].String())
    if err != nil {
        t.Fatalf("PublicKeyFromHex failed: %v", err)
    }
    if decoded != publics[0] {
        t.Fatal("hex round trip changed the key")
    }

    if _, err := PublicKeyFromHex("not hex"); !errors.Is(err, ErrInvalidHex) {
        t.Errorf("expected ErrInvalidHex, got %v", err)
    }
    if _, err := PublicKeyFromBytes(publics[0][:31]); !errors.Is(err, ErrInvalidKeyLength) {
        t.Errorf("expected ErrInvalidKeyLength, got %v", err)
    }

    var identity PublicKey
    identity[0] = 1
    if _, err := PublicKeyFromBytes(identity[:]); !errors.Is(err, ErrIdentityKey) {
        t.Errorf("expected ErrIdentityKey, got %v", err)
    }

    // roughly half of all y coordinates have no matching x
    offCurve := 0
    for y := byte(2); y < 40; y++ {
        var candidate PublicKey
        candidate[0] = y
        if _, err := candidate.Point(); err != nil {
            if !IsErrorCategory(err, ErrorCategoryInvalidKey) {
                t.Fatalf("y=%d: expected invalid key error, got %v", y, err)
            }
            offCurve++
        }
    }
    if offCurve == 0 {
        t.Fatal("expected at least one off-curve encoding")
    }
}

func TestSecretKeyDecoding(t *testing.T) {
    secrets, _ := testKeySet(t, 1)

    sk, err := SecretKeyFromHex(secrets[0].Hex())
    if err != nil {
        t.Fatalf("SecretKeyFromHex failed: %v", err)
    }
    if sk != secrets[0] {
        t.Fatal("hex round trip changed the seed")
    }
    if _, err := SecretKeyFromHex("abcd"); !errors.Is(err, ErrInvalidKeyLength) {
        t.Errorf("expected ErrInvalidKeyLength, got %v", err)
    }

    sk.Zeroize()
    if sk != (SecretKey{}) {
        t.Fatal("Zeroize left seed bytes behind")
    }
}
