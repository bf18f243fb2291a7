package cosi

import (
    "crypto/sha256"
    "encoding/binary"
    "fmt"
    "io"

    "golang.org/x/crypto/hkdf"
)

const keySetSalt = "COSI_DETERMINISTIC_KEYSET_v1"

// DeriveKeySet derives n signer seeds from a single master seed. The same
// seed and label always yield the same keys, which is what test fixtures
// and reproducible development key sets need. Production signers generate
// their keys independently with GenerateKey.
func DeriveKeySet(seed []byte, label string, n int) ([]SecretKey, []PublicKey, error) {
    if len(seed) < 16 {
        return nil, nil, ErrDecoding.WithDetails("seed must be at least 16 bytes, got %d", len(seed))
    }
    if n < 1 || n > MaxSigners {
        return nil, nil, ErrTooManySigners.WithContext("n", n)
    }

    secrets := make([]SecretKey, n)
    publics := make([]PublicKey, n)
    for i := 0; i < n; i++ {
        sk, err := deriveSeed(seed, label, uint32(i))
        if err != nil {
            zeroizeSecrets(secrets)
            return nil, nil, fmt.Errorf("failed to derive key %d: %w", i, err)
        }
        pk, err := sk.PublicKey()
        if err != nil {
            zeroizeSecrets(secrets)
            return nil, nil, err
        }
        secrets[i] = sk
        publics[i] = pk
    }
    return secrets, publics, nil
}

func deriveSeed(seed []byte, label string, index uint32) (SecretKey, error) {
    indexBytes := make([]byte, 4)
    binary.BigEndian.PutUint32(indexBytes, index)
    info := append([]byte(label+":"), indexBytes...)

    var sk SecretKey
    reader := hkdf.New(sha256.New, seed, []byte(keySetSalt), info)
    if _, err := io.ReadFull(reader, sk[:]); err != nil {
        return SecretKey{}, fmt.Errorf("failed to derive bytes from HKDF: %w", err)
    }
    return sk, nil
}

func zeroizeSecrets(keys []SecretKey) {
    for i := range keys {
        keys[i].Zeroize()
    }
}
