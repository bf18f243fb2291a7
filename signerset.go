package cosi

// SignerSet is an immutable, ordered list of signer public keys together
// with the threshold m. Mask bit i always refers to Keys()[i]; every party
// must agree on this ordering before aggregating anything.
type SignerSet struct {
	keys      []PublicKey
	threshold int
}

// NewSignerSet validates the keys and threshold and copies the keys
func NewSignerSet(keys []PublicKey, threshold int) (*SignerSet, error) {
	if len(keys) == 0 {
		return nil, ErrNoKeys
	}
	if err := ValidateThreshold(len(keys), threshold); err != nil {
		return nil, err
	}

	seen := make(map[PublicKey]int, len(keys))
	for i, key := range keys {
		if _, err := key.Point(); err != nil {
			return nil, ErrInvalidKey.WithCause(err).WithContext("index", i)
		}
		if j, dup := seen[key]; dup {
			return nil, ErrInvalidKey.WithDetails("key %d duplicates key %d", i, j)
		}
		seen[key] = i
	}

	return &SignerSet{
		keys:      append([]PublicKey(nil), keys...),
		threshold: threshold,
	}, nil
}

// NewSignerSetWithProofs builds a signer set after checking a proof of
// possession for every key, which rules out rogue-key aggregation.
func NewSignerSetWithProofs(keys []PublicKey, proofs []*PossessionProof, threshold int) (*SignerSet, error) {
	if len(proofs) != len(keys) {
		return nil, ErrPossessionProof.WithDetails("%d keys, %d proofs", len(keys), len(proofs))
	}
	for i, key := range keys {
		if err := VerifyPossession(key, proofs[i]); err != nil {
			return nil, ErrPossessionProof.WithCause(err).WithContext("index", i)
		}
	}
	return NewSignerSet(keys, threshold)
}

// Len returns n
func (s *SignerSet) Len() int {
	return len(s.keys)
}

// Threshold returns m
func (s *SignerSet) Threshold() int {
	return s.threshold
}

// Keys returns a copy of the ordered keys
func (s *SignerSet) Keys() []PublicKey {
	return append([]PublicKey(nil), s.keys...)
}

// Key returns the key at index i
func (s *SignerSet) Key(i int) (PublicKey, bool) {
	if i < 0 || i >= len(s.keys) {
		return PublicKey{}, false
	}
	return s.keys[i], true
}

// IndexOf returns the index of key, or -1
func (s *SignerSet) IndexOf(key PublicKey) int {
	for i, k := range s.keys {
		if k == key {
			return i
		}
	}
	return -1
}

// ValidateMask checks that mask only selects existing signers and that it
// selects exactly m of them.
func (s *SignerSet) ValidateMask(mask Mask) error {
	if uint(mask)>>uint(len(s.keys)) != 0 {
		return ErrMaskOutOfRange.WithDetails("mask %#02x, n=%d", uint8(mask), len(s.keys))
	}
	if mask.Count() != s.threshold {
		return ErrMaskThresholdMismatch.WithDetails("mask %#02x selects %d, threshold %d",
			uint8(mask), mask.Count(), s.threshold)
	}
	return nil
}

// Select returns the keys chosen by mask in index order
func (s *SignerSet) Select(mask Mask) ([]PublicKey, error) {
	if err := s.ValidateMask(mask); err != nil {
		return nil, err
	}
	selected := make([]PublicKey, 0, mask.Count())
	for _, i := range mask.Indices() {
		selected = append(selected, s.keys[i])
	}
	return selected, nil
}

// AggregateKey resolves the aggregate public key for the subset in mask
func (s *SignerSet) AggregateKey(mask Mask) (PublicKey, error) {
	selected, err := s.Select(mask)
	if err != nil {
		return PublicKey{}, err
	}
	return CombineKeys(selected)
}

// AggregateKeys computes the aggregate key of every m-subset in rank order.
// limit is passed to EnumerateMasks.
func (s *SignerSet) AggregateKeys(limit uint64) (map[Mask]PublicKey, []Mask, error) {
	masks, err := EnumerateMasks(len(s.keys), s.threshold, limit)
	if err != nil {
		return nil, nil, err
	}
	result := make(map[Mask]PublicKey, len(masks))
	for _, mask := range masks {
		key, err := s.AggregateKey(mask)
		if err != nil {
			return nil, nil, err
		}
		result[mask] = key
	}
	return result, masks, nil
}
