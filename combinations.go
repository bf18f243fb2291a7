package cosi

import (
    "math/bits"
)

// MaxSigners is the width of the signer mask carried by the binary formats
const MaxSigners = 8

// DefaultEnumerationLimit bounds EnumerateMasks for interactive callers
const DefaultEnumerationLimit = 1000

// Mask selects signers by index: bit i set means signer i contributed
type Mask uint8

// Count returns the number of selected signers
func (m Mask) Count() int {
    return bits.OnesCount8(uint8(m))
}

// Has reports whether signer index i is selected
func (m Mask) Has(i int) bool {
    return i >= 0 && i < MaxSigners && m&(1<<uint(i)) != 0
}

// Indices returns the selected indices in ascending order
func (m Mask) Indices() []int {
    indices := make([]int, 0, m.Count())
    for i := 0; i < MaxSigners; i++ {
        if m.Has(i) {
            indices = append(indices, i)
        }
    }
    return indices
}

// MaskFromIndices builds a mask from signer indices
func MaskFromIndices(indices ...int) (Mask, error) {
    var mask Mask
    for _, i := range indices {
        if i < 0 || i >= MaxSigners {
            return 0, ErrMaskOutOfRange.WithContext("index", i)
        }
        mask |= 1 << uint(i)
    }
    return mask, nil
}

// Binomial computes C(n, k) with the multiplicative recurrence
// C(n,k) = C(n,k-1)*(n-k+1)/k. Each intermediate value is itself a binomial
// coefficient, so the division is exact.
func Binomial(n, k int) uint64 {
    if k < 0 || n < 0 || k > n {
        return 0
    }
    if k > n-k {
        k = n - k
    }
    result := uint64(1)
    for i := 1; i <= k; i++ {
        result = result * uint64(n-i+1) / uint64(i)
    }
    return result
}

// MaskOf maps index in [0, C(n,m)) to the m-of-n mask of that rank.
// Ranks follow the combinatorial number system: index 0 selects signers
// 0..m-1 and the lowest candidate index varies slowest.
func MaskOf(n, m int, index uint64) (Mask, error) {
    if err := ValidateThreshold(n, m); err != nil {
        return 0, err
    }
    if index >= Binomial(n, m) {
        return 0, ErrIndexOutOfRange.WithDetails("index %d, C(%d,%d)=%d", index, n, m, Binomial(n, m))
    }

    var mask Mask
    candidate := 0
    for m > 0 {
        withCandidate := Binomial(n-1, m-1)
        if index < withCandidate {
            mask |= 1 << uint(candidate)
            m--
        } else {
            index -= withCandidate
        }
        n--
        candidate++
    }
    return mask, nil
}

// IndexOf is the inverse of MaskOf
func IndexOf(n, m int, mask Mask) (uint64, error) {
    if err := ValidateThreshold(n, m); err != nil {
        return 0, err
    }
    if uint(mask)>>uint(n) != 0 {
        return 0, ErrMaskOutOfRange.WithDetails("mask %#02x, n=%d", uint8(mask), n)
    }
    if mask.Count() != m {
        return 0, ErrMaskThresholdMismatch.WithDetails("mask %#02x selects %d, threshold %d", uint8(mask), mask.Count(), m)
    }

    var index uint64
    remaining := n
    for candidate := 0; m > 0; candidate++ {
        withCandidate := Binomial(remaining-1, m-1)
        if mask.Has(candidate) {
            m--
        } else {
            index += withCandidate
        }
        remaining--
    }
    return index, nil
}

// EnumerateMasks lists every m-of-n mask in rank order. A positive limit
// rejects enumerations with more than limit entries.
func EnumerateMasks(n, m int, limit uint64) ([]Mask, error) {
    if err := ValidateThreshold(n, m); err != nil {
        return nil, err
    }
    total := Binomial(n, m)
    if limit > 0 && total > limit {
        return nil, ErrTooManyCombinations.WithDetails("C(%d,%d)=%d, limit %d", n, m, total, limit)
    }

    masks := make([]Mask, 0, total)
    for index := uint64(0); index < total; index++ {
        mask, err := MaskOf(n, m, index)
        if err != nil {
            return nil, err
        }
        masks = append(masks, mask)
    }
    return masks, nil
}
