package cosi

// Combine returns the group sum of points. The first element seeds the sum
// and the rest are added in order. Every element must be a valid,
// non-identity point.
func Combine(points []Point) (Point, error) {
    if len(points) == 0 {
        return nil, ErrNoKeys
    }

    var sum Point
    for i, p := range points {
        if p == nil {
            return nil, ErrInvalidKey.WithDetails("point %d is nil", i)
        }
        if p.IsIdentity() {
            return nil, ErrIdentityKey.WithContext("index", i)
        }
        if sum == nil {
            sum = p
            continue
        }
        sum = sum.Add(p)
    }
    return sum, nil
}

// CombineKeys decodes and sums public keys. The result is itself a public
// key indistinguishable from a single-signer key. Callers must pass keys in
// the canonical signer set order.
func CombineKeys(keys []PublicKey) (PublicKey, error) {
    points := make([]Point, len(keys))
    for i, key := range keys {
        p, err := key.Point()
        if err != nil {
            return PublicKey{}, err
        }
        points[i] = p
    }

    sum, err := Combine(points)
    if err != nil {
        return PublicKey{}, err
    }
    if sum.IsIdentity() {
        return PublicKey{}, ErrIdentityKey.WithDetails("keys sum to the identity")
    }
    return publicKeyFromPoint(sum), nil
}

// CombineCommitments decodes and sums round-one commitments into the
// combined commitment R.
func CombineCommitments(commitments [][]byte) (Point, error) {
    points := make([]Point, len(commitments))
    for i, c := range commitments {
        p, err := sharedCurve.PointFromBytes(c)
        if err != nil {
            return nil, err
        }
        if p.IsIdentity() {
            return nil, ErrIdentityPoint.WithContext("index", i)
        }
        points[i] = p
    }
    return Combine(points)
}
