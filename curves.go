package cosi

import (
    "fmt"
)

// Curve defines the group operations the signing protocol consumes
type Curve interface {
    // Metadata
    Name() string
    ScalarSize() int
    PointSize() int

    // Scalar operations
    ScalarFromBytes([]byte) (Scalar, error)
    ScalarFromUniformBytes([]byte) (Scalar, error)
    ScalarFromClampedBytes([]byte) (Scalar, error)
    ScalarRandom() (Scalar, error)
    ScalarZero() Scalar

    // Point operations
    PointFromBytes([]byte) (Point, error)
    BasePoint() Point
}

// Scalar represents an integer modulo the group order L
type Scalar interface {
    // Serialization (canonical little-endian, ScalarSize bytes)
    Bytes() []byte
    String() string

    // Arithmetic operations
    Add(Scalar) Scalar
    Mul(Scalar) Scalar

    // Comparison
    Equal(Scalar) bool
    IsZero() bool

    // Security
    Zeroize()
}

// Point represents an element of the curve group
type Point interface {
    // Serialization (canonical compressed encoding, PointSize bytes)
    Bytes() []byte
    String() string

    // Arithmetic operations
    Add(Point) Point
    Mul(Scalar) Point

    // Comparison
    Equal(Point) bool
    IsIdentity() bool
}

// sharedCurve is the curve used by the package level helpers
var sharedCurve = mustCurve(Ed25519)

// CurveType represents supported curve types
type CurveType string

const (
    Ed25519 CurveType = "ed25519"
)

// NewCurve creates a new curve instance
func NewCurve(curveType CurveType) (Curve, error) {
    switch curveType {
    case Ed25519:
        return NewEd25519Curve(), nil
    default:
        return nil, fmt.Errorf("unsupported curve type: %s", curveType)
    }
}

func mustCurve(curveType CurveType) Curve {
    curve, err := NewCurve(curveType)
    if err != nil {
        panic(err)
    }
    return curve
}
