package cosi

import (
    "bytes"
    "crypto/rand"
    "encoding/hex"
    "runtime"

    "filippo.io/edwards25519"
)

// Sizes of the Ed25519 encodings handled by this package
const (
    ScalarSize    = 32
    PointSize     = 32
    SignatureSize = 64
)

// Ed25519Curve implements the Curve interface for Ed25519
type Ed25519Curve struct{}

// NewEd25519Curve creates a new Ed25519 curve instance
func NewEd25519Curve() *Ed25519Curve {
    return &Ed25519Curve{}
}

func (c *Ed25519Curve) Name() string    { return "ed25519" }
func (c *Ed25519Curve) ScalarSize() int { return ScalarSize }
func (c *Ed25519Curve) PointSize() int  { return PointSize }

// ScalarFromBytes decodes a canonical scalar encoding
func (c *Ed25519Curve) ScalarFromBytes(data []byte) (Scalar, error) {
    if len(data) != ScalarSize {
        return nil, ErrInvalidScalarLength.WithContext("length", len(data))
    }

    scalar, err := new(edwards25519.Scalar).SetCanonicalBytes(data)
    if err != nil {
        return nil, ErrNonCanonicalScalar.WithCause(err)
    }

    return &Ed25519Scalar{inner: scalar}, nil
}

func (c *Ed25519Curve) ScalarRandom() (Scalar, error) {
    bytes := make([]byte, 64) // Use 64 bytes for uniform distribution
    if _, err := rand.Read(bytes); err != nil {
        return nil, err
    }
    defer ZeroizeBytes(bytes)

    scalar, _ := edwards25519.NewScalar().SetUniformBytes(bytes)
    return NewEd25519Scalar(scalar), nil
}

// NewEd25519Scalar creates a new Ed25519Scalar with automatic cleanup via finalizer
func NewEd25519Scalar(inner *edwards25519.Scalar) *Ed25519Scalar {
    s := &Ed25519Scalar{inner: inner}
    runtime.SetFinalizer(s, (*Ed25519Scalar).finalize)
    return s
}

// finalize is called by the garbage collector as backup cleanup
func (s *Ed25519Scalar) finalize() {
    if s.inner != nil {
        s.Zeroize()
    }
}

// ScalarFromUniformBytes reduces a wide (hash output) value modulo L.
// Inputs shorter than 64 bytes are zero-extended, which keeps the
// little-endian integer value unchanged.
func (c *Ed25519Curve) ScalarFromUniformBytes(data []byte) (Scalar, error) {
    if len(data) < ScalarSize || len(data) > 64 {
        return nil, ErrInvalidScalarLength.WithContext("length", len(data))
    }

    uniformBytes := make([]byte, 64)
    copy(uniformBytes, data)
    defer ZeroizeBytes(uniformBytes)

    scalar, err := edwards25519.NewScalar().SetUniformBytes(uniformBytes)
    if err != nil {
        return nil, ErrDecoding.WithCause(err)
    }
    return &Ed25519Scalar{inner: scalar}, nil
}

// ScalarFromClampedBytes applies RFC 8032 clamping to the first half of an
// expanded secret key and reduces the result modulo L.
func (c *Ed25519Curve) ScalarFromClampedBytes(data []byte) (Scalar, error) {
    if len(data) != ScalarSize {
        return nil, ErrInvalidScalarLength.WithContext("length", len(data))
    }

    scalar, err := edwards25519.NewScalar().SetBytesWithClamping(data)
    if err != nil {
        return nil, ErrDecoding.WithCause(err)
    }
    return NewEd25519Scalar(scalar), nil
}

func (c *Ed25519Curve) ScalarZero() Scalar {
    return &Ed25519Scalar{inner: edwards25519.NewScalar()}
}

// PointFromBytes decompresses a point encoding. Wrong lengths and
// non-canonical encodings are decoding errors, encodings that are not on the
// curve are invalid points.
func (c *Ed25519Curve) PointFromBytes(data []byte) (Point, error) {
    if len(data) != PointSize {
        return nil, ErrInvalidPointLength.WithContext("length", len(data))
    }

    point, err := new(edwards25519.Point).SetBytes(data)
    if err != nil {
        return nil, ErrPointDecompression.WithCause(err)
    }
    if !bytes.Equal(point.Bytes(), data) {
        return nil, ErrNonCanonicalPoint.WithDetails("encoding %x", data)
    }

    return &Ed25519Point{inner: point}, nil
}

func (c *Ed25519Curve) BasePoint() Point {
    return &Ed25519Point{inner: edwards25519.NewGeneratorPoint()}
}

// Ed25519Scalar implements the Scalar interface
type Ed25519Scalar struct {
    inner *edwards25519.Scalar
}

func (s *Ed25519Scalar) Bytes() []byte {
    return s.inner.Bytes()
}

func (s *Ed25519Scalar) String() string {
    return hex.EncodeToString(s.Bytes())
}

func (s *Ed25519Scalar) Add(other Scalar) Scalar {
    result := edwards25519.NewScalar()
    result.Add(s.inner, other.(*Ed25519Scalar).inner)
    return &Ed25519Scalar{inner: result}
}

func (s *Ed25519Scalar) Mul(other Scalar) Scalar {
    result := edwards25519.NewScalar()
    result.Multiply(s.inner, other.(*Ed25519Scalar).inner)
    return &Ed25519Scalar{inner: result}
}

func (s *Ed25519Scalar) Equal(other Scalar) bool {
    return s.inner.Equal(other.(*Ed25519Scalar).inner) == 1
}

func (s *Ed25519Scalar) IsZero() bool {
    return s.inner.Equal(edwards25519.NewScalar()) == 1
}

func (s *Ed25519Scalar) Zeroize() {
    s.inner = edwards25519.NewScalar()
    runtime.SetFinalizer(s, nil)
}

// Ed25519Point implements the Point interface
type Ed25519Point struct {
    inner *edwards25519.Point
}

func (p *Ed25519Point) Bytes() []byte {
    return p.inner.Bytes()
}

func (p *Ed25519Point) String() string {
    return hex.EncodeToString(p.Bytes())
}

func (p *Ed25519Point) Add(other Point) Point {
    result := edwards25519.NewIdentityPoint()
    result.Add(p.inner, other.(*Ed25519Point).inner)
    return &Ed25519Point{inner: result}
}

func (p *Ed25519Point) Mul(scalar Scalar) Point {
    result := edwards25519.NewIdentityPoint()
    result.ScalarMult(scalar.(*Ed25519Scalar).inner, p.inner)
    return &Ed25519Point{inner: result}
}

func (p *Ed25519Point) Equal(other Point) bool {
    return p.inner.Equal(other.(*Ed25519Point).inner) == 1
}

func (p *Ed25519Point) IsIdentity() bool {
    return p.inner.Equal(edwards25519.NewIdentityPoint()) == 1
}
