package cosi

import (
    "testing"
)

func TestNewCurve(t *testing.T) {
    curve, err := NewCurve(Ed25519)
    if err != nil {
        t.Fatalf("NewCurve(Ed25519) failed: %v", err)
    }
    if curve.Name() != "ed25519" || curve.PointSize() != PointSize || curve.ScalarSize() != ScalarSize {
        t.Fatalf("unexpected curve parameters: %s %d %d", curve.Name(), curve.PointSize(), curve.ScalarSize())
    }
    if sharedCurve.Name() != curve.Name() {
        t.Fatalf("package helpers use %s", sharedCurve.Name())
    }

    if _, err := NewCurve("secp256k1"); err == nil {
        t.Fatal("expected an error for an unsupported curve")
    }
}
