package binimage

import (
	"bytes"
	"fmt"

	"github.com/canopy-network/canopy/lib/cosi"
)

// Verifier checks image signatures and reports rejections to an audit
// handler. The zero value is not usable; use NewVerifier.
type Verifier struct {
	audit cosi.AuditEventHandler
}

// VerifierOption configures a Verifier
type VerifierOption func(*Verifier)

// WithAudit routes rejection events to h
func WithAudit(h cosi.AuditEventHandler) VerifierOption {
	return func(v *Verifier) {
		if h != nil {
			v.audit = h
		}
	}
}

// NewVerifier returns a Verifier
func NewVerifier(opts ...VerifierOption) *Verifier {
	v := &Verifier{audit: &cosi.NullAuditHandler{}}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

var defaultVerifier = NewVerifier()

// VerifyImage checks img's signature against the aggregate key that its
// signer mask selects from set
func VerifyImage(img *Image, set *cosi.SignerSet) error {
	return defaultVerifier.VerifyImage(img, set)
}

// VerifyVendorHeader checks v's signature against set
func VerifyVendorHeader(v *VendorHeader, set *cosi.SignerSet) error {
	return defaultVerifier.VerifyVendorHeader(v, set)
}

// VerifyFirmware checks a complete firmware file against the root set
func VerifyFirmware(fw *Firmware, rootSet *cosi.SignerSet) error {
	return defaultVerifier.VerifyFirmware(fw, rootSet)
}

func (vf *Verifier) VerifyImage(img *Image, set *cosi.SignerSet) error {
	if err := img.Validate(); err != nil {
		return vf.reject(img.Kind, img.SigMask, nil, err)
	}
	digest := img.Digest()
	if err := cosi.VerifyWithSignerSet(set, img.SigMask, digest, img.Signature); err != nil {
		return vf.reject(img.Kind, img.SigMask, digest, err)
	}
	return nil
}

func (vf *Verifier) VerifyVendorHeader(v *VendorHeader, set *cosi.SignerSet) error {
	digest, err := v.Digest()
	if err != nil {
		return vf.reject(KindVendor, v.SigMask, nil, err)
	}
	if err := cosi.VerifyWithSignerSet(set, v.SigMask, digest, v.Signature); err != nil {
		return vf.reject(KindVendor, v.SigMask, digest, err)
	}
	return nil
}

// VerifyFirmware checks, in order, the vendor header under rootSet, the
// firmware under the vendor's own keys and threshold, and that the vendor
// header approves this exact firmware header. A file without a vendor
// header is checked against rootSet directly.
func (vf *Verifier) VerifyFirmware(fw *Firmware, rootSet *cosi.SignerSet) error {
	if fw.Vendor == nil {
		return vf.VerifyImage(fw.Image, rootSet)
	}
	if fw.Image.Kind != KindFirmware {
		return vf.reject(fw.Image.Kind, fw.Image.SigMask, nil,
			cosi.ErrBadMagic.WithDetails("vendor header must precede a firmware image"))
	}
	if err := fw.checkSize(); err != nil {
		return vf.reject(KindFirmware, fw.Image.SigMask, nil, err)
	}

	if err := vf.VerifyVendorHeader(fw.Vendor, rootSet); err != nil {
		return fmt.Errorf("vendor header: %w", err)
	}

	vendorSet, err := fw.Vendor.SignerSet()
	if err != nil {
		return vf.reject(KindVendor, fw.Vendor.SigMask, nil, err)
	}
	if err := vf.VerifyImage(fw.Image, vendorSet); err != nil {
		return fmt.Errorf("firmware header: %w", err)
	}

	if !bytes.Equal(fw.Vendor.Image, fw.Image.SignedPrefix()) {
		return vf.reject(KindFirmware, fw.Image.SigMask, fw.Image.Digest(),
			cosi.ErrVendorBindingMismatch.WithDetails("vendor header approves a different firmware header"))
	}
	return nil
}

func (vf *Verifier) reject(kind Kind, mask cosi.Mask, digest []byte, err error) error {
	vf.audit.OnVerificationFailure(cosi.NewAuditEventBuilder(cosi.AuditEventVerificationFailure).
		WithSession("", 0, digest).
		WithMask(mask).
		WithError(err).
		WithMetadata("kind", kind.String()).
		WithMetadata("code", cosi.ErrorCode(err)).
		Build())
	return err
}
