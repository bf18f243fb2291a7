package binimage

import (
	"bytes"
	"encoding/binary"

	"golang.org/x/crypto/blake2s"

	"github.com/canopy-network/canopy/lib/cosi"
)

const (
	// VendorMaxSize bounds the total vendor header length
	VendorMaxSize = 4096

	vendorFixedSize = 16
	trailerSize     = 1 + cosi.SignatureSize
	maxLabelSize    = 255
)

// VendorHeader approves one firmware build and names the keys, and the
// threshold over them, that must sign it.
type VendorHeader struct {
	Expiry       uint32
	VersionMajor uint8
	VersionMinor uint8
	Threshold    uint8
	Keys         []cosi.PublicKey
	Label        string
	// Image holds the approved firmware header bytes up to its signer mask
	Image     []byte
	SigMask   cosi.Mask
	Signature cosi.Signature
}

func vendorPadding(offset int) int {
	return (4 - offset%4) % 4
}

// ParseVendorHeader decodes the vendor header at the start of data.
// Bytes past the declared header length are left to the caller.
func ParseVendorHeader(data []byte) (*VendorHeader, error) {
	if len(data) < vendorFixedSize {
		return nil, cosi.ErrTruncated.WithDetails("vendor header: %d bytes", len(data))
	}
	magic := KindVendor.Magic()
	if !bytes.Equal(data[:4], magic[:]) {
		return nil, cosi.ErrBadMagic.WithDetails("expected %q, got %q", magic[:], data[:4])
	}

	hdrLen := binary.LittleEndian.Uint32(data[4:])
	if hdrLen%4 != 0 || hdrLen > VendorMaxSize || hdrLen < vendorFixedSize+trailerSize {
		return nil, cosi.ErrBadHeaderLength.WithDetails("vendor header length %d", hdrLen)
	}
	if uint32(len(data)) < hdrLen {
		return nil, cosi.ErrTruncated.WithDetails("vendor header length %d, %d bytes present", hdrLen, len(data))
	}
	buf := data[:hdrLen]
	trailer := int(hdrLen) - trailerSize

	v := &VendorHeader{
		Expiry:       binary.LittleEndian.Uint32(buf[8:]),
		VersionMajor: buf[12],
		VersionMinor: buf[13],
		Threshold:    buf[14],
	}
	n := int(buf[15])
	if err := cosi.ValidateThreshold(n, int(v.Threshold)); err != nil {
		return nil, cosi.ErrBadSignerCount.WithCause(err).WithDetails("m=%d n=%d", v.Threshold, n)
	}

	off := vendorFixedSize
	if off+n*cosi.PointSize+1 > trailer {
		return nil, cosi.ErrBadHeaderLength.WithDetails("vendor header length %d too short for %d keys", hdrLen, n)
	}
	v.Keys = make([]cosi.PublicKey, n)
	for i := 0; i < n; i++ {
		key, err := cosi.PublicKeyFromBytes(buf[off : off+cosi.PointSize])
		if err != nil {
			return nil, err
		}
		v.Keys[i] = key
		off += cosi.PointSize
	}

	labelLen := int(buf[off])
	off++
	if off+labelLen > trailer {
		return nil, cosi.ErrBadHeaderLength.WithDetails("label of %d bytes overruns header", labelLen)
	}
	v.Label = string(buf[off : off+labelLen])
	off += labelLen

	pad := vendorPadding(off)
	if off+pad > trailer {
		return nil, cosi.ErrBadHeaderLength.WithDetails("padding overruns header")
	}
	for _, b := range buf[off : off+pad] {
		if b != 0 {
			return nil, cosi.ErrReservedNotZero.WithDetails("vendor header padding")
		}
	}
	off += pad

	v.Image = append([]byte(nil), buf[off:trailer]...)
	v.SigMask = cosi.Mask(buf[trailer])
	copy(v.Signature[:], buf[trailer+1:])
	return v, nil
}

// HeaderLen returns the encoded length derived from the contents
func (v *VendorHeader) HeaderLen() int {
	off := vendorFixedSize + len(v.Keys)*cosi.PointSize + 1 + len(v.Label)
	off += vendorPadding(off)
	return off + len(v.Image) + trailerSize
}

// Serialize encodes the header. With includeSignature false the signer
// mask and signature are written as zero.
func (v *VendorHeader) Serialize(includeSignature bool) ([]byte, error) {
	if err := cosi.ValidateThreshold(len(v.Keys), int(v.Threshold)); err != nil {
		return nil, cosi.ErrBadSignerCount.WithCause(err).WithDetails("m=%d n=%d", v.Threshold, len(v.Keys))
	}
	if len(v.Label) > maxLabelSize {
		return nil, cosi.ErrLabelTooLong.WithContext("length", len(v.Label))
	}
	hdrLen := v.HeaderLen()
	if hdrLen%4 != 0 || hdrLen > VendorMaxSize {
		return nil, cosi.ErrBadHeaderLength.WithDetails("vendor header length %d", hdrLen)
	}

	out := make([]byte, 0, hdrLen)
	magic := KindVendor.Magic()
	out = append(out, magic[:]...)
	out = binary.LittleEndian.AppendUint32(out, uint32(hdrLen))
	out = binary.LittleEndian.AppendUint32(out, v.Expiry)
	out = append(out, v.VersionMajor, v.VersionMinor, v.Threshold, uint8(len(v.Keys)))
	for _, key := range v.Keys {
		out = append(out, key[:]...)
	}
	out = append(out, uint8(len(v.Label)))
	out = append(out, v.Label...)
	out = append(out, make([]byte, vendorPadding(len(out)))...)
	out = append(out, v.Image...)
	if includeSignature {
		out = append(out, byte(v.SigMask))
		out = append(out, v.Signature[:]...)
	} else {
		out = append(out, make([]byte, trailerSize)...)
	}
	return out, nil
}

// Digest is BLAKE2s-256 over the unsigned header
func (v *VendorHeader) Digest() ([]byte, error) {
	data, err := v.Serialize(false)
	if err != nil {
		return nil, err
	}
	sum := blake2s.Sum256(data)
	return sum[:], nil
}

// SignerSet returns the vendor keys with the vendor threshold, the set
// firmware signatures are checked against
func (v *VendorHeader) SignerSet() (*cosi.SignerSet, error) {
	return cosi.NewSignerSet(v.Keys, int(v.Threshold))
}

// Sign signs the header with a single key and stores the signature under
// mask, which must select exactly one signer.
func (v *VendorHeader) Sign(mask cosi.Mask, sk *cosi.SecretKey, counter uint32) error {
	digest, err := v.Digest()
	if err != nil {
		return err
	}
	sig, err := signSingle(mask, sk, digest, counter)
	if err != nil {
		return err
	}
	return v.ApplySignature(mask, sig)
}

// ApplySignature stores a finished signature together with its signer mask
func (v *VendorHeader) ApplySignature(mask cosi.Mask, sig cosi.Signature) error {
	if mask == 0 {
		return cosi.ErrMaskOutOfRange.WithDetails("empty signer mask")
	}
	v.SigMask = mask
	v.Signature = sig
	return nil
}

// ClearSignature removes the signature and mask
func (v *VendorHeader) ClearSignature() {
	v.SigMask = 0
	v.Signature = cosi.Signature{}
}

// Approve embeds img's header so that this vendor header approves exactly
// that build
func (v *VendorHeader) Approve(img *Image) {
	v.Image = img.SignedPrefix()
}
