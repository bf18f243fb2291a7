// Package binimage reads, writes, signs and verifies the binary headers
// that carry CoSi signatures: bootloader and firmware image headers, and
// the vendor header that binds a set of vendor keys to one firmware build.
package binimage

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/blake2s"

	"github.com/canopy-network/canopy/lib/cosi"
)

const (
	// HeaderSize is the fixed size of a bootloader or firmware header
	HeaderSize = 512
	// BlockSize is the alignment of header plus code
	BlockSize = 512
	// MinImageSize is the smallest valid header plus code
	MinImageSize = 4 * 1024

	// BootloaderMaxSize is one 128 KiB flash sector
	BootloaderMaxSize = 128 * 1024
	// FirmwareMaxSize is thirteen 128 KiB flash sectors, vendor header included
	FirmwareMaxSize = 13 * 128 * 1024

	reservedSize = 427

	offMagic    = 0
	offHdrLen   = 4
	offExpiry   = 8
	offCodeLen  = 12
	offVersion  = 16
	offReserved = 20
	offSigMask  = offReserved + reservedSize // 447
	offSig      = offSigMask + 1             // 448
)

// Kind names a header variant by its magic tag
type Kind int

const (
	KindBootloader Kind = iota
	KindFirmware
	KindVendor
)

var magics = map[Kind][4]byte{
	KindBootloader: {'T', 'R', 'Z', 'B'},
	KindFirmware:   {'T', 'R', 'Z', 'F'},
	KindVendor:     {'T', 'R', 'Z', 'V'},
}

// Magic returns the four-byte tag of k
func (k Kind) Magic() [4]byte {
	return magics[k]
}

// MaxSize returns the largest header plus code accepted for k
func (k Kind) MaxSize() int {
	switch k {
	case KindBootloader:
		return BootloaderMaxSize
	case KindFirmware:
		return FirmwareMaxSize
	default:
		return VendorMaxSize
	}
}

func (k Kind) String() string {
	switch k {
	case KindBootloader:
		return "bootloader"
	case KindFirmware:
		return "firmware"
	case KindVendor:
		return "vendor"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// KindOf identifies the header variant at the start of data
func KindOf(data []byte) (Kind, error) {
	if len(data) < 4 {
		return 0, cosi.ErrTruncated.WithDetails("%d bytes, need a magic tag", len(data))
	}
	for kind, magic := range magics {
		if bytes.Equal(data[:4], magic[:]) {
			return kind, nil
		}
	}
	return 0, cosi.ErrBadMagic.WithDetails("unknown magic %q", data[:4])
}

// Image is a bootloader or firmware header together with its code payload
type Image struct {
	Kind      Kind
	Expiry    uint32
	Version   Version
	SigMask   cosi.Mask
	Signature cosi.Signature
	Code      []byte
}

// ParseImage decodes a bootloader or firmware image. data must hold exactly
// the header and the code it declares.
func ParseImage(data []byte) (*Image, error) {
	kind, err := KindOf(data)
	if err != nil {
		return nil, err
	}
	if kind == KindVendor {
		return nil, cosi.ErrBadMagic.WithDetails("vendor header where an image header was expected")
	}
	return parseImage(data, kind)
}

func parseImage(data []byte, kind Kind) (*Image, error) {
	if len(data) < HeaderSize {
		return nil, cosi.ErrTruncated.WithDetails("%s header: %d bytes", kind, len(data))
	}

	magic := kind.Magic()
	if !bytes.Equal(data[offMagic:offMagic+4], magic[:]) {
		return nil, cosi.ErrBadMagic.WithDetails("expected %q, got %q", magic[:], data[offMagic:offMagic+4])
	}

	hdrLen := binary.LittleEndian.Uint32(data[offHdrLen:])
	if hdrLen != HeaderSize {
		return nil, cosi.ErrBadHeaderLength.WithDetails("%s header length %d, expected %d", kind, hdrLen, HeaderSize)
	}

	for _, b := range data[offReserved:offSigMask] {
		if b != 0 {
			return nil, cosi.ErrReservedNotZero.WithDetails("%s header", kind)
		}
	}

	codeLen := binary.LittleEndian.Uint32(data[offCodeLen:])
	if err := checkImageSize(kind, uint64(hdrLen)+uint64(codeLen)); err != nil {
		return nil, err
	}

	payload := data[HeaderSize:]
	if uint64(len(payload)) < uint64(codeLen) {
		return nil, cosi.ErrTruncated.WithDetails("code length %d, %d bytes present", codeLen, len(payload))
	}
	if uint64(len(payload)) > uint64(codeLen) {
		return nil, cosi.ErrBadCodeLength.WithDetails("code length %d, %d bytes present", codeLen, len(payload))
	}

	img := &Image{
		Kind:   kind,
		Expiry: binary.LittleEndian.Uint32(data[offExpiry:]),
		Version: Version{
			Major: data[offVersion],
			Minor: data[offVersion+1],
			Patch: data[offVersion+2],
			Build: data[offVersion+3],
		},
		SigMask: cosi.Mask(data[offSigMask]),
		Code:    append([]byte(nil), payload...),
	}
	copy(img.Signature[:], data[offSig:HeaderSize])
	return img, nil
}

// checkImageSize applies the block alignment and size bounds to header plus code
func checkImageSize(kind Kind, total uint64) error {
	if total%BlockSize != 0 {
		return cosi.ErrBlockAlignment.WithDetails("%s image size %d is not a multiple of %d", kind, total, BlockSize)
	}
	if total < MinImageSize {
		return cosi.ErrImageTooSmall.WithDetails("%s image size %d, minimum %d", kind, total, MinImageSize)
	}
	if total > uint64(kind.MaxSize()) {
		return cosi.ErrImageTooLarge.WithDetails("%s image size %d, maximum %d", kind, total, kind.MaxSize())
	}
	return nil
}

// Validate checks the size rules Serialize does not enforce
func (img *Image) Validate() error {
	if img.Kind != KindBootloader && img.Kind != KindFirmware {
		return cosi.ErrBadMagic.WithDetails("image kind %s", img.Kind)
	}
	return checkImageSize(img.Kind, uint64(HeaderSize)+uint64(len(img.Code)))
}

// Serialize encodes the header. Header and code lengths are always derived
// from the image itself. With includeSignature false the signer mask and
// signature are written as zero, which is the form that gets signed.
func (img *Image) Serialize(includeSignature bool) []byte {
	out := make([]byte, HeaderSize)
	magic := img.Kind.Magic()
	copy(out[offMagic:], magic[:])
	binary.LittleEndian.PutUint32(out[offHdrLen:], HeaderSize)
	binary.LittleEndian.PutUint32(out[offExpiry:], img.Expiry)
	binary.LittleEndian.PutUint32(out[offCodeLen:], uint32(len(img.Code)))
	out[offVersion] = img.Version.Major
	out[offVersion+1] = img.Version.Minor
	out[offVersion+2] = img.Version.Patch
	out[offVersion+3] = img.Version.Build
	if includeSignature {
		out[offSigMask] = byte(img.SigMask)
		copy(out[offSig:], img.Signature[:])
	}
	return out
}

// Bytes returns the signed header followed by the code
func (img *Image) Bytes() []byte {
	out := img.Serialize(true)
	return append(out, img.Code...)
}

// SignedPrefix returns the header bytes that precede the signer mask. A
// vendor header embeds exactly these bytes to approve one firmware build.
func (img *Image) SignedPrefix() []byte {
	return img.Serialize(false)[:offSigMask]
}

// Digest is BLAKE2s-256 over the unsigned header followed by the code
func (img *Image) Digest() []byte {
	h, _ := blake2s.New256(nil)
	h.Write(img.Serialize(false))
	h.Write(img.Code)
	return h.Sum(nil)
}

// Sign signs the image with a single key and stores the signature under
// mask, which must select exactly one signer.
func (img *Image) Sign(mask cosi.Mask, sk *cosi.SecretKey, counter uint32) error {
	sig, err := signSingle(mask, sk, img.Digest(), counter)
	if err != nil {
		return err
	}
	return img.ApplySignature(mask, sig)
}

// ApplySignature stores a finished signature, such as the output of a
// signing ceremony over Digest, together with the mask of its signers.
func (img *Image) ApplySignature(mask cosi.Mask, sig cosi.Signature) error {
	if mask == 0 {
		return cosi.ErrMaskOutOfRange.WithDetails("empty signer mask")
	}
	img.SigMask = mask
	img.Signature = sig
	return nil
}

// ClearSignature removes the signature and mask
func (img *Image) ClearSignature() {
	img.SigMask = 0
	img.Signature = cosi.Signature{}
}

func signSingle(mask cosi.Mask, sk *cosi.SecretKey, digest []byte, counter uint32) (cosi.Signature, error) {
	if mask.Count() != 1 {
		return cosi.Signature{}, cosi.ErrMaskThresholdMismatch.WithDetails(
			"single-key signing needs a mask with one signer, got %#02x", uint8(mask))
	}
	return cosi.SignSingle(sk, digest, counter)
}
