package binimage

import (
	"fmt"
	"os"

	"github.com/canopy-network/canopy/lib/cosi"
)

// Firmware is the content of an image file: a bootloader image, or a
// firmware image optionally preceded by the vendor header approving it.
type Firmware struct {
	Vendor *VendorHeader
	Image  *Image
}

// ParseFirmware decodes an image file of any kind
func ParseFirmware(data []byte) (*Firmware, error) {
	kind, err := KindOf(data)
	if err != nil {
		return nil, err
	}
	if kind != KindVendor {
		img, err := parseImage(data, kind)
		if err != nil {
			return nil, err
		}
		return &Firmware{Image: img}, nil
	}

	vendor, err := ParseVendorHeader(data)
	if err != nil {
		return nil, fmt.Errorf("vendor header: %w", err)
	}
	rest := data[vendor.HeaderLen():]
	img, err := parseImage(rest, KindFirmware)
	if err != nil {
		return nil, fmt.Errorf("firmware header: %w", err)
	}

	fw := &Firmware{Vendor: vendor, Image: img}
	if err := fw.checkSize(); err != nil {
		return nil, err
	}
	return fw, nil
}

// Open reads and decodes the image file at path
func Open(path string) (*Firmware, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseFirmware(data)
}

// Kind returns the kind of the contained image
func (fw *Firmware) Kind() Kind {
	return fw.Image.Kind
}

func (fw *Firmware) checkSize() error {
	if fw.Vendor == nil {
		return nil
	}
	total := fw.Vendor.HeaderLen() + HeaderSize + len(fw.Image.Code)
	if total > FirmwareMaxSize {
		return cosi.ErrImageTooLarge.WithDetails("vendor header plus firmware is %d bytes, maximum %d", total, FirmwareMaxSize)
	}
	return nil
}

// Bytes encodes the file: vendor header, if any, then the image
func (fw *Firmware) Bytes() ([]byte, error) {
	if fw.Image == nil {
		return nil, cosi.ErrTruncated.WithDetails("no image")
	}
	if err := fw.Image.Validate(); err != nil {
		return nil, err
	}
	if fw.Vendor == nil {
		return fw.Image.Bytes(), nil
	}
	if fw.Image.Kind != KindFirmware {
		return nil, cosi.ErrBadMagic.WithDetails("vendor header must precede a firmware image, not %s", fw.Image.Kind)
	}
	if err := fw.checkSize(); err != nil {
		return nil, err
	}
	out, err := fw.Vendor.Serialize(true)
	if err != nil {
		return nil, err
	}
	return append(out, fw.Image.Bytes()...), nil
}

// WriteFile encodes the file and writes it to path
func (fw *Firmware) WriteFile(path string) error {
	data, err := fw.Bytes()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
