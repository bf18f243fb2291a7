package main

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/canopy-network/canopy/lib/cosi/binimage"
)

func printFirmware(w io.Writer, fw *binimage.Firmware) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	if v := fw.Vendor; v != nil {
		digest, err := v.Digest()
		if err != nil {
			return err
		}
		fmt.Fprintln(tw, "vendor header")
		fmt.Fprintf(tw, "  length:\t%d\n", v.HeaderLen())
		fmt.Fprintf(tw, "  expiry:\t%d\n", v.Expiry)
		fmt.Fprintf(tw, "  version:\t%d.%d\n", v.VersionMajor, v.VersionMinor)
		fmt.Fprintf(tw, "  threshold:\t%d of %d\n", v.Threshold, len(v.Keys))
		for i, key := range v.Keys {
			fmt.Fprintf(tw, "  key %d:\t%s\n", i, key)
		}
		fmt.Fprintf(tw, "  label:\t%q\n", v.Label)
		fmt.Fprintf(tw, "  sigmask:\t0x%02x\n", uint8(v.SigMask))
		fmt.Fprintf(tw, "  signature:\t%s\n", v.Signature)
		fmt.Fprintf(tw, "  digest:\t%s\n", hex.EncodeToString(digest))
		fmt.Fprintln(tw)
	}

	img := fw.Image
	fmt.Fprintf(tw, "%s header\n", img.Kind)
	fmt.Fprintf(tw, "  code length:\t%d\n", len(img.Code))
	fmt.Fprintf(tw, "  expiry:\t%d\n", img.Expiry)
	fmt.Fprintf(tw, "  version:\t%s\n", img.Version)
	fmt.Fprintf(tw, "  sigmask:\t0x%02x\n", uint8(img.SigMask))
	fmt.Fprintf(tw, "  signature:\t%s\n", img.Signature)
	fmt.Fprintf(tw, "  digest:\t%s\n", hex.EncodeToString(img.Digest()))
	if fw.Vendor != nil {
		approved := "no"
		if bytes.Equal(fw.Vendor.Image, img.SignedPrefix()) {
			approved = "yes"
		}
		fmt.Fprintf(tw, "  vendor approved:\t%s\n", approved)
	}
	return tw.Flush()
}
