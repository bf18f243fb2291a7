package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canopy-network/canopy/lib/cosi"
	"github.com/canopy-network/canopy/lib/cosi/binimage"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

type fixture struct {
	dir     string
	secrets []cosi.SecretKey
	publics []cosi.PublicKey
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	secrets, publics, err := cosi.DeriveKeySet([]byte("binctl command test seed"), "binctl", 3)
	require.NoError(t, err)
	return &fixture{dir: t.TempDir(), secrets: secrets, publics: publics}
}

func (f *fixture) config(t *testing.T, threshold int) string {
	t.Helper()
	cfg := "threshold: " + strconv.Itoa(threshold) + "\nsigners:\n"
	for _, pk := range f.publics {
		cfg += "  - " + pk.String() + "\n"
	}
	path := filepath.Join(f.dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return path
}

func (f *fixture) write(t *testing.T, name string, fw *binimage.Firmware) string {
	t.Helper()
	path := filepath.Join(f.dir, name)
	require.NoError(t, fw.WriteFile(path))
	return path
}

func newImage(kind binimage.Kind) *binimage.Image {
	return &binimage.Image{
		Kind:    kind,
		Version: binimage.Version{Major: 2, Minor: 0, Patch: 1, Build: 5},
		Code:    bytes.Repeat([]byte{0xa5}, 15*binimage.BlockSize),
	}
}

func TestPrintAndSign(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "bootloader.bin", &binimage.Firmware{Image: newImage(binimage.KindBootloader)})

	out, err := runCLI(t, path)
	require.NoError(t, err)
	assert.Contains(t, out, "bootloader header")
	assert.Contains(t, out, "2.0.1+5")
	assert.Regexp(t, `sigmask:\s+0x00`, out)

	out, err = runCLI(t, path, "--sign", "--index", "1", "--secret", f.secrets[1].Hex())
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+path)
	assert.Contains(t, out, "0x02")

	fw, err := binimage.Open(path)
	require.NoError(t, err)
	set, err := cosi.NewSignerSet(f.publics, 1)
	require.NoError(t, err)
	require.NoError(t, binimage.VerifyFirmware(fw, set))

	cfg := f.config(t, 1)
	out, err = runCLI(t, path, "--config", cfg, "--verify")
	require.NoError(t, err)
	assert.Contains(t, out, "signatures OK")

	// the configured threshold does not match the single signer
	cfg = f.config(t, 2)
	_, err = runCLI(t, path, "--config", cfg, "--verify")
	assert.ErrorIs(t, err, cosi.ErrMaskThresholdMismatch)
}

func TestApplyCeremonySignature(t *testing.T) {
	f := newFixture(t)
	img := newImage(binimage.KindFirmware)
	path := f.write(t, "firmware.bin", &binimage.Firmware{Image: img})

	set, err := cosi.NewSignerSet(f.publics, 2)
	require.NoError(t, err)
	mask, err := cosi.MaskFromIndices(0, 2)
	require.NoError(t, err)

	digest := img.Digest()
	ceremony, err := cosi.NewCeremony(set, mask, digest)
	require.NoError(t, err)
	var participants []cosi.Participant
	for _, i := range mask.Indices() {
		session, err := cosi.NewSigningSession(&f.secrets[i], digest, 0)
		require.NoError(t, err)
		participants = append(participants, cosi.NewLocalParticipant(i, session))
	}
	sig, err := cosi.RunCeremony(t.Context(), ceremony, participants)
	require.NoError(t, err)

	_, err = runCLI(t, path, "--apply-mask", "5", "--signature", sig.String())
	require.NoError(t, err)

	out, err := runCLI(t, path, "--config", f.config(t, 2), "--verify")
	require.NoError(t, err)
	assert.Regexp(t, `sigmask:\s+0x05`, out)
	assert.Contains(t, out, "signatures OK")
}

func TestVendorFile(t *testing.T) {
	f := newFixture(t)
	img := newImage(binimage.KindFirmware)
	require.NoError(t, img.Sign(0x01, &f.secrets[0], 0))

	vendor := &binimage.VendorHeader{
		VersionMajor: 1,
		Threshold:    1,
		Keys:         f.publics[:1],
		Label:        "test vendor",
	}
	vendor.Approve(img)
	path := f.write(t, "firmware.bin", &binimage.Firmware{Vendor: vendor, Image: img})

	out, err := runCLI(t, path)
	require.NoError(t, err)
	assert.Contains(t, out, "vendor header")
	assert.Contains(t, out, `"test vendor"`)
	assert.Regexp(t, `vendor approved:\s+yes`, out)

	// the vendor header is signed by root signer 2
	_, err = runCLI(t, path, "--vendor", "--sign", "--index", "2", "--secret", f.secrets[2].Hex())
	require.NoError(t, err)

	out, err = runCLI(t, path, "--config", f.config(t, 1), "--verify")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "signatures OK"))
}

func TestRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(f.dir, "garbage.bin")
	require.NoError(t, os.WriteFile(path, []byte("TRZXgarbage"), 0o600))

	_, err := runCLI(t, path)
	assert.ErrorIs(t, err, cosi.ErrBadMagic)

	good := f.write(t, "bootloader.bin", &binimage.Firmware{Image: newImage(binimage.KindBootloader)})
	_, err = runCLI(t, good, "--vendor", "--sign", "--index", "0", "--secret", f.secrets[0].Hex())
	assert.Error(t, err)

	_, err = runCLI(t, good, "--sign", "--index", "0")
	assert.Error(t, err)
}

func TestSetVersion(t *testing.T) {
	f := newFixture(t)
	img := newImage(binimage.KindFirmware)
	require.NoError(t, img.Sign(0x01, &f.secrets[0], 0))

	vendor := &binimage.VendorHeader{
		VersionMajor: 1,
		Threshold:    1,
		Keys:         f.publics[:1],
		Label:        "test vendor",
	}
	vendor.Approve(img)
	require.NoError(t, vendor.Sign(0x04, &f.secrets[2], 0))
	path := f.write(t, "firmware.bin", &binimage.Firmware{Vendor: vendor, Image: img})

	_, err := runCLI(t, path, "--config", f.config(t, 1), "--verify")
	require.NoError(t, err)

	out, err := runCLI(t, path, "--set-version", "3.1.4+1")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+path)
	assert.Regexp(t, `version:\s+3\.1\.4\+1`, out)
	assert.Regexp(t, `vendor approved:\s+yes`, out)
	assert.NotRegexp(t, `sigmask:\s+0x0[14]`, out)

	fw, err := binimage.Open(path)
	require.NoError(t, err)
	assert.Equal(t, binimage.Version{Major: 3, Minor: 1, Patch: 4, Build: 1}, fw.Image.Version)
	assert.Zero(t, fw.Image.SigMask)
	assert.Zero(t, fw.Vendor.SigMask)

	// the old signatures no longer cover the file
	_, err = runCLI(t, path, "--config", f.config(t, 1), "--verify")
	assert.Error(t, err)

	_, err = runCLI(t, path, "--set-version", "3.1.4-rc1")
	assert.Error(t, err)
}
