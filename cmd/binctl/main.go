package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/canopy-network/canopy/lib/cosi"
	"github.com/canopy-network/canopy/lib/cosi/binimage"
	"github.com/canopy-network/canopy/lib/cosi/internal/cli"
)

type options struct {
	cfgFile string

	sign    bool
	vendor  bool
	index   int
	secret  string
	counter uint32

	applyMask uint8
	signature string

	setVersion string

	verify bool
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var opts options

	cmd := &cobra.Command{
		Use:   "binctl FILE",
		Short: "Inspect, sign and verify bootloader and firmware images",
		Long: `binctl prints the headers of a bootloader or firmware image file.

With --sign the image header (or the vendor header, with --vendor) is signed
by the single signer --index using --secret, and the file is rewritten.
With --apply-mask and --signature a signature produced by a signing ceremony
is stored instead. --set-version rewrites the image header version, which
drops the image signature and, when a vendor header is present, re-approves
the image and drops the vendor signature. With --verify the file is checked against the signer set
from the config file.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(v, opts.cfgFile)
			if err != nil {
				return err
			}
			log, err := cli.NewLogger(cfg.Verbose)
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			defer func() { _ = log.Sync() }()

			return run(cmd, args[0], &opts, cfg, log)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.cfgFile, "config", "", "config file (default: $HOME/.cosi/config.yaml)")
	flags.BoolP("verbose", "v", false, "verbose output")
	flags.BoolVar(&opts.sign, "sign", false, "sign with a single key and rewrite the file")
	flags.BoolVar(&opts.vendor, "vendor", false, "operate on the vendor header instead of the image header")
	flags.IntVar(&opts.index, "index", -1, "signer index for --sign")
	flags.StringVar(&opts.secret, "secret", "", "hex secret key for --sign")
	flags.Uint32Var(&opts.counter, "counter", 0, "session counter for --sign")
	flags.Uint8Var(&opts.applyMask, "apply-mask", 0, "signer mask of --signature")
	flags.StringVar(&opts.signature, "signature", "", "hex signature to store")
	flags.BoolVar(&opts.verify, "verify", false, "verify against the configured signer set")
	flags.StringVar(&opts.setVersion, "set-version", "", "set the image version (major.minor.patch[+build])")
	cmd.MarkFlagsRequiredTogether("sign", "index", "secret")
	cmd.MarkFlagsRequiredTogether("apply-mask", "signature")
	cmd.MarkFlagsMutuallyExclusive("sign", "apply-mask")

	if err := v.BindPFlag("verbose", flags.Lookup("verbose")); err != nil {
		panic(fmt.Sprintf("failed to bind verbose flag: %v", err))
	}
	return cmd
}

func run(cmd *cobra.Command, path string, opts *options, cfg *cli.Config, log *zap.Logger) error {
	fw, err := binimage.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	if opts.vendor && fw.Vendor == nil {
		return fmt.Errorf("%s has no vendor header", path)
	}

	out := cmd.OutOrStdout()
	modified := false

	if opts.setVersion != "" {
		version, err := binimage.ParseVersion(opts.setVersion)
		if err != nil {
			return err
		}
		setVersion(fw, version)
		modified = true
		log.Info("version set", zap.String("file", path), zap.Stringer("version", version))
	}

	switch {
	case opts.sign:
		if err := signFile(fw, opts); err != nil {
			return err
		}
		modified = true
		log.Info("signed", zap.String("file", path), zap.Int("index", opts.index), zap.Bool("vendor", opts.vendor))

	case opts.signature != "":
		sig, err := cosi.SignatureFromHex(opts.signature)
		if err != nil {
			return err
		}
		mask := cosi.Mask(opts.applyMask)
		if opts.vendor {
			err = fw.Vendor.ApplySignature(mask, sig)
		} else {
			err = fw.Image.ApplySignature(mask, sig)
		}
		if err != nil {
			return err
		}
		modified = true
		log.Info("signature applied", zap.String("file", path), zap.Uint8("mask", opts.applyMask), zap.Bool("vendor", opts.vendor))
	}

	if modified {
		if err := fw.WriteFile(path); err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote %s\n\n", path)
	}

	if err := printFirmware(out, fw); err != nil {
		return err
	}

	if opts.verify {
		set, err := cfg.SignerSet()
		if err != nil {
			return err
		}
		verifier := binimage.NewVerifier(binimage.WithAudit(cli.NewAuditLogger(log)))
		if err := verifier.VerifyFirmware(fw, set); err != nil {
			return err
		}
		fmt.Fprintln(out, "\nsignatures OK")
	}
	return nil
}

// setVersion changes the image version. Both signatures cover the version,
// so they are cleared, and the vendor header is re-bound to the new image.
func setVersion(fw *binimage.Firmware, version binimage.Version) {
	fw.Image.Version = version
	fw.Image.ClearSignature()
	if fw.Vendor != nil {
		fw.Vendor.Approve(fw.Image)
		fw.Vendor.ClearSignature()
	}
}

func signFile(fw *binimage.Firmware, opts *options) error {
	sk, err := cosi.SecretKeyFromHex(opts.secret)
	if err != nil {
		return err
	}
	defer sk.Zeroize()

	mask, err := cosi.MaskFromIndices(opts.index)
	if err != nil {
		return err
	}
	if opts.vendor {
		return fw.Vendor.Sign(mask, &sk, opts.counter)
	}
	return fw.Image.Sign(mask, &sk, opts.counter)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
