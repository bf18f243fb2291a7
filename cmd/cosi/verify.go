package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2s"

	"github.com/canopy-network/canopy/lib/cosi"
)

func newVerifyCmd(a *app) *cobra.Command {
	var pubkey, signature string
	var mask uint8

	cmd := &cobra.Command{
		Use:   "verify FILE",
		Short: "Check a signature over the BLAKE2s-256 digest of a file",
		Long: `Check a signature over the BLAKE2s-256 digest of FILE. The key is either
given with --pubkey, or resolved with --mask from the configured signers.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(filepath.Clean(args[0]))
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			sum := blake2s.Sum256(data)
			digest := sum[:]

			sig, err := cosi.SignatureFromHex(signature)
			if err != nil {
				return err
			}

			var key cosi.PublicKey
			switch {
			case pubkey != "" && mask != 0:
				return fmt.Errorf("--pubkey and --mask are mutually exclusive")
			case pubkey != "":
				if key, err = cosi.PublicKeyFromHex(pubkey); err != nil {
					return err
				}
			case mask != 0:
				set, err := a.cfg.SignerSet()
				if err != nil {
					return err
				}
				if key, err = set.AggregateKey(cosi.Mask(mask)); err != nil {
					return err
				}
			default:
				return fmt.Errorf("one of --pubkey or --mask is required")
			}

			if err := cosi.Verify(key, digest, sig); err != nil {
				a.log.Warn("signature rejected",
					zap.String("file", args[0]),
					zap.String("digest", hex.EncodeToString(digest)),
					zap.String("public_key", key.String()),
					zap.Error(err))
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "valid signature over %s by %s\n", hex.EncodeToString(digest), key)
			return nil
		},
	}
	cmd.Flags().StringVar(&pubkey, "pubkey", "", "hex public key")
	cmd.Flags().Uint8Var(&mask, "mask", 0, "signer mask selecting from the configured signers")
	cmd.Flags().StringVar(&signature, "signature", "", "hex signature")
	if err := cmd.MarkFlagRequired("signature"); err != nil {
		panic(fmt.Sprintf("failed to mark signature flag as required: %v", err))
	}
	return cmd
}
