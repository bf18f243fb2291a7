package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/canopy-network/canopy/lib/cosi"
	"github.com/canopy-network/canopy/lib/cosi/internal/cli"
)

func newKeygenCmd(a *app) *cobra.Command {
	var seed string
	var proof bool

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a signer key pair",
		Long: `Generate a signer key pair. With --seed the 32-byte hex seed is used as the
secret key instead of fresh randomness. With --proof a proof of possession
is printed as well; add it to the 'proofs' config list next to the key.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var sk cosi.SecretKey
			var err error
			if seed != "" {
				sk, err = cosi.SecretKeyFromHex(seed)
			} else {
				sk, _, err = cosi.GenerateKey(nil)
			}
			if err != nil {
				return err
			}
			defer sk.Zeroize()

			pk, err := sk.PublicKey()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "secret: %s\n", sk.Hex())
			fmt.Fprintf(out, "public: %s\n", pk)
			if proof {
				p, err := cosi.ProvePossession(&sk)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "proof:  %s\n", hex.EncodeToString(p.Bytes()))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&seed, "seed", "", "32-byte hex seed to use as the secret key")
	cmd.Flags().BoolVar(&proof, "proof", false, "also print a proof of possession")
	return cmd
}

func newCombineCmd(a *app) *cobra.Command {
	var n, m int

	cmd := &cobra.Command{
		Use:   "combine [PUBKEY...]",
		Short: "Aggregate public keys for every m-subset",
		Long: `Print the aggregate public key of every m-of-n signer subset, one per line:
combination index, signer mask and aggregate key. Keys come from the
arguments, or from the 'signers' config list when none are given.

The number of subsets is capped by 'enumeration_limit' (0 disables the cap).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if m == 0 {
				m = a.cfg.Threshold
			}

			var set *cosi.SignerSet
			var err error
			if len(args) > 0 {
				var keys []cosi.PublicKey
				if keys, err = cli.ParsePublicKeys(args); err == nil {
					set, err = cosi.NewSignerSet(keys, m)
				}
			} else {
				set, err = a.cfg.SignerSetWithThreshold(m)
			}
			if err != nil {
				return err
			}
			if n != 0 && n != set.Len() {
				return fmt.Errorf("--n=%d but %d keys given", n, set.Len())
			}

			grade := cosi.NewDefaultThresholdValidator().ValidateThresholdParameters(set.Len(), set.Threshold())
			for _, warning := range grade.Warnings {
				a.log.Warn("weak threshold parameters",
					zap.String("warning", warning),
					zap.String("security_level", string(grade.SecurityLevel)))
			}

			keys, masks, err := set.AggregateKeys(a.cfg.EnumerationLimit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, mask := range masks {
				fmt.Fprintf(out, "%d 0x%02x %s\n", i, uint8(mask), keys[mask])
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&n, "n", 0, "expected number of signers (default: number of keys)")
	cmd.Flags().IntVar(&m, "m", 0, "threshold (default: config 'threshold')")
	return cmd
}
