package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/canopy-network/canopy/lib/cosi"
	"github.com/canopy-network/canopy/lib/cosi/internal/cli"
)

// sessionFlags are the inputs that fix one signer's session
type sessionFlags struct {
	secret  string
	digest  string
	counter uint32
}

func (f *sessionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.secret, "secret", "", "hex secret key")
	cmd.Flags().StringVar(&f.digest, "digest", "", "hex digest to sign")
	cmd.Flags().Uint32Var(&f.counter, "counter", 0, "session counter, never reused with this key")
	for _, name := range []string{"secret", "digest"} {
		if err := cmd.MarkFlagRequired(name); err != nil {
			panic(fmt.Sprintf("failed to mark %s flag as required: %v", name, err))
		}
	}
}

func (f *sessionFlags) open(a *app) (*cosi.SigningSession, error) {
	sk, err := cosi.SecretKeyFromHex(f.secret)
	if err != nil {
		return nil, err
	}
	defer sk.Zeroize()

	digest, err := decodeHex("digest", f.digest)
	if err != nil {
		return nil, err
	}
	return cosi.NewSigningSession(&sk, digest, f.counter, cosi.WithAuditHandler(a.audit()))
}

func newCommitCmd(a *app) *cobra.Command {
	var flags sessionFlags
	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Round 1: print this signer's commitment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := flags.open(a)
			if err != nil {
				return err
			}
			commitment, err := session.Commit()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(commitment))
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newGlobalCommitCmd(a *app) *cobra.Command {
	var pubkeys []string
	cmd := &cobra.Command{
		Use:   "global-commit COMMITMENT...",
		Short: "Round 1: combine the signers' commitments",
		Long: `Print the combined commitment. With --pubkey, the aggregate public key of
the given signer keys is printed on a second line.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			commitments := make([][]byte, len(args))
			for i, arg := range args {
				data, err := decodeHex(fmt.Sprintf("commitment %d", i), arg)
				if err != nil {
					return err
				}
				commitments[i] = data
			}
			R, err := cosi.CombineCommitments(commitments)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, hex.EncodeToString(R.Bytes()))
			if len(pubkeys) > 0 {
				keys, err := cli.ParsePublicKeys(pubkeys)
				if err != nil {
					return err
				}
				A, err := cosi.CombineKeys(keys)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, A)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&pubkeys, "pubkey", nil, "signer public keys to aggregate")
	return cmd
}

func newSignCmd(a *app) *cobra.Command {
	var flags sessionFlags
	var globalCommit, globalPubkey string

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Round 2: print this signer's partial signature",
		Long: `Print this signer's partial signature over the digest, bound to the combined
commitment and aggregate public key. The commitment is derived again from
the secret key, digest and counter, so they must match round 1 exactly.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			R, err := decodeHex("global-commit", globalCommit)
			if err != nil {
				return err
			}
			A, err := cosi.PublicKeyFromHex(globalPubkey)
			if err != nil {
				return err
			}

			session, err := flags.open(a)
			if err != nil {
				return err
			}
			if _, err := session.Commit(); err != nil {
				return err
			}
			partial, err := session.Sign(R, A)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(partial))
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&globalCommit, "global-commit", "", "hex combined commitment")
	cmd.Flags().StringVar(&globalPubkey, "global-pubkey", "", "hex aggregate public key")
	for _, name := range []string{"global-commit", "global-pubkey"} {
		if err := cmd.MarkFlagRequired(name); err != nil {
			panic(fmt.Sprintf("failed to mark %s flag as required: %v", name, err))
		}
	}
	return cmd
}

func newGlobalSignCmd(a *app) *cobra.Command {
	var globalCommit, globalPubkey, digest string

	cmd := &cobra.Command{
		Use:   "global-sign PARTIAL...",
		Short: "Round 2: combine partial signatures",
		Long: `Print the final signature. With --global-pubkey and --digest the signature is
checked before it is printed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			R, err := decodeHex("global-commit", globalCommit)
			if err != nil {
				return err
			}
			partials := make([][]byte, len(args))
			for i, arg := range args {
				if partials[i], err = decodeHex(fmt.Sprintf("partial %d", i), arg); err != nil {
					return err
				}
			}

			sig, err := cosi.CombineSignatureBytes(R, partials)
			if err != nil {
				return err
			}

			if globalPubkey != "" && digest != "" {
				A, err := cosi.PublicKeyFromHex(globalPubkey)
				if err != nil {
					return err
				}
				d, err := decodeHex("digest", digest)
				if err != nil {
					return err
				}
				if err := cosi.Verify(A, d, sig); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), sig)
			return nil
		},
	}
	cmd.Flags().StringVar(&globalCommit, "global-commit", "", "hex combined commitment")
	cmd.Flags().StringVar(&globalPubkey, "global-pubkey", "", "hex aggregate public key, to check the result")
	cmd.Flags().StringVar(&digest, "digest", "", "hex digest, to check the result")
	if err := cmd.MarkFlagRequired("global-commit"); err != nil {
		panic(fmt.Sprintf("failed to mark global-commit flag as required: %v", err))
	}
	return cmd
}
