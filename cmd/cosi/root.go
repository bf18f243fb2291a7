package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/canopy-network/canopy/lib/cosi"
	"github.com/canopy-network/canopy/lib/cosi/internal/cli"
)

// Version information - set via ldflags at build time
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// newLogger builds the logger installed before each command runs
var newLogger = cli.NewLogger

// app carries what every subcommand needs once flags and config are parsed
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *cli.Config
	log     *zap.Logger
}

func (a *app) audit() cosi.AuditEventHandler {
	return cli.NewAuditLogger(a.log)
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "cosi",
		Short: "Collective Ed25519 signing for m-of-n signer sets",
		Long: `cosi runs each signer's side of a two-round collective signing session and
combines the results into one plain Ed25519 signature.

Round 1: every signer runs 'cosi commit'; 'cosi global-commit' sums the commitments.
Round 2: every signer runs 'cosi sign' against the combined commitment and
aggregate public key; 'cosi global-sign' sums the partial signatures.

Never reuse a counter with the same secret key for a different digest.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(a.v, a.cfgFile)
			if err != nil {
				return err
			}
			a.cfg = cfg

			log, err := newLogger(cfg.Verbose)
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			a.log = log
			if cfg.Verbose && a.v.ConfigFileUsed() != "" {
				log.Debug("using config file", zap.String("path", a.v.ConfigFileUsed()))
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: $HOME/.cosi/config.yaml)")
	root.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	if err := a.v.BindPFlag("verbose", root.PersistentFlags().Lookup("verbose")); err != nil {
		panic(fmt.Sprintf("failed to bind verbose flag: %v", err))
	}

	root.AddCommand(
		newKeygenCmd(a),
		newCombineCmd(a),
		newCommitCmd(a),
		newGlobalCommitCmd(a),
		newSignCmd(a),
		newGlobalSignCmd(a),
		newVerifyCmd(a),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "cosi version %s\n", Version)
			fmt.Fprintf(out, "Git commit: %s\n", GitCommit)
			fmt.Fprintf(out, "Build date: %s\n", BuildTime)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
		},
	}
}

// decodeHex decodes a hex flag or argument, naming it on failure
func decodeHex(name, s string) ([]byte, error) {
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, cosi.ErrInvalidHex.WithCause(err))
	}
	return data, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
