package config

import (
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/gateway-fm/dabench/pkg/types"
)

// Subcommand names. Each selects one operation mode.
const (
	CmdDisperse = "EigenDADisperse"
	CmdStore    = "EigenDAStore"
)

// ErrHelp is returned by Resolve when help was requested and nothing should run.
var ErrHelp = errors.New("help requested")

// Resolve parses command-line arguments (without the program name) into a validated Config.
// Usage and help text are written to out. Every parse or validation failure is a
// *ConfigurationError.
func Resolve(args []string, out io.Writer) (*Config, error) {
	cfg, err := defaults()
	if err != nil {
		return nil, err
	}

	var resolved *Config
	root := newRootCmd(cfg, func(c *Config) error {
		resolved = c
		return nil
	})
	if args == nil {
		// cobra falls back to os.Args for a nil slice
		args = []string{}
	}
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(out)

	if err := root.Execute(); err != nil {
		var cfgErr *ConfigurationError
		if errors.As(err, &cfgErr) {
			return nil, cfgErr
		}
		// Unknown commands and flags come back from cobra as plain errors
		return nil, &ConfigurationError{Msg: "invalid arguments", Err: err}
	}
	if resolved == nil {
		return nil, ErrHelp
	}
	return resolved, nil
}

func newRootCmd(cfg *Config, done func(*Config) error) *cobra.Command {
	root := &cobra.Command{
		Use:   "dabench",
		Short: "Continuous EigenDA dispersal and retrieval exerciser",
		Long: `dabench repeatedly submits a fixed-size ramp payload to an EigenDA disperser,
times every round and exposes the results as Prometheus metrics.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			return configErrorf("missing subcommand: expected %s or %s", CmdDisperse, CmdStore)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ConfigurationError{Msg: "invalid flag", Err: err}
	})

	flags := root.PersistentFlags()
	flags.Uint16Var(&cfg.MetricsPort, "metrics-port", cfg.MetricsPort,
		"Port for prometheus metrics")
	flags.BoolVar(&cfg.StopAfterOne, "stop", false,
		"Stop after doing a single EigenDA store/dispersal")
	flags.Uint32Var(&cfg.RunForSecs, "run-for-secs", cfg.RunForSecs,
		"Keep running for a fixed amount of seconds")
	flags.Uint32Var(&cfg.SleepForSecs, "sleep-for-secs", cfg.SleepForSecs,
		"Sleep after every data dispersal/store call")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel,
		"Log level (debug, info, warn, error)")

	root.AddCommand(
		newModeCmd(cfg, types.ModeDisperse, CmdDisperse,
			"Disperse blobs without waiting for availability proofs",
			[]string{"eigen-da-disperse", "disperse"}, done),
		newModeCmd(cfg, types.ModeStore, CmdStore,
			"Store blobs, retrieve them and verify the bytes",
			[]string{"eigen-da-store", "store"}, done),
	)

	return root
}

func newModeCmd(cfg *Config, mode types.Mode, use, short string, aliases []string, done func(*Config) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:     use,
		Aliases: aliases,
		Short:   short,
		Args:    cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			resolved := *cfg
			resolved.Mode = mode
			if err := resolved.Validate(); err != nil {
				return err
			}
			return done(&resolved)
		},
	}
	addEigenDAFlags(cmd, &cfg.EigenDA)
	return cmd
}

func addEigenDAFlags(cmd *cobra.Command, da *EigenDAConfig) {
	flags := cmd.Flags()
	flags.IntVar(&da.BlockSize, "block-size", da.BlockSize,
		"Payload size in bytes")
	flags.StringVar(&da.DisperserRPC, "disperser-rpc", da.DisperserRPC,
		"EigenDA disperser gRPC address (host:port)")
	flags.Uint32Var(&da.QuorumID, "quorum-id", da.QuorumID,
		"Primary quorum ID")
	flags.Uint32Var(&da.AdversaryThreshold, "adversary-threshold", da.AdversaryThreshold,
		"Primary quorum adversary threshold (percent)")
	flags.Uint32Var(&da.QuorumThreshold, "quorum-threshold", da.QuorumThreshold,
		"Primary quorum threshold (percent)")
	flags.DurationVar(&da.StatusQueryRetryInterval, "status-query-retry-interval", da.StatusQueryRetryInterval,
		"Interval between blob status queries while storing")
	flags.DurationVar(&da.StatusQueryTimeout, "status-query-timeout", da.StatusQueryTimeout,
		"Maximum time to wait for a stored blob to be confirmed")
	flags.DurationVar(&da.RequestTimeout, "request-timeout", da.RequestTimeout,
		"Deadline for a single disperser RPC")
	flags.BoolVar(&da.Insecure, "insecure", da.Insecure,
		"Use plaintext gRPC (local disperser)")
}
