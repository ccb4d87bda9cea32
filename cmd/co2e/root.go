package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rshade/co2e-engine/internal/audit"
	"github.com/rshade/co2e-engine/internal/canonical"
	"github.com/rshade/co2e-engine/internal/carbon"
	"github.com/rshade/co2e-engine/internal/config"
	"github.com/rshade/co2e-engine/internal/factorpack"
	"github.com/rshade/co2e-engine/internal/factors"
	"github.com/rshade/co2e-engine/internal/logging"
)

// app is the per-invocation state built by the root command before any
// subcommand runs.
type app struct {
	cfg       config.Config
	logger    zerolog.Logger
	traceID   string
	registry  *factors.Registry
	estimator *carbon.Estimator
	recorder  *audit.Recorder
}

// newRootCmd builds the co2e command tree. lookupEnv is os.LookupEnv outside
// tests.
func newRootCmd(lookupEnv func(string) (string, bool)) *cobra.Command {
	a := &app{}

	var (
		configPath string
		packPath   string
		traceID    string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:           "co2e",
		Short:         "Deterministic energy to CO2e conversion",
		Long:          "co2e converts energy quantities to kg and tonnes of CO2e using versioned grid emission factors.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd, lookupEnv, configPath, packPath, traceID, debug)
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&packPath, "pack", "", "path to a YAML or JSON factor pack (default: embedded pack)")
	cmd.PersistentFlags().StringVar(&traceID, "trace-id", "", "trace id for log correlation (default: random)")
	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	cmd.AddCommand(
		newConvertCmd(a),
		newAvoidedCmd(a),
		newResolveCmd(a),
		newFactorsCmd(a),
	)
	return cmd
}

func (a *app) setup(
	cmd *cobra.Command,
	lookupEnv func(string) (string, bool),
	configPath, packPath, traceID string,
	debug bool,
) error {
	cfg := config.Default()
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return fmt.Errorf("reading config: %w", err)
		}
		if cfg, err = config.Parse(data); err != nil {
			return err
		}
	}

	// Env warnings go out before the configured logger exists.
	bootstrap := zerolog.New(cmd.ErrOrStderr()).With().Timestamp().Logger()
	cfg.ApplyEnv(lookupEnv, bootstrap)
	if debug {
		cfg.Logging.Level = zerolog.LevelDebugValue
	}

	logger, err := logging.New(cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	logger, a.traceID = logging.WithTraceID(logger, traceID)
	a.logger = logger
	a.cfg = cfg

	regOpts := []factors.Option{
		factors.WithLogger(logger),
		factors.WithUndatedPolicy(cfg.Resolver.UndatedPolicy),
	}
	if packPath == "" {
		a.registry, err = factorpack.NewDefaultRegistry(regOpts...)
	} else {
		a.registry, err = loadPack(packPath, regOpts)
	}
	if err != nil {
		return err
	}

	a.estimator = carbon.NewEstimator(a.registry,
		carbon.WithRounding(cfg.Rounding),
		carbon.WithMethodology(cfg.Methodology),
		carbon.WithLogger(logger),
	)
	a.recorder = audit.NewRecorder(
		audit.WithCanonicalOptions(canonical.WithMaxDecimals(cfg.Canonical.MaxDecimals)),
		audit.WithLogger(logger),
	)

	cliLog := logging.ComponentLogger(logger, "cli")
	cliLog.Debug().
		Str("command", cmd.Name()).
		Str("rounding", cfg.Rounding.String()).
		Str("undated_policy", string(cfg.Resolver.UndatedPolicy)).
		Msg("engine ready")
	return nil
}

func loadPack(path string, opts []factors.Option) (*factors.Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pack: %w", err)
	}
	pack, err := factorpack.Decode(data)
	if err != nil {
		return nil, err
	}
	reg := factors.NewRegistry(opts...)
	if _, err := factorpack.Install(reg, pack); err != nil {
		return nil, err
	}
	return reg, nil
}
