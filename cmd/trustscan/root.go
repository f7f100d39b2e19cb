package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trustscan/backend/config"
	"github.com/trustscan/backend/internal/bootstrap"
	"github.com/trustscan/backend/internal/logger"
	"github.com/trustscan/backend/internal/metrics"
)

const version = "1.0.0"

// options are the persistent flags shared by every subcommand.
type options struct {
	configFile string
	debug      bool
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "trustscan",
		Short:         "Product lookup and review credibility scoring",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&opts.configFile, "config", "",
		"config file (default is ./config.yaml, ./config/config.yaml, or /etc/trustscan/config.yaml)")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "trustscan version %s\n", version)
		},
	})
	root.AddCommand(newScanCommand(opts))
	root.AddCommand(newScoreCommand(opts))

	return root
}

// setup loads configuration and builds the services. requireKeys enforces the
// full validation needed to call the external APIs.
func (o *options) setup(requireKeys bool) (*config.Config, *bootstrap.Services, logger.Logger, error) {
	load := config.Read
	if requireKeys {
		load = config.Load
	}
	cfg, err := load(o.configFile)
	if err != nil {
		return nil, nil, nil, err
	}

	// The CLI keeps stdout for results; logs stay quiet unless asked for.
	cfg.Log.Level = "error"
	if o.debug {
		cfg.Log.Level = "debug"
		cfg.Log.Development = true
	}
	log, err := bootstrap.NewLogger(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	// One-shot commands gain nothing from a shared cache.
	cfg.Cache.Type = "memory"
	services, err := bootstrap.NewServices(cfg, log, metrics.New())
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, services, log, nil
}
