package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	cqlmigrate "github.com/carnegie-technologies/cqlmigrate"
	"github.com/carnegie-technologies/cqlmigrate/internal/config"
	"github.com/carnegie-technologies/cqlmigrate/internal/discovery"
	"github.com/carnegie-technologies/cqlmigrate/internal/lock"
	gocqlstore "github.com/carnegie-technologies/cqlmigrate/internal/store/gocql"
)

const schemaAgreementRetryInterval = time.Second

var (
	cfgFile string

	flagMigrationRoot     string
	flagInitFilename      string
	flagBootstrapFilename string
	flagContactPoints     string
	flagTimeoutMS         int
	flagDebug             bool
)

var rootCmd = &cobra.Command{
	Use:   "cqlmigrate",
	Short: "Apply CQL schema migrations across a Cassandra-family cluster",
	Long: `cqlmigrate runs init, bootstrap and migration scripts laid out under a
migration root directory against a Cassandra-family CQL cluster, recording
applied state so reruns are safe and idempotent.`,
	RunE:          run,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&cfgFile, "config", "", "config file (optional)")
	f.StringVar(&flagMigrationRoot, "migration-root", "", "migration root directory")
	f.StringVar(&flagInitFilename, "init-filename", "", "init script filename at the migration root")
	f.StringVar(&flagBootstrapFilename, "bootstrap-filename", "", "bootstrap script filename at keyspace depth")
	f.StringVar(&flagContactPoints, "contact-points", "", "space-separated list of cluster contact points")
	f.IntVar(&flagTimeoutMS, "migration-client-timeout-ms", 0, "per-statement driver timeout in milliseconds")
	f.BoolVar(&flagDebug, "debug", false, "verbose logging")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cqlmigrate.ExitFailure)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	cfg.MigrationRoot = resolveString(flagMigrationRoot, cfg.MigrationRoot)
	cfg.InitFilename = resolveString(flagInitFilename, cfg.InitFilename)
	cfg.BootstrapFilename = resolveString(flagBootstrapFilename, cfg.BootstrapFilename)
	cfg.ContactPoints = resolveString(flagContactPoints, cfg.ContactPoints)
	cfg.Debug = resolveBool(flagDebug, cfg.Debug)
	if flagTimeoutMS > 0 {
		cfg.MigrationClientTimeoutMS = flagTimeoutMS
	}

	level := zerolog.InfoLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()

	gw, err := gocqlstore.Open(gocqlstore.Config{
		ContactPoints: cfg.ContactPointList(),
		Keyspace:      "cqlmigrate",
		Timeout:       cfg.MigrationClientTimeout(),
	}, &logger)
	if err != nil {
		return fmt.Errorf("failed to connect to cluster: %w", err)
	}
	defer gw.Close()

	lck, err := lock.New(gw, &logger)
	if err != nil {
		return fmt.Errorf("failed to initialize lock: %w", err)
	}

	discCfg := discovery.Config{
		InitFilename:      cfg.InitFilename,
		BootstrapFilename: cfg.BootstrapFilename,
		ClientTimeout:     cfg.MigrationClientTimeout(),
	}

	orch := cqlmigrate.New(os.DirFS(cfg.MigrationRoot), ".", discCfg, gw, lck, schemaAgreementRetryInterval, &logger)

	code, shouldExit := orch.Run(cmd.Context())
	if shouldExit {
		os.Exit(code)
	}

	return nil
}

// resolveString returns the first non-empty value, implementing flag > config precedence.
func resolveString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func resolveBool(values ...bool) bool {
	for _, v := range values {
		if v {
			return true
		}
	}
	return false
}
