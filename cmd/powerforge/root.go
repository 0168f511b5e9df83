package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/cory-johannsen/powerforge/internal/catalog"
	"github.com/cory-johannsen/powerforge/internal/config"
	"github.com/cory-johannsen/powerforge/internal/hero"
	"github.com/cory-johannsen/powerforge/internal/observability"
	"github.com/cory-johannsen/powerforge/internal/session"
)

// app carries the state every subcommand shares once setup has run.
type app struct {
	configPath string

	cfg     config.Config
	logger  *zap.Logger
	powers  *catalog.Index
	traits  *catalog.Index
	session *session.Session
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "powerforge",
		Short: "Browse powers and traits and build heroes from them",
		Long: `powerforge loads the power and trait catalogs (XML or YAML), lets you
search them, and edits hero files that record a hero's selected powers and
traits. Heroes can be exported as PDF or Markdown and kept in a hero library.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	v := config.NewViper()
	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "path to configuration file (YAML)")
	flags.String("powers", "", "powers catalog file (overrides catalog.powers_file)")
	flags.String("traits", "", "traits catalog file (overrides catalog.traits_file)")
	flags.String("log-level", "", "log level: debug, info, warn, error (overrides logging.level)")
	for key, name := range map[string]string{
		"catalog.powers_file": "powers",
		"catalog.traits_file": "traits",
		"logging.level":       "log-level",
	} {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("binding flag %s: %v", name, err))
		}
	}

	root.PersistentPreRunE = func(*cobra.Command, []string) error {
		return a.setup(v)
	}
	root.PersistentPostRun = func(*cobra.Command, []string) {
		if a.logger != nil {
			_ = a.logger.Sync()
		}
	}

	root.AddCommand(
		a.setsCmd(),
		a.powersCmd(),
		a.traitsCmd(),
		a.showCmd(),
		a.heroCmd(),
	)
	return root
}

// setup loads configuration, the logger and both catalogs.
func (a *app) setup(v *viper.Viper) error {
	start := time.Now()
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	cfg, err := config.LoadWith(v, a.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.cfg = cfg

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	a.logger = logger

	powers, err := catalog.LoadFile(catalog.KindPower, cfg.Catalog.PowersFile)
	if err != nil {
		return err
	}
	traits, err := catalog.LoadFile(catalog.KindTrait, cfg.Catalog.TraitsFile)
	if err != nil {
		return err
	}
	a.powers = catalog.NewIndex(powers)
	a.traits = catalog.NewIndex(traits)
	a.session = session.New(a.powers, a.traits, hero.StalePolicy(cfg.Hero.StalePolicy), logger)

	logger.Debug("catalogs loaded",
		zap.String("powers_file", cfg.Catalog.PowersFile),
		zap.Int("powers", a.powers.Len()),
		zap.String("traits_file", cfg.Catalog.TraitsFile),
		zap.Int("traits", a.traits.Len()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}
