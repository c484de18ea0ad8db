package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/ochairo/keg/formula"
	"github.com/ochairo/keg/internal/config"
	"github.com/ochairo/keg/internal/external-adapters/schema"
	"github.com/ochairo/keg/internal/external-adapters/yaml"
	"github.com/ochairo/keg/internal/external-adapters/zaplog"
)

// globalOptions holds the persistent flags shared by every subcommand
type globalOptions struct {
	debug      bool
	logFile    string
	cellarDir  string
	cacheDir   string
	formulaDir string
}

// app carries what subcommands need once flags are parsed
type app struct {
	cfg      *config.Config
	logger   *zaplog.Logger
	out      *printer
	errOut   *printer
	stderr   io.Writer
	parser   *yaml.FormulaParser
	formulas *yaml.FormulaRepository
}

func newApp(opts globalOptions, stdout, stderr io.Writer) (*app, error) {
	cfg, err := config.LoadFromEnvironment(config.Overrides{
		CellarDir:  opts.cellarDir,
		CacheDir:   opts.cacheDir,
		FormulaDir: opts.formulaDir,
		LogFile:    opts.logFile,
		Debug:      opts.debug,
	})
	if err != nil {
		return nil, err
	}

	logger, err := zaplog.New(zaplog.Config{Level: cfg.LogLevel, FilePath: cfg.LogFile, Console: stderr})
	if err != nil {
		return nil, err
	}

	validator, err := schema.NewValidator()
	if err != nil {
		_ = logger.Close()
		return nil, err
	}
	parser := yaml.NewFormulaParser(validator)

	return &app{
		cfg:      cfg,
		logger:   logger,
		out:      newPrinter(stdout),
		errOut:   newPrinter(stderr),
		stderr:   stderr,
		parser:   parser,
		formulas: yaml.NewFormulaRepository(formula.FS, cfg.FormulaDir, parser, logger),
	}, nil
}

func (a *app) close() {
	if a != nil && a.logger != nil {
		_ = a.logger.Close()
	}
}

func newRootCmd(stdout, stderr io.Writer, current **app) *cobra.Command {
	var opts globalOptions

	root := &cobra.Command{
		Use:   "keg",
		Short: "Build and install command-line tools from pinned source",
		Long: `keg executes formulas: declarative recipes that fetch a pinned source
revision, build it with an external build orchestrator for the host's target
triple, install the produced executable and smoke-test it.

Examples:
  keg list
  keg info apiserver-boot
  keg install apiserver-boot
  keg test apiserver-boot
  keg audit ./formulas/*.yml`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			a, err := newApp(opts, stdout, stderr)
			if err != nil {
				return err
			}
			*current = a
			return nil
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	flags.StringVar(&opts.logFile, "log-file", "", "also write logs to this file")
	flags.StringVar(&opts.cellarDir, "cellar", "", "install root (default: $KEG_CELLAR or ~/.keg/Cellar)")
	flags.StringVar(&opts.cacheDir, "cache", "", "source checkout cache (default: $KEG_CACHE or ~/.keg/cache)")
	flags.StringVar(&opts.formulaDir, "formula-dir", "", "directory of additional <name>.yml formulas (default: $KEG_FORMULA_DIR)")

	appFn := func() *app { return *current }
	root.AddCommand(
		newInstallCmd(appFn),
		newTestCmd(appFn),
		newInfoCmd(appFn),
		newListCmd(appFn),
		newAuditCmd(appFn),
	)
	return root
}

// run executes the CLI and returns the process exit code
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var current *app
	defer func() { current.close() }()

	root := newRootCmd(stdout, stderr, &current)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		newPrinter(stderr).Error("%v", err)
		return 1
	}
	return 0
}
