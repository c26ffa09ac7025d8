// Package commands implements the rasterprefetch command line.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pspoerri/rasterprefetch/internal/config"
	"github.com/pspoerri/rasterprefetch/internal/logger"
)

// Version information injected at build time.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
	verbose    bool
}

// NewRootCmd builds the command tree. A fresh tree is built per call so that
// tests do not share flag state.
func NewRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "rasterprefetch",
		Short: "Stream large rasters through a predictive prefetch cache",
		Long: `rasterprefetch streams a large raster region by region through a
single-slot predictive cache. While the downstream filter works on one region,
the cache guesses the next one and fetches it in the background.

Use "rasterprefetch [command] --help" for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "config file (YAML)")
	pf.StringVar(&g.logLevel, "log-level", "", "log level: DEBUG, INFO, WARN, ERROR")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "verbose output (same as --log-level DEBUG)")

	root.AddCommand(
		newRunCmd(g),
		newSynthCmd(g),
		newInfoCmd(g),
		newConfigCmd(g),
		newVersionCmd(),
	)
	root.CompletionOptions.DisableDefaultCmd = true
	return root
}

// Execute runs the command line.
func Execute() error {
	return NewRootCmd().Execute()
}

// load reads the configuration and initialises the logger from it and the
// global flags.
func (g *globalFlags) load() (*config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	switch {
	case g.verbose:
		cfg.Logging.Level = "DEBUG"
	case g.logLevel != "":
		cfg.Logging.Level = g.logLevel
	}
	if err := logger.Init(cfg.Logging); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	return cfg, nil
}

func versionString() string {
	return fmt.Sprintf("rasterprefetch %s (commit %s, built %s)", Version, Commit, BuildDate)
}
