package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/worldscribe/internal/config"
	"github.com/roach88/worldscribe/internal/logger"
	"github.com/roach88/worldscribe/internal/world"
)

// RootOptions holds global flags for all commands, and the configuration
// and logger they produce.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	// Config and Logger are set by the root command before any subcommand
	// runs. Tests may preset Logger to silence output.
	Config *config.Config
	Logger *logger.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the worldscribe CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worldscribe",
		Short: "WorldScribe - worldbuilding store tools",
		Long:  "Create, migrate, inspect and populate WorldScribe Worlds from the command line.",
		// Commands report their own errors; main prints the rest.
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return opts.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.Logger != nil {
				opts.Logger.Sync()
			}
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to a YAML config file")

	// Add subcommands
	cmd.AddCommand(NewCreateCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewVersionCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewCategoriesCommand(opts))
	cmd.AddCommand(NewArticlesCommand(opts))
	cmd.AddCommand(NewConnectionsCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))

	return cmd
}

// setup loads the configuration and builds the logger.
func (o *RootOptions) setup() error {
	if o.Config == nil {
		cfg, err := config.Load(config.Options{ConfigPath: o.ConfigPath})
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load config", err)
		}
		o.Config = cfg
	}

	if o.Logger == nil {
		level := o.Config.Log.Level
		if o.Verbose {
			level = "debug"
		}
		l, err := logger.New(o.Config.Log.Mode, level)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to create logger", err)
		}
		o.Logger = l
	}
	return nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

func (o *RootOptions) worldOptions() world.Options {
	return world.Options{
		BusyTimeout: o.Config.Store.Timeout,
		Logger:      o.Logger,
	}
}

// resolveWorld turns a command argument into a World folder: an existing
// directory is used as is, anything else is taken as a name under
// worlds.dir.
func (o *RootOptions) resolveWorld(arg string) string {
	if info, err := os.Stat(arg); err == nil && info.IsDir() {
		return arg
	}
	return filepath.Join(o.Config.Worlds.Dir, arg)
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
