package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/worldscribe/internal/fixture"
	"github.com/roach88/worldscribe/internal/store"
)

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <world> <fixture.yaml>",
		Short: "Add Categories, Articles and Connections from a YAML file",
		Long: `Build the contents described by a YAML fixture inside an existing World.
Categories that already exist are reused; their missing Fields are added.

Example:
  worldscribe import Arda ./arda.yaml`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), rootOpts, args[0], args[1], cmd)
		},
	}
}

func runImport(ctx context.Context, opts *RootOptions, arg, path string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	w, err := fixture.Load(path)
	if err != nil {
		return f.Invalid("failed to load fixture", err)
	}
	f.VerboseLog("loaded fixture %s: %d categories, %d connections", path, len(w.Categories), len(w.Connections))

	return opts.withWorld(ctx, f, arg, func(ctx context.Context, st *store.Store) error {
		applied, err := fixture.Apply(ctx, st, w)
		if err != nil {
			return f.Fail("import failed", err)
		}
		if opts.Format == "json" {
			return f.Success(applied)
		}
		fmt.Fprintf(f.Writer, "Imported %d categories, %d articles, %d connections\n",
			len(applied.Categories), len(applied.Articles), len(applied.Connections))
		return nil
	})
}
