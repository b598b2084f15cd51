package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/worldscribe/internal/migrate"
	"github.com/roach88/worldscribe/internal/store"
	"github.com/roach88/worldscribe/internal/world"
)

// CreateOptions holds flags for the create command.
type CreateOptions struct {
	*RootOptions
	Dir string // overrides worlds.dir
}

// CreateResult is the output of the create command.
type CreateResult struct {
	Name    string `json:"name"`
	Folder  string `json:"folder"`
	Version int    `json:"version"`
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new World with the default Categories",
		Long: `Create a new World folder containing an uploads folder and a store
seeded with the default Categories (Person, Group, Place, Item, Concept).

Examples:
  worldscribe create Arda
  worldscribe create Arda --dir ~/WorldScribe/Worlds`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Dir, "dir", "", "folder to create the World in (default worlds.dir)")

	return cmd
}

func runCreate(ctx context.Context, opts *CreateOptions, name string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	dir := opts.Dir
	if dir == "" {
		dir = opts.Config.Worlds.Dir
	}

	folder, err := world.Create(ctxOrBackground(ctx), dir, name, opts.worldOptions())
	if err != nil {
		return f.Fail("failed to create World", err)
	}

	result := CreateResult{Name: name, Folder: folder, Version: migrate.Default.Latest()}
	if opts.Format == "json" {
		return f.Success(result)
	}
	fmt.Fprintf(f.Writer, "Created World %q at %s (schema version %d)\n", name, folder, result.Version)
	return nil
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate <world>",
		Short: "Upgrade a World's store to the latest schema",
		Long: `Apply pending migrations to a World's store. Migrations run on a copy of
the store; the original is replaced only if all of them succeed.

Exit codes:
  0 - Store is at the latest version
  1 - A migration failed (the original store is unchanged)
  2 - Command error (World not found, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context(), rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runMigrate(ctx context.Context, opts *RootOptions, arg string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	folder := opts.resolveWorld(arg)

	runner := migrate.NewRunner(migrate.Default,
		migrate.WithLogger(opts.Logger),
		migrate.WithBusyTimeout(opts.Config.Store.Timeout),
	)
	res, err := runner.Apply(ctxOrBackground(ctx), world.DatabasePath(folder))
	if err != nil {
		f.VerboseLog("run %s ended in state %s", res.RunID, res.State)
		return f.Fail("migration failed", err)
	}

	if opts.Format == "json" {
		return f.Success(res)
	}
	if len(res.Applied) == 0 {
		fmt.Fprintf(f.Writer, "Already at version %d, nothing to do\n", res.To)
		return nil
	}
	fmt.Fprintf(f.Writer, "Migrated from version %d to %d (applied %v)\n", res.From, res.To, res.Applied)
	return nil
}

// VersionResult is the output of the version command.
type VersionResult struct {
	Version int  `json:"version"`
	Latest  int  `json:"latest"`
	Current bool `json:"current"`
}

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "version <world>",
		Short:         "Show a World's schema version without migrating it",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersion(cmd.Context(), rootOpts, args[0], cmd)
		},
	}
}

func runVersion(ctx context.Context, opts *RootOptions, arg string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	path := world.DatabasePath(opts.resolveWorld(arg))

	if !fileExists(path) {
		return f.Fail("failed to read version", &store.Error{
			Code:    store.ErrCodeNotFound,
			Entity:  "World",
			Message: fmt.Sprintf("no store at %s", path),
		})
	}

	db, err := store.OpenDB(path, opts.Config.Store.Timeout)
	if err != nil {
		return f.Fail("failed to open store", err)
	}
	defer db.Close()

	v, err := store.ReadVersion(ctxOrBackground(ctx), db)
	if err != nil {
		return f.Fail("failed to read version", err)
	}

	result := VersionResult{Version: v, Latest: migrate.Default.Latest()}
	result.Current = result.Version >= result.Latest
	if opts.Format == "json" {
		return f.Success(result)
	}
	fmt.Fprintf(f.Writer, "Schema version %d (latest %d)\n", result.Version, result.Latest)
	return nil
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "stats <world>",
		Short:         "Show row counts of every table",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd.Context(), rootOpts, args[0], cmd)
		},
	}
}

func runStats(ctx context.Context, opts *RootOptions, arg string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	return opts.withWorld(ctx, f, arg, func(ctx context.Context, st *store.Store) error {
		counts, err := st.CountRows(ctx)
		if err != nil {
			return f.Fail("failed to count rows", err)
		}
		if opts.Format == "json" {
			return f.Success(counts)
		}
		fmt.Fprintf(f.Writer, "Categories:              %d\n", counts.Categories)
		fmt.Fprintf(f.Writer, "Fields:                  %d\n", counts.Fields)
		fmt.Fprintf(f.Writer, "Articles:                %d\n", counts.Articles)
		fmt.Fprintf(f.Writer, "Field values:            %d\n", counts.FieldValues)
		fmt.Fprintf(f.Writer, "Connections:             %d\n", counts.Connections)
		fmt.Fprintf(f.Writer, "Connection descriptions: %d\n", counts.ConnectionDescriptions)
		fmt.Fprintf(f.Writer, "Snippets:                %d\n", counts.Snippets)
		return nil
	})
}

// withWorld connects to the World named by arg, migrating it if needed,
// runs fn and disconnects.
func (o *RootOptions) withWorld(ctx context.Context, f *OutputFormatter, arg string, fn func(context.Context, *store.Store) error) error {
	ctx = ctxOrBackground(ctx)
	m := world.NewManager(o.worldOptions())

	res, err := m.Connect(ctx, o.resolveWorld(arg))
	if err != nil {
		return f.Fail("failed to connect to World", err)
	}
	defer m.Disconnect()
	if len(res.Applied) > 0 {
		f.VerboseLog("migrated from version %d to %d", res.From, res.To)
	}

	st, err := m.Current()
	if err != nil {
		return f.Fail("failed to connect to World", err)
	}
	return fn(ctx, st)
}

func ctxOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
