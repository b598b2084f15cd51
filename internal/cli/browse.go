package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/worldscribe/internal/store"
)

// CategoryListing is one Category with its Field names.
type CategoryListing struct {
	store.Category
	Fields []string `json:"fields"`
}

// NewCategoriesCommand creates the categories command.
func NewCategoriesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "categories <world>",
		Short:         "List Categories and their Fields",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCategories(cmd.Context(), rootOpts, args[0], cmd)
		},
	}
}

func runCategories(ctx context.Context, opts *RootOptions, arg string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	return opts.withWorld(ctx, f, arg, func(ctx context.Context, st *store.Store) error {
		cats, err := st.GetCategories(ctx, 0, 0)
		if err != nil {
			return f.Fail("failed to list categories", err)
		}

		listings := make([]CategoryListing, 0, len(cats))
		for _, c := range cats {
			fields, err := st.GetFieldsInCategory(ctx, c.ID, 0, 0)
			if err != nil {
				return f.Fail("failed to list fields", err)
			}
			names := make([]string, 0, len(fields))
			for _, field := range fields {
				names = append(names, field.Name)
			}
			listings = append(listings, CategoryListing{Category: c, Fields: names})
		}

		if opts.Format == "json" {
			return f.Success(listings)
		}
		if len(listings) == 0 {
			fmt.Fprintln(f.Writer, "No categories.")
			return nil
		}
		for _, l := range listings {
			fmt.Fprintf(f.Writer, "%d\t%s\t[%s]\n", l.ID, l.Name, strings.Join(l.Fields, ", "))
		}
		return nil
	})
}

// ArticlesOptions holds flags for the articles command.
type ArticlesOptions struct {
	*RootOptions
	Category int64
	Offset   int
	Limit    int
}

// NewArticlesCommand creates the articles command.
func NewArticlesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ArticlesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "articles <world>",
		Short: "List Articles of the World or of one Category",
		Long: `List Articles ordered by name.

Examples:
  worldscribe articles Arda
  worldscribe articles Arda --category 3 --limit 20`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArticles(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.Category, "category", 0, "only list Articles of this Category id")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "number of Articles to skip")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of Articles (0 = all)")

	return cmd
}

func runArticles(ctx context.Context, opts *ArticlesOptions, arg string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	return opts.withWorld(ctx, f, arg, func(ctx context.Context, st *store.Store) error {
		var arts []store.Article
		var err error
		if opts.Category != 0 {
			arts, err = st.GetArticlesInCategory(ctx, opts.Category, opts.Offset, opts.Limit)
		} else {
			arts, err = st.GetArticlesInWorld(ctx, opts.Offset, opts.Limit)
		}
		if err != nil {
			return f.Fail("failed to list articles", err)
		}

		if opts.Format == "json" {
			return f.Success(arts)
		}
		if len(arts) == 0 {
			fmt.Fprintln(f.Writer, "No articles.")
			return nil
		}
		for _, a := range arts {
			fmt.Fprintf(f.Writer, "%d\t%s\tcategory %d\n", a.ID, a.Name, a.CategoryID)
		}
		return nil
	})
}

// NewConnectionsCommand creates the connections command.
func NewConnectionsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "connections <world> <article-id>",
		Short:         "List an Article's connections",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConnections(cmd.Context(), rootOpts, args[0], args[1], cmd)
		},
	}
}

func runConnections(ctx context.Context, opts *RootOptions, arg, rawID string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	articleID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || articleID <= 0 {
		return f.Invalid(fmt.Sprintf("invalid article id %q", rawID), nil)
	}

	return opts.withWorld(ctx, f, arg, func(ctx context.Context, st *store.Store) error {
		article, err := st.GetArticle(ctx, articleID)
		if err != nil {
			return f.Fail("failed to get article", err)
		}
		conns, err := st.GetConnections(ctx, articleID, 0, 0)
		if err != nil {
			return f.Fail("failed to list connections", err)
		}

		if opts.Format == "json" {
			return f.Success(conns)
		}
		if len(conns) == 0 {
			fmt.Fprintf(f.Writer, "%s has no connections.\n", article.Name)
			return nil
		}
		for _, c := range conns {
			role := c.OtherArticleRole
			if role == "" {
				role = "-"
			}
			fmt.Fprintf(f.Writer, "%d\t%s\t%s\t%s\n", c.ID, c.OtherArticleName, role, c.Description)
		}
		return nil
	})
}
