// Package cli implements the formgen-orm command tree.
package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formgen-orm/pkg/prompt"
)

// NewRootCmd builds the command tree. Output goes to out; edit prompts
// through driver.
func NewRootCmd(out io.Writer, driver prompt.Driver) *cobra.Command {
	s := &settings{}

	cmd := &cobra.Command{
		Use:   "formgen-orm",
		Short: "Edit database rows and their one-to-many collections through forms",
		Long: `formgen-orm binds submitted values to a root entity form with an embedded
collection form, validates them and saves the result in one transaction.
Rows missing from a submission are deleted, new rows are inserted.

Forms, collections and tables come from YAML/JSON documents in --config,
or from the bundled authors/books example when --config is empty.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(out)

	flags := cmd.PersistentFlags()
	flags.StringVar(&s.database, "db", "library.db", "SQLite database file")
	flags.StringVar(&s.configDir, "config", "", "directory with form configuration documents")
	flags.BoolVarP(&s.verbose, "verbose", "v", false, "log form lifecycle events to stderr")
	flags.StringVar(&s.table, "table", "authors", "table holding the root records")
	flags.StringVar(&s.rootForm, "form", "AuthorForm", "form definition for the root record")
	flags.StringVar(&s.collection, "collection", "books", "collection binding to embed")

	cmd.AddCommand(initCmd(s, out))
	cmd.AddCommand(showCmd(s, out))
	cmd.AddCommand(submitCmd(s, out))
	cmd.AddCommand(editCmd(s, out, driver))
	return cmd
}

func withApp(cmd *cobra.Command, s *settings, out io.Writer, run func(context.Context, *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openApp(ctx, *s, out)
	if err != nil {
		return err
	}
	defer a.Close()
	return run(ctx, a)
}
