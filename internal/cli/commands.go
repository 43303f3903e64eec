package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formgen-orm/pkg/form"
	"github.com/goliatone/go-formgen-orm/pkg/prompt"
)

func initCmd(s *settings, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the configured tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, s, out, func(ctx context.Context, a *app) error {
				if err := a.store.Migrate(ctx); err != nil {
					return err
				}
				printOK(out, "database %s ready (%d tables)", s.database, len(a.config.Tables()))
				return nil
			})
		},
	}
}

func showCmd(s *settings, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a root record and its collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, s, out, func(ctx context.Context, a *app) error {
				record, err := a.record(ctx, args[0])
				if err != nil {
					return err
				}
				root, collection, _, err := a.build(ctx, record)
				if err != nil {
					return err
				}
				return printRecord(out, a.store, record, root.Fields(), collection.Alias())
			})
		},
	}
}

func submitCmd(s *settings, out io.Writer) *cobra.Command {
	var valuesPath string

	cmd := &cobra.Command{
		Use:   "submit <id|new>",
		Short: "Bind a values document to a record and save it",
		Long: `Bind a YAML or JSON values document to the root record and save it.

The collection is keyed by slot: persistent_<id> for existing rows and
transient_<n> for new ones. Existing rows left out are deleted.

Example values:
  name: Ursula K. Le Guin
  Books:
    persistent_1: { title: A Wizard of Earthsea, pages: 183 }
    transient_0: { title: The Left Hand of Darkness }`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := readValues(valuesPath, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return withApp(cmd, s, out, func(ctx context.Context, a *app) error {
				record, err := a.record(ctx, args[0])
				if err != nil {
					return err
				}
				root, collection, _, err := a.build(ctx, record)
				if err != nil {
					return err
				}
				if err := a.save(ctx, root, values); err != nil {
					return err
				}
				printOK(out, "saved %s %d (%d deleted)", record.Type(), record.ID(), len(collection.Deleted()))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&valuesPath, "values", "f", "-", "values document, - for stdin")
	return cmd
}

func editCmd(s *settings, out io.Writer, driver prompt.Driver) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <id|new>",
		Short: "Edit a record and its collection interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if driver == nil {
				driver = prompt.NewSurveyDriver(out)
			}
			return withApp(cmd, s, out, func(ctx context.Context, a *app) error {
				record, err := a.record(ctx, args[0])
				if err != nil {
					return err
				}
				root, collection, childDef, err := a.build(ctx, record)
				if err != nil {
					return err
				}

				values, err := prompt.Fields(ctx, driver, root.Fields(), root.Defaults())
				if err != nil {
					return err
				}
				rows, err := prompt.Collection(ctx, driver, collection, childDef.Fields)
				if err != nil {
					return err
				}
				values[collection.Alias()] = rows

				if err := a.save(ctx, root, values); err != nil {
					return err
				}
				printOK(out, "saved %s %d", record.Type(), record.ID())
				return nil
			})
		},
	}
}

func readValues(path string, stdin io.Reader) (form.Values, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read values: %w", err)
	}

	var values form.Values
	if err := json.Unmarshal(data, &values); err == nil {
		return values, nil
	}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parse values: %w", err)
	}
	if values == nil {
		values = form.Values{}
	}
	return values, nil
}
