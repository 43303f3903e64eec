package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/goliatone/go-formgen-orm/pkg/form"
	"github.com/goliatone/go-formgen-orm/pkg/orm"
	"github.com/goliatone/go-formgen-orm/pkg/orm/sqlite"
)

var (
	okColor    = color.New(color.FgGreen)
	errColor   = color.New(color.FgRed)
	mutedColor = color.New(color.FgHiBlack)
	keyColor   = color.New(color.FgCyan)
)

func printRecord(out io.Writer, store *sqlite.Store, record *sqlite.Record, fields *form.FieldSchema, relation string) error {
	fmt.Fprintf(out, "%s %d\n", keyColor.Sprint(record.Type()), record.ID())
	for _, field := range fields.Fields() {
		if field.Nested != nil {
			continue
		}
		value, _ := record.Get(field.Name)
		fmt.Fprintf(out, "  %s: %v\n", field.Name, printable(value))
	}
	if relation == "" {
		return nil
	}

	related, err := record.Related(relation)
	if err != nil {
		return err
	}
	rows := related.All()
	fmt.Fprintf(out, "\n%s (%d)\n", relation, len(rows))
	if len(rows) == 0 {
		fmt.Fprintln(out, mutedColor.Sprint("  (none)"))
		return nil
	}

	columns := rowColumns(store, record.Table(), relation)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  KEY\t"+strings.ToUpper(strings.Join(columns, "\t")))
	for _, row := range rows {
		id, _ := orm.IdentifierString(row)
		cells := make([]string, len(columns))
		for idx, column := range columns {
			value, _ := row.Get(column)
			cells[idx] = fmt.Sprint(printable(value))
		}
		fmt.Fprintf(w, "  %s%s\t%s\n", form.PersistentPrefix, id, strings.Join(cells, "\t"))
	}
	return w.Flush()
}

// rowColumns lists the columns of the related table minus the foreign key
// pointing back at the parent.
func rowColumns(store *sqlite.Store, parent *sqlite.Table, relation string) []string {
	def := parent.Relations[relation]
	target, ok := store.Table(def.Table)
	if !ok {
		return nil
	}
	var columns []string
	for _, column := range target.Columns {
		if column.Name == def.ForeignKey {
			continue
		}
		columns = append(columns, column.Name)
	}
	return columns
}

func printable(value any) any {
	if value == nil {
		return mutedColor.Sprint("-")
	}
	return value
}

func printErrors(out io.Writer, errs *form.ErrorSchema) {
	flat := errs.Flatten()
	paths := make([]string, 0, len(flat))
	for path := range flat {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	fmt.Fprintln(out, errColor.Sprint("✗ submission is invalid"))
	for _, path := range paths {
		label := path
		if label == "" {
			label = "form"
		}
		for _, message := range flat[path] {
			fmt.Fprintf(out, "  %s: %s\n", keyColor.Sprint(label), message)
		}
	}
}

func printOK(out io.Writer, format string, args ...any) {
	fmt.Fprintln(out, okColor.Sprint("✓ ")+fmt.Sprintf(format, args...))
}
