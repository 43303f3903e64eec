package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/goliatone/go-formgen-orm/pkg/form"
	"github.com/goliatone/go-formgen-orm/pkg/formconfig"
	"github.com/goliatone/go-formgen-orm/pkg/orm/sqlite"
)

// settings carries the persistent root flags.
type settings struct {
	database   string
	configDir  string
	verbose    bool
	table      string
	rootForm   string
	collection string
}

type app struct {
	settings settings
	store    *sqlite.Store
	config   *formconfig.Store
	registry *form.Registry
	logger   *slog.Logger
	out      io.Writer
}

func openApp(ctx context.Context, s settings, out io.Writer) (*app, error) {
	var files fs.FS = formconfig.EmbeddedFS()
	if s.configDir != "" {
		files = os.DirFS(s.configDir)
	}
	config, err := formconfig.LoadFS(ctx, files)
	if err != nil {
		return nil, err
	}
	if len(config.Tables()) == 0 {
		return nil, errors.New("no tables configured")
	}

	store, err := sqlite.Open(s.database, sqlite.WithTables(config.Tables()...))
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if s.verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	a := &app{
		settings: s,
		store:    store,
		config:   config,
		registry: form.NewRegistry(),
		logger:   logger,
		out:      out,
	}
	config.Register(a.registry, form.WithLogger(logger), form.WithSanitizer(form.StripTags()))
	return a, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// record loads the root record by id, or returns a new one for "new".
func (a *app) record(ctx context.Context, id string) (*sqlite.Record, error) {
	if strings.EqualFold(id, "new") {
		return a.store.NewRecord(a.settings.table)
	}
	parsed, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid id %q", id)
	}
	return a.store.Find(ctx, a.settings.table, parsed)
}

// build assembles the root entity form with the configured collection
// embedded under its relation alias.
func (a *app) build(ctx context.Context, record *sqlite.Record) (*form.EntityForm, *form.CollectionForm, formconfig.Form, error) {
	rootDef, ok := a.config.Form(a.settings.rootForm)
	if !ok {
		return nil, nil, formconfig.Form{}, fmt.Errorf("form %q is not configured", a.settings.rootForm)
	}
	binding, ok := a.config.Collection(a.settings.collection)
	if !ok {
		return nil, nil, formconfig.Form{}, fmt.Errorf("collection %q is not configured", a.settings.collection)
	}
	if err := record.Preload(ctx, binding.Relation); err != nil {
		return nil, nil, formconfig.Form{}, err
	}

	root, err := form.NewEntityForm(record,
		form.WithFieldSchema(rootDef.Fields),
		form.WithValidatorSchema(rootDef.Validators),
		form.WithLogger(a.logger),
		form.WithSanitizer(form.StripTags()),
		form.WithConnectionResolver(a.store.Resolver()),
	)
	if err != nil {
		return nil, nil, formconfig.Form{}, err
	}

	options := append([]form.CollectionOption{form.WithRegistry(a.registry)}, binding.Options()...)
	collection, err := root.EmbedRelation(binding.Relation, options...)
	if err != nil {
		return nil, nil, formconfig.Form{}, err
	}

	childDef, _ := a.config.Form(collection.ChildFormName())
	return root, collection, childDef, nil
}

// save binds values and persists the result in one transaction. Invalid
// submissions are reported, not saved.
func (a *app) save(ctx context.Context, root *form.EntityForm, values form.Values) error {
	if err := root.Bind(values, nil); err != nil {
		return err
	}
	if !root.IsValid() {
		printErrors(a.out, root.Errors())
		return errInvalidSubmission
	}

	tx, err := a.store.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := root.Save(ctx, tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

var errInvalidSubmission = errors.New("submission is invalid")
