package prompt

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-formgen-orm/pkg/form"
)

// Fields prompts for every scalar field of schema, offering defaults as the
// pre-filled answers. Answers are returned raw; the form validators parse
// them on bind.
func Fields(ctx context.Context, driver Driver, schema *form.FieldSchema, defaults form.Values) (form.Values, error) {
	values := make(form.Values, schema.Len())
	for _, field := range schema.Fields() {
		if field.Nested != nil {
			continue
		}
		label := field.Label
		if label == "" {
			label = field.Name
		}

		if field.Type == form.FieldTypeBoolean {
			current, _ := defaults[field.Name].(bool)
			answer, err := driver.Confirm(ctx, ConfirmConfig{Message: label, Default: current})
			if err != nil {
				return nil, err
			}
			values[field.Name] = answer
			continue
		}

		cfg := InputConfig{Message: label, Default: display(defaults[field.Name])}
		if field.Required {
			cfg.Validator = requireText(label)
		}
		switch field.Type {
		case form.FieldTypeInteger:
			cfg.Validator = chain(cfg.Validator, parses(label, func(s string) error {
				_, err := strconv.ParseInt(s, 10, 64)
				return err
			}))
		case form.FieldTypeNumber:
			cfg.Validator = chain(cfg.Validator, parses(label, func(s string) error {
				_, err := strconv.ParseFloat(s, 64)
				return err
			}))
		}
		answer, err := driver.Input(ctx, cfg)
		if err != nil {
			return nil, err
		}
		values[field.Name] = answer
	}
	return values, nil
}

// Collection walks a collection form: it offers its current rows for
// removal, edits the rows that stay, then offers new rows built from
// rowSchema while the maximum allows. The result is ready for Bind. Removing
// every row without adding one fails with ErrEmptyCollection.
func Collection(ctx context.Context, driver Driver, collection *form.CollectionForm, rowSchema *form.FieldSchema) (form.Values, error) {
	names := collection.EmbeddedNames()
	labels := make([]string, len(names))
	for idx, name := range names {
		labels[idx] = rowLabel(collection, name)
	}

	removed := make(map[string]bool)
	if len(names) > 0 {
		picked, err := driver.MultiSelect(ctx, SelectConfig{
			Message: fmt.Sprintf("Rows of %s to remove", collection.Alias()),
			Options: labels,
		})
		if err != nil {
			return nil, err
		}
		for _, idx := range picked {
			if idx >= 0 && idx < len(names) {
				removed[names[idx]] = true
			}
		}
	}

	values := make(form.Values, len(names))
	next := 0
	for idx, name := range names {
		if n, ok := transientIndex(name); ok && n >= next {
			next = n + 1
		}
		if removed[name] {
			continue
		}
		if err := driver.Info(ctx, labels[idx]); err != nil {
			return nil, err
		}
		child, _ := collection.EmbeddedForm(name)
		row, err := Fields(ctx, driver, child.Base().Fields(), child.Base().Defaults())
		if err != nil {
			return nil, err
		}
		values[name] = row
	}

	for collection.Max() == 0 || len(values) < collection.Max() {
		more, err := driver.Confirm(ctx, ConfirmConfig{Message: fmt.Sprintf("Add a row to %s?", collection.Alias())})
		if err != nil {
			return nil, err
		}
		if !more {
			break
		}
		if rowSchema == nil {
			return nil, errors.New("prompt: no schema for new rows")
		}
		row, err := Fields(ctx, driver, rowSchema, nil)
		if err != nil {
			return nil, err
		}
		values[fmt.Sprintf("%s%d", form.TransientPrefix, next)] = row
		next++
	}

	if len(values) == 0 && len(names) > 0 {
		notice := fmt.Sprintf("Nothing changed: %s cannot be emptied, keep or add at least one row.", collection.Alias())
		if err := driver.Info(ctx, notice); err != nil {
			return nil, err
		}
		return nil, ErrEmptyCollection
	}
	return values, nil
}

func rowLabel(collection *form.CollectionForm, name string) string {
	child, ok := collection.EmbeddedForm(name)
	if !ok {
		return name
	}
	defaults := child.Base().Defaults()
	for _, field := range child.Base().Fields().Fields() {
		if text, ok := defaults[field.Name].(string); ok && text != "" {
			return fmt.Sprintf("%s (%s)", name, text)
		}
	}
	return name
}

func transientIndex(name string) (int, bool) {
	if !strings.HasPrefix(name, form.TransientPrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(name, form.TransientPrefix))
	return n, err == nil
}

func display(value any) string {
	if value == nil {
		return ""
	}
	return fmt.Sprint(value)
}

func requireText(label string) func(string) error {
	return func(answer string) error {
		if strings.TrimSpace(answer) == "" {
			return fmt.Errorf("%s is required", label)
		}
		return nil
	}
}

func parses(label string, parse func(string) error) func(string) error {
	return func(answer string) error {
		answer = strings.TrimSpace(answer)
		if answer == "" {
			return nil
		}
		if parse(answer) != nil {
			return fmt.Errorf("%s must be a number", label)
		}
		return nil
	}
}

func chain(validators ...func(string) error) func(string) error {
	return func(answer string) error {
		for _, validate := range validators {
			if validate == nil {
				continue
			}
			if err := validate(answer); err != nil {
				return err
			}
		}
		return nil
	}
}
