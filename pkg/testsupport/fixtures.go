package testsupport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formgen-orm/pkg/form"
)

// MustLoadValues reads a JSON or YAML fixture into a submitted value tree.
func MustLoadValues(t *testing.T, path string) form.Values {
	t.Helper()

	values, err := LoadValues(path)
	if err != nil {
		t.Fatalf("load values: %v", err)
	}
	return values
}

// LoadValues reads a JSON or YAML value tree without requiring testing.T.
func LoadValues(path string) (form.Values, error) {
	if path == "" {
		return nil, errors.New("testsupport: values path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("testsupport: read values: %w", err)
	}
	return DecodeValues(data)
}

// DecodeValues parses JSON first and YAML second. Nested mappings decode as
// form.Values so they can be bound directly.
func DecodeValues(data []byte) (form.Values, error) {
	var out form.Values
	if err := json.Unmarshal(data, &out); err == nil {
		return out, nil
	}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("testsupport: decode values: %w", err)
	}
	return out, nil
}

// WriteGolden writes arbitrary data to a golden file when UPDATE_GOLDENS is set.
func WriteGolden(t *testing.T, path string, value any) {
	t.Helper()

	if os.Getenv("UPDATE_GOLDENS") == "" {
		return
	}
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		t.Fatalf("marshal golden: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
}

// Diff returns a cmp diff between want and got.
func Diff(want, got any, opts ...cmp.Option) string {
	return cmp.Diff(want, got, opts...)
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}
