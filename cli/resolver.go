package cli

import (
	"io"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"
	"github.com/iancoleman/strcase"
	"github.com/spf13/cast"

	"github.com/ardnew/stencil/pkg"
)

// resolve returns a [kong.ConfigurationLoader] for YAML config files.
//
// Keys are flag names in snake_case (log_level for --log-level). When the
// document has a top-level mapping named section, only that mapping is
// used; otherwise the whole document is:
//
//	log_level: debug
//	log_pretty: false
//
// Command-line flags override config file values.
func resolve(section string) func(r io.Reader) (kong.Resolver, error) {
	return func(r io.Reader) (kong.Resolver, error) {
		var doc map[string]any

		if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
			if err == io.EOF {
				return config{}, nil
			}

			return nil, pkg.ErrDecodeData.Wrap(err)
		}

		if scoped, ok := doc[section].(map[string]any); ok {
			doc = scoped
		}

		cfg := make(config, len(doc))
		for key, val := range doc {
			cfg[key] = flagValue(val)
		}

		return cfg, nil
	}
}

// config implements [kong.Resolver] over a decoded YAML mapping.
type config map[string]any

// Validate implements [kong.Resolver].
func (config) Validate(*kong.Application) error { return nil }

// Resolve implements [kong.Resolver]. It accepts the flag name as written
// or in snake_case.
func (r config) Resolve(_ *kong.Context, _ *kong.Path, flag *kong.Flag) (any, error) {
	for _, key := range []string{flag.Name, strcase.ToSnake(flag.Name)} {
		if v, ok := r[key]; ok {
			return v, nil
		}
	}

	return nil, nil //nolint:nilnil
}

// flagValue converts a decoded YAML value into the form kong expects from a
// resolver: booleans as-is, scalars as strings, sequences comma-joined.
func flagValue(v any) any {
	switch x := v.(type) {
	case nil, bool, string:
		return x
	case []any:
		parts := make([]string, 0, len(x))
		for _, e := range x {
			parts = append(parts, cast.ToString(e))
		}

		return strings.Join(parts, ",")
	default:
		return cast.ToString(x)
	}
}
