package cmd

import (
	"context"
	"log/slog"
	"os"
	"reflect"
	"slices"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"
	"github.com/iancoleman/strcase"

	"github.com/ardnew/stencil/log"
	"github.com/ardnew/stencil/profile"
)

// defaultConfigIndent is the number of spaces to use for indentation
// when generating the default configuration file.
const defaultConfigIndent = 2

// configFileMode is the permission mode of a written configuration file.
const configFileMode os.FileMode = 0o600

// Init generates a configuration file with the current flag values.
type Init struct {
	Force bool `help:"Overwrite existing configuration file" short:"f"`
}

// Run executes the init command.
func (i *Init) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	ktx := kongContextFrom(ctx)
	if ktx == nil {
		return ErrWriteConfig.Wrap(os.ErrInvalid)
	}

	confPath, ok := ktx.Model.Vars()[ConfigIdentifier]
	if !ok {
		panic("internal error: config path undefined")
	}

	if _, err := os.Stat(confPath); err == nil && !i.Force {
		return ErrWriteConfig.
			With(slog.String("file", confPath)).
			With(slog.Bool("exists", true)).
			Wrap(ErrFileExists)
	}

	b, err := yaml.MarshalContext(ctx, configValues(ktx),
		yaml.Indent(defaultConfigIndent))
	if err != nil {
		return ErrYAMLMarshal.With(slog.String("file", confPath)).Wrap(err)
	}

	if err := os.WriteFile(confPath, b, configFileMode); err != nil {
		return ErrWriteConfig.With(slog.String("file", confPath)).Wrap(err)
	}

	log.DebugContext(ctx, "initialized configuration file",
		slog.String("path", confPath),
		slog.Int("keys", strings.Count(string(b), "\n")),
	)

	return nil
}

// configValues maps each configurable flag to its current value, keyed by
// the snake_case name the configuration resolver reads.
func configValues(ktx *kong.Context) map[string]any {
	ignore := []string{"help", "version", profile.Tag}

	values := make(map[string]any)

	for _, flag := range ktx.Model.Flags {
		if flag.Hidden || slices.ContainsFunc(ignore, func(s string) bool {
			return strings.HasPrefix(flag.Name, s)
		}) {
			continue
		}

		if v := flagValue(ktx.FlagValue(flag)); v != nil {
			values[strcase.ToSnake(flag.Name)] = v
		}
	}

	return values
}

// flagValue returns v as a config value, or nil when it is unset.
func flagValue(v any) any {
	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.String:
		if rv.Len() == 0 {
			return nil
		}

		return rv.String()

	case reflect.Slice:
		if rv.Len() == 0 {
			return nil
		}

		return v

	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return v

	default:
		return nil
	}
}
