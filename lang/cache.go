package lang

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/klauspost/readahead"
	"github.com/zeebo/xxh3"

	"github.com/ardnew/stencil/diag"
	"github.com/ardnew/stencil/log"
)

// templateCache stores parsed templates keyed by the hash of their file
// name and source.
var templateCache sync.Map

// entry parses its template once, however many callers request it.
type entry struct {
	once sync.Once
	tmpl *Template
}

// ErrReadInput is returned when template source cannot be read.
var ErrReadInput = diag.NewError(diag.KindParse, "failed to read template input")

// ParseOption configures [Parse] and [ParseReader].
type ParseOption func(*parseConfig)

type parseConfig struct {
	file   string
	logger log.Logger
	cache  bool
}

// WithFile sets the file name reported in diagnostics.
func WithFile(name string) ParseOption {
	return func(c *parseConfig) { c.file = name }
}

// WithParseLogger sets the logger used while parsing.
func WithParseLogger(logger log.Logger) ParseOption {
	return func(c *parseConfig) { c.logger = logger }
}

// WithCache enables or disables the shared parse cache. It is enabled by
// default.
func WithCache(enable bool) ParseOption {
	return func(c *parseConfig) { c.cache = enable }
}

// Parse parses source into a Template. Syntax errors do not fail the parse;
// they are collected in [Template.Messages].
//
// Identical sources parsed under the same file name share one Template.
func Parse(ctx context.Context, source string, opts ...ParseOption) *Template {
	cfg := parseConfig{cache: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	if !cfg.cache {
		return parseTemplate(ctx, source, cfg.file, cfg.logger)
	}

	key := xxh3.HashString(cfg.file + "\x00" + source)

	v, loaded := templateCache.LoadOrStore(key, &entry{})
	e, _ := v.(*entry)

	e.once.Do(func() {
		e.tmpl = parseTemplate(ctx, source, cfg.file, cfg.logger)
	})

	cfg.logger.TraceContext(ctx, "template cache",
		slog.String("file", e.tmpl.Name()),
		slog.Uint64("hash", key),
		slog.Bool("hit", loaded),
	)

	return e.tmpl
}

// ParseReader reads all of r and parses it with [Parse].
func ParseReader(ctx context.Context, r io.Reader, opts ...ParseOption) (*Template, error) {
	ra := readahead.NewReader(r)
	defer ra.Close()

	data, err := io.ReadAll(ra)
	if err != nil {
		return nil, ErrReadInput.Wrap(err).With(slog.String("source", "reader"))
	}

	return Parse(ctx, string(data), opts...), nil
}

// ClearCache drops every cached template.
func ClearCache() { templateCache.Clear() }
