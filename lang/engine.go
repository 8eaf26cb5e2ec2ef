package lang

import (
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"

	"golang.org/x/text/language"

	"github.com/ardnew/stencil/call"
	"github.com/ardnew/stencil/lib"
	"github.com/ardnew/stencil/log"
	"github.com/ardnew/stencil/member"
)

// DefaultLoopLimit is the default maximum number of iterations of one loop.
const DefaultLoopLimit = 1000

// Engine holds the state shared by every render: the built-in namespaces,
// the member cache and the invoker. It is safe for concurrent use.
type Engine struct {
	logger     log.Logger
	members    *member.Cache
	renamer    member.Renamer
	invoker    *call.Invoker
	namespaces []*lib.Namespace
	functions  map[string]call.Callable
	lang       language.Tag
	rand       rand.Source
	loopLimit  int
}

// Option configures an [Engine].
type Option func(*Engine)

// WithLogger sets the logger for parsing, member resolution and
// invocation.
func WithLogger(logger log.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithRenamer sets the default renamer applied to host members.
func WithRenamer(r member.Renamer) Option {
	return func(e *Engine) {
		if r != nil {
			e.renamer = r
		}
	}
}

// WithLanguage sets the language of culture-sensitive built-ins.
func WithLanguage(tag language.Tag) Option {
	return func(e *Engine) { e.lang = tag }
}

// WithRand sets the random source of math.random.
func WithRand(src rand.Source) Option {
	return func(e *Engine) { e.rand = src }
}

// WithFunction adds a global function, replacing any with the same name.
func WithFunction(fn call.Callable) Option {
	return func(e *Engine) { e.functions[fn.Name()] = fn }
}

// WithLoopLimit sets the maximum number of iterations of one loop.
// A limit of zero or less disables the check.
func WithLoopLimit(n int) Option {
	return func(e *Engine) { e.loopLimit = n }
}

// New returns an Engine configured by opts.
func New(opts ...Option) *Engine {
	e := &Engine{
		renamer:   member.DefaultRenamer,
		functions: make(map[string]call.Callable),
		lang:      language.English,
		loopLimit: DefaultLoopLimit,
	}

	for _, opt := range opts {
		opt(e)
	}

	e.members = member.NewCache(
		member.WithLogger(e.logger),
		member.WithRenamer(e.renamer),
	)
	e.invoker = call.NewInvoker(e.logger)

	libOpts := []lib.Option{
		lib.WithLanguage(e.lang),
		lib.WithMembers(e.members),
	}
	if e.rand != nil {
		libOpts = append(libOpts, lib.WithRand(e.rand))
	}

	e.namespaces = lib.Builtins(libOpts...)

	e.logger.Debug("engine ready",
		slog.Int("namespaces", len(e.namespaces)),
		slog.Int("functions", len(e.functions)),
		slog.String("renamer", e.renamer.ID()),
		slog.String("language", e.lang.String()),
	)

	return e
}

// Members returns the member cache shared by renders.
func (e *Engine) Members() *member.Cache { return e.members }

// Namespaces returns the built-in namespaces.
func (e *Engine) Namespaces() []*lib.Namespace { return slices.Clone(e.namespaces) }

// Functions returns every callable visible to templates, sorted by
// qualified name.
func (e *Engine) Functions() []call.Callable {
	var out []call.Callable

	for _, ns := range e.namespaces {
		for _, fn := range ns.All() {
			out = append(out, fn)
		}
	}

	for _, fn := range e.functions {
		out = append(out, fn)
	}

	slices.SortFunc(out, func(a, b call.Callable) int {
		return strings.Compare(a.Name(), b.Name())
	})

	return out
}

// global resolves a name that is not a variable.
func (e *Engine) global(name string) (any, bool) {
	if fn, ok := e.functions[name]; ok {
		return fn, true
	}

	for _, ns := range e.namespaces {
		if ns.Name() == name {
			return ns, true
		}
	}

	return nil, false
}
