package lib

import (
	"iter"
	"maps"
	"math/rand/v2"
	"slices"
	"sync"

	"golang.org/x/text/language"

	"github.com/ardnew/stencil/call"
	"github.com/ardnew/stencil/member"
)

// Namespace is a named group of built-in functions.
type Namespace struct {
	name  string
	funcs map[string]call.Callable
}

func newNamespace(name string, fns ...call.Callable) *Namespace {
	ns := &Namespace{name: name, funcs: make(map[string]call.Callable, len(fns))}

	for _, fn := range fns {
		ns.funcs[fn.Name()[len(name)+1:]] = fn
	}

	return ns
}

// Name returns the namespace name, such as "string".
func (n *Namespace) Name() string { return n.name }

// Len returns the number of functions in n.
func (n *Namespace) Len() int { return len(n.funcs) }

// Lookup returns the function with the unqualified name.
func (n *Namespace) Lookup(name string) (call.Callable, bool) {
	fn, ok := n.funcs[name]

	return fn, ok
}

// All yields the functions of n sorted by name.
func (n *Namespace) All() iter.Seq2[string, call.Callable] {
	return func(yield func(string, call.Callable) bool) {
		for _, name := range slices.Sorted(maps.Keys(n.funcs)) {
			if !yield(name, n.funcs[name]) {
				return
			}
		}
	}
}

// Option configures the built-in library.
type Option func(*config)

type config struct {
	mu      sync.Mutex
	rand    *rand.Rand
	lang    language.Tag
	members *member.Cache
}

// WithRand sets the source used by math.random.
func WithRand(src rand.Source) Option {
	return func(c *config) {
		if src != nil {
			c.rand = rand.New(src)
		}
	}
}

// WithLanguage sets the language used by culture-sensitive comparisons and
// case mappings.
func WithLanguage(tag language.Tag) Option {
	return func(c *config) { c.lang = tag }
}

// WithMembers sets the member cache used to read host values, as in
// array.sort with a member name.
func WithMembers(cache *member.Cache) Option {
	return func(c *config) {
		if cache != nil {
			c.members = cache
		}
	}
}

func (c *config) uint64N(n uint64) uint64 {
	if c.rand == nil {
		return rand.Uint64N(n)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.rand.Uint64N(n)
}

// Builtins returns the array, string and math namespaces.
func Builtins(opts ...Option) []*Namespace {
	cfg := &config{lang: language.English}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.members == nil {
		cfg.members = member.NewCache()
	}

	return []*Namespace{
		arrayNamespace(cfg),
		mathNamespace(cfg),
		stringNamespace(cfg),
	}
}
