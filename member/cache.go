package member

import (
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ardnew/stencil/diag"
	"github.com/ardnew/stencil/log"
)

// Cache maps (type, renamer) pairs to member tables.
// It is safe for concurrent use. The zero value is not usable; call
// [NewCache].
type Cache struct {
	logger  log.Logger
	renamer Renamer
	tables  sync.Map // tableKey -> *table
	group   singleflight.Group
}

// Option configures a [Cache].
type Option func(*Cache)

// WithLogger sets the logger that reports table construction.
func WithLogger(logger log.Logger) Option {
	return func(c *Cache) { c.logger = logger }
}

// WithRenamer sets the renamer used when a lookup passes nil.
func WithRenamer(r Renamer) Option {
	return func(c *Cache) {
		if r != nil {
			c.renamer = r
		}
	}
}

// NewCache returns an empty Cache.
func NewCache(opts ...Option) *Cache {
	c := &Cache{renamer: DefaultRenamer}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Renamer returns the renamer used when a lookup passes nil.
func (c *Cache) Renamer() Renamer { return c.renamer }

type tableKey struct {
	typ     reflect.Type
	renamer string
}

type table struct {
	members map[string]*Binding
	names   []string
	err     error
}

// Lookup returns the binding for name on type t, which may be a pointer to
// the base type. A nil renamer selects the cache default.
//
// Lookup returns nil without error when t has no such member. The error is a
// [diag.ErrBinding] when the renamer maps two members of t to one name.
func (c *Cache) Lookup(t reflect.Type, name string, r Renamer) (*Binding, error) {
	tab, err := c.table(t, r)
	if err != nil {
		return nil, err
	}

	return tab.members[name], nil
}

// Members returns every binding of t, sorted by script name.
func (c *Cache) Members(t reflect.Type, r Renamer) ([]*Binding, error) {
	tab, err := c.table(t, r)
	if err != nil {
		return nil, err
	}

	out := make([]*Binding, len(tab.names))
	for i, n := range tab.names {
		out[i] = tab.members[n]
	}

	return out, nil
}

// Get reads member name of recv. Methods are returned bound to recv.
// A map with string keys is indexed by name instead.
// The boolean result is false when recv has no such member.
func (c *Cache) Get(recv any, name string, r Renamer) (any, bool, error) {
	if recv == nil {
		return nil, false, diag.Errorf(diag.KindBinding,
			"cannot access member `%s` of null", name)
	}

	if m, ok := stringMap(recv); ok {
		v := m.MapIndex(reflect.ValueOf(name).Convert(m.Type().Key()))
		if !v.IsValid() {
			return nil, false, nil
		}

		return v.Interface(), true, nil
	}

	b, err := c.Lookup(reflect.TypeOf(recv), name, r)
	if err != nil || b == nil {
		return nil, false, err
	}

	v, err := b.Get(recv)
	if err != nil {
		return nil, false, err
	}

	return v, true, nil
}

// Set assigns value to member name of recv.
// A map with string keys is assigned by key.
func (c *Cache) Set(recv any, name string, r Renamer, value any) error {
	if recv == nil {
		return diag.Errorf(diag.KindBinding,
			"cannot assign member `%s` of null", name)
	}

	if m, ok := stringMap(recv); ok {
		if m.IsNil() {
			return diag.Errorf(diag.KindBinding,
				"cannot assign member `%s` of a nil map", name)
		}

		v, err := Coerce(value, m.Type().Elem())
		if err != nil {
			return err
		}

		m.SetMapIndex(reflect.ValueOf(name).Convert(m.Type().Key()), v)

		return nil
	}

	b, err := c.Lookup(reflect.TypeOf(recv), name, r)
	if err != nil {
		return err
	}

	if b == nil {
		return diag.Errorf(diag.KindBinding,
			"`%s` has no member `%s`", reflect.TypeOf(recv), name)
	}

	return b.Set(recv, value)
}

func (c *Cache) table(t reflect.Type, r Renamer) (*table, error) {
	if t == nil {
		return &table{}, nil
	}

	if r == nil {
		r = c.renamer
	}

	base := t
	for base.Kind() == reflect.Pointer {
		base = base.Elem()
	}

	key := tableKey{typ: base, renamer: r.ID()}

	if v, ok := c.tables.Load(key); ok {
		tab, _ := v.(*table)

		return tab, tab.err
	}

	v, _, _ := c.group.Do(fmt.Sprintf("%s|%p|%s", base, base, key.renamer),
		func() (any, error) {
			if v, ok := c.tables.Load(key); ok {
				return v, nil
			}

			start := time.Now()
			tab := build(base, r)

			c.logger.Trace("member table built",
				slog.String("type", base.String()),
				slog.String("renamer", key.renamer),
				slog.Int("members", len(tab.names)),
				slog.Duration("elapsed", time.Since(start)),
				slog.Bool("ok", tab.err == nil),
			)

			c.tables.Store(key, tab)

			return tab, nil
		})

	tab, _ := v.(*table)

	return tab, tab.err
}

// build enumerates the exported fields and methods of base.
func build(base reflect.Type, r Renamer) *table {
	tab := &table{members: make(map[string]*Binding)}
	ptr := reflect.PointerTo(base)

	add := func(b *Binding) bool {
		if prev, ok := tab.members[b.name]; ok {
			tab.err = diag.Errorf(diag.KindBinding,
				"Members `%s` and `%s` of `%s` are both named `%s`",
				prev.goName, b.goName, base, b.name).
				With(slog.String("type", base.String()),
					slog.String("renamer", r.ID()))

			return false
		}

		tab.members[b.name] = b
		tab.names = append(tab.names, b.name)

		return true
	}

	if base.Kind() == reflect.Struct {
		for _, f := range reflect.VisibleFields(base) {
			if !f.IsExported() || f.Anonymous {
				continue
			}

			// Ambiguous promoted fields are not reachable by name.
			if sf, ok := base.FieldByName(f.Name); !ok || !slices.Equal(sf.Index, f.Index) {
				continue
			}

			ok := add(&Binding{
				name:   r.Rename(f.Name),
				goName: f.Name,
				owner:  base,
				typ:    f.Type,
				index:  f.Index,
			})
			if !ok {
				return tab
			}
		}
	}

	namer := ptr.Implements(paramNamerType)

	for i := range ptr.NumMethod() {
		m := ptr.Method(i)
		if namer && m.Name == "ParamNames" {
			continue
		}

		name := r.Rename(m.Name)

		ok := add(&Binding{
			name:   name,
			goName: m.Name,
			owner:  base,
			method: newMethod(name, m, ptr),
		})
		if !ok {
			return tab
		}
	}

	slices.SortFunc(tab.names, strings.Compare)

	return tab
}

// stringMap returns recv as a map value when its keys are strings.
func stringMap(recv any) (reflect.Value, bool) {
	v := reflect.ValueOf(recv)
	for v.Kind() == reflect.Pointer && !v.IsNil() && v.Elem().Kind() == reflect.Map {
		v = v.Elem()
	}

	if v.Kind() != reflect.Map || v.Type().Key().Kind() != reflect.String {
		return reflect.Value{}, false
	}

	return v, true
}
