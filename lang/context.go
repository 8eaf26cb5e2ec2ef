package lang

import (
	"maps"

	"github.com/ardnew/stencil/member"
)

// Context is the state of one or more renders: variables, pushed globals
// and the renamer in effect. It is not safe for concurrent use.
type Context struct {
	engine  *Engine
	vars    map[string]any
	globals []any
	locals  []map[string]any
	renamer member.Renamer
	async   bool
}

// NewContext returns an empty Context bound to e.
func (e *Engine) NewContext() *Context {
	return &Context{engine: e, vars: make(map[string]any)}
}

// Engine returns the engine c is bound to.
func (c *Context) Engine() *Engine { return c.engine }

// SetValue sets a variable.
func (c *Context) SetValue(name string, v any) { c.vars[name] = v }

// Value returns a variable.
func (c *Context) Value(name string) (any, bool) {
	v, ok := c.vars[name]

	return v, ok
}

// Vars returns a copy of the variables.
func (c *Context) Vars() map[string]any { return maps.Clone(c.vars) }

// PushGlobal makes the members of obj visible as variables. obj is a map
// with string keys or a host value. Globals pushed later shadow earlier
// ones; variables shadow all globals.
func (c *Context) PushGlobal(obj any) {
	if obj != nil {
		c.globals = append(c.globals, obj)
	}
}

// PopGlobal removes the most recently pushed global.
func (c *Context) PopGlobal() {
	if len(c.globals) > 0 {
		c.globals = c.globals[:len(c.globals)-1]
	}
}

// SetRenamer overrides the engine renamer for this context. A nil renamer
// restores the engine default.
func (c *Context) SetRenamer(r member.Renamer) { c.renamer = r }

// Renamer returns the renamer in effect.
func (c *Context) Renamer() member.Renamer {
	if c.renamer == nil {
		return c.engine.renamer
	}

	return c.renamer
}

// lookup resolves a name through loop scopes, variables, globals and the
// engine, in that order.
func (c *Context) lookup(name string) (any, bool, error) {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if v, ok := c.locals[i][name]; ok {
			return v, true, nil
		}
	}

	if v, ok := c.vars[name]; ok {
		return v, true, nil
	}

	for i := len(c.globals) - 1; i >= 0; i-- {
		v, ok, err := c.engine.members.Get(c.globals[i], name, c.Renamer())
		if err != nil || ok {
			return v, ok, err
		}
	}

	v, ok := c.engine.global(name)

	return v, ok, nil
}

// assign sets name in the innermost loop scope that defines it, or as a
// variable.
func (c *Context) assign(name string, v any) {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if _, ok := c.locals[i][name]; ok {
			c.locals[i][name] = v

			return
		}
	}

	c.vars[name] = v
}
