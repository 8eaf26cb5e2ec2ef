package member

import (
	"github.com/iancoleman/strcase"
)

// Renamer maps Go member names to script names.
// ID identifies the mapping; two renamers with the same ID must produce the
// same names.
type Renamer interface {
	ID() string
	Rename(goName string) string
}

type renamer struct {
	id string
	fn func(string) string
}

func (r renamer) ID() string               { return r.id }
func (r renamer) Rename(name string) string { return r.fn(name) }

// NewRenamer returns a Renamer identified by id that applies fn.
func NewRenamer(id string, fn func(string) string) Renamer {
	return renamer{id: id, fn: fn}
}

var (
	// DefaultRenamer lower-cases names and separates words with
	// underscores: GetTestString becomes get_test_string.
	DefaultRenamer = NewRenamer("snake", strcase.ToSnake)

	// IdentityRenamer leaves names unchanged.
	IdentityRenamer = NewRenamer("identity", func(s string) string { return s })
)
