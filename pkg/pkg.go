//nolint:gochecknoglobals
package pkg

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var version string

// Version is the semantic version of the stencil module embedded at build
// time. It is printed by the CLI's --version flag.
var Version = strings.TrimSpace(version)

const (
	// Name is the canonical command and module identifier used across the
	// project. For example, it appears in help text and default config paths.
	Name = "stencil"
	// Description is a short, human-readable summary of the project used in
	// help output and documentation.
	Description = "Embeddable template engine with a dynamic function-invocation bridge"
)

// AuthorInfo represents an individual author's name and email address.
type AuthorInfo struct {
	Name  string
	Email string
}

// Author lists the primary author(s) of the project for display in metadata.
var Author = []AuthorInfo{
	{"ardnew", "andrew@ardnew.com"},
}
