package cmd

import (
	"context"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/ardnew/stencil/cli/cmd/repl"
	"github.com/ardnew/stencil/lang"
	"github.com/ardnew/stencil/log"
)

// Repl starts an interactive template session.
type Repl struct {
	Data      string `help:"YAML or JSON file of global variables" placeholder:"FILE" short:"d" type:"existingfile"`
	NoHistory bool   `help:"Keep history in memory only"`
}

// Run executes the repl command.
func (r *Repl) Run(ctx context.Context, e *lang.Engine) error {
	if fd := os.Stdin.Fd(); !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return ErrNoTerminal
	}

	data, err := loadData(ctx, r.Data)
	if err != nil {
		return err
	}

	var cacheDir string

	if ktx := kongContextFrom(ctx); ktx != nil && !r.NoHistory {
		cacheDir = ktx.Model.Vars()[CacheIdentifier]
	}

	return repl.Run(ctx, e, data, cacheDir, log.Default())
}
