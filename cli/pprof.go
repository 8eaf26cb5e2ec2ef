//go:build pprof

package cli

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/ardnew/stencil/log"
	"github.com/ardnew/stencil/profile"
)

type pprofConfig struct {
	Mode string `default:""            enum:",${pprofModeEnum}" help:"Enable profiling"         placeholder:"${enum}" short:"p"`
	Dir  string `default:"${pprofDir}"                          help:"Profile output directory"                                 type:"path"`
}

func (pprofConfig) vars() kong.Vars {
	return kong.Vars{
		"pprofModeEnum": strings.Join(profile.Modes(), ","),
		"pprofDir":      cachePath(profile.Tag),
	}
}

func (pprofConfig) group() kong.Group {
	return kong.Group{Key: "pprof", Title: "Profiling (pprof)"}
}

// start starts profiling if configured.
func (f pprofConfig) start(ctx context.Context) (stop func()) {
	if f.Mode == "" {
		return func() {}
	}

	attrs := []slog.Attr{
		slog.String("mode", f.Mode),
		slog.String("dir", filepath.Clean(f.Dir)),
	}

	log.DebugContext(ctx, "pprof start", attrs...)

	p := profile.New(
		profile.WithMode(f.Mode),
		profile.WithPath(f.Dir),
		profile.WithQuiet(true),
	).Start()

	return func() {
		log.DebugContext(ctx, "pprof stop", attrs...)
		p.Stop()
	}
}
