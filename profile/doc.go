// Package profile starts optional runtime profiling for the stencil command.
//
// Profiling is compiled in only with the "pprof" build tag. Without it,
// [Modes] is empty and [Profiler.Start] returns a no-op [Stopper].
//
//	p := profile.Profiler{Mode: "cpu", Path: "/tmp/profiles"}
//	defer p.Start().Stop()
//
// Profiles are written to Path under names matching the mode (cpu.pprof,
// mem.pprof, ...) and are read with go tool pprof:
//
//	go tool pprof -http=: /tmp/profiles/cpu.pprof
//
// The pprof build also registers the [net/http/pprof] handlers.
package profile

// Tag is the build tag required to enable pprof profiling.
const Tag = `pprof`

// Stopper stops a running profiler and flushes its output.
type Stopper interface{ Stop() }

// Profiler describes one profiling session.
type Profiler struct {
	// Mode is one of [Modes]. An empty or unknown mode disables profiling.
	Mode string
	// Path is the output directory. Empty uses the working directory.
	Path string
	// Quiet suppresses the profiler's own log output.
	Quiet bool
}

// Option configures a [Profiler].
type Option func(Profiler) Profiler

// New returns a Profiler with opts applied.
func New(opts ...Option) Profiler {
	var p Profiler

	for _, opt := range opts {
		p = opt(p)
	}

	return p
}

// WithMode sets the profiling mode.
func WithMode(mode string) Option {
	return func(p Profiler) Profiler {
		p.Mode = mode

		return p
	}
}

// WithPath sets the output directory.
func WithPath(path string) Option {
	return func(p Profiler) Profiler {
		p.Path = path

		return p
	}
}

// WithQuiet sets the quiet flag.
func WithQuiet(quiet bool) Option {
	return func(p Profiler) Profiler {
		p.Quiet = quiet

		return p
	}
}

// Start starts the profiler. Both Start and the returned Stop are always
// safe to call; a disabled profiler does nothing.
func (p Profiler) Start() Stopper {
	if p.Mode == "" {
		return ignore{}
	}

	return start(p)
}

type ignore struct{}

func (ignore) Stop() {}
