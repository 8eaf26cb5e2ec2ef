// Package cli contains the command line interface for stencil.
//
// # Usage
//
//	stencil render -f page.html --data model.yaml
//	stencil eval '"hello" | string.upcase'
//	stencil funcs str --format yaml
//	stencil check -f page.html
//	stencil repl
//
// Render is the default command, so a bare "stencil -f page.html" renders.
//
// # Configuration
//
// Flag defaults are read from config.yaml in the user configuration
// directory (for example ~/.config/stencil/config.yaml). Keys are flag names
// in snake_case:
//
//	log_level: debug
//	loop_limit: 5000
//	renamer: identity
//
// "stencil init" writes the file from the current flag values. A config.json
// beside it is also read.
//
// # Logging Options
//
//   - --log-level: trace, debug, info, warn, error
//   - --log-format: text, json
//   - --log-time-layout: timestamp layout (RFC3339, Kitchen, ...)
//   - --log-caller: include caller information
//   - --log-pretty: colorize text output
//
// # Profiling Options
//
// Profiling is only available when built with the pprof build tag:
//
//	go build -tags pprof -o stencil .
//
//   - --pprof-mode: allocs, block, clock, cpu, goroutine, heap, mem, mutex,
//     thread, trace
//   - --pprof-dir: profile output directory (default ~/.cache/stencil/pprof)
package cli
