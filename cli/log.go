package cli

import (
	"context"
	"encoding"
	"log/slog"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/ardnew/stencil/log"
)

// logFormat configures the logger format as a side effect of parsing, so
// errors reported while kong is still parsing use the requested format.
type logFormat string

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *logFormat) UnmarshalText(text []byte) error {
	*f = logFormat(text)
	log.Config(log.WithFormat(log.ParseFormat(string(*f))))

	return nil
}

// logLevel configures the logger level as a side effect of parsing.
type logLevel string

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *logLevel) UnmarshalText(text []byte) error {
	*l = logLevel(text)
	log.Config(log.WithLevel(log.ParseLevel(string(*l))))

	return nil
}

type logConfig struct {
	Level      logLevel  `default:"${logLevelDefault}"  enum:"${logLevelEnum}"  help:"Set log level."`
	Format     logFormat `default:"${logFormatDefault}" enum:"${logFormatEnum}" help:"Set log format."`
	TimeLayout string    `default:"RFC3339"                                     help:"Set timestamp format."`
	Caller     bool      `default:"false"                                       help:"Include caller information."       negatable:""`
	Pretty     bool      `default:"true"                                        help:"Enable colorized pretty printing." negatable:""`
}

func (*logConfig) vars() kong.Vars {
	var levels, formats []string

	for l := range log.Levels() {
		levels = append(levels, l)
	}

	for f := range log.Formats() {
		formats = append(formats, f)
	}

	return kong.Vars{
		"logLevelEnum":     strings.Join(levels, ","),
		"logLevelDefault":  log.DefaultLevel.String(),
		"logFormatEnum":    strings.Join(formats, ","),
		"logFormatDefault": log.DefaultFormat.String(),
	}
}

func (*logConfig) group() kong.Group {
	return kong.Group{Key: "log", Title: "Logging options"}
}

func (f *logConfig) start(ctx context.Context) (stop func()) {
	log.Config(
		log.WithLevel(log.ParseLevel(string(f.Level))),
		log.WithFormat(log.ParseFormat(string(f.Format))),
		log.WithTimeLayout(f.TimeLayout),
		log.WithCaller(f.Caller),
		log.WithPretty(f.Pretty),
	)

	log.DebugContext(ctx, "logger initialized",
		slog.String("level", string(f.Level)),
		slog.String("format", string(f.Format)),
		slog.String("time", f.TimeLayout),
		slog.Bool("caller", f.Caller),
		slog.Bool("pretty", f.Pretty),
	)

	return func() { log.TraceContext(ctx, "logger stopped") }
}

// scan applies logger flags before kong parses the command line, so the
// logger is configured regardless of where the flags appear. The text flags
// also configure the logger through UnmarshalText during parsing; the
// boolean flags only take effect here until start runs.
func (f *logConfig) scan(args []string) {
	text := map[string]encoding.TextUnmarshaler{
		"--log-level":  &f.Level,
		"--log-format": &f.Format,
	}

	toggle := map[string]struct {
		dst  *bool
		with func(bool) log.Option
	}{
		"log-caller": {&f.Caller, log.WithCaller},
		"log-pretty": {&f.Pretty, log.WithPretty},
	}

	for i := 0; i < len(args); i++ {
		if args[i] == "--" {
			return
		}

		name, value, assigned := strings.Cut(args[i], "=")

		if u, ok := text[name]; ok {
			if !assigned && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				i++
				value = args[i]
			}

			_ = u.UnmarshalText([]byte(value))

			continue
		}

		negate := strings.HasPrefix(name, "--no-")

		t, ok := toggle[strings.TrimPrefix(strings.TrimPrefix(name, "--no-"), "--")]
		if !ok || !strings.HasPrefix(name, "--") {
			continue
		}

		v := true
		if assigned {
			b, err := strconv.ParseBool(value)
			if err != nil {
				continue
			}

			v = b
		}

		if negate {
			v = !v
		}

		*t.dst = v
		log.Config(t.with(v))
	}
}
