package log

import (
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Option applies a configuration option to config.
type Option func(config) config

// FormatTime formats a record timestamp. An empty result omits the time.
type FormatTime func(time.Time) string

// DefaultTimeLayout is the default used when no valid time layout is provided.
const DefaultTimeLayout = time.RFC3339

// DefaultCaller is the default setting for including caller information
// in log output.
const DefaultCaller = false

// DefaultPretty is the default setting for styled log output.
const DefaultPretty = true

// config holds the configuration options for a Logger.
// The mutex is shared by copies until clone replaces it.
type config struct {
	mutex      *sync.RWMutex
	output     io.Writer
	formatTime FormatTime
	level      Level
	format     Format
	caller     bool
	pretty     bool
}

func apply(cfg config, opts ...Option) config {
	for _, opt := range opts {
		cfg = opt(cfg)
	}

	return cfg
}

func makeConfig(w io.Writer, opts ...Option) config {
	return apply(apply(config{mutex: &sync.RWMutex{}}, WithDefaults(w)), opts...)
}

// clone copies c with a fresh mutex and applies opts to the copy.
func (c config) clone(opts ...Option) config {
	c.mutex = &sync.RWMutex{}

	return apply(c, opts...)
}

// update runs fn on c while holding its write lock.
func (c config) update(fn func(*config)) config {
	if c.mutex == nil {
		c.mutex = &sync.RWMutex{}
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	fn(&c)

	return c
}

func (c config) handlerOptions() *slog.HandlerOptions {
	formatTime := c.formatTime

	return &slog.HandlerOptions{
		AddSource: c.caller,
		Level:     slog.Level(c.level),
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			switch a.Key {
			case slog.TimeKey:
				t, ok := a.Value.Any().(time.Time)
				if !ok || formatTime == nil {
					return a
				}

				s := formatTime(t)
				if s == "" {
					return slog.Attr{}
				}

				a.Value = slog.StringValue(s)

			case slog.LevelKey:
				if l, ok := a.Value.Any().(slog.Level); ok {
					a.Value = slog.StringValue(Level(l).String())
				}
			}

			return a
		},
	}
}

// handler creates a slog.Handler for the current configuration.
func (c config) handler() slog.Handler {
	opts := c.handlerOptions()

	switch {
	case c.pretty && c.format == FormatText:
		return newPrettyHandler(c.output, opts, c.formatTime)

	case c.format == FormatText:
		return slog.NewTextHandler(c.output, opts)

	case c.format == FormatJSON:
		return slog.NewJSONHandler(c.output, opts)

	default:
		return slog.DiscardHandler
	}
}

// WithDefaults returns a functional option that resets the configuration to
// [DefaultLevel], [DefaultFormat], [DefaultTimeLayout], [DefaultCaller] and
// [DefaultPretty], writing to w.
func WithDefaults(w io.Writer) Option {
	if w == nil {
		w = io.Discard
	}

	return func(c config) config {
		return c.update(func(c *config) {
			c.output = w
			c.formatTime = makeFormatTime(DefaultTimeLayout)
			c.level = DefaultLevel
			c.format = DefaultFormat
			c.caller = DefaultCaller
			c.pretty = DefaultPretty
		})
	}
}

// WithOutput sets the writer for log messages. A nil writer discards output.
func WithOutput(w io.Writer) Option {
	if w == nil {
		w = io.Discard
	}

	return func(c config) config {
		return c.update(func(c *config) { c.output = w })
	}
}

// WithLevel sets the minimum level. Messages below it are discarded.
func WithLevel(level Level) Option {
	return func(c config) config {
		return c.update(func(c *config) { c.level = level })
	}
}

// WithFormat sets the output format.
func WithFormat(format Format) Option {
	return func(c config) config {
		return c.update(func(c *config) { c.format = format })
	}
}

// WithTimeLayout sets the layout used to format timestamps.
//
// Named layouts from the [time] package ("RFC3339", "Kitchen", "StampMilli")
// are matched case-insensitively; any other layout is passed verbatim to
// [time.Time.Format]. An empty layout or "none" omits timestamps.
func WithTimeLayout(layout string) Option {
	format := makeFormatTime(layout)

	return func(c config) config {
		return c.update(func(c *config) { c.formatTime = format })
	}
}

// WithCaller controls whether the caller's file and line are logged.
func WithCaller(enable bool) Option {
	return func(c config) config {
		return c.update(func(c *config) { c.caller = enable })
	}
}

// WithPretty controls whether text output is styled for terminals.
func WithPretty(enable bool) Option {
	return func(c config) config {
		return c.update(func(c *config) { c.pretty = enable })
	}
}

var timeLayout = map[string]string{
	"rfc3339":     time.RFC3339,
	"rfc3339nano": time.RFC3339Nano,
	"ansic":       time.ANSIC,
	"unixdate":    time.UnixDate,
	"rubydate":    time.RubyDate,
	"rfc822":      time.RFC822,
	"rfc822z":     time.RFC822Z,
	"rfc850":      time.RFC850,
	"kitchen":     time.Kitchen,
	"datetime":    time.DateTime,
	"timeonly":    time.TimeOnly,
	"stamp":       time.Stamp,
	"stampmilli":  time.StampMilli,
	"stampmicro":  time.StampMicro,
	"stampnano":   time.StampNano,
	"none":        "",
}

func makeFormatTime(layout string) FormatTime {
	if strings.TrimSpace(layout) == "" {
		return func(time.Time) string { return "" }
	}

	if std, ok := timeLayout[strings.ToLower(strings.TrimSpace(layout))]; ok {
		if std == "" {
			return func(time.Time) string { return "" }
		}

		layout = std
	}

	return func(t time.Time) string { return t.Format(layout) }
}
