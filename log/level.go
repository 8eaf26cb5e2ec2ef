package log

import (
	"iter"
	"log/slog"
	"strconv"
	"strings"
)

// Level represents the severity of a log message.
type Level slog.Level

const levelTraceMask = -8

const (
	LevelTrace = Level(levelTraceMask)
	LevelDebug = Level(slog.LevelDebug)
	LevelInfo  = Level(slog.LevelInfo)
	LevelWarn  = Level(slog.LevelWarn)
	LevelError = Level(slog.LevelError)
)

// DefaultLevel is the default log level.
const DefaultLevel = LevelInfo

var levelName = map[Level]string{
	LevelTrace: "trace",
	LevelDebug: "debug",
	LevelInfo:  "info",
	LevelWarn:  "warn",
	LevelError: "error",
}

func (l Level) String() string {
	if s, ok := levelName[l]; ok {
		return s
	}

	return "level(" + strconv.Itoa(int(l)) + ")"
}

// Levels returns an iterator over the names of all defined log levels,
// from least to most severe.
func Levels() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, l := range []Level{
			LevelTrace, LevelDebug, LevelInfo, LevelWarn, LevelError,
		} {
			if !yield(l.String()) {
				return
			}
		}
	}
}

// ParseLevel parses a level name such as "trace" or "warn". Names accepted by
// [slog.Level.UnmarshalText] ("INFO+2") are also recognized. Anything else
// yields [DefaultLevel].
func ParseLevel(s string) Level {
	if strings.EqualFold(strings.TrimSpace(s), "trace") {
		return LevelTrace
	}

	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return DefaultLevel
	}

	return Level(l)
}

// Format represents the output format for log messages.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

// DefaultFormat is the default log message format.
const DefaultFormat = FormatText

func (f Format) String() string {
	switch f {
	case FormatText:
		return "text"
	case FormatJSON:
		return "json"
	default:
		return "format(" + strconv.Itoa(int(f)) + ")"
	}
}

// Formats returns an iterator over the names of all defined log formats.
func Formats() iter.Seq[string] {
	return func(yield func(string) bool) {
		_ = yield(FormatText.String()) && yield(FormatJSON.String())
	}
}

// ParseFormat parses "text" or "json". Anything else yields [DefaultFormat].
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON
	case "text":
		return FormatText
	default:
		return DefaultFormat
	}
}
