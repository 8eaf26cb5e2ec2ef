// Package log provides a concurrency-safe simplified logging interface
// based on [log/slog].
//
// A [Logger] is created with [Make] and configured with functional options:
//
//	logger := log.Make(os.Stderr,
//		log.WithLevel(log.LevelDebug),
//		log.WithTimeLayout("Kitchen"),
//		log.WithCaller(true))
//
//	logger.Info("template rendered", slog.Int("bytes", n))
//
// Attributes are always passed as [slog.Attr] values. [Logger.With] returns a
// Logger that adds attributes to every message, and [Logger.Wrap] returns one
// with a modified configuration.
//
// # Levels
//
// [LevelTrace] sits below [LevelDebug] and is used for per-call detail such as
// member resolution and cache lookups. Messages below the configured level
// are discarded.
//
// # Output
//
// [FormatText] (default) and [FormatJSON] are supported. Text output is
// styled with lipgloss unless [WithPretty] disables it; styling is dropped
// automatically when the writer is not a terminal.
//
// # Package-level logger
//
// The package functions ([Info], [DebugContext], ...) write through a default
// Logger that [Config] reconfigures. Context-unaware variants use
// [DefaultContextProvider], which returns [context.TODO] by default.
package log
