package log

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// styles holds the terminal styles of a pretty handler. The renderer detects
// the color capability of the handler's writer, so output to a non-terminal
// is left unstyled.
type styles struct {
	key, str, num, time, msg, source lipgloss.Style
	yes, no                          lipgloss.Style
	level                            map[Level]lipgloss.Style
}

func makeStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)

	return styles{
		key:    r.NewStyle().Foreground(lipgloss.Color("8")),
		str:    r.NewStyle().Foreground(lipgloss.Color("6")),
		num:    r.NewStyle().Foreground(lipgloss.Color("3")),
		time:   r.NewStyle().Foreground(lipgloss.Color("4")),
		msg:    r.NewStyle().Bold(true),
		source: r.NewStyle().Foreground(lipgloss.Color("5")),
		yes:    r.NewStyle().Foreground(lipgloss.Color("2")),
		no:     r.NewStyle().Foreground(lipgloss.Color("1")),
		level: map[Level]lipgloss.Style{
			LevelTrace: r.NewStyle().Foreground(lipgloss.Color("8")),
			LevelDebug: r.NewStyle().Foreground(lipgloss.Color("4")),
			LevelInfo:  r.NewStyle().Foreground(lipgloss.Color("2")),
			LevelWarn:  r.NewStyle().Foreground(lipgloss.Color("3")),
			LevelError: r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		},
	}
}

// prettyHandler writes one styled line per record:
//
//	15:04:05 INFO  message key=value group.key=value
type prettyHandler struct {
	opts       slog.HandlerOptions
	formatTime FormatTime
	mu         *sync.Mutex
	w          io.Writer
	style      styles
	prefix     string // pre-rendered attrs from WithAttrs
	group      string // dotted group prefix from WithGroup
}

func newPrettyHandler(
	w io.Writer,
	opts *slog.HandlerOptions,
	formatTime FormatTime,
) *prettyHandler {
	return &prettyHandler{
		opts:       *opts,
		formatTime: formatTime,
		mu:         &sync.Mutex{},
		w:          w,
		style:      makeStyles(w),
	}
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	threshold := slog.LevelInfo
	if h.opts.Level != nil {
		threshold = h.opts.Level.Level()
	}

	return level >= threshold
}

func (h *prettyHandler) Handle(_ context.Context, r slog.Record) error {
	buf := new(bytes.Buffer)

	if !r.Time.IsZero() && h.formatTime != nil {
		if ts := h.formatTime(r.Time); ts != "" {
			buf.WriteString(h.style.time.Render(ts))
			buf.WriteByte(' ')
		}
	}

	level := Level(r.Level)
	name := fmt.Sprintf("%-5s", strings.ToUpper(level.String()))

	if st, ok := h.style.level[level]; ok {
		name = st.Render(name)
	}

	buf.WriteString(name)

	if h.opts.AddSource && r.PC != 0 {
		if src := r.Source(); src != nil {
			buf.WriteByte(' ')
			buf.WriteString(h.style.source.Render(
				src.File + ":" + strconv.Itoa(src.Line)))
		}
	}

	buf.WriteByte(' ')
	buf.WriteString(h.style.msg.Render(r.Message))
	buf.WriteString(h.prefix)

	r.Attrs(func(a slog.Attr) bool {
		h.writeAttr(buf, h.group, a)

		return true
	})

	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := h.w.Write(buf.Bytes())

	return err
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h

	var buf bytes.Buffer

	buf.WriteString(h.prefix)

	for _, a := range attrs {
		h.writeAttr(&buf, h.group, a)
	}

	c.prefix = buf.String()

	return &c
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	c := *h
	c.group = h.group + name + "."

	return &c
}

func (h *prettyHandler) writeAttr(buf *bytes.Buffer, group string, a slog.Attr) {
	a.Value = a.Value.Resolve()

	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		sub := group
		if a.Key != "" {
			sub += a.Key + "."
		}

		for _, ga := range a.Value.Group() {
			h.writeAttr(buf, sub, ga)
		}

		return
	}

	buf.WriteByte(' ')
	buf.WriteString(h.style.key.Render(group + a.Key + "="))
	buf.WriteString(h.value(a.Value))
}

func (h *prettyHandler) value(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		s := v.String()
		if strings.ContainsAny(s, " \t\n\"=") {
			s = strconv.Quote(s)
		}

		return h.style.str.Render(s)

	case slog.KindInt64, slog.KindUint64, slog.KindFloat64:
		return h.style.num.Render(v.String())

	case slog.KindBool:
		if v.Bool() {
			return h.style.yes.Render("true")
		}

		return h.style.no.Render("false")

	case slog.KindDuration:
		return h.style.num.Render(v.Duration().String())

	case slog.KindTime:
		return h.style.time.Render(v.Time().Format(time.RFC3339))

	default:
		return h.style.str.Render(fmt.Sprint(v.Any()))
	}
}
