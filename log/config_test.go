package log

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"trace", LevelTrace},
		{"TRACE", LevelTrace},
		{"debug", LevelDebug},
		{"Info", LevelInfo},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"bogus", DefaultLevel},
		{"", DefaultLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	if ParseFormat(" JSON ") != FormatJSON {
		t.Error("expected json")
	}

	if ParseFormat("text") != FormatText {
		t.Error("expected text")
	}

	if ParseFormat("xml") != DefaultFormat {
		t.Error("expected default format")
	}
}

func TestLevelsAndFormats(t *testing.T) {
	var levels []string
	for l := range Levels() {
		levels = append(levels, l)
	}

	if strings.Join(levels, ",") != "trace,debug,info,warn,error" {
		t.Errorf("unexpected levels %v", levels)
	}

	var formats []string
	for f := range Formats() {
		formats = append(formats, f)
	}

	if strings.Join(formats, ",") != "text,json" {
		t.Errorf("unexpected formats %v", formats)
	}
}

func TestWithTimeLayout(t *testing.T) {
	ts := time.Date(2024, 5, 6, 15, 4, 5, 0, time.UTC)

	tests := []struct {
		layout string
		want   string
	}{
		{"Kitchen", "3:04PM"},
		{"rfc3339", "2024-05-06T15:04:05Z"},
		{"2006", "2024"},
		{"none", ""},
		{"  ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.layout, func(t *testing.T) {
			c := WithTimeLayout(tt.layout)(config{})
			if got := c.formatTime(ts); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOptions_Apply(t *testing.T) {
	var buf bytes.Buffer

	c := makeConfig(nil,
		WithOutput(&buf),
		WithLevel(LevelError),
		WithFormat(FormatJSON),
		WithCaller(true),
		WithPretty(false),
	)

	if c.output != &buf || c.level != LevelError || c.format != FormatJSON ||
		!c.caller || c.pretty {
		t.Errorf("options not applied: %+v", c)
	}
}

func TestPrettyHandler_PlainWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer

	logger := Make(&buf, WithTimeLayout("none"), WithLevel(LevelDebug))
	logger.With(slog2("call", "math.random")).Debug("invoke failed")

	got := buf.String()
	if strings.Contains(got, "\x1b[") {
		t.Errorf("unexpected escape sequences in %q", got)
	}

	for _, want := range []string{"DEBUG", "invoke failed", "call=math.random"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in %q", want, got)
		}
	}
}
