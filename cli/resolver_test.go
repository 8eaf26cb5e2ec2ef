package cli

import (
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/stencil/pkg"
)

func resolveFlag(t *testing.T, r kong.Resolver, name string) any {
	t.Helper()

	v, err := r.Resolve(nil, nil, &kong.Flag{Value: &kong.Value{Name: name}})
	require.NoError(t, err)

	return v
}

func TestResolve(t *testing.T) {
	src := strings.Join([]string{
		"log_level: debug",
		"log_pretty: false",
		"loop_limit: 250",
		"ratio: 0.5",
		"data: [a.yaml, b.yaml]",
	}, "\n")

	r, err := resolve(baseConfig)(strings.NewReader(src))
	require.NoError(t, err)

	assert.Equal(t, "debug", resolveFlag(t, r, "log-level"))
	assert.Equal(t, "debug", resolveFlag(t, r, "log_level"))
	assert.Equal(t, false, resolveFlag(t, r, "log-pretty"))
	assert.Equal(t, "250", resolveFlag(t, r, "loop-limit"))
	assert.Equal(t, "0.5", resolveFlag(t, r, "ratio"))
	assert.Equal(t, "a.yaml,b.yaml", resolveFlag(t, r, "data"))
	assert.Nil(t, resolveFlag(t, r, "log-format"))
}

func TestResolve_Section(t *testing.T) {
	src := "config:\n  log_level: warn\nother:\n  foo: bar\n"

	r, err := resolve(baseConfig)(strings.NewReader(src))
	require.NoError(t, err)

	assert.Equal(t, "warn", resolveFlag(t, r, "log-level"))
	assert.Nil(t, resolveFlag(t, r, "foo"))
}

func TestResolve_Empty(t *testing.T) {
	r, err := resolve(baseConfig)(strings.NewReader(""))
	require.NoError(t, err)
	assert.Nil(t, resolveFlag(t, r, "log-level"))
}

func TestResolve_Invalid(t *testing.T) {
	_, err := resolve(baseConfig)(strings.NewReader("log_level: [unclosed"))
	require.Error(t, err)
	assert.ErrorIs(t, err, pkg.ErrDecodeData)
}

func TestLogConfig_Scan(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want logConfig
	}{
		{
			"separate values",
			[]string{"render", "--log-level", "debug", "--log-format", "json"},
			logConfig{Level: "debug", Format: "json", Pretty: true},
		},
		{
			"assigned values",
			[]string{"--log-level=trace", "--log-caller", "--no-log-pretty"},
			logConfig{Level: "trace", Caller: true},
		},
		{
			"explicit booleans",
			[]string{"--log-pretty=false", "--no-log-caller=false"},
			logConfig{Caller: true},
		},
		{
			"stops at terminator",
			[]string{"--", "--log-level=debug"},
			logConfig{Pretty: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Cleanup(resetLogger)

			cfg := logConfig{Pretty: true}
			cfg.scan(tt.args)
			assert.Equal(t, tt.want, cfg)
		})
	}
}
