package cli

import (
	"context"

	"github.com/alecthomas/kong"

	"github.com/ardnew/stencil/cli/cmd"
	"github.com/ardnew/stencil/lang"
	"github.com/ardnew/stencil/pkg"
)

// CLI is the top-level command-line interface for stencil.
type CLI struct {
	Log    logConfig    `embed:"" group:"log"    prefix:"log-"`
	Pprof  pprofConfig  `embed:"" group:"pprof"  prefix:"pprof-"`
	Engine engineConfig `embed:"" group:"engine"`

	Version kong.VersionFlag `help:"Print version and exit." short:"V"`

	Init  cmd.Init  `cmd:"" help:"Initialize configuration file"`
	Check cmd.Check `cmd:"" help:"Report template parse diagnostics"`
	Funcs cmd.Funcs `cmd:"" help:"List built-in functions"`
	Eval  cmd.Eval  `cmd:"" help:"Evaluate template code"`
	Repl  cmd.Repl  `cmd:"" help:"Start an interactive session"`

	Render cmd.Render `cmd:"" default:"withargs" help:"Render templates"`
}

// Run executes the stencil CLI with the given context and arguments.
// The exit function is called with the appropriate exit code upon completion.
func Run(
	ctx context.Context,
	exit func(code int),
	args ...string,
) error {
	var cli CLI

	if err := mkdirAllRequired(); err != nil {
		return err
	}

	configFilePath := configPath(baseConfig)

	vars := kong.Vars{
		"version":            pkg.Version,
		cmd.ConfigIdentifier: configFilePath + configExt,
		cmd.CacheIdentifier:  cacheDir(),
	}.
		CloneWith(cli.Log.vars()).
		CloneWith(cli.Pprof.vars()).
		CloneWith(cli.Engine.vars())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cli.Log.scan(args)

	parser, err := kong.New(&cli,
		kong.Name(pkg.Name),
		kong.Description(pkg.Description),
		kong.UsageOnError(),
		kong.Exit(exit),
		kong.ExplicitGroups(
			[]kong.Group{cli.Log.group(), cli.Pprof.group(), cli.Engine.group()},
		),
		kong.BindSingletonProvider(func() context.Context {
			return ctx
		}),
		kong.BindSingletonProvider(func() (*lang.Engine, error) {
			return cli.Engine.build(ctx)
		}),
		kong.ConfigureHelp(
			kong.HelpOptions{
				Compact:             true,
				Summary:             true,
				Tree:                true,
				NoExpandSubcommands: true,
			}),
		kong.Configuration(kong.JSON, configFilePath+".json"),
		kong.Configuration(resolve(baseConfig), configFilePath+configExt),
		vars,
	)
	if err != nil {
		return err
	}

	ktx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	ctx = cmd.WithContext(ctx, ktx)

	defer cli.Log.start(ctx)()

	// No-op unless built with tag pprof and enabled.
	defer cli.Pprof.start(ctx)()

	return ktx.Run(ctx)
}
