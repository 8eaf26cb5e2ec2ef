package cli

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"strconv"

	"github.com/alecthomas/kong"
	"golang.org/x/text/language"

	"github.com/ardnew/stencil/lang"
	"github.com/ardnew/stencil/log"
	"github.com/ardnew/stencil/member"
)

var renamers = map[string]member.Renamer{
	member.DefaultRenamer.ID():  member.DefaultRenamer,
	member.IdentityRenamer.ID(): member.IdentityRenamer,
}

type engineConfig struct {
	LoopLimit int    `default:"${loopLimit}" help:"Maximum iterations of a single for loop."`
	Renamer   string `default:"snake"        enum:"snake,identity"                                     help:"Naming convention for host members."`
	Language  string `default:"en"           help:"BCP 47 language tag for case mapping and collation."`
	Seed      uint64 `default:"0"            help:"Seed for math.random; 0 seeds randomly."`
}

func (*engineConfig) vars() kong.Vars {
	return kong.Vars{"loopLimit": strconv.Itoa(lang.DefaultLoopLimit)}
}

func (*engineConfig) group() kong.Group {
	return kong.Group{Key: "engine", Title: "Template engine options"}
}

// build returns the engine the commands render with. It is called lazily,
// after the logger is configured.
func (f *engineConfig) build(ctx context.Context) (*lang.Engine, error) {
	tag, err := language.Parse(f.Language)
	if err != nil {
		return nil, err
	}

	opts := []lang.Option{
		lang.WithLogger(log.Default()),
		lang.WithLoopLimit(f.LoopLimit),
		lang.WithRenamer(renamers[f.Renamer]),
		lang.WithLanguage(tag),
	}

	if f.Seed != 0 {
		opts = append(opts, lang.WithRand(rand.NewPCG(f.Seed, f.Seed)))
	}

	log.DebugContext(ctx, "engine config",
		slog.Int("loop_limit", f.LoopLimit),
		slog.String("renamer", f.Renamer),
		slog.String("language", tag.String()),
		slog.Bool("seeded", f.Seed != 0),
	)

	return lang.New(opts...), nil
}
