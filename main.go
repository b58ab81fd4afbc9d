// chessevolve plays chess with minimax and MCTS players and tunes the
// evaluator weights with a tournament genetic algorithm.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hailam/chessevolve/internal/config"
)

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, cfg *config.Config, args []string) error
}

var commands = []command{
	{"play", "play one game between two players", runPlay},
	{"evolve", "tune evaluator weights with a tournament", runEvolve},
	{"series", "play a series of games and count the results", runSeries},
	{"foolsmate", "play fool's mate and print it as PGN", runFoolsMate},
	{"stats", "show recorded results per player", runStats},
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: chessevolve [-config file] [-v] <command> [flags]\n\ncommands:\n")
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-10s %s\n", c.name, c.usage)
	}
	flag.PrintDefaults()
}

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Usage = usage
	flag.Parse()

	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	level, err := cfg.Level()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if *verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	name := flag.Arg(0)
	for _, c := range commands {
		if c.name == name {
			if err := c.run(ctx, &cfg, flag.Args()[1:]); err != nil {
				log.Fatal().Err(err).Str("command", name).Msg("failed")
			}
			return
		}
	}
	fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
	usage()
	os.Exit(2)
}
