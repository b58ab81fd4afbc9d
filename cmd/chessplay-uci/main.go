package main

import (
	"flag"
	"os"
	"runtime/pprof"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hailam/chessevolve/internal/book"
	"github.com/hailam/chessevolve/internal/config"
	"github.com/hailam/chessevolve/internal/uci"
)

var (
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
	configPath = flag.String("config", "", "YAML configuration file")
	bookPath   = flag.String("book", "", "opening book (.json ECO lines or Polyglot .bin)")
)

func main() {
	flag.Parse()

	// stdout carries the protocol, so logs go to stderr.
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	level, err := cfg.Level()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	zerolog.SetGlobalLevel(level)

	// Start CPU profiling if requested (via flag or environment variable)
	profilePath := *cpuprofile
	if profilePath == "" {
		profilePath = os.Getenv("CPUPROFILE")
	}
	if profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			log.Fatal().Err(err).Msg("could not create CPU profile")
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal().Err(err).Msg("could not start CPU profile")
		}
		defer pprof.StopCPUProfile()
		log.Info().Str("path", profilePath).Msg("CPU profiling enabled")
	}

	weights, err := cfg.Play.EngineWeights()
	if err != nil {
		log.Fatal().Err(err).Msg("weights")
	}
	opts := []uci.Option{
		uci.WithWeights(weights),
		uci.WithMCTSOptions(cfg.MCTS.SearchOptions()...),
	}

	path := *bookPath
	if path == "" {
		path = cfg.Book
	}
	if path != "" {
		b, err := book.Load(path)
		if err != nil {
			log.Warn().Err(err).Msg("opening book not loaded")
		} else {
			log.Info().Str("path", path).Int("positions", b.Size()).Msg("opening book loaded")
			opts = append(opts, uci.WithBook(b))
		}
	}

	if err := uci.New(os.Stdin, os.Stdout, opts...).Run(); err != nil {
		log.Error().Err(err).Msg("uci")
	}
}
