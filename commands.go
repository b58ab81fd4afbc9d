package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/hailam/chessevolve/internal/board"
	"github.com/hailam/chessevolve/internal/book"
	"github.com/hailam/chessevolve/internal/config"
	"github.com/hailam/chessevolve/internal/engine"
	"github.com/hailam/chessevolve/internal/evolution"
	"github.com/hailam/chessevolve/internal/game"
	"github.com/hailam/chessevolve/internal/pgn"
	"github.com/hailam/chessevolve/internal/player"
	"github.com/hailam/chessevolve/internal/storage"
)

// newPlayer builds a player of the given kind from the configuration.
func newPlayer(kind string, cfg *config.Config, b *book.Book) (player.Player, error) {
	w, err := cfg.Play.EngineWeights()
	if err != nil {
		return nil, err
	}
	switch kind {
	case config.PlayerManual:
		return player.NewManual(os.Stdin, os.Stdout), nil
	case config.PlayerMinimax:
		return player.NewMinimax(w, cfg.Play.Depth, player.WithBook(b)), nil
	case config.PlayerMCTS:
		return player.NewMCTS(w, cfg.MCTS.SearchOptions(), player.WithBook(b)), nil
	case config.PlayerRandom:
		return player.NewRandom(), nil
	}
	return nil, errors.Errorf("unknown player %q", kind)
}

func loadBook(path string) *book.Book {
	if path == "" {
		return nil
	}
	b, err := book.Load(path)
	if err != nil {
		log.Warn().Err(err).Msg("opening book not loaded")
		return nil
	}
	log.Info().Str("path", path).Int("positions", b.Size()).Msg("opening book loaded")
	return b
}

// openStorage opens the configured database, or the default one when no
// directory is configured.
func openStorage(dir string) (*storage.Storage, error) {
	if dir == "" {
		return storage.OpenDefault()
	}
	return storage.Open(dir)
}

func runPlay(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("play", flag.ExitOnError)
	fs.StringVar(&cfg.Play.White, "white", cfg.Play.White, "white player: manual, minimax, mcts or random")
	fs.StringVar(&cfg.Play.Black, "black", cfg.Play.Black, "black player")
	fs.IntVar(&cfg.Play.Start, "start", cfg.Play.Start, "start position index")
	fs.IntVar(&cfg.Play.Depth, "depth", cfg.Play.Depth, "minimax depth")
	fs.DurationVar(&cfg.Play.Timeout, "timeout", cfg.Play.Timeout, "game time limit, decided by pseudo winner when hit")
	fs.DurationVar(&cfg.MCTS.Duration, "mcts-time", cfg.MCTS.Duration, "MCTS time per move")
	fs.StringVar(&cfg.Book, "book", cfg.Book, "opening book")
	fs.StringVar(&cfg.Play.PGN, "pgn", cfg.Play.PGN, "append the finished game to this PGN file")
	record := fs.Bool("record", false, "store the game in the database")
	fs.Parse(args)
	if err := cfg.Validate(); err != nil {
		return err
	}

	b := loadBook(cfg.Book)
	white, err := newPlayer(cfg.Play.White, cfg, b)
	if err != nil {
		return err
	}
	black, err := newPlayer(cfg.Play.Black, cfg, b)
	if err != nil {
		return err
	}
	g, err := game.New(white, black, cfg.Play.Start)
	if err != nil {
		return err
	}

	start := time.Now()
	var res game.Result
	if cfg.Play.Timeout > 0 {
		res, err = g.Simulate(ctx, cfg.Play.Timeout)
	} else {
		res, err = g.Run(ctx)
	}
	if err != nil {
		return err
	}

	fmt.Println(g.Position.String())
	switch {
	case res.Pseudo:
		fmt.Printf("%s wins on time (pseudo winner)\n", res.Winner)
	case res.Outcome.IsCheckmate():
		fmt.Printf("%s Checkmate\n", res.Winner)
	default:
		fmt.Println(res.Outcome.Termination)
	}

	headers := pgn.Headers{
		Event: "chessevolve game",
		White: cfg.Play.White,
		Black: cfg.Play.Black,
		Date:  start,
	}
	if cfg.Play.PGN != "" {
		f, err := os.OpenFile(cfg.Play.PGN, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return errors.Wrap(err, "open pgn file")
		}
		defer f.Close()
		if err := pgn.Write(f, g, res, headers); err != nil {
			return err
		}
	}

	if *record {
		store, err := openStorage(cfg.Database)
		if err != nil {
			return err
		}
		defer store.Close()
		rec := storage.GameRecord{
			Played:   start,
			White:    cfg.Play.White,
			Black:    cfg.Play.Black,
			StartFEN: g.StartFEN(),
			Moves:    lo.Map(g.History, func(m board.Move, _ int) string { return m.String() }),
			Result:   res.String(),
			Pseudo:   res.Pseudo,
			Duration: time.Since(start),
		}
		if res.Outcome != nil {
			rec.Termination = res.Outcome.Termination.String()
		}
		id, err := store.RecordGame(rec)
		if err != nil {
			return err
		}
		log.Info().Uint64("id", id).Msg("game recorded")
	}
	return nil
}

func runEvolve(ctx context.Context, cfg *config.Config, args []string) error {
	ec := &cfg.Evolution
	fs := flag.NewFlagSet("evolve", flag.ExitOnError)
	fs.IntVar(&ec.Generations, "generations", ec.Generations, "number of generations")
	fs.IntVar(&ec.Population, "population", ec.Population, "population size, a power of two")
	fs.Float64Var(&ec.MutationSigma, "sigma", ec.MutationSigma, "mutation standard deviation")
	fs.IntVar(&ec.Depth, "depth", ec.Depth, "minimax depth of every player")
	fs.DurationVar(&ec.GameTimeout, "timeout", ec.GameTimeout, "per-game time limit")
	fs.IntVar(&ec.Start, "start", ec.Start, "start position index")
	fs.Uint64Var(&ec.Seed, "seed", ec.Seed, "random seed, 0 for a random one")
	fs.BoolVar(&ec.Record, "record", ec.Record, "store every game in the database")
	fs.Parse(args)
	if err := cfg.Validate(); err != nil {
		return err
	}

	var opts []evolution.Option
	if ec.Seed != 0 {
		opts = append(opts, evolution.WithSeed(ec.Seed))
	}
	if ec.Record {
		store, err := openStorage(cfg.Database)
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, evolution.WithRecorder(store))
	}

	e, err := evolution.New(ec.EngineConfig(), opts...)
	if err != nil {
		return err
	}
	log.Info().
		Int("population", ec.Population).
		Int("generations", ec.Generations).
		Float64("sigma", ec.MutationSigma).
		Msg("evolution started")

	best, err := e.Run(ctx, ec.Generations)
	for i, w := range best {
		fmt.Printf("generation %d: %s\n", i, formatWeights(w))
	}
	return err
}

func formatWeights(w engine.Weights) string {
	return fmt.Sprint(lo.Map(w[:], func(v float64, _ int) string { return fmt.Sprintf("%.4f", v) }))
}

func runSeries(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("series", flag.ExitOnError)
	n := fs.Int("n", 10, "number of games")
	moves := fs.Int("moves", game.DefaultSeriesMoves, "full moves before a game is scored on material")
	fs.StringVar(&cfg.Play.White, "white", config.PlayerMinimax, "white player")
	fs.StringVar(&cfg.Play.Black, "black", config.PlayerRandom, "black player")
	fs.IntVar(&cfg.Play.Depth, "depth", cfg.Play.Depth, "minimax depth")
	fs.Parse(args)
	if err := cfg.Validate(); err != nil {
		return err
	}

	white, err := newPlayer(cfg.Play.White, cfg, nil)
	if err != nil {
		return err
	}
	black, err := newPlayer(cfg.Play.Black, cfg, nil)
	if err != nil {
		return err
	}
	res, err := game.Series(ctx, white, black, *n, *moves)
	if err != nil {
		return err
	}
	fmt.Printf("White = %s\nBlack = %s\n", cfg.Play.White, cfg.Play.Black)
	fmt.Printf("White wins: %d\nBlack wins: %d\nDraws: %d\n", res.WhiteWins, res.BlackWins, res.Draws)
	fmt.Printf("White win rate: %.2f\n", res.WhiteWinRate())
	return nil
}

func runFoolsMate(ctx context.Context, _ *config.Config, _ []string) error {
	white, black := player.NewFoolsMate()
	g, err := game.New(white, black, 0)
	if err != nil {
		return err
	}
	res, err := g.Run(ctx)
	if err != nil {
		return err
	}
	return pgn.Write(os.Stdout, g, res, pgn.Headers{Event: "Fool's mate", White: "script", Black: "script"})
}

func runStats(_ context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.StringVar(&cfg.Database, "db", cfg.Database, "database directory")
	fs.Parse(args)

	store, err := openStorage(cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	all, err := store.AllStats()
	if err != nil {
		return err
	}
	names := lo.Keys(all)
	sort.Strings(names)
	fmt.Printf("%-16s %6s %6s %6s %6s %7s\n", "player", "games", "wins", "losses", "draws", "win%")
	for _, name := range names {
		s := all[name]
		fmt.Printf("%-16s %6d %6d %6d %6d %6.1f%%\n", name, s.Games, s.Wins, s.Losses, s.Draws, s.WinRate())
	}
	return nil
}
