// Package evolution tunes evaluator weights with a tournament genetic
// algorithm. Every generation plays a single-elimination bracket between
// minimax players; the better half of the field survives together with a
// mutated clone of each survivor.
package evolution

import (
	"context"
	"math/bits"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"

	"github.com/hailam/chessevolve/internal/board"
	"github.com/hailam/chessevolve/internal/engine"
)

// Defaults for Config.
const (
	DefaultGenerations    = 5
	DefaultMutationSigma  = 0.5
	DefaultPopulationSize = 8
	DefaultGameTimeout    = 600 * time.Second
)

// ErrPopulationSize is returned for a population that cannot fill a bracket.
var ErrPopulationSize = errors.New("population size must be a power of two and at least 2")

// Config configures an Engine.
type Config struct {
	PopulationSize int
	MutationSigma  float64
	Depth          int           // minimax depth of every player
	GameTimeout    time.Duration // per-game ceiling before the pseudo winner decides
	StartPosition  int           // index into game.StartPositions
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		PopulationSize: DefaultPopulationSize,
		MutationSigma:  DefaultMutationSigma,
		Depth:          engine.DefaultDepth,
		GameTimeout:    DefaultGameTimeout,
	}
}

// Match identifies one game of a bracket.
type Match struct {
	Generation int
	Round      int
	White      int // population index
	Black      int
	WhiteGenes engine.Weights
	BlackGenes engine.Weights
}

// MatchFunc decides a match and returns the winning color. Any color other
// than White counts as a White loss.
type MatchFunc func(ctx context.Context, m Match) (board.Color, error)

// Option configures an Engine.
type Option func(*Engine)

// WithMatchFunc replaces game simulation.
func WithMatchFunc(fn MatchFunc) Option {
	return func(e *Engine) {
		e.match = fn
	}
}

// WithSeed makes the initial population, shuffles and mutations reproducible.
func WithSeed(seed uint64) Option {
	return func(e *Engine) {
		e.rng = rand.New(rand.NewSource(seed))
	}
}

// WithPopulation starts from the given genomes instead of random ones.
// Their number overrides Config.PopulationSize.
func WithPopulation(pop []engine.Weights) Option {
	return func(e *Engine) {
		e.population = append([]engine.Weights(nil), pop...)
	}
}

// Engine runs the genetic algorithm. It is not safe for concurrent use;
// the games of a round run concurrently inside Step.
type Engine struct {
	cfg        Config
	population []engine.Weights
	rng        *rand.Rand
	match      MatchFunc
	recorder   Recorder

	generation int
	rounds     int
}

// New creates an engine with a population drawn uniformly from
// [MinWeight, MaxWeight).
func New(cfg Config, opts ...Option) (*Engine, error) {
	if cfg.Depth < 1 {
		cfg.Depth = engine.DefaultDepth
	}
	e := &Engine{cfg: cfg}
	for _, opt := range opts {
		opt(e)
	}
	if e.population != nil {
		e.cfg.PopulationSize = len(e.population)
	}
	if !isPowerOfTwo(e.cfg.PopulationSize) {
		return nil, errors.Wrapf(ErrPopulationSize, "got %d", e.cfg.PopulationSize)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(uint64(time.Now().UnixNano())))
	}
	if e.match == nil {
		e.match = e.simulate
	}
	if e.population == nil {
		e.population = make([]engine.Weights, e.cfg.PopulationSize)
		for i := range e.population {
			for j := range e.population[i] {
				e.population[i][j] = engine.MinWeight + e.rng.Float64()*(engine.MaxWeight-engine.MinWeight)
			}
		}
	}
	return e, nil
}

func isPowerOfTwo(n int) bool {
	return n >= 2 && bits.OnesCount(uint(n)) == 1
}

// Population returns a copy of the current population.
func (e *Engine) Population() []engine.Weights {
	return append([]engine.Weights(nil), e.population...)
}

// Generation returns the number of completed generations.
func (e *Engine) Generation() int {
	return e.generation
}

// Rounds returns the number of bracket rounds played by the last Step.
func (e *Engine) Rounds() int {
	return e.rounds
}

// Run plays the given number of generations and returns the winner of
// each one.
func (e *Engine) Run(ctx context.Context, generations int) ([]engine.Weights, error) {
	best := make([]engine.Weights, 0, generations)
	for i := 0; i < generations; i++ {
		w, err := e.Step(ctx)
		if err != nil {
			return best, err
		}
		best = append(best, w)
	}
	return best, nil
}

// pairing is the decided match in bracket slot slot of a round.
type pairing struct {
	slot          int
	winner, loser int
}

// Step plays one generation and replaces the population. It returns the
// tournament winner's genome.
func (e *Engine) Step(ctx context.Context) (engine.Weights, error) {
	start := time.Now()
	winners := lo.Range(len(e.population))
	losers := make([]int, 0, len(e.population))

	e.rounds = 0
	for len(winners) > 1 {
		e.rng.Shuffle(len(winners), func(i, j int) {
			winners[i], winners[j] = winners[j], winners[i]
		})
		log.Debug().Int("generation", e.generation).Int("round", e.rounds).Ints("winners", winners).Msg("starting round")

		results := make(chan pairing, len(winners)/2)
		g, gctx := errgroup.WithContext(ctx)
		for i := 0; i+1 < len(winners); i += 2 {
			m := Match{
				Generation: e.generation,
				Round:      e.rounds,
				White:      winners[i],
				Black:      winners[i+1],
				WhiteGenes: e.population[winners[i]],
				BlackGenes: e.population[winners[i+1]],
			}
			slot := i / 2
			g.Go(func() error {
				winner, err := e.match(gctx, m)
				if err != nil {
					return errors.WithMessagef(err, "match %d vs %d", m.White, m.Black)
				}
				if winner == board.White {
					results <- pairing{slot: slot, winner: m.White, loser: m.Black}
				} else {
					results <- pairing{slot: slot, winner: m.Black, loser: m.White}
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return engine.Weights{}, err
		}
		close(results)

		// Apply in bracket order so a seeded run does not depend on which
		// game finished first.
		played := make([]pairing, len(winners)/2)
		for r := range results {
			played[r.slot] = r
		}
		for _, r := range played {
			winners = lo.Without(winners, r.loser)
			losers = append(losers, r.loser)
		}
		e.rounds++
	}
	losers = append(losers, winners[0])
	best := e.population[winners[0]]

	next := make([]engine.Weights, 0, len(e.population))
	for _, i := range losers[len(losers)/2:] {
		next = append(next, e.population[i], e.mutate(e.population[i]))
	}
	e.population = next

	log.Info().
		Int("generation", e.generation).
		Int("rounds", e.rounds).
		Floats64("best", best[:]).
		Dur("elapsed", time.Since(start)).
		Msg("generation done")
	e.generation++
	return best, nil
}

// mutate adds Gaussian noise to every weight and clamps the result.
func (e *Engine) mutate(w engine.Weights) engine.Weights {
	var out engine.Weights
	for i, v := range w {
		out[i] = v + e.rng.NormFloat64()*e.cfg.MutationSigma
	}
	return out.Clamp()
}
