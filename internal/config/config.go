// Package config loads the settings shared by the command line tools.
package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/hailam/chessevolve/internal/engine"
	"github.com/hailam/chessevolve/internal/evolution"
	"github.com/hailam/chessevolve/internal/game"
	"github.com/hailam/chessevolve/internal/mcts"
)

// Player kinds accepted by PlayConfig.
const (
	PlayerManual  = "manual"
	PlayerMinimax = "minimax"
	PlayerMCTS    = "mcts"
	PlayerRandom  = "random"
)

// Config is the full set of settings.
type Config struct {
	LogLevel  string          `yaml:"log_level"`
	Book      string          `yaml:"book"`     // ECO JSON (.json) or Polyglot (.bin) file
	Database  string          `yaml:"database"` // game records; empty means in memory
	Play      PlayConfig      `yaml:"play"`
	MCTS      MCTSConfig      `yaml:"mcts"`
	Evolution EvolutionConfig `yaml:"evolution"`
}

// PlayConfig configures a single game.
type PlayConfig struct {
	White   string        `yaml:"white"`
	Black   string        `yaml:"black"`
	Start   int           `yaml:"start"`
	Depth   int           `yaml:"depth"`
	Weights []float64     `yaml:"weights"`
	Timeout time.Duration `yaml:"timeout"` // zero means no limit
	PGN     string        `yaml:"pgn"`     // file the finished game is appended to
}

// MCTSConfig configures MCTS players.
type MCTSConfig struct {
	Duration     time.Duration `yaml:"duration"`
	ExploreMoves int           `yaml:"explore_moves"`
	MaxDepth     int           `yaml:"max_depth"`
	Exploration  float64       `yaml:"exploration"`
}

// EvolutionConfig configures a training run.
type EvolutionConfig struct {
	Generations   int           `yaml:"generations"`
	Population    int           `yaml:"population"`
	MutationSigma float64       `yaml:"mutation_sigma"`
	Depth         int           `yaml:"depth"`
	GameTimeout   time.Duration `yaml:"game_timeout"`
	Start         int           `yaml:"start"`
	Seed          uint64        `yaml:"seed"` // zero picks a random seed
	Record        bool          `yaml:"record"`
}

// Default returns the built-in settings.
func Default() Config {
	w := engine.DefaultWeights()
	return Config{
		LogLevel: zerolog.InfoLevel.String(),
		Play: PlayConfig{
			White:   PlayerManual,
			Black:   PlayerMinimax,
			Depth:   engine.DefaultDepth,
			Weights: w[:],
		},
		MCTS: MCTSConfig{
			Duration:     mcts.DefaultDuration,
			ExploreMoves: mcts.DefaultExploreMoves,
			MaxDepth:     mcts.DefaultMaxDepth,
			Exploration:  mcts.DefaultExploration,
		},
		Evolution: EvolutionConfig{
			Generations:   evolution.DefaultGenerations,
			Population:    evolution.DefaultPopulationSize,
			MutationSigma: evolution.DefaultMutationSigma,
			Depth:         engine.DefaultDepth,
			GameTimeout:   evolution.DefaultGameTimeout,
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, errors.WithMessagef(err, "config %s", path)
	}
	return cfg, nil
}

// Level returns the configured log level. An empty value means info.
func (c Config) Level() (zerolog.Level, error) {
	if c.LogLevel == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.NoLevel, errors.Wrap(err, "log_level")
	}
	return level, nil
}

// Validate checks values that would otherwise fail deep inside a run.
func (c Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	for _, kind := range []string{c.Play.White, c.Play.Black} {
		if !ValidPlayer(kind) {
			return errors.Errorf("unknown player %q", kind)
		}
	}
	if c.Play.Start < 0 || c.Play.Start >= len(game.StartPositions) {
		return errors.Errorf("play.start %d out of range", c.Play.Start)
	}
	if c.Evolution.Start < 0 || c.Evolution.Start >= len(game.StartPositions) {
		return errors.Errorf("evolution.start %d out of range", c.Evolution.Start)
	}
	if _, err := c.Play.EngineWeights(); err != nil {
		return err
	}
	if n := c.Evolution.Population; n < 2 || n&(n-1) != 0 {
		return errors.Wrapf(evolution.ErrPopulationSize, "evolution.population %d", n)
	}
	if c.Evolution.MutationSigma < 0 {
		return errors.New("evolution.mutation_sigma must not be negative")
	}
	return nil
}

// ValidPlayer reports whether kind names a player.
func ValidPlayer(kind string) bool {
	switch kind {
	case PlayerManual, PlayerMinimax, PlayerMCTS, PlayerRandom:
		return true
	}
	return false
}

// EngineWeights converts the configured weights. No weights means the
// defaults.
func (p PlayConfig) EngineWeights() (engine.Weights, error) {
	if len(p.Weights) == 0 {
		return engine.DefaultWeights(), nil
	}
	var w engine.Weights
	if len(p.Weights) != len(w) {
		return w, errors.Errorf("play.weights needs %d values, got %d", len(w), len(p.Weights))
	}
	for i, v := range p.Weights {
		if v < engine.MinWeight || v > engine.MaxWeight {
			return w, errors.Errorf("play.weights[%d] = %g outside [%g, %g]", i, v, engine.MinWeight, engine.MaxWeight)
		}
		w[i] = v
	}
	return w, nil
}

// SearchOptions returns the MCTS options for the configured values.
func (m MCTSConfig) SearchOptions() []mcts.Option {
	return []mcts.Option{
		mcts.WithDuration(m.Duration),
		mcts.WithExploreMoves(m.ExploreMoves),
		mcts.WithMaxDepth(m.MaxDepth),
		mcts.WithExploration(m.Exploration),
	}
}

// EngineConfig returns the evolution engine configuration.
func (e EvolutionConfig) EngineConfig() evolution.Config {
	return evolution.Config{
		PopulationSize: e.Population,
		MutationSigma:  e.MutationSigma,
		Depth:          e.Depth,
		GameTimeout:    e.GameTimeout,
		StartPosition:  e.Start,
	}
}
