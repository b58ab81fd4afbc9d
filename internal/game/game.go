// Package game runs chess games between two players.
package game

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/hailam/chessevolve/internal/board"
	"github.com/hailam/chessevolve/internal/engine"
	"github.com/hailam/chessevolve/internal/player"
)

// StartPositions are the positions a game can be started from by index.
var StartPositions = []string{
	board.StartFEN,
	// After 1. f3 e6 2. g4, Black to mate in one.
	"rnbqkbnr/pppp1ppp/4p3/8/6P1/5P2/PPPPP2P/RNBQKBNR b KQkq - 0 2",
	"1k6/3R4/2Q5/8/8/8/8/1K6 w - - 0 2",
	"1k6/4R3/8/2Q5/8/8/8/1K6 w - - 0 2",
}

// MaxIllegalMoves is how many illegal moves in a row an automated player may
// offer before the game gives up on it.
const MaxIllegalMoves = 10

// repetitionLimit ends the game on the fifth occurrence of a position.
const repetitionLimit = 5

var (
	// ErrTooManyIllegal is returned when an automated player keeps offering
	// illegal moves.
	ErrTooManyIllegal = errors.New("too many illegal moves")
	// ErrStartPosition is returned for an unknown start position index.
	ErrStartPosition = errors.New("unknown start position")
)

// Result describes how a game ended.
type Result struct {
	Winner  board.Color    // NoColor for a draw
	Outcome *board.Outcome // nil when the game was decided by PseudoWinner
	Pseudo  bool
	Plies   int
}

// IsDraw reports whether nobody won.
func (r Result) IsDraw() bool {
	return r.Winner == board.NoColor
}

// String returns a PGN style result such as "1-0".
func (r Result) String() string {
	switch r.Winner {
	case board.White:
		return "1-0"
	case board.Black:
		return "0-1"
	default:
		return "1/2-1/2"
	}
}

// Game is a game in progress. It owns its position; players only ever see
// copies of it.
type Game struct {
	White    player.Player
	Black    player.Player
	Position *board.Position
	History  []board.Move

	startFEN string
	seen     map[uint64]int
}

// New creates a game from one of StartPositions and assigns colors.
func New(white, black player.Player, start int) (*Game, error) {
	if start < 0 || start >= len(StartPositions) {
		return nil, errors.Wrapf(ErrStartPosition, "index %d", start)
	}
	return NewFromFEN(white, black, StartPositions[start])
}

// NewFromFEN creates a game from an arbitrary position and assigns colors.
func NewFromFEN(white, black player.Player, fen string) (*Game, error) {
	pos, err := board.ParseFEN(fen)
	if err != nil {
		return nil, errors.Wrap(err, "start position")
	}
	white.SetColor(board.White)
	black.SetColor(board.Black)
	return &Game{
		White:    white,
		Black:    black,
		Position: pos,
		startFEN: pos.ToFEN(),
		seen:     map[uint64]int{pos.Hash: 1},
	}, nil
}

// StartFEN returns the position the game started from.
func (g *Game) StartFEN() string {
	return g.startFEN
}

// Current returns the player to move.
func (g *Game) Current() player.Player {
	if g.Position.SideToMove == board.White {
		return g.White
	}
	return g.Black
}

// SAN returns the moves played so far in SAN.
func (g *Game) SAN() []string {
	start, err := board.ParseFEN(g.startFEN)
	if err != nil {
		panic(err)
	}
	return board.MovesToSAN(start, g.History)
}

// NextTurn asks the player to move for a move and plays it. Illegal moves
// are rejected and the player is asked again; automated players are given up
// on after MaxIllegalMoves attempts.
func (g *Game) NextTurn() error {
	p := g.Current()
	for attempt := 1; ; attempt++ {
		text, err := p.NextMove(g.Position.Copy())
		if err != nil {
			return errors.WithMessagef(err, "%s to move", g.Position.SideToMove)
		}
		m, err := g.Position.ParseMoveText(text)
		if err == nil {
			g.play(m)
			return nil
		}

		log.Warn().Err(err).Str("color", g.Position.SideToMove.String()).Msg("invalid format or illegal move")
		if !player.IsInteractive(p) && attempt >= MaxIllegalMoves {
			return errors.Wrapf(ErrTooManyIllegal, "%s offered %q", g.Position.SideToMove, text)
		}
	}
}

func (g *Game) play(m board.Move) {
	g.Position.MakeMove(m)
	g.History = append(g.History, m)
	g.seen[g.Position.Hash]++
}

// Outcome returns the result of the game, or nil while it is in progress.
func (g *Game) Outcome() *board.Outcome {
	if out := g.Position.Outcome(); out != nil {
		return out
	}
	if g.seen[g.Position.Hash] >= repetitionLimit {
		return &board.Outcome{Termination: board.FivefoldRepetition, Winner: board.NoColor}
	}
	return nil
}

func (g *Game) result(out *board.Outcome) Result {
	return Result{Winner: out.Winner, Outcome: out, Plies: len(g.History)}
}

// Run plays the game until it ends or ctx is cancelled.
func (g *Game) Run(ctx context.Context) (Result, error) {
	for {
		if out := g.Outcome(); out != nil {
			log.Info().Str("outcome", out.String()).Int("plies", len(g.History)).Msg("game over")
			return g.result(out), nil
		}
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		log.Debug().
			Str("fen", g.Position.ToFEN()).
			Float64("material", engine.Material(g.Position)).
			Msg("turn")
		if err := g.NextTurn(); err != nil {
			return Result{}, err
		}
	}
}

// Simulate plays the game until it ends or timeout has elapsed. A game that
// runs out of time is decided by PseudoWinner. A timeout of zero means no
// limit. The limit is checked between moves.
func (g *Game) Simulate(ctx context.Context, timeout time.Duration) (Result, error) {
	start := time.Now()
	for {
		if out := g.Outcome(); out != nil {
			return g.result(out), nil
		}
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if timeout > 0 && time.Since(start) > timeout {
			return Result{Winner: g.PseudoWinner(), Pseudo: true, Plies: len(g.History)}, nil
		}
		if err := g.NextTurn(); err != nil {
			return Result{}, err
		}
	}
}

// PseudoWinner decides an unfinished game. When both players agree on who
// is ahead that side wins. Otherwise White wins if it has more material and
// Black wins in every other case, including equal material.
func (g *Game) PseudoWinner() board.Color {
	white := g.White.Heuristic(g.Position)
	black := g.Black.Heuristic(g.Position)
	material := engine.Material(g.Position)

	var winner board.Color
	switch {
	case white > 0 && black < 0:
		winner = board.White
	case black > 0 && white < 0:
		winner = board.Black
	case material > 0:
		winner = board.White
	default:
		winner = board.Black
	}
	log.Debug().
		Float64("white", white).
		Float64("black", black).
		Float64("material", material).
		Str("winner", winner.String()).
		Msg("pseudo winner")
	return winner
}
