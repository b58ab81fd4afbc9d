package engine

import (
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/hailam/chessevolve/internal/board"
)

// DefaultDepth is the search depth used when none is configured.
const DefaultDepth = 3

// ErrNoLegalMoves is returned when a move is requested in a finished game.
var ErrNoLegalMoves = errors.New("no legal moves")

// Result is the outcome of a minimax search.
type Result struct {
	Move  board.Move
	Value float64
	Depth int // depth at which Value was found
}

// SearchInfo contains information about a completed search.
type SearchInfo struct {
	Result
	Nodes uint64
	Time  time.Duration
}

// Searcher is a depth-limited minimax searcher with alpha-beta pruning.
// A Searcher is not safe for concurrent use; give each goroutine its own.
type Searcher struct {
	eval     *Evaluator
	maxDepth int
	color    board.Color

	nodes    uint64
	stopFlag atomic.Bool

	// Callbacks
	OnInfo func(SearchInfo)
}

// NewSearcher creates a searcher. Depths below 1 are raised to 1.
func NewSearcher(eval *Evaluator, maxDepth int) *Searcher {
	if eval == nil {
		eval = NewEvaluator(DefaultWeights())
	}
	return &Searcher{
		eval:     eval,
		maxDepth: max(maxDepth, 1),
		color:    board.NoColor,
	}
}

// SetColor fixes the side the searcher plays for. Until it is set the
// searcher plays for whichever side is to move.
func (s *Searcher) SetColor(c board.Color) {
	s.color = c
}

// Color returns the side the searcher plays for.
func (s *Searcher) Color() board.Color {
	return s.color
}

// MaxDepth returns the search depth in plies.
func (s *Searcher) MaxDepth() int {
	return s.maxDepth
}

// Evaluator returns the evaluator used at the leaves.
func (s *Searcher) Evaluator() *Evaluator {
	return s.eval
}

// Nodes returns the number of nodes visited by the last search.
func (s *Searcher) Nodes() uint64 {
	return s.nodes
}

// Stop makes a running search return the best move found so far.
func (s *Searcher) Stop() {
	s.stopFlag.Store(true)
}

// ChooseMove searches pos to the configured depth and returns the best move
// for the searcher's color. pos is left unchanged.
func (s *Searcher) ChooseMove(pos *board.Position) (Result, error) {
	if s.color == board.NoColor {
		s.color = pos.SideToMove
	}
	if pos.SideToMove != s.color {
		return Result{}, errors.Errorf("search for %s called with %s to move", s.color, pos.SideToMove)
	}
	if out := pos.Outcome(); out != nil {
		return Result{}, errors.Wrapf(ErrNoLegalMoves, "game over: %s", out)
	}

	s.nodes = 0
	s.stopFlag.Store(false)
	start := time.Now()

	root := pos.Copy()
	move, value, depth := s.maxValue(root, 0, math.Inf(-1), math.Inf(1))

	info := SearchInfo{
		Result: Result{Move: move, Value: value, Depth: depth},
		Nodes:  s.nodes,
		Time:   time.Since(start),
	}
	log.Debug().
		Str("color", s.color.String()).
		Str("move", move.String()).
		Str("score", ScoreToString(value)).
		Int("found", depth).
		Uint64("nodes", s.nodes).
		Dur("elapsed", info.Time).
		Msg("minimax search done")

	if s.OnInfo != nil {
		s.OnInfo(info)
	}
	return info.Result, nil
}

// Heuristic returns the static evaluation of pos for the searcher's color.
func (s *Searcher) Heuristic(pos *board.Position) float64 {
	c := s.color
	if c == board.NoColor {
		c = pos.SideToMove
	}
	return s.eval.Evaluate(pos, c)
}

// ScoreToString converts a score to a human-readable string.
func ScoreToString(score float64) string {
	switch {
	case score >= WinScore:
		return "win"
	case score <= LoseScore:
		return "loss"
	default:
		return fmt.Sprintf("%.3f", score)
	}
}
