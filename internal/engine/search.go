package engine

import (
	"fmt"
	"math"

	"github.com/hailam/chessevolve/internal/board"
)

// terminal reports whether pos ends the game and its score for the searcher.
func (s *Searcher) terminal(pos *board.Position) (float64, bool) {
	out := pos.Outcome()
	if out == nil {
		return 0, false
	}
	if out.IsCheckmate() {
		if out.Winner == s.color {
			return WinScore, true
		}
		return LoseScore, true
	}
	return TieScore, true
}

// maxValue is the searcher's own ply. It returns the best move, its value
// and the depth at which that value was found.
func (s *Searcher) maxValue(pos *board.Position, depth int, alpha, beta float64) (board.Move, float64, int) {
	s.nodes++
	if v, ok := s.terminal(pos); ok {
		return board.NoMove, v, depth
	}
	if depth >= s.maxDepth {
		return board.NoMove, s.eval.Evaluate(pos, s.color), depth
	}

	moves := pos.GenerateLegalMoves()
	if moves.Len() == 0 {
		panic(fmt.Sprintf("engine: no legal moves in non-terminal position %s", pos.ToFEN()))
	}

	v := math.Inf(-1)
	best := board.NoMove
	found := 0
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		undo := pos.MakeMove(m)
		_, vp, f := s.minValue(pos, depth+1, alpha, beta)
		pos.UnmakeMove(m, undo)

		// Among equal values prefer the one found sooner.
		if vp > v || (vp == v && f < found) {
			v, best, found = vp, m, f
		}

		alpha = max(alpha, v)
		if alpha >= beta || s.stopFlag.Load() {
			break
		}
	}
	return best, v, found
}

// minValue is the opponent's ply.
func (s *Searcher) minValue(pos *board.Position, depth int, alpha, beta float64) (board.Move, float64, int) {
	s.nodes++
	if v, ok := s.terminal(pos); ok {
		return board.NoMove, v, depth
	}
	if depth >= s.maxDepth {
		return board.NoMove, s.eval.Evaluate(pos, s.color), depth
	}

	moves := pos.GenerateLegalMoves()
	if moves.Len() == 0 {
		panic(fmt.Sprintf("engine: no legal moves in non-terminal position %s", pos.ToFEN()))
	}

	v := math.Inf(1)
	best := board.NoMove
	found := 0
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		undo := pos.MakeMove(m)
		_, vp, f := s.maxValue(pos, depth+1, alpha, beta)
		pos.UnmakeMove(m, undo)

		if vp < v || (vp == v && f < found) {
			v, best, found = vp, m, f
		}

		beta = min(beta, v)
		if alpha >= beta || s.stopFlag.Load() {
			break
		}
	}
	return best, v, found
}
