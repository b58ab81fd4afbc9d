package player

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/hailam/chessevolve/internal/board"
	"github.com/hailam/chessevolve/internal/engine"
	"github.com/hailam/chessevolve/internal/mcts"
)

// Minimax plays the moves chosen by a minimax searcher.
type Minimax struct {
	base
	options
	searcher *engine.Searcher
}

// NewMinimax creates a minimax player with the given weights and depth.
func NewMinimax(w engine.Weights, depth int, opts ...Option) *Minimax {
	p := &Minimax{
		base:    newBase(w),
		options: applyOptions(opts),
	}
	p.searcher = engine.NewSearcher(p.eval, depth)
	return p
}

// SetColor sets the side the player and its searcher play for.
func (p *Minimax) SetColor(c board.Color) {
	p.base.SetColor(c)
	p.searcher.SetColor(c)
}

// Weights returns the evaluator weights.
func (p *Minimax) Weights() engine.Weights {
	return p.eval.Weights()
}

// Searcher returns the underlying searcher.
func (p *Minimax) Searcher() *engine.Searcher {
	return p.searcher
}

// NextMove returns a book move if there is one, otherwise the searched move in UCI.
func (p *Minimax) NextMove(pos *board.Position) (string, error) {
	if text, ok := p.book.Lookup(pos); ok {
		log.Debug().Str("move", text).Msg("book move")
		return text, nil
	}
	res, err := p.searcher.ChooseMove(pos)
	if err != nil {
		return "", errors.WithMessage(err, "minimax")
	}
	return res.Move.String(), nil
}

// MCTS plays the moves chosen by a Monte Carlo tree search.
type MCTS struct {
	base
	options
	searcher *mcts.Searcher
}

// NewMCTS creates an MCTS player. The evaluator built from w is used at the
// rollout depth limit unless opts set another one.
func NewMCTS(w engine.Weights, searchOpts []mcts.Option, opts ...Option) *MCTS {
	p := &MCTS{
		base:    newBase(w),
		options: applyOptions(opts),
	}
	all := append([]mcts.Option{mcts.WithEvaluator(p.eval)}, searchOpts...)
	p.searcher = mcts.New(all...)
	return p
}

// SetColor sets the side the player and its searcher play for.
func (p *MCTS) SetColor(c board.Color) {
	p.base.SetColor(c)
	p.searcher.SetColor(c)
}

// Searcher returns the underlying searcher.
func (p *MCTS) Searcher() *mcts.Searcher {
	return p.searcher
}

// NextMove returns a book move if there is one, otherwise the searched move in UCI.
func (p *MCTS) NextMove(pos *board.Position) (string, error) {
	if text, ok := p.book.Lookup(pos); ok {
		log.Debug().Str("move", text).Msg("book move")
		return text, nil
	}
	m, err := p.searcher.ChooseMove(pos)
	if err != nil {
		return "", errors.WithMessage(err, "mcts")
	}
	return m.String(), nil
}
