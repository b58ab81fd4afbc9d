// Package player defines the move sources a game can be played with.
package player

import (
	"github.com/hailam/chessevolve/internal/board"
	"github.com/hailam/chessevolve/internal/book"
	"github.com/hailam/chessevolve/internal/engine"
)

// Player produces moves for one side of a game.
type Player interface {
	// NextMove returns the move to play in pos as SAN or UCI text.
	NextMove(pos *board.Position) (string, error)
	SetColor(c board.Color)
	Color() board.Color
	// Heuristic scores pos from the player's own side.
	Heuristic(pos *board.Position) float64
}

// Interactive is implemented by players that read moves from a person.
// Games keep re-prompting them after an illegal move instead of giving up.
type Interactive interface {
	Interactive() bool
}

// IsInteractive reports whether p reads its moves from a person.
func IsInteractive(p Player) bool {
	i, ok := p.(Interactive)
	return ok && i.Interactive()
}

// base holds the color and evaluator every player has.
type base struct {
	color board.Color
	eval  *engine.Evaluator
}

func newBase(w engine.Weights) base {
	return base{color: board.NoColor, eval: engine.NewEvaluator(w)}
}

func (b *base) SetColor(c board.Color) { b.color = c }

func (b *base) Color() board.Color { return b.color }

func (b *base) Heuristic(pos *board.Position) float64 {
	c := b.color
	if c == board.NoColor {
		c = pos.SideToMove
	}
	return b.eval.Evaluate(pos, c)
}

// Option configures a searching player.
type Option func(*options)

type options struct {
	book *book.Book
}

// WithBook makes the player answer from the opening book when it can.
func WithBook(b *book.Book) Option {
	return func(o *options) {
		o.book = b
	}
}

func applyOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
