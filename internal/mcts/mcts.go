// Package mcts implements a Monte Carlo tree search player that keeps its
// tree between moves.
package mcts

import (
	"fmt"
	"math"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"

	"github.com/hailam/chessevolve/internal/board"
	"github.com/hailam/chessevolve/internal/engine"
)

// Defaults for a new Searcher.
const (
	DefaultDuration     = 5 * time.Second
	DefaultExploreMoves = 5
	DefaultMaxDepth     = 5
	DefaultExploration  = 1.5
)

type Option func(s *Searcher)

// WithDuration sets the wall-clock budget per move.
func WithDuration(d time.Duration) Option {
	return func(s *Searcher) {
		if d > 0 {
			s.duration = d
		}
	}
}

// WithIterations caps the number of outer iterations per move. The search
// stops at whichever of the duration or iteration budget runs out first.
func WithIterations(n int) Option {
	return func(s *Searcher) {
		if n > 0 {
			s.iterations = n
		}
	}
}

// WithExploreMoves sets the number of rollouts per outer iteration.
func WithExploreMoves(n int) Option {
	return func(s *Searcher) {
		if n > 0 {
			s.exploreMoves = n
		}
	}
}

// WithMaxDepth sets the rollout depth after which the evaluator is used.
func WithMaxDepth(depth int) Option {
	return func(s *Searcher) {
		if depth > 0 {
			s.maxDepth = depth
		}
	}
}

// WithExploration sets the UCB1 exploration constant.
func WithExploration(c float64) Option {
	return func(s *Searcher) {
		if c >= 0 {
			s.c = c
		}
	}
}

// WithSeed makes expansion choices reproducible.
func WithSeed(seed uint64) Option {
	return func(s *Searcher) {
		s.rng = rand.New(rand.NewSource(seed))
	}
}

// WithEvaluator sets the evaluator used at the rollout depth limit.
func WithEvaluator(e *engine.Evaluator) Option {
	return func(s *Searcher) {
		if e != nil {
			s.eval = e
		}
	}
}

// Searcher is a single-threaded MCTS player.
type Searcher struct {
	duration     time.Duration
	iterations   int
	exploreMoves int
	maxDepth     int
	c            float64
	eval         *engine.Evaluator
	rng          *rand.Rand

	color board.Color
	tree  *tree
	stats Stats
}

// New creates a searcher with the given options applied over the defaults.
func New(options ...Option) *Searcher {
	s := &Searcher{
		duration:     DefaultDuration,
		exploreMoves: DefaultExploreMoves,
		maxDepth:     DefaultMaxDepth,
		c:            DefaultExploration,
		color:        board.NoColor,
	}
	for _, option := range options {
		option(s)
	}
	if s.eval == nil {
		s.eval = engine.NewEvaluator(engine.DefaultWeights())
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(uint64(time.Now().UnixNano())))
	}
	return s
}

// SetColor fixes the side the searcher plays for and drops any kept tree.
func (s *Searcher) SetColor(c board.Color) {
	if c != s.color {
		s.tree = nil
	}
	s.color = c
}

// Color returns the side the searcher plays for.
func (s *Searcher) Color() board.Color {
	return s.color
}

// Stats returns statistics about the last ChooseMove call.
func (s *Searcher) Stats() Stats {
	return s.stats
}

// Heuristic returns the evaluator's score of pos for the searcher's color.
func (s *Searcher) Heuristic(pos *board.Position) float64 {
	c := s.color
	if c == board.NoColor {
		c = pos.SideToMove
	}
	return s.eval.Evaluate(pos, c)
}

// ChooseMove runs the search from pos and returns the most visited move.
// The chosen child becomes the root kept for the next call.
func (s *Searcher) ChooseMove(pos *board.Position) (board.Move, error) {
	if s.color == board.NoColor {
		s.color = pos.SideToMove
	}
	if out := pos.Outcome(); out != nil {
		return board.NoMove, errors.Wrapf(engine.ErrNoLegalMoves, "game over: %s", out)
	}

	start := time.Now()
	s.stats = Stats{}
	s.acquire(pos)
	s.search(start)

	best := s.finalChoice()
	move := s.tree.node(best).move
	s.stats.Duration = time.Since(start)
	s.stats.TreeSize = s.tree.size()

	log.Debug().
		Str("color", s.color.String()).
		Str("move", move.String()).
		Int("visits", s.tree.node(best).nt).
		Int("iterations", s.stats.Iterations).
		Int("rollouts", s.stats.Rollouts).
		Bool("reused", s.stats.Reused).
		Int("tree", s.stats.TreeSize).
		Dur("elapsed", s.stats.Duration).
		Msg("mcts search done")

	s.tree = s.tree.subtree(best)
	return move, nil
}

// acquire reuses the kept tree when pos is already in it, otherwise it
// starts a new one. The root is always expanded afterwards.
func (s *Searcher) acquire(pos *board.Position) {
	if s.tree != nil {
		if i := s.tree.find(pos); i >= 0 {
			if i != 0 {
				s.tree = s.tree.subtree(i)
			}
			s.stats.Reused = true
		} else {
			log.Debug().Str("fen", pos.ToFEN()).Msg("position not in kept tree, rebuilding")
			s.tree = nil
		}
	}
	if s.tree == nil {
		s.tree = newTree(pos.Copy())
	}
	s.tree.expandAll(0)
}

// search runs outer iterations until the budget is spent. The budget is
// checked between iterations only.
func (s *Searcher) search(start time.Time) {
	deadline := start.Add(s.duration)
	for {
		if s.iterations > 0 && s.stats.Iterations >= s.iterations {
			return
		}
		if time.Now().After(deadline) {
			return
		}
		s.iterate()
	}
}

// iterate performs one select, expand, simulate and backpropagate cycle.
func (s *Searcher) iterate() {
	best := s.selectChild(0)
	child := s.expand(best)
	for i := 0; i < s.exploreMoves; i++ {
		leaf, reward := s.rollout(child)
		s.backpropagate(leaf, reward)
		s.stats.Rollouts++
	}
	s.stats.Iterations++
}

// ucb returns the UCB1 score of node i. Unvisited nodes score +Inf.
func (s *Searcher) ucb(i int) float64 {
	n := s.tree.node(i)
	if n.nt == 0 {
		return math.Inf(1)
	}
	np := s.tree.node(n.parent).nt
	if np == 0 {
		np = 1
	}
	return n.qt/float64(n.nt) + s.c*math.Sqrt(math.Log(float64(np))/float64(n.nt))
}

// selectChild picks a child of node i. Unvisited children come first. Then
// the searcher maximises UCB1 on its own turn and minimises it on the
// opponent's.
func (s *Searcher) selectChild(i int) int {
	n := s.tree.node(i)
	if !n.expanded() {
		panic(fmt.Sprintf("mcts: select on unexpanded node %s", s.tree.position(i).ToFEN()))
	}

	own := n.toMove == s.color
	best := -1
	var bestScore float64
	for _, c := range n.children {
		if s.tree.node(c).nt == 0 {
			return c
		}
		v := s.ucb(c)
		if best < 0 || (own && v > bestScore) || (!own && v < bestScore) {
			best, bestScore = c, v
		}
	}
	return best
}

// expand descends from node i through expanded nodes until it reaches a
// leaf, expands it and returns a random new child. A leaf that ends the
// game is returned as is.
func (s *Searcher) expand(i int) int {
	for s.tree.node(i).expanded() {
		i = s.selectChild(i)
	}
	if s.tree.position(i).Outcome() != nil {
		return i
	}
	if s.tree.expandAll(i) == 0 {
		panic(fmt.Sprintf("mcts: no legal moves in non-terminal position %s", s.tree.position(i).ToFEN()))
	}
	children := s.tree.node(i).children
	return children[s.rng.Intn(len(children))]
}

// rollout keeps expanding from node i until the game ends or the depth
// budget is spent. It returns the node it stopped at and the reward in [0,1].
func (s *Searcher) rollout(i int) (int, float64) {
	for depth := 0; ; depth++ {
		pos := s.tree.position(i)
		if out := pos.Outcome(); out != nil {
			switch {
			case out.IsCheckmate() && out.Winner == s.color:
				return i, 1
			case out.IsCheckmate():
				return i, 0
			default:
				return i, 0.5
			}
		}
		if depth >= s.maxDepth {
			h := s.eval.Evaluate(pos, s.color)
			return i, (h + engine.WinScore) / (2 * engine.WinScore)
		}
		i = s.expand(i)
	}
}

// backpropagate adds one visit and reward to node i and all its ancestors.
func (s *Searcher) backpropagate(i int, reward float64) {
	s.tree.node(i).ends++
	for ; i != noParent; i = s.tree.node(i).parent {
		n := s.tree.node(i)
		n.nt++
		n.qt += reward
	}
}

// finalChoice returns the root child with the most visits, breaking ties
// by the larger accumulated reward.
func (s *Searcher) finalChoice() int {
	best := -1
	for _, c := range s.tree.root().children {
		n := s.tree.node(c)
		if best < 0 {
			best = c
			continue
		}
		b := s.tree.node(best)
		if n.nt > b.nt || (n.nt == b.nt && n.qt > b.qt) {
			best = c
		}
	}
	return best
}
