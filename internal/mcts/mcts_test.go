package mcts

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/chessevolve/internal/board"
	"github.com/hailam/chessevolve/internal/engine"
)

func mustFEN(t *testing.T, fen string) *board.Position {
	t.Helper()
	pos, err := board.ParseFEN(fen)
	require.NoError(t, err)
	return pos
}

// checkCounts verifies that every node's visits equal its children's visits
// plus the rollouts that stopped on it.
func checkCounts(t *testing.T, tr *tree) {
	t.Helper()
	for i := range tr.nodes {
		n := tr.node(i)
		sum := n.ends
		for _, c := range n.children {
			sum += tr.node(c).nt
			assert.Equal(t, i, tr.node(c).parent)
		}
		assert.Equal(t, n.nt, sum, "node %d (%s)", i, n.move)
	}
}

func TestNewDefaults(t *testing.T) {
	s := New()
	assert.Equal(t, DefaultDuration, s.duration)
	assert.Equal(t, DefaultExploreMoves, s.exploreMoves)
	assert.Equal(t, DefaultMaxDepth, s.maxDepth)
	assert.Equal(t, DefaultExploration, s.c)
	assert.NotNil(t, s.eval)

	// Non-positive values keep the defaults.
	s = New(WithDuration(0), WithExploreMoves(-1), WithMaxDepth(0))
	assert.Equal(t, DefaultDuration, s.duration)
	assert.Equal(t, DefaultExploreMoves, s.exploreMoves)
	assert.Equal(t, DefaultMaxDepth, s.maxDepth)
}

func TestVisitCounts(t *testing.T) {
	s := New(WithIterations(25), WithExploreMoves(3), WithSeed(1))
	s.SetColor(board.White)

	s.acquire(board.NewPosition())
	require.Equal(t, 20, len(s.tree.root().children))

	s.search(time.Now())
	assert.Equal(t, 25, s.stats.Iterations)
	assert.Equal(t, 75, s.stats.Rollouts)
	assert.Equal(t, 75, s.tree.root().nt, "root visits equal rollouts dispatched")
	checkCounts(t, s.tree)

	for _, c := range s.tree.root().children {
		n := s.tree.node(c)
		if n.nt > 0 {
			avg := n.qt / float64(n.nt)
			assert.GreaterOrEqual(t, avg, 0.0)
			assert.LessOrEqual(t, avg, 1.0)
		}
	}
}

func TestSelectPrefersUnvisited(t *testing.T) {
	for _, color := range []board.Color{board.White, board.Black} {
		s := New(WithSeed(2))
		s.SetColor(color)
		s.tree = newTree(board.NewPosition())
		s.tree.expandAll(0)

		root := s.tree.root()
		root.nt = 10
		children := s.tree.root().children
		for i, c := range children {
			if i == 7 {
				continue
			}
			s.tree.node(c).nt = 1
			s.tree.node(c).qt = 0.5
		}

		assert.Equal(t, children[7], s.selectChild(0), "searching as %s", color)
	}
}

func TestSelectMaxAndMin(t *testing.T) {
	s := New()
	s.tree = newTree(board.NewPosition())
	s.tree.expandAll(0)
	s.tree.root().nt = 40

	children := s.tree.root().children
	for _, c := range children {
		s.tree.node(c).nt = 2
		s.tree.node(c).qt = 1
	}
	s.tree.node(children[3]).qt = 2
	s.tree.node(children[5]).qt = 0

	s.color = board.White
	assert.Equal(t, children[3], s.selectChild(0), "own turn maximises")

	s.color = board.Black
	assert.Equal(t, children[5], s.selectChild(0), "opponent turn minimises")
}

func TestUCB(t *testing.T) {
	s := New(WithExploration(1.5))
	s.tree = newTree(board.NewPosition())
	s.tree.expandAll(0)
	c := s.tree.root().children[0]

	assert.True(t, math.IsInf(s.ucb(c), 1), "unvisited is +Inf")

	s.tree.root().nt = 1
	s.tree.node(c).nt = 1
	s.tree.node(c).qt = 0.5
	assert.InDelta(t, 0.5, s.ucb(c), 1e-12, "ln(1) is zero")

	s.tree.root().nt = 10
	s.tree.node(c).nt = 4
	s.tree.node(c).qt = 3
	assert.InDelta(t, 0.75+1.5*0.7585, s.ucb(c), 1e-3)
}

func TestFinalChoice(t *testing.T) {
	s := New()
	s.tree = newTree(board.NewPosition())
	s.tree.expandAll(0)
	children := s.tree.root().children

	s.tree.node(children[2]).nt = 5
	s.tree.node(children[2]).qt = 1
	s.tree.node(children[9]).nt = 5
	s.tree.node(children[9]).qt = 3
	s.tree.node(children[4]).nt = 4
	s.tree.node(children[4]).qt = 4

	assert.Equal(t, children[9], s.finalChoice())
}

func TestFindsMateInOne(t *testing.T) {
	s := New(WithIterations(150), WithMaxDepth(2), WithSeed(3))
	pos := mustFEN(t, "6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1")

	m, err := s.ChooseMove(pos)
	require.NoError(t, err)
	assert.Equal(t, "a1a8", m.String())
	assert.False(t, s.Stats().Reused)
}

func TestTreeReuse(t *testing.T) {
	s := New(WithIterations(60), WithMaxDepth(2), WithSeed(4))
	s.SetColor(board.White)

	pos := board.NewPosition()
	m, err := s.ChooseMove(pos)
	require.NoError(t, err)
	pos.MakeMove(m)

	// The kept root is the position after our move.
	assert.Equal(t, pos.ToFEN(), s.tree.root().pos.ToFEN())
	assert.Equal(t, noParent, s.tree.root().parent)
	checkCounts(t, s.tree)

	require.NotEmpty(t, s.tree.root().children, "the chosen child was visited so it was expanded")
	reply := s.tree.node(s.tree.root().children[0]).move
	pos.MakeMove(reply)

	_, err = s.ChooseMove(pos)
	require.NoError(t, err)
	assert.True(t, s.Stats().Reused)

	// A position the tree never saw forces a rebuild.
	other := mustFEN(t, "1k6/4R3/8/2Q5/8/8/8/1K6 w - - 0 2")
	_, err = s.ChooseMove(other)
	require.NoError(t, err)
	assert.False(t, s.Stats().Reused)
}

func TestSubtreeKeepsCounts(t *testing.T) {
	s := New(WithIterations(30), WithSeed(5))
	s.SetColor(board.White)
	s.acquire(board.NewPosition())
	s.search(time.Now())

	best := s.finalChoice()
	visits := s.tree.node(best).nt
	size := s.tree.countFrom(best)

	sub := s.tree.subtree(best)
	assert.Equal(t, size, sub.size())
	assert.Equal(t, visits, sub.root().nt)
	assert.Equal(t, s.tree.node(best).move, sub.root().move)
	checkCounts(t, sub)
}

func TestRolloutRewards(t *testing.T) {
	// Black is mated: a win for White, a loss for Black.
	mated := mustFEN(t, "R6k/6pp/8/8/8/8/8/K7 b - - 0 1")
	stalemate := mustFEN(t, "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")

	for _, tc := range []struct {
		pos   *board.Position
		color board.Color
		want  float64
	}{
		{mated, board.White, 1},
		{mated, board.Black, 0},
		{stalemate, board.White, 0.5},
	} {
		s := New()
		s.SetColor(tc.color)
		s.tree = newTree(tc.pos)
		leaf, reward := s.rollout(0)
		assert.Equal(t, 0, leaf)
		assert.Equal(t, tc.want, reward)
	}
}

func TestRolloutDepthLimit(t *testing.T) {
	s := New(WithMaxDepth(1), WithSeed(6), WithEvaluator(engine.NewEvaluator(engine.DefaultWeights())))
	s.SetColor(board.White)
	s.tree = newTree(board.NewPosition())

	leaf, reward := s.rollout(0)
	assert.Equal(t, 0, s.tree.node(leaf).parent, "one ply below the start")
	assert.InDelta(t, 0.5, reward, 1e-9)
}

func TestChooseMoveGameOver(t *testing.T) {
	s := New(WithIterations(1))
	_, err := s.ChooseMove(mustFEN(t, "R6k/6pp/8/8/8/8/8/K7 b - - 0 1"))
	assert.True(t, errors.Is(err, engine.ErrNoLegalMoves))
}

func TestChildPositionsAreBuiltOnDemand(t *testing.T) {
	tr := newTree(board.NewPosition())
	require.Equal(t, 20, tr.expandAll(0))
	for _, c := range tr.root().children {
		assert.Nil(t, tr.node(c).pos)
		assert.Equal(t, board.Black, tr.node(c).toMove)
		assert.Equal(t, c, tr.root().byMove[tr.node(c).move])
	}

	c := tr.root().children[0]
	want := board.NewPosition()
	want.MakeMove(tr.node(c).move)
	assert.Equal(t, want.ToFEN(), tr.position(c).ToFEN())
	assert.Same(t, tr.position(c), tr.node(c).pos)
}

func TestSearchBuildsFewPositions(t *testing.T) {
	s := New(WithIterations(25), WithExploreMoves(3), WithSeed(7))
	s.SetColor(board.White)
	s.acquire(board.NewPosition())
	s.search(time.Now())

	built := 0
	for i := range s.tree.nodes {
		if s.tree.node(i).pos != nil {
			built++
		}
	}
	assert.Less(t, built, s.tree.size()/2, "only visited nodes hold a position")
}

func TestFindFollowsMoves(t *testing.T) {
	tr := newTree(board.NewPosition())
	tr.expandAll(0)

	pos := board.NewPosition()
	e4, err := pos.ParseMoveText("e2e4")
	require.NoError(t, err)
	pos.MakeMove(e4)
	child := tr.find(pos)
	require.Equal(t, tr.root().byMove[e4], child)

	tr.expandAll(child)
	e5, err := pos.ParseMoveText("e7e5")
	require.NoError(t, err)
	pos.MakeMove(e5)
	assert.Equal(t, tr.node(child).byMove[e5], tr.find(pos))

	assert.Equal(t, -1, tr.find(mustFEN(t, "1k6/4R3/8/2Q5/8/8/8/1K6 w - - 0 2")))
}
