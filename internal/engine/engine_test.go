package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/chessevolve/internal/board"
)

var testFENs = []string{
	board.StartFEN,
	"rnbqkbnr/pppp1ppp/4p3/8/6P1/5P2/PPPPP2P/RNBQKBNR b KQkq - 0 2",
	"1k6/3R4/2Q5/8/8/8/8/1K6 w - - 0 2",
	"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
}

func mustFEN(t *testing.T, fen string) *board.Position {
	t.Helper()
	pos, err := board.ParseFEN(fen)
	require.NoError(t, err)
	return pos
}

func TestStartPositionIsBalanced(t *testing.T) {
	pos := board.NewPosition()
	f := ComputeFeatures(pos, board.White)
	assert.Equal(t, Features{}, f)

	eval := NewEvaluator(DefaultWeights())
	assert.Zero(t, eval.Evaluate(pos, board.White))
	assert.Zero(t, eval.Evaluate(pos, board.Black))
}

func TestEvaluateIsAntisymmetric(t *testing.T) {
	eval := NewEvaluator(DefaultWeights())
	for _, fen := range testFENs {
		pos := mustFEN(t, fen)
		w := eval.Evaluate(pos, board.White)
		b := eval.Evaluate(pos, board.Black)
		assert.InDelta(t, w, -b, 1e-9, fen)
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	eval := NewEvaluator(Weights{1, 2, 3, 4, 5, 0.5})
	pos := mustFEN(t, testFENs[3])
	first := eval.Evaluate(pos, board.White)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, eval.Evaluate(pos, board.White))
	}
}

func TestZeroWeightsScoreZero(t *testing.T) {
	eval := NewEvaluator(Weights{})
	for _, fen := range testFENs {
		assert.Zero(t, eval.Evaluate(mustFEN(t, fen), board.White), fen)
	}
}

func TestFeatures(t *testing.T) {
	// White: Kb1, Qc6, Rd7. Black: Kb8.
	pos := mustFEN(t, "1k6/3R4/2Q5/8/8/8/8/1K6 w - - 0 2")
	f := ComputeFeatures(pos, board.White)

	assert.Equal(t, 14.0, f[FeatureMaterial])
	assert.Zero(t, f[FeatureAdvancement])
	assert.Greater(t, f[FeatureMobility], 0.0, "the black king has no moves")
	assert.Zero(t, f[FeatureThreats])
	assert.Equal(t, 1.0, f[FeatureProtects], "the queen guards the rook")

	black := ComputeFeatures(pos, board.Black)
	for i := range f {
		assert.Equal(t, -f[i], black[i], FeatureName(i))
	}
}

func TestPawnAdvancement(t *testing.T) {
	// White pawn e2 -> e5 is 3 ranks ahead; black pawn d7 -> d6 is 1.
	pos := mustFEN(t, "4k3/8/3p4/4P3/8/8/8/4K3 w - - 0 1")
	f := ComputeFeatures(pos, board.White)
	assert.Equal(t, 2.0, f[FeatureAdvancement])
}

func TestPieceSquareMirrors(t *testing.T) {
	wn := board.NewPiece(board.Knight, board.White)
	bn := board.NewPiece(board.Knight, board.Black)
	assert.Equal(t, pieceSquareValue(wn, board.G1), pieceSquareValue(bn, board.G8))
	assert.Equal(t, -40, pieceSquareValue(wn, board.G1))

	wp := board.NewPiece(board.Pawn, board.White)
	assert.Equal(t, -20, pieceSquareValue(wp, board.E2))
	assert.Equal(t, 50, pieceSquareValue(wp, board.E7))
}

func TestClamp(t *testing.T) {
	w := Weights{-3, 0, 2.5, 5, 7, 1e9}.Clamp()
	assert.Equal(t, Weights{0, 0, 2.5, 5, 5, 5}, w)
}

func TestNormalized(t *testing.T) {
	n := Weights{1, 1, 2, 0, 0, 0}.Normalized()
	assert.InDelta(t, 1.0, n.Sum(), 1e-12)
	assert.Equal(t, 0.5, n[2])
	assert.Equal(t, Weights{}, Weights{}.Normalized())
}

func TestDefaultWeightsAreACopy(t *testing.T) {
	w := DefaultWeights()
	w[0] = 100
	assert.NotEqual(t, w, DefaultWeights())
}

func TestMinimaxFindsMateInOne(t *testing.T) {
	pos := mustFEN(t, "6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1")
	s := NewSearcher(NewEvaluator(DefaultWeights()), 3)
	s.SetColor(board.White)

	res, err := s.ChooseMove(pos)
	require.NoError(t, err)
	assert.Equal(t, "a1a8", res.Move.String())
	assert.Equal(t, WinScore, res.Value)
	assert.Equal(t, 1, res.Depth, "the shallowest mate wins the tie-break")
	assert.Greater(t, s.Nodes(), uint64(0))
}

func TestMinimaxTakesHangingQueen(t *testing.T) {
	pos := mustFEN(t, "4k3/8/8/3q4/8/8/8/3RK3 w - - 0 1")
	before := pos.ToFEN()

	for depth := 1; depth <= 2; depth++ {
		s := NewSearcher(NewEvaluator(Weights{1, 0, 0, 0, 0, 0}), depth)
		res, err := s.ChooseMove(pos)
		require.NoError(t, err)
		assert.Equal(t, "d1d5", res.Move.String(), "depth %d", depth)
		assert.Equal(t, before, pos.ToFEN(), "search must not change the position")
	}
}

func TestMinimaxIsDeterministic(t *testing.T) {
	pos := mustFEN(t, testFENs[3])
	w := Weights{1, 0.5, 0.2, 0.3, 0.4, 0.1}

	first, err := NewSearcher(NewEvaluator(w), 2).ChooseMove(pos)
	require.NoError(t, err)

	again := NewSearcher(NewEvaluator(w), 2)
	for i := 0; i < 3; i++ {
		res, err := again.ChooseMove(pos)
		require.NoError(t, err)
		assert.Equal(t, first, res, "call %d", i)

		res, err = NewSearcher(NewEvaluator(w), 2).ChooseMove(pos)
		require.NoError(t, err)
		assert.Equal(t, first, res, "fresh searcher %d", i)
	}
}

func TestMinimaxStartDoesNotHangMaterial(t *testing.T) {
	pos := board.NewPosition()
	s := NewSearcher(NewEvaluator(Weights{1, 0, 0, 0, 0, 0}), 1)

	res, err := s.ChooseMove(pos)
	require.NoError(t, err)
	assert.InDelta(t, 0, res.Value, 1e-12)

	pos.MakeMove(res.Move)
	for _, reply := range pos.LegalMoves() {
		undo := pos.MakeMove(reply)
		assert.Zero(t, Material(pos), "%s %s", res.Move, reply)
		pos.UnmakeMove(reply, undo)
	}
}

func TestMinimaxAvoidsMateForBlack(t *testing.T) {
	// After 1. f3 e6 2. g4, Black mates with Qh4.
	pos := mustFEN(t, "rnbqkbnr/pppp1ppp/4p3/8/6P1/5P2/PPPPP2P/RNBQKBNR b KQkq - 0 2")
	s := NewSearcher(nil, 1)
	s.SetColor(board.Black)

	res, err := s.ChooseMove(pos)
	require.NoError(t, err)
	assert.Equal(t, "d8h4", res.Move.String())
	assert.Equal(t, WinScore, res.Value)
}

func TestChooseMoveErrors(t *testing.T) {
	mated := mustFEN(t, "R6k/6pp/8/8/8/8/8/K7 b - - 0 1")
	s := NewSearcher(nil, 2)
	_, err := s.ChooseMove(mated)
	assert.True(t, errors.Is(err, ErrNoLegalMoves))

	s = NewSearcher(nil, 2)
	s.SetColor(board.Black)
	_, err = s.ChooseMove(board.NewPosition())
	assert.Error(t, err)
}

func TestOnInfo(t *testing.T) {
	s := NewSearcher(nil, 1)
	var got SearchInfo
	s.OnInfo = func(info SearchInfo) { got = info }

	res, err := s.ChooseMove(board.NewPosition())
	require.NoError(t, err)
	assert.Equal(t, res, got.Result)
	assert.Equal(t, uint64(21), got.Nodes, "root plus one node per legal move")
}

func TestScoreToString(t *testing.T) {
	assert.Equal(t, "win", ScoreToString(WinScore))
	assert.Equal(t, "loss", ScoreToString(LoseScore))
	assert.Equal(t, "0.250", ScoreToString(0.25))
}
