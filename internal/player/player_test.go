package player

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/chessevolve/internal/board"
	"github.com/hailam/chessevolve/internal/book"
	"github.com/hailam/chessevolve/internal/engine"
	"github.com/hailam/chessevolve/internal/mcts"
)

func TestFoolsMateScript(t *testing.T) {
	white, black := NewFoolsMate()
	white.SetColor(board.White)
	black.SetColor(board.Black)

	pos := board.NewPosition()
	players := []Player{white, black}
	for ply := 0; ply < len(FoolsMateMoves); ply++ {
		text, err := players[ply%2].NextMove(pos)
		require.NoError(t, err)
		assert.Equal(t, FoolsMateMoves[ply], text)
		m, err := pos.ParseMoveText(text)
		require.NoError(t, err)
		pos.MakeMove(m)
	}

	out := pos.Outcome()
	require.NotNil(t, out)
	assert.True(t, out.IsCheckmate())
	assert.Equal(t, board.Black, out.Winner)
}

func TestScriptWrapsAround(t *testing.T) {
	s := NewScript("e2e4", "e7e5")
	got := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		m, err := s.pop()
		require.NoError(t, err)
		got = append(got, m)
	}
	assert.Equal(t, []string{"e2e4", "e7e5", "e2e4"}, got)

	_, err := NewScript().pop()
	assert.ErrorIs(t, err, ErrEmptyScript)

	_, err = NewScripted(NewScript()).NextMove(board.NewPosition())
	assert.ErrorIs(t, err, ErrEmptyScript)
}

func TestManual(t *testing.T) {
	var prompt bytes.Buffer
	p := NewManual(strings.NewReader("\n  e2e4 \nNf6\n"), &prompt)
	assert.True(t, IsInteractive(p))

	pos := board.NewPosition()
	text, err := p.NextMove(pos)
	require.NoError(t, err)
	assert.Equal(t, "e2e4", text)

	text, err = p.NextMove(pos)
	require.NoError(t, err)
	assert.Equal(t, "Nf6", text)

	_, err = p.NextMove(pos)
	assert.Equal(t, io.EOF, err)
	assert.Contains(t, prompt.String(), "Input a Move:")
}

func TestRandomPlaysLegalMoves(t *testing.T) {
	p := NewRandom()
	assert.False(t, IsInteractive(p))

	pos := board.NewPosition()
	for i := 0; i < 20 && pos.Outcome() == nil; i++ {
		text, err := p.NextMove(pos)
		require.NoError(t, err)
		m, err := pos.ParseMoveText(text)
		require.NoError(t, err, "move %s in %s", text, pos.ToFEN())
		pos.MakeMove(m)
	}
}

func TestHeuristicUsesColor(t *testing.T) {
	pos, err := board.ParseFEN("1k6/3R4/2Q5/8/8/8/8/1K6 w - - 0 2")
	require.NoError(t, err)

	p := NewMinimax(engine.DefaultWeights(), 1)
	p.SetColor(board.White)
	w := p.Heuristic(pos)
	p.SetColor(board.Black)
	assert.Greater(t, w, 0.0)
	assert.InDelta(t, -w, p.Heuristic(pos), 1e-9)
}

func TestMinimaxPlayer(t *testing.T) {
	pos, err := board.ParseFEN("6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1")
	require.NoError(t, err)

	p := NewMinimax(engine.DefaultWeights(), 2)
	p.SetColor(board.White)
	text, err := p.NextMove(pos)
	require.NoError(t, err)
	assert.Equal(t, "a1a8", text)
	assert.Equal(t, board.White, p.Searcher().Color())
}

func TestMCTSPlayer(t *testing.T) {
	pos, err := board.ParseFEN("6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1")
	require.NoError(t, err)

	p := NewMCTS(engine.DefaultWeights(), []mcts.Option{
		mcts.WithIterations(150), mcts.WithMaxDepth(2), mcts.WithSeed(3),
	})
	p.SetColor(board.White)
	text, err := p.NextMove(pos)
	require.NoError(t, err)
	assert.Equal(t, "a1a8", text)
}

func TestBookMoveComesFirst(t *testing.T) {
	b := book.New()
	require.NoError(t, b.AddLine("1. d4 d5"))

	p := NewMinimax(engine.DefaultWeights(), 1, WithBook(b))
	p.SetColor(board.White)
	text, err := p.NextMove(board.NewPosition())
	require.NoError(t, err)
	assert.Equal(t, "d4", text)

	// Off book the searcher answers.
	pos, err := board.ParseFEN("6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1")
	require.NoError(t, err)
	text, err = p.NextMove(pos)
	require.NoError(t, err)
	assert.Equal(t, "a1a8", text)
}

func TestSearchPlayerGameOver(t *testing.T) {
	mated, err := board.ParseFEN("R6k/6pp/8/8/8/8/8/K7 b - - 0 1")
	require.NoError(t, err)

	_, err = NewMinimax(engine.DefaultWeights(), 1).NextMove(mated)
	assert.ErrorIs(t, err, engine.ErrNoLegalMoves)
	_, err = NewRandom().NextMove(mated)
	assert.ErrorIs(t, err, engine.ErrNoLegalMoves)
}
