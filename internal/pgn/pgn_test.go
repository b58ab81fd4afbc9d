package pgn

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/notnil/chess"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/chessevolve/internal/board"
	"github.com/hailam/chessevolve/internal/game"
	"github.com/hailam/chessevolve/internal/player"
)

func TestExportFoolsMate(t *testing.T) {
	white, black := player.NewFoolsMate()
	g, err := game.New(white, black, 0)
	require.NoError(t, err)
	res, err := g.Run(context.Background())
	require.NoError(t, err)

	cg, err := Build(g.StartFEN(), g.History, res, Headers{White: "fool", Black: "mate"})
	require.NoError(t, err)
	assert.Equal(t, chess.BlackWon, cg.Outcome())
	assert.Equal(t, chess.Checkmate, cg.Method())

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, g, res, Headers{White: "fool", Black: "mate"}))
	text := buf.String()
	assert.Contains(t, text, `[White "fool"]`)
	assert.Contains(t, text, `[Result "0-1"]`)
	assert.True(t, strings.Contains(text, "Qh4#"), text)

	start, moves, err := Import(strings.NewReader(text))
	require.NoError(t, err)
	assert.Equal(t, player.FoolsMateMoves, moves)
	assert.True(t, strings.HasPrefix(start, "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq"))
}

func TestBuildRecordsTimeDecision(t *testing.T) {
	pos := board.NewPosition()
	m, err := pos.ParseMoveText("e4")
	require.NoError(t, err)

	for _, tc := range []struct {
		winner board.Color
		want   chess.Outcome
		method chess.Method
	}{
		{board.White, chess.WhiteWon, chess.Resignation},
		{board.Black, chess.BlackWon, chess.Resignation},
		{board.NoColor, chess.Draw, chess.DrawOffer},
	} {
		cg, err := Build(board.StartFEN, []board.Move{m}, game.Result{Winner: tc.winner, Pseudo: true}, Headers{})
		require.NoError(t, err)
		assert.Equal(t, tc.want, cg.Outcome())
		assert.Equal(t, tc.method, cg.Method())
	}
}

func TestBuildCustomStart(t *testing.T) {
	fen := game.StartPositions[2]
	pos, err := board.ParseFEN(fen)
	require.NoError(t, err)
	m, err := pos.ParseMoveText("Qb7")
	require.NoError(t, err)

	cg, err := Build(fen, []board.Move{m}, game.Result{Winner: board.White}, Headers{})
	require.NoError(t, err)
	assert.Equal(t, chess.WhiteWon, cg.Outcome())
	assert.Equal(t, chess.Checkmate, cg.Method())
	assert.Contains(t, cg.String(), `[FEN "`+fen+`"]`)
}

func TestBuildRejectsBadStart(t *testing.T) {
	_, err := Build("nonsense", nil, game.Result{}, Headers{})
	assert.Error(t, err)
}
