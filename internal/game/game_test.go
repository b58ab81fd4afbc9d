package game

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/chessevolve/internal/board"
	"github.com/hailam/chessevolve/internal/engine"
	"github.com/hailam/chessevolve/internal/player"
)

// fixed is a player with a constant opinion of every position.
type fixed struct {
	player.Player
	h float64
}

func (f fixed) Heuristic(*board.Position) float64 { return f.h }

func knightShuffle() (white, black *player.Scripted) {
	s := player.NewScript("g1f3", "g8f6", "f3g1", "f6g8")
	return player.NewScripted(s), player.NewScripted(s)
}

func TestFoolsMate(t *testing.T) {
	white, black := player.NewFoolsMate()
	g, err := New(white, black, 0)
	require.NoError(t, err)

	res, err := g.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, board.Black, res.Winner)
	assert.True(t, res.Outcome.IsCheckmate())
	assert.False(t, res.Pseudo)
	assert.Equal(t, 4, res.Plies)
	assert.Equal(t, "0-1", res.String())

	san := g.SAN()
	require.Len(t, san, 4)
	assert.Equal(t, []string{"f3", "e6", "g4"}, san[:3])
	assert.True(t, strings.HasPrefix(san[3], "Qh4"))
}

func TestMinimaxMatesFromSecondStart(t *testing.T) {
	g, err := New(player.NewRandom(), player.NewMinimax(engine.DefaultWeights(), 1), 1)
	require.NoError(t, err)
	assert.Equal(t, StartPositions[1], g.StartFEN())

	res, err := g.Simulate(context.Background(), time.Minute)
	require.NoError(t, err)
	assert.Equal(t, board.Black, res.Winner)
	assert.Equal(t, 1, res.Plies)
}

func TestUnknownStartPosition(t *testing.T) {
	_, err := New(player.NewRandom(), player.NewRandom(), len(StartPositions))
	assert.ErrorIs(t, err, ErrStartPosition)

	_, err = NewFromFEN(player.NewRandom(), player.NewRandom(), "not a fen")
	assert.Error(t, err)
}

func TestAutomatedPlayerGivesUp(t *testing.T) {
	bad := player.NewScripted(player.NewScript("e2e5"))
	g, err := New(bad, player.NewRandom(), 0)
	require.NoError(t, err)

	err = g.NextTurn()
	assert.ErrorIs(t, err, ErrTooManyIllegal)
	assert.Empty(t, g.History)
}

func TestManualPlayerIsAskedAgain(t *testing.T) {
	manual := player.NewManual(strings.NewReader("zz\ne2e5\ne4\n"), nil)
	g, err := New(manual, player.NewRandom(), 0)
	require.NoError(t, err)

	require.NoError(t, g.NextTurn())
	require.Len(t, g.History, 1)
	assert.Equal(t, "e2e4", g.History[0].String())
	assert.Equal(t, board.Black, g.Position.SideToMove)
}

func TestFivefoldRepetition(t *testing.T) {
	white, black := knightShuffle()
	g, err := New(white, black, 0)
	require.NoError(t, err)

	res, err := g.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, board.FivefoldRepetition, res.Outcome.Termination)
	assert.True(t, res.IsDraw())
	assert.Equal(t, 16, res.Plies)
}

func TestSimulateTimeoutUsesPseudoWinner(t *testing.T) {
	g, err := NewFromFEN(player.NewRandom(), player.NewRandom(), StartPositions[2])
	require.NoError(t, err)

	res, err := g.Simulate(context.Background(), time.Nanosecond)
	require.NoError(t, err)
	assert.True(t, res.Pseudo)
	assert.Nil(t, res.Outcome)
	assert.Equal(t, board.White, res.Winner)
}

func TestPseudoWinner(t *testing.T) {
	even := board.StartFEN
	whiteUp := StartPositions[2]

	for _, tc := range []struct {
		name         string
		fen          string
		white, black float64
		want         board.Color
	}{
		{"both say white", even, 1, -1, board.White},
		{"both say black", whiteUp, -1, 1, board.Black},
		{"disagree, white has material", whiteUp, 1, 1, board.White},
		{"disagree, even material", even, 1, 1, board.Black},
		{"no opinion", even, 0, 0, board.Black},
	} {
		t.Run(tc.name, func(t *testing.T) {
			g, err := NewFromFEN(fixed{player.NewRandom(), tc.white}, fixed{player.NewRandom(), tc.black}, tc.fen)
			require.NoError(t, err)
			assert.Equal(t, tc.want, g.PseudoWinner())
		})
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g, err := New(player.NewRandom(), player.NewRandom(), 0)
	require.NoError(t, err)
	_, err = g.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSeries(t *testing.T) {
	white, black := player.NewFoolsMate()
	res, err := Series(context.Background(), white, black, 3, 0)
	require.NoError(t, err)
	assert.Equal(t, SeriesResult{Games: 3, BlackWins: 3}, res)
	assert.Zero(t, res.WhiteWinRate())

	// Stopped after two full moves with even material.
	white, black = knightShuffle()
	res, err = Series(context.Background(), white, black, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, SeriesResult{Games: 2, Draws: 2}, res)
}
