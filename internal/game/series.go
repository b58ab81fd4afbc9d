package game

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/hailam/chessevolve/internal/board"
	"github.com/hailam/chessevolve/internal/engine"
	"github.com/hailam/chessevolve/internal/player"
)

// DefaultSeriesMoves is the full-move number after which a series game is
// stopped and scored on material.
const DefaultSeriesMoves = 50

// SeriesResult counts the results of a series of games.
type SeriesResult struct {
	Games     int
	WhiteWins int
	BlackWins int
	Draws     int
}

// WhiteWinRate returns the fraction of games White won.
func (s SeriesResult) WhiteWinRate() float64 {
	if s.Games == 0 {
		return 0
	}
	return float64(s.WhiteWins) / float64(s.Games)
}

// Series plays n games between the same two players from the initial
// position. A game still running after maxMoves full moves is scored on
// material: a White material lead is a White win and anything else is
// a draw.
func Series(ctx context.Context, white, black player.Player, n, maxMoves int) (SeriesResult, error) {
	if maxMoves <= 0 {
		maxMoves = DefaultSeriesMoves
	}
	var res SeriesResult
	for i := 0; i < n; i++ {
		g, err := New(white, black, 0)
		if err != nil {
			return res, err
		}
		winner, err := g.playSeriesGame(ctx, maxMoves)
		if err != nil {
			return res, err
		}
		res.Games++
		switch winner {
		case board.White:
			res.WhiteWins++
		case board.Black:
			res.BlackWins++
		default:
			res.Draws++
		}
		log.Info().Int("game", i).Str("winner", winner.String()).Msg("series game done")
	}
	return res, nil
}

func (g *Game) playSeriesGame(ctx context.Context, maxMoves int) (board.Color, error) {
	for {
		if out := g.Outcome(); out != nil {
			return out.Winner, nil
		}
		if err := ctx.Err(); err != nil {
			return board.NoColor, err
		}
		if err := g.NextTurn(); err != nil {
			return board.NoColor, err
		}
		if g.Position.FullMoveNumber > maxMoves && g.Outcome() == nil {
			if engine.Material(g.Position) > 0 {
				return board.White, nil
			}
			return board.NoColor, nil
		}
	}
}
