package evolution

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/hailam/chessevolve/internal/board"
	"github.com/hailam/chessevolve/internal/game"
	"github.com/hailam/chessevolve/internal/player"
	"github.com/hailam/chessevolve/internal/storage"
)

// Recorder stores finished games. It must be safe for concurrent use.
type Recorder interface {
	RecordGame(rec storage.GameRecord) (uint64, error)
}

// WithRecorder stores every simulated game.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// PlayerLabel names a genome in recorded games.
func PlayerLabel(generation, index int) string {
	return fmt.Sprintf("g%d/p%d", generation, index)
}

// simulate plays a match between two fresh minimax players. A draw counts
// as a White loss.
func (e *Engine) simulate(ctx context.Context, m Match) (board.Color, error) {
	white := player.NewMinimax(m.WhiteGenes, e.cfg.Depth)
	black := player.NewMinimax(m.BlackGenes, e.cfg.Depth)
	g, err := game.New(white, black, e.cfg.StartPosition)
	if err != nil {
		return board.NoColor, err
	}

	start := time.Now()
	res, err := g.Simulate(ctx, e.cfg.GameTimeout)
	if err != nil {
		return board.NoColor, err
	}
	elapsed := time.Since(start)

	if e.recorder != nil {
		rec := storage.GameRecord{
			White:      PlayerLabel(m.Generation, m.White),
			Black:      PlayerLabel(m.Generation, m.Black),
			StartFEN:   g.StartFEN(),
			Moves:      lo.Map(g.History, func(mv board.Move, _ int) string { return mv.String() }),
			Result:     res.String(),
			Pseudo:     res.Pseudo,
			Duration:   elapsed,
			Generation: m.Generation,
			Round:      m.Round,
		}
		if res.Outcome != nil {
			rec.Termination = res.Outcome.Termination.String()
		}
		if _, err := e.recorder.RecordGame(rec); err != nil {
			return board.NoColor, err
		}
	}
	return res.Winner, nil
}
