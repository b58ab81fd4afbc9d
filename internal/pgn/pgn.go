// Package pgn converts played games to and from PGN text.
package pgn

import (
	"io"
	"time"

	"github.com/notnil/chess"
	"github.com/pkg/errors"

	"github.com/hailam/chessevolve/internal/board"
	"github.com/hailam/chessevolve/internal/game"
)

// Headers are the tag pairs written in front of the moves. Empty values
// are left out.
type Headers struct {
	Event string
	Site  string
	White string
	Black string
	Date  time.Time
}

// Build replays the moves of a game into a notnil/chess game carrying the
// given result. Results the rules cannot see, such as a decision on time,
// are recorded as a resignation or an agreed draw.
func Build(startFEN string, moves []board.Move, res game.Result, h Headers) (*chess.Game, error) {
	opts := []func(*chess.Game){chess.UseNotation(chess.AlgebraicNotation{})}
	custom := startFEN != "" && startFEN != board.StartFEN
	if custom {
		fen, err := chess.FEN(startFEN)
		if err != nil {
			return nil, errors.Wrap(err, "start position")
		}
		opts = append(opts, fen)
	}

	g := chess.NewGame(opts...)
	for i, m := range moves {
		cm, err := chess.UCINotation{}.Decode(g.Position(), m.String())
		if err == nil {
			err = g.Move(cm)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "ply %d (%s)", i+1, m)
		}
	}

	if g.Outcome() == chess.NoOutcome {
		switch res.Winner {
		case board.White:
			g.Resign(chess.Black)
		case board.Black:
			g.Resign(chess.White)
		default:
			if err := g.Draw(chess.DrawOffer); err != nil {
				return nil, errors.Wrap(err, "record draw")
			}
		}
	}

	tags := [][2]string{
		{"Event", h.Event},
		{"Site", h.Site},
		{"White", h.White},
		{"Black", h.Black},
		{"Result", res.String()},
	}
	if !h.Date.IsZero() {
		tags = append(tags, [2]string{"Date", h.Date.Format("2006.01.02")})
	}
	if custom {
		tags = append(tags, [2]string{"SetUp", "1"}, [2]string{"FEN", startFEN})
	}
	for _, t := range tags {
		if t[1] != "" {
			g.AddTagPair(t[0], t[1])
		}
	}
	return g, nil
}

// Export returns the PGN text of a finished game.
func Export(g *game.Game, res game.Result, h Headers) (string, error) {
	cg, err := Build(g.StartFEN(), g.History, res, h)
	if err != nil {
		return "", err
	}
	return cg.String(), nil
}

// Write writes the PGN text of a finished game to w.
func Write(w io.Writer, g *game.Game, res game.Result, h Headers) error {
	text, err := Export(g, res, h)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, text+"\n")
	return err
}

// Import reads one PGN game and returns its start position and its moves
// in UCI notation.
func Import(r io.Reader) (startFEN string, moves []string, err error) {
	opt, err := chess.PGN(r)
	if err != nil {
		return "", nil, errors.Wrap(err, "parse pgn")
	}
	g := chess.NewGame(opt)

	positions := g.Positions()
	for i, m := range g.Moves() {
		moves = append(moves, chess.UCINotation{}.Encode(positions[i], m))
	}
	return positions[0].String(), moves, nil
}
