package board

import (
	"strings"

	"github.com/notnil/chess"
	"github.com/pkg/errors"
)

// SAN is read and written by github.com/notnil/chess. Positions cross over
// as FEN and moves as UCI text, so the two move generators must agree on
// legality, which rules_test.go checks.

var (
	algebraic  = chess.AlgebraicNotation{}
	coordinate = chess.UCINotation{}
)

var sanCleaner = strings.NewReplacer("0-0-0", "O-O-O", "0-0", "O-O", "+", "", "#", "", "!", "", "?", "")

func normalizeSAN(s string) string {
	return sanCleaner.Replace(strings.TrimSpace(s))
}

// notation returns pos as a notnil/chess position.
func notation(pos *Position) (*chess.Position, error) {
	fen, err := chess.FEN(pos.ToFEN())
	if err != nil {
		return nil, errors.Wrap(err, "notation")
	}
	return chess.NewGame(fen).Position(), nil
}

// legalMove returns the notnil/chess move whose UCI text is uci, or nil.
func legalMove(cp *chess.Position, uci string) *chess.Move {
	for _, cm := range cp.ValidMoves() {
		if coordinate.Encode(cp, cm) == uci {
			return cm
		}
	}
	return nil
}

// ToSAN converts a move to Standard Algebraic Notation. Moves that are not
// legal in pos come back as UCI text.
func (m Move) ToSAN(pos *Position) string {
	if m == NoMove {
		return "-"
	}
	cp, err := notation(pos)
	if err != nil {
		return m.String()
	}
	cm := legalMove(cp, m.String())
	if cm == nil {
		return m.String()
	}
	return algebraic.Encode(cp, cm)
}

// ParseSAN returns the legal move of pos written as s. Check marks,
// annotations and zero-style castling are accepted.
func ParseSAN(s string, pos *Position) (Move, error) {
	want := normalizeSAN(s)
	if want == "" {
		return NoMove, errors.Errorf("invalid SAN move: %q", s)
	}
	cp, err := notation(pos)
	if err != nil {
		return NoMove, err
	}
	for _, cm := range cp.ValidMoves() {
		if normalizeSAN(algebraic.Encode(cp, cm)) == want {
			return ParseMove(coordinate.Encode(cp, cm), pos)
		}
	}
	return NoMove, errors.Errorf("no legal move matches %q", s)
}

// MovesToSAN converts a game's moves, played from pos, to SAN. Once a move
// cannot be played the rest are returned as UCI text.
func MovesToSAN(pos *Position, moves []Move) []string {
	out := make([]string, len(moves))
	cp, err := notation(pos)
	for i, m := range moves {
		var cm *chess.Move
		if err == nil && cp != nil {
			cm = legalMove(cp, m.String())
		}
		if cm == nil {
			out[i] = m.String()
			cp = nil
			continue
		}
		out[i] = algebraic.Encode(cp, cm)
		cp = cp.Update(cm)
	}
	return out
}
