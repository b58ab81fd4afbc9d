package board

import (
	"errors"
	"fmt"
	"strings"
)

// ErrIllegalMove is returned when move text parses but is not legal in the position.
var ErrIllegalMove = errors.New("illegal move")

// Termination describes how a game ended.
type Termination uint8

const (
	NoTermination Termination = iota
	Checkmate
	Stalemate
	InsufficientMaterial
	SeventyFiveMoves
	FivefoldRepetition
)

// String returns the termination name.
func (t Termination) String() string {
	switch t {
	case Checkmate:
		return "Checkmate"
	case Stalemate:
		return "Stalemate"
	case InsufficientMaterial:
		return "InsufficientMaterial"
	case SeventyFiveMoves:
		return "SeventyFiveMoves"
	case FivefoldRepetition:
		return "FivefoldRepetition"
	default:
		return "None"
	}
}

// Outcome is the result of a finished game.
// Winner is NoColor for every termination except checkmate.
type Outcome struct {
	Termination Termination
	Winner      Color
}

// IsCheckmate reports whether the game ended by checkmate.
func (o *Outcome) IsCheckmate() bool {
	return o != nil && o.Termination == Checkmate
}

// String returns a short description such as "Checkmate (Black)".
func (o *Outcome) String() string {
	if o == nil {
		return "*"
	}
	if o.Winner == NoColor {
		return o.Termination.String()
	}
	return fmt.Sprintf("%s (%s)", o.Termination, o.Winner)
}

// seventyFiveMoveClock is the half-move clock value that ends the game
// without a claim.
const seventyFiveMoveClock = 150

// Outcome returns the game result, or nil if the game is still in progress.
// Repetition is not detected here since a Position carries no history.
func (p *Position) Outcome() *Outcome {
	hasMoves := p.HasLegalMoves()
	if !hasMoves && p.InCheck() {
		return &Outcome{Termination: Checkmate, Winner: p.SideToMove.Other()}
	}
	if p.IsInsufficientMaterial() {
		return &Outcome{Termination: InsufficientMaterial, Winner: NoColor}
	}
	if !hasMoves {
		return &Outcome{Termination: Stalemate, Winner: NoColor}
	}
	if p.HalfMoveClock >= seventyFiveMoveClock {
		return &Outcome{Termination: SeventyFiveMoves, Winner: NoColor}
	}
	return nil
}

// ColorAt returns the color of the piece on sq, or NoColor if it is empty.
func (p *Position) ColorAt(sq Square) Color {
	bb := SquareBB(sq)
	switch {
	case p.Occupied[White]&bb != 0:
		return White
	case p.Occupied[Black]&bb != 0:
		return Black
	default:
		return NoColor
	}
}

// AttacksFrom returns the squares attacked by the piece on sq.
// Sliding attacks stop at (and include) the first occupied square.
func (p *Position) AttacksFrom(sq Square) Bitboard {
	piece := p.PieceAt(sq)
	switch piece.Type() {
	case Pawn:
		return PawnAttacks(sq, piece.Color())
	case Knight:
		return KnightAttacks(sq)
	case Bishop:
		return BishopAttacks(sq, p.AllOccupied)
	case Rook:
		return RookAttacks(sq, p.AllOccupied)
	case Queen:
		return QueenAttacks(sq, p.AllOccupied)
	case King:
		return KingAttacks(sq)
	default:
		return Empty
	}
}

// WithSideToMove returns a copy of the position with the side to move forced to c.
// The copy may be an illegal game state (the other king in check); it is meant
// for counting moves, not for play. En passant rights are dropped when the
// side changes since they belong to the original mover.
func (p *Position) WithSideToMove(c Color) *Position {
	cp := p.Copy()
	if cp.SideToMove != c {
		cp.SideToMove = c
		cp.EnPassant = NoSquare
		cp.Hash = cp.ComputeHash()
	}
	cp.UpdateCheckers()
	return cp
}

// LegalMoves returns the legal moves as a slice.
func (p *Position) LegalMoves() []Move {
	return p.GenerateLegalMoves().Slice()
}

// ParseMoveText parses a move in UCI ("e2e4", "e7e8q") or SAN ("Nf3", "O-O")
// notation and returns it only if it is legal in the position.
func (p *Position) ParseMoveText(text string) (Move, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return NoMove, fmt.Errorf("empty move text")
	}

	legal := p.GenerateLegalMoves()

	if looksLikeUCI(text) {
		m, err := ParseMove(text, p)
		if err == nil && legal.Contains(m) {
			return m, nil
		}
	}

	m, err := ParseSAN(text, p)
	if err != nil {
		return NoMove, fmt.Errorf("%w: %s: %v", ErrIllegalMove, text, err)
	}
	if !legal.Contains(m) {
		return NoMove, fmt.Errorf("%w: %s", ErrIllegalMove, text)
	}
	return m, nil
}

// looksLikeUCI reports whether s has the shape of a coordinate move.
func looksLikeUCI(s string) bool {
	if len(s) != 4 && len(s) != 5 {
		return false
	}
	for i := 0; i < 4; i += 2 {
		if s[i] < 'a' || s[i] > 'h' || s[i+1] < '1' || s[i+1] > '8' {
			return false
		}
	}
	return true
}
