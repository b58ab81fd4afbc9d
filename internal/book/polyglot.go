package book

import (
	"encoding/binary"
	"io"
	"os"
	"sort"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"lukechampine.com/frand"

	"github.com/hailam/chessevolve/internal/board"
)

// Entry is one Polyglot book move.
type Entry struct {
	Move   board.Move
	Weight uint16
}

// LoadPolyglot loads a Polyglot format opening book from a file.
func LoadPolyglot(filename string) (*Book, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "open polyglot book")
	}
	defer file.Close()

	b := New()
	if err := b.ReadPolyglot(file); err != nil {
		return nil, errors.Wrapf(err, "read polyglot book %s", filename)
	}
	return b, nil
}

// ReadPolyglot adds the entries of a Polyglot book to b.
//
// Entry format, big-endian:
// 8 bytes position key, 2 bytes move, 2 bytes weight, 4 bytes learn data (ignored).
func (b *Book) ReadPolyglot(r io.Reader) error {
	var entry [16]byte
	for {
		_, err := io.ReadFull(r, entry[:])
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		key := binary.BigEndian.Uint64(entry[0:8])
		move := decodePolyglotMove(binary.BigEndian.Uint16(entry[8:10]))
		weight := binary.BigEndian.Uint16(entry[10:12])
		b.polyglot[key] = append(b.polyglot[key], Entry{Move: move, Weight: weight})
	}

	// Highest weight first.
	for _, entries := range b.polyglot {
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Weight > entries[j].Weight
		})
	}
	return nil
}

// decodePolyglotMove converts a Polyglot move encoding to a Move.
// Bits 0-5: to square, 6-11: from square, 12-14: promotion
// (0 none, 1 knight, 2 bishop, 3 rook, 4 queen).
func decodePolyglotMove(data uint16) board.Move {
	to := board.NewSquare(int(data&7), int((data>>3)&7))
	from := board.NewSquare(int((data>>6)&7), int((data>>9)&7))
	promo := (data >> 12) & 7

	// Polyglot encodes castling as king takes rook.
	switch {
	case from == board.E1 && to == board.H1:
		to = board.G1
	case from == board.E1 && to == board.A1:
		to = board.C1
	case from == board.E8 && to == board.H8:
		to = board.G8
	case from == board.E8 && to == board.A8:
		to = board.C8
	}

	if promo > 0 && promo <= 4 {
		promoTypes := [5]board.PieceType{0, board.Knight, board.Bishop, board.Rook, board.Queen}
		return board.NewPromotion(from, to, promoTypes[promo])
	}
	return board.NewMove(from, to)
}

// Probe picks a Polyglot move for pos by weighted random selection. The
// returned move carries the flags of the matching legal move.
func (b *Book) Probe(pos *board.Position) (board.Move, bool) {
	if b == nil {
		return board.NoMove, false
	}
	entries := b.polyglot[pos.PolyglotHash()]
	if len(entries) == 0 {
		return board.NoMove, false
	}

	total := lo.SumBy(entries, func(e Entry) int { return int(e.Weight) })
	if total == 0 {
		return toLegal(pos, entries[0].Move), true
	}

	r := frand.Intn(total)
	for _, e := range entries {
		r -= int(e.Weight)
		if r < 0 {
			return toLegal(pos, e.Move), true
		}
	}
	return toLegal(pos, entries[0].Move), true
}

// ProbeAll returns all Polyglot moves for the position, highest weight first.
func (b *Book) ProbeAll(pos *board.Position) []Entry {
	if b == nil {
		return nil
	}
	return append([]Entry(nil), b.polyglot[pos.PolyglotHash()]...)
}

// toLegal returns the legal move matching m's squares and promotion, or
// NoMove if there is none.
func toLegal(pos *board.Position, m board.Move) board.Move {
	legal, ok := lo.Find(pos.LegalMoves(), func(lm board.Move) bool {
		return lm.From() == m.From() && lm.To() == m.To() &&
			lm.IsPromotion() == m.IsPromotion() &&
			(!m.IsPromotion() || lm.Promotion() == m.Promotion())
	})
	if !ok {
		return board.NoMove
	}
	return legal
}
