// Package book provides opening books. Two formats are supported: ECO-style
// JSON move lines and Polyglot binary books.
package book

import (
	"path/filepath"
	"strings"

	"lukechampine.com/frand"

	"github.com/hailam/chessevolve/internal/board"
)

// Book maps positions to candidate opening moves. It is filled once at
// startup and only read afterwards, so lookups are safe for concurrent use.
type Book struct {
	lines    map[string][]string // position key -> SAN moves
	polyglot map[uint64][]Entry
}

// New creates an empty book.
func New() *Book {
	return &Book{
		lines:    make(map[string][]string),
		polyglot: make(map[uint64][]Entry),
	}
}

// Load opens an opening book, choosing the format by file extension:
// ".json" files are ECO lines and anything else is read as Polyglot.
func Load(path string) (*Book, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return LoadECO(path)
	}
	return LoadPolyglot(path)
}

// positionKey identifies a position by the first four FEN fields, so move
// counters do not matter.
func positionKey(pos *board.Position) string {
	fields := strings.Fields(pos.ToFEN())
	if len(fields) > 4 {
		fields = fields[:4]
	}
	return strings.Join(fields, " ")
}

// Lookup returns a book move for pos, or false if the position is not in the
// book. Moves from ECO lines are chosen uniformly at random and returned in
// SAN; Polyglot moves are chosen by weight and returned in UCI notation.
func (b *Book) Lookup(pos *board.Position) (string, bool) {
	if b == nil {
		return "", false
	}
	if moves := b.lines[positionKey(pos)]; len(moves) > 0 {
		return moves[frand.Intn(len(moves))], true
	}
	if m, ok := b.Probe(pos); ok && m != board.NoMove {
		return m.String(), true
	}
	return "", false
}

// Moves returns the ECO line moves known for pos.
func (b *Book) Moves(pos *board.Position) []string {
	if b == nil {
		return nil
	}
	return append([]string(nil), b.lines[positionKey(pos)]...)
}

// Size returns the number of unique positions in the book.
func (b *Book) Size() int {
	if b == nil {
		return 0
	}
	return len(b.lines) + len(b.polyglot)
}
