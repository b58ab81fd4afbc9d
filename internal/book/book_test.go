package book

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/chessevolve/internal/board"
)

// polyglotEntry encodes a move in Polyglot format.
func polyglotEntry(t *testing.T, buf *bytes.Buffer, key uint64, from, to board.Square, weight uint16) {
	t.Helper()
	move := uint16(to.File()) | uint16(to.Rank())<<3 | uint16(from.File())<<6 | uint16(from.Rank())<<9
	require.NoError(t, binary.Write(buf, binary.BigEndian, key))
	require.NoError(t, binary.Write(buf, binary.BigEndian, move))
	require.NoError(t, binary.Write(buf, binary.BigEndian, weight))
	require.NoError(t, binary.Write(buf, binary.BigEndian, uint32(0)))
}

func TestPolyglotHashRestoredByUnmake(t *testing.T) {
	pos := board.NewPosition()
	before := pos.PolyglotHash()

	m := board.NewMove(board.E2, board.E4)
	undo := pos.MakeMove(m)
	assert.NotEqual(t, before, pos.PolyglotHash())

	pos.UnmakeMove(m, undo)
	assert.Equal(t, before, pos.PolyglotHash())
}

func TestPolyglotLoadAndProbe(t *testing.T) {
	pos := board.NewPosition()

	var buf bytes.Buffer
	polyglotEntry(t, &buf, pos.PolyglotHash(), board.E2, board.E4, 100)
	polyglotEntry(t, &buf, pos.PolyglotHash(), board.D2, board.D4, 0)

	b := New()
	require.NoError(t, b.ReadPolyglot(&buf))
	assert.Equal(t, 1, b.Size())

	all := b.ProbeAll(pos)
	require.Len(t, all, 2)
	assert.Equal(t, uint16(100), all[0].Weight, "highest weight first")

	// The zero-weight entry is never drawn.
	for i := 0; i < 20; i++ {
		m, ok := b.Probe(pos)
		require.True(t, ok)
		assert.Equal(t, "e2e4", m.String())
	}

	text, ok := b.Lookup(pos)
	require.True(t, ok)
	assert.Equal(t, "e2e4", text)
}

func TestPolyglotTruncated(t *testing.T) {
	b := New()
	err := b.ReadPolyglot(bytes.NewReader(make([]byte, 10)))
	assert.Error(t, err)
}

func TestDecodePolyglotMove(t *testing.T) {
	tests := []struct {
		data uint16
		want string
	}{
		{4 | 3<<3 | 4<<6 | 1<<9, "e2e4"},
		{3 | 4<<3 | 3<<6 | 6<<9, "d7d5"},
		{7 | 0<<3 | 4<<6 | 0<<9, "e1g1"}, // king takes rook
		{0 | 7<<3 | 4<<6 | 7<<9, "e8c8"},
		{0 | 7<<3 | 0<<6 | 6<<9 | 4<<12, "a7a8q"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, decodePolyglotMove(tc.data).String())
	}
}

func TestBookMiss(t *testing.T) {
	var nilBook *Book
	_, ok := nilBook.Lookup(board.NewPosition())
	assert.False(t, ok)

	_, ok = New().Lookup(board.NewPosition())
	assert.False(t, ok)
}

func TestSplitMoves(t *testing.T) {
	assert.Equal(t, []string{"e4", "e5", "Nf3", "Nc6"}, SplitMoves("1. e4 e5 2. Nf3 Nc6"))
	assert.Equal(t, []string{"d4", "d5"}, SplitMoves("1.d4 1...d5"))
	assert.Empty(t, SplitMoves("  "))
}

const ecoJSON = `[
	{"eco": "C20", "name": "King's Pawn Game", "moves": "1. e4 e5"},
	{"eco": "C40", "name": "King's Knight Opening", "moves": "1. e4 e5 2. Nf3"},
	{"eco": "B00", "name": "King's Pawn", "moves": "1. e4 Nc6"},
	{"eco": "A40", "name": "Queen's Pawn", "moves": "1. d4"}
]`

func TestReadECO(t *testing.T) {
	b := New()
	require.NoError(t, b.ReadECO(strings.NewReader(ecoJSON)))

	start := board.NewPosition()
	assert.ElementsMatch(t, []string{"e4", "d4"}, b.Moves(start), "duplicates are dropped")

	afterE4 := board.NewPosition()
	afterE4.MakeMove(board.NewMove(board.E2, board.E4))
	assert.ElementsMatch(t, []string{"e5", "Nc6"}, b.Moves(afterE4))

	for i := 0; i < 20; i++ {
		text, ok := b.Lookup(afterE4)
		require.True(t, ok)
		assert.Contains(t, []string{"e5", "Nc6"}, text)

		_, err := afterE4.ParseMoveText(text)
		assert.NoError(t, err)
	}

	// Move counters do not affect the key.
	counted, err := board.ParseFEN("rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 3 9")
	require.NoError(t, err)
	assert.NotEmpty(t, b.Moves(counted))
}

func TestReadECOErrors(t *testing.T) {
	assert.Error(t, New().ReadECO(strings.NewReader(`{not json`)))
	assert.Error(t, New().ReadECO(strings.NewReader(`[{"moves": "1. e4 Ke7 2. Qxf7"}]`)))
}

func TestLoadByExtension(t *testing.T) {
	dir := t.TempDir()
	eco := filepath.Join(dir, "openings.JSON")
	require.NoError(t, os.WriteFile(eco, []byte(ecoJSON), 0o644))

	b, err := Load(eco)
	require.NoError(t, err)
	assert.Equal(t, 3, b.Size(), "start, after e4 and after e4 e5")

	var buf bytes.Buffer
	polyglotEntry(t, &buf, board.NewPosition().PolyglotHash(), board.D2, board.D4, 1)
	bin := filepath.Join(dir, "book.bin")
	require.NoError(t, os.WriteFile(bin, buf.Bytes(), 0o644))

	b, err = Load(bin)
	require.NoError(t, err)
	text, ok := b.Lookup(board.NewPosition())
	require.True(t, ok)
	assert.Equal(t, "d2d4", text)

	_, err = Load(filepath.Join(dir, "missing.bin"))
	assert.Error(t, err)
}
