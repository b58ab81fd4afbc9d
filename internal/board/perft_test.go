package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerft(t *testing.T) {
	tests := []struct {
		name   string
		fen    string
		counts []uint64 // by depth, starting at 1
	}{
		{"start", StartFEN, []uint64{20, 400, 8902}},
		{"kiwipete", "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq -", []uint64{48, 2039, 97862}},
		{"en passant endgame", "8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - -", []uint64{14, 191, 2812, 43238}},
		// e4xd3 would expose the king on a4 to the rook on h4.
		{"en passant pin", "8/8/8/8/k2Pp2R/8/8/4K3 b - d3 0 1", []uint64{6, 94}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pos, err := ParseFEN(tc.fen)
			require.NoError(t, err)
			before := pos.ToFEN()

			for i, want := range tc.counts {
				assert.Equal(t, want, Perft(pos, i+1), "depth %d", i+1)
			}
			assert.Equal(t, before, pos.ToFEN(), "make/unmake must restore the position")
		})
	}
}

func TestEnPassantPinnedIsIllegal(t *testing.T) {
	pos, err := ParseFEN("8/8/8/8/k2Pp2R/8/8/4K3 b - d3 0 1")
	require.NoError(t, err)

	for _, m := range pos.LegalMoves() {
		assert.False(t, m.IsEnPassant(), "en passant %v leaves the king in check", m)
	}
}

func TestCheckmateDetection(t *testing.T) {
	mated, err := ParseFEN("R6k/6pp/8/8/8/8/8/K7 b - - 0 1")
	require.NoError(t, err)
	assert.True(t, mated.InCheck())
	assert.True(t, mated.IsCheckmate())
	assert.Empty(t, mated.LegalMoves())

	// The king can take the unprotected rook.
	escape, err := ParseFEN("6Rk/8/8/8/8/8/8/K7 b - - 0 1")
	require.NoError(t, err)
	assert.True(t, escape.InCheck())
	assert.False(t, escape.IsCheckmate())
	assert.Nil(t, escape.Outcome())
}
