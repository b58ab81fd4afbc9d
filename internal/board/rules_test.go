package board

import (
	"sort"
	"testing"

	"github.com/notnil/chess"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func playUCI(t *testing.T, pos *Position, moves ...string) {
	t.Helper()
	for _, s := range moves {
		m, err := pos.ParseMoveText(s)
		require.NoError(t, err, "move %s", s)
		undo := pos.MakeMove(m)
		require.True(t, undo.Valid, "move %s", s)
	}
}

func TestFoolsMate(t *testing.T) {
	pos := NewPosition()
	playUCI(t, pos, "f2f3", "e7e6", "g2g4", "d8h4")

	out := pos.Outcome()
	require.NotNil(t, out)
	assert.Equal(t, Checkmate, out.Termination)
	assert.Equal(t, Black, out.Winner)
	assert.True(t, out.IsCheckmate())
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		name   string
		fen    string
		want   Termination
		winner Color
	}{
		{"in progress", StartFEN, NoTermination, NoColor},
		{"back rank mate", "R6k/6pp/8/8/8/8/8/K7 b - - 0 1", Checkmate, White},
		{"stalemate", "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1", Stalemate, NoColor},
		{"bare kings", "8/8/8/4k3/8/8/8/4K3 w - - 0 1", InsufficientMaterial, NoColor},
		{"knight vs king", "8/8/8/4k3/8/8/8/3NK3 w - - 0 1", InsufficientMaterial, NoColor},
		{"seventy-five moves", "4k3/8/8/8/8/8/8/R3K3 w - - 150 90", SeventyFiveMoves, NoColor},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pos, err := ParseFEN(tc.fen)
			require.NoError(t, err)

			out := pos.Outcome()
			if tc.want == NoTermination {
				assert.Nil(t, out)
				return
			}
			require.NotNil(t, out)
			assert.Equal(t, tc.want, out.Termination)
			assert.Equal(t, tc.winner, out.Winner)
		})
	}
}

func TestAttacksFrom(t *testing.T) {
	pos := NewPosition()

	knight := pos.AttacksFrom(B1)
	assert.ElementsMatch(t, []Square{A3, C3, D2}, knight.Squares())

	// Sliders stop on the first occupied square.
	rook := pos.AttacksFrom(A1)
	assert.ElementsMatch(t, []Square{A2, B1}, rook.Squares())

	pawn := pos.AttacksFrom(E7)
	assert.ElementsMatch(t, []Square{D6, F6}, pawn.Squares())

	assert.Equal(t, Empty, pos.AttacksFrom(E4))
}

func TestColorAt(t *testing.T) {
	pos := NewPosition()
	assert.Equal(t, White, pos.ColorAt(E2))
	assert.Equal(t, Black, pos.ColorAt(E8))
	assert.Equal(t, NoColor, pos.ColorAt(E4))
}

func TestWithSideToMove(t *testing.T) {
	pos := NewPosition()
	playUCI(t, pos, "e2e4")
	require.Equal(t, E3, pos.EnPassant)

	white := pos.WithSideToMove(White)
	assert.Equal(t, White, white.SideToMove)
	assert.Equal(t, NoSquare, white.EnPassant)
	assert.Equal(t, 30, white.GenerateLegalMoves().Len())

	// Forcing the side already to move is a plain copy.
	black := pos.WithSideToMove(Black)
	assert.Equal(t, pos.ToFEN(), black.ToFEN())
	assert.Equal(t, Black, pos.SideToMove, "original must not change")
}

func TestParseMoveText(t *testing.T) {
	pos := NewPosition()

	m, err := pos.ParseMoveText("e2e4")
	require.NoError(t, err)
	assert.Equal(t, NewMove(E2, E4), m)

	m, err = pos.ParseMoveText("Nf3")
	require.NoError(t, err)
	assert.Equal(t, NewMove(G1, F3), m)

	_, err = pos.ParseMoveText("e2e5")
	assert.ErrorIs(t, err, ErrIllegalMove)

	_, err = pos.ParseMoveText("Qh5")
	assert.ErrorIs(t, err, ErrIllegalMove)

	_, err = pos.ParseMoveText("")
	assert.Error(t, err)
}

func TestParseMoveTextCastling(t *testing.T) {
	pos, err := ParseFEN("r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")
	require.NoError(t, err)

	uci, err := pos.ParseMoveText("e1g1")
	require.NoError(t, err)
	san, err := pos.ParseMoveText("O-O")
	require.NoError(t, err)
	assert.Equal(t, uci, san)
	assert.True(t, san.IsCastling())
}

func sortedUCI(moves []Move) []string {
	out := make([]string, len(moves))
	for i, m := range moves {
		out[i] = m.String()
	}
	sort.Strings(out)
	return out
}

// TestLegalMovesAgreeWithNotnil plays seeded random games and compares the
// legal move list at every ply against github.com/notnil/chess.
func TestLegalMovesAgreeWithNotnil(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	notation := chess.UCINotation{}

	for g := 0; g < 4; g++ {
		pos := NewPosition()
		ref := chess.NewGame()

		for ply := 0; ply < 120; ply++ {
			if pos.Outcome() != nil || ref.Outcome() != chess.NoOutcome {
				break
			}

			ours := pos.LegalMoves()
			var theirs []string
			for _, rm := range ref.Position().ValidMoves() {
				theirs = append(theirs, notation.Encode(ref.Position(), rm))
			}
			sort.Strings(theirs)
			require.Equal(t, theirs, sortedUCI(ours), "game %d ply %d fen %s", g, ply, pos.ToFEN())

			m := ours[rng.Intn(len(ours))]
			rm, err := notation.Decode(ref.Position(), m.String())
			require.NoError(t, err)
			require.NoError(t, ref.Move(rm))
			pos.MakeMove(m)
		}
	}
}
