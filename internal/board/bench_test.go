package board

import (
	"strings"
	"testing"

	"github.com/notnil/chess"
)

// The evaluator counts legal moves for both colours at every leaf and MCTS
// rollouts generate moves at every step, so move generation is the hot
// path. These benchmarks run the same work on this package and on
// notnil/chess:
//
//	go test -bench . -benchmem ./internal/board

const benchFEN = "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1"

func notnilPerft(pos *chess.Position, depth int) uint64 {
	moves := pos.ValidMoves()
	if depth == 1 {
		return uint64(len(moves))
	}
	var nodes uint64
	for _, m := range moves {
		nodes += notnilPerft(pos.Update(m), depth-1)
	}
	return nodes
}

func TestNotnilPerftMatches(t *testing.T) {
	pos, err := ParseFEN(benchFEN)
	if err != nil {
		t.Fatal(err)
	}
	cp, err := notation(pos)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := notnilPerft(cp, 2), Perft(pos, 2); got != want {
		t.Fatalf("notnil perft 2 = %d, want %d", got, want)
	}
}

func BenchmarkPerft3(b *testing.B) {
	pos, err := ParseFEN(benchFEN)
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		Perft(pos, 3)
	}
}

func BenchmarkPerft3Notnil(b *testing.B) {
	pos, err := ParseFEN(benchFEN)
	if err != nil {
		b.Fatal(err)
	}
	cp, err := notation(pos)
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		notnilPerft(cp, 3)
	}
}

// BenchmarkMobility is the per-leaf work of the mobility feature.
func BenchmarkMobility(b *testing.B) {
	pos, err := ParseFEN(benchFEN)
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = pos.WithSideToMove(White).GenerateLegalMoves().Len() -
			pos.WithSideToMove(Black).GenerateLegalMoves().Len()
	}
}

// BenchmarkMobilityNotnil does the same through notnil/chess, which has
// no way to change the side to move except through FEN.
func BenchmarkMobilityNotnil(b *testing.B) {
	white := benchFEN
	black := strings.Replace(benchFEN, " w ", " b ", 1)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		var counts [2]int
		for c, fen := range []string{white, black} {
			opt, err := chess.FEN(fen)
			if err != nil {
				b.Fatal(err)
			}
			counts[c] = len(chess.NewGame(opt).Position().ValidMoves())
		}
		_ = counts[0] - counts[1]
	}
}
