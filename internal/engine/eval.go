// Package engine implements the weighted position evaluator and the
// minimax searcher built on it.
package engine

import (
	"github.com/samber/lo"

	"github.com/hailam/chessevolve/internal/board"
)

// Terminal scores, from the searching side's point of view.
const (
	WinScore  = 1e20
	LoseScore = -1e20
	TieScore  = 0.0
)

// Feature indices into Features and Weights.
const (
	FeatureMaterial = iota
	FeaturePieceSquare
	FeatureAdvancement
	FeatureMobility
	FeatureThreats
	FeatureProtects

	NumFeatures
)

// Weight bounds enforced by Clamp.
const (
	MinWeight = 0.0
	MaxWeight = 5.0
)

var featureNames = [NumFeatures]string{
	"material", "pst", "advancement", "mobility", "threats", "protects",
}

// FeatureName returns a short name for feature index i.
func FeatureName(i int) string {
	return featureNames[i]
}

// Features holds the raw feature values of a position for one perspective.
type Features [NumFeatures]float64

// Weights is the genome tuned by the evolution engine.
type Weights [NumFeatures]float64

// DefaultWeights returns the tuned weight vector used when none is given.
func DefaultWeights() Weights {
	return Weights{3.60064094, 0.38716703, 0.11878024, 0.57353825, 3.18219669, 4.83386152}
}

// Clamp returns a copy with every weight limited to [MinWeight, MaxWeight].
func (w Weights) Clamp() Weights {
	for i, v := range w {
		w[i] = min(max(v, MinWeight), MaxWeight)
	}
	return w
}

// Sum returns the sum of the weights.
func (w Weights) Sum() float64 {
	return lo.Sum(w[:])
}

// Normalized returns w / sum(w). A zero sum yields all zeros.
func (w Weights) Normalized() Weights {
	sum := w.Sum()
	if sum == 0 {
		return Weights{}
	}
	for i := range w {
		w[i] /= sum
	}
	return w
}

// Piece-square tables, rank 8 first. Black pieces index them by square,
// White pieces by the vertically mirrored square, so both read forward.
var pieceSquareTables = [6][64]int{
	board.Pawn: {
		0, 0, 0, 0, 0, 0, 0, 0,
		50, 50, 50, 50, 50, 50, 50, 50,
		10, 10, 20, 30, 30, 20, 10, 10,
		5, 5, 10, 25, 25, 10, 5, 5,
		0, 0, 0, 20, 20, 0, 0, 0,
		5, -5, -10, 0, 0, -10, -5, 5,
		5, 10, 10, -20, -20, 10, 10, 5,
		0, 0, 0, 0, 0, 0, 0, 0,
	},
	board.Knight: {
		-50, -40, -30, -30, -30, -30, -40, -50,
		-40, -20, 0, 0, 0, 0, -20, -40,
		-30, 0, 10, 15, 15, 10, 0, -30,
		-30, 5, 15, 20, 20, 15, 5, -30,
		-30, 0, 15, 20, 20, 15, 0, -30,
		-30, 5, 10, 15, 15, 10, 5, -30,
		-40, -20, 0, 5, 5, 0, -20, -40,
		-50, -40, -30, -30, -30, -30, -40, -50,
	},
	board.Bishop: {
		-20, -10, -10, -10, -10, -10, -10, -20,
		-10, 0, 0, 0, 0, 0, 0, -10,
		-10, 0, 5, 10, 10, 5, 0, -10,
		-10, 5, 5, 10, 10, 5, 5, -10,
		-10, 0, 10, 10, 10, 10, 0, -10,
		-10, 10, 10, 10, 10, 10, 10, -10,
		-10, 5, 0, 0, 0, 0, 5, -10,
		-20, -10, -10, -10, -10, -10, -10, -20,
	},
	board.Rook: {
		0, 0, 0, 0, 0, 0, 0, 0,
		5, 10, 10, 10, 10, 10, 10, 5,
		-5, 0, 0, 0, 0, 0, 0, -5,
		-5, 0, 0, 0, 0, 0, 0, -5,
		-5, 0, 0, 0, 0, 0, 0, -5,
		-5, 0, 0, 0, 0, 0, 0, -5,
		-5, 0, 0, 0, 0, 0, 0, -5,
		0, 0, 0, 5, 5, 0, 0, 0,
	},
	board.Queen: {
		-20, -10, -10, -5, -5, -10, -10, -20,
		-10, 0, 0, 0, 0, 0, 0, -10,
		-10, 0, 5, 5, 5, 5, 0, -10,
		-5, 0, 5, 5, 5, 5, 0, -5,
		0, 0, 5, 5, 5, 5, 0, -5,
		-10, 5, 5, 5, 5, 5, 0, -10,
		-10, 0, 5, 0, 0, 0, 0, -10,
		-20, -10, -10, -5, -5, -10, -10, -20,
	},
	board.King: {
		-30, -40, -40, -50, -50, -40, -40, -30,
		-30, -40, -40, -50, -50, -40, -40, -30,
		-30, -40, -40, -50, -50, -40, -40, -30,
		-30, -40, -40, -50, -50, -40, -40, -30,
		-20, -30, -30, -40, -40, -30, -30, -20,
		-10, -20, -20, -20, -20, -20, -20, -10,
		20, 20, 0, 0, 0, 0, 20, 20,
		20, 30, 10, 0, 0, 10, 30, 20,
	},
}

// pieceSquareValue returns the table value of piece on sq.
func pieceSquareValue(piece board.Piece, sq board.Square) int {
	if piece.Color() == board.White {
		sq = sq.Mirror()
	}
	return pieceSquareTables[piece.Type()][sq]
}

// pawnStartRank is the 1-based rank each side's pawns start on.
var pawnStartRank = [2]int{board.White: 2, board.Black: 7}

// Evaluator scores positions as a weighted sum of six features.
// It holds no mutable state and is safe for concurrent use.
type Evaluator struct {
	weights Weights
	norm    Weights
}

// NewEvaluator creates an evaluator with the given weights.
func NewEvaluator(w Weights) *Evaluator {
	return &Evaluator{weights: w, norm: w.Normalized()}
}

// Weights returns the evaluator's raw weights.
func (e *Evaluator) Weights() Weights {
	return e.weights
}

// Evaluate returns the static score of pos for perspective.
// Positive values favour perspective.
func (e *Evaluator) Evaluate(pos *board.Position, perspective board.Color) float64 {
	f := ComputeFeatures(pos, perspective)
	var score float64
	for i := range f {
		score += f[i] * e.norm[i]
	}
	return score
}

// Features returns the raw feature values of pos for perspective.
func (e *Evaluator) Features(pos *board.Position, perspective board.Color) Features {
	return ComputeFeatures(pos, perspective)
}

// ComputeFeatures walks every piece once and returns the six feature values,
// each signed by ownership relative to perspective.
func ComputeFeatures(pos *board.Position, perspective board.Color) Features {
	var f Features

	occupied := pos.AllOccupied
	for occupied != 0 {
		sq := occupied.PopLSB()
		piece := pos.PieceAt(sq)
		us := piece.Color()

		sign := 1.0
		if us != perspective {
			sign = -1.0
		}

		f[FeatureMaterial] += sign * float64(board.PieceValue[piece.Type()])
		f[FeaturePieceSquare] += sign * float64(pieceSquareValue(piece, sq))

		if piece.Type() == board.Pawn {
			f[FeatureAdvancement] += sign * float64(abs(pawnStartRank[us]-(sq.Rank()+1)))
		}

		attacks := pos.AttacksFrom(sq)
		f[FeatureThreats] += sign * float64((attacks & pos.Occupied[us.Other()]).PopCount())
		f[FeatureProtects] += sign * float64((attacks & pos.Occupied[us]).PopCount())
	}

	f[FeatureMobility] = float64(Mobility(pos, perspective) - Mobility(pos, perspective.Other()))
	return f
}

// Mobility counts the legal moves c would have if it were c's turn.
func Mobility(pos *board.Position, c board.Color) int {
	return pos.WithSideToMove(c).GenerateLegalMoves().Len()
}

// Material returns the material balance in pawns from White's point of view.
func Material(pos *board.Position) float64 {
	return float64(pos.Material())
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
