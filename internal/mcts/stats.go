package mcts

import "time"

// Stats describes the work done by one ChooseMove call.
type Stats struct {
	Iterations int
	Rollouts   int
	Reused     bool // the kept tree contained the position
	TreeSize   int  // nodes in the arena when the move was chosen
	Duration   time.Duration
}
