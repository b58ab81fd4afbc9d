// Package uci speaks the Universal Chess Interface protocol on top of the
// minimax and MCTS searchers.
package uci

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/hailam/chessevolve/internal/board"
	"github.com/hailam/chessevolve/internal/book"
	"github.com/hailam/chessevolve/internal/engine"
	"github.com/hailam/chessevolve/internal/mcts"
)

// Search algorithms selectable with the Algorithm option.
const (
	AlgorithmMinimax = "minimax"
	AlgorithmMCTS    = "mcts"
)

const maxDepth = 8

// Option configures a UCI handler.
type Option func(*UCI)

// WithBook sets the opening book used while OwnBook is on.
func WithBook(b *book.Book) Option {
	return func(u *UCI) {
		u.book = b
		u.ownBook = b != nil
	}
}

// WithWeights sets the evaluator weights.
func WithWeights(w engine.Weights) Option {
	return func(u *UCI) {
		u.weights = w
	}
}

// WithMCTSOptions sets the options every MCTS searcher is built with.
func WithMCTSOptions(opts ...mcts.Option) Option {
	return func(u *UCI) {
		u.mctsOpts = opts
	}
}

// UCI implements the Universal Chess Interface protocol.
type UCI struct {
	in  io.Reader
	out io.Writer
	mu  sync.Mutex // guards out

	position *board.Position

	// Engine configuration
	algorithm string
	depth     int
	weights   engine.Weights
	mctsOpts  []mcts.Option
	book      *book.Book
	ownBook   bool

	minimax *engine.Searcher
	tree    *mcts.Searcher

	// Search state
	searchDone chan struct{}
}

// New creates a new UCI protocol handler reading stdin-like input from in.
func New(in io.Reader, out io.Writer, opts ...Option) *UCI {
	u := &UCI{
		in:        in,
		out:       out,
		position:  board.NewPosition(),
		algorithm: AlgorithmMinimax,
		depth:     engine.DefaultDepth,
		weights:   engine.DefaultWeights(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *UCI) send(format string, args ...any) {
	u.mu.Lock()
	defer u.mu.Unlock()
	fmt.Fprintf(u.out, format+"\n", args...)
}

// Run reads commands until "quit" or the end of input. A search still
// running at the end of input is allowed to finish.
func (u *UCI) Run() error {
	scanner := bufio.NewScanner(u.in)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "uci":
			u.handleUCI()
		case "isready":
			u.wait()
			u.send("readyok")
		case "ucinewgame":
			u.handleNewGame()
		case "position":
			u.handlePosition(args)
		case "go":
			u.handleGo(args)
		case "stop":
			u.handleStop()
		case "quit":
			u.handleStop()
			return nil
		case "setoption":
			u.handleSetOption(args)
		// Debug commands
		case "d":
			u.send("%s", u.position.String())
		case "eval":
			u.handleEval()
		case "perft":
			u.handlePerft(args)
		default:
			log.Debug().Str("command", cmd).Msg("unknown uci command")
		}
	}
	u.wait()
	return scanner.Err()
}

// handleUCI responds to the "uci" command.
func (u *UCI) handleUCI() {
	u.send("id name chessevolve")
	u.send("id author chessevolve")
	u.send("")
	u.send("option name Algorithm type combo default %s var %s var %s", AlgorithmMinimax, AlgorithmMinimax, AlgorithmMCTS)
	u.send("option name Depth type spin default %d min 1 max %d", engine.DefaultDepth, maxDepth)
	u.send("option name Weights type string default %s", formatWeights(engine.DefaultWeights()))
	u.send("option name OwnBook type check default %t", u.ownBook)
	u.send("uciok")
}

// handleNewGame resets the searchers for a new game.
func (u *UCI) handleNewGame() {
	u.wait()
	u.minimax = nil
	u.tree = nil
	u.position = board.NewPosition()
}

// handlePosition parses and sets up a position.
// Formats:
//   - position startpos
//   - position startpos moves e2e4 e7e5
//   - position fen <fen>
//   - position fen <fen> moves e2e4
func (u *UCI) handlePosition(args []string) {
	if len(args) == 0 {
		return
	}

	movesAt := len(args)
	for i, arg := range args {
		if arg == "moves" {
			movesAt = i
			break
		}
	}

	var pos *board.Position
	switch args[0] {
	case "startpos":
		pos = board.NewPosition()
	case "fen":
		p, err := board.ParseFEN(strings.Join(args[1:movesAt], " "))
		if err != nil {
			u.send("info string invalid fen: %v", err)
			return
		}
		pos = p
	default:
		return
	}

	for _, text := range args[min(movesAt+1, len(args)):] {
		m, err := board.ParseMove(text, pos)
		if err != nil || !pos.GenerateLegalMoves().Contains(m) {
			u.send("info string invalid move: %s", text)
			return
		}
		pos.MakeMove(m)
	}
	u.position = pos
}

// GoOptions holds parsed "go" command options.
type GoOptions struct {
	Depth     int
	MoveTime  time.Duration
	Infinite  bool
	WTime     time.Duration
	BTime     time.Duration
	WInc      time.Duration
	BInc      time.Duration
	MovesToGo int
}

// handleGo starts a search in the background and reports "bestmove" when
// it is done.
func (u *UCI) handleGo(args []string) {
	u.wait()
	opts := parseGoOptions(args)
	pos := u.position.Copy()

	if u.ownBook {
		if text, ok := u.book.Lookup(pos); ok {
			if m, err := pos.ParseMoveText(text); err == nil {
				u.send("info string book move")
				u.send("bestmove %s", m)
				return
			}
		}
	}

	done := make(chan struct{})
	u.searchDone = done

	switch u.algorithm {
	case AlgorithmMCTS:
		s := u.mctsSearcher(pos.SideToMove, u.moveTime(opts))
		go func() {
			defer close(done)
			m, err := s.ChooseMove(pos)
			if err != nil {
				u.send("info string %v", err)
				u.send("bestmove 0000")
				return
			}
			st := s.Stats()
			u.send("info nodes %d time %d string iterations %d reused %t",
				st.TreeSize, st.Duration.Milliseconds(), st.Iterations, st.Reused)
			u.send("bestmove %s", m)
		}()
	default:
		s := u.minimaxSearcher(pos.SideToMove, opts.Depth)
		go func() {
			defer close(done)
			res, err := s.ChooseMove(pos)
			if err != nil {
				u.send("info string %v", err)
				u.send("bestmove 0000")
				return
			}
			u.send("bestmove %s", res.Move)
		}()
	}
}

// minimaxSearcher returns a searcher for c. A depth from "go" overrides the
// configured one for this search only.
func (u *UCI) minimaxSearcher(c board.Color, depth int) *engine.Searcher {
	if depth <= 0 {
		depth = u.depth
	}
	depth = min(depth, maxDepth)
	if u.minimax == nil || u.minimax.Color() != c || u.minimax.MaxDepth() != depth {
		u.minimax = engine.NewSearcher(engine.NewEvaluator(u.weights), depth)
		u.minimax.SetColor(c)
		u.minimax.OnInfo = func(info engine.SearchInfo) { u.sendInfo(depth, info) }
	}
	return u.minimax
}

// mctsSearcher returns the MCTS searcher for c, keeping its tree between
// moves of the same game.
func (u *UCI) mctsSearcher(c board.Color, moveTime time.Duration) *mcts.Searcher {
	opts := append([]mcts.Option{mcts.WithEvaluator(engine.NewEvaluator(u.weights))}, u.mctsOpts...)
	if moveTime > 0 {
		opts = append(opts, mcts.WithDuration(moveTime))
	}
	if u.tree == nil || u.tree.Color() != c {
		u.tree = mcts.New(opts...)
		u.tree.SetColor(c)
	} else if moveTime > 0 {
		mcts.WithDuration(moveTime)(u.tree)
	}
	return u.tree
}

// parseGoOptions parses "go" command arguments.
func parseGoOptions(args []string) GoOptions {
	opts := GoOptions{}
	millis := func(i int) time.Duration {
		ms, _ := strconv.Atoi(args[i])
		return time.Duration(ms) * time.Millisecond
	}

	for i := 0; i < len(args); i++ {
		if args[i] == "infinite" {
			opts.Infinite = true
			continue
		}
		if i+1 >= len(args) {
			break
		}
		switch args[i] {
		case "depth":
			opts.Depth, _ = strconv.Atoi(args[i+1])
		case "movetime":
			opts.MoveTime = millis(i + 1)
		case "wtime":
			opts.WTime = millis(i + 1)
		case "btime":
			opts.BTime = millis(i + 1)
		case "winc":
			opts.WInc = millis(i + 1)
		case "binc":
			opts.BInc = millis(i + 1)
		case "movestogo":
			opts.MovesToGo, _ = strconv.Atoi(args[i+1])
		default:
			continue
		}
		i++
	}

	return opts
}

// moveTime determines how much time an MCTS search may spend on this move.
// Zero keeps the searcher's own budget.
func (u *UCI) moveTime(opts GoOptions) time.Duration {
	if opts.MoveTime > 0 {
		return opts.MoveTime
	}
	var ourTime, ourInc time.Duration
	if u.position.SideToMove == board.White {
		ourTime, ourInc = opts.WTime, opts.WInc
	} else {
		ourTime, ourInc = opts.BTime, opts.BInc
	}
	if ourTime <= 0 {
		return 0
	}

	movesRemaining := opts.MovesToGo
	if movesRemaining == 0 {
		movesRemaining = u.estimateMovesRemaining()
	}

	moveTime := ourTime/time.Duration(movesRemaining) + ourInc*90/100
	// Never use more than 90% of the remaining time.
	moveTime = min(moveTime, ourTime*90/100)
	return max(moveTime, 10*time.Millisecond)
}

// estimateMovesRemaining estimates remaining moves based on piece count.
func (u *UCI) estimateMovesRemaining() int {
	totalPieces := u.position.AllOccupied.PopCount()

	if totalPieces > 24 {
		return 40 // Opening/early middlegame
	} else if totalPieces > 12 {
		return 30 // Middlegame
	}
	return 20 // Endgame
}

// sendInfo outputs minimax search info in UCI format.
func (u *UCI) sendInfo(depth int, info engine.SearchInfo) {
	var parts []string

	parts = append(parts, fmt.Sprintf("depth %d", depth))
	switch {
	case info.Value >= engine.WinScore:
		parts = append(parts, fmt.Sprintf("score mate %d", (info.Depth+1)/2))
	case info.Value <= engine.LoseScore:
		parts = append(parts, fmt.Sprintf("score mate -%d", (info.Depth+1)/2))
	default:
		parts = append(parts, fmt.Sprintf("score cp %d", int(math.Round(info.Value*100))))
	}

	parts = append(parts, fmt.Sprintf("nodes %d", info.Nodes))
	parts = append(parts, fmt.Sprintf("time %d", info.Time.Milliseconds()))
	if info.Time > 0 {
		nps := uint64(float64(info.Nodes) / info.Time.Seconds())
		parts = append(parts, fmt.Sprintf("nps %d", nps))
	}
	if info.Move != board.NoMove {
		parts = append(parts, "pv "+info.Move.String())
	}

	u.send("info %s", strings.Join(parts, " "))
}

// handleStop ends a running minimax search early and waits for bestmove.
// MCTS searches always run out their time budget.
func (u *UCI) handleStop() {
	if u.searchDone == nil {
		return
	}
	if u.minimax != nil && u.algorithm == AlgorithmMinimax {
		u.minimax.Stop()
	}
	u.wait()
}

// wait blocks until the running search, if any, has reported its move.
func (u *UCI) wait() {
	if u.searchDone != nil {
		<-u.searchDone
		u.searchDone = nil
	}
}

// handleSetOption processes "setoption" commands.
func (u *UCI) handleSetOption(args []string) {
	// Format: setoption name <name> value <value>
	var name, value []string
	var target *[]string
	for _, arg := range args {
		switch arg {
		case "name":
			target = &name
		case "value":
			target = &value
		default:
			if target != nil {
				*target = append(*target, arg)
			}
		}
	}

	u.wait()
	v := strings.Join(value, " ")
	switch strings.ToLower(strings.Join(name, " ")) {
	case "algorithm":
		switch strings.ToLower(v) {
		case AlgorithmMinimax, AlgorithmMCTS:
			u.algorithm = strings.ToLower(v)
		default:
			u.send("info string unknown algorithm %s", v)
		}
	case "depth":
		if d, err := strconv.Atoi(v); err == nil && d >= 1 {
			u.depth = min(d, maxDepth)
		}
	case "weights":
		w, err := parseWeights(v)
		if err != nil {
			u.send("info string %v", err)
			return
		}
		u.weights = w
		u.minimax = nil
		u.tree = nil
	case "ownbook":
		u.ownBook = strings.ToLower(v) == "true" && u.book != nil
	}
}

func formatWeights(w engine.Weights) string {
	parts := make([]string, len(w))
	for i, v := range w {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

// parseWeights reads a comma or space separated weight vector.
func parseWeights(s string) (engine.Weights, error) {
	var w engine.Weights
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	if len(fields) != len(w) {
		return w, errors.Errorf("weights need %d values, got %d", len(w), len(fields))
	}
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return w, errors.Wrapf(err, "weight %d", i)
		}
		w[i] = v
	}
	return w.Clamp(), nil
}

// handleEval prints the evaluation features of the current position.
func (u *UCI) handleEval() {
	pos := u.position
	f := engine.ComputeFeatures(pos, pos.SideToMove)
	for i, v := range f {
		u.send("info string %s %g", engine.FeatureName(i), v)
	}
	u.send("info string eval %.3f", engine.NewEvaluator(u.weights).Evaluate(pos, pos.SideToMove))
}

// handlePerft runs a perft test.
func (u *UCI) handlePerft(args []string) {
	depth := 5
	if len(args) > 0 {
		depth, _ = strconv.Atoi(args[0])
	}

	start := time.Now()
	nodes := board.Perft(u.position.Copy(), depth)
	elapsed := time.Since(start)

	u.send("Nodes: %d", nodes)
	u.send("Time: %v", elapsed)
	if elapsed > 0 {
		u.send("NPS: %.0f", float64(nodes)/elapsed.Seconds())
	}
}
