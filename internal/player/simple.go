package player

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"lukechampine.com/frand"

	"github.com/hailam/chessevolve/internal/board"
	"github.com/hailam/chessevolve/internal/engine"
)

// ErrEmptyScript is returned by a scripted player with no moves.
var ErrEmptyScript = errors.New("empty script")

// Manual reads moves typed by a person.
type Manual struct {
	base
	in     *bufio.Scanner
	prompt io.Writer
}

// NewManual creates a player that reads one move per line from in and
// writes a prompt to prompt (which may be nil).
func NewManual(in io.Reader, prompt io.Writer) *Manual {
	return &Manual{
		base:   newBase(engine.DefaultWeights()),
		in:     bufio.NewScanner(in),
		prompt: prompt,
	}
}

// Interactive reports true; games re-prompt after illegal input.
func (p *Manual) Interactive() bool { return true }

// NextMove reads the next non-empty line. It returns io.EOF when input ends.
func (p *Manual) NextMove(pos *board.Position) (string, error) {
	for {
		if p.prompt != nil {
			fmt.Fprintln(p.prompt, "Input a Move:")
		}
		if !p.in.Scan() {
			if err := p.in.Err(); err != nil {
				return "", err
			}
			return "", io.EOF
		}
		if line := strings.TrimSpace(p.in.Text()); line != "" {
			return line, nil
		}
	}
}

// Random plays a uniformly random legal move.
type Random struct {
	base
}

// NewRandom creates a random player.
func NewRandom() *Random {
	return &Random{base: newBase(engine.DefaultWeights())}
}

// NextMove returns a random legal move in UCI notation.
func (p *Random) NextMove(pos *board.Position) (string, error) {
	moves := pos.LegalMoves()
	if len(moves) == 0 {
		return "", engine.ErrNoLegalMoves
	}
	return moves[frand.Intn(len(moves))].String(), nil
}

// Script is a move list shared by the players that read from it.
type Script struct {
	moves []string
	next  int
}

// NewScript creates a script that plays moves in order and starts over
// once they run out.
func NewScript(moves ...string) *Script {
	return &Script{moves: moves}
}

func (s *Script) pop() (string, error) {
	if len(s.moves) == 0 {
		return "", ErrEmptyScript
	}
	if s.next >= len(s.moves) {
		s.next = 0
	}
	m := s.moves[s.next]
	s.next++
	return m, nil
}

// Scripted plays the next move of a script, whatever the position.
type Scripted struct {
	base
	script *Script
}

// NewScripted creates a player reading from script.
func NewScripted(script *Script) *Scripted {
	return &Scripted{base: newBase(engine.DefaultWeights()), script: script}
}

// NextMove returns the next scripted move.
func (p *Scripted) NextMove(*board.Position) (string, error) {
	return p.script.pop()
}

// FoolsMateMoves is the shortest checkmate: Black mates on move two.
var FoolsMateMoves = []string{"f2f3", "e7e6", "g2g4", "d8h4"}

// NewFoolsMate returns two players sharing one script that together play
// fool's mate from the initial position.
func NewFoolsMate() (white, black *Scripted) {
	script := NewScript(FoolsMateMoves...)
	return NewScripted(script), NewScripted(script)
}
