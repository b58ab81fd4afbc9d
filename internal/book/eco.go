package book

import (
	"encoding/json"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/hailam/chessevolve/internal/board"
)

// Opening is one record of an ECO-style JSON file. Only Moves is required.
type Opening struct {
	ECO   string `json:"eco"`
	Name  string `json:"name"`
	Moves string `json:"moves"`
}

var moveNumber = regexp.MustCompile(`^\d+\.+`)

// SplitMoves splits a move line such as "1. e4 e5 2. Nf3" into SAN moves.
func SplitMoves(line string) []string {
	var out []string
	for _, tok := range strings.Fields(line) {
		tok = moveNumber.ReplaceAllString(tok, "")
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// LoadECO loads an ECO-style JSON opening file.
func LoadECO(filename string) (*Book, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "open opening book")
	}
	defer file.Close()

	b := New()
	if err := b.ReadECO(file); err != nil {
		return nil, errors.Wrapf(err, "read opening book %s", filename)
	}
	return b, nil
}

// ReadECO adds every opening line in the JSON array read from r. Each move of
// a line is recorded under the position it was played from.
func (b *Book) ReadECO(r io.Reader) error {
	var openings []Opening
	if err := json.NewDecoder(r).Decode(&openings); err != nil {
		return errors.Wrap(err, "decode openings")
	}
	for i, o := range openings {
		if err := b.AddLine(o.Moves); err != nil {
			return errors.WithMessagef(err, "opening %d (%s %s)", i, o.ECO, o.Name)
		}
	}
	return nil
}

// AddLine records the moves of one opening line starting from the initial
// position.
func (b *Book) AddLine(line string) error {
	pos := board.NewPosition()
	for _, san := range SplitMoves(line) {
		m, err := pos.ParseMoveText(san)
		if err != nil {
			return errors.Wrapf(err, "move %q", san)
		}
		key := positionKey(pos)
		if !lo.Contains(b.lines[key], san) {
			b.lines[key] = append(b.lines[key], san)
		}
		pos.MakeMove(m)
	}
	return nil
}
