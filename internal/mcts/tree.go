package mcts

import (
	"github.com/hailam/chessevolve/internal/board"
)

const noParent = -1

// node is one reached position. Nodes live in a tree arena and refer to
// each other by index; parent is a non-owning back link.
type node struct {
	parent   int
	move     board.Move
	toMove   board.Color
	pos      *board.Position    // nil until first needed, see tree.position
	children []int              // in legal-move order
	byMove   map[board.Move]int // move -> child index
	nt       int                // visits
	qt       float64            // accumulated reward
	ends     int                // rollouts that stopped at this node
}

func (n *node) expanded() bool {
	return len(n.children) > 0
}

// tree is an arena of nodes. Index 0 is always the root.
type tree struct {
	nodes []node
}

func newTree(pos *board.Position) *tree {
	t := &tree{nodes: make([]node, 0, 64)}
	t.nodes = append(t.nodes, node{
		parent: noParent,
		move:   board.NoMove,
		toMove: pos.SideToMove,
		pos:    pos,
	})
	return t
}

func (t *tree) root() *node {
	return &t.nodes[0]
}

func (t *tree) node(i int) *node {
	return &t.nodes[i]
}

func (t *tree) size() int {
	return len(t.nodes)
}

// position returns the position of node i, building it from the parent's
// position the first time it is asked for.
func (t *tree) position(i int) *board.Position {
	n := &t.nodes[i]
	if n.pos == nil {
		pos := t.position(n.parent).Copy()
		pos.MakeMove(n.move)
		n.pos = pos
	}
	return n.pos
}

// add appends a child of parent reached by move. Its position is left for
// position to fill in.
func (t *tree) add(parent int, move board.Move) int {
	idx := len(t.nodes)
	t.nodes = append(t.nodes, node{
		parent: parent,
		move:   move,
		toMove: t.nodes[parent].toMove.Other(),
	})
	p := &t.nodes[parent]
	p.children = append(p.children, idx)
	p.byMove[move] = idx
	return idx
}

// expandAll creates one child per legal move of node i and returns the
// number of children added. Nodes that already have children are left alone.
func (t *tree) expandAll(i int) int {
	if t.nodes[i].expanded() {
		return 0
	}
	moves := t.position(i).LegalMoves()
	t.nodes[i].children = make([]int, 0, len(moves))
	t.nodes[i].byMove = make(map[board.Move]int, len(moves))
	for _, m := range moves {
		t.add(i, m)
	}
	return len(moves)
}

// subtree returns a new arena holding node i and its descendants, with i as
// the root. Everything else is dropped.
func (t *tree) subtree(i int) *tree {
	t.position(i)
	out := &tree{nodes: make([]node, 0, t.countFrom(i))}
	remap := map[int]int{i: 0}

	queue := []int{i}
	for len(queue) > 0 {
		old := queue[0]
		queue = queue[1:]

		n := t.nodes[old]
		parent := noParent
		if old != i {
			parent = remap[n.parent]
		}
		idx := len(out.nodes)
		out.nodes = append(out.nodes, node{
			parent: parent,
			move:   n.move,
			toMove: n.toMove,
			pos:    n.pos,
			nt:     n.nt,
			qt:     n.qt,
			ends:   n.ends,
		})
		if n.expanded() {
			out.nodes[idx].children = make([]int, 0, len(n.children))
			out.nodes[idx].byMove = make(map[board.Move]int, len(n.children))
		}
		if parent != noParent {
			p := &out.nodes[parent]
			p.children = append(p.children, idx)
			p.byMove[n.move] = idx
		}
		remap[old] = idx

		queue = append(queue, n.children...)
	}
	return out
}

func (t *tree) countFrom(i int) int {
	count := 1
	for _, c := range t.nodes[i].children {
		count += t.countFrom(c)
	}
	return count
}

// find returns the index of a node at most two plies below the root whose
// position matches pos, or -1.
func (t *tree) find(pos *board.Position) int {
	fen := pos.ToFEN()
	if same(t.position(0), pos, fen) {
		return 0
	}
	if c, ok := t.step(0, pos, fen); ok {
		return c
	}
	for _, c := range t.root().children {
		if !t.nodes[c].expanded() {
			continue
		}
		if gc, ok := t.step(c, pos, fen); ok {
			return gc
		}
	}
	return -1
}

// step finds the legal move that turns node i's position into pos and
// returns the child it leads to.
func (t *tree) step(i int, pos *board.Position, fen string) (int, bool) {
	if !t.nodes[i].expanded() {
		return noParent, false
	}
	from := t.position(i)
	for _, m := range from.LegalMoves() {
		next := from.Copy()
		next.MakeMove(m)
		if same(next, pos, fen) {
			c, ok := t.nodes[i].byMove[m]
			return c, ok
		}
	}
	return noParent, false
}

func same(a, b *board.Position, fen string) bool {
	return a.Hash == b.Hash && a.ToFEN() == fen
}
