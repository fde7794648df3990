// Package matree implements the meta-adaptive (MA) tree: a
// property-indexed binary decision tree that maps a pixel's local
// properties to a (context, predictor, offset, multiplier) tuple for the
// modular channel decoder.
package matree

import (
	"fmt"

	"github.com/lifthrasiir/j40-sub000/internal/bitio"
	"github.com/lifthrasiir/j40-sub000/internal/entropy"
)

// ErrBadTree reports a malformed MA tree: a multiplier that overflows
// int32, or a node count beyond the cap.
var ErrBadTree = fmt.Errorf("matree: bad tree (tree)")

// ErrTreeProperty reports a pixel property reference the tree cannot
// satisfy — e.g. a channel-relative property index with no such channel.
var ErrTreeProperty = fmt.Errorf("matree: bad tree property reference (trec)")

// maxNodes bounds total tree size per spec.md §4.6.
const maxNodes = 1 << 26

// Node is one MA tree node: a split test or a leaf assignment.
type Node struct {
	// Split fields. IsLeaf is false for these.
	Prop      int
	Threshold int32
	LeftOff   int
	RightOff  int

	// Leaf fields. IsLeaf is true for these.
	IsLeaf     bool
	Ctx        int
	Predictor  int
	Offset     int32
	Multiplier int32
}

// Tree is a parsed MA tree plus the code spec leaves use to decode
// pixel residual tokens.
type Tree struct {
	Nodes     []Node
	NumLeaves int
	CodeSpec  *entropy.CodeSpec

	nextCtx int
}

// treeContexts are the six fixed context ids the node-description code
// spec multiplexes over: which field of a node is being read next.
const (
	ctxProp = iota
	ctxThreshold
	ctxPredictor
	ctxOffset
	ctxMultRaw
	ctxShift
	numTreeContexts
)

// Read decodes an MA tree: first a 6-distribution code spec describing
// the node fields, then a depth-first walk building the tree, and
// finally a second code spec sized to the number of leaves (context
// ids) for later pixel-residual decoding.
func Read(r *bitio.Reader) (*Tree, error) {
	nodeSpec, err := entropy.ReadCodeSpec(r, numTreeContexts)
	if err != nil {
		return nil, err
	}
	dec := entropy.NewDecoder(nodeSpec)

	t := &Tree{}

	// pending is a LIFO stack of child slots still to be filled, each
	// naming its parent node and which side it fills. A split pushes its
	// right slot then its left slot, so the left slot — popped next —
	// dives all the way down that subtree before the stack ever returns
	// to the right sibling, matching the depth-first (pre-order) node
	// order the bitstream was written in.
	type pendingSlot struct {
		parent int
		left   bool
	}
	var pending []pendingSlot

	root, err := t.readNode(r, dec)
	if err != nil {
		return nil, err
	}
	t.Nodes = append(t.Nodes, root)
	if !root.IsLeaf {
		pending = append(pending, pendingSlot{parent: 0, left: false}, pendingSlot{parent: 0, left: true})
	}

	for len(pending) > 0 {
		slot := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		if len(t.Nodes) >= maxNodes {
			return nil, ErrBadTree
		}
		idx := len(t.Nodes)
		node, err := t.readNode(r, dec)
		if err != nil {
			return nil, err
		}
		t.Nodes = append(t.Nodes, node)
		if slot.left {
			t.Nodes[slot.parent].LeftOff = idx - slot.parent
		} else {
			t.Nodes[slot.parent].RightOff = idx - slot.parent
		}
		if !node.IsLeaf {
			pending = append(pending, pendingSlot{parent: idx, left: false}, pendingSlot{parent: idx, left: true})
		}
	}

	if err := dec.Finish(r); err != nil {
		return nil, err
	}

	for _, n := range t.Nodes {
		if n.IsLeaf && n.Ctx+1 > t.NumLeaves {
			t.NumLeaves = n.Ctx + 1
		}
	}

	codeSpec, err := entropy.ReadCodeSpec(r, uint32(t.NumLeaves))
	if err != nil {
		return nil, err
	}
	t.CodeSpec = codeSpec

	return t, nil
}

// Leaf walks the tree from the root, using getProp to fetch the value of
// whatever property each split node asks for, and returns the leaf node
// reached. A value strictly greater than the split's threshold follows
// the left child; otherwise the right child.
func (t *Tree) Leaf(getProp func(prop int) int32) *Node {
	idx := 0
	for !t.Nodes[idx].IsLeaf {
		n := &t.Nodes[idx]
		if getProp(n.Prop) > n.Threshold {
			idx += n.LeftOff
		} else {
			idx += n.RightOff
		}
	}
	return &t.Nodes[idx]
}

func (t *Tree) readNode(r *bitio.Reader, dec *entropy.Decoder) (Node, error) {
	propVal, err := dec.Code(r, ctxProp, 0)
	if err != nil {
		return Node{}, err
	}

	if propVal > 0 {
		threshold, err := dec.Code(r, ctxThreshold, 0)
		if err != nil {
			return Node{}, err
		}
		return Node{
			Prop:      int(propVal),
			Threshold: int32(threshold),
		}, nil
	}

	predictor, err := dec.Code(r, ctxPredictor, 0)
	if err != nil {
		return Node{}, err
	}
	offset, err := dec.Code(r, ctxOffset, 0)
	if err != nil {
		return Node{}, err
	}
	multRaw, err := dec.Code(r, ctxMultRaw, 0)
	if err != nil {
		return Node{}, err
	}
	shift, err := dec.Code(r, ctxShift, 0)
	if err != nil {
		return Node{}, err
	}
	mult64 := (multRaw + 1) << uint(shift)
	if mult64 > (1<<31)-1 || mult64 < -(1<<31) {
		return Node{}, ErrBadTree
	}

	leaf := Node{
		IsLeaf:     true,
		Predictor:  int(predictor),
		Offset:     int32(offset),
		Multiplier: int32(mult64),
	}
	t.nextCtx++
	leaf.Ctx = t.nextCtx - 1
	return leaf, nil
}
