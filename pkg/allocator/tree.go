//go:build go1.21

package allocator

import (
	"unsafe"

	"github.com/AlexK0/simple-allocator/internal/debug"
)

// rbColor is a red-black tree node's color.
type rbColor uint8

const (
	red rbColor = iota
	black
)

// treeNode is overlaid onto a freed payload of size > SlotMax. It keys the
// surrounding red-black tree by payload size, duplicate sizes being chained
// off same rather than inserted as distinct tree nodes, so that equal-size
// insert/retrieve are O(1) and never trigger a rebalance.
//
// The rebalancing algorithm here (FixRedRed/FixDoubleBlack and their
// rotation/detach helpers) is a direct port of MemoryTree.cpp from the
// allocator this package reimplements; the invariants are the classical
// red-black ones (root is black, no red-red edges, equal black-height on
// every root-to-leaf path).
type treeNode struct {
	left, right, parent *treeNode
	color               rbColor
	size                int
	same                *treeNode // head of the same-size chain
}

func nodeAt(addr unsafe.Pointer, size int) *treeNode {
	n := (*treeNode)(addr)
	*n = treeNode{size: size, color: red}
	return n
}

func nodeOf(h *header) *treeNode       { return (*treeNode)(h.payloadBegin()) }
func headerOfNode(n *treeNode) *header { return headerOf(unsafe.Pointer(n)) }

func (n *treeNode) isLeft() bool {
	return n == n.parent.left
}

func (n *treeNode) uncle() *treeNode {
	if n.parent == nil || n.parent.parent == nil {
		return nil
	}
	grandparent := n.parent.parent
	if n.parent.isLeft() {
		return grandparent.right
	}
	return grandparent.left
}

func (n *treeNode) sibling() *treeNode {
	if n.parent == nil {
		return nil
	}
	if n.isLeft() {
		return n.parent.right
	}
	return n.parent.left
}

func (n *treeNode) replaceSelfOnParent(replacement *treeNode) {
	if n.isLeft() {
		n.parent.left = replacement
	} else {
		n.parent.right = replacement
	}
}

func (n *treeNode) moveDown(newParent *treeNode) {
	if n.parent != nil {
		n.replaceSelfOnParent(newParent)
	}
	newParent.parent = n.parent
	n.parent = newParent
}

func (n *treeNode) hasRedChild() bool {
	return (n.left != nil && n.left.color == red) || (n.right != nil && n.right.color == red)
}

// tree is the size-indexed red-black tree of free blocks larger than
// SlotMax. Its zero value is an empty tree.
type tree struct {
	root *treeNode
}

// insert adds h's block to the tree, keyed by h's recorded size. If a node
// of the same size already exists, h is prepended to that node's same-size
// chain instead of becoming a distinct tree node.
func (t *tree) insert(h *header) {
	size := h.getSize()
	debug.Assert(uintptr(size) >= unsafe.Sizeof(treeNode{}), "block too small for a tree node: %d", size)

	n := nodeAt(h.payloadBegin(), size)
	if t.root == nil {
		n.color = black
		t.root = n
		return
	}

	parent := t.lookupNode(size, false)
	if parent.size == size {
		n.same = parent.same
		parent.same = n
		return
	}

	n.parent = parent
	if size < parent.size {
		parent.left = n
	} else {
		parent.right = n
	}

	t.fixRedRed(n)
}

// retrieveBlock removes and returns the smallest free block of size >= s, or
// nil if none exists. The tree shape is left undisturbed when the matching
// node has a non-empty same-size chain; only the chain is popped.
func (t *tree) retrieveBlock(s int) *header {
	v := t.lookupNode(s, true)
	if v == nil {
		return nil
	}

	if v.same != nil {
		n := v.same
		v.same = n.same
		return headerOfNode(n)
	}

	t.detachNode(v)
	return headerOfNode(v)
}

// lookupNode walks the tree toward size. With lowerBound set, it returns the
// smallest node with size >= the target (or nil if none). Otherwise it
// returns the node reached by a plain BST walk, which is either the exact
// match or the leaf where an equal-or-new node would attach — used by
// insert to find where a new node belongs.
func (t *tree) lookupNode(size int, lowerBound bool) *treeNode {
	node := t.root
	var lowerBoundNode *treeNode

	for node != nil && size != node.size {
		if size < node.size {
			lowerBoundNode = node
			if node.left == nil {
				break
			}
			node = node.left
		} else {
			if node.right == nil {
				break
			}
			node = node.right
		}
	}

	if node != nil && node.size == size {
		lowerBoundNode = node
	}

	if lowerBound {
		return lowerBoundNode
	}
	return node
}

func (t *tree) findReplacer(n *treeNode) *treeNode {
	if n.left != nil && n.right != nil {
		replacer := n.right
		for replacer.left != nil {
			replacer = replacer.left
		}
		return replacer
	}
	if n.left != nil {
		return n.left
	}
	return n.right
}

func (t *tree) detachLeaf(n *treeNode) {
	if n == t.root {
		t.root = nil
		return
	}

	if n.color == black {
		t.fixDoubleBlack(n)
	} else if sibling := n.sibling(); sibling != nil {
		sibling.color = red
	}

	n.replaceSelfOnParent(nil)
}

func (t *tree) detachNodeWithOneChild(n, replacer *treeNode) {
	if n == t.root {
		debug.Assert(replacer.left == nil && replacer.right == nil, "root's single child must be a leaf")
		replacer.parent = nil
		replacer.color = n.color
		t.root = replacer
		return
	}

	n.replaceSelfOnParent(replacer)
	replacer.parent = n.parent
	if replacer.color == black && n.color == black {
		t.fixDoubleBlack(replacer)
	} else {
		replacer.color = black
	}
}

func (t *tree) swapDetachingNodeWithReplacer(n, replacer *treeNode) {
	if n.parent != nil {
		n.replaceSelfOnParent(replacer)
	} else {
		t.root = replacer
	}

	if n.left != nil && n.left != replacer {
		n.left.parent = replacer
	}
	if n.right != nil && n.right != replacer {
		n.right.parent = replacer
	}
	if replacer.left != nil {
		replacer.left.parent = n
	}
	if replacer.right != nil {
		replacer.right.parent = n
	}

	if replacer.parent == n {
		replacer.parent = n.parent
		n.parent = replacer
	} else {
		replacer.replaceSelfOnParent(n)
		replacer.parent, n.parent = n.parent, replacer.parent
	}

	replacer.left, n.left = n.left, replacer.left
	replacer.right, n.right = n.right, replacer.right
	replacer.color, n.color = n.color, replacer.color
}

func (t *tree) detachNode(n *treeNode) {
	replacer := t.findReplacer(n)
	if replacer == nil {
		t.detachLeaf(n)
		return
	}

	if n.left == nil || n.right == nil {
		t.detachNodeWithOneChild(n, replacer)
		return
	}

	t.swapDetachingNodeWithReplacer(n, replacer)
	t.detachNode(n)
}

func (t *tree) fixRedRed(n *treeNode) {
	if n == t.root {
		n.color = black
		return
	}

	parent := n.parent
	grandparent := parent.parent
	uncle := n.uncle()

	if parent.color == black {
		return
	}

	if uncle != nil && uncle.color == red {
		parent.color = black
		uncle.color = black
		grandparent.color = red
		t.fixRedRed(grandparent)
		return
	}

	if parent.isLeft() {
		if n.isLeft() {
			parent.color, grandparent.color = grandparent.color, parent.color
		} else {
			t.leftRotate(parent)
			n.color, grandparent.color = grandparent.color, n.color
		}
		t.rightRotate(grandparent)
	} else {
		if n.isLeft() {
			t.rightRotate(parent)
			n.color, grandparent.color = grandparent.color, n.color
		} else {
			parent.color, grandparent.color = grandparent.color, parent.color
		}
		t.leftRotate(grandparent)
	}
}

func (t *tree) fixDoubleBlack(n *treeNode) {
	if n == t.root {
		return
	}

	parent := n.parent
	sibling := n.sibling()
	if sibling == nil {
		t.fixDoubleBlack(parent)
		return
	}

	if sibling.color == red {
		parent.color = red
		sibling.color = black
		if sibling.isLeft() {
			t.rightRotate(parent)
		} else {
			t.leftRotate(parent)
		}
		t.fixDoubleBlack(n)
		return
	}

	if sibling.hasRedChild() {
		switch {
		case sibling.left != nil && sibling.left.color == red:
			if sibling.isLeft() {
				sibling.left.color = sibling.color
				sibling.color = parent.color
				t.rightRotate(parent)
			} else {
				sibling.left.color = parent.color
				t.rightRotate(sibling)
				t.leftRotate(parent)
			}
		default:
			if sibling.isLeft() {
				sibling.right.color = parent.color
				t.leftRotate(sibling)
				t.rightRotate(parent)
			} else {
				sibling.right.color = sibling.color
				sibling.color = parent.color
				t.leftRotate(parent)
			}
		}
		parent.color = black
		return
	}

	sibling.color = red
	if parent.color == black {
		t.fixDoubleBlack(parent)
	} else {
		parent.color = black
	}
}

func (t *tree) rightRotate(n *treeNode) {
	newParent := n.left
	if n == t.root {
		t.root = newParent
	}

	n.moveDown(newParent)
	n.left = newParent.right
	if newParent.right != nil {
		newParent.right.parent = n
	}
	newParent.right = n
}

func (t *tree) leftRotate(n *treeNode) {
	newParent := n.right
	if n == t.root {
		t.root = newParent
	}

	n.moveDown(newParent)
	n.right = newParent.left
	if newParent.left != nil {
		newParent.left.parent = n
	}
	newParent.left = n
}
