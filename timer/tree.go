// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package timer

// node is a red-black tree node. Nodes are cached on their entry and
// reused across schedule/cancel cycles.
type node struct {
	entry  *Entry
	left   *node
	right  *node
	parent *node
	red    bool
}

// tree is a red-black tree keyed by (trigger, seq), with a per-tree
// sentinel leaf in place of nil children.
type tree struct {
	root *node
	leaf *node
	size int
}

func (t *tree) init() {
	t.leaf = &node{}
	t.root = t.leaf
	t.size = 0
}

func (t *tree) less(a, b *node) bool {
	ea, eb := a.entry, b.entry
	if ea.trigger.Equal(eb.trigger) {
		return ea.seq < eb.seq
	}
	return ea.trigger.Before(eb.trigger)
}

func (t *tree) first() *node {
	if t.root == t.leaf {
		return nil
	}
	return t.minimum(t.root)
}

func (t *tree) minimum(x *node) *node {
	for x.left != t.leaf {
		x = x.left
	}
	return x
}

// successor returns the in-order successor of x, or nil.
func (t *tree) successor(x *node) *node {
	if x.right != t.leaf {
		return t.minimum(x.right)
	}
	y := x.parent
	for y != t.leaf && x == y.right {
		x = y
		y = y.parent
	}
	if y == t.leaf {
		return nil
	}
	return y
}

func (t *tree) rotateLeft(x *node) {
	y := x.right
	x.right = y.left
	if y.left != t.leaf {
		y.left.parent = x
	}
	y.parent = x.parent
	switch {
	case x.parent == t.leaf:
		t.root = y
	case x == x.parent.left:
		x.parent.left = y
	default:
		x.parent.right = y
	}
	y.left = x
	x.parent = y
}

func (t *tree) rotateRight(x *node) {
	y := x.left
	x.left = y.right
	if y.right != t.leaf {
		y.right.parent = x
	}
	y.parent = x.parent
	switch {
	case x.parent == t.leaf:
		t.root = y
	case x == x.parent.right:
		x.parent.right = y
	default:
		x.parent.left = y
	}
	y.right = x
	x.parent = y
}

func (t *tree) insert(z *node) {
	y := t.leaf
	x := t.root
	for x != t.leaf {
		y = x
		if t.less(z, x) {
			x = x.left
		} else {
			x = x.right
		}
	}
	z.parent = y
	switch {
	case y == t.leaf:
		t.root = z
	case t.less(z, y):
		y.left = z
	default:
		y.right = z
	}
	z.left = t.leaf
	z.right = t.leaf
	z.red = true
	t.insertFixup(z)
	t.size++
}

func (t *tree) insertFixup(z *node) {
	for z.parent.red {
		gp := z.parent.parent
		if z.parent == gp.left {
			y := gp.right
			if y.red {
				z.parent.red = false
				y.red = false
				gp.red = true
				z = gp
				continue
			}
			if z == z.parent.right {
				z = z.parent
				t.rotateLeft(z)
			}
			z.parent.red = false
			z.parent.parent.red = true
			t.rotateRight(z.parent.parent)
		} else {
			y := gp.left
			if y.red {
				z.parent.red = false
				y.red = false
				gp.red = true
				z = gp
				continue
			}
			if z == z.parent.left {
				z = z.parent
				t.rotateRight(z)
			}
			z.parent.red = false
			z.parent.parent.red = true
			t.rotateLeft(z.parent.parent)
		}
	}
	t.root.red = false
}

func (t *tree) transplant(u, v *node) {
	switch {
	case u.parent == t.leaf:
		t.root = v
	case u == u.parent.left:
		u.parent.left = v
	default:
		u.parent.right = v
	}
	v.parent = u.parent
}

// delete unlinks z. Other nodes keep their identity, so pointers held by
// cursors stay valid.
func (t *tree) delete(z *node) {
	y := z
	yRed := y.red
	var x *node
	switch {
	case z.left == t.leaf:
		x = z.right
		t.transplant(z, z.right)
	case z.right == t.leaf:
		x = z.left
		t.transplant(z, z.left)
	default:
		y = t.minimum(z.right)
		yRed = y.red
		x = y.right
		if y.parent == z {
			x.parent = y
		} else {
			t.transplant(y, y.right)
			y.right = z.right
			y.right.parent = y
		}
		t.transplant(z, y)
		y.left = z.left
		y.left.parent = y
		y.red = z.red
	}
	if !yRed {
		t.deleteFixup(x)
	}
	t.leaf.parent = nil
	z.left, z.right, z.parent = nil, nil, nil
	t.size--
}

func (t *tree) deleteFixup(x *node) {
	for x != t.root && !x.red {
		if x == x.parent.left {
			w := x.parent.right
			if w.red {
				w.red = false
				x.parent.red = true
				t.rotateLeft(x.parent)
				w = x.parent.right
			}
			if !w.left.red && !w.right.red {
				w.red = true
				x = x.parent
				continue
			}
			if !w.right.red {
				w.left.red = false
				w.red = true
				t.rotateRight(w)
				w = x.parent.right
			}
			w.red = x.parent.red
			x.parent.red = false
			w.right.red = false
			t.rotateLeft(x.parent)
			x = t.root
		} else {
			w := x.parent.left
			if w.red {
				w.red = false
				x.parent.red = true
				t.rotateRight(x.parent)
				w = x.parent.left
			}
			if !w.right.red && !w.left.red {
				w.red = true
				x = x.parent
				continue
			}
			if !w.left.red {
				w.right.red = false
				w.red = true
				t.rotateLeft(w)
				w = x.parent.left
			}
			w.red = x.parent.red
			x.parent.red = false
			w.left.red = false
			t.rotateRight(x.parent)
			x = t.root
		}
	}
	x.red = false
}
