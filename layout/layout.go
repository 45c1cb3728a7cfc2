package layout

import (
	"fmt"
	"math"

	"github.com/meysamhadeli/astview/hierarchy"
)

// Mode selects how the tree is fitted onto the plane.
type Mode string

const (
	// Bounded squeezes the whole tree into Width x Height.
	Bounded Mode = "bounded"
	// Fixed spaces nodes by NodeSpacing and LevelSpacing regardless of tree size.
	Fixed Mode = "fixed"
)

// ParseMode accepts "bounded" or "fixed".
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case Bounded, Fixed:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown layout mode %q (want %q or %q)", s, Bounded, Fixed)
}

// Options controls a layout pass. X is the breadth axis and Y the depth axis.
type Options struct {
	Mode         Mode
	Width        float64 // breadth extent in Bounded mode
	Height       float64 // depth extent in Bounded mode
	NodeSpacing  float64 // breadth distance between adjacent siblings in Fixed mode
	LevelSpacing float64 // depth distance between levels in Fixed mode
	Separation   float64 // sibling gap in layout units; cousins get twice as much
}

// DefaultOptions matches a 600x400 viewport minus its inset.
func DefaultOptions() Options {
	return Options{
		Mode:         Fixed,
		Width:        550,
		Height:       350,
		NodeSpacing:  30,
		LevelSpacing: 160,
		Separation:   1,
	}
}

// Node is a hierarchy node with coordinates.
type Node struct {
	Data     *hierarchy.Node
	X, Y     float64
	Depth    int
	Index    int // pre-order position, matches hierarchy.Find
	Parent   *Node
	Children []*Node

	offset float64 // breadth relative to the parent during placement
}

// Link is one parent to child edge.
type Link struct {
	Source, Target *Node
}

// contour holds the extreme breadths of a subtree per relative depth.
type contour struct {
	left, right []float64
}

// Layout computes coordinates for every node of root. A nil root yields nil.
func Layout(root *hierarchy.Node, options Options) *Node {
	if root == nil {
		return nil
	}
	if options.Separation <= 0 {
		options.Separation = 1
	}

	index := 0
	tree := build(root, nil, 0, &index)
	place(tree, options.Separation)

	// absolute breadth in layout units, root at 0
	var maxDepth int
	var left, right *Node
	eachNode(tree, func(n *Node) {
		if n.Parent != nil {
			n.X = n.Parent.X + n.offset
		}
		if n.Depth > maxDepth {
			maxDepth = n.Depth
		}
		if left == nil || n.X < left.X {
			left = n
		}
		if right == nil || n.X > right.X {
			right = n
		}
	})

	switch options.Mode {
	case Bounded:
		s := options.Separation / 2
		if left == right {
			s = 1
		} else if left.Parent != right.Parent {
			s = options.Separation
		}
		tx := s - left.X
		kx := options.Width / (right.X + s + tx)
		ky := options.Height / float64(max(maxDepth, 1))
		eachNode(tree, func(n *Node) {
			n.X = (n.X + tx) * kx
			n.Y = float64(n.Depth) * ky
		})
	default:
		eachNode(tree, func(n *Node) {
			n.X *= options.NodeSpacing
			n.Y = float64(n.Depth) * options.LevelSpacing
		})
	}
	return tree
}

func build(data *hierarchy.Node, parent *Node, depth int, index *int) *Node {
	node := &Node{Data: data, Depth: depth, Index: *index, Parent: parent}
	*index++
	for _, child := range data.Children {
		if child == nil {
			continue
		}
		node.Children = append(node.Children, build(child, node, depth+1, index))
	}
	return node
}

// place packs the children of node left to right against the contour of their
// already placed siblings, then centres node over its first and last child.
func place(node *Node, separation float64) contour {
	if len(node.Children) == 0 {
		return contour{left: []float64{0}, right: []float64{0}}
	}

	var acc contour
	offsets := make([]float64, len(node.Children))
	for i, child := range node.Children {
		shape := place(child, separation)
		if i == 0 {
			acc = shape
			continue
		}

		offset := math.Inf(-1)
		for k := 0; k < len(acc.right) && k < len(shape.left); k++ {
			gap := separation
			if k > 0 {
				gap = 2 * separation
			}
			offset = math.Max(offset, acc.right[k]-shape.left[k]+gap)
		}
		offsets[i] = offset

		for k := range shape.left {
			if k < len(acc.right) {
				acc.right[k] = shape.right[k] + offset
			} else {
				acc.left = append(acc.left, shape.left[k]+offset)
				acc.right = append(acc.right, shape.right[k]+offset)
			}
		}
	}

	mid := (offsets[0] + offsets[len(offsets)-1]) / 2
	for i, child := range node.Children {
		child.offset = offsets[i] - mid
	}

	result := contour{
		left:  make([]float64, 0, len(acc.left)+1),
		right: make([]float64, 0, len(acc.right)+1),
	}
	result.left = append(result.left, 0)
	result.right = append(result.right, 0)
	for k := range acc.left {
		result.left = append(result.left, acc.left[k]-mid)
		result.right = append(result.right, acc.right[k]-mid)
	}
	return result
}

func eachNode(node *Node, fn func(*Node)) {
	fn(node)
	for _, child := range node.Children {
		eachNode(child, fn)
	}
}

// Descendants lists the nodes in pre-order.
func Descendants(root *Node) []*Node {
	var nodes []*Node
	if root == nil {
		return nodes
	}
	eachNode(root, func(n *Node) { nodes = append(nodes, n) })
	return nodes
}

// Links lists every parent to child edge in pre-order of the child.
func Links(root *Node) []Link {
	var links []Link
	if root == nil {
		return links
	}
	eachNode(root, func(n *Node) {
		if n.Parent != nil {
			links = append(links, Link{Source: n.Parent, Target: n})
		}
	})
	return links
}

// Rect is an axis-aligned box in layout coordinates.
type Rect struct {
	MinX, MinY, MaxX, MaxY float64
}

func (r Rect) Width() float64  { return r.MaxX - r.MinX }
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

// Bounds returns the box enclosing every node position.
func Bounds(root *Node) Rect {
	if root == nil {
		return Rect{}
	}
	r := Rect{MinX: root.X, MaxX: root.X, MinY: root.Y, MaxY: root.Y}
	eachNode(root, func(n *Node) {
		r.MinX = math.Min(r.MinX, n.X)
		r.MaxX = math.Max(r.MaxX, n.X)
		r.MinY = math.Min(r.MinY, n.Y)
		r.MaxY = math.Max(r.MaxY, n.Y)
	})
	return r
}
