package hierarchy

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Node is one render-ready element of a normalized tree.
type Node struct {
	Label    string  `json:"name" yaml:"name"`
	Start    int     `json:"start" yaml:"start"`
	End      int     `json:"end" yaml:"end"`
	Children []*Node `json:"children" yaml:"children"`
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Walk visits the tree in pre-order. Returning false from fn skips the node's children.
func Walk(root *Node, fn func(node *Node, depth int) bool) {
	walk(root, 0, fn)
}

func walk(node *Node, depth int, fn func(*Node, int) bool) {
	if node == nil || !fn(node, depth) {
		return
	}
	for _, child := range node.Children {
		walk(child, depth+1, fn)
	}
}

// Count returns the number of nodes in the tree.
func Count(root *Node) int {
	count := 0
	Walk(root, func(*Node, int) bool {
		count++
		return true
	})
	return count
}

// Find returns the node at the given pre-order index.
func Find(root *Node, index int) (*Node, bool) {
	var found *Node
	i := 0
	Walk(root, func(node *Node, _ int) bool {
		if found != nil {
			return false
		}
		if i == index {
			found = node
		}
		i++
		return true
	})
	return found, found != nil
}

// Equal compares two trees structurally.
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Label != b.Label || a.Start != b.Start || a.End != b.End || len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Children {
		if !Equal(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}

// Decode reads a hierarchy stored as {name,start,end,children} JSON.
func Decode(data []byte) (*Node, error) {
	var root Node
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to decode hierarchy: %w", err)
	}
	if root.Label == "" {
		return nil, errors.New("hierarchy has no root label")
	}
	fillChildren(&root)
	return &root, nil
}

func fillChildren(node *Node) {
	if node.Children == nil {
		node.Children = []*Node{}
	}
	for _, child := range node.Children {
		if child != nil {
			fillChildren(child)
		}
	}
}
