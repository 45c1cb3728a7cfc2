package models

import "fmt"

// RawNode is one typed node of a parse tree, before normalization.
type RawNode struct {
	Kind   string
	Start  *int // nil when the parser ran without location tracking
	End    *int
	Fields []Field
}

// Field is a named slot of a RawNode. Exactly one of Scalar, Node or List is meaningful.
type Field struct {
	Name   string
	Scalar *string
	Node   *RawNode
	List   []*RawNode
	IsList bool
}

// NewRawNode creates a node of the given kind without location data.
func NewRawNode(kind string) *RawNode {
	return &RawNode{Kind: kind}
}

// SetSpan records the byte offsets of the node.
func (n *RawNode) SetSpan(start, end int) *RawNode {
	n.Start = &start
	n.End = &end
	return n
}

// AddScalar appends a scalar field.
func (n *RawNode) AddScalar(name, value string) *RawNode {
	n.Fields = append(n.Fields, Field{Name: name, Scalar: &value})
	return n
}

// AddNode appends a single-child field.
func (n *RawNode) AddNode(name string, child *RawNode) *RawNode {
	n.Fields = append(n.Fields, Field{Name: name, Node: child})
	return n
}

// AddList appends a list field.
func (n *RawNode) AddList(name string, children ...*RawNode) *RawNode {
	n.Fields = append(n.Fields, Field{Name: name, List: children, IsList: true})
	return n
}

// Scalar returns the first scalar field with the given name.
func (n *RawNode) Scalar(name string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, f := range n.Fields {
		if f.Name == name && f.Scalar != nil {
			return *f.Scalar, true
		}
	}
	return "", false
}

// ParseFailure reports source text the grammar rejected.
type ParseFailure struct {
	Message string `json:"message"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Offset  int    `json:"offset"`
}

func (e *ParseFailure) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s (%d:%d)", e.Message, e.Line, e.Column)
	}
	return e.Message
}
