package hierarchy

import (
	"errors"
	"fmt"

	"github.com/meysamhadeli/astview/code_analyzer/models"
)

// DefaultMaxDepth bounds recursion over parser output.
const DefaultMaxDepth = 1000

// ErrDepthExceeded is matched by every *DepthError.
var ErrDepthExceeded = errors.New("hierarchy depth limit exceeded")

// DepthError reports the node kind at which the depth cap tripped.
type DepthError struct {
	Limit int
	Kind  string
}

func (e *DepthError) Error() string {
	return fmt.Sprintf("normalization stopped at %s: tree deeper than %d levels", e.Kind, e.Limit)
}

func (e *DepthError) Is(target error) bool {
	return target == ErrDepthExceeded
}

// atomicKinds get their value appended to the label so equal kinds with different values differ.
var atomicKinds = map[string][]string{
	"Identifier":        {"name"},
	"PrivateIdentifier": {"name"},
	"JSXIdentifier":     {"name"},
	"Literal":           {"value", "raw"},
	"JSXText":           {"value", "raw"},
	"TemplateElement":   {"value", "raw"},
}

// positionFields duplicate the span or point back up the tree.
var positionFields = map[string]bool{
	"start":  true,
	"end":    true,
	"loc":    true,
	"range":  true,
	"parent": true,
}

// Normalizer turns raw parse trees into Node trees.
type Normalizer struct {
	MaxDepth int
}

// NewNormalizer returns a Normalizer; maxDepth <= 0 selects DefaultMaxDepth.
func NewNormalizer(maxDepth int) *Normalizer {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Normalizer{MaxDepth: maxDepth}
}

// Normalize converts raw into a display tree. A nil raw yields a nil tree and no error.
func (n *Normalizer) Normalize(raw *models.RawNode) (*Node, error) {
	if raw == nil {
		return nil, nil
	}
	limit := n.MaxDepth
	if limit <= 0 {
		limit = DefaultMaxDepth
	}
	return normalize(raw, 0, limit)
}

// Normalize uses a Normalizer with the default depth cap.
func Normalize(raw *models.RawNode) (*Node, error) {
	return NewNormalizer(DefaultMaxDepth).Normalize(raw)
}

func normalize(raw *models.RawNode, depth, limit int) (*Node, error) {
	if depth >= limit {
		return nil, &DepthError{Limit: limit, Kind: raw.Kind}
	}

	node := &Node{
		Label:    Label(raw),
		Children: []*Node{},
	}
	if raw.Start != nil {
		node.Start = *raw.Start
	}
	if raw.End != nil {
		node.End = *raw.End
	}

	for _, field := range raw.Fields {
		if positionFields[field.Name] || field.Scalar != nil {
			continue
		}
		if field.IsList {
			for _, element := range field.List {
				if element == nil {
					continue
				}
				child, err := normalize(element, depth+1, limit)
				if err != nil {
					return nil, err
				}
				node.Children = append(node.Children, child)
			}
			continue
		}
		if field.Node != nil {
			child, err := normalize(field.Node, depth+1, limit)
			if err != nil {
				return nil, err
			}
			node.Children = append(node.Children, child)
		}
	}
	return node, nil
}

// Label derives the display name of a raw node.
func Label(raw *models.RawNode) string {
	if keys, ok := atomicKinds[raw.Kind]; ok {
		for _, key := range keys {
			if value, ok := raw.Scalar(key); ok {
				return fmt.Sprintf("%s (%s)", raw.Kind, value)
			}
		}
		return raw.Kind
	}
	if kind, ok := raw.Scalar("kind"); ok && isDeclaration(raw.Kind) {
		return fmt.Sprintf("%s (%s)", raw.Kind, kind)
	}
	return raw.Kind
}

func isDeclaration(kind string) bool {
	const suffix = "Declaration"
	return len(kind) > len(suffix) && kind[len(kind)-len(suffix):] == suffix
}
