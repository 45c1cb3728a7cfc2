package renderer

import (
	"fmt"
	"sync"

	"github.com/meysamhadeli/astview/layout"
)

const (
	NodeRadius  = 6.0
	NodeFill    = "#007BFF"
	LinkStroke  = "#555"
	LinkWidth   = 1.5
	LabelOffset = 10.0
	MarginLeft  = 40.0
	MarginTop   = 20.0
)

// Label is the text drawn next to a node circle.
type Label struct {
	Text   string
	DX     float64
	DY     float64
	Anchor string // "start" or "end"
}

// NodeShape is one drawn node. X/Y are in scene coordinates: depth runs along X.
type NodeShape struct {
	Index  int
	X, Y   float64
	Radius float64
	Fill   string
	Start  int
	End    int
	Label  Label
}

// LinkShape is one drawn parent to child curve.
type LinkShape struct {
	Source      int
	Target      int
	Path        string
	Stroke      string
	StrokeWidth float64
}

// ClickHandler receives the span of a clicked node.
type ClickHandler func(start, end int)

// Renderer keeps the drawn scene of one layout and the pan/zoom state over it.
type Renderer struct {
	mu        sync.Mutex
	width     float64
	height    float64
	extent    layout.ScaleExtent
	transform layout.Transform
	nodes     []NodeShape
	links     []LinkShape
	onClick   ClickHandler
}

// New creates a renderer for a width x height viewport.
func New(width, height float64, extent layout.ScaleExtent) *Renderer {
	return &Renderer{
		width:     width,
		height:    height,
		extent:    extent,
		transform: layout.Identity,
	}
}

// OnNodeClick registers the click callback. A nil handler disables click delivery.
func (r *Renderer) OnNodeClick(handler ClickHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onClick = handler
}

// Render replaces the scene with one drawn from root. The view transform is kept.
func (r *Renderer) Render(root *layout.Node) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nodes = nil
	r.links = nil
	if root == nil {
		return
	}

	for _, link := range layout.Links(root) {
		r.links = append(r.links, LinkShape{
			Source:      link.Source.Index,
			Target:      link.Target.Index,
			Path:        horizontalLink(link.Source, link.Target),
			Stroke:      LinkStroke,
			StrokeWidth: LinkWidth,
		})
	}

	for _, node := range layout.Descendants(root) {
		label := Label{Text: node.Data.Label, DX: LabelOffset, DY: 3, Anchor: "start"}
		if len(node.Children) > 0 {
			label.DX = -LabelOffset
			label.Anchor = "end"
		}
		r.nodes = append(r.nodes, NodeShape{
			Index:  node.Index,
			X:      node.Y,
			Y:      node.X,
			Radius: NodeRadius,
			Fill:   NodeFill,
			Start:  node.Data.Start,
			End:    node.Data.End,
			Label:  label,
		})
	}
}

// Clear removes every drawn element.
func (r *Renderer) Clear() {
	r.Render(nil)
}

// horizontalLink draws a cubic curve whose tangents are horizontal at both ends.
func horizontalLink(source, target *layout.Node) string {
	sx, sy := source.Y, source.X
	tx, ty := target.Y, target.X
	mx := (sx + tx) / 2
	return fmt.Sprintf("M%s,%sC%s,%s %s,%s %s,%s",
		num(sx), num(sy), num(mx), num(sy), num(mx), num(ty), num(tx), num(ty))
}

// Nodes returns a copy of the drawn nodes in pre-order.
func (r *Renderer) Nodes() []NodeShape {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]NodeShape(nil), r.nodes...)
}

// Links returns a copy of the drawn links.
func (r *Renderer) Links() []LinkShape {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]LinkShape(nil), r.links...)
}

// Click hit-tests a viewport point against the node circles and fires the callback.
func (r *Renderer) Click(screenX, screenY float64) (NodeShape, bool) {
	r.mu.Lock()
	x, y := r.transform.Invert(screenX, screenY)
	x -= MarginLeft
	y -= MarginTop

	hit := -1
	for i, node := range r.nodes {
		dx, dy := x-node.X, y-node.Y
		if dx*dx+dy*dy <= node.Radius*node.Radius {
			// later nodes are painted on top
			hit = i
		}
	}
	if hit < 0 {
		r.mu.Unlock()
		return NodeShape{}, false
	}
	node, handler := r.nodes[hit], r.onClick
	r.mu.Unlock()

	if handler != nil {
		handler(node.Start, node.End)
	}
	return node, true
}

// ClickNode clicks the node with the given pre-order index.
func (r *Renderer) ClickNode(index int) (NodeShape, bool) {
	r.mu.Lock()
	if index < 0 || index >= len(r.nodes) {
		r.mu.Unlock()
		return NodeShape{}, false
	}
	node, handler := r.nodes[index], r.onClick
	r.mu.Unlock()

	if handler != nil {
		handler(node.Start, node.End)
	}
	return node, true
}

// ScreenPosition returns where a node centre is drawn in the viewport.
func (r *Renderer) ScreenPosition(index int) (float64, float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if index < 0 || index >= len(r.nodes) {
		return 0, 0, false
	}
	node := r.nodes[index]
	x, y := r.transform.Apply(node.X+MarginLeft, node.Y+MarginTop)
	return x, y, true
}

// Zoom scales the view around (cx, cy) within the scale extent.
func (r *Renderer) Zoom(factor, cx, cy float64) layout.Transform {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transform = r.transform.ScaleBy(factor, cx, cy, r.extent)
	return r.transform
}

// Pan moves the view by (dx, dy).
func (r *Renderer) Pan(dx, dy float64) layout.Transform {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transform = r.transform.Translate(dx, dy)
	return r.transform
}

// ResetView drops any pan or zoom.
func (r *Renderer) ResetView() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transform = layout.Identity
}

// Transform returns the current view transform.
func (r *Renderer) Transform() layout.Transform {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transform
}

// Size returns the viewport size.
func (r *Renderer) Size() (float64, float64) {
	return r.width, r.height
}

func num(v float64) string {
	return fmt.Sprintf("%.6g", v)
}
