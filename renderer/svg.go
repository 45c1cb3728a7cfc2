package renderer

import (
	"bufio"
	"fmt"
	"html"
	"io"
)

// WriteSVG serializes the current scene. Nodes carry data-index, data-start and data-end
// so a browser can map clicks back to source spans.
func (r *Renderer) WriteSVG(w io.Writer) error {
	r.mu.Lock()
	nodes := append([]NodeShape(nil), r.nodes...)
	links := append([]LinkShape(nil), r.links...)
	transform := r.transform
	r.mu.Unlock()

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, `<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" font-family="sans-serif" font-size="10">`+"\n",
		num(r.width), num(r.height))
	fmt.Fprintf(bw, `<g class="zoom" transform="%s">`+"\n", transform.String())
	fmt.Fprintf(bw, `<g transform="translate(%s,%s)">`+"\n", num(MarginLeft), num(MarginTop))

	for _, link := range links {
		fmt.Fprintf(bw, `<path class="link" fill="none" stroke="%s" stroke-width="%s" d="%s"/>`+"\n",
			link.Stroke, num(link.StrokeWidth), link.Path)
	}
	for _, node := range nodes {
		fmt.Fprintf(bw, `<g class="node" transform="translate(%s,%s)" data-index="%d" data-start="%d" data-end="%d">`,
			num(node.X), num(node.Y), node.Index, node.Start, node.End)
		fmt.Fprintf(bw, `<circle r="%s" fill="%s"/>`, num(node.Radius), node.Fill)
		fmt.Fprintf(bw, `<text dy="%s" x="%s" style="text-anchor: %s">%s</text></g>`+"\n",
			num(node.Label.DY), num(node.Label.DX), node.Label.Anchor, html.EscapeString(node.Label.Text))
	}

	bw.WriteString("</g>\n</g>\n</svg>\n")
	return bw.Flush()
}
