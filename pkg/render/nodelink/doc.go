// Package nodelink draws the link topology of a geometry spec as a
// node-link diagram.
//
// Links are nodes and joints are edges from parent to child. The torso is
// drawn filled, motor joints bold, so the driven cranks stand out from the
// passive pins:
//
//	g, _ := spec.Graph()
//	dot := nodelink.ToDOT(g, nodelink.Options{Detailed: true})
//	svg, err := nodelink.RenderSVG(dot)
//
// DOT output can also be fed to external Graphviz tools. SVG rendering runs
// in-process through [github.com/goccy/go-graphviz].
package nodelink
