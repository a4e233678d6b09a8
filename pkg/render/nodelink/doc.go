// Package nodelink renders dependency closures as node-link diagrams.
//
// Convert a closure graph to DOT, then optionally render it to SVG:
//
//	dot := nodelink.ToDOT(closure.Graph, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// The DOT source can also be saved and processed with external Graphviz
// tools. SVG rendering runs in-process through
// [github.com/goccy/go-graphviz].
package nodelink
