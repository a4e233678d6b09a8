package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/pypi2pkgbuild/pkg/dag"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed includes the layer and metadata in node labels.
	// When false, only the package name is shown.
	Detailed bool
	// Runtime limits the diagram to runtime dependencies.
	Runtime bool
}

// ToDOT converts a closure graph to Graphviz DOT format.
// The resulting DOT string can be rendered using [RenderSVG].
//
// Packages to build are drawn white, existing packages grey, metapackages
// dashed and non-Python packages dotted. Build dependencies are dashed
// edges.
func ToDOT(g *dag.DAG, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	keep := keeper(g, opts)
	for _, n := range g.Nodes() {
		if !keep(n.ID) {
			continue
		}
		label := fmtLabel(*n, opts.Detailed)
		attrs := fmtAttrs(*n, label)
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges() {
		if !keepEdge(e, opts, keep) {
			continue
		}
		if e.Role == dag.RoleRuntime {
			fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
		} else {
			fmt.Fprintf(&buf, "  %q -> %q [style=dashed, label=%q];\n", e.From, e.To, string(e.Role))
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// keeper returns the node filter of opts.
func keeper(g *dag.DAG, opts Options) func(id string) bool {
	if !opts.Runtime {
		return func(string) bool { return true }
	}
	reach := runtimeReachable(g)
	return func(id string) bool { return reach[id] }
}

func keepEdge(e dag.Edge, opts Options, keep func(string) bool) bool {
	if opts.Runtime && e.Role != dag.RoleRuntime {
		return false
	}
	return keep(e.From) && keep(e.To)
}

// runtimeReachable returns the nodes reachable from the sources over
// runtime edges.
func runtimeReachable(g *dag.DAG) map[string]bool {
	seen := make(map[string]bool)
	var stack []string
	for _, n := range g.Sources() {
		stack = append(stack, n.ID)
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			continue
		}
		seen[id] = true
		for _, e := range g.EdgesFrom(id, dag.RoleRuntime) {
			stack = append(stack, e.To)
		}
	}
	return seen
}

func fmtLabel(n dag.Node, detailed bool) string {
	if !detailed {
		return n.ID
	}

	parts := []string{fmt.Sprintf("row: %d", n.Row), "kind: " + n.Kind.String()}
	for _, k := range slices.Sorted(maps.Keys(n.Meta)) {
		parts = append(parts, fmt.Sprintf("%s: %v", k, n.Meta[k]))
	}

	return n.ID + "\n" + strings.Join(parts, "\n")
}

func fmtAttrs(n dag.Node, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	switch n.Kind {
	case dag.NodeKindExisting:
		attrs = append(attrs, "fillcolor=lightgrey")
	case dag.NodeKindMeta:
		attrs = append(attrs, "style=\"rounded,filled,dashed\"")
	case dag.NodeKindExternal:
		attrs = append(attrs, "style=\"rounded,filled,dotted\"", "fillcolor=lightgrey", "fontcolor=dimgrey")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
