package pipeline

import (
	"context"

	"github.com/matzehuels/pypi2pkgbuild/pkg/dag"
	"github.com/matzehuels/pypi2pkgbuild/pkg/deps"
	perrors "github.com/matzehuels/pypi2pkgbuild/pkg/errors"
	"github.com/matzehuels/pypi2pkgbuild/pkg/render/nodelink"
)

// Graph returns the closure graph of one closure, or the merge of several.
func Graph(closures []*deps.Closure) *dag.DAG {
	if len(closures) == 1 {
		return closures[0].Graph
	}
	graphs := make([]*dag.DAG, len(closures))
	roots := make([]string, len(closures))
	for i, c := range closures {
		graphs[i] = c.Graph
		roots[i] = c.Root.Name()
	}
	return dag.Merge(dag.Metadata{"roots": roots}, graphs...)
}

// Render draws the closures in format.
func Render(ctx context.Context, closures []*deps.Closure, format string, opts nodelink.Options) ([]byte, error) {
	if err := ValidateFormat(format); err != nil {
		return nil, err
	}
	if len(closures) == 0 {
		return nil, perrors.New(perrors.ErrCodeInvalidInput, "nothing to render")
	}
	g := Graph(closures)
	switch format {
	case FormatJSON:
		return nodelink.ToJSON(g, opts)
	case FormatDOT:
		return []byte(nodelink.ToDOT(g, opts)), nil
	}
	return nodelink.RenderSVG(ctx, nodelink.ToDOT(g, opts))
}
