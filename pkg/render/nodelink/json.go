package nodelink

import (
	"encoding/json"
	"fmt"

	"github.com/matzehuels/pypi2pkgbuild/pkg/dag"
)

type jsonGraph struct {
	Meta  dag.Metadata `json:"meta,omitempty"`
	Nodes []jsonNode   `json:"nodes"`
	Edges []jsonEdge   `json:"edges"`
}

type jsonNode struct {
	ID   string       `json:"id"`
	Kind string       `json:"kind"`
	Row  int          `json:"row"`
	Meta dag.Metadata `json:"meta,omitempty"`
}

type jsonEdge struct {
	From string   `json:"from"`
	To   string   `json:"to"`
	Role dag.Role `json:"role"`
}

// ToJSON encodes a closure graph as a node-link JSON document. Options
// filter it the same way as [ToDOT]; Detailed adds node metadata.
func ToJSON(g *dag.DAG, opts Options) ([]byte, error) {
	keep := keeper(g, opts)
	out := jsonGraph{Meta: g.Meta(), Nodes: []jsonNode{}, Edges: []jsonEdge{}}
	for _, n := range g.Nodes() {
		if !keep(n.ID) {
			continue
		}
		nd := jsonNode{ID: n.ID, Kind: n.Kind.String(), Row: n.Row}
		if opts.Detailed {
			nd.Meta = n.Meta
		}
		out.Nodes = append(out.Nodes, nd)
	}
	for _, e := range g.Edges() {
		if keepEdge(e, opts, keep) {
			out.Edges = append(out.Edges, jsonEdge{From: e.From, To: e.To, Role: e.Role})
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode graph: %w", err)
	}
	return append(data, '\n'), nil
}
