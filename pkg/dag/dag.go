package dag

import (
	"cmp"
	"errors"
	"maps"
	"slices"
)

var (
	// ErrInvalidNodeID is returned by [DAG.AddNode] when the node ID is empty.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [DAG.AddNode] when a node with the
	// same ID already exists in the graph.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownSourceNode is returned by [DAG.AddEdge] when the From node
	// does not exist.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [DAG.AddEdge] when the To node
	// does not exist in the graph.
	ErrUnknownTargetNode = errors.New("unknown target node")

	// ErrInvalidEdgeEndpoint is returned by [DAG.Validate] when an edge
	// references a node that doesn't exist.
	ErrInvalidEdgeEndpoint = errors.New("invalid edge endpoint")

	// ErrGraphHasCycle is returned by [DAG.Validate] and [DAG.TopoOrder]
	// when a cycle is detected.
	ErrGraphHasCycle = errors.New("graph contains a cycle")
)

// Metadata stores arbitrary key-value pairs attached to nodes or the graph,
// such as a package's version or description. Metadata maps are never nil
// once added to a graph.
type Metadata map[string]any

// NodeKind tells how a package is provided.
type NodeKind int

const (
	// NodeKindPlanned is a package built by this run.
	NodeKindPlanned NodeKind = iota
	// NodeKindExisting is a package already installed or available from a
	// repository.
	NodeKindExisting
	// NodeKindMeta is a metapackage depending on split components.
	NodeKindMeta
	// NodeKindExternal is a non-Python system package (e.g. swig).
	NodeKindExternal
)

func (k NodeKind) String() string {
	switch k {
	case NodeKindExisting:
		return "existing"
	case NodeKindMeta:
		return "meta"
	case NodeKindExternal:
		return "external"
	default:
		return "planned"
	}
}

// Role is the kind of a dependency edge. The values are the manifest
// array names the dependency is listed in.
type Role string

const (
	RoleRuntime Role = "depends"
	RoleBuild   Role = "makedepends"
	RoleCheck   Role = "checkdepends"
)

// Node is one package of the closure.
type Node struct {
	ID   string   // system package name
	Kind NodeKind // how the package is provided
	Row  int      // layer assigned by AssignRows, 0 for roots
	Meta Metadata // never nil after AddNode
}

// Edge is a dependency From a package To another.
type Edge struct {
	From string
	To   string
	Role Role
}

// DAG is a dependency graph. The zero value is not usable; use [New].
// DAG is not safe for concurrent use.
type DAG struct {
	nodes    map[string]*Node
	edges    []Edge
	outgoing map[string][]string // nodeID -> dependency IDs
	incoming map[string][]string // nodeID -> dependent IDs
	meta     Metadata
}

// New creates an empty graph with optional graph-level metadata.
func New(meta Metadata) *DAG {
	if meta == nil {
		meta = Metadata{}
	}
	return &DAG{
		nodes:    make(map[string]*Node),
		outgoing: make(map[string][]string),
		incoming: make(map[string][]string),
		meta:     meta,
	}
}

// Meta returns the graph-level metadata map.
func (d *DAG) Meta() Metadata { return d.meta }

// AddNode adds a node. Returns ErrInvalidNodeID if the node ID is empty, or
// ErrDuplicateNodeID if a node with the same ID already exists.
func (d *DAG) AddNode(n Node) error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	if _, exists := d.nodes[n.ID]; exists {
		return ErrDuplicateNodeID
	}
	if n.Meta == nil {
		n.Meta = Metadata{}
	}
	d.nodes[n.ID] = &n
	return nil
}

// EnsureNode returns the node with n's ID, adding n first when it is
// missing. An existing node of kind NodeKindExisting or NodeKindExternal
// is upgraded to n's kind when n is planned or meta, since a package
// first seen as a dependency may be built later in the run.
func (d *DAG) EnsureNode(n Node) *Node {
	if cur, ok := d.nodes[n.ID]; ok {
		if n.Kind == NodeKindPlanned || n.Kind == NodeKindMeta {
			cur.Kind = n.Kind
		}
		maps.Copy(cur.Meta, n.Meta)
		return cur
	}
	_ = d.AddNode(n)
	return d.nodes[n.ID]
}

// AddEdge adds a directed edge between two existing nodes. Adding an edge
// that is already present with the same role is a no-op.
func (d *DAG) AddEdge(e Edge) error {
	if _, ok := d.nodes[e.From]; !ok {
		return ErrUnknownSourceNode
	}
	if _, ok := d.nodes[e.To]; !ok {
		return ErrUnknownTargetNode
	}
	if slices.Contains(d.edges, e) {
		return nil
	}
	d.edges = append(d.edges, e)
	if !slices.Contains(d.outgoing[e.From], e.To) {
		d.outgoing[e.From] = append(d.outgoing[e.From], e.To)
		d.incoming[e.To] = append(d.incoming[e.To], e.From)
	}
	return nil
}

// Nodes returns all nodes sorted by ID. The pointers refer to the nodes in
// the graph.
func (d *DAG) Nodes() []*Node {
	nodes := slices.Collect(maps.Values(d.nodes))
	slices.SortFunc(nodes, func(a, b *Node) int { return cmp.Compare(a.ID, b.ID) })
	return nodes
}

// Edges returns a copy of all edges in insertion order.
func (d *DAG) Edges() []Edge { return slices.Clone(d.edges) }

// EdgesFrom returns the edges leaving id, optionally restricted to roles.
func (d *DAG) EdgesFrom(id string, roles ...Role) []Edge {
	var out []Edge
	for _, e := range d.edges {
		if e.From == id && (len(roles) == 0 || slices.Contains(roles, e.Role)) {
			out = append(out, e)
		}
	}
	return out
}

// NodeCount returns the number of nodes in the graph.
func (d *DAG) NodeCount() int { return len(d.nodes) }

// EdgeCount returns the number of edges in the graph.
func (d *DAG) EdgeCount() int { return len(d.edges) }

// Children returns the IDs of the packages id depends on, in any role.
// The returned slice should not be modified.
func (d *DAG) Children(id string) []string { return d.outgoing[id] }

// Parents returns the IDs of the packages depending on id.
// The returned slice should not be modified.
func (d *DAG) Parents(id string) []string { return d.incoming[id] }

// Node returns the node with the given ID.
func (d *DAG) Node(id string) (*Node, bool) {
	n, ok := d.nodes[id]
	return n, ok
}

// Sources returns the nodes nothing depends on, sorted by ID.
func (d *DAG) Sources() []*Node {
	var sources []*Node
	for _, n := range d.Nodes() {
		if len(d.incoming[n.ID]) == 0 {
			sources = append(sources, n)
		}
	}
	return sources
}

// Sinks returns the nodes without dependencies, sorted by ID.
func (d *DAG) Sinks() []*Node {
	var sinks []*Node
	for _, n := range d.Nodes() {
		if len(d.outgoing[n.ID]) == 0 {
			sinks = append(sinks, n)
		}
	}
	return sinks
}

// Validate checks that every edge connects existing nodes and that the
// graph is acyclic.
func (d *DAG) Validate() error {
	for _, e := range d.edges {
		_, okS := d.nodes[e.From]
		_, okD := d.nodes[e.To]
		if !okS || !okD {
			return ErrInvalidEdgeEndpoint
		}
	}
	if d.FindCycle() != nil {
		return ErrGraphHasCycle
	}
	return nil
}

// FindCycle returns the IDs along one cycle, first node repeated at the
// end, or nil when the graph is acyclic.
func (d *DAG) FindCycle() []string {
	const (
		white = iota
		gray
		black
	)

	color := make(map[string]int, len(d.nodes))
	var stack, cycle []string

	var dfs func(id string) bool
	dfs = func(id string) bool {
		color[id] = gray
		stack = append(stack, id)
		for _, child := range d.outgoing[id] {
			switch color[child] {
			case white:
				if dfs(child) {
					return true
				}
			case gray:
				i := slices.Index(stack, child)
				cycle = append(slices.Clone(stack[i:]), child)
				return true
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return false
	}

	for _, n := range d.Nodes() {
		if color[n.ID] == white && dfs(n.ID) {
			return cycle
		}
	}
	return nil
}

// TopoOrder returns node IDs with every package after all of its
// dependencies. Ties are broken by ID so the order is deterministic.
func (d *DAG) TopoOrder() ([]string, error) {
	remaining := make(map[string]int, len(d.nodes))
	var ready []string
	for id := range d.nodes {
		remaining[id] = len(d.outgoing[id])
		if remaining[id] == 0 {
			ready = append(ready, id)
		}
	}
	slices.Sort(ready)

	order := make([]string, 0, len(d.nodes))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		var next []string
		for _, parent := range d.incoming[id] {
			remaining[parent]--
			if remaining[parent] == 0 {
				next = append(next, parent)
			}
		}
		slices.Sort(next)
		ready = append(ready, next...)
	}
	if len(order) != len(d.nodes) {
		return nil, ErrGraphHasCycle
	}
	return order, nil
}

// AssignRows places every node one row below the deepest of its
// dependents, roots at row 0 (longest-path layering). Nodes on a cycle keep
// row 0.
func (d *DAG) AssignRows() {
	inDegree := make(map[string]int, len(d.nodes))
	rows := make(map[string]int, len(d.nodes))
	var queue []string

	for _, n := range d.Nodes() {
		inDegree[n.ID] = len(d.incoming[n.ID])
		if inDegree[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}

	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		for _, child := range d.outgoing[curr] {
			if row := rows[curr] + 1; row > rows[child] {
				rows[child] = row
			}
			inDegree[child]--
			if inDegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	for id, n := range d.nodes {
		n.Row = rows[id]
	}
}

// Rows groups node IDs by row, each row sorted by ID.
func (d *DAG) Rows() [][]string {
	var out [][]string
	for _, n := range d.Nodes() {
		for len(out) <= n.Row {
			out = append(out, nil)
		}
		out[n.Row] = append(out[n.Row], n.ID)
	}
	return out
}

// NodeIDs extracts the ID from each node in a slice.
func NodeIDs(nodes []*Node) []string {
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids
}

// Merge combines graphs into a new graph with rows reassigned. Node
// metadata is copied; a node's kind follows the rules of EnsureNode.
func Merge(meta Metadata, graphs ...*DAG) *DAG {
	out := New(meta)
	for _, g := range graphs {
		for _, n := range g.Nodes() {
			out.EnsureNode(Node{ID: n.ID, Kind: n.Kind, Meta: maps.Clone(n.Meta)})
		}
	}
	for _, g := range graphs {
		for _, e := range g.edges {
			_ = out.AddEdge(e)
		}
	}
	out.AssignRows()
	return out
}
