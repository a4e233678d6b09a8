package deps

import (
	"github.com/matzehuels/pypi2pkgbuild/pkg/dag"
)

// Closure is the resolved dependency closure of one root.
type Closure struct {
	Root *Plan
	// Plans lists every package to build, dependencies before dependents.
	// Packages the system already provides are not included.
	Plans []*Plan
	// Graph holds every package of the closure, including existing and
	// non-Python ones, with runtime and build edges.
	Graph *dag.DAG
}

func newClosure(root *Plan) *Closure {
	c := &Closure{Root: root, Graph: dag.New(dag.Metadata{"root": root.Name()})}
	seen := make(map[*Plan]bool)
	var visit func(p *Plan)
	visit = func(p *Plan) {
		if seen[p] {
			return
		}
		seen[p] = true
		for _, sub := range p.Subpackages {
			visit(sub)
		}
		for _, dep := range p.Requires {
			visit(dep)
		}
		c.Plans = append(c.Plans, p)
	}
	visit(root)

	for _, p := range c.Plans {
		kind := dag.NodeKindPlanned
		if p.Kind == KindMeta {
			kind = dag.NodeKindMeta
		}
		c.Graph.EnsureNode(dag.Node{ID: p.Name(), Kind: kind, Meta: dag.Metadata{
			"version":   p.Version().String(),
			"canonical": p.Ref.Canonical,
			"arch":      p.Arch,
		}})
	}
	for _, p := range c.Plans {
		c.addEdges(p, p.Depends, dag.RoleRuntime)
		c.addEdges(p, p.MakeDepends, dag.RoleBuild)
		c.addEdges(p, p.CheckDepends, dag.RoleCheck)
	}
	c.Graph.AssignRows()
	return c
}

func (c *Closure) addEdges(p *Plan, refs []*PackageRef, role dag.Role) {
	for _, name := range DependencyNames(p, refs) {
		if _, ok := c.Graph.Node(name); !ok {
			c.Graph.EnsureNode(dag.Node{ID: name, Kind: refKind(refs, name)})
		}
		_ = c.Graph.AddEdge(dag.Edge{From: p.Name(), To: name, Role: role})
	}
}

func refKind(refs []*PackageRef, name string) dag.NodeKind {
	for _, r := range refs {
		if r.DepName != name && r.SystemName != name {
			continue
		}
		switch {
		case r.NonPython:
			return dag.NodeKindExternal
		case r.Exists():
			return dag.NodeKindExisting
		}
	}
	return dag.NodeKindExternal
}

// Names returns the package names of the build list in build order.
func (c *Closure) Names() []string {
	names := make([]string, len(c.Plans))
	for i, p := range c.Plans {
		names[i] = p.Name()
	}
	return names
}
