// Package dag holds the dependency closure of one or more root packages as
// a directed graph.
//
// # Overview
//
// Every node is a system package name. An edge points from a package to
// something it depends on and carries the [Role] of that dependency: a
// runtime dependency, a build-time dependency or a test-time dependency.
// Nodes are tagged with a [NodeKind] telling whether the package is built
// by this run, already provided by the system, or a metapackage wrapping
// split components.
//
// # Basic Usage
//
//	g := dag.New(nil)
//	g.AddNode(dag.Node{ID: "python-requests", Kind: dag.NodeKindPlanned})
//	g.AddNode(dag.Node{ID: "python-idna", Kind: dag.NodeKindExisting})
//	g.AddEdge(dag.Edge{From: "python-requests", To: "python-idna", Role: dag.RoleRuntime})
//
// [DAG.TopoOrder] returns the nodes dependencies first, the order in which
// packages have to be built and installed. [DAG.AssignRows] layers the graph
// by longest path from the roots; the rows become ranks when the graph is
// drawn.
//
// # Cycles
//
// Closures are expected to be acyclic. [DAG.Validate] and [DAG.TopoOrder]
// report [ErrGraphHasCycle] otherwise, and [DAG.FindCycle] returns one
// offending path for error messages.
package dag
