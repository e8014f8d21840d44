// Package dependency provides a small directed graph for ordering service
// start and stop operations.
//
// Each node is a service; DependsOn lists the services that must be running
// before it. TopologicalOrder returns dependencies before dependents and
// reports a CycleError naming the loop when the graph is not acyclic, or a
// MissingDependencyError when a node refers to an ID that was never added.
//
// Stopping uses the reverse of the start order.
//
//	g := dependency.New()
//	g.AddNode(dependency.Node{ID: "db"})
//	g.AddNode(dependency.Node{ID: "pooler", DependsOn: []dependency.NodeID{"db"}})
//	order, err := g.TopologicalOrder() // [db pooler]
//
// The graph is not safe for concurrent writes.
package dependency
