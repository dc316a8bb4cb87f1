// Package dag provides the directed link graph of a mechanism.
//
// # Overview
//
// Every joint of a mechanism connects a parent body to a child body. Taken
// together the joints form a directed graph whose nodes are the torso and the
// rigid links. A well-formed mechanism is acyclic when read parent to child:
// the torso is a source, and every chain of joints ends at a leaf link.
// Closed kinematic loops are fine as long as no link is its own ancestor, so
// a link may have several parents.
//
// # Basic Usage
//
//	g := dag.New(nil)
//	g.AddNode(dag.Node{ID: "torso", Kind: dag.NodeKindTorso})
//	g.AddNode(dag.Node{ID: "rear_red"})
//	g.AddEdge(dag.Edge{From: "torso", To: "rear_red", Joint: "rear_upper_motor"})
//
// [DAG.Validate] reports cycles; [DAG.BackEdges] names the joints closing
// them. [DAG.Reachable] lists the bodies attached to a root, which exposes
// links left dangling from the torso.
//
// # Concurrency
//
// DAG instances are not safe for concurrent modification. Read-only use from
// several goroutines is fine.
package dag
