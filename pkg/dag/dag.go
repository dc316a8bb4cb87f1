package dag

import (
	"errors"
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
	// does not exist.
	ErrUnknownTargetNode = errors.New("unknown target node")

	// ErrSelfLoop is returned by [DAG.AddEdge] when From equals To. A joint
	// cannot connect a link to itself.
	ErrSelfLoop = errors.New("edge connects a node to itself")

	// ErrGraphHasCycle is returned by [DAG.Validate] when a directed cycle
	// exists. Cycles are detected using depth-first search with
	// white/gray/black coloring.
	ErrGraphHasCycle = errors.New("graph contains a cycle")
)

// Metadata stores arbitrary key-value pairs attached to nodes, edges or the graph.
type Metadata map[string]any

// NodeKind distinguishes the torso from the links hanging off it.
type NodeKind int

const (
	// NodeKindLink is a rigid link of a leg.
	NodeKindLink NodeKind = iota
	// NodeKindTorso is the body every motor is mounted on.
	NodeKindTorso
)

// Node is a rigid body in the mechanism topology.
type Node struct {
	ID   string
	Kind NodeKind
	Meta Metadata // never nil after AddNode
}

// IsTorso reports whether the node is the torso.
func (n Node) IsTorso() bool { return n.Kind == NodeKindTorso }

// Edge is a joint, directed from its parent body to its child body.
type Edge struct {
	From  string // parent node ID
	To    string // child node ID
	Joint string // joint name
	Motor bool   // joint carries an enabled motor
	Meta  Metadata
}

// DAG is the parent-to-child graph of a mechanism. Nodes keep insertion
// order; multiple edges between the same pair are allowed.
//
// The zero value is not usable; use New. DAG is not safe for concurrent use
// without external synchronization.
type DAG struct {
	nodes    map[string]*Node
	order    []string
	edges    []Edge
	outgoing map[string][]string
	incoming map[string][]string
	meta     Metadata
}

// New creates an empty DAG with optional graph-level metadata.
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

// AddNode adds a node. Returns ErrInvalidNodeID for an empty ID or
// ErrDuplicateNodeID if the ID is taken.
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
	d.order = append(d.order, n.ID)
	return nil
}

// AddEdge adds a directed edge between two existing nodes.
func (d *DAG) AddEdge(e Edge) error {
	if _, ok := d.nodes[e.From]; !ok {
		return ErrUnknownSourceNode
	}
	if _, ok := d.nodes[e.To]; !ok {
		return ErrUnknownTargetNode
	}
	if e.From == e.To {
		return ErrSelfLoop
	}
	if e.Meta == nil {
		e.Meta = Metadata{}
	}
	d.edges = append(d.edges, e)
	d.outgoing[e.From] = append(d.outgoing[e.From], e.To)
	d.incoming[e.To] = append(d.incoming[e.To], e.From)
	return nil
}

// Nodes returns all nodes in insertion order. The pointers refer to the
// graph's own nodes.
func (d *DAG) Nodes() []*Node {
	nodes := make([]*Node, len(d.order))
	for i, id := range d.order {
		nodes[i] = d.nodes[id]
	}
	return nodes
}

// Edges returns a copy of all edges in insertion order.
func (d *DAG) Edges() []Edge { return slices.Clone(d.edges) }

// NodeCount returns the number of nodes.
func (d *DAG) NodeCount() int { return len(d.nodes) }

// EdgeCount returns the number of edges.
func (d *DAG) EdgeCount() int { return len(d.edges) }

// Node returns the node with the given ID.
func (d *DAG) Node(id string) (*Node, bool) {
	n, ok := d.nodes[id]
	return n, ok
}

// Reachable returns the IDs reachable from root (root included), in
// breadth-first order. Unknown roots yield nil.
func (d *DAG) Reachable(root string) []string {
	if _, ok := d.nodes[root]; !ok {
		return nil
	}
	seen := map[string]bool{root: true}
	queue := []string{root}
	for i := 0; i < len(queue); i++ {
		for _, c := range d.outgoing[queue[i]] {
			if !seen[c] {
				seen[c] = true
				queue = append(queue, c)
			}
		}
	}
	return queue
}

// Validate returns ErrGraphHasCycle if the graph is not acyclic.
func (d *DAG) Validate() error {
	if len(d.BackEdges()) > 0 {
		return ErrGraphHasCycle
	}
	return nil
}

// BackEdges returns the edges that close a directed cycle during a
// depth-first search from the sources, then from any unvisited node.
// An acyclic graph has none.
func (d *DAG) BackEdges() []Edge {
	const (
		white = iota
		gray
		black
	)

	color := make(map[string]int, len(d.nodes))
	var back [][2]string

	var dfs func(id string)
	dfs = func(id string) {
		color[id] = gray
		for _, child := range d.outgoing[id] {
			switch color[child] {
			case white:
				dfs(child)
			case gray:
				back = append(back, [2]string{id, child})
			}
		}
		color[id] = black
	}

	// sources first, so a cycle is reported at the edge that closes it
	for _, id := range d.order {
		if len(d.incoming[id]) == 0 {
			dfs(id)
		}
	}
	for _, id := range d.order {
		if color[id] == white {
			dfs(id)
		}
	}

	var out []Edge
	for _, b := range back {
		for _, e := range d.edges {
			if e.From == b[0] && e.To == b[1] {
				out = append(out, e)
				break
			}
		}
	}
	return out
}
