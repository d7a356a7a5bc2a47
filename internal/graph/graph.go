// Package graph builds a directed labeled multigraph over entity keys and
// answers bounded breadth-first traversals. The graph is derived state:
// it is rebuilt from the persisted edge set on each load, never stored
// itself.
package graph

import (
	"fmt"

	"github.com/lazypower/recall/internal/store"
)

// Traversal directions.
const (
	DirectionOut  = "out"
	DirectionIn   = "in"
	DirectionBoth = "both"
)

// Connection direction tags.
const (
	TypeOutbound = "outbound"
	TypeInbound  = "inbound"
)

type edge struct {
	peer     int
	relation string
	since    string
}

type node struct {
	key string
	out []edge
	in  []edge
}

// Graph is an in-memory adjacency view over entity keys.
type Graph struct {
	nodes []node
	index map[string]int
}

// Build constructs a graph from the given edges. Both endpoints of every
// edge become nodes even when no fact references them.
func Build(rels []store.Relationship) *Graph {
	g := &Graph{index: make(map[string]int)}
	for _, r := range rels {
		from := g.node(r.From)
		to := g.node(r.To)
		g.nodes[from].out = append(g.nodes[from].out, edge{peer: to, relation: r.Relation, since: r.Since})
		g.nodes[to].in = append(g.nodes[to].in, edge{peer: from, relation: r.Relation, since: r.Since})
	}
	return g
}

// Load reads the persisted edge set and builds a graph from it.
func Load(db *store.DB) (*Graph, error) {
	rels, err := db.AllRelationships()
	if err != nil {
		return nil, fmt.Errorf("load graph: %w", err)
	}
	return Build(rels), nil
}

func (g *Graph) node(key string) int {
	if i, ok := g.index[key]; ok {
		return i
	}
	i := len(g.nodes)
	g.nodes = append(g.nodes, node{key: key})
	g.index[key] = i
	return i
}

// Contains reports whether the entity key appears in any edge.
func (g *Graph) Contains(key string) bool {
	_, ok := g.index[key]
	return ok
}

// NodeCount returns the number of distinct entity keys in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// Connection is one edge crossed during traversal, seen from the node
// that was being expanded.
type Connection struct {
	Entity   string `json:"entity"`
	Relation string `json:"relation"`
	Type     string `json:"type"` // outbound or inbound
	Since    string `json:"since,omitempty"`
}

// Traverse walks breadth-first from start, honoring direction, and
// returns connections bucketed by depth (1-based: depth 1 holds the
// start node's immediate edges). Each node is expanded at most once, so
// cycles terminate. Nodes first reached at maxDepth appear as connection
// endpoints but are not expanded, keeping every reported entity within
// maxDepth of start.
func (g *Graph) Traverse(start string, maxDepth int, direction string) (map[int][]Connection, error) {
	if maxDepth < 1 {
		return nil, fmt.Errorf("traverse: depth must be at least 1, got %d", maxDepth)
	}
	if direction != DirectionOut && direction != DirectionIn && direction != DirectionBoth {
		return nil, fmt.Errorf("traverse: unknown direction %q", direction)
	}
	startIdx, ok := g.index[start]
	if !ok {
		return nil, fmt.Errorf("traverse: entity %q has no relationships", start)
	}

	type item struct {
		node  int
		depth int
	}
	visited := make(map[int]bool)
	visited[startIdx] = true
	queue := []item{{node: startIdx, depth: 0}}
	result := make(map[int][]Connection)

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			continue
		}
		n := g.nodes[cur.node]
		at := cur.depth + 1

		if direction == DirectionOut || direction == DirectionBoth {
			for _, e := range n.out {
				result[at] = append(result[at], Connection{
					Entity:   g.nodes[e.peer].key,
					Relation: e.relation,
					Type:     TypeOutbound,
					Since:    e.since,
				})
				if !visited[e.peer] {
					visited[e.peer] = true
					queue = append(queue, item{node: e.peer, depth: at})
				}
			}
		}
		if direction == DirectionIn || direction == DirectionBoth {
			for _, e := range n.in {
				result[at] = append(result[at], Connection{
					Entity:   g.nodes[e.peer].key,
					Relation: e.relation,
					Type:     TypeInbound,
					Since:    e.since,
				})
				if !visited[e.peer] {
					visited[e.peer] = true
					queue = append(queue, item{node: e.peer, depth: at})
				}
			}
		}
	}
	return result, nil
}
