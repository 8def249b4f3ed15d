package commitgraph

import (
	"fmt"
	"slices"
)

// Graph is a directed graph over commits with an edge from every commit to each
// of its parents that is present in the input set. Nodes are stored in an
// arena and addressed by index; the graph is read-only once built and safe for
// concurrent readers.
type Graph struct {
	nodes []Commit
	index map[string]int
	edges [][]int
	head  int
}

// Build reconstructs the ancestry graph reachable from the head commit.
//
// The head is the last commit in input order whose identity is not listed as a
// parent of another commit. Duplicate identities are tolerated; the last
// occurrence wins. Commits that cannot be reached from the head through known
// parents are left out of the graph.
func Build(commits []Commit) (Commit, *Graph, error) {
	if len(commits) == 0 {
		return Commit{}, nil, fmt.Errorf("%w: no commits", ErrMalformedHistory)
	}

	byID := make(map[string]Commit, len(commits))
	isParent := make(map[string]bool, len(commits))
	for _, c := range commits {
		byID[c.ID] = c
		for _, p := range c.Parents {
			if p != c.ID {
				isParent[p] = true
			}
		}
	}

	headID := ""
	for i := len(commits) - 1; i >= 0; i-- {
		if !isParent[commits[i].ID] {
			headID = commits[i].ID
			break
		}
	}
	if headID == "" {
		return Commit{}, nil, fmt.Errorf("%w: every one of %d commits is a parent of another", ErrMalformedHistory, len(commits))
	}

	g := &Graph{index: make(map[string]int, len(byID))}
	g.head = g.add(byID[headID])

	stack := []int{g.head}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, pid := range g.nodes[n].Parents {
			if pid == g.nodes[n].ID {
				continue
			}
			parent, ok := byID[pid]
			if !ok {
				continue // outside the fetched slice
			}
			idx, seen := g.index[pid]
			if !seen {
				idx = g.add(parent)
				stack = append(stack, idx)
			}
			if !slices.Contains(g.edges[n], idx) {
				g.edges[n] = append(g.edges[n], idx)
			}
		}
	}

	return g.nodes[g.head], g, nil
}

func (g *Graph) add(c Commit) int {
	idx := len(g.nodes)
	g.nodes = append(g.nodes, c)
	g.edges = append(g.edges, nil)
	g.index[c.ID] = idx
	return idx
}

// Head returns the head commit.
func (g *Graph) Head() Commit {
	return g.nodes[g.head]
}

// Len returns the number of commits in the graph.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Contains reports whether a commit with the given identity is a node.
func (g *Graph) Contains(id string) bool {
	_, ok := g.index[id]
	return ok
}

// Commit looks up a node by identity.
func (g *Graph) Commit(id string) (Commit, bool) {
	idx, ok := g.index[id]
	if !ok {
		return Commit{}, false
	}
	return g.nodes[idx], true
}

// Parents returns the identities of the parents of id that are nodes of the
// graph, in the order the commit lists them.
func (g *Graph) Parents(id string) []string {
	idx, ok := g.index[id]
	if !ok {
		return nil
	}
	parents := make([]string, 0, len(g.edges[idx]))
	for _, p := range g.edges[idx] {
		parents = append(parents, g.nodes[p].ID)
	}
	return parents
}

// Nodes returns every commit in the graph in discovery order.
func (g *Graph) Nodes() []Commit {
	return slices.Clone(g.nodes)
}

// PostOrder walks the graph depth-first from the head and emits each commit
// after all of its parents' subtrees. Parents are visited in listed order and
// every commit appears exactly once, so the result runs oldest ancestor first
// and ends with the head.
func (g *Graph) PostOrder() []Commit {
	return g.postOrder(g.head)
}

// PostOrderFrom is PostOrder rooted at an arbitrary node. It returns nil when
// id is not a node.
func (g *Graph) PostOrderFrom(id string) []Commit {
	idx, ok := g.index[id]
	if !ok {
		return nil
	}
	return g.postOrder(idx)
}

func (g *Graph) postOrder(root int) []Commit {
	type frame struct {
		node int
		next int
	}

	out := make([]Commit, 0, len(g.nodes))
	visited := make([]bool, len(g.nodes))
	visited[root] = true
	stack := []frame{{node: root}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next < len(g.edges[top.node]) {
			p := g.edges[top.node][top.next]
			top.next++
			if !visited[p] {
				visited[p] = true
				stack = append(stack, frame{node: p})
			}
			continue
		}
		out = append(out, g.nodes[top.node])
		stack = stack[:len(stack)-1]
	}

	return out
}
