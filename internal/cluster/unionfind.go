// Package cluster provides the disjoint-set structure that turns pairwise
// SAME judgements into transitive clusters.
package cluster

import "sort"

// UnionFind is a disjoint set over record ids with path compression and
// union by rank. It lives for the duration of one pipeline run.
type UnionFind struct {
	parent map[string]string
	rank   map[string]int
}

// NewUnionFind creates singleton sets for the given ids.
func NewUnionFind(ids []string) *UnionFind {
	uf := &UnionFind{
		parent: make(map[string]string, len(ids)),
		rank:   make(map[string]int, len(ids)),
	}
	for _, id := range ids {
		uf.parent[id] = id
	}
	return uf
}

// Find returns the representative of x's component, compressing the path on
// the way up. Unknown ids become singleton sets.
func (uf *UnionFind) Find(x string) string {
	p, ok := uf.parent[x]
	if !ok {
		uf.parent[x] = x
		return x
	}
	if p == x {
		return x
	}
	root := uf.Find(p)
	uf.parent[x] = root
	return root
}

// Union merges the components of a and b.
func (uf *UnionFind) Union(a, b string) {
	ra, rb := uf.Find(a), uf.Find(b)
	if ra == rb {
		return
	}
	switch {
	case uf.rank[ra] < uf.rank[rb]:
		uf.parent[ra] = rb
	case uf.rank[ra] > uf.rank[rb]:
		uf.parent[rb] = ra
	default:
		uf.parent[rb] = ra
		uf.rank[ra]++
	}
}

// Groups returns root -> sorted member ids for every component.
func (uf *UnionFind) Groups() map[string][]string {
	groups := make(map[string][]string)
	for id := range uf.parent {
		root := uf.Find(id)
		groups[root] = append(groups[root], id)
	}
	for root := range groups {
		sort.Strings(groups[root])
	}
	return groups
}
