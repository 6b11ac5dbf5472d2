// Package unionfind implements a disjoint-set forest with path compression
// and union by rank.
package unionfind

// UnionFind partitions values of type T into equivalence classes. Values are
// added implicitly the first time they are mentioned.
type UnionFind[T comparable] struct {
	parent map[T]T
	rank   map[T]int
}

// New creates an empty structure.
func New[T comparable]() *UnionFind[T] {
	return &UnionFind[T]{
		parent: make(map[T]T),
		rank:   make(map[T]int),
	}
}

// Add makes x a member, in its own class if it is new.
func (u *UnionFind[T]) Add(x T) {
	if _, ok := u.parent[x]; !ok {
		u.parent[x] = x
	}
}

// Find returns the representative of x's class.
func (u *UnionFind[T]) Find(x T) T {
	u.Add(x)
	root := x
	for u.parent[root] != root {
		root = u.parent[root]
	}
	for x != root {
		next := u.parent[x]
		u.parent[x] = root
		x = next
	}
	return root
}

// Union merges the classes of x and y and returns the new representative.
func (u *UnionFind[T]) Union(x, y T) T {
	rx, ry := u.Find(x), u.Find(y)
	if rx == ry {
		return rx
	}
	if u.rank[rx] < u.rank[ry] {
		rx, ry = ry, rx
	}
	u.parent[ry] = rx
	if u.rank[rx] == u.rank[ry] {
		u.rank[rx]++
	}
	return rx
}

// UnionInto merges the classes of x and y making root's representative the
// representative of the result.
func (u *UnionFind[T]) UnionInto(root, other T) T {
	rr, ro := u.Find(root), u.Find(other)
	if rr == ro {
		return rr
	}
	u.parent[ro] = rr
	if u.rank[rr] <= u.rank[ro] {
		u.rank[rr] = u.rank[ro] + 1
	}
	return rr
}

// Same reports whether x and y are in the same class.
func (u *UnionFind[T]) Same(x, y T) bool {
	return u.Find(x) == u.Find(y)
}

// Len returns the number of members.
func (u *UnionFind[T]) Len() int {
	return len(u.parent)
}

// Classes returns every class as a map from representative to members.
func (u *UnionFind[T]) Classes() map[T][]T {
	r := make(map[T][]T)
	for x := range u.parent {
		root := u.Find(x)
		r[root] = append(r[root], x)
	}
	return r
}
