package symtab

// ResolveChains follows copy chains (to <- from entries read as
// copies[to] = from) back to their source. Members of a cycle are dropped:
// a reference that only copies itself is never driven.
func ResolveChains(copies map[Ref]Ref) map[Ref]Ref {
	result := make(map[Ref]Ref)

	for from := range copies {
		if to, ok := resolveRef(from, copies); ok {
			result[from] = to
		}
	}

	return result
}

func resolveRef(r Ref, copies map[Ref]Ref) (Ref, bool) {
	visited := make(map[Ref]bool)
	current := r

	for {
		if visited[current] {
			return current, false
		}
		visited[current] = true

		next, ok := copies[current]
		if !ok {
			return current, true
		}
		current = next
	}
}
