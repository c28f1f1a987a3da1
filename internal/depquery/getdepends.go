package depquery

import "sort"

// Options mirrors the RC_DEP_* flags a caller passes to scope a
// GetDepends or OrderServices call.
type Options struct {
	Trace  bool // RC_DEP_TRACE: traverse transitively, not just direct neighbors
	Strict bool // RC_DEP_STRICT: only include services in the target runlevel (+ sysinit/boot)
	Start  bool // RC_DEP_START: closure is for a start
	Stop   bool // RC_DEP_STOP: closure is for a stop; also follow reverse relations
}

// GetDepends returns the set of service names reachable from seeds via
// types, applying opts. Without RC_DEP_TRACE the result is each seed's
// direct neighbors only; with it, the full transitive closure. The
// result is deduplicated and excludes a seed unless another seed's
// traversal reaches it, ordered by
// DFS visitation with a lexicographic tie-break at each level so the
// result is deterministic across runs.
func GetDepends(graph *Graph, types []Relation, seeds []string, members map[string]bool, opts Options) []string {
	visited := make(map[string]bool)
	var order []string

	var visit func(name string, depth int)
	visit = func(name string, depth int) {
		info, ok := graph.GetDepinfo(name)
		if !ok {
			return
		}

		var neighbors []string
		for _, rel := range types {
			neighbors = append(neighbors, info.Get(rel)...)
		}
		sort.Strings(neighbors)

		for _, n := range neighbors {
			if opts.Strict && !members[n] {
				continue
			}
			if opts.Start && containsRelation(types, IUse) && !graphHasService(graph, n) {
				// iuse expansions skip services that don't exist at all.
				continue
			}
			if !visited[n] {
				visited[n] = true
				order = append(order, n)
				if opts.Trace {
					visit(n, depth+1)
				}
			}
		}
	}

	sortedSeeds := append([]string(nil), seeds...)
	sort.Strings(sortedSeeds)
	for _, seed := range sortedSeeds {
		visit(seed, 0)
	}
	return order
}

func containsRelation(types []Relation, rel Relation) bool {
	for _, t := range types {
		if t == rel {
			return true
		}
	}
	return false
}

func graphHasService(graph *Graph, name string) bool {
	_, ok := graph.GetDepinfo(name)
	return ok
}
