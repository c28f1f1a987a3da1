package depquery

import "sort"

// CycleReporter receives a non-fatal notice when a breakable iuse/iafter
// cycle is found and its weakest edge dropped. May be nil.
type CycleReporter func(broken []string, droppedEdge [2]string)

// OrderServices computes the stop and start sequences for transitioning
// into level, given which services are currently started (startedNow)
// and which are inactive (inactiveNow). It computes to_start/to_stop,
// reverse-topo-sorts to_stop and forward-topo-sorts to_start, and returns
// the two lists separately; the caller runs every stop before any start.
//
// wantLevel is the set of services that should end up started: the
// target runlevel's members plus sysinit/boot plus anything coldplugged.
// When opts.Stop is set, to_stop also picks up every service currently
// inactive (RC_DEP_STOP), since an inactive service must be driven all
// the way to stopped rather than left in limbo by a transition.
func OrderServices(graph *Graph, wantLevel map[string]bool, startedNow map[string]bool, inactiveNow map[string]bool, opts Options, report CycleReporter) (stop, start []string, err error) {
	toStart := setDiff(wantLevel, startedNow)
	toStop := setDiff(startedNow, wantLevel)

	if opts.Stop {
		for name := range inactiveNow {
			if !wantLevel[name] {
				toStop[name] = true
			}
		}
	}

	stop, err = topoSort(graph, toStop, true, report)
	if err != nil {
		return nil, nil, err
	}
	start, err = topoSort(graph, toStart, false, report)
	if err != nil {
		return nil, nil, err
	}
	return stop, start, nil
}

func setDiff(a, b map[string]bool) map[string]bool {
	out := make(map[string]bool)
	for name := range a {
		if !b[name] {
			out[name] = true
		}
	}
	return out
}

// topoSort orders set's members by dependency order. reverse=true sorts
// for a stop: a service that's `ineed`ed or `iuse`d by another is ordered
// after its dependent (it must outlive whoever still needs it). reverse=false
// sorts for a start: `ineed`/`iafter` targets precede their dependents.
func topoSort(graph *Graph, set map[string]bool, reverse bool, report CycleReporter) ([]string, error) {
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)

	visited := make(map[string]bool)
	inStack := make(map[string]bool)
	var order []string

	var visit func(name string, stack []string) error
	visit = func(name string, stack []string) error {
		if inStack[name] {
			return &ErrDependencyCycle{Services: append(append([]string(nil), stack...), name)}
		}
		if visited[name] {
			return nil
		}
		inStack[name] = true
		defer func() { inStack[name] = false }()
		stack = append(stack, name)

		info, _ := graph.GetDepinfo(name)
		hard := dependencyEdges(info, reverse, true)
		soft := dependencyEdges(info, reverse, false)

		for _, dep := range hard {
			if !set[dep] {
				continue
			}
			if err := visit(dep, stack); err != nil {
				return err
			}
		}
		for _, dep := range soft {
			if !set[dep] {
				continue
			}
			if err := visit(dep, stack); err != nil {
				// iuse/iafter cycles are breakable: drop this edge and
				// continue instead of failing the whole ordering.
				var cycleErr *ErrDependencyCycle
				if ok := asCycle(err, &cycleErr); ok {
					if report != nil {
						report(cycleErr.Services, [2]string{name, dep})
					}
					continue
				}
				return err
			}
		}

		visited[name] = true
		order = append(order, name)
		return nil
	}

	for _, name := range names {
		if err := visit(name, nil); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// dependencyEdges returns the relation bucket that constrains ordering
// for the given direction. hard selects ineed (start) / needsme+usesme
// (stop); !hard selects iafter/iuse (start) or the iafter/ibefore duals
// for stop, the breakable edges a cycle may shed.
func dependencyEdges(info Depinfo, reverse, hard bool) []string {
	if !reverse {
		if hard {
			return info.Get(INeed)
		}
		return append(append([]string(nil), info.Get(IAfter)...), info.Get(IUse)...)
	}
	if hard {
		return append(append([]string(nil), info.Get(NeedsMe)...), info.Get(UsesMe)...)
	}
	return append(append([]string(nil), info.Get(AfterMe)...), info.Get(BeforeMe)...)
}

func asCycle(err error, target **ErrDependencyCycle) bool {
	if c, ok := err.(*ErrDependencyCycle); ok {
		*target = c
		return true
	}
	return false
}
