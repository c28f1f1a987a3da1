package depquery

import (
	"errors"
	"reflect"
	"testing"
)

func buildGraph(t *testing.T, decl map[string]map[Relation][]string) *Graph {
	t.Helper()
	g := NewGraph()
	for name, buckets := range decl {
		info := Depinfo{}
		for rel, names := range buckets {
			info.Add(rel, names...)
		}
		g.Set(name, info)
	}
	g.MaterializeReverse()
	return g
}

func indexOf(order []string, name string) int {
	for i, n := range order {
		if n == name {
			return i
		}
	}
	return -1
}

// S1: B ineed A, C iuse B, all starting. Expect [A, B, C].
func TestOrderServicesStartRespectsNeedAndUse(t *testing.T) {
	g := buildGraph(t, map[string]map[Relation][]string{
		"A": {},
		"B": {INeed: {"A"}},
		"C": {IUse: {"B"}},
	})
	want := map[string]bool{"A": true, "B": true, "C": true}
	_, start, err := OrderServices(g, want, map[string]bool{}, nil, Options{Start: true}, nil)
	if err != nil {
		t.Fatalf("OrderServices: %v", err)
	}
	if indexOf(start, "A") > indexOf(start, "B") || indexOf(start, "B") > indexOf(start, "C") {
		t.Fatalf("expected order A, B, C; got %v", start)
	}
}

// S3: W ineed X, X ineed W -> fatal cycle.
func TestOrderServicesFatalCycle(t *testing.T) {
	g := buildGraph(t, map[string]map[Relation][]string{
		"W": {INeed: {"X"}},
		"X": {INeed: {"W"}},
	})
	want := map[string]bool{"W": true, "X": true}
	_, _, err := OrderServices(g, want, map[string]bool{}, nil, Options{Start: true}, nil)
	var cycleErr *ErrDependencyCycle
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected ErrDependencyCycle, got %v", err)
	}
	if !errors.Is(err, ErrCycle) {
		t.Fatal("expected errors.Is(err, ErrCycle) to hold")
	}
}

// A breakable iuse cycle should not fail ordering; it reports instead.
func TestOrderServicesBreakableCycleReported(t *testing.T) {
	g := buildGraph(t, map[string]map[Relation][]string{
		"M": {IUse: {"N"}},
		"N": {IUse: {"M"}},
	})
	want := map[string]bool{"M": true, "N": true}

	var reported bool
	_, start, err := OrderServices(g, want, map[string]bool{}, nil, Options{Start: true}, func(broken []string, edge [2]string) {
		reported = true
	})
	if err != nil {
		t.Fatalf("expected breakable cycle not to fail ordering: %v", err)
	}
	if !reported {
		t.Fatal("expected CycleReporter to be invoked")
	}
	if len(start) != 2 {
		t.Fatalf("expected both services ordered despite the cycle, got %v", start)
	}
}

// S6: P1, P2 both iprovide net; P1 active, P2 not. ineed net resolves to P1.
func TestResolveProvidesTieBreaksOnActiveMembership(t *testing.T) {
	g := buildGraph(t, map[string]map[Relation][]string{
		"P1":      {IProvide: {"net"}},
		"P2":      {IProvide: {"net"}},
		"consumer": {INeed: {"net"}},
	})
	g.ResolveProvides(map[string]bool{"P1": true})

	info, ok := g.GetDepinfo("consumer")
	if !ok {
		t.Fatal("expected consumer in graph")
	}
	need := info.Get(INeed)
	if len(need) != 1 || need[0] != "P1" {
		t.Fatalf("expected ineed to resolve to P1, got %v", need)
	}
}

func TestResolveProvidesLexicographicFallback(t *testing.T) {
	g := buildGraph(t, map[string]map[Relation][]string{
		"zeta":    {IProvide: {"net"}},
		"alpha":   {IProvide: {"net"}},
		"consumer": {INeed: {"net"}},
	})
	g.ResolveProvides(map[string]bool{}) // nobody active

	info, _ := g.GetDepinfo("consumer")
	need := info.Get(INeed)
	if len(need) != 1 || need[0] != "alpha" {
		t.Fatalf("expected lexicographic fallback to alpha, got %v", need)
	}
}

func TestGetDependsDirectVsTransitive(t *testing.T) {
	g := buildGraph(t, map[string]map[Relation][]string{
		"A": {},
		"B": {INeed: {"A"}},
		"C": {INeed: {"B"}},
	})
	members := map[string]bool{"A": true, "B": true, "C": true}

	direct := GetDepends(g, []Relation{INeed}, []string{"C"}, members, Options{})
	if !reflect.DeepEqual(direct, []string{"B"}) {
		t.Fatalf("expected direct neighbors [B], got %v", direct)
	}

	trace := GetDepends(g, []Relation{INeed}, []string{"C"}, members, Options{Trace: true})
	if len(trace) != 2 {
		t.Fatalf("expected transitive closure of size 2, got %v", trace)
	}
}

func TestOrderServicesStopIsReverseOfNeed(t *testing.T) {
	g := buildGraph(t, map[string]map[Relation][]string{
		"A": {},
		"B": {INeed: {"A"}},
	})
	started := map[string]bool{"A": true, "B": true}
	stop, _, err := OrderServices(g, map[string]bool{}, started, nil, Options{Stop: true}, nil)
	if err != nil {
		t.Fatalf("OrderServices: %v", err)
	}
	if indexOf(stop, "B") > indexOf(stop, "A") {
		t.Fatalf("expected B to stop before A, got %v", stop)
	}
}

// RC_DEP_STOP: a service that's inactive (neither started nor wanted)
// must still appear in to_stop so it's driven to stopped, not left alone.
func TestOrderServicesStopIncludesInactiveSet(t *testing.T) {
	g := buildGraph(t, map[string]map[Relation][]string{
		"A": {},
		"B": {},
	})
	started := map[string]bool{"A": true}
	inactive := map[string]bool{"B": true}
	stop, _, err := OrderServices(g, map[string]bool{}, started, inactive, Options{Stop: true}, nil)
	if err != nil {
		t.Fatalf("OrderServices: %v", err)
	}
	if indexOf(stop, "A") == -1 {
		t.Fatalf("expected A (started, not wanted) in to_stop, got %v", stop)
	}
	if indexOf(stop, "B") == -1 {
		t.Fatalf("expected B (inactive) in to_stop, got %v", stop)
	}
}

// Without Options.Stop set, the inactive set must not leak into to_stop.
func TestOrderServicesStopOmitsInactiveWhenStopFlagUnset(t *testing.T) {
	g := buildGraph(t, map[string]map[Relation][]string{
		"B": {},
	})
	inactive := map[string]bool{"B": true}
	stop, _, err := OrderServices(g, map[string]bool{}, map[string]bool{}, inactive, Options{Start: true}, nil)
	if err != nil {
		t.Fatalf("OrderServices: %v", err)
	}
	if len(stop) != 0 {
		t.Fatalf("expected no stop set without Options.Stop, got %v", stop)
	}
}
