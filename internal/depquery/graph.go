// Package depquery holds the dependency graph type and the two
// operations built on top of it: filtered transitive closure
// (GetDepends) and runlevel-aware start/stop ordering (OrderServices).
package depquery

import (
	"errors"
	"sort"
)

// Relation is one of the small closed set of dependency verbs a service
// can declare, plus the reverse duals materialized during graph
// construction.
type Relation string

const (
	INeed    Relation = "ineed"
	IUse     Relation = "iuse"
	IWant    Relation = "iwant"
	IAfter   Relation = "iafter"
	IBefore  Relation = "ibefore"
	IProvide Relation = "iprovide"

	NeedsMe  Relation = "needsme"
	UsesMe   Relation = "usesme"
	WantsMe  Relation = "wantsme"
	BeforeMe Relation = "beforeme"
	AfterMe  Relation = "afterme"
)

// forwardRelations are the ones a Parser ever produces directly from a
// script's declared dependencies; the *Me relations are always derived.
var forwardRelations = []Relation{INeed, IUse, IWant, IAfter, IBefore, IProvide}

// Depinfo is one service's full set of declared and derived dependency
// buckets, keyed by relation.
type Depinfo struct {
	Buckets map[Relation][]string
}

// Add appends names to rel's bucket, deduplicating.
func (d *Depinfo) Add(rel Relation, names ...string) {
	if d.Buckets == nil {
		d.Buckets = make(map[Relation][]string)
	}
	existing := d.Buckets[rel]
	seen := make(map[string]bool, len(existing))
	for _, n := range existing {
		seen[n] = true
	}
	for _, n := range names {
		if !seen[n] {
			existing = append(existing, n)
			seen[n] = true
		}
	}
	d.Buckets[rel] = existing
}

// Get returns rel's bucket for d, or nil if empty.
func (d Depinfo) Get(rel Relation) []string {
	return d.Buckets[rel]
}

// Graph is a keyed mapping from canonical service name to that service's
// Depinfo. Cross-references are always by name, never by pointer, so the
// structure serializes trivially and tolerates iprovide rewrites without
// any indirection layer.
type Graph struct {
	Services map[string]Depinfo
}

// NewGraph returns an empty Graph ready for population.
func NewGraph() *Graph {
	return &Graph{Services: make(map[string]Depinfo)}
}

// Set stores info for name, overwriting any prior entry.
func (g *Graph) Set(name string, info Depinfo) {
	g.Services[name] = info
}

// GetDepinfo returns the full Depinfo for name.
func (g *Graph) GetDepinfo(name string) (Depinfo, bool) {
	info, ok := g.Services[name]
	return info, ok
}

// GetDeptype returns name's bucket for a single relation.
func (g *Graph) GetDeptype(name string, rel Relation) []string {
	return g.Services[name].Get(rel)
}

// Names returns every service name in the graph, sorted lexicographically.
func (g *Graph) Names() []string {
	names := make([]string, 0, len(g.Services))
	for n := range g.Services {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ResolveProvides rewrites every occurrence of an iprovide alias across
// the whole graph to the providing service's canonical name. When more
// than one service provides the same alias, the one that is a member of
// activeMembers wins; if none are, the lexicographically first provider
// wins (spec's fixed tie-break for the otherwise-ambiguous case).
func (g *Graph) ResolveProvides(activeMembers map[string]bool) {
	providers := make(map[string][]string) // alias -> providing service names
	for name, info := range g.Services {
		for _, alias := range info.Get(IProvide) {
			providers[alias] = append(providers[alias], name)
		}
	}

	alias2canon := make(map[string]string, len(providers))
	for alias, names := range providers {
		sort.Strings(names)
		canon := names[0]
		for _, n := range names {
			if activeMembers[n] {
				canon = n
				break
			}
		}
		alias2canon[alias] = canon
	}
	if len(alias2canon) == 0 {
		return
	}

	for name, info := range g.Services {
		for _, rel := range forwardRelations {
			if rel == IProvide {
				continue
			}
			bucket := info.Get(rel)
			if len(bucket) == 0 {
				continue
			}
			rewritten := make([]string, len(bucket))
			changed := false
			for i, n := range bucket {
				if canon, ok := alias2canon[n]; ok {
					rewritten[i] = canon
					changed = true
				} else {
					rewritten[i] = n
				}
			}
			if changed {
				info.Buckets[rel] = dedupe(rewritten)
			}
		}
		g.Services[name] = info
	}
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// MaterializeReverse walks every forward edge once and populates the
// needsme/usesme/wantsme/beforeme/afterme buckets, which are always
// derived rather than declared.
func (g *Graph) MaterializeReverse() {
	pairs := []struct {
		fwd Relation
		rev Relation
	}{
		{INeed, NeedsMe},
		{IUse, UsesMe},
		{IWant, WantsMe},
		{IBefore, BeforeMe},
		{IAfter, AfterMe},
	}

	for name, info := range g.Services {
		for _, p := range pairs {
			for _, target := range info.Get(p.fwd) {
				targetInfo := g.Services[target]
				targetInfo.Add(p.rev, name)
				g.Services[target] = targetInfo
			}
		}
	}
}

// ErrDependencyCycle reports an unbreakable ineed cycle found while
// ordering or traversing the graph. Services holds the cycle's members.
type ErrDependencyCycle struct {
	Services []string
}

func (e *ErrDependencyCycle) Error() string {
	return "depquery: dependency cycle in ineed: " + joinComma(e.Services)
}

func joinComma(names []string) string {
	s := ""
	for i, n := range names {
		if i > 0 {
			s += ", "
		}
		s += n
	}
	return s
}

// Is lets callers use errors.Is(err, depquery.ErrCycle) as a cheap
// category check without needing the cycle membership.
var ErrCycle = errors.New("depquery: dependency cycle")

func (e *ErrDependencyCycle) Is(target error) bool {
	return target == ErrCycle
}
