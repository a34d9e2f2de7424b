package resolve

import "context"

// SelectorState is one declared selector: an edge's VersionConstraint
// against its target module (spec.md SS3, GLOSSARY "Selector"). It caches
// its own resolution result and chosen component explicitly, rather than
// relying on a nil check at call sites, per spec.md SS9's "already
// started" design note.
type SelectorState struct {
	module     ModuleID
	constraint VersionConstraint

	resolved bool
	result   IdResolveResult

	selected *ComponentState

	// edge is the one EdgeState this selector was created for (each
	// declared dependency gets its own SelectorState, so this is a 1:1
	// back-reference, not a list). It lets conflict resolution re-enqueue
	// the edge's source node after redirecting the selector to a new
	// component, so performSelection's "selector.selected is not null"
	// fast path (spec.md S4.3) rebinds the edge on its next visit.
	edge *EdgeState
}

func newSelectorState(module ModuleID, constraint VersionConstraint) *SelectorState {
	return &SelectorState{module: module, constraint: constraint}
}

// bindEdge records e as the one edge this selector governs. Called once,
// immediately after the edge is constructed.
func (s *SelectorState) bindEdge(e *EdgeState) { s.edge = e }

// TargetModule returns the module this selector constrains.
func (s *SelectorState) TargetModule() ModuleID { return s.module }

// Constraint returns the selector's VersionConstraint.
func (s *SelectorState) Constraint() VersionConstraint { return s.constraint }

// Selected returns the component this selector currently resolves to, or
// nil if it hasn't been resolved (or resolution failed).
func (s *SelectorState) Selected() *ComponentState { return s.selected }

// resolve runs the id-level resolution for this selector via r, caching
// the result so re-entry into performSelection for the same selector is a
// no-op lookup (spec.md SS4.3: "if selector.selected is not null: ...
// return" is the caller-side half of this; resolve itself caches the
// IdResolveResult so a selector is never asked twice).
func (s *SelectorState) resolve(ctx context.Context, r IdResolver) (IdResolveResult, error) {
	if s.resolved {
		return s.result, nil
	}
	res, err := r.Resolve(ctx, ComponentSelector{Module: s.module, Constraint: s.constraint})
	if err != nil {
		return IdResolveResult{}, wrapf(err, "resolving %s", s.module)
	}
	s.result = res
	s.resolved = true
	return res, nil
}

// select records cs as this selector's chosen component, maintaining
// ComponentState.selectedBy on both the old and new target (spec.md SS3
// invariant: "selectedBy(component) always equals the set of selectors
// currently pointing to it").
func (s *SelectorState) select_(cs *ComponentState) {
	if s.selected == cs {
		return
	}
	if s.selected != nil {
		s.selected.removeSelectedBy(s)
	}
	s.selected = cs
	if cs != nil {
		cs.addSelectedBy(s)
	}
}

// SelectorStateResolverResults is the per-module cache of SS4.2: a mapping
// from each SelectorState targeting a module to its resolved
// IdResolveResult, with the short-circuit reuse rule.
type SelectorStateResolverResults struct {
	results map[*SelectorState]IdResolveResult
}

func newSelectorStateResolverResults() *SelectorStateResolverResults {
	return &SelectorStateResolverResults{results: make(map[*SelectorState]IdResolveResult)}
}

// alreadyHaveResolution implements spec.md SS4.2's short-circuit rule: scan
// existing successful results; if dep's own preferred selector accepts an
// already-resolved version and dep is short-circuit-able, record that same
// result for dep and report true so the caller skips a fresh id
// resolution.
//
// This deliberately consults dep.constraint.Preferred directly rather than
// the permissive VersionConstraint.acceptsPreferred/canShortCircuit used by
// chooseBest's agreement checks (which treat "no preferred selector" as
// agreeing with anything): an unconstrained dependency has no preferred
// selector to ask "does this version satisfy you", so it is never eligible
// to reuse a sibling's cached resolution - it must always consult the
// external resolver itself, which is what lets an unconstrained selector
// see (and potentially win a conflict against) every candidate version
// rather than silently inheriting whichever one happened to resolve first.
func (c *SelectorStateResolverResults) alreadyHaveResolution(dep *SelectorState) (IdResolveResult, bool) {
	pref := dep.constraint.Preferred
	if pref == nil || !pref.CanShortCircuitWhenVersionAlreadyPreselected() {
		return IdResolveResult{}, false
	}
	for _, res := range c.results {
		if res.Failure != nil {
			continue
		}
		if pref.Accepts(res.MVI.Version) {
			c.results[dep] = res
			dep.resolved = true
			dep.result = res
			return res, true
		}
	}
	return IdResolveResult{}, false
}

// registerResolution stores result for dep, then - if it succeeded -
// propagates it to any previously cached selector whose own preferred
// selector would also accept this version, per spec.md SS4.2: "This
// propagates a newer compatible result to older selectors." Same
// has-a-real-preferred-selector gate as alreadyHaveResolution.
func (c *SelectorStateResolverResults) registerResolution(dep *SelectorState, result IdResolveResult) {
	c.results[dep] = result
	if result.Failure != nil {
		return
	}
	for other := range c.results {
		if other == dep {
			continue
		}
		pref := other.constraint.Preferred
		if pref == nil || !pref.CanShortCircuitWhenVersionAlreadyPreselected() {
			continue
		}
		if pref.Accepts(result.MVI.Version) {
			c.results[other] = result
			other.resolved = true
			other.result = result
		}
	}
}

// getResolved folds every cached result into the set of distinct
// components the module's selectors collectively resolve to (spec.md
// SS4.2). factory interns a ComponentState for a successful result (via
// ResolveState.GetRevision). A force selector short-circuits to just its
// own component; any recorded failure propagates verbatim.
func (c *SelectorStateResolverResults) getResolved(factory func(IdResolveResult) *ComponentState) ([]*ComponentState, error) {
	for sel, res := range c.results {
		if sel.constraint.Force {
			if res.Failure != nil {
				return nil, res.Failure
			}
			return []*ComponentState{factory(res)}, nil
		}
	}

	seen := make(map[ComponentID]*ComponentState)
	var order []ComponentID
	for _, res := range c.results {
		if res.Failure != nil {
			return nil, res.Failure
		}
		cs := factory(res)
		if _, ok := seen[cs.id]; !ok {
			seen[cs.id] = cs
			order = append(order, cs.id)
		}
	}
	out := make([]*ComponentState, 0, len(order))
	for _, id := range order {
		out = append(out, seen[id])
	}
	return out, nil
}
