package resolve

// ModuleResolveState is the per-(group,name) registry entry: the set of
// known component versions, the selectors currently targeting this module,
// and the currently selected component, if any (spec.md SS3).
//
// Mirrors the role golang-dep/gps's per-ProjectIdentifier bookkeeping plays
// inside its solver, but the selection rule here is spec.md's incremental
// "replace current with a better candidate" rule (SS4.3) rather than
// golang-dep's backtracking CDCL search.
type ModuleResolveState struct {
	id ModuleID

	// versions holds every ComponentState ever interned for this module,
	// keyed by component id so getRevision can intern idempotently.
	versions map[ComponentID]*ComponentState
	// order preserves first-seen order for deterministic iteration
	// (golang-dep's ordered-set-of-versions habit; needed so chooseBest's
	// "all agree" scan and conflict registration are deterministic run to
	// run, satisfying spec.md SS8's idempotence property).
	order []ComponentID

	selectors map[*SelectorState]struct{}

	selected *ComponentState

	// forced is set once any selector with VersionConstraint.Force wins
	// this module (spec.md SS4.2: "if any selector carries the force
	// flag, short-circuit"). Once set it never clears: every later
	// selector performSelection processes for this module simply agrees
	// with the forced pick rather than running chooseBest against it.
	forced bool

	// unattached holds EdgeStates declared against this module before any
	// component has been selected for it, or left dangling by a restart
	// (spec.md SS3 table: "list of unattached edges").
	unattached []*EdgeState

	// results is this module's SelectorStateResolverResults cache
	// (spec.md SS4.2).
	results *SelectorStateResolverResults
}

func newModuleResolveState(id ModuleID) *ModuleResolveState {
	return &ModuleResolveState{
		id:        id,
		versions:  make(map[ComponentID]*ComponentState),
		selectors: make(map[*SelectorState]struct{}),
		results:   newSelectorStateResolverResults(),
	}
}

// ID returns the module's (group, name) identity.
func (m *ModuleResolveState) ID() ModuleID { return m.id }

// Selected returns the module's currently selected component, or nil if
// none has been chosen yet.
func (m *ModuleResolveState) Selected() *ComponentState { return m.selected }

// Versions returns every ComponentState interned for this module, in
// first-seen order.
func (m *ModuleResolveState) Versions() []*ComponentState {
	out := make([]*ComponentState, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.versions[id])
	}
	return out
}

// Selectors returns every SelectorState currently targeting this module.
func (m *ModuleResolveState) Selectors() []*SelectorState {
	out := make([]*SelectorState, 0, len(m.selectors))
	for s := range m.selectors {
		out = append(out, s)
	}
	return out
}

func (m *ModuleResolveState) addSelector(s *SelectorState) {
	m.selectors[s] = struct{}{}
}

func (m *ModuleResolveState) removeSelector(s *SelectorState) {
	delete(m.selectors, s)
}

// intern returns the ComponentState for id, creating it on first reference
// (spec.md SS3: "Created on first candidate selection").
func (m *ModuleResolveState) intern(id ComponentID, mvi ModuleVersionID) *ComponentState {
	if cs, ok := m.versions[id]; ok {
		return cs
	}
	cs := newComponentState(id, mvi, m)
	m.versions[id] = cs
	m.order = append(m.order, id)
	return cs
}

// select sets the module's current selection (spec.md SS3 invariant: "at
// most one selected component at any time").
func (m *ModuleResolveState) select_(cs *ComponentState) {
	if m.selected != nil {
		m.selected.selected = false
	}
	m.selected = cs
	cs.selected = true
}

// deselect clears the module's current selection without choosing a
// replacement (used by conflict registration's deselectAction, spec.md
// SS4.4).
func (m *ModuleResolveState) deselect() {
	if m.selected != nil {
		m.selected.selected = false
	}
	m.selected = nil
}

// restart deselects the current pick and selects candidate in its place,
// per performSelection's "reset module and restart" branch (spec.md SS4.3).
func (m *ModuleResolveState) restart(candidate *ComponentState) {
	m.deselect()
	m.select_(candidate)
}

// hasConflicts reports whether this module currently has a pending,
// unresolved conflict registered against it (spec.md SS4.3: "if not
// moduleHasConflicts(module)").
func (m *ModuleResolveState) hasConflicts(h *ModuleConflictHandler) bool {
	return h.hasPending(m.id)
}
