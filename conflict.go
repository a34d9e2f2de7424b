package resolve

import "sort"

// PotentialConflict is the result of registering a candidate with a
// conflictQueue (spec.md SS4.4). ConflictExists reports whether more than
// one module is now competing for the same conflict-group key; when it
// does, WithParticipatingModules deselects every module's current pick so
// their subtrees get pruned while the conflict sits in the queue awaiting
// resolveNextConflict.
type PotentialConflict struct {
	participants []ModuleID
	exists       bool
}

// ConflictExists reports whether this registration produced a live
// conflict (more than one module competing for the same group key).
func (p PotentialConflict) ConflictExists() bool { return p.exists }

// WithParticipatingModules invokes deselect for every module sharing this
// conflict's group key.
func (p PotentialConflict) WithParticipatingModules(deselect func(ModuleID)) {
	for _, m := range p.participants {
		deselect(m)
	}
}

// conflictGroup is one batched, not-yet-resolved conflict: the set of
// modules competing for a single conflict-group key (a canonical module
// identity for ModuleConflictHandler, a capability coordinate for
// CapabilitiesConflictHandler), each with the candidate component it
// currently wants to contribute.
type conflictGroup struct {
	participants map[ModuleID]*ComponentState
	order        []ModuleID
	queued       bool
}

// conflictQueue is the batching machinery shared by ModuleConflictHandler
// and CapabilitiesConflictHandler (SPEC_FULL.md SS4.4: "share a small
// generic conflictQueue[K] helper since their batching/draining shape is
// identical"); only the group-key type and the pluggable resolver differ
// between the two handlers.
type conflictQueue[K comparable] struct {
	groups  map[K]*conflictGroup
	pending []K

	// pendingModules is the reverse index used by ModuleResolveState's
	// hasConflicts (spec.md S4.3: "if not moduleHasConflicts(module)").
	pendingModules map[ModuleID]struct{}
}

func newConflictQueue[K comparable]() *conflictQueue[K] {
	return &conflictQueue[K]{
		groups:         make(map[K]*conflictGroup),
		pendingModules: make(map[ModuleID]struct{}),
	}
}

func (q *conflictQueue[K]) registerCandidate(key K, module ModuleID, cs *ComponentState) PotentialConflict {
	g, ok := q.groups[key]
	if !ok {
		g = &conflictGroup{participants: make(map[ModuleID]*ComponentState)}
		q.groups[key] = g
	}
	if _, already := g.participants[module]; !already {
		g.order = append(g.order, module)
	}
	g.participants[module] = cs

	exists := len(g.participants) > 1
	if exists && !g.queued {
		q.pending = append(q.pending, key)
		g.queued = true
		for _, m := range g.order {
			q.pendingModules[m] = struct{}{}
		}
	}

	participants := append([]ModuleID(nil), g.order...)
	sort.Slice(participants, func(i, j int) bool { return participants[i].less(participants[j]) })
	return PotentialConflict{participants: participants, exists: exists}
}

func (q *conflictQueue[K]) hasPendingModule(m ModuleID) bool {
	_, ok := q.pendingModules[m]
	return ok
}

func (q *conflictQueue[K]) len() int { return len(q.pending) }

// resolveNext pops the oldest pending group, asks resolverFn to choose
// among its candidates, and invokes replaceAction for every participating
// module with the chosen component (spec.md SS4.4: "calls
// replaceAction(module, chosenComponent) for each participant").
func (q *conflictQueue[K]) resolveNext(
	resolverFn func([]*ComponentState) (*ComponentState, error),
	replaceAction func(module ModuleID, chosen *ComponentState),
) error {
	if len(q.pending) == 0 {
		return nil
	}
	key := q.pending[0]
	q.pending = q.pending[1:]

	g := q.groups[key]
	g.queued = false

	candidates := make([]*ComponentState, 0, len(g.order))
	for _, m := range g.order {
		candidates = append(candidates, g.participants[m])
	}

	chosen, err := resolverFn(candidates)
	if err != nil {
		return err
	}

	for _, m := range g.order {
		delete(q.pendingModules, m)
		replaceAction(m, chosen)
	}
	delete(q.groups, key)
	return nil
}

// ModuleConflictHandler batches module-identity conflicts, including those
// induced by ModuleReplacementsData (spec.md SS4.4: "Module conflicts
// additionally cover module replacements ... registration consults the
// replacement map").
type ModuleConflictHandler struct {
	replacements ModuleReplacementsData
	resolver     ModuleConflictResolver
	queue        *conflictQueue[ModuleID]
}

// NewModuleConflictHandler builds a handler using resolver to arbitrate
// conflicts and replacements to map a module to its canonical replacement
// identity (may be nil, meaning no replacements are configured).
func NewModuleConflictHandler(resolver ModuleConflictResolver, replacements ModuleReplacementsData) *ModuleConflictHandler {
	return &ModuleConflictHandler{replacements: replacements, resolver: resolver, queue: newConflictQueue[ModuleID]()}
}

func (h *ModuleConflictHandler) canonical(m ModuleID) ModuleID {
	if h.replacements == nil {
		return m
	}
	if r, ok := h.replacements.Replacement(m); ok {
		return r
	}
	return m
}

// registerCandidate registers cs as module cs.Module()'s current pick
// (spec.md SS4.4).
func (h *ModuleConflictHandler) registerCandidate(cs *ComponentState) PotentialConflict {
	m := cs.Module().ID()
	return h.queue.registerCandidate(h.canonical(m), m, cs)
}

func (h *ModuleConflictHandler) hasPending(m ModuleID) bool {
	return h.queue.hasPendingModule(m)
}

func (h *ModuleConflictHandler) len() int { return h.queue.len() }

// Select defers directly to the pluggable ModuleConflictResolver, used by
// chooseBest's step 4 (spec.md S4.3.1) outside of the batched conflict
// queue.
func (h *ModuleConflictHandler) Select(candidates []*ComponentState) (*ComponentState, error) {
	return h.resolver.Select(candidates)
}

// resolveNextConflict pops one conflict and applies replaceAction to every
// participant (spec.md SS4.4).
func (h *ModuleConflictHandler) resolveNextConflict(replaceAction func(ModuleID, *ComponentState)) error {
	return h.queue.resolveNext(h.resolver.Select, replaceAction)
}

// CapabilitiesConflictHandler batches capability-coordinate conflicts
// (spec.md SS4.4).
type CapabilitiesConflictHandler struct {
	resolver CapabilitiesConflictResolver
	queue    *conflictQueue[CapabilityID]
}

// NewCapabilitiesConflictHandler builds a handler using resolver to
// arbitrate capability conflicts.
func NewCapabilitiesConflictHandler(resolver CapabilitiesConflictResolver) *CapabilitiesConflictHandler {
	return &CapabilitiesConflictHandler{resolver: resolver, queue: newConflictQueue[CapabilityID]()}
}

// registerCapabilities registers every capability cs declares, pre-seeding
// each capability's provider list from modules (spec.md SS4.4).
func (h *CapabilitiesConflictHandler) registerCapabilities(cs *ComponentState, modules map[ModuleID]*ModuleResolveState) []PotentialConflict {
	meta, err := cs.metaSnapshot()
	if err != nil || meta == nil {
		return nil
	}

	var out []PotentialConflict
	for _, cap := range meta.Capabilities() {
		if provider, ok := modules[cap.asModuleID()]; ok && provider.selected != nil && provider.id != cs.Module().ID() {
			h.queue.registerCandidate(cap, provider.id, provider.selected)
		}
		out = append(out, h.queue.registerCandidate(cap, cs.Module().ID(), cs))
	}
	return out
}

func (h *CapabilitiesConflictHandler) len() int { return h.queue.len() }

func (h *CapabilitiesConflictHandler) resolveNextConflict(replaceAction func(ModuleID, *ComponentState)) error {
	return h.queue.resolveNext(h.resolver.Select, replaceAction)
}
