package resolve

import (
	"context"

	"github.com/modgraph/resolve/log"
)

// SolveParameters hold all arguments to a single Resolve call, in the
// shape of golang-dep/solver.go's SolveParameters (golang-dep doc comment:
// "Only RootDir and ImportRoot are absolutely required"). RootContext,
// IdResolver, MetadataResolver, ContextResolver, and AttributeMatcher are
// required; the rest are optional or have defaults.
type SolveParameters struct {
	// RootContext describes the root project being resolved: its own
	// identity and declared dependencies.
	RootContext ResolveContext

	IdResolver       IdResolver
	MetadataResolver MetadataResolver
	ContextResolver  ContextResolver
	AttributeMatcher AttributeMatcher

	// ModuleConflictResolver defaults to HighestVersionResolver{} if nil.
	ModuleConflictResolver ModuleConflictResolver
	// CapabilitiesConflictResolver defaults to HighestVersionResolver{} if nil.
	CapabilitiesConflictResolver CapabilitiesConflictResolver

	// Replacements is optional; nil means no module is ever replaced.
	Replacements ModuleReplacementsData
	// Substitution is optional; nil means no edge is ever rewritten.
	Substitution DependencySubstitutionApplicator
	// EdgeFilter is optional; nil means no edge is ever dropped.
	EdgeFilter EdgeFilter

	// Queue is the external parallel executor for metadata prefetch
	// (spec.md SS4.1 step 2). Defaults to an in-thread, serial
	// implementation if nil - see internal/resolvetest for a fake
	// suitable for deterministic tests (spec.md SS9: "Expose the task
	// pool as an interface so tests can run it in-thread
	// deterministically").
	Queue BuildOperationQueue

	Visitor DependencyGraphVisitor

	// Trace controls whether Resolve writes verbose traversal tracing.
	Trace bool
	// TraceLogger is required if Trace is true.
	TraceLogger *log.Logger
}

// ResolveState is the central registry for one Resolve call: it holds
// every ModuleResolveState encountered so far, the pending-node queue, the
// two conflict handlers, and exposes the broadcast actions
// (deselectVersion, replaceSelectionWithConflictResult) conflict handlers
// invoke directly rather than threading closures through call sites
// (spec.md SS9: "Action broadcast"). Exactly one ResolveState exists per
// Resolve call and is discarded afterward (spec.md SS9: "Global mutable
// state. There is none at the core level").
type ResolveState struct {
	ctx    context.Context
	params SolveParameters

	modules     map[ModuleID]*ModuleResolveState
	moduleOrder []ModuleID

	queue []*NodeState

	root *ComponentState

	moduleConflicts     *ModuleConflictHandler
	capabilityConflicts *CapabilitiesConflictHandler

	selectors []*SelectorState

	idResolver       IdResolver
	metadataResolver MetadataResolver
	attributeMatcher AttributeMatcher
	substitution     DependencySubstitutionApplicator
	edgeFilter       EdgeFilter
	queueImpl        BuildOperationQueue

	log *log.Logger
}

func newResolveState(params SolveParameters) *ResolveState {
	moduleResolver := params.ModuleConflictResolver
	if moduleResolver == nil {
		moduleResolver = HighestVersionResolver{}
	}
	capResolver := params.CapabilitiesConflictResolver
	if capResolver == nil {
		capResolver = HighestVersionResolver{}
	}
	q := params.Queue
	if q == nil {
		q = serialBuildOperationQueue{}
	}

	var lg *log.Logger
	if params.Trace {
		lg = params.TraceLogger
	}

	return &ResolveState{
		params:              params,
		modules:             make(map[ModuleID]*ModuleResolveState),
		moduleConflicts:     NewModuleConflictHandler(moduleResolver, params.Replacements),
		capabilityConflicts: NewCapabilitiesConflictHandler(capResolver),
		idResolver:          params.IdResolver,
		metadataResolver:    params.MetadataResolver,
		attributeMatcher:    params.AttributeMatcher,
		substitution:        params.Substitution,
		edgeFilter:          params.EdgeFilter,
		queueImpl:           q,
		log:                 lg,
	}
}

func (rs *ResolveState) trace(format string, args ...interface{}) {
	if rs.log != nil {
		rs.log.LogResolvefln(format, args...)
	}
}

// Root returns the root component (spec.md SS4.1 getRoot()).
func (rs *ResolveState) Root() *ComponentState { return rs.root }

// Modules returns every ModuleResolveState created so far, in first-seen
// order (spec.md SS4.1 getModules()).
func (rs *ResolveState) Modules() []*ModuleResolveState {
	out := make([]*ModuleResolveState, 0, len(rs.moduleOrder))
	for _, id := range rs.moduleOrder {
		out = append(out, rs.modules[id])
	}
	return out
}

// moduleState returns (creating if necessary) the ModuleResolveState for
// id (spec.md SS3: "Created on first reference; never destroyed").
func (rs *ResolveState) moduleState(id ModuleID) *ModuleResolveState {
	m, ok := rs.modules[id]
	if !ok {
		m = newModuleResolveState(id)
		rs.modules[id] = m
		rs.moduleOrder = append(rs.moduleOrder, id)
	}
	return m
}

// GetRevision interns a ComponentState for (id, mvi), pre-seeding its
// metadata from meta when provided (spec.md SS4.1 getRevision()).
func (rs *ResolveState) GetRevision(id ComponentID, mvi ModuleVersionID, meta ComponentMetadata) *ComponentState {
	cs := rs.moduleState(mvi.Module).intern(id, mvi)
	cs.presetMetadata(meta)
	return cs
}

// Peek returns the next pending node without removing it from the queue.
func (rs *ResolveState) Peek() (*NodeState, bool) {
	if len(rs.queue) == 0 {
		return nil, false
	}
	return rs.queue[0], true
}

// Pop removes and returns the next pending node.
func (rs *ResolveState) Pop() (*NodeState, bool) {
	if len(rs.queue) == 0 {
		return nil, false
	}
	n := rs.queue[0]
	rs.queue = rs.queue[1:]
	n.queued = false
	return n, true
}

// OnMoreSelected enqueues n for traversal, unless it is already pending
// (spec.md SS4.1 onMoreSelected()).
func (rs *ResolveState) OnMoreSelected(n *NodeState) {
	if n.queued {
		return
	}
	n.queued = true
	rs.queue = append(rs.queue, n)
}

func (rs *ResolveState) resolveMetadata(cs *ComponentState) (ComponentMetadata, error) {
	return rs.resolveMetadataCtx(rs.ctx, cs)
}

// resolveMetadataCtx is the ctx-aware variant used by the parallel
// prefetch phase of resolveEdges (spec.md SS4.1 step 2), where each task
// runs against the context RunAll hands it rather than rs.ctx directly.
// Because ComponentState.metadata memoizes via sync.Once, only the first
// caller's ctx is ever actually used for a given component.
func (rs *ResolveState) resolveMetadataCtx(ctx context.Context, cs *ComponentState) (ComponentMetadata, error) {
	meta, err := cs.metadata(rs.metadataResolver, func() (ComponentMetadata, error) {
		return rs.metadataResolver.Resolve(ctx, cs.id)
	})
	if err != nil {
		return nil, &MetadataResolveFailure{Component: cs.id, Cause: err}
	}
	return meta, nil
}

// registerCapabilities registers every capability n's component declares
// with the capability conflict handler, deselecting every module
// participating in any conflict that registration produces (spec.md
// SS4.4). Called once per dequeued node, mirroring registerModuleConflict's
// role for module-identity conflicts.
func (rs *ResolveState) registerCapabilities(n *NodeState) {
	for _, pc := range rs.capabilityConflicts.registerCapabilities(n.Component(), rs.modules) {
		if pc.ConflictExists() {
			pc.WithParticipatingModules(rs.deselectVersion)
		}
	}
}

// bootstrapRoot resolves the root ResolveContext to a concrete component,
// selects it, and enqueues its matched configurations, seeding the
// traversal queue (spec.md SS2: "the root module seeds the queue").
func (rs *ResolveState) bootstrapRoot() error {
	res, err := rs.params.ContextResolver.Resolve(rs.ctx, rs.params.RootContext)
	if err != nil {
		return wrapf(err, "resolving root context")
	}

	rootModule := rs.moduleState(rs.params.RootContext.Root)
	rootCS := rootModule.intern(res.ID, ModuleVersionID{Module: rs.params.RootContext.Root, Version: rs.params.RootContext.Version})
	rootCS.root = true
	rootCS.presetMetadata(res.Metadata)
	rootModule.select_(rootCS)
	rs.root = rootCS

	meta, err := rs.resolveMetadata(rootCS)
	if err != nil {
		return err
	}
	configs, err := rs.attributeMatcher.MatchConfigurations(meta)
	if err != nil {
		return wrapf(err, "matching root configurations")
	}
	for _, cfg := range configs {
		node, _ := rootCS.nodeFor(cfg)
		node.selected = true
		rs.OnMoreSelected(node)
	}
	return nil
}

func (rs *ResolveState) applySubstitution(decl EdgeDeclaration) EdgeDeclaration {
	if rs.substitution == nil {
		return decl
	}
	return rs.substitution.Substitute(decl)
}

func (rs *ResolveState) shouldExclude(decl EdgeDeclaration) bool {
	if rs.edgeFilter == nil {
		return false
	}
	return rs.edgeFilter.Exclude(decl)
}

// DeselectVersionAction returns the broadcast action used both directly by
// performSelection (spec.md S4.3: "deselectVersionAction(module.id)") and
// as the deselect callback handed to a PotentialConflict's
// WithParticipatingModules.
func (rs *ResolveState) DeselectVersionAction() func(ModuleID) {
	return rs.deselectVersion
}

func (rs *ResolveState) deselectVersion(m ModuleID) {
	mod := rs.moduleState(m)
	cs := mod.selected
	if cs == nil {
		return
	}
	mod.deselect()
	for _, n := range cs.Nodes() {
		n.selected = false
		for _, e := range n.outgoing {
			e.detach()
		}
	}
}

// ReplaceSelectionWithConflictResultAction returns the broadcast action a
// conflict handler's resolveNextConflict invokes for every participant
// (spec.md SS4.4: "re-selects and re-enqueues affected nodes").
func (rs *ResolveState) ReplaceSelectionWithConflictResultAction() func(ModuleID, *ComponentState) {
	return rs.replaceSelectionWithConflictResult
}

func (rs *ResolveState) replaceSelectionWithConflictResult(m ModuleID, chosen *ComponentState) {
	mod := rs.moduleState(m)
	mod.restart(chosen)
	rs.redirectOtherSelectors(mod, nil, chosen)
	for _, n := range chosen.Nodes() {
		n.selected = true
		rs.OnMoreSelected(n)
	}
}

// redirectOtherSelectors re-points every selector on module, other than
// except, to candidate, and re-enqueues each redirected selector's edge's
// source node. A selector whose edge is re-visited finds
// selector.selected already set to candidate and takes performSelection's
// fast path (spec.md S4.3: "if selector.selected is not null: dep.start
// (...); return"), which is what actually rebinds that consumer's edge to
// the new candidate - restart/replaceAction only update the module's and
// selectors' own bookkeeping, not edges belonging to other consumers.
func (rs *ResolveState) redirectOtherSelectors(module *ModuleResolveState, except *SelectorState, candidate *ComponentState) {
	for _, sel := range module.Selectors() {
		if sel == except {
			continue
		}
		sel.select_(candidate)
		if sel.edge != nil {
			rs.OnMoreSelected(sel.edge.Source())
		}
	}
}

// serialBuildOperationQueue runs every submitted task in-thread,
// sequentially, as the default BuildOperationQueue when a caller doesn't
// supply a real parallel executor.
type serialBuildOperationQueue struct{}

func (serialBuildOperationQueue) RunAll(ctx context.Context, produce func(enqueue func(Task))) error {
	var tasks []Task
	produce(func(t Task) { tasks = append(tasks, t) })
	for _, t := range tasks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := t.Run(ctx); err != nil {
			return err
		}
	}
	return nil
}
