package resolve

import "context"

// ComponentSelector is what a SelectorState hands to an IdResolver: the
// target module identity plus the VersionConstraint that governs it.
// Named as a struct rather than re-using SelectorState itself so the
// external IdResolver never gets a handle on mutable solver-internal state.
type ComponentSelector struct {
	Module     ModuleID
	Constraint VersionConstraint
}

// IdResolveResult is what IdResolver.Resolve returns: either a concrete
// component id, module version id, and metadata, or a Failure. Exactly one
// of {ID set, Failure set} holds (spec.md SS4.3: "if r.failure is not nil:
// return").
type IdResolveResult struct {
	ID       ComponentID
	MVI      ModuleVersionID
	Metadata ComponentMetadata
	Failure  error
}

// IdResolver resolves a declared ComponentSelector to a concrete component
// id. Modeled as an opaque collaborator per spec.md SS1/SS6 - the core
// never itself talks to a repository.
type IdResolver interface {
	Resolve(ctx context.Context, sel ComponentSelector) (IdResolveResult, error)
}

// ComponentMetadata is an opaque bag of whatever an IdResolver/
// MetadataResolver chooses to attach to a component: its declared
// dependencies, its capabilities, and enough for an AttributeMatcher to
// pick configurations. The core only reads the two accessors below; it
// never interprets the metadata's internal shape.
type ComponentMetadata interface {
	// Dependencies lists this component's outgoing edges.
	Dependencies() []EdgeDeclaration
	// Capabilities lists the (group, name) capabilities this component
	// co-provides, for CapabilitiesConflictHandler registration.
	Capabilities() []CapabilityID
}

// MetadataResolver fetches or classifies a component's metadata.
// IsFetchingMetadataCheap lets resolveEdges (spec.md SS4.1 step 2) skip the
// parallel-prefetch machinery for components whose metadata is already in
// hand or trivial to obtain.
type MetadataResolver interface {
	IsFetchingMetadataCheap(id ComponentID) bool
	Resolve(ctx context.Context, id ComponentID) (ComponentMetadata, error)
}

// ResolveContext is whatever a ContextResolver needs to produce the root
// component - for most callers, a project descriptor naming its own
// identity and declared dependencies.
type ResolveContext struct {
	Root         ModuleID
	Version      Version
	Dependencies []EdgeDeclaration
}

// ComponentResolveResult is the outcome of resolving a ResolveContext to a
// concrete root component.
type ComponentResolveResult struct {
	ID       ComponentID
	Metadata ComponentMetadata
}

// ContextResolver resolves the root module's own ResolveContext to a
// ComponentResolveResult, seeding the traversal (spec.md SS2 "the root
// module seeds the queue").
type ContextResolver interface {
	Resolve(ctx context.Context, rc ResolveContext) (ComponentResolveResult, error)
}

// ConfigurationID names one configuration/variant of a component, as
// chosen by an AttributeMatcher.
type ConfigurationID string

// AttributeMatcher picks the configurations attachToTargetConfigurations
// should create NodeStates for (spec.md SS4.1 step 3). Attribute/variant
// matching itself is out of this module's scope (spec.md SS1); the matcher
// is consulted, never re-implemented.
type AttributeMatcher interface {
	MatchConfigurations(meta ComponentMetadata) ([]ConfigurationID, error)
}

// ModuleConflictResolver chooses among conflicting ComponentStates for one
// module (spec.md S4.3.1 step 4, SS4.4). Implementations are pluggable
// strategy objects; the default "highest version wins" strategy lives in
// resolvers.go as HighestVersionResolver.
type ModuleConflictResolver interface {
	Select(candidates []*ComponentState) (*ComponentState, error)
}

// CapabilitiesConflictResolver is the capability-conflict analogue of
// ModuleConflictResolver (spec.md SS4.4).
type CapabilitiesConflictResolver interface {
	Select(candidates []*ComponentState) (*ComponentState, error)
}

// ModuleReplacementsData maps a module id to a replacement module id
// (spec.md SS4.4, SS6). RadixModuleReplacements in radixindex.go is the
// built-in implementation.
type ModuleReplacementsData interface {
	Replacement(m ModuleID) (ModuleID, bool)
}

// EdgeDeclaration is one outgoing dependency declaration on a component or
// the root context: the target module plus its VersionConstraint, prior to
// any DependencySubstitutionApplicator rewrite or EdgeFilter exclusion.
type EdgeDeclaration struct {
	Target     ModuleID
	Constraint VersionConstraint
}

// DependencySubstitutionApplicator rewrites a dependency declaration before
// it is turned into a SelectorState/EdgeState (spec.md SS6).
type DependencySubstitutionApplicator interface {
	Substitute(dep EdgeDeclaration) EdgeDeclaration
}

// EdgeFilter drops edges up front, before they ever become EdgeStates
// (spec.md SS6).
type EdgeFilter interface {
	Exclude(dep EdgeDeclaration) bool
}

// Task is one unit of work submitted to a BuildOperationQueue.
type Task interface {
	Run(ctx context.Context) error
}

// TaskFunc adapts a plain function to Task.
type TaskFunc func(ctx context.Context) error

func (f TaskFunc) Run(ctx context.Context) error { return f(ctx) }

// BuildOperationQueue is the bounded parallel executor used for the
// metadata-prefetch phase of resolveEdges (spec.md SS4.1 step 2, SS6). The
// producer is invoked once to enqueue every task for this batch; RunAll
// blocks until they have all completed or one fails/ctx is canceled.
type BuildOperationQueue interface {
	RunAll(ctx context.Context, produce func(enqueue func(Task))) error
}

// DependencyGraphVisitor is the output sink for assembleResult (spec.md
// SS4.6).
type DependencyGraphVisitor interface {
	Start(root *ComponentState)
	VisitSelector(s *SelectorState)
	VisitNode(n *NodeState)
	VisitEdges(n *NodeState)
	Finish(root *ComponentState)
}
