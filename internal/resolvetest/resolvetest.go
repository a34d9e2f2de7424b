// Package resolvetest provides in-memory fakes for the resolve package's
// IdResolver, MetadataResolver, ContextResolver, AttributeMatcher,
// BuildOperationQueue, and DependencyGraphVisitor interfaces (conflict
// resolvers, replacements, substitution, and edge filters have no fake
// here), plus the small mk*-prefixed builders
// golang-dep's bestiary_test.go uses to keep fixture tables readable. It
// exists so resolve's own _test.go files can build deterministic, in-thread
// fixtures without a real repository, network, or metadata store behind
// them.
package resolvetest

import (
	"context"
	"fmt"

	"github.com/modgraph/resolve"
)

// Decl is one outgoing dependency declaration in a fixture's depspec, shaped
// like golang-dep's ProjectDep: a target module name plus a constraint body
// string.
type Decl struct {
	Module string
	Range  string // semver range body; empty means "accept anything"
	Force  bool
	Strict bool
}

// Depspec is one fixture component: a (name, version) pair, its outgoing
// dependencies, and the capabilities it provides. Mirrors the shape of
// golang-dep's depspec fixture rows in bestiary_test.go.
type Depspec struct {
	Name    string
	Version string
	Deps    []Decl
	Caps    []string
}

// ID returns the ModuleID this depspec's Name denotes.
func (d Depspec) ID() resolve.ModuleID { return MkID(d.Name) }

// MkID builds a ModuleID from a "group/name" or bare "name" string,
// following golang-dep bestiary_test.go's nsvSplit/mksvpa naming habit of
// terse mk-prefixed fixture builders.
func MkID(name string) resolve.ModuleID {
	for i := 0; i < len(name); i++ {
		if name[i] == '/' {
			return resolve.ModuleID{Group: name[:i], Name: name[i+1:]}
		}
	}
	return resolve.ModuleID{Group: "fixture", Name: name}
}

// MkConstraint builds a VersionConstraint from a semver range body; an empty
// body means "accept anything".
func MkConstraint(rangeBody string, force, strict bool) resolve.VersionConstraint {
	var c resolve.VersionConstraint
	if rangeBody != "" {
		c.Preferred = resolve.NewSemverRangeSelector(rangeBody)
	}
	c.Force = force
	c.Strictly = strict
	return c
}

func (d Decl) toEdgeDeclaration() resolve.EdgeDeclaration {
	return resolve.EdgeDeclaration{
		Target:     MkID(d.Module),
		Constraint: MkConstraint(d.Range, d.Force, d.Strict),
	}
}

// meta is the resolvetest ComponentMetadata: a fixed list of dependency
// declarations and capabilities attached to one Depspec.
type meta struct {
	deps []resolve.EdgeDeclaration
	caps []resolve.CapabilityID
}

func (m meta) Dependencies() []resolve.EdgeDeclaration { return m.deps }
func (m meta) Capabilities() []resolve.CapabilityID    { return m.caps }

func newMeta(d Depspec) meta {
	m := meta{}
	for _, dep := range d.Deps {
		m.deps = append(m.deps, dep.toEdgeDeclaration())
	}
	for _, c := range d.Caps {
		m.caps = append(m.caps, resolve.CapabilityID{Group: d.Name, Name: c})
	}
	return m
}

// Universe is an in-memory registry of Depspec fixtures, grouped by module
// name, playing the role golang-dep's depspecSourceManager plays for its
// SourceManager interface: a single fixed universe of known components that
// every fake collaborator below is built against.
type Universe struct {
	byModule map[resolve.ModuleID][]Depspec
}

// NewUniverse indexes specs by module name.
func NewUniverse(specs ...Depspec) *Universe {
	u := &Universe{byModule: make(map[resolve.ModuleID][]Depspec)}
	for _, s := range specs {
		id := s.ID()
		u.byModule[id] = append(u.byModule[id], s)
	}
	return u
}

func (u *Universe) find(id resolve.ModuleID, version string) (Depspec, bool) {
	for _, s := range u.byModule[id] {
		if s.Version == version {
			return s, true
		}
	}
	return Depspec{}, false
}

func (u *Universe) highest(id resolve.ModuleID, c resolve.VersionConstraint) (Depspec, bool) {
	var best Depspec
	var bestV resolve.Version
	found := false
	for _, s := range u.byModule[id] {
		v := resolve.NewVersion(s.Version)
		if !accepts(c, v) {
			continue
		}
		if !found || bestV.Less(v) {
			best, bestV, found = s, v, true
		}
	}
	return best, found
}

// accepts reports whether c's preferred selector (if any) accepts v; a nil
// preferred selector accepts everything, matching VersionConstraint's own
// internal acceptsPreferred semantics. Preferred is an exported field of an
// exported struct, so a fixture harness outside the package can drive
// this directly without needing access to VersionConstraint's unexported
// acceptsPreferred.
func accepts(c resolve.VersionConstraint, v resolve.Version) bool {
	if c.Preferred == nil {
		return true
	}
	return c.Preferred.Accepts(v)
}

// IDResolver resolves a ComponentSelector to the universe's highest version
// satisfying it - this package's stand-in for a real repository-backed
// IdResolver. Calls, when non-nil, is incremented once per module on every
// Resolve invocation, so a short-circuit-reuse fixture can assert how many
// times the "external" resolver was actually consulted.
type IDResolver struct {
	U     *Universe
	Calls map[string]int
}

func (r IDResolver) Resolve(ctx context.Context, sel resolve.ComponentSelector) (resolve.IdResolveResult, error) {
	if r.Calls != nil {
		r.Calls[sel.Module.String()]++
	}
	spec, ok := r.U.highest(sel.Module, sel.Constraint)
	if !ok {
		return resolve.IdResolveResult{Failure: fmt.Errorf("no version of %s satisfies %s", sel.Module, sel.Constraint)}, nil
	}
	mvi := resolve.ModuleVersionID{Module: sel.Module, Version: resolve.NewVersion(spec.Version)}
	return resolve.IdResolveResult{
		ID:       resolve.ComponentID(mvi.String()),
		MVI:      mvi,
		Metadata: newMeta(spec),
	}, nil
}

// MetadataResolver trivially returns the metadata every fixture component
// was built with; IsFetchingMetadataCheap is always true since nothing here
// does real I/O.
type MetadataResolver struct{ U *Universe }

func (r MetadataResolver) IsFetchingMetadataCheap(resolve.ComponentID) bool { return true }

func (r MetadataResolver) Resolve(ctx context.Context, id resolve.ComponentID) (resolve.ComponentMetadata, error) {
	for _, specs := range r.U.byModule {
		for _, s := range specs {
			mvi := resolve.ModuleVersionID{Module: s.ID(), Version: resolve.NewVersion(s.Version)}
			if resolve.ComponentID(mvi.String()) == id {
				return newMeta(s), nil
			}
		}
	}
	return nil, fmt.Errorf("resolvetest: no component registered for id %s", id)
}

// ContextResolver resolves a ResolveContext straight into a fixed
// ComponentResolveResult carrying the declared dependencies, standing in for
// the root project's own manifest.
type ContextResolver struct{}

func (ContextResolver) Resolve(ctx context.Context, rc resolve.ResolveContext) (resolve.ComponentResolveResult, error) {
	return resolve.ComponentResolveResult{
		ID:       resolve.ComponentID(rc.Root.String() + "@root"),
		Metadata: rootMeta{deps: rc.Dependencies},
	}, nil
}

type rootMeta struct{ deps []resolve.EdgeDeclaration }

func (m rootMeta) Dependencies() []resolve.EdgeDeclaration { return m.deps }
func (m rootMeta) Capabilities() []resolve.CapabilityID    { return nil }

// SingleConfiguration is the simplest AttributeMatcher: every component has
// exactly one configuration, named "default".
type SingleConfiguration struct{}

func (SingleConfiguration) MatchConfigurations(resolve.ComponentMetadata) ([]resolve.ConfigurationID, error) {
	return []resolve.ConfigurationID{"default"}, nil
}

// SerialQueue runs every submitted task in-thread, sequentially - the
// deterministic BuildOperationQueue fixture tests should pass as
// SolveParameters.Queue (spec.md SS9: "Expose the task pool as an interface
// so tests can run it in-thread deterministically").
type SerialQueue struct{}

func (SerialQueue) RunAll(ctx context.Context, produce func(enqueue func(resolve.Task))) error {
	var tasks []resolve.Task
	produce(func(t resolve.Task) { tasks = append(tasks, t) })
	for _, t := range tasks {
		if err := t.Run(ctx); err != nil {
			return err
		}
	}
	return nil
}

// RecordingVisitor implements DependencyGraphVisitor by recording every
// visited module name and edge, for simple assertion in table-driven
// tests. Edges records one "source->target" module/version pair per
// outgoing edge, in the order VisitEdges reports them (spec.md SS4.6),
// so a test can assert on assembleResult's edge ordering, not just node
// membership.
type RecordingVisitor struct {
	Nodes []string
	Edges []string
}

func (r *RecordingVisitor) Start(root *resolve.ComponentState) {}
func (r *RecordingVisitor) VisitSelector(s *resolve.SelectorState) {}
func (r *RecordingVisitor) VisitNode(n *resolve.NodeState) {
	r.Nodes = append(r.Nodes, n.Component().ModuleVersionID().String())
}
func (r *RecordingVisitor) VisitEdges(n *resolve.NodeState) {
	src := n.Component().ModuleVersionID().String()
	for _, e := range n.Outgoing() {
		if e.Failure() != nil || e.Target() == nil {
			continue
		}
		r.Edges = append(r.Edges, src+"->"+e.Target().ModuleVersionID().String())
	}
}
func (r *RecordingVisitor) Finish(root *resolve.ComponentState) {}
