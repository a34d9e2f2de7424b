package resolve

// NodeState is one configuration/variant of a component participating in
// the graph (spec.md SS3, GLOSSARY "Node"). A component may have several
// NodeStates if more than one of its configurations is reached by
// different consumers requesting different configurations via an
// AttributeMatcher.
type NodeState struct {
	component *ComponentState
	config    ConfigurationID

	incoming []*EdgeState
	outgoing []*EdgeState

	selected bool

	// depsVisited gates visitOutgoingDependencies so a node dequeued more
	// than once (it shouldn't be, under single-threaded discipline, but a
	// restart can re-enqueue a node whose outgoing edges were already
	// built) doesn't re-declare duplicate EdgeStates. This is the
	// "pending-dep gate" of spec.md SS3's NodeState row.
	depsVisited bool

	// queued guards ResolveState's pending-node queue against double
	// enqueueing the same node.
	queued bool
}

func newNodeState(c *ComponentState, cfg ConfigurationID) *NodeState {
	return &NodeState{component: c, config: cfg}
}

// Component returns the owning ComponentState.
func (n *NodeState) Component() *ComponentState { return n.component }

// Configuration returns this node's configuration descriptor.
func (n *NodeState) Configuration() ConfigurationID { return n.config }

// Selected reports whether this node is reachable from the current
// selections (i.e. its owning component is selected and some incoming
// edge, or the root, keeps it live).
func (n *NodeState) Selected() bool { return n.selected }

// Incoming returns the edges whose target is this node.
func (n *NodeState) Incoming() []*EdgeState { return append([]*EdgeState(nil), n.incoming...) }

// Outgoing returns the edges declared from this node, in declaration order
// (spec.md SS5: "outgoing edges are attached in declaration order").
func (n *NodeState) Outgoing() []*EdgeState { return append([]*EdgeState(nil), n.outgoing...) }

func (n *NodeState) addIncoming(e *EdgeState) {
	n.incoming = append(n.incoming, e)
}

func (n *NodeState) removeIncoming(e *EdgeState) {
	for i, x := range n.incoming {
		if x == e {
			n.incoming = append(n.incoming[:i], n.incoming[i+1:]...)
			return
		}
	}
}

// visitOutgoingDependencies enumerates n's outgoing EdgeStates, consulting
// pending (the ResolveState, which owns the DependencySubstitutionApplicator,
// EdgeFilter, and MetadataResolver collaborators) to build and filter them
// from the component's declared dependency metadata (spec.md SS4.1: "deps =
// node.visitOutgoingDependencies(pendingDepsHandler)").
func (n *NodeState) visitOutgoingDependencies(pending *ResolveState) ([]*EdgeState, error) {
	if n.depsVisited {
		return n.outgoing, nil
	}
	n.depsVisited = true

	meta, err := pending.resolveMetadata(n.component)
	if err != nil {
		return nil, err
	}

	for _, decl := range meta.Dependencies() {
		decl = pending.applySubstitution(decl)
		if pending.shouldExclude(decl) {
			continue
		}
		target := pending.moduleState(decl.Target)
		sel := newSelectorState(target.id, decl.Constraint)
		target.addSelector(sel)
		e := newEdgeState(n, sel)
		sel.bindEdge(e)
		n.outgoing = append(n.outgoing, e)
	}
	return n.outgoing, nil
}
