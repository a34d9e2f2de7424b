package resolve

// EdgeState bridges a source node to its selector's resolved target
// component (spec.md SS3, GLOSSARY "Edge"). Target is nil until the
// selector has been resolved; it can be rebound (Start is idempotent -
// SPEC_FULL.md SS4.3 "OQ2") so a restart never leaves a stale node in the
// graph.
type EdgeState struct {
	source   *NodeState
	selector *SelectorState

	target *ComponentState

	// excluded marks an edge that an EdgeFilter dropped, or whose
	// selector failed to resolve at all; it never gets a target and is
	// skipped by attachment and assembly.
	excluded bool
	failure  error
}

func newEdgeState(source *NodeState, selector *SelectorState) *EdgeState {
	return &EdgeState{source: source, selector: selector}
}

// Source returns the node this edge originates from.
func (e *EdgeState) Source() *NodeState { return e.source }

// Selector returns the selector governing this edge's target module.
func (e *EdgeState) Selector() *SelectorState { return e.selector }

// Target returns the resolved target component, or nil if unresolved.
func (e *EdgeState) Target() *ComponentState { return e.target }

// Failure returns the recorded failure for this edge, if any (spec.md SS7:
// "any local, per-edge failure is recorded and resolution continues").
func (e *EdgeState) Failure() error { return e.failure }

func (e *EdgeState) setFailure(err error) {
	e.failure = err
	e.excluded = true
}

// Start (re)binds this edge's target to candidate. If the edge previously
// pointed elsewhere, the old target's incoming-edge bookkeeping is
// unwound first, so a transient subtree built against a since-discarded
// candidate never lingers (SPEC_FULL.md SS4.3 "OQ2").
func (e *EdgeState) Start(candidate *ComponentState) {
	if e.target == candidate {
		return
	}
	if e.target != nil {
		for cfg, n := range e.target.nodes {
			if has(n.incoming, e) {
				n.removeIncoming(e)
				_ = cfg
			}
		}
	}
	e.target = candidate
	e.excluded = false
	e.failure = nil
}

func has(edges []*EdgeState, e *EdgeState) bool {
	for _, x := range edges {
		if x == e {
			return true
		}
	}
	return false
}

// detach severs this edge from any target node it is currently attached
// to, without rebinding to a new one - used when a restart deselects a
// module entirely before a replacement candidate has been chosen.
func (e *EdgeState) detach() {
	if e.target == nil {
		return
	}
	for _, n := range e.target.nodes {
		n.removeIncoming(e)
	}
	e.target = nil
}
