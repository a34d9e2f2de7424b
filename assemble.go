package resolve

// visitState tracks one component's progress through assembleResult's
// tri-state walk (spec.md SS4.6): NotSeen, Visiting (blocked on its own
// unvisited dependencies), Visited (done; any further queue entries for it
// are simply discarded).
type visitState int

const (
	notSeen visitState = iota
	visiting
	visited
)

// assembleResult implements spec.md SS4.6: report the selected subgraph to
// params.Visitor.
//
// visitEdges is called for a component only once every component its
// selected nodes hold an outgoing edge to has itself been visited - a
// reverse topological order of the consumer relation (spec.md SS8 property
// 7): a dependency's edges are reported before its consumer's, so S1's
// `A->B` is reported before `root->A`. The queue is primed with every
// selected component, not just ones reachable by walking from root, since
// a module can be selected without assembleResult otherwise having a path
// to it; a component can end up queued more than once (e.g. two consumers
// both push the same unvisited dependency to the front) - harmless, since
// the `visited` branch below just discards the extra entry. A back-edge to
// a component already `visiting` (an ancestor on the current chain, i.e. a
// cycle) is left alone rather than pushed, which is the cycle-breaking
// step: the cycle simply doesn't block that component's own completion.
func (rs *ResolveState) assembleResult() error {
	v := rs.params.Visitor
	if v == nil {
		return nil
	}

	v.Start(rs.root)

	for _, m := range rs.Modules() {
		for _, sel := range m.Selectors() {
			v.VisitSelector(sel)
		}
	}

	for _, m := range rs.Modules() {
		cs := m.Selected()
		if cs == nil {
			continue
		}
		for _, n := range cs.Nodes() {
			if n.Selected() {
				v.VisitNode(n)
			}
		}
	}

	state := make(map[*ComponentState]visitState)
	var queue []*ComponentState
	for _, m := range rs.Modules() {
		if cs := m.Selected(); cs != nil {
			queue = append(queue, cs)
		}
	}

	finish := func(c *ComponentState) {
		state[c] = visited
		queue = queue[1:]
		for _, n := range c.Nodes() {
			if n.Selected() {
				v.VisitEdges(n)
			}
		}
	}

	for len(queue) > 0 {
		c := queue[0]

		switch state[c] {
		case visited:
			queue = queue[1:]

		case visiting:
			// Every dependency pushed ahead of c has now been fully
			// processed (or was a back-edge and never pushed at all).
			finish(c)

		default: // notSeen
			state[c] = visiting

			var pushed []*ComponentState
			seen := make(map[*ComponentState]bool)
			for _, n := range c.Nodes() {
				if !n.Selected() {
					continue
				}
				for _, e := range n.Outgoing() {
					if e.Failure() != nil || e.Target() == nil {
						continue
					}
					t := e.Target()
					if state[t] == notSeen && !seen[t] {
						seen[t] = true
						pushed = append(pushed, t)
					}
				}
			}

			if len(pushed) == 0 {
				finish(c)
				continue
			}
			queue = append(pushed, queue...)
		}
	}

	v.Finish(rs.root)
	return nil
}
