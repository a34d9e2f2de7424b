package resolve

import (
	"context"

	"github.com/sdboyer/constext"
)

// resolveEdges runs the three-phase pipeline spec.md SS4.1 step 2 prescribes
// for one dequeued node's outgoing dependencies: a serial selection pass
// (performSelection may itself trigger conflict registration, which must
// finish before anything is fetched in parallel), a parallel metadata
// prefetch for every edge whose target is freshly selected and not already
// resolved, and a serial attachment pass that creates child NodeStates.
func (rs *ResolveState) resolveEdges(deps []*EdgeState) error {
	for _, e := range deps {
		if err := rs.performSelection(e); err != nil {
			return err
		}
	}

	var toFetch []*EdgeState
	for _, e := range deps {
		t := e.target
		if e.excluded || t == nil {
			continue
		}
		if t.selected && !t.alreadyResolved && !rs.metadataResolver.IsFetchingMetadataCheap(t.id) {
			toFetch = append(toFetch, e)
		}
	}
	if err := rs.prefetchMetadata(toFetch); err != nil {
		return err
	}

	for _, e := range deps {
		if e.excluded || e.target == nil {
			continue
		}
		if err := rs.attachToTargetConfigurations(e); err != nil {
			return err
		}
	}
	return nil
}

// prefetchMetadata runs resolveMetadataCtx for every edge in toFetch via the
// configured BuildOperationQueue. A single edge is resolved inline without
// the executor's overhead. An individual component's metadata failure is
// recorded on its edge and does not abort the batch - only a genuine
// executor-level failure (the caller's context canceled, the queue itself
// erroring) propagates up and aborts the outer traversal, per spec.md SS5's
// "the current runAll returns/throws, the loop aborts" versus SS7's
// per-edge failure recording.
func (rs *ResolveState) prefetchMetadata(toFetch []*EdgeState) error {
	switch len(toFetch) {
	case 0:
		return nil
	case 1:
		e := toFetch[0]
		if _, err := rs.resolveMetadataCtx(rs.ctx, e.target); err != nil {
			e.setFailure(err)
		}
		return nil
	}

	return rs.queueImpl.RunAll(rs.ctx, func(enqueue func(Task)) {
		for _, e := range toFetch {
			e := e
			enqueue(TaskFunc(func(ctx context.Context) error {
				if _, err := rs.resolveMetadataCtx(ctx, e.target); err != nil {
					e.setFailure(err)
				}
				return nil
			}))
		}
	})
}

// attachToTargetConfigurations implements spec.md SS4.1 step 3: consult the
// AttributeMatcher for the target component's matching configurations,
// create (or reuse) a NodeState for each, attach e to its incoming edge
// list, and enqueue the node for traversal exactly when it newly becomes
// reachable (its target just became selected, having not been before).
//
// A node is enqueued only on that selected-transition, never merely because
// e is a new incoming edge to an already-selected node: a component's graph
// of cyclic dependents would otherwise keep re-attaching and re-enqueueing
// each other's already-fully-processed nodes forever (spec.md S8's "S6
// Cycle" property requires termination with each component visited exactly
// once).
func (rs *ResolveState) attachToTargetConfigurations(e *EdgeState) error {
	target := e.target

	meta, err := rs.resolveMetadata(target)
	if err != nil {
		e.setFailure(err)
		return nil
	}

	configs, err := rs.attributeMatcher.MatchConfigurations(meta)
	if err != nil {
		e.setFailure(wrapf(err, "matching configurations for %s", target.id))
		return nil
	}

	for _, cfg := range configs {
		node, _ := target.nodeFor(cfg)
		if !has(node.incoming, e) {
			node.addIncoming(e)
		}
		if target.selected && !node.selected {
			node.selected = true
			rs.OnMoreSelected(node)
		}
	}
	return nil
}

// Resolve runs one full resolution against params: it bootstraps the root
// component, drains the pending-node queue and the two conflict handlers
// until all three are empty (spec.md SS4.1's outer loop), validates the
// resulting graph (SS4.5), and - on success - walks it into params.Visitor
// (SS4.6).
func Resolve(ctx context.Context, params SolveParameters) error {
	rs := newResolveState(params)

	abortCtx, abortCancel := context.WithCancel(context.Background())
	defer abortCancel()
	joined, joinCancel := constext.Cons(ctx, abortCtx)
	defer joinCancel()
	rs.ctx = joined

	if err := rs.bootstrapRoot(); err != nil {
		return err
	}

	for len(rs.queue) > 0 || rs.moduleConflicts.len() > 0 || rs.capabilityConflicts.len() > 0 {
		if err := rs.ctx.Err(); err != nil {
			return err
		}

		switch {
		case len(rs.queue) > 0:
			node, _ := rs.Pop()
			rs.trace("pop %s [%s]", node.Component().ModuleVersionID(), node.Configuration())
			rs.registerCapabilities(node)

			deps, err := node.visitOutgoingDependencies(rs)
			if err != nil {
				abortCancel()
				return err
			}
			if err := rs.resolveEdges(deps); err != nil {
				abortCancel()
				return err
			}

		case rs.moduleConflicts.len() > 0:
			rs.trace("resolve module conflict (%d pending)", rs.moduleConflicts.len())
			if err := rs.moduleConflicts.resolveNextConflict(rs.ReplaceSelectionWithConflictResultAction()); err != nil {
				abortCancel()
				return err
			}

		default:
			rs.trace("resolve capability conflict (%d pending)", rs.capabilityConflicts.len())
			if err := rs.capabilityConflicts.resolveNextConflict(rs.ReplaceSelectionWithConflictResultAction()); err != nil {
				abortCancel()
				return err
			}
		}
	}

	if err := rs.validateGraph(); err != nil {
		return err
	}

	return rs.assembleResult()
}
