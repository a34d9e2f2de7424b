package resolve

// performSelection resolves one edge to a concrete target component,
// implementing spec.md S4.3. The id-level resolution itself additionally
// consults and maintains the module's SelectorStateResolverResults cache
// (spec.md SS4.2) before/after calling out to the external IdResolver, and
// a force selector short-circuits chooseBest entirely (SS4.2: "if any
// selector carries the force flag, short-circuit").
func (rs *ResolveState) performSelection(dep *EdgeState) error {
	selector := dep.selector

	if selector.selected != nil {
		dep.Start(selector.selected)
		return nil
	}

	module := rs.moduleState(selector.module)

	r, ok := module.results.alreadyHaveResolution(selector)
	if !ok {
		var err error
		r, err = selector.resolve(rs.ctx, rs.idResolver)
		if err != nil {
			return err
		}
		module.results.registerResolution(selector, r)
	}
	if r.Failure != nil {
		dep.setFailure(&IdResolveFailure{Selector: selector, Cause: r.Failure})
		return nil
	}

	candidate := rs.GetRevision(r.ID, r.MVI, r.Metadata)
	current := module.selected

	if selector.constraint.Force {
		rs.trace("force %s", candidate.ModuleVersionID())
		dep.Start(candidate)
		selector.select_(candidate)
		if current != candidate {
			if current != nil {
				rs.deselectVersion(module.id)
			}
			module.restart(candidate)
			rs.redirectOtherSelectors(module, selector, candidate)
		}
		module.forced = true
		rs.maybeMarkRejected(candidate)
		return nil
	}

	if module.forced {
		dep.Start(module.selected)
		selector.select_(module.selected)
		rs.maybeMarkRejected(module.selected)
		return nil
	}

	dep.Start(candidate)
	selector.select_(candidate)

	if current == nil {
		if !module.hasConflicts(rs.moduleConflicts) {
			rs.trace("select %s", candidate.ModuleVersionID())
			rs.selectModuleCandidate(module, candidate)
			rs.maybeMarkRejected(candidate)
		}
		return nil
	}

	chosen, err := rs.chooseBest(module, selector, current, candidate)
	if err != nil {
		return err
	}
	if chosen == current {
		dep.Start(current)
		selector.select_(current)
		rs.maybeMarkRejected(current)
		return nil
	}

	// chosen is candidate: reset module and restart.
	rs.trace("conflict %s: %s wins over %s", module.id, candidate.ModuleVersionID(), current.ModuleVersionID())
	rs.deselectVersion(module.id)
	module.restart(candidate)
	rs.redirectOtherSelectors(module, selector, candidate)
	rs.registerModuleConflict(candidate)
	rs.maybeMarkRejected(candidate)
	return nil
}

func (rs *ResolveState) selectModuleCandidate(module *ModuleResolveState, candidate *ComponentState) {
	module.select_(candidate)
	rs.registerModuleConflict(candidate)
}

func (rs *ResolveState) registerModuleConflict(candidate *ComponentState) {
	pc := rs.moduleConflicts.registerCandidate(candidate)
	if pc.ConflictExists() {
		pc.WithParticipatingModules(rs.deselectVersion)
	}
}

// chooseBest implements spec.md S4.3.1.
func (rs *ResolveState) chooseBest(module *ModuleResolveState, selector *SelectorState, current, candidate *ComponentState) (*ComponentState, error) {
	if current == candidate {
		return current, nil
	}
	if selectorAgreesWith(selector, current.Version()) {
		return current, nil
	}
	if allSelectorsAgreeWith(module.Selectors(), candidate) {
		return candidate, nil
	}

	chosen, err := rs.moduleConflicts.Select([]*ComponentState{current, candidate})
	if err != nil {
		return nil, &ConflictResolverFailure{Module: module.id, Cause: err}
	}
	return chosen, nil
}

// selectorAgreesWith implements spec.md S4.3.1 step 2: "the selector has a
// non-null preferred selector, that selector does not require metadata, it
// can short-circuit on a preselected version, and it accepts the current
// version."
func selectorAgreesWith(selector *SelectorState, v Version) bool {
	c := selector.constraint
	if c.Preferred == nil {
		return false
	}
	if c.requiresMetadata() {
		return false
	}
	if !c.canShortCircuit() {
		return false
	}
	return c.Preferred.Accepts(v)
}

// allSelectorsAgreeWith implements spec.md S4.3.1 step 3: every selector
// not already in candidate.selectedBy must (a) have no preferred selector,
// or a short-circuit-able one that accepts candidate, and (b) not have a
// rejected selector that accepts candidate. At least one selector must be
// consulted.
func allSelectorsAgreeWith(selectors []*SelectorState, candidate *ComponentState) bool {
	consulted := 0
	v := candidate.Version()
	for _, s := range selectors {
		if _, already := candidate.selectedBy[s]; already {
			continue
		}
		consulted++

		c := s.constraint
		agrees := c.Preferred == nil || (c.canShortCircuit() && c.Preferred.Accepts(v))
		if !agrees {
			return false
		}
		if c.acceptsRejected(v) {
			return false
		}
	}
	return consulted > 0
}

// maybeMarkRejected implements spec.md S4.3.2.
func (rs *ResolveState) maybeMarkRejected(cs *ComponentState) {
	if cs.rejected {
		return
	}
	for _, s := range cs.Module().Selectors() {
		if s.constraint.acceptsRejected(cs.Version()) {
			cs.markRejected()
			return
		}
	}
}
