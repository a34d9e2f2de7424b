package resolve

import "sync"

// ComponentState is a specific resolved version of a module (spec.md SS3).
// It owns the NodeStates for whichever of its configurations the traversal
// has reached, and tracks which selectors currently point to it
// (selectedBy, spec.md SS3 invariant "selectedBy(component) always equals
// the set of selectors currently pointing to it").
type ComponentState struct {
	id     ComponentID
	mvi    ModuleVersionID
	module *ModuleResolveState

	metaOnce sync.Once
	meta     ComponentMetadata
	metaErr  error

	selected        bool
	rejected        bool
	alreadyResolved bool
	root            bool

	nodes map[ConfigurationID]*NodeState

	selectedBy map[*SelectorState]struct{}
}

func newComponentState(id ComponentID, mvi ModuleVersionID, module *ModuleResolveState) *ComponentState {
	return &ComponentState{
		id:         id,
		mvi:        mvi,
		module:     module,
		nodes:      make(map[ConfigurationID]*NodeState),
		selectedBy: make(map[*SelectorState]struct{}),
	}
}

// ID returns the opaque component id assigned by the IdResolver.
func (c *ComponentState) ID() ComponentID { return c.id }

// ModuleVersionID returns the (group, name, version) coordinate this
// component resolves to.
func (c *ComponentState) ModuleVersionID() ModuleVersionID { return c.mvi }

// Module returns the owning ModuleResolveState.
func (c *ComponentState) Module() *ModuleResolveState { return c.module }

// Version is shorthand for ModuleVersionID().Version.
func (c *ComponentState) Version() Version { return c.mvi.Version }

// Selected reports whether this is currently its module's selected
// component.
func (c *ComponentState) Selected() bool { return c.selected }

// Rejected reports whether maybeMarkRejected has flagged this component
// (spec.md S4.3.2).
func (c *ComponentState) Rejected() bool { return c.rejected }

// IsRoot reports whether this is the resolve's root component.
func (c *ComponentState) IsRoot() bool { return c.root }

// SelectedBy returns the set of selectors currently resolved to this
// component.
func (c *ComponentState) SelectedBy() []*SelectorState {
	out := make([]*SelectorState, 0, len(c.selectedBy))
	for s := range c.selectedBy {
		out = append(out, s)
	}
	return out
}

func (c *ComponentState) addSelectedBy(s *SelectorState) {
	c.selectedBy[s] = struct{}{}
}

func (c *ComponentState) removeSelectedBy(s *SelectorState) {
	delete(c.selectedBy, s)
}

// markRejected flags the component rejected, unless it already is
// (spec.md S4.3.2: "Already-rejected components are skipped").
func (c *ComponentState) markRejected() {
	c.rejected = true
}

// metaSnapshot returns whatever metadata has already been memoized for
// this component, without triggering resolution. Used by capability
// registration (spec.md SS4.4), which only has something to register once
// a component's metadata has actually been fetched.
func (c *ComponentState) metaSnapshot() (ComponentMetadata, error) {
	if c.meta == nil && c.metaErr == nil {
		return nil, nil
	}
	return c.meta, c.metaErr
}

// Nodes returns every NodeState created so far for this component's
// configurations, in no particular order.
func (c *ComponentState) Nodes() []*NodeState {
	out := make([]*NodeState, 0, len(c.nodes))
	for _, n := range c.nodes {
		out = append(out, n)
	}
	return out
}

// nodeFor returns the NodeState for configuration cfg, creating it the
// first time that configuration is reached, per spec.md SS3: "Created on
// component selection when that configuration is reached". The bool
// reports whether the node was newly created.
func (c *ComponentState) nodeFor(cfg ConfigurationID) (*NodeState, bool) {
	n, ok := c.nodes[cfg]
	if ok {
		return n, false
	}
	n = newNodeState(c, cfg)
	c.nodes[cfg] = n
	return n, true
}

// presetMetadata installs metadata that was already obtained as a
// byproduct of id resolution (IdResolveResult.Metadata) or root context
// resolution, so a later call to metadata() is a cache hit rather than a
// redundant fetch.
func (c *ComponentState) presetMetadata(meta ComponentMetadata) {
	if meta == nil {
		return
	}
	c.metaOnce.Do(func() {
		c.meta = meta
		c.alreadyResolved = true
	})
}

// metadata lazily resolves and memoizes this component's metadata via r,
// matching spec.md's "resolved metadata (lazy)" attribute and the
// alreadyResolved/isFetchingMetadataCheap split used in resolveEdges step 2.
func (c *ComponentState) metadata(r MetadataResolver, resolveFn func() (ComponentMetadata, error)) (ComponentMetadata, error) {
	c.metaOnce.Do(func() {
		c.meta, c.metaErr = resolveFn()
		c.alreadyResolved = c.metaErr == nil
	})
	return c.meta, c.metaErr
}
