package resolve

import (
	"fmt"

	radix "github.com/armon/go-radix"
)

// moduleIndex is a radix tree keyed on "<group>/<name>", used as the
// storage of the built-in ModuleReplacementsData (spec.md SS4.4, SS6).
// registerCapabilities does not use it; it looks capability providers up
// in ResolveState.modules directly. It plays the same "identifier prefix index" role that
// golang-dep/typed_radix.go's pkgTreeRoot plays for ProjectRoot lookups,
// generalized here to exact-key lookups (we have no need for prefix
// matching, but the radix tree is a fine hash-map-with-ordered-iteration
// replacement and mirrors the teacher's choice of structure for this kind
// of registry).
type moduleIndex struct {
	t *radix.Tree
}

func newModuleIndex() *moduleIndex {
	return &moduleIndex{t: radix.New()}
}

func moduleKey(m ModuleID) string {
	return fmt.Sprintf("%s/%s", m.Group, m.Name)
}

func (idx *moduleIndex) put(m ModuleID, value ModuleID) {
	idx.t.Insert(moduleKey(m), value)
}

func (idx *moduleIndex) get(m ModuleID) (ModuleID, bool) {
	v, ok := idx.t.Get(moduleKey(m))
	if !ok {
		return ModuleID{}, false
	}
	return v.(ModuleID), true
}

func (idx *moduleIndex) len() int { return idx.t.Len() }

// RadixModuleReplacements is the built-in ModuleReplacementsData,
// implemented with a moduleIndex.
type RadixModuleReplacements struct {
	idx *moduleIndex
}

// NewRadixModuleReplacements builds an empty replacement map; callers add
// entries with Add before handing it to SolveParameters.
func NewRadixModuleReplacements() *RadixModuleReplacements {
	return &RadixModuleReplacements{idx: newModuleIndex()}
}

// Add registers that `from` should be treated as `to` wherever it's
// encountered as a dependency target.
func (r *RadixModuleReplacements) Add(from, to ModuleID) {
	r.idx.put(from, to)
}

// Replacement implements ModuleReplacementsData.
func (r *RadixModuleReplacements) Replacement(m ModuleID) (ModuleID, bool) {
	return r.idx.get(m)
}
