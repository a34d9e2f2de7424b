package resolve

import "fmt"

// ModuleID is the identity of a module: a (group, name) pair. It does not
// carry a version - the same ModuleID may have many ModuleVersionIDs known
// to a ModuleResolveState over the life of a resolve.
//
// Aliasing a struct type here, rather than a bare string, mirrors
// golang-dep's ProjectRoot/ProjectIdentifier split: a resolve has lots of
// identifier-shaped strings floating around (group:name coordinates,
// component ids, capability coordinates), and giving each its own type
// keeps them from being accidentally interchanged.
type ModuleID struct {
	Group string
	Name  string
}

func (m ModuleID) String() string {
	return fmt.Sprintf("%s:%s", m.Group, m.Name)
}

func (m ModuleID) less(o ModuleID) bool {
	if m.Group != o.Group {
		return m.Group < o.Group
	}
	return m.Name < o.Name
}

// ModuleVersionID is a fully qualified module coordinate: group, name, and a
// concrete version.
type ModuleVersionID struct {
	Module  ModuleID
	Version Version
}

func (m ModuleVersionID) String() string {
	return fmt.Sprintf("%s:%s", m.Module, m.Version)
}

// ComponentID is an opaque identifier for a resolved component, assigned by
// an IdResolver. It may or may not correspond 1:1 to a ModuleVersionID - the
// id resolver is free to mint ids for components that aren't module
// versions at all (e.g. synthetic platform/BOM components), which is why
// ResolveState.GetRevision takes both a ComponentID and a ModuleVersionID
// rather than deriving one from the other.
type ComponentID string

// CapabilityID is the (group, name) coordinate of a capability declaration.
// It shares ModuleID's shape because a module's own default capability is
// always its own ModuleID, but the two are kept as distinct types so a
// capability can never be passed somewhere a module identity is expected.
type CapabilityID struct {
	Group string
	Name  string
}

func (c CapabilityID) String() string {
	return fmt.Sprintf("%s:%s", c.Group, c.Name)
}

func (c CapabilityID) asModuleID() ModuleID {
	return ModuleID{Group: c.Group, Name: c.Name}
}
