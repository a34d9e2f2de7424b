// Package manifest reads the demo CLI's declared-dependency file: a TOML
// document naming the root module's own identity, its direct dependencies
// (with optional version range, force, and strict flags), and any module
// replacements. Parsed with github.com/pelletier/go-toml, the same library
// golang-dep/toml.go uses to read Gopkg.toml.
package manifest

import (
	"context"
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml"

	"github.com/modgraph/resolve"
)

// Dependency is one [[dependency]] table entry.
type Dependency struct {
	Group  string `toml:"group"`
	Name   string `toml:"name"`
	Range  string `toml:"range"`
	Force  bool   `toml:"force"`
	Strict bool   `toml:"strict"`
	Reject string `toml:"reject"`
}

// Replacement is one [[replacement]] table entry: from is replaced with to
// wherever it's encountered as a dependency target.
type Replacement struct {
	FromGroup string `toml:"from_group"`
	FromName  string `toml:"from_name"`
	ToGroup   string `toml:"to_group"`
	ToName    string `toml:"to_name"`
}

// Declaration is the decoded shape of a dependency declaration file, mirroring
// Gopkg.toml's top-level [[constraint]]/[[override]] tables but flattened to
// this module's single Dependency/Replacement shape.
type Declaration struct {
	Group       string        `toml:"group"`
	Name        string        `toml:"name"`
	Version     string        `toml:"version"`
	Dependency  []Dependency  `toml:"dependency"`
	Replacement []Replacement `toml:"replacement"`
}

// Load reads and decodes a declaration file at path.
func Load(path string) (*Declaration, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: opening %s: %w", path, err)
	}
	defer f.Close()

	var decl Declaration
	if err := toml.NewDecoder(f).Decode(&decl); err != nil {
		return nil, fmt.Errorf("manifest: decoding %s: %w", path, err)
	}
	return &decl, nil
}

// RootContext turns the declaration into the resolve.ResolveContext the
// demo CLI's ContextResolver resolves from (spec.md SS2: "the root module
// seeds the queue").
func (d *Declaration) RootContext() resolve.ResolveContext {
	deps := make([]resolve.EdgeDeclaration, 0, len(d.Dependency))
	for _, dep := range d.Dependency {
		deps = append(deps, resolve.EdgeDeclaration{
			Target:     resolve.ModuleID{Group: dep.Group, Name: dep.Name},
			Constraint: dep.constraint(),
		})
	}
	return resolve.ResolveContext{
		Root:         resolve.ModuleID{Group: d.Group, Name: d.Name},
		Version:      resolve.NewVersion(d.Version),
		Dependencies: deps,
	}
}

func (dep Dependency) constraint() resolve.VersionConstraint {
	var c resolve.VersionConstraint
	if dep.Range != "" {
		c.Preferred = resolve.NewSemverRangeSelector(dep.Range)
	}
	if dep.Reject != "" {
		c.Rejected = resolve.NewExactSelector(dep.Reject)
	}
	c.Force = dep.Force
	c.Strictly = dep.Strict
	return c
}

// Replacements builds a resolve.ModuleReplacementsData from the declared
// [[replacement]] entries, or nil if there are none.
func (d *Declaration) Replacements() resolve.ModuleReplacementsData {
	if len(d.Replacement) == 0 {
		return nil
	}
	r := resolve.NewRadixModuleReplacements()
	for _, rep := range d.Replacement {
		r.Add(
			resolve.ModuleID{Group: rep.FromGroup, Name: rep.FromName},
			resolve.ModuleID{Group: rep.ToGroup, Name: rep.ToName},
		)
	}
	return r
}

// RegistryComponent is one [[component]] entry in a registry file: a known
// version of a module, its own outgoing dependencies, and the capabilities
// it provides. Plays the role golang-dep's local "depspec" test fixtures
// play, but as a real file the demo CLI reads instead of a Go literal.
type RegistryComponent struct {
	Group      string       `toml:"group"`
	Name       string       `toml:"name"`
	Version    string       `toml:"version"`
	Dependency []Dependency `toml:"dependency"`
	Capability []string     `toml:"capability"`
}

// Registry is the decoded shape of a registry file: every component version
// the demo CLI's IdResolver/MetadataResolver can hand out. A real adopter
// would replace Registry with a collaborator backed by an actual module
// repository; it stands in for one here so the demo CLI has something to
// resolve against without a network dependency.
type Registry struct {
	Component []RegistryComponent `toml:"component"`
}

// LoadRegistry reads and decodes a registry file at path.
func LoadRegistry(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: opening registry %s: %w", path, err)
	}
	defer f.Close()

	var reg Registry
	if err := toml.NewDecoder(f).Decode(&reg); err != nil {
		return nil, fmt.Errorf("manifest: decoding registry %s: %w", path, err)
	}
	return &reg, nil
}

func (c RegistryComponent) module() resolve.ModuleID {
	return resolve.ModuleID{Group: c.Group, Name: c.Name}
}

func (c RegistryComponent) mvi() resolve.ModuleVersionID {
	return resolve.ModuleVersionID{Module: c.module(), Version: resolve.NewVersion(c.Version)}
}

func (c RegistryComponent) id() resolve.ComponentID {
	return resolve.ComponentID(c.mvi().String())
}

// componentMetadata adapts a RegistryComponent to resolve.ComponentMetadata.
type componentMetadata struct {
	deps []resolve.EdgeDeclaration
	caps []resolve.CapabilityID
}

func (m componentMetadata) Dependencies() []resolve.EdgeDeclaration { return m.deps }
func (m componentMetadata) Capabilities() []resolve.CapabilityID    { return m.caps }

func (c RegistryComponent) metadata() componentMetadata {
	m := componentMetadata{}
	for _, dep := range c.Dependency {
		m.deps = append(m.deps, resolve.EdgeDeclaration{
			Target:     resolve.ModuleID{Group: dep.Group, Name: dep.Name},
			Constraint: dep.constraint(),
		})
	}
	for _, cap := range c.Capability {
		m.caps = append(m.caps, resolve.CapabilityID{Group: c.Group, Name: cap})
	}
	return m
}

// byModule returns every known version of id, in file order.
func (r *Registry) byModule(id resolve.ModuleID) []RegistryComponent {
	var out []RegistryComponent
	for _, c := range r.Component {
		if c.module() == id {
			out = append(out, c)
		}
	}
	return out
}

func (r *Registry) byComponentID(id resolve.ComponentID) (RegistryComponent, bool) {
	for _, c := range r.Component {
		if c.id() == id {
			return c, true
		}
	}
	return RegistryComponent{}, false
}

// IdResolver resolves a ComponentSelector against the registry's known
// components, choosing the highest version that the selector's preferred
// selector accepts (any version, if it has none) and its rejected selector
// does not.
// This is the demo CLI's stand-in for a real repository-backed resolver -
// see DESIGN.md for why a real one is out of scope for this module.
type IdResolver struct{ Registry *Registry }

func (r IdResolver) Resolve(ctx context.Context, sel resolve.ComponentSelector) (resolve.IdResolveResult, error) {
	var best RegistryComponent
	var bestV resolve.Version
	found := false
	for _, c := range r.Registry.byModule(sel.Module) {
		v := resolve.NewVersion(c.Version)
		if sel.Constraint.Preferred != nil && !sel.Constraint.Preferred.Accepts(v) {
			continue
		}
		if sel.Constraint.Rejected != nil && sel.Constraint.Rejected.Accepts(v) {
			continue
		}
		if !found || bestV.Less(v) {
			best, bestV, found = c, v, true
		}
	}
	if !found {
		return resolve.IdResolveResult{
			Failure: fmt.Errorf("no registered version of %s satisfies %s", sel.Module, sel.Constraint),
		}, nil
	}
	return resolve.IdResolveResult{
		ID:       best.id(),
		MVI:      best.mvi(),
		Metadata: best.metadata(),
	}, nil
}

// MetadataResolver looks a component's declared metadata up by the
// ComponentID IdResolver minted for it. Registry metadata is free to
// compute, so IsFetchingMetadataCheap is always true.
type MetadataResolver struct{ Registry *Registry }

func (r MetadataResolver) IsFetchingMetadataCheap(resolve.ComponentID) bool { return true }

func (r MetadataResolver) Resolve(ctx context.Context, id resolve.ComponentID) (resolve.ComponentMetadata, error) {
	c, ok := r.Registry.byComponentID(id)
	if !ok {
		return nil, fmt.Errorf("manifest: no registered component for id %s", id)
	}
	return c.metadata(), nil
}

// ContextResolver resolves a ResolveContext straight into a
// ComponentResolveResult carrying the context's own declared dependencies,
// standing in for the root module's own manifest.
type ContextResolver struct{}

func (ContextResolver) Resolve(ctx context.Context, rc resolve.ResolveContext) (resolve.ComponentResolveResult, error) {
	mvi := resolve.ModuleVersionID{Module: rc.Root, Version: rc.Version}
	return resolve.ComponentResolveResult{
		ID:       resolve.ComponentID(mvi.String()),
		Metadata: componentMetadata{deps: rc.Dependencies},
	}, nil
}
