// Package lockfile renders an assembled resolve result to a YAML lock
// document and reads one back, the demo CLI's analogue of golang-dep's
// lock.json/txn_writer.go output step. Serialized with gopkg.in/yaml.v2.
package lockfile

import (
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v2"

	"github.com/modgraph/resolve"
)

// Entry is one locked module: the selected component's identity, version,
// and the opaque component id the IdResolver assigned it.
type Entry struct {
	Group       string `yaml:"group"`
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	ComponentID string `yaml:"component_id"`
}

// Lockfile is the full rendered document: the root module's own coordinate
// plus every other module selected in the resolve, in the order
// assembleResult visited their nodes (the order in which the resolve first
// encountered each module).
type Lockfile struct {
	Root    Entry   `yaml:"root"`
	Modules []Entry `yaml:"modules"`
}

// Collector implements resolve.DependencyGraphVisitor, recording each
// distinct module's selected component the first time assembleResult
// visits one of its nodes. assembleResult visits nodes module by module in
// first-encountered order, before its edge walk (spec.md SS4.6), so that
// is Modules' order; edges are not recorded.
type Collector struct {
	root Entry
	seen map[resolve.ModuleID]bool
	mods []Entry
}

// NewCollector returns an empty Collector ready to pass as
// SolveParameters.Visitor.
func NewCollector() *Collector {
	return &Collector{seen: make(map[resolve.ModuleID]bool)}
}

func entryFor(c *resolve.ComponentState) Entry {
	mvi := c.ModuleVersionID()
	return Entry{
		Group:       mvi.Module.Group,
		Name:        mvi.Module.Name,
		Version:     mvi.Version.String(),
		ComponentID: string(c.ID()),
	}
}

func (c *Collector) Start(root *resolve.ComponentState) { c.root = entryFor(root) }

func (c *Collector) VisitSelector(s *resolve.SelectorState) {}

func (c *Collector) VisitNode(n *resolve.NodeState) {
	comp := n.Component()
	if comp.IsRoot() {
		return
	}
	mod := comp.Module().ID()
	if c.seen[mod] {
		return
	}
	c.seen[mod] = true
	c.mods = append(c.mods, entryFor(comp))
}

func (c *Collector) VisitEdges(n *resolve.NodeState) {}

func (c *Collector) Finish(root *resolve.ComponentState) {}

// Lockfile returns the document collected so far.
func (c *Collector) Lockfile() *Lockfile {
	return &Lockfile{Root: c.root, Modules: c.mods}
}

// WriteFile renders l as YAML and writes it to path.
func WriteFile(path string, l *Lockfile) error {
	b, err := yaml.Marshal(l)
	if err != nil {
		return fmt.Errorf("lockfile: marshaling: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("lockfile: writing %s: %w", path, err)
	}
	return nil
}

// ReadFile reads and decodes a lock document from path.
func ReadFile(path string) (*Lockfile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("lockfile: reading %s: %w", path, err)
	}
	var l Lockfile
	if err := yaml.Unmarshal(b, &l); err != nil {
		return nil, fmt.Errorf("lockfile: decoding %s: %w", path, err)
	}
	return &l, nil
}
