package resolve

import (
	"fmt"

	"github.com/Masterminds/semver"
)

// Version is an opaque, comparable version coordinate. It wraps a parsed
// semver.Version when the raw string is valid semver (the common case for
// every module in this package's domain stack), and falls back to lexical
// comparison otherwise - mirroring golang-dep/constraints.go's split between
// its semVersion and the plain string versions it also has to accept.
type Version struct {
	raw string
	sv  *semver.Version
}

// NewVersion parses s, preferring semver but never failing: a non-semver
// string is kept as-is and compared lexically against other non-semver
// strings (spec.md never requires every version to be valid semver).
func NewVersion(s string) Version {
	v := Version{raw: s}
	if sv, err := semver.NewVersion(s); err == nil {
		v.sv = sv
	}
	return v
}

func (v Version) String() string { return v.raw }

// IsZero reports whether v is the unset Version (the zero value).
func (v Version) IsZero() bool { return v.raw == "" && v.sv == nil }

// Less reports whether v sorts before o. Two semver versions compare
// numerically; anything else falls back to a lexical comparison of the raw
// string, which also governs comparisons between a semver and a
// non-semver value (spec.md never mandates a total order across mixed
// version schemes, only a consistent one).
func (v Version) Less(o Version) bool {
	if v.sv != nil && o.sv != nil {
		return v.sv.LessThan(o.sv)
	}
	return v.raw < o.raw
}

// Equal reports whether v and o denote the same version.
func (v Version) Equal(o Version) bool {
	if v.sv != nil && o.sv != nil {
		return v.sv.Equal(o.sv)
	}
	return v.raw == o.raw
}

// VersionSelector is a predicate over candidate versions, with the two
// extra capability bits spec.md S4.2/S4.3 need to decide whether a
// selector can be short-circuited without a fresh id resolution.
type VersionSelector interface {
	fmt.Stringer

	// Accepts reports whether v satisfies this selector.
	Accepts(v Version) bool

	// RequiresMetadata reports whether deciding Accepts for some candidate
	// needs that candidate's resolved metadata (spec.md SS4.3.1 step 2:
	// dynamic selectors that inspect metadata can never short-circuit).
	RequiresMetadata() bool

	// CanShortCircuitWhenVersionAlreadyPreselected reports whether this
	// selector is safe to satisfy by reusing an already-resolved version
	// from SelectorStateResolverResults rather than issuing a fresh id
	// resolution (spec.md SS4.2).
	CanShortCircuitWhenVersionAlreadyPreselected() bool
}

// semverRangeSelector accepts any version satisfying a semver range/
// constraint expression, e.g. "^1.2.0" or ">=1.0.0, <2.0.0".
type semverRangeSelector struct {
	body string
	c    *semver.Constraints
}

// NewSemverRangeSelector parses body as a semver constraint expression.
// An invalid expression yields a selector that accepts nothing, rather
// than a constructor error, so callers building VersionConstraint values
// from untrusted manifest data don't need a second error path here - the
// resulting "accepts nothing" selector surfaces as an ordinary unresolved
// dependency once it's actually consulted.
func NewSemverRangeSelector(body string) VersionSelector {
	c, err := semver.NewConstraint(body)
	if err != nil {
		c = nil
	}
	return &semverRangeSelector{body: body, c: c}
}

func (s *semverRangeSelector) String() string { return s.body }

func (s *semverRangeSelector) Accepts(v Version) bool {
	if s.c == nil || v.sv == nil {
		return false
	}
	return s.c.Check(v.sv)
}

func (s *semverRangeSelector) RequiresMetadata() bool { return false }

func (s *semverRangeSelector) CanShortCircuitWhenVersionAlreadyPreselected() bool { return true }

// exactSelector accepts exactly one version, by Version.Equal (numeric
// equality when both sides are semver, raw string equality otherwise).
type exactSelector struct {
	v Version
}

// NewExactSelector builds a selector that accepts only the named version.
func NewExactSelector(version string) VersionSelector {
	return &exactSelector{v: NewVersion(version)}
}

func (s *exactSelector) String() string { return s.v.String() }

func (s *exactSelector) Accepts(v Version) bool { return s.v.Equal(v) }

func (s *exactSelector) RequiresMetadata() bool { return false }

func (s *exactSelector) CanShortCircuitWhenVersionAlreadyPreselected() bool { return true }

// dynamicSelector accepts whatever match decides, given a candidate's
// resolved ComponentMetadata - the escape hatch for selectors that can't
// be expressed as a version range (e.g. "whichever version declares
// capability X"). Because match needs metadata, a dynamic selector can
// never be short-circuited purely from a cached version (spec.md SS4.2's
// short-circuit rule only concerns versions, not metadata-dependent
// predicates).
type dynamicSelector struct {
	label string
	match func(ComponentMetadata) bool
}

// NewDynamicSelector builds a metadata-driven selector. label is used only
// for String()/diagnostics.
func NewDynamicSelector(label string, match func(ComponentMetadata) bool) VersionSelector {
	return &dynamicSelector{label: label, match: match}
}

func (s *dynamicSelector) String() string { return s.label }

// Accepts always returns false here: a dynamicSelector can only be
// evaluated against metadata, via its match function, which callers
// holding a resolved ComponentMetadata should invoke directly rather than
// through Accepts. It still satisfies VersionSelector so it can sit in a
// VersionConstraint alongside ordinary version-only selectors.
func (s *dynamicSelector) Accepts(Version) bool { return false }

func (s *dynamicSelector) RequiresMetadata() bool { return true }

func (s *dynamicSelector) CanShortCircuitWhenVersionAlreadyPreselected() bool { return false }

// VersionConstraint is the full constraint a single declared dependency
// edge places on its target module (spec.md SS3, GLOSSARY "Constraint").
// Preferred governs ordinary version selection; Rejected excludes
// versions outright even if Preferred would otherwise accept them
// (spec.md S4.3.2's "banned version" reject-list semantics). Require,
// Strictly, and Force are the modifier bits spec.md's edge declarations
// carry: Require is carried on the constraint, but nothing in this package
// reads it, so it has no effect on resolution;
// Strictly behaves like Preferred but additionally participates in
// rejection (a version outside a strict range is as disqualifying as an
// explicit Rejected entry); Force pins the module to this selector's
// resolution outright, bypassing chooseBest/conflict resolution
// (SelectorStateResolverResults.getResolved's force short-circuit).
type VersionConstraint struct {
	Preferred VersionSelector
	Rejected  VersionSelector

	Require  bool
	Strictly bool
	Force    bool
}

func (c VersionConstraint) String() string {
	switch {
	case c.Preferred == nil && c.Rejected == nil:
		return "any"
	case c.Rejected == nil:
		return c.Preferred.String()
	case c.Preferred == nil:
		return fmt.Sprintf("any, !%s", c.Rejected)
	default:
		return fmt.Sprintf("%s, !%s", c.Preferred, c.Rejected)
	}
}

// acceptsPreferred reports whether v satisfies the preferred selector (or
// there is none, in which case every version trivially passes this half
// of the constraint).
func (c VersionConstraint) acceptsPreferred(v Version) bool {
	if c.Preferred == nil {
		return true
	}
	return c.Preferred.Accepts(v)
}

// acceptsRejected reports whether v is banned by the reject selector, or
// (when Strictly is set) falls outside the preferred selector (spec.md
// S4.3.2: a strict constraint rejects just as surely as an explicit
// reject-list entry).
func (c VersionConstraint) acceptsRejected(v Version) bool {
	if c.Rejected != nil && c.Rejected.Accepts(v) {
		return true
	}
	if c.Strictly && c.Preferred != nil && !c.Preferred.Accepts(v) {
		return true
	}
	return false
}

// canShortCircuit reports whether this constraint's preferred selector
// permits SS4.2's already-resolved-version reuse.
func (c VersionConstraint) canShortCircuit() bool {
	if c.Preferred == nil {
		return true
	}
	return c.Preferred.CanShortCircuitWhenVersionAlreadyPreselected()
}

// requiresMetadata reports whether this constraint's preferred selector
// needs a candidate's metadata to evaluate (spec.md S4.3.1 step 2).
func (c VersionConstraint) requiresMetadata() bool {
	return c.Preferred != nil && c.Preferred.RequiresMetadata()
}
