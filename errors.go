package resolve

import (
	"fmt"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// traceError is implemented by every failure kind below, mirroring
// golang-dep/errors.go's traceError/traceString split: traceString() is a
// more detailed form of the plain Error() message. The traversal's own
// TraceLogger output does not call it.
type traceError interface {
	error
	traceString() string
}

// IdResolveFailure wraps a failure returned by IdResolver.Resolve. It is
// never thrown: it's recorded on the EdgeState that produced it (the raw
// failure also stays in the selector's cached IdResolveResult), and
// surfaces to callers through EdgeState.Failure; Resolve itself does not
// return it, and validateGraph does not report it (spec.md SS7).
type IdResolveFailure struct {
	Selector *SelectorState
	Cause    error
}

func (e *IdResolveFailure) Error() string {
	return fmt.Sprintf("could not resolve %s: %s", e.Selector.constraint, e.Cause)
}

func (e *IdResolveFailure) traceString() string {
	return fmt.Sprintf("id resolution failed for %s: %s", e.Selector.constraint, e.Cause)
}

func (e *IdResolveFailure) Unwrap() error { return e.Cause }

// RejectedSelectionFailure is raised by validateGraph (spec.md SS4.5) when
// one or more modules' selected components are marked rejected. It
// aggregates every rejected module into one fatal failure.
type RejectedSelectionFailure struct {
	Rejections []RejectedModule
}

// RejectedModule names one module whose selected component was rejected.
type RejectedModule struct {
	Module    ModuleID
	Component ComponentID
	Version   Version
}

// aggregate builds a *multierror.Error holding one sub-error per rejected
// module, so validateGraph (spec.md SS4.5) reports every rejection found in
// one pass instead of stopping at the first.
func (e *RejectedSelectionFailure) aggregate() *multierror.Error {
	var me *multierror.Error
	for _, r := range e.Rejections {
		me = multierror.Append(me, fmt.Errorf("module %s: selected version %s was rejected by a constraint", r.Module, r.Version))
	}
	return me
}

func (e *RejectedSelectionFailure) Error() string {
	return e.aggregate().Error()
}

func (e *RejectedSelectionFailure) traceString() string { return e.Error() }

// ConflictResolverFailure wraps a failure returned by the pluggable
// ModuleConflictResolver when chooseBest defers to it (spec.md S4.3.1
// step 4). It is always fatal. Failures from the batched module and
// capability conflict queues (SS4.4) are also fatal but are returned
// unwrapped, not as a ConflictResolverFailure.
type ConflictResolverFailure struct {
	Module ModuleID
	Cause  error
}

func (e *ConflictResolverFailure) Error() string {
	return fmt.Sprintf("conflict resolver failed for module %s: %s", e.Module, e.Cause)
}

func (e *ConflictResolverFailure) traceString() string { return e.Error() }

func (e *ConflictResolverFailure) Unwrap() error { return e.Cause }

// MetadataResolveFailure surfaces from the parallel prefetch phase of
// resolveEdges (spec.md SS4.1 step 2) back into the single-threaded
// attachment phase, which records it on the affected edge.
type MetadataResolveFailure struct {
	Component ComponentID
	Cause     error
}

func (e *MetadataResolveFailure) Error() string {
	return fmt.Sprintf("metadata resolution failed for %s: %s", e.Component, e.Cause)
}

func (e *MetadataResolveFailure) traceString() string { return e.Error() }

func (e *MetadataResolveFailure) Unwrap() error { return e.Cause }

// wrapf is a small helper over pkg/errors.Wrapf kept local so every
// external-interface boundary in this package wraps consistently.
func wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, format, args...)
}
