package resolve_test

import (
	"context"
	"strings"
	"testing"

	"github.com/modgraph/resolve"
	"github.com/modgraph/resolve/internal/resolvetest"
)

func paramsFor(u *resolvetest.Universe, rootDeps ...resolvetest.Decl) resolve.SolveParameters {
	var deps []resolve.EdgeDeclaration
	for _, d := range rootDeps {
		deps = append(deps, resolve.EdgeDeclaration{
			Target:     resolvetest.MkID(d.Module),
			Constraint: resolvetest.MkConstraint(d.Range, d.Force, d.Strict),
		})
	}
	return resolve.SolveParameters{
		RootContext: resolve.ResolveContext{
			Root:         resolvetest.MkID("root"),
			Version:      resolve.NewVersion("0.0.0"),
			Dependencies: deps,
		},
		IdResolver:       resolvetest.IDResolver{U: u},
		MetadataResolver: resolvetest.MetadataResolver{U: u},
		ContextResolver:  resolvetest.ContextResolver{},
		AttributeMatcher: resolvetest.SingleConfiguration{},
		Queue:            resolvetest.SerialQueue{},
	}
}

func hasNode(nodes []string, module, version string) bool {
	target := "fixture:" + module + ":" + version
	for _, n := range nodes {
		if n == target {
			return true
		}
	}
	return false
}

// S1: Root -> A[1.0] -> B[1.0]. Both end up selected.
func TestSimpleTransitive(t *testing.T) {
	u := resolvetest.NewUniverse(
		resolvetest.Depspec{Name: "A", Version: "1.0.0", Deps: []resolvetest.Decl{{Module: "B"}}},
		resolvetest.Depspec{Name: "B", Version: "1.0.0"},
	)
	params := paramsFor(u, resolvetest.Decl{Module: "A"})
	visitor := &resolvetest.RecordingVisitor{}
	params.Visitor = visitor

	if err := resolve.Resolve(context.Background(), params); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !hasNode(visitor.Nodes, "A", "1.0.0") || !hasNode(visitor.Nodes, "B", "1.0.0") {
		t.Fatalf("expected A=1.0.0 and B=1.0.0 visited, got %v", visitor.Nodes)
	}

	aToB := indexOf(visitor.Edges, "fixture:A:1.0.0->fixture:B:1.0.0")
	rootToA := indexOf(visitor.Edges, "fixture:root:0.0.0->fixture:A:1.0.0")
	if aToB < 0 || rootToA < 0 {
		t.Fatalf("expected both A->B and root->A edges reported, got %v", visitor.Edges)
	}
	if aToB >= rootToA {
		t.Fatalf("expected A->B before root->A (spec.md SS8 S1), got %v", visitor.Edges)
	}
}

func indexOf(edges []string, target string) int {
	for i, e := range edges {
		if e == target {
			return i
		}
	}
	return -1
}

// S2: Root -> A[1.0], Root -> C[1.0]; A -> B[<2.0.0]; C -> B[unconstrained].
// Highest-version conflict resolution must land on B=2.0.0, and A's edge to
// B must resolve to 2.0.0 after the restart (not the 1.0.0 it first saw).
func TestConflictHighestWins(t *testing.T) {
	u := resolvetest.NewUniverse(
		resolvetest.Depspec{Name: "A", Version: "1.0.0", Deps: []resolvetest.Decl{{Module: "B", Range: "<2.0.0"}}},
		resolvetest.Depspec{Name: "C", Version: "1.0.0", Deps: []resolvetest.Decl{{Module: "B"}}},
		resolvetest.Depspec{Name: "B", Version: "1.0.0"},
		resolvetest.Depspec{Name: "B", Version: "2.0.0"},
	)
	params := paramsFor(u, resolvetest.Decl{Module: "A"}, resolvetest.Decl{Module: "C"})
	visitor := &resolvetest.RecordingVisitor{}
	params.Visitor = visitor

	if err := resolve.Resolve(context.Background(), params); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if hasNode(visitor.Nodes, "B", "1.0.0") {
		t.Fatalf("B=1.0.0 should have been superseded, got %v", visitor.Nodes)
	}
	if !hasNode(visitor.Nodes, "B", "2.0.0") {
		t.Fatalf("expected B=2.0.0 visited, got %v", visitor.Nodes)
	}
	if indexOf(visitor.Edges, "fixture:A:1.0.0->fixture:B:2.0.0") < 0 {
		t.Fatalf("expected A's edge to B retargeted to B=2.0.0, got %v", visitor.Edges)
	}
}

// S3: root forces B=1.0.0 while C depends on B=2.0.0. The forced version
// wins outright, bypassing conflict resolution.
func TestForceWins(t *testing.T) {
	u := resolvetest.NewUniverse(
		resolvetest.Depspec{Name: "C", Version: "1.0.0", Deps: []resolvetest.Decl{{Module: "B", Range: "2.0.0"}}},
		resolvetest.Depspec{Name: "B", Version: "1.0.0"},
		resolvetest.Depspec{Name: "B", Version: "2.0.0"},
	)
	params := paramsFor(u,
		resolvetest.Decl{Module: "B", Range: "1.0.0", Force: true},
		resolvetest.Decl{Module: "C"},
	)
	visitor := &resolvetest.RecordingVisitor{}
	params.Visitor = visitor

	if err := resolve.Resolve(context.Background(), params); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !hasNode(visitor.Nodes, "B", "1.0.0") {
		t.Fatalf("expected forced B=1.0.0 visited, got %v", visitor.Nodes)
	}
	if hasNode(visitor.Nodes, "B", "2.0.0") {
		t.Fatalf("B=2.0.0 should never have been selected over a force, got %v", visitor.Nodes)
	}
}

// S4: root's constraint on A prefers >=1.0.0 but rejects 1.5.0, and the
// repository has only 1.5.0. validateGraph must fail with a
// RejectedSelectionFailure.
func TestRejectFailsValidation(t *testing.T) {
	u := resolvetest.NewUniverse(
		resolvetest.Depspec{Name: "A", Version: "1.5.0"},
	)
	decl := resolvetest.Decl{Module: "A", Range: ">=1.0.0"}
	params := paramsFor(u, decl)

	rootDecl := resolve.EdgeDeclaration{
		Target: resolvetest.MkID("A"),
		Constraint: resolve.VersionConstraint{
			Preferred: resolve.NewSemverRangeSelector(">=1.0.0"),
			Rejected:  resolve.NewExactSelector("1.5.0"),
		},
	}
	params.RootContext.Dependencies = []resolve.EdgeDeclaration{rootDecl}
	params.Visitor = &resolvetest.RecordingVisitor{}

	err := resolve.Resolve(context.Background(), params)
	if err == nil {
		t.Fatal("expected RejectedSelectionFailure, got nil")
	}
	if _, ok := err.(*resolve.RejectedSelectionFailure); !ok {
		t.Fatalf("expected *resolve.RejectedSelectionFailure, got %T: %v", err, err)
	}
}

// S6: Root -> A[1.0] -> B[1.0] -> A[1.0]. The cycle must terminate, with
// every component visited exactly once.
func TestCycleTerminates(t *testing.T) {
	u := resolvetest.NewUniverse(
		resolvetest.Depspec{Name: "A", Version: "1.0.0", Deps: []resolvetest.Decl{{Module: "B"}}},
		resolvetest.Depspec{Name: "B", Version: "1.0.0", Deps: []resolvetest.Decl{{Module: "A"}}},
	)
	params := paramsFor(u, resolvetest.Decl{Module: "A"})
	visitor := &resolvetest.RecordingVisitor{}
	params.Visitor = visitor

	if err := resolve.Resolve(context.Background(), params); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	count := make(map[string]int)
	for _, n := range visitor.Nodes {
		count[n]++
	}
	for n, c := range count {
		if c != 1 {
			t.Fatalf("expected %s visited exactly once, got %d (%v)", n, c, visitor.Nodes)
		}
	}
	if !hasNode(visitor.Nodes, "A", "1.0.0") || !hasNode(visitor.Nodes, "B", "1.0.0") {
		t.Fatalf("expected both A and B visited, got %v", visitor.Nodes)
	}
}

// S5: Root -> D[1.0]; E[1.0] -> D[>=1.0.0]. Only one id resolution is
// performed for D; E's selector reuses the result root's selector already
// obtained.
func TestShortCircuitReuse(t *testing.T) {
	u := resolvetest.NewUniverse(
		resolvetest.Depspec{Name: "D", Version: "1.0.0"},
		resolvetest.Depspec{Name: "E", Version: "1.0.0", Deps: []resolvetest.Decl{{Module: "D", Range: ">=1.0.0"}}},
	)
	calls := make(map[string]int)
	idr := resolvetest.IDResolver{U: u, Calls: calls}

	params := paramsFor(u, resolvetest.Decl{Module: "D"}, resolvetest.Decl{Module: "E"})
	params.IdResolver = idr
	visitor := &resolvetest.RecordingVisitor{}
	params.Visitor = visitor

	if err := resolve.Resolve(context.Background(), params); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !hasNode(visitor.Nodes, "D", "1.0.0") || !hasNode(visitor.Nodes, "E", "1.0.0") {
		t.Fatalf("expected D=1.0.0 and E=1.0.0 visited, got %v", visitor.Nodes)
	}
	if got := calls["fixture:D"]; got != 1 {
		t.Fatalf("expected exactly one id resolution for D, got %d", got)
	}
}

func TestModuleVersionIDString(t *testing.T) {
	mvi := resolve.ModuleVersionID{Module: resolve.ModuleID{Group: "g", Name: "n"}, Version: resolve.NewVersion("1.2.3")}
	if got := mvi.String(); !strings.Contains(got, "1.2.3") {
		t.Fatalf("String() = %q, want it to contain the version", got)
	}
}
