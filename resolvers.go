package resolve

import "fmt"

// HighestVersionResolver is the default, built-in conflict resolution
// strategy: "highest version wins" (spec.md SS4.4: "typically highest
// version wins"). It implements both ModuleConflictResolver and
// CapabilitiesConflictResolver, since both interfaces share the same
// Select shape.
type HighestVersionResolver struct{}

// Select returns the candidate with the greatest Version. It fails only
// when given no candidates at all.
func (HighestVersionResolver) Select(candidates []*ComponentState) (*ComponentState, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("resolve: no candidates to choose among")
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if best.Version().Less(c.Version()) {
			best = c
		}
	}
	return best, nil
}
