package resolve

// validateGraph implements spec.md SS4.5: after the traversal loop empties,
// walk every module and collect any whose selected component has been
// marked rejected (spec.md S4.3.2) into one RejectedSelectionFailure
// covering every rejection found, rather than stopping at the first.
func (rs *ResolveState) validateGraph() error {
	var rejections []RejectedModule
	for _, m := range rs.Modules() {
		sel := m.Selected()
		if sel != nil && sel.Rejected() {
			rejections = append(rejections, RejectedModule{
				Module:    m.ID(),
				Component: sel.ID(),
				Version:   sel.Version(),
			})
		}
	}
	if len(rejections) == 0 {
		return nil
	}
	return &RejectedSelectionFailure{Rejections: rejections}
}
