// Package filter narrows a resource list to one type.
package filter

import (
	"strings"

	"github.com/yairfalse/idler/pkg/resource"
)

// Selection is either All or a single resource type.
type Selection string

// All selects every resource.
const All Selection = "all"

// Parse reads a selection. Empty input and "all" select everything.
func Parse(s string) (Selection, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, string(All)) {
		return All, nil
	}
	t, err := resource.ParseType(s)
	if err != nil {
		return "", err
	}
	return Of(t), nil
}

// Of selects a single type.
func Of(t resource.Type) Selection {
	return Selection(t)
}

// Matches reports whether r passes the selection.
func (s Selection) Matches(r resource.Resource) bool {
	return s == All || resource.Type(s) == r.Type
}

// ByType returns the resources that pass the selection, in input order.
// The input slice is never modified.
func ByType(resources []resource.Resource, sel Selection) []resource.Resource {
	if sel == All {
		return resources
	}

	filtered := make([]resource.Resource, 0, len(resources))
	for _, r := range resources {
		if sel.Matches(r) {
			filtered = append(filtered, r)
		}
	}
	return filtered
}
