// Package ranking trims hull reports to their most central classes.
package ranking

import (
	"sort"

	"github.com/phobologic/classhull/internal/model"
)

// SelectClasses returns a new HullReport with only the n highest-ranked
// classes, kept in discovery order, and the dependencies between them. The
// start class is always kept. If n is <= 0 or >= len(Classes), rep is
// returned unchanged.
func SelectClasses(rep *model.HullReport, n int) *model.HullReport {
	if n <= 0 || n >= len(rep.Classes) {
		return rep
	}

	order := make([]int, len(rep.Classes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ca, cb := &rep.Classes[order[a]], &rep.Classes[order[b]]
		if (ca.Name == rep.Start) != (cb.Name == rep.Start) {
			return ca.Name == rep.Start
		}
		return ca.Rank > cb.Rank
	})

	keep := make([]bool, len(rep.Classes))
	for _, i := range order[:n] {
		keep[i] = true
	}

	selected := make([]model.ClassEntry, 0, n)
	names := make(map[string]struct{}, n)
	for i := range rep.Classes {
		if keep[i] {
			selected = append(selected, rep.Classes[i])
			names[rep.Classes[i].Name] = struct{}{}
		}
	}

	var deps []model.Dependency
	for i := range rep.Dependencies {
		d := &rep.Dependencies[i]
		_, srcOK := names[d.Source]
		_, tgtOK := names[d.Target]
		if srcOK && tgtOK {
			deps = append(deps, *d)
		}
	}

	return &model.HullReport{
		Start:        rep.Start,
		Classes:      selected,
		Dependencies: deps,
		Stats:        rep.Stats,
	}
}
