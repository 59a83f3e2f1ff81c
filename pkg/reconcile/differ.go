package reconcile

import "sort"

// Diff computes the symmetric difference between the desired and current
// attachment target sets: toAdd = desired minus current and
// toRemove = current minus desired. The returned slices are sorted for
// stable display; nothing in the engine depends on their order.
func Diff(desired, current map[string]struct{}) (toAdd, toRemove []string) {
	for id := range desired {
		if _, ok := current[id]; !ok {
			toAdd = append(toAdd, id)
		}
	}
	for id := range current {
		if _, ok := desired[id]; !ok {
			toRemove = append(toRemove, id)
		}
	}

	sort.Strings(toAdd)
	sort.Strings(toRemove)
	return toAdd, toRemove
}
