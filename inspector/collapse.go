package inspector

import (
	"sort"
	"strings"
)

// Collapse folds every path that extends a shorter recorded path into that
// shorter path and merges their access: granting an object already implies
// its members. The shortest recorded strict prefix wins, and membership is
// checked against the incoming map only, so the outcome does not depend on
// iteration order.
func Collapse(paths map[string]Access) map[string]Access {
	keys := make([]string, 0, len(paths))
	for key := range paths {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	collapsed := make(map[string]Access, len(paths))
	for _, key := range keys {
		target := key
		segments := strings.Split(key, ".")
		for i := 1; i < len(segments); i++ {
			prefix := strings.Join(segments[:i], ".")
			if _, ok := paths[prefix]; ok {
				target = prefix
				break
			}
		}
		collapsed[target] = collapsed[target].Merge(paths[key])
	}
	return collapsed
}
