// internal/engine/diff.go
package engine

import "sort"

// Diff compares the current port snapshot against the set of ports the
// registry considers active and returns what appeared and what disappeared,
// both sorted. Pure function; all timing and side effects live in the
// scheduler.
func Diff(snapshot []string, knownActive map[string]struct{}) (appeared, disappeared []string) {
	current := make(map[string]struct{}, len(snapshot))
	for _, port := range snapshot {
		current[port] = struct{}{}
		if _, ok := knownActive[port]; !ok {
			appeared = append(appeared, port)
		}
	}

	for port := range knownActive {
		if _, ok := current[port]; !ok {
			disappeared = append(disappeared, port)
		}
	}

	sort.Strings(appeared)
	sort.Strings(disappeared)
	return appeared, disappeared
}
