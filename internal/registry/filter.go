// internal/registry/filter.go
package registry

import (
	"strings"

	"macscan/internal/model"
)

// Filter narrows a registry snapshot. A nil filter matches everything.
type Filter struct {
	// Statuses limits the result to records in any of these states.
	// Empty means all states.
	Statuses []model.RecordStatus

	// Query is a case-insensitive substring matched against port ID, MAC
	// and status label, mirroring the desktop tool's search box.
	Query string
}

func (f *Filter) matches(rec *model.Record) bool {
	if f == nil {
		return true
	}

	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if rec.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		haystack := strings.ToLower(rec.PortID + " " + rec.MAC + " " + string(rec.Status))
		if !strings.Contains(haystack, q) {
			return false
		}
	}

	return true
}
