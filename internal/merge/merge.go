// Package merge reconciles a remote full-entity snapshot into local
// collections: union by id, remote wins on colliding ids, local-only
// entries are never removed.
package merge

// Entity is any record with a unique identity.
type Entity interface {
	EntityID() string
}

// ByID overlays remote entries onto local ones. A remote record fully
// replaces its local counterpart with the same id, even if the local copy is
// newer; local mutations are also queued in the outbox and get re-asserted
// upstream on the next push. Output order is deterministic: local order
// first (with replacements in place), then remote-only entries in remote
// order. The merge is idempotent for a fixed remote collection.
func ByID[T Entity](local, remote []T) []T {
	incoming := make(map[string]T, len(remote))
	for _, item := range remote {
		incoming[item.EntityID()] = item
	}

	merged := make([]T, 0, len(local)+len(remote))
	seen := make(map[string]bool, len(local))
	for _, item := range local {
		id := item.EntityID()
		if seen[id] {
			continue
		}
		seen[id] = true
		if replacement, ok := incoming[id]; ok {
			merged = append(merged, replacement)
			continue
		}
		merged = append(merged, item)
	}
	for _, item := range remote {
		if seen[item.EntityID()] {
			continue
		}
		seen[item.EntityID()] = true
		merged = append(merged, item)
	}
	return merged
}
