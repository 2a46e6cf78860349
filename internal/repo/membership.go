package repo

// categorySentinel reports whether a primary category_id is one of the
// "no category" markers some panels emit.
func categorySentinel(id string) bool {
	return id == "0" || id == "-1"
}

// categoryMemberships computes the category list an item belongs to: the
// deduplicated union of its primary category_id (skipped when sentinel or
// absent) and its category_ids list, preserving first-seen order. When both
// are empty it falls back to a single best-effort bucket so the item is never
// dropped: primary unless sentinel, else the first listed ID, else the
// sentinel primary itself, else the literal "0".
func categoryMemberships(primary string, ids []string) []string {
	var out []string
	seen := make(map[string]bool, len(ids)+1)
	add := func(id string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		out = append(out, id)
	}
	if primary != "" && !categorySentinel(primary) {
		add(primary)
	}
	for _, id := range ids {
		add(id)
	}
	if len(out) > 0 {
		return out
	}
	switch {
	case primary != "" && !categorySentinel(primary):
		return []string{primary}
	case len(ids) > 0:
		return []string{ids[0]}
	case primary != "":
		return []string{primary}
	default:
		return []string{"0"}
	}
}
