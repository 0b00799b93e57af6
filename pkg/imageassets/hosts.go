package imageassets

import "sort"

// hostKindSet is the lookup table of host kinds a deployment has registered.
// An empty set disables kind checking, which keeps single-purpose tools and
// tests from having to pre-register anything.
type hostKindSet map[HostKind]struct{}

func (h hostKindSet) register(kind HostKind) {
	h[kind] = struct{}{}
}

func (h hostKindSet) known(kind HostKind) bool {
	if len(h) == 0 {
		return true
	}
	_, ok := h[kind]
	return ok
}

func (h hostKindSet) all() []HostKind {
	kinds := make([]HostKind, 0, len(h))
	for k := range h {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
