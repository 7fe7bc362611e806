package engine

import "github.com/swissarmyhammer-go/swissarmyhammer/internal/catalog"

// catalogResolver adapts a catalog.Snapshot to liquid.PartialResolver.
// Tier precedence is already resolved per-name by the snapshot itself (C1
// publishes one winning artifact per name), so resolution here is a plain
// lookup.
type catalogResolver struct {
	snap *catalog.Snapshot
}

func (r catalogResolver) ResolvePartial(name string) (string, bool) {
	if r.snap == nil {
		return "", false
	}
	p, ok := r.snap.Prompt(name)
	if !ok {
		return "", false
	}
	return p.Template, true
}
