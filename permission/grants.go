package permission

import (
	"fmt"
	"sort"
	"sync"
)

// GrantTable maps a grant holder (a role or a privilege tag) to the mask it
// confers on each resource.
//
// GrantTable instances are configured during initialization, frozen, and then
// treated as immutable.
type GrantTable struct {
	mu     sync.RWMutex
	grants map[string]map[string]Mask
	frozen bool
}

// NewGrantTable returns an empty, unfrozen table.
func NewGrantTable() *GrantTable {
	return &GrantTable{grants: make(map[string]map[string]Mask)}
}

// Grant adds m to the mask holder has on resource. Repeated grants for the
// same pair are combined with OR.
func (g *GrantTable) Grant(holder, resource string, m Mask) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.frozen {
		return ErrFrozen
	}
	if holder == "" {
		return fmt.Errorf("grant holder cannot be empty")
	}
	if resource == "" {
		return fmt.Errorf("grant resource cannot be empty for %s", holder)
	}

	byResource, ok := g.grants[holder]
	if !ok {
		byResource = make(map[string]Mask)
		g.grants[holder] = byResource
	}
	byResource[resource] = byResource[resource].Union(m)
	return nil
}

// GrantActions is [GrantTable.Grant] with the mask encoded from actions.
func (g *GrantTable) GrantActions(table *ActionTable, holder, resource string, actions ...Action) error {
	m, err := table.Encode(actions)
	if err != nil {
		return err
	}
	return g.Grant(holder, resource, m)
}

// Freeze prevents further grants.
func (g *GrantTable) Freeze() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.frozen = true
}

// Frozen reports whether [GrantTable.Freeze] has been called.
func (g *GrantTable) Frozen() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.frozen
}

// Lookup returns the mask holder has on resource. The second result is
// false when holder is not in the table at all.
func (g *GrantTable) Lookup(holder, resource string) (Mask, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	byResource, ok := g.grants[holder]
	if !ok {
		return 0, false
	}
	return byResource[resource], true
}

// Has reports whether holder has any entry in the table.
func (g *GrantTable) Has(holder string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.grants[holder]
	return ok
}

// Holders returns every holder, sorted.
func (g *GrantTable) Holders() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]string, 0, len(g.grants))
	for holder := range g.grants {
		out = append(out, holder)
	}
	sort.Strings(out)
	return out
}

// Resources returns a copy of the resource masks for holder.
func (g *GrantTable) Resources(holder string) map[string]Mask {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make(map[string]Mask, len(g.grants[holder]))
	for resource, m := range g.grants[holder] {
		out[resource] = m
	}
	return out
}

// Count returns the number of holders.
func (g *GrantTable) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.grants)
}
