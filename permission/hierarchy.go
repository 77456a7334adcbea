package permission

import (
	"fmt"
	"strings"
)

// Role is a named position in the [Hierarchy].
type Role string

// Platform roles from most to least senior.
const (
	RoleSuperAdmin   Role = "SUPER_ADMIN"
	RoleAdmin        Role = "ADMIN"
	RoleCompanyAdmin Role = "COMPANY_ADMIN"
	RoleAgent        Role = "AGENT"
	RoleUser         Role = "USER"
)

// DefaultOrder is the platform hierarchy, senior first.
var DefaultOrder = []Role{RoleSuperAdmin, RoleAdmin, RoleCompanyAdmin, RoleAgent, RoleUser}

// ParseRole normalizes a role claim value.
func ParseRole(name string) Role {
	return Role(strings.ToUpper(strings.TrimSpace(name)))
}

// Hierarchy is an immutable total order of roles. Each role implies itself
// and every role below it.
type Hierarchy struct {
	order []Role
	rank  map[Role]int
}

// NewHierarchy builds a hierarchy from order, most senior role first.
// Empty names and duplicates are rejected, so the resulting graph can
// never contain a cycle.
func NewHierarchy(order []Role) (*Hierarchy, error) {
	if len(order) == 0 {
		return nil, fmt.Errorf("%w: hierarchy needs at least one role", ErrUnknownRole)
	}

	h := &Hierarchy{
		order: make([]Role, 0, len(order)),
		rank:  make(map[Role]int, len(order)),
	}
	for i, role := range order {
		if role == "" {
			return nil, fmt.Errorf("%w: empty role at position %d", ErrUnknownRole, i)
		}
		if _, exists := h.rank[role]; exists {
			return nil, fmt.Errorf("%w: role %s", ErrDuplicate, role)
		}
		h.rank[role] = i
		h.order = append(h.order, role)
	}
	return h, nil
}

// DefaultHierarchy returns SUPER_ADMIN > ADMIN > COMPANY_ADMIN > AGENT > USER.
func DefaultHierarchy() *Hierarchy {
	h, err := NewHierarchy(DefaultOrder)
	if err != nil {
		panic("permission: default hierarchy: " + err.Error())
	}
	return h
}

// Contains reports whether role is part of the hierarchy.
func (h *Hierarchy) Contains(role Role) bool {
	_, ok := h.rank[role]
	return ok
}

// Roles returns the hierarchy order, senior first.
func (h *Hierarchy) Roles() []Role {
	out := make([]Role, len(h.order))
	copy(out, h.order)
	return out
}

// Expand returns role followed by every role junior to it.
//
//	Expand(COMPANY_ADMIN) = [COMPANY_ADMIN AGENT USER]
//	Expand(USER)          = [USER]
func (h *Hierarchy) Expand(role Role) ([]Role, error) {
	idx, ok := h.rank[role]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, string(role))
	}
	out := make([]Role, len(h.order)-idx)
	copy(out, h.order[idx:])
	return out, nil
}

// ExpandAll returns the union of [Hierarchy.Expand] over roles, ordered
// senior first. One unknown role fails the whole call.
func (h *Hierarchy) ExpandAll(roles []Role) ([]Role, error) {
	top := len(h.order)
	for _, role := range roles {
		idx, ok := h.rank[role]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownRole, string(role))
		}
		if idx < top {
			top = idx
		}
	}
	if top == len(h.order) {
		return []Role{}, nil
	}
	out := make([]Role, len(h.order)-top)
	copy(out, h.order[top:])
	return out, nil
}
