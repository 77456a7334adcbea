package permission

import (
	"fmt"
	"strings"
)

// Required is one permission an operation needs: every action in Actions
// on Resource.
type Required struct {
	Resource string
	Actions  []Action
}

// String renders the requirement as "resource:ACTION|ACTION".
func (r Required) String() string {
	names := make([]string, 0, len(r.Actions))
	for _, a := range r.Actions {
		names = append(names, string(a))
	}
	return r.Resource + ":" + strings.Join(names, "|")
}

// Subject is the authorization view of a validated session.
type Subject struct {
	Roles      []Role
	Privileges []string
	// Explicit holds masks assigned directly to the user, keyed by resource.
	Explicit map[string]Mask
}

// Decision is the outcome of an evaluation. A denial is a normal value,
// not an error.
type Decision struct {
	Granted bool
	// Resource is the first requirement that failed, empty when granted.
	Resource string
	// Missing lists the actions absent from the effective mask of Resource.
	Missing []Action
	// Reason is a short machine-friendly explanation.
	Reason string
	// Roles is the expanded role set the decision was made with. Only
	// [Evaluator.Evaluate] fills it.
	Roles []Role
}

// Decision reasons.
const (
	ReasonGranted         = "granted"
	ReasonMissingActions  = "missing_actions"
	ReasonNoneSatisfied   = "no_alternative_satisfied"
	ReasonEmptyAlternates = "empty_alternatives"
)

// Evaluator decides whether a [Subject] holds a set of [Required]
// permissions. Its tables are shared by reference and must be frozen
// before use.
type Evaluator struct {
	actions    *ActionTable
	hierarchy  *Hierarchy
	roles      *GrantTable
	privileges *GrantTable
}

// NewEvaluator wires the evaluator to its static tables. privileges may be
// nil when no privilege tags grant anything.
func NewEvaluator(actions *ActionTable, hierarchy *Hierarchy, roles, privileges *GrantTable) (*Evaluator, error) {
	if actions == nil || hierarchy == nil || roles == nil {
		return nil, fmt.Errorf("permission: evaluator requires action table, hierarchy and role grants")
	}
	if !actions.Frozen() || !roles.Frozen() {
		return nil, fmt.Errorf("permission: evaluator tables must be frozen")
	}
	if privileges == nil {
		privileges = NewGrantTable()
		privileges.Freeze()
	} else if !privileges.Frozen() {
		return nil, fmt.Errorf("permission: evaluator tables must be frozen")
	}
	return &Evaluator{
		actions:    actions,
		hierarchy:  hierarchy,
		roles:      roles,
		privileges: privileges,
	}, nil
}

// Actions returns the action table used by the evaluator.
func (e *Evaluator) Actions() *ActionTable { return e.actions }

// Hierarchy returns the role hierarchy used by the evaluator.
func (e *Evaluator) Hierarchy() *Hierarchy { return e.hierarchy }

// EffectiveMask is the OR of the subject's explicit mask for resource, the
// grants of every role in the expanded role set, and the grants of every
// privilege tag. Unknown privilege tags contribute nothing; unknown roles
// fail with [ErrUnknownRole].
func (e *Evaluator) EffectiveMask(subject Subject, resource string) (Mask, error) {
	expanded, err := e.hierarchy.ExpandAll(subject.Roles)
	if err != nil {
		return 0, err
	}

	effective := subject.Explicit[resource]
	for _, role := range expanded {
		if m, ok := e.roles.Lookup(string(role), resource); ok {
			effective = effective.Union(m)
		}
	}
	for _, tag := range subject.Privileges {
		if m, ok := e.privileges.Lookup(tag, resource); ok {
			effective = effective.Union(m)
		}
	}
	return effective, nil
}

// EvaluateOne decides a single requirement.
func (e *Evaluator) EvaluateOne(subject Subject, required Required) (Decision, error) {
	want, err := e.actions.Encode(required.Actions)
	if err != nil {
		return Decision{}, err
	}
	have, err := e.EffectiveMask(subject, required.Resource)
	if err != nil {
		return Decision{}, err
	}
	if Contains(have, want) {
		return Decision{Granted: true, Reason: ReasonGranted}, nil
	}
	return Decision{
		Granted:  false,
		Resource: required.Resource,
		Missing:  e.actions.Actions(have.Missing(want)),
		Reason:   ReasonMissingActions,
	}, nil
}

// Evaluate decides a list of requirements. With requireAll every element
// must grant, so an empty list grants. Without it at least one element
// must grant, so an empty list denies.
//
// Every requirement is encoded before any decision is made, so a
// malformed entry is reported even when an earlier entry already settles
// the outcome.
func (e *Evaluator) Evaluate(subject Subject, required []Required, requireAll bool) (Decision, error) {
	for _, r := range required {
		if _, err := e.actions.Encode(r.Actions); err != nil {
			return Decision{}, err
		}
	}
	expanded, err := e.hierarchy.ExpandAll(subject.Roles)
	if err != nil {
		return Decision{}, err
	}

	d, err := e.decide(subject, required, requireAll)
	if err != nil {
		return Decision{}, err
	}
	d.Roles = expanded
	return d, nil
}

func (e *Evaluator) decide(subject Subject, required []Required, requireAll bool) (Decision, error) {
	if len(required) == 0 {
		if requireAll {
			return Decision{Granted: true, Reason: ReasonGranted}, nil
		}
		return Decision{Reason: ReasonEmptyAlternates}, nil
	}

	var firstDenial Decision
	for i, r := range required {
		d, err := e.EvaluateOne(subject, r)
		if err != nil {
			return Decision{}, err
		}
		if requireAll && !d.Granted {
			return d, nil
		}
		if !requireAll && d.Granted {
			return d, nil
		}
		if i == 0 {
			firstDenial = d
		}
	}

	if requireAll {
		return Decision{Granted: true, Reason: ReasonGranted}, nil
	}
	firstDenial.Reason = ReasonNoneSatisfied
	return firstDenial, nil
}
