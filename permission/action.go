package permission

import (
	"fmt"
	"math/bits"
	"sort"
	"strings"
	"sync"
)

// Action names a single operation kind on a resource.
type Action string

// Canonical actions and their flags.
const (
	ActionView    Action = "VIEW"
	ActionCreate  Action = "CREATE"
	ActionEdit    Action = "EDIT"
	ActionDelete  Action = "DELETE"
	ActionManage  Action = "MANAGE"
	ActionApprove Action = "APPROVE"
	ActionExecute Action = "EXECUTE"
)

var canonicalFlags = []struct {
	action Action
	flag   Mask
}{
	{ActionView, 0x0001},
	{ActionCreate, 0x0002},
	{ActionEdit, 0x0004},
	{ActionDelete, 0x0008},
	{ActionManage, 0x0010},
	{ActionApprove, 0x0020},
	{ActionExecute, 0x0040},
}

// ParseAction normalizes a user supplied action name. Matching is
// case-insensitive and ignores surrounding whitespace.
func ParseAction(name string) Action {
	return Action(strings.ToUpper(strings.TrimSpace(name)))
}

// ActionTable maps action names to single-bit flags within a [Mask].
//
// Tables are populated with [ActionTable.Register] and then frozen. A frozen
// table never changes and can be shared across goroutines.
type ActionTable struct {
	mu         sync.RWMutex
	nameToFlag map[Action]Mask
	flagToName map[Mask]Action
	frozen     bool
}

// NewActionTable returns an empty, unfrozen table.
func NewActionTable() *ActionTable {
	return &ActionTable{
		nameToFlag: make(map[Action]Mask),
		flagToName: make(map[Mask]Action),
	}
}

var canonicalTable = sync.OnceValue(func() *ActionTable {
	t := NewActionTable()
	for _, entry := range canonicalFlags {
		if err := t.Register(entry.action, entry.flag); err != nil {
			panic("permission: canonical action table: " + err.Error())
		}
	}
	t.Freeze()
	return t
})

// Canonical returns the frozen table holding the seven platform actions
// VIEW through EXECUTE.
func Canonical() *ActionTable {
	return canonicalTable()
}

// Register binds action to flag. The flag must be a single bit that no
// other action uses. Must be called before [ActionTable.Freeze].
func (t *ActionTable) Register(action Action, flag Mask) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.frozen {
		return ErrFrozen
	}
	if action == "" || ParseAction(string(action)) != action {
		return fmt.Errorf("%w: action name %q must be non-empty upper case", ErrInvalidAction, action)
	}
	if bits.OnesCount16(uint16(flag)) != 1 {
		return fmt.Errorf("%w: flag %s for %s is not a single bit", ErrMalformedMask, flag, action)
	}
	if _, exists := t.nameToFlag[action]; exists {
		return fmt.Errorf("%w: action %s", ErrDuplicate, action)
	}
	if other, exists := t.flagToName[flag]; exists {
		return fmt.Errorf("%w: flag %s already bound to %s", ErrDuplicate, flag, other)
	}

	t.nameToFlag[action] = flag
	t.flagToName[flag] = action
	return nil
}

// Freeze prevents further registrations.
func (t *ActionTable) Freeze() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frozen = true
}

// Frozen reports whether [ActionTable.Freeze] has been called.
func (t *ActionTable) Frozen() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.frozen
}

// FlagFor returns the flag bound to action, or [ErrInvalidAction].
func (t *ActionTable) FlagFor(action Action) (Mask, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	flag, ok := t.nameToFlag[action]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAction, string(action))
	}
	return flag, nil
}

// Encode combines the flags of every action with bitwise OR. An empty set
// encodes to 0x0000. Any unknown action fails the whole call.
func (t *ActionTable) Encode(actions []Action) (Mask, error) {
	var m Mask
	for _, action := range actions {
		flag, err := t.FlagFor(action)
		if err != nil {
			return 0, err
		}
		m = m.Union(flag)
	}
	return m, nil
}

// EncodeNames is [ActionTable.Encode] over raw names, normalized with
// [ParseAction].
func (t *ActionTable) EncodeNames(names []string) (Mask, error) {
	actions := make([]Action, 0, len(names))
	for _, name := range names {
		actions = append(actions, ParseAction(name))
	}
	return t.Encode(actions)
}

// Actions lists the registered actions present in m, lowest bit first.
// Bits with no registered action are skipped.
func (t *ActionTable) Actions(m Mask) []Action {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Action, 0, bits.OnesCount16(uint16(m)))
	for bit := 0; bit < 16; bit++ {
		flag := Mask(1) << bit
		if !m.Has(flag) {
			continue
		}
		if name, ok := t.flagToName[flag]; ok {
			out = append(out, name)
		}
	}
	return out
}

// Names returns every registered action ordered by flag.
func (t *ActionTable) Names() []Action {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Action, 0, len(t.nameToFlag))
	for name := range t.nameToFlag {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool {
		return t.nameToFlag[out[i]] < t.nameToFlag[out[j]]
	})
	return out
}

// Count returns the number of registered actions.
func (t *ActionTable) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.nameToFlag)
}
