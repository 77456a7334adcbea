package permission

import "errors"

var (
	// ErrInvalidAction is returned when an action name is not in the action table.
	ErrInvalidAction = errors.New("invalid action")
	// ErrMalformedMask is returned when a mask string is not "0x" plus four hex digits.
	ErrMalformedMask = errors.New("malformed permission mask")
	// ErrUnknownRole is returned when a role is not part of the hierarchy.
	ErrUnknownRole = errors.New("unknown role")
	// ErrFrozen is returned when a table is modified after Freeze.
	ErrFrozen = errors.New("table frozen")
	// ErrDuplicate is returned when a name or bit is registered twice.
	ErrDuplicate = errors.New("already registered")
)
