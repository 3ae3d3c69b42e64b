package action

import (
	"errors"
	"fmt"
)

var (
	// ErrTypeMismatch is returned by New for a nil or closed handle or an
	// empty collection name.
	ErrTypeMismatch = errors.New("type mismatch")

	ErrInvalidIndexName  = errors.New("invalid index name")
	ErrInvalidDurability = errors.New("invalid durability")
	ErrInvalidPayload    = errors.New("invalid payload")

	ErrMissingPayload   = errors.New("payload is required")
	ErrMissingDeleteKey = errors.New("delete key or key range is required")
	ErrNoKeyPath        = errors.New("collection has no inline key path")
	ErrCompositeKeyPath = errors.New("composite key paths are not supported")
	ErrMissingKeyField  = errors.New("payload has no value at the key path")

	// ErrReadFailed wraps read failures that did not come from the engine.
	ErrReadFailed = errors.New("read failed")

	ErrInvalidAction = errors.New("invalid action")
)

// InvalidActionError names an unrecognized action kind.
type InvalidActionError struct {
	Value string
}

func (e *InvalidActionError) Error() string {
	return fmt.Sprintf("invalid action %q: valid actions are %s", e.Value, validKindNames())
}

func (e *InvalidActionError) Is(target error) bool {
	return target == ErrInvalidAction
}
