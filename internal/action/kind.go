package action

import (
	"fmt"
	"strings"
)

// Kind is the operation an Executor performs.
type Kind int

const (
	Read Kind = iota + 1
	Write
	Update
	Delete
	Clear
)

var kindNames = map[Kind]string{
	Read:   "read",
	Write:  "write",
	Update: "update",
	Delete: "delete",
	Clear:  "clear",
}

// Kinds returns every valid kind in declaration order.
func Kinds() []Kind {
	return []Kind{Read, Write, Update, Delete, Clear}
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("Kind(%d)", int(k))
}

// Valid reports whether k is a declared kind.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// ReadOnly reports whether k leaves the collection unmodified.
func (k Kind) ReadOnly() bool {
	return k == Read
}

// ParseKind converts a kind name (case-insensitive).
func ParseKind(s string) (Kind, error) {
	want := strings.ToLower(strings.TrimSpace(s))

	for _, k := range Kinds() {
		if kindNames[k] == want {
			return k, nil
		}
	}

	return 0, &InvalidActionError{Value: s}
}

func validKindNames() string {
	names := make([]string, 0, len(kindNames))
	for _, k := range Kinds() {
		names = append(names, k.String())
	}

	return strings.Join(names, ", ")
}
