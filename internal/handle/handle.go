package handle

import (
	"fmt"
	"strings"
)

// ID identifies one of the ten on-map handles
type ID int

const (
	NW ID = iota
	NE
	SE
	SW
	N
	E
	S
	W
	Move
	Rotate
)

// Kind groups handles by the gesture they drive
type Kind int

const (
	KindCorner Kind = iota
	KindEdge
	KindMove
	KindRotate
)

var idNames = [...]string{"nw", "ne", "se", "sw", "n", "e", "s", "w", "move", "rotate"}

func (id ID) String() string {
	if id < 0 || int(id) >= len(idNames) {
		return fmt.Sprintf("handle(%d)", int(id))
	}
	return idNames[id]
}

// Kind classifies the handle
func (id ID) Kind() Kind {
	switch {
	case id <= SW:
		return KindCorner
	case id <= W:
		return KindEdge
	case id == Move:
		return KindMove
	default:
		return KindRotate
	}
}

// Valid reports whether id names a real handle
func (id ID) Valid() bool {
	return id >= NW && id <= Rotate
}

// ParseID accepts a handle name (nw, e, move, rotate, ...)
func ParseID(s string) (ID, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range idNames {
		if name == s {
			return ID(i), nil
		}
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownHandle, s)
}
