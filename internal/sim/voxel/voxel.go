package voxel

import (
	"fmt"
	"strings"
)

// Type is the content of a single world cell.
type Type uint8

const (
	Air Type = iota
	Water
	Grass
	Dirt
	Stone
	Log
	Leaves
	Rose
	Dandelion
	Bedrock
)

var names = [...]string{
	Air:       "air",
	Water:     "water",
	Grass:     "grass",
	Dirt:      "dirt",
	Stone:     "stone",
	Log:       "log",
	Leaves:    "leaves",
	Rose:      "rose",
	Dandelion: "dandelion",
	Bedrock:   "bedrock",
}

// All lists every type in declaration order.
func All() []Type {
	out := make([]Type, 0, len(names))
	for i := range names {
		out = append(out, Type(i))
	}
	return out
}

func (t Type) Valid() bool { return int(t) < len(names) }

func (t Type) String() string {
	if !t.Valid() {
		return fmt.Sprintf("voxel(%d)", uint8(t))
	}
	return names[t]
}

// Opaque reports whether the type blocks the view of cells behind it.
func (t Type) Opaque() bool {
	switch t {
	case Air, Water, Leaves, Rose, Dandelion:
		return false
	default:
		return true
	}
}

// UnknownVoxelTypeError is returned by Parse for names that match no type.
type UnknownVoxelTypeError struct {
	Name string
}

func (e *UnknownVoxelTypeError) Error() string {
	return fmt.Sprintf("unknown voxel type: %q", e.Name)
}

// Parse resolves a type name, ignoring case.
func Parse(s string) (Type, error) {
	l := strings.ToLower(s)
	for i, n := range names {
		if n == l {
			return Type(i), nil
		}
	}
	return Air, &UnknownVoxelTypeError{Name: s}
}

func (t Type) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid voxel type %d", uint8(t))
	}
	return []byte(names[t]), nil
}

func (t *Type) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
