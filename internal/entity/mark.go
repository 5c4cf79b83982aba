package entity

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrUnknownMark = errors.New("unknown mark")

// Mark is the content of a board cell, or the player whose turn it is.
type Mark uint8

const (
	MarkEmpty Mark = iota
	MarkX
	MarkO
)

func (that Mark) String() string {
	switch that {
	case MarkX:
		return "X"
	case MarkO:
		return "O"
	default:
		return ""
	}
}

func (that Mark) IsEmpty() bool {
	return that == MarkEmpty
}

// Opponent returns the other player's mark. MarkEmpty has no opponent.
func (that Mark) Opponent() Mark {
	switch that {
	case MarkX:
		return MarkO
	case MarkO:
		return MarkX
	default:
		return MarkEmpty
	}
}

// ParseMark accepts "X", "O" and "" (empty).
func ParseMark(value string) (Mark, error) {
	switch value {
	case "X":
		return MarkX, nil
	case "O":
		return MarkO, nil
	case "":
		return MarkEmpty, nil
	default:
		return MarkEmpty, fmt.Errorf("%w: %q", ErrUnknownMark, value)
	}
}

// MarshalJSON encodes an empty cell as null and a player as "X" or "O".
func (that Mark) MarshalJSON() ([]byte, error) {
	if that.IsEmpty() {
		return []byte("null"), nil
	}

	return json.Marshal(that.String())
}

func (that *Mark) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*that = MarkEmpty
		return nil
	}

	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return fmt.Errorf("failed to decode mark: %w", err)
	}

	mark, err := ParseMark(value)
	if err != nil {
		return err
	}

	*that = mark

	return nil
}
