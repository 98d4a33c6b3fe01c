// internal/rating/score.go
//
// A Score is the four-field rating one rater gives one model response on one
// document. Every field starts unset and only becomes a number when the rater
// submits one.

package rating

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrOutOfRange is returned when a star value is outside 1..5.
	ErrOutOfRange = errors.New("rating: stars must be between 1 and 5")
	// ErrUnknownField is returned for field names other than the four score items.
	ErrUnknownField = errors.New("rating: unknown score field")
)

// Field names one of the four score items.
type Field string

const (
	Consistency  Field = "consistency"
	Engagingness Field = "engagingness"
	Humanness    Field = "humanness"
	Memorability Field = "memorability"
)

// Fields lists the score items in display order.
var Fields = []Field{Consistency, Engagingness, Humanness, Memorability}

// Title returns the capitalized field name.
func (f Field) Title() string {
	if f == "" {
		return ""
	}
	return strings.ToUpper(string(f[:1])) + string(f[1:])
}

// Stars is a single star rating. The zero value is Unset.
type Stars int

const (
	Unset    Stars = 0
	MinStars Stars = 1
	MaxStars Stars = 5
)

// NewStars converts an integer into a set star value.
func NewStars(n int) (Stars, error) {
	s := Stars(n)
	if s < MinStars || s > MaxStars {
		return Unset, fmt.Errorf("%w: got %d", ErrOutOfRange, n)
	}
	return s, nil
}

// IsSet reports whether the rater has submitted a value.
func (s Stars) IsSet() bool { return s != Unset }

// Valid reports whether s is Unset or within 1..5.
func (s Stars) Valid() bool {
	return s == Unset || (s >= MinStars && s <= MaxStars)
}

func (s Stars) String() string {
	if s == Unset {
		return "-"
	}
	return fmt.Sprintf("%d", int(s))
}

// MarshalJSON encodes Unset as null.
func (s Stars) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: got %d", ErrOutOfRange, int(s))
	}
	if s == Unset {
		return []byte("null"), nil
	}
	return []byte(fmt.Sprintf("%d", int(s))), nil
}

// UnmarshalJSON accepts null or an integer in 1..5.
func (s *Stars) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*s = Unset
		return nil
	}
	var n json.Number
	if len(trimmed) == 0 || trimmed[0] == '"' {
		return fmt.Errorf("rating: stars must be null or an integer: %s", trimmed)
	}
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("rating: stars must be null or an integer: %s", trimmed)
	}
	v, err := n.Int64()
	if err != nil {
		return fmt.Errorf("rating: stars must be an integer: %s", trimmed)
	}
	parsed, err := NewStars(int(v))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Score holds the four ratings for one (rater, document, model) triple.
type Score struct {
	Consistency  Stars `json:"consistency"`
	Engagingness Stars `json:"engagingness"`
	Humanness    Stars `json:"humanness"`
	Memorability Stars `json:"memorability"`
}

// Get returns the value of a field. Unknown fields read as Unset.
func (s Score) Get(f Field) Stars {
	switch f {
	case Consistency:
		return s.Consistency
	case Engagingness:
		return s.Engagingness
	case Humanness:
		return s.Humanness
	case Memorability:
		return s.Memorability
	}
	return Unset
}

// Set assigns a field. Values outside {Unset, 1..5} are rejected and leave
// the score untouched.
func (s *Score) Set(f Field, v Stars) error {
	if !v.Valid() {
		return fmt.Errorf("%w: %s=%d", ErrOutOfRange, f, int(v))
	}
	switch f {
	case Consistency:
		s.Consistency = v
	case Engagingness:
		s.Engagingness = v
	case Humanness:
		s.Humanness = v
	case Memorability:
		s.Memorability = v
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, string(f))
	}
	return nil
}

// Clear resets a field to Unset.
func (s *Score) Clear(f Field) error {
	return s.Set(f, Unset)
}

// Validate checks every field.
func (s Score) Validate() error {
	for _, f := range Fields {
		if v := s.Get(f); !v.Valid() {
			return fmt.Errorf("%w: %s=%d", ErrOutOfRange, f, int(v))
		}
	}
	return nil
}

// Rated returns how many fields are set.
func (s Score) Rated() int {
	n := 0
	for _, f := range Fields {
		if s.Get(f).IsSet() {
			n++
		}
	}
	return n
}

// Complete reports whether all four fields are set.
func (s Score) Complete() bool { return s.Rated() == len(Fields) }

// IsZero reports whether no field is set.
func (s Score) IsZero() bool { return s.Rated() == 0 }

// UnmarshalJSON maps known fields onto the score and leaves missing or
// unrecognized ones unset. Out-of-range values fail the decode.
func (s *Score) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = Score{}
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("rating: score must be an object: %w", err)
	}
	var parsed Score
	for _, f := range Fields {
		value, ok := raw[string(f)]
		if !ok {
			continue
		}
		var stars Stars
		if err := stars.UnmarshalJSON(value); err != nil {
			return fmt.Errorf("rating: field %s: %w", f, err)
		}
		if err := parsed.Set(f, stars); err != nil {
			return err
		}
	}
	*s = parsed
	return nil
}
