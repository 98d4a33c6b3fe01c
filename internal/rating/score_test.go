package rating

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestNewStarsRange(t *testing.T) {
	for n := 1; n <= 5; n++ {
		s, err := NewStars(n)
		if err != nil {
			t.Fatalf("NewStars(%d): %v", n, err)
		}
		if int(s) != n || !s.IsSet() {
			t.Fatalf("NewStars(%d) = %v", n, s)
		}
	}
	for _, n := range []int{-1, 0, 6, 100} {
		if _, err := NewStars(n); !errors.Is(err, ErrOutOfRange) {
			t.Fatalf("NewStars(%d) should fail with ErrOutOfRange, got %v", n, err)
		}
	}
}

func TestScoreSetValidates(t *testing.T) {
	var score Score
	if err := score.Set(Humanness, 6); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
	if score.Humanness != Unset {
		t.Fatalf("rejected value must not be stored")
	}
	if err := score.Set(Field("fluency"), 3); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
	if err := score.Set(Humanness, 3); err != nil {
		t.Fatalf("set: %v", err)
	}
	if score.Get(Humanness) != 3 || score.Rated() != 1 || score.Complete() {
		t.Fatalf("unexpected score state %+v", score)
	}
	if err := score.Clear(Humanness); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if !score.IsZero() {
		t.Fatalf("clear should unset the field")
	}
}

func TestScoreJSONKeepsAllFourFields(t *testing.T) {
	data, err := json.Marshal(Score{Engagingness: 4})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"consistency":null,"engagingness":4,"humanness":null,"memorability":null}`
	if string(data) != want {
		t.Fatalf("got %s want %s", data, want)
	}
	var decoded Score
	if err := json.Unmarshal([]byte(`{"memorability":5}`), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded != (Score{Memorability: 5}) {
		t.Fatalf("missing fields should decode as unset, got %+v", decoded)
	}
}

func TestFieldTitleAndUnknownField(t *testing.T) {
	var s Score
	if err := s.Set(Field("style"), 3); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
	if Consistency.Title() != "Consistency" {
		t.Fatalf("title = %q", Consistency.Title())
	}
}
