package session

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownRater is returned when selecting a rater outside the labeler list.
	ErrUnknownRater = errors.New("session: unknown rater")
	// ErrIndexOutOfRange is returned when jumping outside the corpus.
	ErrIndexOutOfRange = errors.New("session: document index out of range")
)

// Saver persists the rating store before the navigator moves.
type Saver interface {
	Save() error
}

// SaverFunc adapts a function to Saver.
type SaverFunc func() error

// Save calls f.
func (f SaverFunc) Save() error { return f() }

// Navigator tracks which rater is active and which document is shown.
// The index always stays within [0, size); previous and next wrap around.
type Navigator struct {
	size   int
	index  int
	rater  string
	raters []string
	saver  Saver
}

// NewNavigator starts at document 0 with no rater selected.
func NewNavigator(size int, raters []string, saver Saver) (*Navigator, error) {
	if size <= 0 {
		return nil, fmt.Errorf("session: corpus is empty")
	}
	if saver == nil {
		return nil, fmt.Errorf("session: saver is required")
	}
	return &Navigator{
		size:   size,
		raters: append([]string(nil), raters...),
		saver:  saver,
	}, nil
}

// Index returns the current document index.
func (n *Navigator) Index() int { return n.index }

// Size returns the corpus size.
func (n *Navigator) Size() int { return n.size }

// Rater returns the selected rater, or "" if none has been chosen.
func (n *Navigator) Rater() string { return n.rater }

// HasRater reports whether a rater has been chosen.
func (n *Navigator) HasRater() bool { return n.rater != "" }

// Raters returns the fixed labeler list.
func (n *Navigator) Raters() []string { return append([]string(nil), n.raters...) }

// SelectRater switches the active rater. The store is not touched.
func (n *Navigator) SelectRater(id string) error {
	for _, candidate := range n.raters {
		if candidate == id {
			n.rater = id
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownRater, id)
}

// SelectDocument jumps straight to index without persisting.
func (n *Navigator) SelectDocument(index int) error {
	if index < 0 || index >= n.size {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, index, n.size)
	}
	n.index = index
	return nil
}

// SaveAndPrevious persists, then moves to the previous document. The index
// is unchanged when the save fails.
func (n *Navigator) SaveAndPrevious() error {
	return n.saveAndMove(-1)
}

// SaveAndNext persists, then moves to the next document. The index is
// unchanged when the save fails.
func (n *Navigator) SaveAndNext() error {
	return n.saveAndMove(1)
}

func (n *Navigator) saveAndMove(step int) error {
	if err := n.saver.Save(); err != nil {
		return err
	}
	n.index = ((n.index+step)%n.size + n.size) % n.size
	return nil
}
