package rating

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// ModelOrder is the blinded presentation order for one session. It is
// shuffled once at construction and never changes afterwards, so "Model 2"
// means the same identifier for every document the rater sees.
type ModelOrder struct {
	ids []string
}

// NewModelOrder shuffles the configured model identifiers. Blank and
// duplicate identifiers are dropped. A nil rng uses a time-seeded source.
func NewModelOrder(models []string, rng *rand.Rand) *ModelOrder {
	seen := make(map[string]struct{}, len(models))
	ids := make([]string, 0, len(models))
	for _, m := range models {
		id := strings.TrimSpace(m)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	rng.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})
	return &ModelOrder{ids: ids}
}

// IDs returns a copy of the order.
func (o *ModelOrder) IDs() []string {
	if o == nil {
		return nil
	}
	out := make([]string, len(o.ids))
	copy(out, o.ids)
	return out
}

// Len returns the number of models.
func (o *ModelOrder) Len() int {
	if o == nil {
		return 0
	}
	return len(o.ids)
}

// At returns the identifier shown at position i.
func (o *ModelOrder) At(i int) string {
	if o == nil || i < 0 || i >= len(o.ids) {
		return ""
	}
	return o.ids[i]
}

// Index returns the display position of id, or -1.
func (o *ModelOrder) Index(id string) int {
	if o == nil {
		return -1
	}
	for i, candidate := range o.ids {
		if candidate == id {
			return i
		}
	}
	return -1
}

// Contains reports whether id is part of the order.
func (o *ModelOrder) Contains(id string) bool { return o.Index(id) >= 0 }

// Label returns the blinded display name for position i.
func Label(i int) string {
	return fmt.Sprintf("Model %d", i+1)
}
