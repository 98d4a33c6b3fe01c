package rating

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

type (
	modelScores    map[string]*Score
	documentScores map[string]modelScores
)

// Store holds every rater's scores as rater -> document -> model -> Score.
//
// Reads never fail: Get creates any missing level and a fresh unset Score.
// Because a read materializes its path, the serialized form always reflects
// exactly the keys that have been read or written. A decoded Store behaves
// the same way for keys it has never seen.
type Store struct {
	mu     sync.RWMutex
	raters map[string]documentScores
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{raters: map[string]documentScores{}}
}

// DocumentKey renders a document's ordinal index as its store key.
func DocumentKey(index int) string {
	return strconv.Itoa(index)
}

// NormalizeDocument canonicalizes a document key so that numeric and textual
// forms of the same index share one entry.
func NormalizeDocument(document string) string {
	trimmed := strings.TrimSpace(document)
	if n, err := strconv.Atoi(trimmed); err == nil && n >= 0 {
		return strconv.Itoa(n)
	}
	return trimmed
}

// Get returns the score at the path, creating it unset if it does not exist.
func (s *Store) Get(rater, document, model string) Score {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.entry(rater, NormalizeDocument(document), model)
}

// Set replaces the score at the path.
func (s *Store) Set(rater, document, model string, score Score) error {
	if err := score.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	*s.entry(rater, NormalizeDocument(document), model) = score
	return nil
}

// Rate sets a single field at the path.
func (s *Store) Rate(rater, document, model string, field Field, value Stars) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.entry(rater, NormalizeDocument(document), model)
	next := *entry
	if err := next.Set(field, value); err != nil {
		return err
	}
	*entry = next
	return nil
}

// entry is the get-or-insert walk. Callers hold the write lock.
func (s *Store) entry(rater, document, model string) *Score {
	docs, ok := s.raters[rater]
	if !ok {
		docs = documentScores{}
		s.raters[rater] = docs
	}
	models, ok := docs[document]
	if !ok {
		models = modelScores{}
		docs[document] = models
	}
	score, ok := models[model]
	if !ok {
		score = &Score{}
		models[model] = score
	}
	return score
}

// Has reports whether the path exists without materializing it.
func (s *Store) Has(rater, document, model string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs, ok := s.raters[rater]
	if !ok {
		return false
	}
	models, ok := docs[NormalizeDocument(document)]
	if !ok {
		return false
	}
	_, ok = models[model]
	return ok
}

// Lookup returns the score at the path without materializing it.
func (s *Store) Lookup(rater, document, model string) (Score, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	score, ok := s.raters[rater][NormalizeDocument(document)][model]
	if !ok {
		return Score{}, false
	}
	return *score, true
}

// Raters returns the materialized rater keys, sorted.
func (s *Store) Raters() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.raters)
}

// Documents returns the materialized document keys for a rater, sorted
// numerically where possible.
func (s *Store) Documents(rater string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := sortedKeys(s.raters[rater])
	sort.SliceStable(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		if errA != nil || errB != nil {
			return errA == nil && errB != nil
		}
		return a < b
	})
	return keys
}

// Models returns the materialized model keys for a rater and document, sorted.
func (s *Store) Models(rater, document string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.raters[rater][NormalizeDocument(document)])
}

// Progress counts how many (document, model) pairs the rater has fully
// scored, out of documents x len(models). It does not materialize anything.
func (s *Store) Progress(rater string, documents int, models []string) (done, total int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total = documents * len(models)
	docs := s.raters[rater]
	for i := 0; i < documents; i++ {
		scores := docs[DocumentKey(i)]
		for _, m := range models {
			if score, ok := scores[m]; ok && score.Complete() {
				done++
			}
		}
	}
	return done, total
}

// MarshalJSON encodes the materialized keys. Map keys are sorted by
// encoding/json, so output is deterministic.
func (s *Store) MarshalJSON() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.raters == nil {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s.raters); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalJSON replaces the store contents with the decoded artifact.
func (s *Store) UnmarshalJSON(data []byte) error {
	var raw map[string]map[string]map[string]*Score
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	raters := make(map[string]documentScores, len(raw))
	for rater, docs := range raw {
		decodedDocs := make(documentScores, len(docs))
		for _, doc := range mergeOrder(docs) {
			models := docs[doc]
			key := NormalizeDocument(doc)
			decodedModels, ok := decodedDocs[key]
			if !ok {
				decodedModels = make(modelScores, len(models))
				decodedDocs[key] = decodedModels
			}
			for model, score := range models {
				if score == nil {
					score = &Score{}
				}
				decodedModels[model] = score
			}
		}
		raters[rater] = decodedDocs
	}
	s.mu.Lock()
	s.raters = raters
	s.mu.Unlock()
	return nil
}

// mergeOrder lists document keys so that spellings normalizing to the same
// key merge deterministically: non-canonical spellings first in sorted
// order, the canonical spelling last, so its models win.
func mergeOrder[V any](docs map[string]V) []string {
	keys := sortedKeys(docs)
	sort.SliceStable(keys, func(i, j int) bool {
		ci := NormalizeDocument(keys[i]) == keys[i]
		cj := NormalizeDocument(keys[j]) == keys[j]
		return !ci && cj
	})
	return keys
}

// Bytes renders the storage artifact: four-space indentation, no HTML
// escaping, trailing newline.
func (s *Store) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(s); err != nil {
		return nil, fmt.Errorf("rating: encode store: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a storage artifact into a new store.
func Decode(data []byte) (*Store, error) {
	store := NewStore()
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("rating: decode store: empty artifact")
	}
	if err := json.Unmarshal(data, store); err != nil {
		return nil, fmt.Errorf("rating: decode store: %w", err)
	}
	return store, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
