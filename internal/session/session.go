// internal/session/session.go
//
// A Session is the explicit context for one interactive rating run. It is
// built once at startup and handed to the UI by reference: the restored
// store, the fixed model order and the navigator all live here instead of in
// package globals.

package session

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/kingrea/rating-desk/internal/corpus"
	"github.com/kingrea/rating-desk/internal/logbook"
	"github.com/kingrea/rating-desk/internal/persist"
	"github.com/kingrea/rating-desk/internal/rating"
)

var (
	// ErrNoRater is returned when scoring before a rater is selected.
	ErrNoRater = errors.New("session: no rater selected")
	// ErrUnknownModel is returned for model identifiers outside the configured set.
	ErrUnknownModel = errors.New("session: unknown model")
)

// Params bundles what a session needs to start.
type Params struct {
	Documents []corpus.Document
	Models    []string
	Raters    []string
	Persist   *persist.Manager
	Logbook   *logbook.Logbook
}

// Option customizes a Session during construction.
type Option func(*options)

type options struct {
	rng *rand.Rand
	id  string
}

// WithRand fixes the source used to shuffle the model order.
func WithRand(rng *rand.Rand) Option {
	return func(o *options) { o.rng = rng }
}

// WithID overrides the generated session ID.
func WithID(id string) Option {
	return func(o *options) { o.id = strings.TrimSpace(id) }
}

// Candidate is one model response as the rater sees it.
type Candidate struct {
	Label    string
	Model    string
	Response string
	Score    rating.Score
}

// Session ties the store, persistence, corpus, model order and navigator
// together. Methods are safe to call from the UI loop and the export server
// at the same time.
type Session struct {
	id      string
	docs    []corpus.Document
	store   *rating.Store
	persist *persist.Manager
	order   *rating.ModelOrder
	nav     *Navigator
	log     *logbook.Logbook

	mu sync.Mutex
}

// Open restores (or initializes) the store and fixes the model order for the
// lifetime of the returned session.
func Open(p Params, opts ...Option) (*Session, error) {
	o := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if p.Persist == nil {
		return nil, fmt.Errorf("session: persistence manager is required")
	}
	if len(p.Documents) == 0 {
		return nil, fmt.Errorf("session: corpus is empty")
	}
	if o.id == "" {
		o.id = uuid.NewString()
	}
	order := rating.NewModelOrder(p.Models, o.rng)
	if order.Len() == 0 {
		return nil, fmt.Errorf("session: at least one model is required")
	}
	store, err := p.Persist.Load()
	if err != nil {
		return nil, err
	}
	s := &Session{
		id:      o.id,
		docs:    p.Documents,
		store:   store,
		persist: p.Persist,
		order:   order,
		log:     p.Logbook,
	}
	nav, err := NewNavigator(len(p.Documents), p.Raters, SaverFunc(s.saveLocked))
	if err != nil {
		return nil, err
	}
	s.nav = nav
	s.log.Info("Session %s opened · %d document(s) · %d model(s) · %d rater(s) in store",
		s.id, len(p.Documents), order.Len(), len(store.Raters()))
	s.reportStaleKeys(p.Raters)
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// ShortID returns the first block of the session identifier.
func (s *Session) ShortID() string {
	if i := strings.IndexByte(s.id, '-'); i > 0 {
		return s.id[:i]
	}
	return s.id
}

// Order returns the fixed model order.
func (s *Session) Order() *rating.ModelOrder { return s.order }

// Store exposes the rating store.
func (s *Session) Store() *rating.Store { return s.store }

// Path returns the artifact location.
func (s *Session) Path() string { return s.persist.Path() }

// Len returns the corpus size.
func (s *Session) Len() int { return len(s.docs) }

// Index returns the current document index.
func (s *Session) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nav.Index()
}

// Rater returns the current rater.
func (s *Session) Rater() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nav.Rater()
}

// Raters returns the configured labeler list.
func (s *Session) Raters() []string { return s.nav.Raters() }

// Current returns the document being rated.
func (s *Session) Current() corpus.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docs[s.nav.Index()]
}

// Document returns the document at index i.
func (s *Session) Document(i int) (corpus.Document, bool) {
	if i < 0 || i >= len(s.docs) {
		return corpus.Document{}, false
	}
	return s.docs[i], true
}

// SelectRater switches the active rater.
func (s *Session) SelectRater(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.nav.SelectRater(id); err != nil {
		return err
	}
	s.log.Info("Rater · %s selected", id)
	return nil
}

// Jump moves to a document without saving.
func (s *Session) Jump(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nav.SelectDocument(index)
}

// Next saves and moves to the next document.
func (s *Session) Next() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	from := s.nav.Index()
	if err := s.nav.SaveAndNext(); err != nil {
		s.log.Error("Save & next failed at document %d: %v", from, err)
		return err
	}
	s.log.Info("Navigate · document %d → %d", from, s.nav.Index())
	return nil
}

// Previous saves and moves to the previous document.
func (s *Session) Previous() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	from := s.nav.Index()
	if err := s.nav.SaveAndPrevious(); err != nil {
		s.log.Error("Save & previous failed at document %d: %v", from, err)
		return err
	}
	s.log.Info("Navigate · document %d → %d", from, s.nav.Index())
	return nil
}

// Save flushes the store.
func (s *Session) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

// Export flushes the store and returns the artifact bytes.
func (s *Session) Export() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.persist.Export(s.store)
	if err != nil {
		s.log.Error("Export failed: %v", err)
		return nil, err
	}
	s.log.Info("Export · %d byte(s) from %s", len(data), s.persist.Path())
	return data, nil
}

func (s *Session) saveLocked() error {
	if err := s.persist.Save(s.store); err != nil {
		return err
	}
	s.log.Info("Saved ratings · %d rater(s) → %s", len(s.store.Raters()), s.persist.Path())
	return nil
}

// Score reads (and materializes) the current rater's score for a model on
// the current document.
func (s *Session) Score(model string) (rating.Score, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked(model); err != nil {
		return rating.Score{}, err
	}
	return s.store.Get(s.nav.Rater(), rating.DocumentKey(s.nav.Index()), model), nil
}

// Rate sets one field of the current rater's score for a model on the
// current document.
func (s *Session) Rate(model string, field rating.Field, value rating.Stars) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked(model); err != nil {
		return err
	}
	return s.store.Rate(s.nav.Rater(), rating.DocumentKey(s.nav.Index()), model, field, value)
}

// Clear unsets one field.
func (s *Session) Clear(model string, field rating.Field) error {
	return s.Rate(model, field, rating.Unset)
}

// Candidates returns the current document's responses in model order,
// materializing each score the way rendering a rating form does.
func (s *Session) Candidates() ([]Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.nav.HasRater() {
		return nil, ErrNoRater
	}
	doc := s.docs[s.nav.Index()]
	key := rating.DocumentKey(s.nav.Index())
	out := make([]Candidate, 0, s.order.Len())
	for i := 0; i < s.order.Len(); i++ {
		model := s.order.At(i)
		out = append(out, Candidate{
			Label:    rating.Label(i),
			Model:    model,
			Response: doc.Response(model),
			Score:    s.store.Get(s.nav.Rater(), key, model),
		})
	}
	return out, nil
}

// Progress reports how many (document, model) pairs the current rater has
// fully scored.
func (s *Session) Progress() (done, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Progress(s.nav.Rater(), len(s.docs), s.order.IDs())
}

// DocumentComplete reports whether the current rater has fully scored every
// model on document i.
func (s *Session) DocumentComplete(i int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rater := s.nav.Rater()
	key := rating.DocumentKey(i)
	for _, model := range s.order.IDs() {
		score, ok := s.store.Lookup(rater, key, model)
		if !ok || !score.Complete() {
			return false
		}
	}
	return true
}

func (s *Session) checkLocked(model string) error {
	if !s.nav.HasRater() {
		return ErrNoRater
	}
	if !s.order.Contains(model) {
		return fmt.Errorf("%w: %q", ErrUnknownModel, model)
	}
	return nil
}

// reportStaleKeys logs raters and models in the artifact that the current
// configuration no longer names. They are kept untouched.
func (s *Session) reportStaleKeys(raters []string) {
	known := make(map[string]struct{}, len(raters))
	for _, r := range raters {
		known[r] = struct{}{}
	}
	staleModels := map[string]struct{}{}
	for _, rater := range s.store.Raters() {
		if _, ok := known[rater]; !ok {
			s.log.Warn("Stored rater %q is not in the labeler list; keeping its ratings", rater)
		}
		for _, doc := range s.store.Documents(rater) {
			for _, model := range s.store.Models(rater, doc) {
				if !s.order.Contains(model) {
					staleModels[model] = struct{}{}
				}
			}
		}
	}
	for model := range staleModels {
		s.log.Warn("Stored model %q is not configured; keeping its ratings", model)
	}
}
