package session

import (
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kingrea/rating-desk/internal/corpus"
	"github.com/kingrea/rating-desk/internal/logbook"
	"github.com/kingrea/rating-desk/internal/persist"
	"github.com/kingrea/rating-desk/internal/rating"
)

func testDocuments(n int, models ...string) []corpus.Document {
	docs := make([]corpus.Document, n)
	for i := range docs {
		responses := map[string]string{}
		for _, m := range models {
			responses[m] = m + " reply"
		}
		docs[i] = corpus.Document{
			Index:     i,
			History:   []corpus.Session{{{Utterance: "hi"}}, {}, {}},
			Current:   corpus.Session{{Utterance: "question"}},
			Responses: responses,
		}
	}
	return docs
}

func openTestSession(t *testing.T, path string, docs int, raters []string, models ...string) (*Session, *logbook.Logbook) {
	t.Helper()
	book, err := logbook.New(filepath.Join(filepath.Dir(path), "logs", "journey.log"))
	if err != nil {
		t.Fatalf("logbook: %v", err)
	}
	s, err := Open(Params{
		Documents: testDocuments(docs, models...),
		Models:    models,
		Raters:    raters,
		Persist:   persist.New(path),
		Logbook:   book,
	}, WithRand(rand.New(rand.NewSource(1))))
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	return s, book
}

func TestConcreteRatingScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data_store.json")
	s, _ := openTestSession(t, path, 3, []string{"alice"}, "m1", "m2")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("load should create the artifact: %v", err)
	}
	if strings.TrimSpace(string(data)) != "{}" {
		t.Fatalf("initial artifact = %q", data)
	}
	if err := s.SelectRater("alice"); err != nil {
		t.Fatalf("select rater: %v", err)
	}
	got := s.Store().Get("alice", "0", "m1")
	if !got.IsZero() {
		t.Fatalf("expected unset record, got %+v", got)
	}
	if err := s.Store().Set("alice", "0", "m1", rating.Score{Consistency: 5, Engagingness: 4, Humanness: 3, Memorability: 2}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Next(); err != nil {
		t.Fatalf("next: %v", err)
	}
	if s.Index() != 1 {
		t.Fatalf("index = %d, want 1", s.Index())
	}
	loaded, err := persist.New(path).Load()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if raters := loaded.Raters(); len(raters) != 1 || raters[0] != "alice" {
		t.Fatalf("raters = %v", raters)
	}
	if docs := loaded.Documents("alice"); len(docs) != 1 || docs[0] != "0" {
		t.Fatalf("documents = %v", docs)
	}
	if models := loaded.Models("alice", "0"); len(models) != 1 || models[0] != "m1" {
		t.Fatalf("models = %v", models)
	}
	want := rating.Score{Consistency: 5, Engagingness: 4, Humanness: 3, Memorability: 2}
	if score, _ := loaded.Lookup("alice", "0", "m1"); score != want {
		t.Fatalf("stored score = %+v, want %+v", score, want)
	}
}

func TestRateRequiresRaterAndKnownModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data_store.json")
	s, _ := openTestSession(t, path, 2, []string{"alice", "bob"}, "m1", "m2")
	if err := s.Rate("m1", rating.Humanness, 3); !errors.Is(err, ErrNoRater) {
		t.Fatalf("expected ErrNoRater, got %v", err)
	}
	if _, err := s.Candidates(); !errors.Is(err, ErrNoRater) {
		t.Fatalf("expected ErrNoRater from Candidates, got %v", err)
	}
	if err := s.SelectRater("carol"); !errors.Is(err, ErrUnknownRater) {
		t.Fatalf("expected ErrUnknownRater, got %v", err)
	}
	_ = s.SelectRater("bob")
	if err := s.Rate("m3", rating.Humanness, 3); !errors.Is(err, ErrUnknownModel) {
		t.Fatalf("expected ErrUnknownModel, got %v", err)
	}
	if err := s.Rate("m2", rating.Humanness, 9); !errors.Is(err, rating.ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
	if err := s.Rate("m2", rating.Humanness, 3); err != nil {
		t.Fatalf("rate: %v", err)
	}
	score, err := s.Score("m2")
	if err != nil || score.Humanness != 3 {
		t.Fatalf("score = %+v, %v", score, err)
	}
	if err := s.Clear("m2", rating.Humanness); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if score, _ := s.Score("m2"); !score.IsZero() {
		t.Fatalf("clear should unset, got %+v", score)
	}
}

func TestCandidatesFollowFixedOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data_store.json")
	s, _ := openTestSession(t, path, 2, []string{"alice"}, "m1", "m2", "m3")
	_ = s.SelectRater("alice")
	first, err := s.Candidates()
	if err != nil {
		t.Fatalf("candidates: %v", err)
	}
	if err := s.Next(); err != nil {
		t.Fatalf("next: %v", err)
	}
	second, _ := s.Candidates()
	order := s.Order().IDs()
	for i := range order {
		if first[i].Model != order[i] || second[i].Model != order[i] {
			t.Fatalf("position %d: %s / %s, want %s", i, first[i].Model, second[i].Model, order[i])
		}
		if first[i].Label != rating.Label(i) {
			t.Fatalf("label = %q", first[i].Label)
		}
		if first[i].Response != order[i]+" reply" {
			t.Fatalf("response = %q", first[i].Response)
		}
	}
	// Rendering the candidates materialized both documents.
	if docs := s.Store().Documents("alice"); len(docs) != 2 {
		t.Fatalf("documents = %v", docs)
	}
}

func TestProgressAndDocumentComplete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data_store.json")
	s, _ := openTestSession(t, path, 2, []string{"alice"}, "m1")
	_ = s.SelectRater("alice")
	for _, f := range rating.Fields {
		if err := s.Rate("m1", f, 4); err != nil {
			t.Fatalf("rate: %v", err)
		}
	}
	done, total := s.Progress()
	if done != 1 || total != 2 {
		t.Fatalf("progress = %d/%d", done, total)
	}
	if !s.DocumentComplete(0) || s.DocumentComplete(1) {
		t.Fatalf("document completion wrong")
	}
}

func TestExportMatchesArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data_store.json")
	s, _ := openTestSession(t, path, 1, []string{"alice"}, "m1")
	_ = s.SelectRater("alice")
	_ = s.Rate("m1", rating.Memorability, 5)
	exported, err := s.Export()
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(exported) != string(data) {
		t.Fatalf("export differs from artifact")
	}
}

func TestOpenMalformedArtifactFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data_store.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Open(Params{
		Documents: testDocuments(1, "m1"),
		Models:    []string{"m1"},
		Raters:    []string{"alice"},
		Persist:   persist.New(path),
	})
	if !errors.Is(err, persist.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestOpenWarnsAboutStaleKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data_store.json")
	artifact := `{"zed":{"0":{"old-model":{"consistency":1}}}}`
	if err := os.WriteFile(path, []byte(artifact), 0o644); err != nil {
		t.Fatal(err)
	}
	s, book := openTestSession(t, path, 1, []string{"alice"}, "m1")
	lines, _ := book.Tail(10)
	joined := strings.Join(lines, "\n")
	if !strings.Contains(joined, `"zed"`) || !strings.Contains(joined, `"old-model"`) {
		t.Fatalf("expected stale key warnings, got:\n%s", joined)
	}
	if err := s.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "old-model") {
		t.Fatalf("stale ratings must be preserved: %s", data)
	}
}

func TestSessionIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data_store.json")
	s, err := Open(Params{
		Documents: testDocuments(1, "m1"),
		Models:    []string{"m1"},
		Persist:   persist.New(path),
	}, WithID("abcd1234-0000"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if s.ID() != "abcd1234-0000" || s.ShortID() != "abcd1234" {
		t.Fatalf("ids = %q / %q", s.ID(), s.ShortID())
	}
	generated, err := Open(Params{
		Documents: testDocuments(1, "m1"),
		Models:    []string{"m1"},
		Persist:   persist.New(path),
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if len(generated.ID()) != 36 {
		t.Fatalf("expected uuid session id, got %q", generated.ID())
	}
}
