// internal/tui/app.go
//
// The rating desk UI. It follows the bubbletea Elm loop:
//
// 1. Model: the App, holding a *session.Session plus screen state
// 2. Update: key presses become session operations
// 3. View: the current document, one model response and its score form
//
// Every mutation goes through the Session, so the UI never touches the
// store directly and the export server can read it concurrently.

package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/rating-desk/internal/logbook"
	"github.com/kingrea/rating-desk/internal/objectstore"
	"github.com/kingrea/rating-desk/internal/rating"
	"github.com/kingrea/rating-desk/internal/session"
)

// appState represents which screen is showing.
type appState int

const (
	stateRaterSelect    appState = iota // Picking who is rating
	stateRating                         // Scoring the current document
	stateDocumentSelect                 // Jumping to another document
)

const uploadTimeout = 30 * time.Second

// Uploader pushes an exported artifact somewhere off the machine.
type Uploader interface {
	PutArtifact(ctx context.Context, rater string, body []byte) (string, error)
}

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithLogbook shows the tail of the journal under the main panel.
func WithLogbook(lb *logbook.Logbook) AppOption {
	return func(a *App) { a.logbook = lb }
}

// WithExportDir sets where the export key writes timestamped copies.
func WithExportDir(dir string) AppOption {
	return func(a *App) { a.exportDir = strings.TrimSpace(dir) }
}

// WithUploader uploads each export after it is written locally.
func WithUploader(u Uploader) AppOption {
	return func(a *App) { a.uploader = u }
}

// WithClock overrides the timestamp source used for export file names.
func WithClock(clock func() time.Time) AppOption {
	return func(a *App) {
		if clock != nil {
			a.now = clock
		}
	}
}

// WithServerURL advertises the export server in the side panel.
func WithServerURL(url string) AppOption {
	return func(a *App) { a.serverURL = strings.TrimSpace(url) }
}

type uploadFinishedMsg struct {
	ref string
	err error
}

// App is the main application model.
type App struct {
	state   appState
	session *session.Session
	logbook *logbook.Logbook

	exportDir string
	uploader  Uploader
	serverURL string
	now       func() time.Time

	keys keyMap
	help help.Model

	raterMenu list.Model
	docMenu   list.Model

	// Rating form state
	candidates []session.Candidate
	modelTab   int
	historyTab int
	field      int

	statusMsg   string
	err         error
	lastExport  string
	uploading   bool
	quitPending bool

	width  int
	height int
}

// raterItem implements list.Item for the rater picker.
type raterItem struct {
	id       string
	progress string
}

func (i raterItem) Title() string       { return i.id }
func (i raterItem) Description() string { return i.progress }
func (i raterItem) FilterValue() string { return i.id }

// documentItem implements list.Item for the document picker.
type documentItem struct {
	index    int
	complete bool
	preview  string
}

func (i documentItem) Title() string {
	mark := "·"
	if i.complete {
		mark = "✓"
	}
	return fmt.Sprintf("%s Document %d", mark, i.index+1)
}
func (i documentItem) Description() string { return i.preview }
func (i documentItem) FilterValue() string { return fmt.Sprint(i.index + 1) }

// NewApp creates the UI for an open session.
func NewApp(sess *session.Session, opts ...AppOption) (*App, error) {
	if sess == nil {
		return nil, errors.New("tui: session is required")
	}
	raterMenu := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	raterMenu.Title = "Who is rating?"
	raterMenu.SetShowStatusBar(false)
	raterMenu.SetFilteringEnabled(false)
	raterMenu.DisableQuitKeybindings()

	docMenu := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	docMenu.Title = "Go to document"
	docMenu.SetShowStatusBar(false)
	docMenu.SetFilteringEnabled(false)
	docMenu.DisableQuitKeybindings()

	app := &App{
		state:     stateRaterSelect,
		session:   sess,
		now:       time.Now,
		keys:      defaultKeyMap(),
		help:      help.New(),
		raterMenu: raterMenu,
		docMenu:   docMenu,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	app.refreshRaterMenu()
	if sess.Rater() != "" {
		app.state = stateRating
		app.refreshCandidates()
	}
	return app, nil
}

func (a *App) refreshRaterMenu() {
	raters := a.session.Raters()
	items := make([]list.Item, len(raters))
	for i, id := range raters {
		done, total := a.session.Store().Progress(id, a.session.Len(), a.session.Order().IDs())
		items[i] = raterItem{id: id, progress: fmt.Sprintf("%d/%d responses fully rated", done, total)}
	}
	a.raterMenu.SetItems(items)
	for i, id := range raters {
		if id == a.session.Rater() {
			a.raterMenu.Select(i)
		}
	}
}

func (a *App) refreshDocumentMenu() {
	items := make([]list.Item, a.session.Len())
	for i := range items {
		doc, _ := a.session.Document(i)
		items[i] = documentItem{
			index:    i,
			complete: a.session.DocumentComplete(i),
			preview:  documentPreview(doc.Current),
		}
	}
	a.docMenu.SetItems(items)
	a.docMenu.Select(a.session.Index())
}

// refreshCandidates reloads the current document's responses and scores.
func (a *App) refreshCandidates() {
	candidates, err := a.session.Candidates()
	if err != nil {
		a.setError(err)
		return
	}
	a.candidates = candidates
	if a.modelTab >= len(candidates) {
		a.modelTab = 0
	}
}

func (a *App) setError(err error) {
	a.err = err
	if err != nil {
		a.statusMsg = "Error: " + err.Error()
	}
}

func (a *App) setStatus(format string, args ...any) {
	a.err = nil
	a.statusMsg = fmt.Sprintf(format, args...)
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	return nil
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		a.raterMenu.SetSize(max(0, msg.Width-6), max(0, msg.Height-10))
		a.docMenu.SetSize(max(0, msg.Width-6), max(0, msg.Height-10))
		return a, nil

	case uploadFinishedMsg:
		a.uploading = false
		if msg.err != nil {
			if a.logbook != nil {
				a.logbook.Error("Upload failed: %v", msg.err)
			}
			a.setError(msg.err)
			return a, nil
		}
		bucket, key, err := objectstore.ParseRef(msg.ref)
		if err != nil {
			a.setError(fmt.Errorf("upload returned an unusable reference: %w", err))
			return a, nil
		}
		if a.logbook != nil {
			a.logbook.Info("Upload · %s", msg.ref)
		}
		a.setStatus("Exported %s · uploaded to %s as %s", a.lastExport, bucket, key)
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a.quit()
		}
		switch a.state {
		case stateRaterSelect:
			return a.updateRaterSelect(msg)
		case stateDocumentSelect:
			return a.updateDocumentSelect(msg)
		case stateRating:
			return a.updateRating(msg)
		}
	}

	var cmd tea.Cmd
	switch a.state {
	case stateRaterSelect:
		a.raterMenu, cmd = a.raterMenu.Update(msg)
	case stateDocumentSelect:
		a.docMenu, cmd = a.docMenu.Update(msg)
	}
	return a, cmd
}

func (a *App) updateRaterSelect(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		item, ok := a.raterMenu.SelectedItem().(raterItem)
		if !ok {
			return a, nil
		}
		if err := a.session.SelectRater(item.id); err != nil {
			a.setError(err)
			return a, nil
		}
		a.state = stateRating
		a.modelTab, a.historyTab, a.field = 0, 0, 0
		a.refreshCandidates()
		a.setStatus("Rating as %s", item.id)
		return a, nil
	case "q":
		return a.quit()
	case "esc":
		if a.session.Rater() != "" {
			a.state = stateRating
			return a, nil
		}
	}
	var cmd tea.Cmd
	a.raterMenu, cmd = a.raterMenu.Update(msg)
	return a, cmd
}

func (a *App) updateDocumentSelect(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		item, ok := a.docMenu.SelectedItem().(documentItem)
		if !ok {
			return a, nil
		}
		if err := a.session.Save(); err != nil {
			a.setError(err)
			return a, nil
		}
		if err := a.session.Jump(item.index); err != nil {
			a.setError(err)
			return a, nil
		}
		a.state = stateRating
		a.resetForm()
		a.setStatus("Saved · document %d/%d", item.index+1, a.session.Len())
		return a, nil
	case "esc", "q":
		a.state = stateRating
		return a, nil
	}
	var cmd tea.Cmd
	a.docMenu, cmd = a.docMenu.Update(msg)
	return a, cmd
}

func (a *App) updateRating(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !key.Matches(msg, a.keys.Quit) {
		a.quitPending = false
	}
	n := len(a.candidates)
	switch {
	case key.Matches(msg, a.keys.Quit):
		return a.quit()
	case key.Matches(msg, a.keys.Help):
		a.help.ShowAll = !a.help.ShowAll
	case key.Matches(msg, a.keys.NextModel):
		if n > 0 {
			a.modelTab = (a.modelTab + 1) % n
		}
	case key.Matches(msg, a.keys.PrevModel):
		if n > 0 {
			a.modelTab = (a.modelTab - 1 + n) % n
		}
	case key.Matches(msg, a.keys.NextHistory):
		if h := len(a.session.Current().History); h > 0 {
			a.historyTab = (a.historyTab + 1) % h
		}
	case key.Matches(msg, a.keys.PrevHistory):
		if h := len(a.session.Current().History); h > 0 {
			a.historyTab = (a.historyTab - 1 + h) % h
		}
	case key.Matches(msg, a.keys.FieldUp):
		a.field = (a.field - 1 + len(rating.Fields)) % len(rating.Fields)
	case key.Matches(msg, a.keys.FieldDown):
		a.field = (a.field + 1) % len(rating.Fields)
	case key.Matches(msg, a.keys.Rate):
		a.rateSelected(int(msg.String()[0] - '0'))
	case key.Matches(msg, a.keys.Clear):
		a.rateSelected(0)
	case key.Matches(msg, a.keys.SaveNext):
		a.navigate(a.session.Next)
	case key.Matches(msg, a.keys.SavePrev):
		a.navigate(a.session.Previous)
	case key.Matches(msg, a.keys.Jump):
		a.refreshDocumentMenu()
		a.state = stateDocumentSelect
	case key.Matches(msg, a.keys.Export):
		return a, a.export()
	case key.Matches(msg, a.keys.SwitchRater):
		if err := a.session.Save(); err != nil {
			a.setError(err)
			return a, nil
		}
		a.refreshRaterMenu()
		a.state = stateRaterSelect
	case msg.String() == "esc":
		a.help.ShowAll = false
	}
	return a, nil
}

// rateSelected applies stars (0 clears) to the highlighted field of the
// active model tab.
func (a *App) rateSelected(stars int) {
	if len(a.candidates) == 0 {
		return
	}
	value := rating.Unset
	if stars != 0 {
		var err error
		if value, err = rating.NewStars(stars); err != nil {
			a.setError(err)
			return
		}
	}
	cand := a.candidates[a.modelTab]
	field := rating.Fields[a.field]
	if err := a.session.Rate(cand.Model, field, value); err != nil {
		a.setError(err)
		return
	}
	a.refreshCandidates()
	if value.IsSet() {
		a.setStatus("%s · %s = %d", cand.Label, field.Title(), stars)
		if a.field < len(rating.Fields)-1 {
			a.field++
		}
		return
	}
	a.setStatus("%s · %s cleared", cand.Label, field.Title())
}

func (a *App) navigate(move func() error) {
	if err := move(); err != nil {
		a.setError(fmt.Errorf("save failed, staying on document %d: %w", a.session.Index()+1, err))
		return
	}
	a.resetForm()
	a.setStatus("Saved · document %d/%d", a.session.Index()+1, a.session.Len())
}

func (a *App) resetForm() {
	a.modelTab, a.historyTab, a.field = 0, 0, 0
	a.refreshCandidates()
}

// quit flushes the store before leaving. A failed save keeps the program
// running; asking again quits without saving.
func (a *App) quit() (tea.Model, tea.Cmd) {
	if a.quitPending {
		return a, tea.Quit
	}
	if err := a.session.Save(); err != nil {
		if a.logbook != nil {
			a.logbook.Error("Save on quit failed: %v", err)
		}
		a.quitPending = true
		a.setError(fmt.Errorf("save failed (%v); press q again to quit anyway", err))
		return a, nil
	}
	if a.logbook != nil {
		a.logbook.Info("Session %s closed", a.session.ShortID())
	}
	return a, tea.Quit
}
