package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/rating-desk/internal/corpus"
	"github.com/kingrea/rating-desk/internal/rating"
)

const previewWidth = 60

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)
	panelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF"))
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	humanStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F2C94C"))
	botStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#6FCF97"))
	activeTab    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#5B8DEF")).Padding(0, 1)
	inactiveTab  = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA")).Padding(0, 1)
	cursorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	starStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F2C94C"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	responseBox  = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("#5B8DEF")).Padding(0, 1)
)

// View renders the current state to a string.
func (a *App) View() string {
	width := a.width
	if width <= 0 {
		width = 100
	}
	rightWidth := max(32, width/3)
	leftWidth := width - rightWidth - 4
	if leftWidth < 40 {
		leftWidth = width - 4
		rightWidth = 0
	}
	var content string
	switch a.state {
	case stateRaterSelect:
		content = a.raterMenu.View()
	case stateDocumentSelect:
		content = a.docMenu.View()
	case stateRating:
		content = a.renderRating(leftWidth - 4)
	}
	return a.renderBoard(content, leftWidth, rightWidth)
}

func (a *App) renderBoard(mainContent string, leftWidth, rightWidth int) string {
	header := headerStyle.Render("★ RATING DESK")
	leftBox := boxStyle.Width(max(20, leftWidth)).Render(mainContent)
	body := leftBox
	if rightWidth > 0 {
		rightBox := boxStyle.Width(max(20, rightWidth)).Render(a.renderProgressPanel(rightWidth - 4))
		body = lipgloss.JoinHorizontal(lipgloss.Top, leftBox, rightBox)
	}
	sections := []string{header, body}
	if logPanel := a.renderLogPanel(); logPanel != "" {
		sections = append(sections, logPanel)
	}
	status := mutedStyle.MarginTop(1).Render(a.statusMsg)
	if a.err != nil {
		status = errorStyle.MarginTop(1).Render(a.statusMsg)
	}
	sections = append(sections, status)
	if a.state == stateRating {
		sections = append(sections, a.help.View(a.keys))
	} else {
		sections = append(sections, mutedStyle.Render("enter select · esc back · q quit"))
	}
	return strings.Join(sections, "\n")
}

func (a *App) renderProgressPanel(width int) string {
	lines := []string{panelTitleStyle.Render("SESSION")}
	rater := a.session.Rater()
	if rater == "" {
		rater = "(none)"
	}
	lines = append(lines,
		fmt.Sprintf("Rater: %s", rater),
		fmt.Sprintf("Document: %d/%d", a.session.Index()+1, a.session.Len()),
	)
	if a.session.Rater() != "" {
		done, total := a.session.Progress()
		lines = append(lines, fmt.Sprintf("Rated: %d/%d", done, total))
	}
	lines = append(lines,
		"",
		mutedStyle.Render(fmt.Sprintf("Session %s", a.session.ShortID())),
		mutedStyle.Render(fmt.Sprintf("Store %s", filepath.Base(a.session.Path()))),
	)
	if a.serverURL != "" {
		lines = append(lines, mutedStyle.Render(fmt.Sprintf("Export %s/export", a.serverURL)))
	}
	if a.lastExport != "" {
		lines = append(lines, mutedStyle.Render(fmt.Sprintf("Last export %s", filepath.Base(a.lastExport))))
	}
	return lipgloss.NewStyle().Width(max(20, width)).Render(strings.Join(lines, "\n"))
}

func (a *App) renderLogPanel() string {
	if a.logbook == nil {
		return ""
	}
	lines, total := a.logbook.Tail(6)
	if len(lines) == 0 {
		return ""
	}
	fileName := filepath.Base(a.logbook.Path())
	if fileName == "." || fileName == "" {
		fileName = "log"
	}
	head := panelTitleStyle.Render(fmt.Sprintf("LOG · %s (%d)", fileName, total))
	body := dimStyle.Render(strings.Join(lines, "\n"))
	return boxStyle.Render(fmt.Sprintf("%s\n%s", head, body))
}

func (a *App) renderRating(width int) string {
	width = max(20, width)
	doc := a.session.Current()
	sections := []string{
		panelTitleStyle.Render(fmt.Sprintf("Document %d/%d", a.session.Index()+1, a.session.Len())),
	}
	if len(doc.History) > 0 {
		hist := doc.History[a.historyTab%len(doc.History)]
		title := mutedStyle.Render(fmt.Sprintf("Earlier session %d/%d  [ ]", a.historyTab%len(doc.History)+1, len(doc.History)))
		sections = append(sections, title, renderDialogue(hist, width))
	}
	sections = append(sections, mutedStyle.Render("Current session"), renderDialogue(doc.Current, width))
	if len(a.candidates) == 0 {
		return strings.Join(sections, "\n")
	}
	cand := a.candidates[a.modelTab]
	sections = append(sections,
		a.renderModelTabs(),
		responseBox.Width(width-2).Render(cand.Response),
		renderScoreForm(cand.Score, a.field),
	)
	return strings.Join(sections, "\n")
}

func (a *App) renderModelTabs() string {
	tabs := make([]string, len(a.candidates))
	for i, cand := range a.candidates {
		label := cand.Label
		if cand.Score.Complete() {
			label += " ✓"
		}
		if i == a.modelTab {
			tabs[i] = activeTab.Render(label)
		} else {
			tabs[i] = inactiveTab.Render(label)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func renderDialogue(turns corpus.Session, width int) string {
	if len(turns) == 0 {
		return dimStyle.Render("(empty)")
	}
	lines := make([]string, len(turns))
	for i, turn := range turns {
		speaker := humanStyle.Render("Human:")
		if corpus.Speaker(i) == corpus.RoleAssistant {
			speaker = botStyle.Render("Bot:  ")
		}
		lines[i] = lipgloss.NewStyle().Width(width).Render(speaker + " " + turn.Utterance)
	}
	return strings.Join(lines, "\n")
}

func renderScoreForm(score rating.Score, cursor int) string {
	lines := make([]string, len(rating.Fields))
	for i, field := range rating.Fields {
		marker := "  "
		name := fmt.Sprintf("%-13s", field.Title())
		if i == cursor {
			marker = cursorStyle.Render("> ")
			name = cursorStyle.Render(name)
		}
		lines[i] = fmt.Sprintf("%s%s %s", marker, name, renderStars(score.Get(field)))
	}
	return strings.Join(lines, "\n")
}

func renderStars(s rating.Stars) string {
	if !s.IsSet() {
		return mutedStyle.Render("☆☆☆☆☆  unrated")
	}
	n := int(s)
	return starStyle.Render(strings.Repeat("★", n)) +
		mutedStyle.Render(strings.Repeat("☆", int(rating.MaxStars)-n)) +
		fmt.Sprintf("  %d", n)
}

// documentPreview returns the opening human turn, truncated for list rows.
func documentPreview(turns corpus.Session) string {
	if len(turns) == 0 {
		return ""
	}
	text := strings.Join(strings.Fields(turns[0].Utterance), " ")
	runes := []rune(text)
	if len(runes) > previewWidth {
		return string(runes[:previewWidth-1]) + "…"
	}
	return text
}
