// Package tui is a terminal client for a single study session. It renders
// the session view and turns key presses into session actions.
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	studysession "github.com/phrazzld/cramdeck/internal/domain/study"
	"github.com/phrazzld/cramdeck/internal/service/study"
)

// Sessions applies actions to a user's session. *study.Service implements it.
type Sessions interface {
	Apply(ctx context.Context, userID uuid.UUID, action study.Action) (study.View, error)
}

// ViewMsg carries the outcome of an applied action.
type ViewMsg struct {
	View study.View
	Err  error
}

// Model is the Bubble Tea model for one study session.
type Model struct {
	ctx      context.Context
	sessions Sessions
	userID   uuid.UUID
	title    string

	view  study.View
	err   error
	busy  bool
	width int
}

// New creates a Model showing initial, usually the not-started view returned
// when the session was created.
func New(ctx context.Context, sessions Sessions, userID uuid.UUID, title string, initial study.View) Model {
	return Model{
		ctx:      ctx,
		sessions: sessions,
		userID:   userID,
		title:    title,
		view:     initial,
	}
}

// Run drives the model until the user quits.
func Run(ctx context.Context, sessions Sessions, userID uuid.UUID, title string, initial study.View, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)
	_, err := tea.NewProgram(New(ctx, sessions, userID, title, initial), opts...).Run()
	return err
}

// Current returns the session snapshot currently shown.
func (m Model) Current() study.View { return m.view }

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case ViewMsg:
		m.busy = false
		m.err = msg.Err
		if msg.Err == nil {
			m.view = msg.View
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		}
		if m.busy {
			return m, nil
		}
		if action, ok := actionFor(m.view.Status, msg.String()); ok {
			m.busy = true
			return m, m.apply(action)
		}
	}
	return m, nil
}

func (m Model) apply(action study.Action) tea.Cmd {
	ctx, sessions, userID := m.ctx, m.sessions, m.userID
	return func() tea.Msg {
		view, err := sessions.Apply(ctx, userID, action)
		return ViewMsg{View: view, Err: err}
	}
}

// actionFor maps a key to the action it triggers in status.
func actionFor(status studysession.Status, key string) (study.Action, bool) {
	switch status {
	case studysession.StatusNotStarted:
		switch key {
		case "enter", " ", "s":
			return study.ActionStart, true
		}
	case studysession.StatusInProgress:
		switch key {
		case " ", "enter", "f":
			return study.ActionFlip, true
		case "y", "c", "right":
			return study.ActionCorrect, true
		case "n", "w", "left":
			return study.ActionWrong, true
		}
	case studysession.StatusComplete:
		switch key {
		case "r":
			return study.ActionReview, true
		case "s", "enter":
			return study.ActionRestart, true
		}
	}
	return "", false
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(styleTitle.Render(m.title))
	if m.view.ReviewRound {
		b.WriteString(" " + styleReview.Render("review"))
	}
	b.WriteString("\n\n")

	switch m.view.Status {
	case studysession.StatusNotStarted:
		fmt.Fprintf(&b, "%d cards ready.\n\n", m.view.CardCount)
		b.WriteString(styleSubtle.Render("enter start · q quit"))

	case studysession.StatusInProgress:
		fmt.Fprintf(&b, "%s  %d/%d\n\n", progressBar(m.view.Progress), m.view.CardNumber, m.view.CardCount)
		b.WriteString(m.renderCard())
		b.WriteString("\n\n")
		b.WriteString(styleSubtle.Render("space flip · y correct · n wrong · q quit"))

	case studysession.StatusComplete:
		b.WriteString(m.renderResult())
		b.WriteString("\n\n")
		b.WriteString(styleSubtle.Render("r review missed · s restart · q quit"))
	}

	if m.err != nil {
		b.WriteString("\n\n" + styleError.Render(m.err.Error()))
	}
	return b.String() + "\n"
}

func (m Model) renderCard() string {
	card := m.view.Card
	if card == nil {
		return ""
	}
	style, label := styleFront, "FRONT"
	if card.Side == "back" {
		style, label = styleBack, "BACK"
	}
	return style.Width(m.cardWidth()).Render(styleSubtle.Render(label) + "\n\n" + card.Text)
}

func (m Model) cardWidth() int {
	w := m.width - 4
	if w > maxCardWidth {
		w = maxCardWidth
	}
	if w < minCardWidth {
		w = minCardWidth
	}
	return w
}

func (m Model) renderResult() string {
	res := m.view.Result
	if res == nil {
		return "Round complete."
	}
	score := fmt.Sprintf("Score: %d/%d", res.Correct, res.Total)
	if res.Perfect {
		return styleCorrect.Render(score) + "\nPerfect round."
	}
	return styleCorrect.Render(score) + "\n" + styleMissed.Render(fmt.Sprintf("%d missed", res.Missed))
}

func progressBar(percent int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	done := percent * barWidth / 100
	return styleBarDone.Render(strings.Repeat("█", done)) +
		styleBarTodo.Render(strings.Repeat("░", barWidth-done)) +
		fmt.Sprintf(" %3d%%", percent)
}
