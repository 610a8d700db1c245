// Package tui is the interactive chat front end. Each submitted item
// starts an application.Session whose updates are rendered as they
// stream in: a factor table with one expandable row, importance bars,
// recommendations and the price-to-performance score.
package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/ahrav/go-factorlens/internal/application"
	"github.com/ahrav/go-factorlens/internal/domain"
)

// Starter opens a session for a submitted item. *application.Analyzer
// implements it.
type Starter interface {
	Start(ctx context.Context, item string) (*application.Session, error)
}

type role int

const (
	roleUser role = iota
	roleAssistant
)

// entry is one chat message. Assistant entries keep the last update of
// their session so they still render after the session is closed.
type entry struct {
	role    role
	text    string
	session *application.Session
	state   application.Update
	err     error
	// closed is set once the entry's session has been superseded; later
	// updates from it are ignored so the entry keeps its last view.
	closed bool
}

type (
	sessionStartedMsg struct {
		index   int
		session *application.Session
	}
	sessionFailedMsg struct {
		index int
		err   error
	}
	sessionUpdateMsg struct {
		index  int
		update application.Update
	}
	sessionEndedMsg struct {
		index int
	}
	runDoneMsg struct {
		index int
		err   error
	}
	explainedMsg struct {
		index int
		key   string
		text  domain.ExplanationText
		err   error
	}
)

// Model is the bubbletea model of the chat.
type Model struct {
	ctx     context.Context
	starter Starter
	logger  *zap.Logger

	input   textinput.Model
	spinner spinner.Model
	help    help.Model
	theme   Theme

	entries []entry
	// active is the index of the assistant entry whose session is live,
	// or -1.
	active int

	cursor       int
	expanded     string
	explanations map[string]domain.ExplanationText
	explaining   string

	width int
}

// Option configures a Model.
type Option func(*Model)

// WithTheme selects the initial theme by name.
func WithTheme(name string) Option {
	return func(m *Model) { m.theme = ThemeByName(name) }
}

// WithLogger sets the model's logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Model) {
		if l != nil {
			m.logger = l
		}
	}
}

// New creates the chat model. ctx bounds every session it starts.
func New(ctx context.Context, starter Starter, opts ...Option) Model {
	ti := textinput.New()
	ti.Placeholder = "Ask about an item, e.g. gaming laptop under 1 lakh"
	ti.Prompt = "› "
	ti.CharLimit = 200
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		ctx:          ctx,
		starter:      starter,
		logger:       zap.NewNop(),
		input:        ti,
		spinner:      sp,
		help:         help.New(),
		theme:        DarkTheme(),
		active:       -1,
		explanations: make(map[string]domain.ExplanationText),
		width:        80,
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.spinner.Style = m.theme.Spinner
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		m.input.Width = max(10, msg.Width-4)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case sessionStartedMsg:
		if msg.index != m.active {
			// Superseded before it connected.
			_ = msg.session.Close()
			return m, nil
		}
		m.entries[msg.index].session = msg.session
		m.entries[msg.index].state = msg.session.State()
		return m, tea.Batch(m.runCmd(msg.index, msg.session), waitUpdate(msg.index, msg.session))

	case sessionFailedMsg:
		m.entries[msg.index].err = msg.err
		if msg.index == m.active {
			m.active = -1
		}
		return m, nil

	case sessionUpdateMsg:
		if m.entries[msg.index].closed {
			return m, waitUpdate(msg.index, m.entries[msg.index].session)
		}
		m.entries[msg.index].state = msg.update
		if msg.index == m.active {
			m.cursor = min(m.cursor, max(0, len(msg.update.Factors)-1))
		}
		if s := m.entries[msg.index].session; s != nil {
			return m, waitUpdate(msg.index, s)
		}
		return m, nil

	case sessionEndedMsg:
		return m, nil

	case runDoneMsg:
		if m.entries[msg.index].closed {
			return m, nil
		}
		if msg.err != nil && !errors.Is(msg.err, context.Canceled) {
			m.logger.Debug("session ended with error", zap.Error(msg.err))
			m.entries[msg.index].state.Err = msg.err
		}
		return m, nil

	case explainedMsg:
		if msg.index != m.active {
			return m, nil
		}
		if m.explaining == msg.key {
			m.explaining = ""
		}
		if msg.err != nil {
			m.logger.Debug("explanation unavailable", zap.String("factor_key", msg.key), zap.Error(msg.err))
			return m, nil
		}
		m.explanations[msg.key] = msg.text
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		m.closeActive()
		return m, tea.Quit

	case key.Matches(msg, keys.Theme):
		m.theme = m.theme.Toggle()
		m.spinner.Style = m.theme.Spinner
		return m, nil

	case key.Matches(msg, keys.Send):
		return m.send()

	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, keys.Down):
		if n := len(m.activeFactors()); m.cursor < n-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, keys.Expand):
		return m.toggleExpand()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// send submits the input as a new query and supersedes the live session.
func (m Model) send() (tea.Model, tea.Cmd) {
	item := strings.TrimSpace(m.input.Value())
	if item == "" {
		return m, nil
	}
	m.input.Reset()
	m.closeActive()

	m.entries = append(m.entries,
		entry{role: roleUser, text: item},
		entry{role: roleAssistant, text: item},
	)
	m.active = len(m.entries) - 1
	m.cursor = 0
	m.expanded = ""
	m.explaining = ""
	m.explanations = make(map[string]domain.ExplanationText)

	return m, m.startCmd(m.active, item)
}

// toggleExpand opens the selected row, closing any other, and fetches its
// explanation on first open.
func (m Model) toggleExpand() (tea.Model, tea.Cmd) {
	factors := m.activeFactors()
	if m.cursor >= len(factors) {
		return m, nil
	}
	f := factors[m.cursor]
	k := f.Key()

	if m.expanded == k {
		m.expanded = ""
		return m, nil
	}
	m.expanded = k

	if _, ok := m.explanations[k]; ok {
		return m, nil
	}
	s := m.entries[m.active].session
	if s == nil {
		return m, nil
	}
	if text, ok := s.CachedExplanation(f); ok {
		m.explanations[k] = text
		return m, nil
	}
	m.explaining = k
	return m, m.explainCmd(m.active, s, f)
}

func (m *Model) closeActive() {
	if m.active < 0 {
		return
	}
	e := &m.entries[m.active]
	e.closed = true
	if e.session != nil {
		_ = e.session.Close()
	}
	m.active = -1
}

func (m Model) activeFactors() []domain.Factor {
	if m.active < 0 {
		return nil
	}
	return m.entries[m.active].state.Factors
}

func (m Model) startCmd(index int, item string) tea.Cmd {
	ctx, starter := m.ctx, m.starter
	return func() tea.Msg {
		s, err := starter.Start(ctx, item)
		if err != nil {
			return sessionFailedMsg{index: index, err: err}
		}
		return sessionStartedMsg{index: index, session: s}
	}
}

func (m Model) runCmd(index int, s *application.Session) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return runDoneMsg{index: index, err: s.Run(ctx)}
	}
}

func waitUpdate(index int, s *application.Session) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-s.Updates()
		if !ok {
			return sessionEndedMsg{index: index}
		}
		return sessionUpdateMsg{index: index, update: u}
	}
}

func (m Model) explainCmd(index int, s *application.Session, f domain.Factor) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		text, err := s.Explain(ctx, f)
		return explainedMsg{index: index, key: f.Key(), text: text, err: err}
	}
}

// Close releases the live session, if any.
func (m *Model) Close() { m.closeActive() }
