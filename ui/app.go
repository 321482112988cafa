package ui

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lmikael/conntop/engine"
	"github.com/lmikael/conntop/model"
)

const actionTimeout = 10 * time.Second

// refreshMsg signals that the session applied a new batch.
type refreshMsg struct{}

// statusMsg reports the outcome of a dispatched action.
type statusMsg struct {
	text string
	err  bool
}

// Model is the bubbletea model: a thin consumer of the session's projected
// view plus the action entry points.
type Model struct {
	session    *engine.Session
	actions    *engine.Dispatcher
	cols       []engine.Column
	ruleSet    string
	width      int
	height     int
	rows       []model.Entry
	selected   int
	scroll     int
	sortIdx    int
	sortDesc   bool
	activeView bool
	editing    bool
	input      string
	keyword    string
	status     string
	statusErr  bool
}

// New creates the table app bound to a session.
func New(session *engine.Session, actions *engine.Dispatcher, cols []engine.Column, ruleSet, sortKey string, sortDesc bool) Model {
	m := Model{
		session:    session,
		actions:    actions,
		cols:       cols,
		ruleSet:    ruleSet,
		sortDesc:   sortDesc,
		activeView: true,
	}
	for i, c := range cols {
		if c.Key == sortKey {
			m.sortIdx = i
			break
		}
	}
	return m
}

func waitForUpdate(s *engine.Session) tea.Cmd {
	return func() tea.Msg {
		<-s.Updates()
		return refreshMsg{}
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return waitForUpdate(m.session)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case refreshMsg:
		m.rows = m.session.View()
		m.clampSelection()
		return m, waitForUpdate(m.session)

	case statusMsg:
		m.status = msg.text
		m.statusErr = msg.err
		m.rows = m.session.View()
		m.clampSelection()
		return m, nil

	case tea.KeyMsg:
		if m.editing {
			return m.updateKeywordInput(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m Model) updateKeywordInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.editing = false
		m.keyword = m.input
		m.session.SetKeyword(m.keyword)
		m.rows = m.session.View()
		m.clampSelection()
	case tea.KeyEsc:
		m.editing = false
		m.input = m.keyword
	case tea.KeyBackspace:
		if len(m.input) > 0 {
			_, size := utf8.DecodeLastRuneInString(m.input)
			m.input = m.input[:len(m.input)-size]
		}
	case tea.KeySpace:
		m.input += " "
	case tea.KeyRunes:
		m.input += string(msg.Runes)
	}
	return m, nil
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.session.Close()
		return m, tea.Quit

	case " ", "space":
		if m.session.Paused() {
			m.session.Resume()
			m.status = "resumed"
		} else {
			m.session.Pause()
			m.status = "paused, incoming batches are discarded"
		}
		m.statusErr = false

	case "tab":
		m.activeView = !m.activeView
		m.session.SelectActive(m.activeView)
		m.rows = m.session.View()
		m.selected, m.scroll = 0, 0

	case "/":
		m.editing = true
		m.input = m.keyword

	case "s":
		if len(m.cols) > 0 {
			m.sortIdx = (m.sortIdx + 1) % len(m.cols)
			m.session.SetSort(m.cols[m.sortIdx].Key, m.sortDesc)
			m.rows = m.session.View()
		}

	case "r":
		m.sortDesc = !m.sortDesc
		if len(m.cols) > 0 {
			m.session.SetSort(m.cols[m.sortIdx].Key, m.sortDesc)
			m.rows = m.session.View()
		}

	case "j", "down":
		m.selected++
		m.clampSelection()

	case "k", "up":
		m.selected--
		m.clampSelection()

	case "x":
		if e, ok := m.selectedEntry(); ok {
			return m, m.closeOneCmd(e.ID)
		}

	case "X":
		return m, m.closeAllCmd()

	case "a":
		if e, ok := m.selectedEntry(); ok {
			return m, m.addRuleCmd(e.ID)
		}

	case "C":
		m.session.Ledger().ClearClosed()
		m.rows = m.session.View()
		m.clampSelection()
		m.status = "closed set cleared"
		m.statusErr = false
	}
	return m, nil
}

func (m *Model) selectedEntry() (model.Entry, bool) {
	if m.selected < 0 || m.selected >= len(m.rows) {
		return model.Entry{}, false
	}
	return m.rows[m.selected], true
}

func (m *Model) clampSelection() {
	if m.selected >= len(m.rows) {
		m.selected = len(m.rows) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
	rows := m.tableRows()
	if m.selected < m.scroll {
		m.scroll = m.selected
	}
	if m.selected >= m.scroll+rows {
		m.scroll = m.selected - rows + 1
	}
}

// tableRows returns how many data lines fit under the header and status
// chrome.
func (m *Model) tableRows() int {
	rows := m.height - 4
	if rows < 1 {
		rows = 1
	}
	return rows
}

func (m Model) closeOneCmd(id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		if err := m.actions.CloseOne(ctx, id); err != nil {
			return statusMsg{text: err.Error(), err: true}
		}
		return statusMsg{text: "connection closed"}
	}
}

func (m Model) closeAllCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		errs := m.actions.CloseAll(ctx)
		if len(errs) > 0 {
			return statusMsg{text: fmt.Sprintf("close all: %d failed (%v)", len(errs), errs[0]), err: true}
		}
		return statusMsg{text: "close requested for all live connections"}
	}
}

func (m Model) addRuleCmd(id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		if err := m.actions.AddToRuleSet(ctx, id, m.ruleSet); err != nil {
			return statusMsg{text: err.Error(), err: true}
		}
		return statusMsg{text: "rule added to " + m.ruleSet}
	}
}

// View implements tea.Model.
func (m Model) View() string {
	var sb strings.Builder

	up, down := m.session.Totals()
	title := "CONNECTIONS"
	if !m.activeView {
		title = "CLOSED CONNECTIONS"
	}
	head := titleStyle.Render(title) + dimStyle.Render(fmt.Sprintf("  %d shown  ", len(m.rows))) + fmtTotals(up, down)
	if m.session.Paused() {
		head += "  " + pausedStyle.Render(" PAUSED ")
	}
	if m.keyword != "" {
		head += dimStyle.Render("  filter:") + warnStyle.Render(m.keyword)
	}
	sb.WriteString(head)
	sb.WriteString("\n")

	sortKey := ""
	if m.sortIdx < len(m.cols) {
		sortKey = m.cols[m.sortIdx].Key
	}
	sb.WriteString(renderHeader(m.cols, sortKey, m.sortDesc))
	sb.WriteString("\n")
	sb.WriteString(renderTable(m.rows, m.cols, m.selected, m.scroll, m.tableRows()))

	if m.editing {
		sb.WriteString(warnStyle.Render("filter host: ") + m.input + "▌")
	} else if m.status != "" {
		if m.statusErr {
			sb.WriteString(errStyle.Render(m.status))
		} else {
			sb.WriteString(okStyle.Render(m.status))
		}
	} else {
		sb.WriteString(dimStyle.Render("[space] pause  [tab] live/closed  [/] filter  [s/r] sort  [x] close  [X] close all  [a] rule  [C] clear  [q] quit"))
	}
	return sb.String()
}
