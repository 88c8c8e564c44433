package tui

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/tanakrit/coinquest/internal/engine"
)

// Commander is the subset of client operations the TUI drives
type Commander interface {
	Join(name string) error
	Leave() error
	GMLogin(password string) error
	StartRound() error
	SubmitAllocation(alloc engine.Allocation) error
	DrawEvent() error
	ResolveDistributeLoss(split engine.LossSplit) error
	ResolveCoverLoss(fromTarget, fromEmergency int) error
	ResolveAllocateBonus(split engine.LossSplit) error
	EndRound() error
	ForceEndRound() error
	EndGameEarly() error
	Reset() error
	AcknowledgeSummary() error
	RequestState() error
	GetParticipantID() string
}

// Messages delivered into the Bubble Tea loop by the network layer

// StateMsg carries a fresh state snapshot from the server
type StateMsg struct {
	State *engine.GameState
}

// JoinedMsg confirms this client's participant registration
type JoinedMsg struct {
	ParticipantID string
	Name          string
}

// GMLoginMsg confirms game-master authorization
type GMLoginMsg struct {
	Success bool
}

// ServerErrorMsg carries a rejected operation's error
type ServerErrorMsg struct {
	Code    string
	Message string
}

// DisconnectedMsg signals the connection dropped
type DisconnectedMsg struct{}

// Model represents the Bubble Tea model for the budgeting game
type Model struct {
	commander Commander
	logger    *log.Logger

	// UI components
	logViewport viewport.Model
	input       textinput.Model

	// State
	state       *engine.GameState
	gameLog     []string
	name        string
	gm          bool
	quitting    bool
	focusedPane int // 0 = log, 1 = input

	// Dimensions
	width       int
	height      int
	initialized bool
}

// NewModel creates a new TUI model
func NewModel(commander Commander, logger *log.Logger) *Model {
	vp := viewport.New(10, 5)
	vp.SetContent("")

	ti := textinput.New()
	ti.Placeholder = "join <name> to get started, 'help' for commands"
	ti.Focus()
	ti.CharLimit = 100
	ti.Width = 100
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	ti.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAFAFA"))
	ti.Prompt = "> "

	return &Model{
		commander:   commander,
		logger:      logger.WithPrefix("tui"),
		logViewport: vp,
		input:       ti,
		gameLog:     []string{},
		focusedPane: 1,
	}
}

// Init initializes the TUI model
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages in the TUI
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case StateMsg:
		m.applyState(msg.State)

	case JoinedMsg:
		m.name = msg.Name
		m.addLog(SuccessStyle.Render(fmt.Sprintf("Joined as %s", msg.Name)))

	case GMLoginMsg:
		if msg.Success {
			m.gm = true
			m.addLog(SuccessStyle.Render("Game master authorized"))
		}

	case ServerErrorMsg:
		m.addLog(ErrorStyle.Render(fmt.Sprintf("Error [%s]: %s", msg.Code, msg.Message)))

	case DisconnectedMsg:
		m.addLog(ErrorStyle.Render("Connection to server lost"))

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Sequence(tea.ClearScreen, tea.Quit)
		case "tab":
			if m.focusedPane == 0 {
				m.focusedPane = 1
				m.input.Focus()
			} else {
				m.focusedPane = 0
				m.input.Blur()
			}
		case "enter":
			if m.focusedPane == 1 {
				command := strings.TrimSpace(m.input.Value())
				m.input.SetValue("")
				if cmd := m.processCommand(command); cmd != nil {
					cmds = append(cmds, cmd)
				}
			}
		case "up", "k":
			if m.focusedPane == 0 {
				m.logViewport.ScrollUp(1)
			}
		case "down", "j":
			if m.focusedPane == 0 {
				m.logViewport.ScrollDown(1)
			}
		case "pgup", "b":
			if m.focusedPane == 0 {
				m.logViewport.HalfPageUp()
			}
		case "pgdown", "f":
			if m.focusedPane == 0 {
				m.logViewport.HalfPageDown()
			}
		case "home", "g":
			if m.focusedPane == 0 {
				m.logViewport.GotoTop()
			}
		case "end", "G":
			if m.focusedPane == 0 {
				m.logViewport.GotoBottom()
			}
		}
	}

	var cmd tea.Cmd
	if m.focusedPane == 1 {
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.logViewport, cmd = m.logViewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// applyState records a snapshot and logs the transitions it reveals
func (m *Model) applyState(state *engine.GameState) {
	prev := m.state
	m.state = state

	if prev == nil || prev.Phase != state.Phase {
		m.addLog(PhaseStyle.Render(fmt.Sprintf("Phase: %s (round %d)", state.Phase, state.CurrentRound)))
	}
	if state.CurrentEvent != nil && (prev == nil || prev.CurrentEvent == nil || prev.CurrentEvent.ID != state.CurrentEvent.ID) {
		m.addLog(WarningStyle.Render(fmt.Sprintf("Event: %s — %s", state.CurrentEvent.Title, state.CurrentEvent.Description)))
	}
	if state.Phase == engine.PhaseGameOver && (prev == nil || prev.Phase != engine.PhaseGameOver) {
		m.addLog(HeaderStyle.Render(" Game over "))
		for i, entry := range state.Leaderboard {
			m.addLog(fmt.Sprintf("  %d. %s — %d coins", i+1, entry.Name, entry.TotalCoins))
		}
	}

	if me := m.participant(); me != nil {
		if len(me.LastRoundSummary) > 0 && (prev == nil || !sameSummary(prevParticipant(prev, me.ID), me)) {
			m.addLog(PhaseStyle.Render(fmt.Sprintf("Round %d summary:", state.CurrentRound)))
			for _, entry := range me.LastRoundSummary {
				m.addLog("  " + entry.Text)
			}
		}
		if me.PendingAction != nil && !me.HasResolved {
			m.addLog(ActionsStyle.Render(pendingPrompt(me.PendingAction)))
		}
	}
}

func prevParticipant(state *engine.GameState, id string) *engine.Participant {
	if state == nil {
		return nil
	}
	return state.Players[id]
}

func sameSummary(prev, cur *engine.Participant) bool {
	if prev == nil {
		return false
	}
	if len(prev.LastRoundSummary) != len(cur.LastRoundSummary) {
		return false
	}
	for i := range prev.LastRoundSummary {
		if prev.LastRoundSummary[i] != cur.LastRoundSummary[i] {
			return false
		}
	}
	return true
}

func pendingPrompt(action *engine.PendingAction) string {
	switch action.Kind {
	case engine.ActionDistributeLoss:
		return fmt.Sprintf("Distribute a loss of %d across your savings: split <short> <long> <emergency>", action.Amount)
	case engine.ActionCoverLoss:
		return fmt.Sprintf("Cover a loss of %d to %s: cover <from %s> <from emergency>", action.Amount, action.TargetCategory, action.TargetCategory)
	case engine.ActionAllocateBonus:
		return fmt.Sprintf("Allocate a bonus of %d: bonus <short> <long> <emergency>", action.Amount)
	}
	return ""
}

// participant returns this client's own participant, if joined
func (m *Model) participant() *engine.Participant {
	if m.state == nil || m.commander == nil {
		return nil
	}
	id := m.commander.GetParticipantID()
	if id == "" {
		return nil
	}
	return m.state.Players[id]
}

// processCommand parses a typed command and issues the matching operation
func (m *Model) processCommand(input string) tea.Cmd {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return nil
	}
	command := strings.ToLower(parts[0])
	args := parts[1:]

	var err error
	switch command {
	case "help":
		m.showHelp()
	case "quit", "exit":
		m.quitting = true
		return tea.Sequence(tea.ClearScreen, tea.Quit)
	case "join":
		if len(args) == 0 {
			m.addLog(ErrorStyle.Render("Usage: join <name>"))
			return nil
		}
		err = m.commander.Join(strings.Join(args, " "))
	case "leave":
		err = m.commander.Leave()
	case "gm":
		if len(args) != 1 {
			m.addLog(ErrorStyle.Render("Usage: gm <password>"))
			return nil
		}
		err = m.commander.GMLogin(args[0])
	case "start":
		err = m.commander.StartRound()
	case "alloc":
		values, ok := m.parseInts(args, 4, "Usage: alloc <food> <short> <long> <emergency>")
		if !ok {
			return nil
		}
		err = m.commander.SubmitAllocation(engine.Allocation{
			Food: values[0], Short: values[1], Long: values[2], Emergency: values[3],
		})
	case "draw":
		err = m.commander.DrawEvent()
	case "split":
		values, ok := m.parseInts(args, 3, "Usage: split <short> <long> <emergency>")
		if !ok {
			return nil
		}
		err = m.commander.ResolveDistributeLoss(engine.LossSplit{
			Short: values[0], Long: values[1], Emergency: values[2],
		})
	case "cover":
		values, ok := m.parseInts(args, 2, "Usage: cover <from target> <from emergency>")
		if !ok {
			return nil
		}
		err = m.commander.ResolveCoverLoss(values[0], values[1])
	case "bonus":
		values, ok := m.parseInts(args, 3, "Usage: bonus <short> <long> <emergency>")
		if !ok {
			return nil
		}
		err = m.commander.ResolveAllocateBonus(engine.LossSplit{
			Short: values[0], Long: values[1], Emergency: values[2],
		})
	case "end":
		err = m.commander.EndRound()
	case "force":
		err = m.commander.ForceEndRound()
	case "endgame":
		err = m.commander.EndGameEarly()
	case "reset":
		err = m.commander.Reset()
	case "ok":
		err = m.commander.AcknowledgeSummary()
	case "state":
		err = m.commander.RequestState()
	default:
		m.addLog(ErrorStyle.Render(fmt.Sprintf("Unknown command %q, try 'help'", command)))
	}

	if err != nil {
		m.addLog(ErrorStyle.Render(fmt.Sprintf("Failed to send %s: %v", command, err)))
	}
	return nil
}

func (m *Model) parseInts(args []string, want int, usage string) ([]int, bool) {
	if len(args) != want {
		m.addLog(ErrorStyle.Render(usage))
		return nil, false
	}
	values := make([]int, want)
	for i, arg := range args {
		v, err := strconv.Atoi(arg)
		if err != nil {
			m.addLog(ErrorStyle.Render(usage))
			return nil, false
		}
		values[i] = v
	}
	return values, true
}

func (m *Model) showHelp() {
	m.addLog(InfoStyle.Render("Commands:"))
	m.addLog("  join <name>                          register as a participant")
	m.addLog("  leave                                leave before the game starts")
	m.addLog("  alloc <food> <short> <long> <emerg>  submit this round's allocation")
	m.addLog("  split <short> <long> <emerg>         distribute a loss across savings")
	m.addLog("  cover <from target> <from emerg>     cover a loss from two buckets")
	m.addLog("  bonus <short> <long> <emerg>         allocate a bonus")
	m.addLog("  ok                                   acknowledge your round summary")
	m.addLog("  state                                refresh the game state")
	m.addLog(InfoStyle.Render("Game master commands:"))
	m.addLog("  gm <password>   authorize as game master")
	m.addLog("  start           start the next round")
	m.addLog("  draw            draw the event card")
	m.addLog("  end             settle the round")
	m.addLog("  force           default-resolve stragglers and settle")
	m.addLog("  endgame         finalize the game now")
	m.addLog("  reset           discard the game entirely")
}

// addLog adds an entry to the game log and scrolls to show it
func (m *Model) addLog(entry string) {
	m.gameLog = append(m.gameLog, entry)

	content := strings.Join(m.gameLog, "\n")
	m.logViewport.SetContent(content)

	if m.logViewport.Height > 0 && m.logViewport.Width > 0 {
		m.logViewport.GotoBottom()
	}
}

// View renders the TUI
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	// Action pane (bottom, full width)
	actionContent := m.renderActionPane()
	actionHeight := lipgloss.Height(actionContent)
	calculatedActionWidth := max(m.width-2, 1)
	calculatedActionHeight := max(actionHeight-2, 1)

	actionStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#04B575")).
		Width(calculatedActionWidth).
		Height(calculatedActionHeight)
	actionPane := actionStyle.Render(actionContent)

	// Sidebar pane (right side of log pane)
	sidebarContent := m.renderSidebarPane()
	calculatedSidebarWidth := max(lipgloss.Width(sidebarContent), 28)
	calculatedSidebarHeight := max(m.height-actionHeight-4, 1)

	sidebarStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#626262")).
		Width(calculatedSidebarWidth).
		Height(calculatedSidebarHeight)
	sidebarPane := sidebarStyle.Render(sidebarContent)

	// Log pane (top, fills remaining space)
	m.logViewport.SetContent(strings.Join(m.gameLog, "\n"))

	calculatedLogWidth := max(m.width-calculatedSidebarWidth-4, 1)
	calculatedLogHeight := max(m.height-actionHeight-4, 1)

	m.logViewport.Width = calculatedLogWidth
	m.logViewport.Height = calculatedLogHeight

	if !m.initialized && calculatedLogWidth > 1 && calculatedLogHeight > 1 {
		m.logViewport.GotoBottom()
		m.initialized = true
	}

	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#626262")).
		Width(calculatedLogWidth).
		Height(calculatedLogHeight)
	if m.focusedPane == 0 {
		logStyle = logStyle.BorderForeground(lipgloss.Color("#04B575"))
	}
	logPane := logStyle.Render(m.logViewport.View())

	topRow := lipgloss.JoinHorizontal(lipgloss.Top, logPane, sidebarPane)

	return lipgloss.JoinVertical(lipgloss.Top, topRow, actionPane)
}

// renderSidebarPane creates the sidebar content
func (m *Model) renderSidebarPane() string {
	var content strings.Builder

	if m.state == nil {
		content.WriteString(InfoStyle.Render("Waiting for server..."))
		return content.String()
	}

	content.WriteString(PhaseStyle.Render(m.state.Phase.String()))
	content.WriteString("\n")
	content.WriteString(InfoStyle.Render(fmt.Sprintf("Round %d", m.state.CurrentRound)))
	content.WriteString("\n\n")

	if m.state.CurrentEvent != nil {
		content.WriteString(WarningStyle.Render(m.state.CurrentEvent.Title))
		content.WriteString("\n\n")
	}

	if len(m.state.Players) > 0 {
		content.WriteString(InfoStyle.Render("Participants:"))
		content.WriteString("\n")
		for _, p := range sortedByName(m.state.Players) {
			marker := " "
			if p.HasResolved {
				marker = "✓"
			}
			line := fmt.Sprintf(" %s %s: %d", marker, p.Name, p.LiquidCoins)
			if p.EventDebt > 0 {
				line += ErrorStyle.Render(fmt.Sprintf(" (debt %d)", p.EventDebt))
			}
			content.WriteString(PlayerInfoStyle.Render(line))
			content.WriteString("\n")
		}
	}

	if me := m.participant(); me != nil {
		content.WriteString("\n")
		content.WriteString(PhaseStyle.Render("You:"))
		content.WriteString("\n")
		content.WriteString(fmt.Sprintf(" liquid %d, next income %d\n", me.LiquidCoins, me.NextIncome))
		content.WriteString(fmt.Sprintf(" short %d / long %d / emerg %d\n",
			me.Balances.Short, me.Balances.Long, me.Balances.Emergency))
		content.WriteString(fmt.Sprintf(" food balance %d\n", me.FoodBalance))
		if me.CurrentAllocation != nil {
			a := me.CurrentAllocation
			content.WriteString(fmt.Sprintf(" alloc %d/%d/%d/%d\n", a.Food, a.Short, a.Long, a.Emergency))
		}
	}

	return content.String()
}

// renderActionPane renders the command input pane
func (m *Model) renderActionPane() string {
	var content strings.Builder

	me := m.participant()
	switch {
	case m.state == nil:
		m.input.Placeholder = "Connecting..."
	case me == nil:
		m.input.Placeholder = "join <name> to get started, 'help' for commands"
	case m.state.Phase == engine.PhaseAllocation && me.CurrentAllocation == nil:
		m.input.Placeholder = fmt.Sprintf("alloc <food> <short> <long> <emergency> — budget %d", me.RoundBudget)
	case me.PendingAction != nil && !me.HasResolved:
		m.input.Placeholder = pendingPrompt(me.PendingAction)
	default:
		m.input.Placeholder = "'help' for commands"
	}

	content.WriteString(m.input.View())
	content.WriteString("\n")

	if m.focusedPane == 0 {
		content.WriteString(InfoStyle.Render(
			"Log focused: ↑↓ scroll, PgUp/PgDn half page, Home/End, Tab to input"))
	} else {
		content.WriteString(InfoStyle.Render(
			"Tab to scroll log • Enter to submit • Ctrl+C to quit"))
	}

	return content.String()
}

func sortedByName(players map[string]*engine.Participant) []*engine.Participant {
	out := make([]*engine.Participant, 0, len(players))
	for _, p := range players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
