package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"expense-cli/internal/app"
	"expense-cli/internal/chat"
)

type focusArea int

const (
	focusInput focusArea = iota
	focusSidebar
	focusChat
)

const (
	sidebarWidth = 28
	callTimeout  = 90 * time.Second
)

type (
	sessionsLoadedMsg struct{ err error }
	activatedMsg      struct {
		id  string
		err error
	}
	createdMsg struct {
		id  string
		err error
	}
	replyMsg struct{ out chat.Outcome }
	olderMsg struct {
		prepended int
		err       error
	}
	renamedMsg struct{ err error }
	deletedMsg struct {
		id  string
		err error
	}
	thinkTickMsg struct{}
	authLostMsg  struct{}
)

// Model is the chat screen: a session sidebar, the transcript viewport and
// the input box.
type Model struct {
	app   *app.Application
	theme Theme
	keys  keyMap

	width  int
	height int
	ready  bool

	focus      focusArea
	sidebarSel int

	input    textarea.Model
	chatVP   viewport.Model
	markdown *ReplyRenderer

	// renaming redirects the input box to a new title for renameTarget.
	renaming     bool
	renameTarget string

	// loadingOlder gates the near-top pagination trigger so one scroll
	// gesture cannot stack page requests.
	loadingOlder bool
	anchor       Anchor

	ticking        bool
	statusText     string
	authLost       chan struct{}
	initialSession string

	// SessionExpired is set when the auth watcher killed the session; main
	// prints the login hint after the program exits.
	SessionExpired bool
}

func New(application *app.Application) *Model {
	ta := textarea.New()
	ta.Placeholder = "Ask about your expenses... (Enter to send)"
	ta.Focus()
	ta.CharLimit = 4000
	ta.SetHeight(1)
	ta.Prompt = " "
	ta.ShowLineNumbers = false
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.BlurredStyle.CursorLine = lipgloss.NewStyle()

	return &Model{
		app:        application,
		theme:      NewTheme(),
		keys:       defaultKeyMap(),
		width:      100,
		height:     30,
		focus:      focusInput,
		input:      ta,
		markdown:   NewReplyRenderer(),
		statusText: "Ready",
		authLost:   make(chan struct{}, 1),
	}
}

// AuthLost returns the channel the auth watcher pokes on forced logout.
func (m *Model) AuthLost() chan<- struct{} { return m.authLost }

// SetInitialSession opens a specific conversation on startup.
func (m *Model) SetInitialSession(id string) { m.initialSession = id }

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink, m.loadSessionsCmd(), m.waitAuthLost()}
	if id := m.initialSession; id != "" {
		cmds = append(cmds, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
			defer cancel()
			return activatedMsg{id: id, err: m.app.Chat.Activate(ctx, id)}
		})
	}
	return tea.Batch(cmds...)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		chatW, chatH := m.chatSize()
		if !m.ready {
			m.chatVP = viewport.New(chatW, chatH)
			m.ready = true
		} else {
			m.chatVP.Width = chatW
			m.chatVP.Height = chatH
		}
		m.input.SetWidth(maxInt(10, m.width-sidebarWidth-8))
		m.refreshTranscript()
		return m, nil

	case tea.KeyMsg:
		return m.updateKey(msg)

	case sessionsLoadedMsg:
		if msg.err != nil {
			m.statusText = "Could not load conversations"
		}
		return m, nil

	case activatedMsg:
		if msg.err != nil {
			m.statusText = "Could not open conversation"
			return m, nil
		}
		m.statusText = "Ready"
		m.refreshTranscript()
		m.chatVP.GotoBottom()
		return m, nil

	case createdMsg:
		if msg.err != nil {
			m.statusText = "Could not create conversation"
			return m, nil
		}
		m.sidebarSel = 0
		m.refreshTranscript()
		return m, nil

	case replyMsg:
		if msg.out.Unauthorized {
			m.app.ForceLogout()
			m.SessionExpired = true
			return m, tea.Quit
		}
		wasBottom := WasAtBottom(m.chatVP)
		m.refreshTranscript()
		if wasBottom {
			m.chatVP.GotoBottom()
		}
		m.statusText = "Ready"
		return m, nil

	case olderMsg:
		m.loadingOlder = false
		if msg.err != nil {
			m.statusText = "Could not load older messages"
			return m, nil
		}
		if msg.prepended > 0 {
			m.refreshTranscript()
			RestoreAfterPrepend(&m.chatVP, m.anchor)
		}
		return m, nil

	case renamedMsg:
		if msg.err != nil {
			m.statusText = "Rename failed"
		}
		return m, nil

	case deletedMsg:
		if msg.err != nil {
			m.statusText = "Delete failed"
			return m, nil
		}
		if m.sidebarSel >= len(m.app.Chat.Summaries()) {
			m.sidebarSel = maxInt(0, len(m.app.Chat.Summaries())-1)
		}
		m.refreshTranscript()
		return m, nil

	case thinkTickMsg:
		if !m.app.Thinking.View().Active {
			m.ticking = false
			return m, nil
		}
		m.refreshTranscript()
		// Re-arm directly: thinkTick would bail on the still-set ticking
		// flag and the animation would freeze after one repaint.
		return m, m.thinkTickOnce()

	case authLostMsg:
		m.SessionExpired = true
		return m, tea.Quit
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.chatVP, cmd = m.chatVP.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		if m.renaming {
			m.renaming = false
			m.input.Reset()
			m.input.Placeholder = "Ask about your expenses... (Enter to send)"
		}
		return m, nil

	case key.Matches(msg, m.keys.FocusNext):
		m.cycleFocus()
		return m, nil

	case key.Matches(msg, m.keys.NewChat):
		return m, m.createSessionCmd()

	case key.Matches(msg, m.keys.Rename):
		if id := m.selectedSessionID(); id != "" {
			m.renaming = true
			m.renameTarget = id
			m.input.Reset()
			m.input.Placeholder = "New title... (Enter to rename, Esc to cancel)"
			m.focus = focusInput
			m.input.Focus()
		}
		return m, nil

	case key.Matches(msg, m.keys.Delete):
		if id := m.selectedSessionID(); id != "" {
			return m, m.deleteSessionCmd(id)
		}
		return m, nil

	case key.Matches(msg, m.keys.Enter):
		if m.focus == focusSidebar {
			return m, m.activateSelectedCmd()
		}
		return m, m.onEnter()

	case msg.Type == tea.KeyUp:
		switch m.focus {
		case focusSidebar:
			if m.sidebarSel > 0 {
				m.sidebarSel--
			}
			return m, nil
		case focusChat:
			m.chatVP.LineUp(1)
			return m, m.maybeLoadOlder()
		}

	case msg.Type == tea.KeyDown:
		switch m.focus {
		case focusSidebar:
			if m.sidebarSel < len(m.app.Chat.Summaries())-1 {
				m.sidebarSel++
			}
			return m, nil
		case focusChat:
			m.chatVP.LineDown(1)
			return m, nil
		}

	case msg.Type == tea.KeyPgUp:
		m.chatVP.ViewUp()
		return m, m.maybeLoadOlder()

	case msg.Type == tea.KeyPgDown:
		m.chatVP.ViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// onEnter handles the input box: either a rename commit or a message send.
func (m *Model) onEnter() tea.Cmd {
	val := strings.TrimSpace(m.input.Value())
	if val == "" {
		return nil
	}

	if m.renaming {
		target := m.renameTarget
		m.renaming = false
		m.input.Reset()
		m.input.Placeholder = "Ask about your expenses... (Enter to send)"
		return m.renameSessionCmd(target, val)
	}

	m.input.Reset()
	pending, err := m.app.Dispatcher.Send(context.Background(), val, nil, "")
	if err != nil {
		m.statusText = "Could not send message"
		return nil
	}
	if pending == nil {
		// Throttled: dropped silently.
		return nil
	}

	m.statusText = "Waiting for assistant"
	m.refreshTranscript()
	m.chatVP.GotoBottom()

	wait := func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		return replyMsg{out: pending.Await(ctx)}
	}
	return tea.Batch(wait, m.thinkTick())
}

// maybeLoadOlder fires the backward-page load once the view is near the top.
func (m *Model) maybeLoadOlder() tea.Cmd {
	if m.loadingOlder || !NearTop(m.chatVP) {
		return nil
	}
	active, ok := m.app.Chat.Active()
	if !ok || !active.HasMore {
		return nil
	}
	m.loadingOlder = true
	m.anchor = CaptureAnchor(m.chatVP)
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		n, err := m.app.Chat.LoadOlder(ctx)
		return olderMsg{prepended: n, err: err}
	}
}

func (m *Model) loadSessionsCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		return sessionsLoadedMsg{err: m.app.Chat.Load(ctx)}
	}
}

func (m *Model) activateSelectedCmd() tea.Cmd {
	id := m.selectedSessionID()
	if id == "" {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		return activatedMsg{id: id, err: m.app.Chat.Activate(ctx, id)}
	}
}

func (m *Model) createSessionCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		d, err := m.app.Chat.Create(ctx)
		return createdMsg{id: d.ID, err: err}
	}
}

func (m *Model) renameSessionCmd(id, title string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		return renamedMsg{err: m.app.Chat.Rename(ctx, id, title)}
	}
}

func (m *Model) deleteSessionCmd(id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		return deletedMsg{id: id, err: m.app.Chat.Delete(ctx, id)}
	}
}

func (m *Model) thinkTick() tea.Cmd {
	if m.ticking {
		return nil
	}
	m.ticking = true
	return m.thinkTickOnce()
}

func (m *Model) thinkTickOnce() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(time.Time) tea.Msg { return thinkTickMsg{} })
}

func (m *Model) waitAuthLost() tea.Cmd {
	ch := m.authLost
	return func() tea.Msg {
		<-ch
		return authLostMsg{}
	}
}

func (m *Model) cycleFocus() {
	m.focus++
	if m.focus > focusChat {
		m.focus = focusInput
	}
	if m.focus == focusInput {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
}

func (m *Model) selectedSessionID() string {
	sums := m.app.Chat.Summaries()
	if m.sidebarSel < 0 || m.sidebarSel >= len(sums) {
		return ""
	}
	return sums[m.sidebarSel].ID
}

// refreshTranscript rebuilds the viewport content from the active
// conversation. The thinking placeholder renders as the live indicator, and
// only when the indicator still belongs to the conversation on screen.
func (m *Model) refreshTranscript() {
	if !m.ready {
		return
	}
	active, ok := m.app.Chat.Active()
	if !ok {
		m.chatVP.SetContent(m.theme.TopBarMeta.Render("No conversation selected. Ctrl+N starts one."))
		return
	}

	width := maxInt(20, m.chatVP.Width-2)
	var b strings.Builder
	for _, msg := range active.Messages {
		if msg.IsThinking() {
			if m.app.Thinking.VisibleFor(active.ID) {
				b.WriteString(m.renderThinking())
				b.WriteString("\n\n")
			}
			continue
		}
		b.WriteString(m.renderMessage(msg, width))
		b.WriteString("\n\n")
	}
	m.chatVP.SetContent(strings.TrimRight(b.String(), "\n"))
}

func (m *Model) renderMessage(msg chat.Message, width int) string {
	var head string
	switch msg.Role {
	case chat.RoleUser:
		head = m.theme.RoleYou.Render("YOU")
	default:
		head = m.theme.RoleAI.Render("AST")
	}
	meta := m.theme.TopBarMeta.Render(msg.Timestamp.Format("15:04"))

	var body string
	if msg.Role == chat.RoleAssistant {
		body = m.markdown.Render(msg.Content, width)
	} else {
		body = lipgloss.NewStyle().Foreground(m.theme.TextPrimary).Width(width).Render(msg.Content)
	}
	if len(msg.Attachments) > 0 {
		body += "\n" + m.theme.TopBarMeta.Render("📎 "+msg.Attachments[0].Name)
	}
	return head + " " + meta + "\n" + body
}

func (m *Model) renderThinking() string {
	v := m.app.Thinking.View()
	return m.theme.Thinking.Render(v.Phrase + strings.Repeat(".", v.Dots))
}

func (m *Model) View() string {
	if !m.ready {
		return "…"
	}
	top := m.renderTopBar()
	body := lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), m.renderChatPane())
	input := m.renderInput()
	footer := m.theme.Footer.Width(m.width).Render(
		"Tab focus  Ctrl+N new  Ctrl+R rename  Ctrl+D delete  Ctrl+Q quit")
	return lipgloss.JoinVertical(lipgloss.Left, top, body, input, footer)
}

func (m *Model) renderTopBar() string {
	left := m.theme.TopBarTitle.Render("xpa")
	if creds, ok := m.app.Creds.Current(); ok {
		left += " " + m.theme.TopBarMeta.Render(creds.UserFirstName+" "+creds.UserLastName)
	}
	status := m.theme.TopBarMeta.Render(m.statusText)
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(status)
	if gap < 1 {
		gap = 1
	}
	return m.theme.TopBar.Render(left + strings.Repeat(" ", gap) + status)
}

func (m *Model) renderSidebar() string {
	sums := m.app.Chat.Summaries()
	activeID := m.app.Chat.ActiveID()

	var b strings.Builder
	title := "Chats"
	b.WriteString(m.theme.PaneTitle.Render(title))
	b.WriteString("\n")
	if len(sums) == 0 {
		b.WriteString(m.theme.SidebarMeta.Render("No chat history yet"))
	}
	for i, s := range sums {
		label := truncateRunes(s.Title, sidebarWidth-6)
		switch {
		case i == m.sidebarSel && m.focus == focusSidebar:
			label = m.theme.SidebarSel.Render("> " + label)
		case s.ID == activeID:
			label = m.theme.SidebarSel.Render("  " + label)
		default:
			label = m.theme.SidebarItem.Render("  " + label)
		}
		b.WriteString(label)
		b.WriteString("\n")
		b.WriteString(m.theme.SidebarMeta.Render("  " + s.UpdatedAt.Format("Jan 2")))
		b.WriteString("\n")
	}

	box := m.theme.Pane
	if m.focus == focusSidebar {
		box = m.theme.PaneFocused
	}
	_, chatH := m.chatSize()
	return box.Width(sidebarWidth).Height(chatH).Render(b.String())
}

func (m *Model) renderChatPane() string {
	box := m.theme.Pane
	if m.focus == focusChat {
		box = m.theme.PaneFocused
	}
	chatW, chatH := m.chatSize()
	return box.Width(chatW).Height(chatH).Render(m.chatVP.View())
}

func (m *Model) renderInput() string {
	box := m.theme.InputBox
	if m.focus == focusInput {
		box = m.theme.InputBoxF
	}
	return box.Width(maxInt(10, m.width-4)).Render(m.input.View())
}

func (m *Model) chatSize() (w, h int) {
	w = m.width - sidebarWidth - 6
	if w < 30 {
		w = 30
	}
	h = m.height - 7
	if h < 5 {
		h = 5
	}
	return w, h
}

func truncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	if maxRunes <= 1 {
		return string(r[:maxRunes])
	}
	return string(r[:maxRunes-1]) + "…"
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
