package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/diogo/mira/internal/api"
	"github.com/diogo/mira/internal/chat"
	"github.com/diogo/mira/internal/history"
	"github.com/diogo/mira/internal/models"
	"github.com/diogo/mira/internal/render"
)

// Animation tick message
type animationTickMsg time.Time

// Message types for the TUI
type (
	// eventMsg carries one socket event into Update
	eventMsg struct {
		ev api.Event
	}
	uploadDoneMsg struct {
		reply models.Reply
		err   error
	}
	copiedMsg struct {
		err error
	}
)

// Connection is the socket the chat listens to. *api.SocketClient satisfies it.
type Connection interface {
	Connect(ctx context.Context) error
	Events() <-chan api.Event
	Done() <-chan struct{}
}

// clipboardWrite is swapped out in tests
var clipboardWrite = clipboard.WriteAll

type focusArea int

const (
	focusInput focusArea = iota
	focusSidebar
)

const (
	sidebarWidth       = 34
	minWidthForSidebar = 80
	headerHeight       = 3
	inputHeight        = 5
	footerHeight       = 2
)

const helpText = "Commands: /new  /delete  /image <path>  /copy  /quit"

// Model represents the TUI state
type Model struct {
	ctx     context.Context
	session *chat.Session
	conn    Connection
	mdOpts  render.Options

	// UI components
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model
	sidebar  sidebar
	focus    focusArea

	// State
	ready          bool
	err            error
	notice         string
	animating      bool
	spinning       bool
	animationFrame int

	// Dimensions
	width  int
	height int
}

// NewChatModel creates a new chat TUI model
func NewChatModel(ctx context.Context, session *chat.Session, conn Connection, mdOpts render.Options) Model {
	ta := textarea.New()
	ta.Placeholder = "Type your message here..."
	ta.CharLimit = 4000
	ta.ShowLineNumbers = false
	ta.SetHeight(2)
	// Enter sends; Alt+Enter inserts the newline explicitly
	ta.KeyMap.InsertNewline.SetEnabled(false)

	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Base = lipgloss.NewStyle().Foreground(colorText)
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(colorTextDim)
	ta.BlurredStyle = ta.FocusedStyle
	ta.Focus()

	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = loadingStyle

	m := Model{
		ctx:      ctx,
		session:  session,
		conn:     conn,
		mdOpts:   mdOpts,
		textarea: ta,
		spinner:  s,
		sidebar:  newSidebar(),
		focus:    focusInput,
		spinning: true,
	}
	m.sidebar.load(session.Conversations(), session.Store().ActiveID())
	return m
}

// Init connects and starts listening for socket events
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
		m.connect(),
		waitForEvent(m.conn),
	)
}

// connect dials once; failures arrive as events
func (m Model) connect() tea.Cmd {
	conn, ctx := m.conn, m.ctx
	return func() tea.Msg {
		_ = conn.Connect(ctx)
		return nil
	}
}

// waitForEvent blocks until the next socket event
func waitForEvent(conn Connection) tea.Cmd {
	return func() tea.Msg {
		select {
		case ev := <-conn.Events():
			return eventMsg{ev: ev}
		case <-conn.Done():
			return nil
		}
	}
}

// animationTick returns a command that sends animation tick messages
func animationTick() tea.Cmd {
	return tea.Tick(time.Millisecond*80, func(t time.Time) tea.Msg {
		return animationTickMsg(t)
	})
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.updateViewport()
		m.viewport.GotoBottom()

	case tea.KeyMsg:
		return m.handleKey(msg)

	case eventMsg:
		cmds = append(cmds, m.handleEvent(msg.ev), waitForEvent(m.conn))

	case uploadDoneMsg:
		if _, err := m.session.FinishUpload(msg.reply, msg.err); err != nil {
			m.err = err
		}
		if msg.err != nil {
			m.err = msg.err
		}
		m.refresh()
		m.viewport.GotoBottom()

	case copiedMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("copy to clipboard: %w", msg.err)
		} else {
			m.notice = "Copied last reply to clipboard"
		}

	case spinner.TickMsg:
		if m.session.Connected() {
			m.spinning = false
		} else {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case animationTickMsg:
		if m.session.Pending() {
			m.animationFrame++
			cmds = append(cmds, animationTick())
		} else {
			m.animating = false
		}

	case tea.MouseMsg:
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// handleKey routes key presses by mode and focus
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.sidebar.mode {
	case sidebarConfirmDelete:
		return m.updateConfirmDelete(msg)
	case sidebarSearch:
		return m.updateSearch(msg)
	}

	switch msg.String() {
	case "esc":
		return m, tea.Quit
	case "tab":
		if m.focus == focusInput {
			m.setFocus(focusSidebar)
		} else {
			m.setFocus(focusInput)
		}
		m.resize()
		return m, nil
	case "ctrl+n":
		return m.newConversation()
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	if m.focus == focusSidebar {
		return m.updateSidebar(msg)
	}
	return m.updateInput(msg)
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		return m.submit()
	case "alt+enter":
		if m.inputEnabled() {
			m.textarea.InsertString("\n")
		}
		return m, nil
	}

	// the textarea is hidden behind the loading animation
	if !m.inputEnabled() {
		return m, nil
	}
	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

func (m Model) updateSidebar(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		m.sidebar.up()
	case "down", "j":
		m.sidebar.down()
	case "enter":
		conv := m.sidebar.selected()
		if conv == nil {
			return m, nil
		}
		if _, err := m.session.SelectConversation(conv.ID); err != nil {
			m.err = err
		} else {
			m.err = nil
			m.setFocus(focusInput)
		}
		m.refresh()
		m.viewport.GotoBottom()
	case "d", "delete":
		m.sidebar.askDelete(m.sidebar.selected())
	case "n":
		return m.newConversation()
	case "/":
		m.sidebar.startSearch()
		return m, textinput.Blink
	}
	return m, nil
}

func (m Model) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		id, title := m.sidebar.deleteID, m.sidebar.deleteTitle
		m.sidebar.cancelDelete()
		if _, err := m.session.DeleteConversation(id); err != nil {
			m.err = err
		} else {
			m.notice = fmt.Sprintf("Deleted '%s'", truncateTitle(title, 30))
		}
		m.refresh()
		m.viewport.GotoBottom()
	case "n", "N", "esc":
		m.sidebar.cancelDelete()
	}
	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.sidebar.endSearch(false)
		return m, nil
	case "enter":
		m.sidebar.endSearch(true)
		return m, nil
	}
	var cmd tea.Cmd
	m.sidebar.searchInput, cmd = m.sidebar.searchInput.Update(msg)
	return m, cmd
}

// submit sends the input or runs a slash command. Commands work while
// disconnected; plain text waits in the textarea until the socket is up.
func (m Model) submit() (tea.Model, tea.Cmd) {
	if !m.inputEnabled() {
		return m, nil
	}
	input := strings.TrimSpace(m.textarea.Value())
	if input == "" {
		return m, nil
	}

	m.err = nil
	m.notice = ""

	if strings.HasPrefix(input, "/") {
		m.textarea.Reset()
		return m.runCommand(input)
	}

	if !m.session.CanSend() {
		m.notice = "Not connected yet, your message is kept until the service is back"
		return m, nil
	}
	sent, err := m.session.Send(input)
	if !sent {
		return m, nil
	}
	m.textarea.Reset()
	if err != nil {
		m.err = err
	}
	m.refresh()
	m.viewport.GotoBottom()
	return m, m.startLoading()
}

// runCommand handles /new, /delete, /image, /copy and /quit
func (m Model) runCommand(input string) (tea.Model, tea.Cmd) {
	first := strings.Fields(input)[0]
	name := strings.ToLower(first)
	arg := strings.TrimSpace(input[len(first):])

	switch name {
	case "/quit", "/exit":
		return m, tea.Quit

	case "/new":
		return m.newConversation()

	case "/delete":
		conv := m.session.Active()
		if conv == nil {
			m.notice = "No conversation to delete"
			return m, nil
		}
		m.sidebar.askDelete(conv)
		return m, nil

	case "/image":
		if arg == "" {
			m.err = fmt.Errorf("usage: /image <path>")
			return m, nil
		}
		path := expandPath(arg)
		if err := m.session.BeginUpload(path); err != nil {
			m.err = err
			return m, nil
		}
		m.refresh()
		m.viewport.GotoBottom()
		return m, tea.Batch(m.analyze(path), m.startLoading())

	case "/copy":
		text, ok := m.session.LastReply()
		if !ok {
			m.notice = "Nothing to copy yet"
			return m, nil
		}
		return m, copyToClipboard(text)

	case "/help":
		m.notice = helpText
		return m, nil
	}

	m.err = fmt.Errorf("unknown command: %s (try /help)", name)
	return m, nil
}

// analyze uploads the image off the UI goroutine
func (m Model) analyze(path string) tea.Cmd {
	session, ctx := m.session, m.ctx
	return func() tea.Msg {
		reply, err := session.Analyze(ctx, path)
		return uploadDoneMsg{reply: reply, err: err}
	}
}

func copyToClipboard(text string) tea.Cmd {
	return func() tea.Msg {
		return copiedMsg{err: clipboardWrite(text)}
	}
}

func (m Model) newConversation() (tea.Model, tea.Cmd) {
	if _, err := m.session.NewConversation(); err != nil {
		m.err = err
	}
	m.setFocus(focusInput)
	m.resize()
	m.refresh()
	return m, nil
}

// handleEvent applies a socket event to the session and the view
func (m *Model) handleEvent(ev api.Event) tea.Cmd {
	if _, err := m.session.HandleEvent(ev); err != nil {
		m.err = err
	}

	var cmd tea.Cmd
	switch ev.Kind {
	case api.EventOpen:
		m.err = nil
		if m.focus == focusInput {
			m.textarea.Focus()
		}
	case api.EventError:
		m.err = ev.Err
	case api.EventClose:
		if !m.spinning {
			m.spinning = true
			cmd = m.spinner.Tick
		}
	}

	m.refresh()
	m.viewport.GotoBottom()
	return cmd
}

// startLoading starts the reply animation if a reply is outstanding
func (m *Model) startLoading() tea.Cmd {
	if !m.session.Pending() || m.animating {
		return nil
	}
	m.animating = true
	m.animationFrame = 0
	return animationTick()
}

// inputEnabled reports whether the textarea takes keys. Sending plain
// text additionally needs a connection.
func (m Model) inputEnabled() bool {
	return !m.session.Pending()
}

func (m *Model) setFocus(f focusArea) {
	m.focus = f
	if f == focusInput {
		m.textarea.Focus()
	} else {
		m.textarea.Blur()
	}
}

// refresh reloads the sidebar and the message list from the session
func (m *Model) refresh() {
	m.sidebar.load(m.session.Conversations(), m.session.Store().ActiveID())
	m.updateViewport()
}

// sidebarWidth returns the columns taken by the sidebar next to the chat
func (m Model) sidebarWidth() int {
	if m.width < minWidthForSidebar {
		return 0
	}
	return sidebarWidth
}

// resize lays out the viewport and the textarea for the current size
func (m *Model) resize() {
	mainWidth := m.width - m.sidebarWidth()
	contentWidth := mainWidth - 4

	vpHeight := m.height - headerHeight - inputHeight - footerHeight - 2
	if vpHeight < 3 {
		vpHeight = 3
	}

	if !m.ready {
		m.viewport = viewport.New(contentWidth, vpHeight)
		m.viewport.KeyMap = viewport.KeyMap{
			PageDown: key.NewBinding(key.WithKeys("pgdown")),
			PageUp:   key.NewBinding(key.WithKeys("pgup")),
		}
		m.ready = true
	} else {
		m.viewport.Width = contentWidth
		m.viewport.Height = vpHeight
	}
	m.textarea.SetWidth(contentWidth)
}

// View renders the TUI
func (m Model) View() string {
	if !m.ready {
		return loadingStyle.Render("  Initializing...")
	}

	sw := m.sidebarWidth()
	if sw == 0 && m.focus == focusSidebar {
		return lipgloss.JoinVertical(lipgloss.Left,
			m.sidebar.view(m.width, m.height-1, true),
			m.renderStatusBar(m.width),
		)
	}

	main := m.renderMain(m.width - sw)
	if sw == 0 {
		return main
	}
	side := m.sidebar.view(sw, lipgloss.Height(main), m.focus == focusSidebar)
	return lipgloss.JoinHorizontal(lipgloss.Top, side, main)
}

func (m Model) renderMain(width int) string {
	var sections []string

	// Header
	status := onlineStyle.Render("● online")
	if !m.session.Connected() {
		status = offlineStyle.Render(m.spinner.View() + " connecting")
	}
	headerParts := []string{
		titleStyle.Render("✦ MiraAI"),
		hintStyle.Render("  •  "),
		status,
	}
	if conv := m.session.Active(); conv != nil {
		headerParts = append(headerParts,
			hintStyle.Render("  •  "),
			subtitleStyle.Render(truncateTitle(conv.Title, width-32)),
		)
	}
	header := headerStyle.Width(width - 2).Render(lipgloss.JoinHorizontal(lipgloss.Center, headerParts...))
	sections = append(sections, header)

	// Messages
	var messagesContent string
	if conv := m.session.Active(); conv == nil || conv.IsEmpty() {
		messagesContent = m.renderWelcome()
	} else {
		messagesContent = m.viewport.View()
	}
	sections = append(sections, messagesAreaStyle.
		Width(width-2).
		Height(m.viewport.Height).
		Render(messagesContent))

	// Input
	var inputContent string
	panel := inputPanelStyle
	switch {
	case m.session.Pending():
		inputContent = m.renderLoadingAnimation()
	case !m.session.Connected():
		panel = inputPanelDisabledStyle
		inputContent = lipgloss.JoinVertical(
			lipgloss.Left,
			hintStyle.Render("Waiting for the assistant service... (commands still work)"),
			m.textarea.View(),
		)
	default:
		inputContent = lipgloss.JoinVertical(
			lipgloss.Left,
			inputLabelStyle.Render("You"),
			m.textarea.View(),
		)
	}
	sections = append(sections, panel.Width(width-2).Render(inputContent))

	sections = append(sections, m.renderFeedback(width), m.renderStatusBar(width))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderWelcome renders the welcome screen for an empty or missing conversation
func (m Model) renderWelcome() string {
	width := m.viewport.Width
	height := m.viewport.Height

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		welcomeIconStyle.Width(width).Render("✦"),
		"",
		welcomeTitleStyle.Width(width).Render("MiraAI"),
		"",
		welcomeStyle.Width(width).Render("How can I help you today?"),
	)

	topPadding := (height - lipgloss.Height(content)) / 2
	if topPadding < 0 {
		topPadding = 0
	}
	return strings.Repeat("\n", topPadding) + content
}

// renderLoadingAnimation renders a colorful animated loading indicator
func (m Model) renderLoadingAnimation() string {
	chars := []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}
	barChars := []string{"█", "█", "█", "█", "█", "█", "█", "█", "▓", "▒", "░"}

	frame := m.animationFrame

	spinIdx := frame % len(chars)
	spinColor := gradientColors[frame%len(gradientColors)]
	spin := lipgloss.NewStyle().Foreground(spinColor).Bold(true).Render(chars[spinIdx])

	barWidth := 20
	var bar strings.Builder
	for i := 0; i < barWidth; i++ {
		colorIdx := (i + frame) % len(gradientColors)
		charIdx := (i + frame/2) % len(barChars)
		bar.WriteString(lipgloss.NewStyle().Foreground(gradientColors[colorIdx]).Render(barChars[charIdx]))
	}

	var dots strings.Builder
	numDots := (frame / 3) % 4
	for i := 0; i < numDots; i++ {
		dotColor := gradientColors[(frame+i)%len(gradientColors)]
		dots.WriteString(lipgloss.NewStyle().Foreground(dotColor).Render("●"))
	}
	for i := numDots; i < 3; i++ {
		dots.WriteString(lipgloss.NewStyle().Foreground(colorTextMute).Render("○"))
	}

	label := " MiraAI is thinking "
	if m.session.Uploading() {
		label = " Analyzing image "
	}
	text := lipgloss.NewStyle().Foreground(colorText).Render(label)

	return fmt.Sprintf("%s %s %s %s", spin, bar.String(), text, dots.String())
}

// renderFeedback shows the delete prompt, the last error or a notice
func (m Model) renderFeedback(width int) string {
	var line string
	switch {
	case m.sidebar.mode == sidebarConfirmDelete:
		line = sidebarConfirmStyle.Render(fmt.Sprintf("Delete '%s'? (y/n)", truncateTitle(m.sidebar.deleteTitle, 40)))
	case m.err != nil:
		line = errorStyle.Render("✗ " + firstLine(m.err.Error()))
	case m.notice != "":
		line = noticeStyle.Render(m.notice)
	}
	return lipgloss.NewStyle().Width(width).MaxHeight(1).Render(line)
}

// renderStatusBar renders the bottom status bar with shortcuts
func (m Model) renderStatusBar(width int) string {
	type shortcut struct {
		key  string
		desc string
	}
	shortcuts := []shortcut{
		{"Enter", "Send"},
		{"Alt+Enter", "Newline"},
		{"Tab", "Chats"},
		{"Ctrl+N", "New"},
		{"Esc", "Quit"},
	}
	if m.focus == focusSidebar {
		shortcuts = []shortcut{
			{"↑↓", "Move"},
			{"Enter", "Open"},
			{"d", "Delete"},
			{"/", "Search"},
			{"n", "New"},
			{"Tab", "Chat"},
		}
	}

	var items []string
	for _, s := range shortcuts {
		items = append(items, statusKeyStyle.Render(s.key)+statusDescStyle.Render(" "+s.desc))
	}
	return statusBarStyle.Width(width).Align(lipgloss.Center).Render(strings.Join(items, "  │  "))
}

// updateViewport refreshes the viewport content with styled messages
func (m *Model) updateViewport() {
	if !m.ready {
		return
	}
	conv := m.session.Active()
	if conv == nil {
		m.viewport.SetContent("")
		return
	}

	var content strings.Builder
	bubbleWidth := max(m.viewport.Width-6, 12)
	opts := m.mdOpts.ForBubble(bubbleWidth)

	for i, msg := range conv.Messages {
		if i > 0 {
			content.WriteString("\n")
		}

		if msg.Role == models.RoleUser {
			label := userLabelStyle.Render("You")
			bubble := userBubbleStyle.Width(bubbleWidth).Render(history.PlainText(msg.Text))
			content.WriteString(label + "\n" + bubble)
		} else {
			label := assistantLabelStyle.Render("✦ MiraAI")
			bubble := assistantBubbleStyle.Width(bubbleWidth).Render(render.Reply(msg.Text, opts))
			content.WriteString(label + "\n" + bubble)
		}
		content.WriteString("\n")
	}

	m.viewport.SetContent(content.String())
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// expandPath strips quotes and expands a leading ~
func expandPath(p string) string {
	p = strings.Trim(p, `"'`)
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	return p
}

// RunChat starts the chat TUI and blocks until the user quits
func RunChat(ctx context.Context, session *chat.Session, conn Connection, mdOpts render.Options) error {
	m := NewChatModel(ctx, session, conn, mdOpts)

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	_, err := p.Run()
	return err
}
