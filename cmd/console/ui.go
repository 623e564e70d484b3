package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jbownzino/hoopwatch/internal/handlers"
	"github.com/jbownzino/hoopwatch/pkg/detection"
	"github.com/jbownzino/hoopwatch/pkg/session"
)

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config       *ConsoleConfig
	client       *http.Client
	session      *session.Session
	logViewport  viewport.Model
	metaViewport viewport.Model
	ready        bool
	width        int
	height       int
	err          error

	lines      []string
	detections []detection.Record
	verdict    *detection.Verdict
	modalText  string // text of the currently open modal, empty when idle
	statusMsg  string

	events       <-chan sseEvent
	cancelEvents context.CancelFunc

	// Quit confirmation state
	showQuitModal bool
}

type shotResultMsg struct {
	resp *handlers.ShotResponse
	err  error
}

type dismissResultMsg struct {
	resp *handlers.DismissResponse
	err  error
}

type detectionsMsg struct {
	records []detection.Record
	err     error
}

type eventsConnectedMsg struct {
	events <-chan sseEvent
	cancel context.CancelFunc
	err    error
}

type sseEventMsg struct {
	event sseEvent
	ok    bool
}

type copiedMsg struct {
	err error
}

var (
	logPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	shotStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	alertStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")). // red
			Bold(true)

	detectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("86")) // green

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey
)

func NewConsoleUI(cfg *ConsoleConfig, client *http.Client, s *session.Session) ConsoleUI {
	logVp := viewport.New(50, 20)
	logVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	return ConsoleUI{
		config:       cfg,
		client:       client,
		session:      s,
		logViewport:  logVp,
		metaViewport: metaVp,
		statusMsg:    "Press s to shoot",
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return m.connectEvents()
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.logViewport, vpCmd = m.logViewport.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		logWidth := int(float64(m.width)*0.7) - 4
		metaWidth := m.width - logWidth - 6

		m.logViewport.Width = logWidth - 2
		m.logViewport.Height = m.height - 6
		m.metaViewport.Width = metaWidth - 2
		m.metaViewport.Height = m.height - 4

		m.ready = true
		m.writeLogContent()
		m.metaViewport.SetContent(m.writeMetadata())

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			m.showQuitModal = true
			return m, nil
		case "s":
			m.statusMsg = "Shooting..."
			return m, m.shoot()
		case "d":
			m.statusMsg = "Closing modal..."
			return m, m.dismiss()
		case "c":
			return m, m.copyReport()
		case "r":
			return m, m.refreshDetections()
		}

	case shotResultMsg:
		if msg.err != nil {
			m.err = msg.err
			m.appendLine(errorStyle.Render("Error: " + msg.err.Error()))
			break
		}
		m.session = msg.resp.Session
		if msg.resp.Opened && msg.resp.Message != nil {
			m.modalText = msg.resp.Message.Text
			m.appendLine(shotStyle.Render(fmt.Sprintf("Shot #%d", m.session.ShotCount)))
			m.appendLine(alertStyle.Render("MODAL: ") + msg.resp.Message.Text)
			m.statusMsg = "Modal open. Press d to close it"
		} else if m.session.Cycle.ModalActive {
			m.appendLine(shotStyle.Render(fmt.Sprintf("Shot #%d absorbed by the open modal", m.session.ShotCount)))
		} else {
			m.appendLine(shotStyle.Render(fmt.Sprintf("Shot #%d", m.session.ShotCount)))
			m.statusMsg = "Press s to shoot"
		}
		m.metaViewport.SetContent(m.writeMetadata())

	case dismissResultMsg:
		if msg.err != nil {
			m.err = msg.err
			m.appendLine(errorStyle.Render("Error: " + msg.err.Error()))
			break
		}
		m.session = msg.resp.Session
		if msg.resp.Closed {
			m.modalText = ""
			m.appendLine(okStyle.Render("Modal closed, game resumed"))
			m.statusMsg = "Press s to shoot"
		} else {
			m.appendLine(statusStyle.Render("No modal to close"))
		}
		m.metaViewport.SetContent(m.writeMetadata())

	case detectionsMsg:
		if msg.err != nil {
			m.err = msg.err
			break
		}
		m.detections = msg.records
		m.metaViewport.SetContent(m.writeMetadata())

	case eventsConnectedMsg:
		if msg.err != nil {
			m.appendLine(statusStyle.Render("Event stream unavailable: " + msg.err.Error()))
			break
		}
		m.events = msg.events
		m.cancelEvents = msg.cancel
		return m, m.waitForEvent()

	case sseEventMsg:
		if !msg.ok {
			m.appendLine(statusStyle.Render("Event stream closed"))
			break
		}
		m.handleEvent(msg.event)
		return m, m.waitForEvent()

	case copiedMsg:
		if msg.err != nil {
			m.statusMsg = "Copy failed: " + msg.err.Error()
		} else {
			m.statusMsg = "Detection report copied to clipboard"
		}
	}

	m.logViewport, vpCmd = m.logViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)
	return m, tea.Batch(vpCmd, mvCmd)
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "y", "Y", "enter":
			if m.cancelEvents != nil {
				m.cancelEvents()
			}
			return m, tea.Quit
		case "n", "N", "esc":
			m.showQuitModal = false
		}
	}
	return m, nil
}

// handleEvent folds a server-sent event into the log. Shot and dismiss
// results from this console are already logged; events matter mostly for
// detections and verdicts arriving from the monitor and judge worker.
func (m *ConsoleUI) handleEvent(ev sseEvent) {
	switch ev.Type {
	case "detection.recorded":
		label, _ := ev.Data["label"].(string)
		text, _ := ev.Data["modal_text"].(string)
		m.appendLine(detectionStyle.Render("DETECTED: ") + fmt.Sprintf("%s (%q)", label, text))
	case "judge.verdict":
		pass, _ := ev.Data["pass"].(bool)
		reasoning, _ := ev.Data["reasoning"].(string)
		verdict := &detection.Verdict{Pass: pass, Reasoning: reasoning}
		if reason, ok := ev.Data["failure_reason"].(string); ok {
			verdict.FailureReason = reason
		}
		m.verdict = verdict
		if pass {
			m.appendLine(okStyle.Render("JUDGE: PASS ") + reasoning)
		} else {
			m.appendLine(alertStyle.Render("JUDGE: FAIL ") + reasoning)
		}
		m.metaViewport.SetContent(m.writeMetadata())
	}
}

func (m *ConsoleUI) appendLine(line string) {
	m.lines = append(m.lines, line)
	m.writeLogContent()
}

func (m *ConsoleUI) writeLogContent() {
	logWidth := m.logViewport.Width - 6

	var content strings.Builder
	content.WriteString(titleStyle.Render("HOOPWATCH") + "\n\n")
	content.WriteString("Shoot hoops; harmful modals interrupt the game.\n")
	content.WriteString("Close each one to keep playing.\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", max(logWidth-6, 1))) + "\n\n")

	for _, line := range m.lines {
		content.WriteString(wordwrap.String(line, logWidth) + "\n")
	}

	m.logViewport.SetContent(content.String())
	m.logViewport.GotoBottom()
}

func (m *ConsoleUI) writeMetadata() string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("SESSION") + "\n\n")

	content.WriteString("Session ID:\n")
	content.WriteString(m.session.ID.String()[:8] + "...\n\n")

	content.WriteString("Shots:\n")
	content.WriteString(fmt.Sprintf("%d total\n\n", m.session.ShotCount))

	content.WriteString("Score:\n")
	content.WriteString(fmt.Sprintf("%d\n\n", m.session.Score))

	content.WriteString("Modal:\n")
	if m.session.Cycle.ModalActive {
		content.WriteString(alertStyle.Render("OPEN") + "\n\n")
	} else {
		content.WriteString("none\n\n")
	}

	content.WriteString("Detections:\n")
	if len(m.detections) == 0 {
		content.WriteString("none yet\n\n")
	} else {
		for _, rec := range m.detections {
			content.WriteString("• " + rec.ContentTypeLabel + "\n")
		}
		content.WriteString("\n")
	}

	if m.verdict != nil {
		content.WriteString("Verdict:\n")
		if m.verdict.Pass {
			content.WriteString(okStyle.Render("PASS") + "\n\n")
		} else {
			content.WriteString(alertStyle.Render("FAIL") + "\n\n")
		}
	}

	content.WriteString("Commands:\n")
	content.WriteString("• s: Shoot\n")
	content.WriteString("• d: Close modal\n")
	content.WriteString("• r: Refresh detections\n")
	content.WriteString("• c: Copy report\n")
	content.WriteString("• q: Quit\n")

	return content.String()
}

func (m ConsoleUI) View() string {
	if !m.ready {
		return "Initializing..."
	}

	if m.showQuitModal {
		modal := modalStyle.Render("Quit the game?\n\n[y] yes   [n] no")
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal)
	}

	logPanel := logPanelStyle.Render(m.logViewport.View())
	metaPanel := metaPanelStyle.Render(m.metaViewport.View())
	body := lipgloss.JoinHorizontal(lipgloss.Top, logPanel, metaPanel)

	status := statusStyle.Render(" " + m.statusMsg)
	return body + "\n" + status
}

func (m ConsoleUI) shoot() tea.Cmd {
	return func() tea.Msg {
		resp, err := fireShot(m.client, m.config.APIBaseURL, m.session.ID)
		return shotResultMsg{resp: resp, err: err}
	}
}

func (m ConsoleUI) dismiss() tea.Cmd {
	return func() tea.Msg {
		resp, err := dismissModal(m.client, m.config.APIBaseURL, m.session.ID)
		return dismissResultMsg{resp: resp, err: err}
	}
}

func (m ConsoleUI) refreshDetections() tea.Cmd {
	return func() tea.Msg {
		records, err := listDetections(m.client, m.config.APIBaseURL, m.session.ID)
		return detectionsMsg{records: records, err: err}
	}
}

func (m ConsoleUI) copyReport() tea.Cmd {
	detections := m.detections
	return func() tea.Msg {
		if len(detections) == 0 {
			return copiedMsg{err: fmt.Errorf("no detections to copy")}
		}
		var blocks []string
		for _, rec := range detections {
			blocks = append(blocks, detection.ReportBlock(rec))
		}
		return copiedMsg{err: clipboard.WriteAll(strings.Join(blocks, "\n\n"))}
	}
}

func (m ConsoleUI) connectEvents() tea.Cmd {
	baseURL := m.config.APIBaseURL
	sessionID := m.session.ID
	return func() tea.Msg {
		ctx, cancel := context.WithCancel(context.Background())
		events, err := subscribeEvents(ctx, baseURL, sessionID)
		if err != nil {
			cancel()
			return eventsConnectedMsg{err: err}
		}
		return eventsConnectedMsg{events: events, cancel: cancel}
	}
}

func (m ConsoleUI) waitForEvent() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		ev, ok := <-events
		return sseEventMsg{event: ev, ok: ok}
	}
}
