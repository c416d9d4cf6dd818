package ui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/abhianand123/The-Ultimate-YT-Downloader/internal/domain"
)

// Meta is static information shown in the header.
type Meta struct {
	Version   string
	Backend   string
	Transport string
}

type EventMsg struct {
	Event domain.Event
	OK    bool
}

type pulseMsg struct{}

type choice[T any] struct {
	Value T
	Label string
	Hint  string
}

var platformChoices = []choice[domain.Platform]{
	{Value: domain.PlatformPrimary, Label: "YouTube", Hint: "Video in any available quality, or audio as MP3"},
	{Value: domain.PlatformAudio, Label: "YouTube Music", Hint: "Songs and playlists as MP3"},
}

var modeChoices = []choice[domain.Mode]{
	{Value: domain.ModeSingle, Label: "Single Track", Hint: "Download one song as MP3"},
	{Value: domain.ModeCollection, Label: "Playlist", Hint: "Download every track of a playlist"},
}

type Model struct {
	ctx     context.Context
	events  <-chan domain.Event
	actions chan<- domain.Action
	cancel  func()

	state domain.AppState
	meta  Meta

	width  int
	height int

	progress progress.Model
	logVP    viewport.Model
	input    textinput.Model
	spin     spinner.Model

	layout layoutState

	// Highlighted row in the platform and mode lists.
	cursor int

	// Cancellation requested by the user (engine context is cancelled).
	cancelling bool

	// Events channel closed (engine finished or was cancelled).
	engineDone bool

	// When true, keep the log viewport pinned to bottom as new logs arrive.
	followLogs bool

	pulseOn bool

	confirmQuitActive   bool
	confirmQuitSelected int // 0 = quit, 1 = stay
}

func NewModel(ctx context.Context, events <-chan domain.Event, actions chan<- domain.Action, meta Meta, cancel func()) *Model {
	spin := spinner.New()
	spin.Spinner = spinner.Line

	in := textinput.New()
	in.Prompt = "URL › "
	in.Placeholder = "https://www.youtube.com/watch?v=…"
	in.CharLimit = 2048

	return &Model{
		ctx:        ctx,
		events:     events,
		actions:    actions,
		cancel:     cancel,
		state:      newAppState(time.Now()),
		meta:       meta,
		progress:   progress.New(progress.WithSolidFill(progressFillHex), progress.WithoutPercentage()),
		input:      in,
		spin:       spin,
		followLogs: true,
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		waitForEvent(m.events),
		m.spin.Tick,
		pulseTick(),
	)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.reflow()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case pulseMsg:
		if m.state.Phase.Kind == domain.PhaseStreaming && !m.engineDone && !m.cancelling {
			m.pulseOn = !m.pulseOn
			m.reflow()
		} else {
			m.pulseOn = false
		}
		return m, pulseTick()

	case tea.KeyMsg:
		return m.handleKey(msg)

	case EventMsg:
		if !msg.OK {
			// Engine finished; keep UI open until user quits, unless the user asked to leave.
			m.engineDone = true
			m.input.Blur()
			m.reflow()
			if m.cancelling {
				return m, tea.Quit
			}
			return m, nil
		}
		cmd := m.applyEvent(msg.Event)
		m.reflow()
		return m, tea.Batch(cmd, waitForEvent(m.events))

	default:
		if m.input.Focused() {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	lowerKey := strings.ToLower(key)

	if m.confirmQuitActive {
		switch lowerKey {
		case "esc", "ctrl+q":
			m.closeConfirmQuit()
		case "left", "up", "shift+tab":
			m.confirmQuitSelected = 0
		case "right", "down", "tab":
			m.confirmQuitSelected = 1
		case "enter":
			if m.confirmQuitSelected == 0 {
				return m, m.quit()
			}
			m.closeConfirmQuit()
		}
		m.reflow()
		return m, nil
	}

	switch lowerKey {
	case "ctrl+q":
		if m.engineDone || !m.downloadActive() {
			return m, m.quit()
		}
		m.confirmQuitActive = true
		m.confirmQuitSelected = 0
		m.reflow()
		return m, nil
	case "ctrl+c":
		// First press cancels the engine, second press quits.
		if !m.cancelling {
			m.requestCancel()
			m.reflow()
			return m, nil
		}
		return m, tea.Quit
	case "pgup", "pageup":
		m.followLogs = false
		m.logVP.LineUp(m.logVP.Height)
		m.reflow()
		return m, nil
	case "pgdown", "pagedown":
		m.logVP.LineDown(m.logVP.Height)
		if m.logVP.AtBottom() {
			m.followLogs = true
		}
		m.reflow()
		return m, nil
	case "home":
		if !m.input.Focused() {
			m.followLogs = false
			m.logVP.GotoTop()
			m.reflow()
			return m, nil
		}
	case "end":
		if !m.input.Focused() {
			m.followLogs = true
			m.logVP.GotoBottom()
			m.reflow()
			return m, nil
		}
	}

	if m.engineDone || m.cancelling {
		return m, nil
	}

	cmd := m.handleStepKey(msg, lowerKey)
	m.reflow()
	return m, cmd
}

// handleStepKey maps keys to actions for the current phase. Affordances
// come only from the phase the engine published.
func (m *Model) handleStepKey(msg tea.KeyMsg, key string) tea.Cmd {
	phase := m.state.Phase
	switch phase.Kind {
	case domain.PhaseChoosePlatform:
		if i, ok := m.moveCursor(key, len(platformChoices)); ok {
			m.sendAction(domain.Action{Type: domain.ActionSelectPlatform, Platform: platformChoices[i].Value})
		}
		return nil

	case domain.PhaseChooseMode:
		if key == "esc" || key == "backspace" {
			m.sendAction(domain.Action{Type: domain.ActionBack})
			return nil
		}
		if i, ok := m.moveCursor(key, len(modeChoices)); ok {
			m.sendAction(domain.Action{Type: domain.ActionSelectMode, Mode: modeChoices[i].Value})
		}
		return nil

	case domain.PhaseAwaitURL, domain.PhaseChooseQuality, domain.PhaseConfirmCollection:
		switch key {
		case "esc":
			if phase.CanGoBack() {
				m.sendAction(domain.Action{Type: domain.ActionBack})
			}
			return nil
		case "up", "down":
			if phase.CanSelectQuality() && len(m.state.Options) > 0 {
				next := m.state.Selected + 1
				if key == "up" {
					next = m.state.Selected - 1
				}
				if next >= 0 && next < len(m.state.Options) {
					m.sendAction(domain.Action{Type: domain.ActionSelectQuality, Index: next})
				}
			}
			return nil
		case "enter":
			text := strings.TrimSpace(m.input.Value())
			switch {
			case text != "" && text != m.state.SourceURL && phase.CanSubmitURL():
				m.sendAction(domain.Action{Type: domain.ActionSubmitURL, Text: text})
			case phase.CanConfirm():
				m.sendAction(domain.Action{Type: domain.ActionConfirm})
			}
			return nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return cmd

	case domain.PhaseStalled:
		if key == "n" || key == "enter" {
			m.sendAction(domain.Action{Type: domain.ActionNewDownload})
		}
	case domain.PhaseDone:
		switch key {
		case "n", "enter":
			m.sendAction(domain.Action{Type: domain.ActionNewDownload})
		case "q":
			return m.quit()
		}
	case domain.PhaseFailed:
		switch key {
		case "r", "enter":
			if phase.CanRetry() {
				m.sendAction(domain.Action{Type: domain.ActionRetry})
			}
		case "n":
			m.sendAction(domain.Action{Type: domain.ActionNewDownload})
		case "q":
			return m.quit()
		}
	}
	return nil
}

// moveCursor handles list navigation and reports the chosen index on enter
// or a digit shortcut.
func (m *Model) moveCursor(key string, n int) (int, bool) {
	if n == 0 {
		return 0, false
	}
	switch key {
	case "up", "k":
		m.cursor = (m.cursor - 1 + n) % n
	case "down", "j", "tab":
		m.cursor = (m.cursor + 1) % n
	case "enter":
		return m.cursor, true
	default:
		if len(key) == 1 && key[0] >= '1' && int(key[0]-'0') <= n {
			m.cursor = int(key[0] - '1')
			return m.cursor, true
		}
	}
	return 0, false
}

func (m *Model) applyEvent(ev domain.Event) tea.Cmd {
	if !applyEvent(&m.state, ev) {
		return nil
	}
	m.cursor = 0
	if m.state.Step == domain.StepURLAndQuality {
		m.input.Reset()
		return m.input.Focus()
	}
	m.input.Blur()
	return nil
}

func (m *Model) downloadActive() bool {
	switch m.state.Phase.Kind {
	case domain.PhaseLaunching, domain.PhaseStreaming:
		return true
	default:
		return false
	}
}

func (m *Model) closeConfirmQuit() {
	m.confirmQuitActive = false
	m.confirmQuitSelected = 0
}

func (m *Model) quit() tea.Cmd {
	m.sendAction(domain.Action{Type: domain.ActionQuit})
	if m.cancel != nil {
		m.cancel()
	}
	return tea.Quit
}

func (m *Model) requestCancel() {
	m.cancelling = true
	m.input.Blur()
	m.state.Logs.Append(domain.LogEntry{
		TS:      time.Now(),
		Level:   domain.LogWarning,
		Source:  "ui",
		Step:    m.state.Step,
		Message: "Cancellation requested (ctrl+c).",
	})
	if m.cancel != nil {
		m.cancel()
	}
}

func (m *Model) sendAction(a domain.Action) {
	if m.actions == nil {
		return
	}
	select {
	case m.actions <- a:
	default:
	}
}

func waitForEvent(events <-chan domain.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		return EventMsg{Event: ev, OK: ok}
	}
}

func pulseTick() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(time.Time) tea.Msg { return pulseMsg{} })
}
