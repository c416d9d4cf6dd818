package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"

	"github.com/abhianand123/The-Ultimate-YT-Downloader/internal/domain"
)

const appTitle = "YouTube Downloader"

func (m *Model) View() string {
	if m.width <= 0 || m.height <= 0 {
		return "Loading…"
	}

	usableH := max(0, m.height-1) // reserve 1 row for the global footer hints
	footer := footerHints(m.width, m.keyHints())
	if usableH == 0 {
		return footer
	}

	var body string
	switch {
	case m.cancelling && m.engineDone:
		body = lipgloss.Place(m.width, usableH, lipgloss.Center, lipgloss.Center, "Download wizard cancelled.")
	case m.state.Step == 0:
		line1 := m.spin.View() + " Starting…"
		line2 := mutedStyle.Render("Connecting to " + m.meta.Backend)
		body = lipgloss.Place(m.width, usableH, lipgloss.Center, lipgloss.Center, line1+"\n"+line2)
	default:
		if m.layout.width != m.width || m.layout.height != usableH {
			m.reflow()
		}
		if m.layout.tooSmall {
			body = minSizeView(m.width, usableH)
			break
		}

		header := m.renderHeader(m.layout.width)
		steps := panel("Steps", m.renderSteps(panelContentWidth(m.layout.leftW)), m.layout.leftW, m.layout.topH)
		details := panel("Details", m.renderDetails(panelContentWidth(m.layout.rightW)), m.layout.rightW, m.layout.topH)
		top := lipgloss.JoinHorizontal(lipgloss.Top, steps, strings.Repeat(" ", m.layout.gap), details)

		mainW := panelContentWidth(m.layout.width)
		main := panel(m.stepTitle(), strings.Join(m.mainLines(mainW), "\n"), m.layout.width, m.layout.mainH)
		logs := panel("Log", m.logVP.View(), m.layout.width, m.layout.logH)

		body = lipgloss.JoinVertical(lipgloss.Top, header, top, main, logs)
	}

	out := lipgloss.JoinVertical(lipgloss.Top, body, footer)
	if m.confirmQuitActive {
		modal := m.confirmQuitModal()
		x := max(0, (m.width-lipgloss.Width(modal))/2)
		y := max(0, (usableH-len(splitLines(modal)))/2)
		return overlayAt(out, m.width, m.height, modal, x, y)
	}
	return out
}

func (m *Model) keyHints() string {
	switch m.state.Phase.Kind {
	case domain.PhaseChoosePlatform:
		return "↑/↓ Move  Enter Select  PgUp/PgDn Log  ctrl+q Quit"
	case domain.PhaseChooseMode:
		return "↑/↓ Move  Enter Select  Esc Back  ctrl+q Quit"
	case domain.PhaseAwaitURL:
		return "Enter Fetch  Esc Back  ctrl+q Quit"
	case domain.PhaseChooseQuality:
		return "↑/↓ Quality  Enter Download  Esc Back  ctrl+q Quit"
	case domain.PhaseConfirmCollection:
		return "Enter Download playlist  Esc Back  ctrl+q Quit"
	case domain.PhaseStalled:
		return "n New download  PgUp/PgDn Log  ctrl+q Quit"
	case domain.PhaseDone:
		return "Enter/n New download  q Quit"
	case domain.PhaseFailed:
		return "r Retry  n Start over  q Quit"
	default:
		return "PgUp/PgDn Log  ctrl+c Cancel  ctrl+q Quit"
	}
}

func footerHints(width int, hints string) string {
	hint := mutedStyle.Render(truncatePlain(hints, width))
	return lipgloss.Place(width, 1, lipgloss.Center, lipgloss.Center, hint)
}

func displayStep(s domain.Step) int {
	switch s {
	case domain.StepPlatformSelect:
		return 1
	case domain.StepModeSelect:
		return 2
	case domain.StepURLAndQuality:
		return 3
	default:
		return 4
	}
}

func (m *Model) renderHeader(width int) string {
	contentW := panelContentWidth(width)
	left := brandStyle.Render("▶") + " " + fmt.Sprintf("Step %d of 4", displayStep(m.state.Step))

	var right []string
	if m.meta.Backend != "" {
		right = append(right, m.meta.Backend)
	}
	if m.meta.Transport != "" {
		right = append(right, m.meta.Transport)
	}
	if m.meta.Version != "" {
		right = append(right, formatVersion(m.meta.Version))
	}
	rightText := strings.Join(right, " · ")

	gap := contentW - lipgloss.Width(left) - lipgloss.Width(rightText)
	line := left
	if gap >= 2 {
		line = left + strings.Repeat(" ", gap) + mutedStyle.Render(rightText)
	}
	return panel(appTitle, line, width, headerHeight)
}

func formatVersion(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		v = "dev"
	}
	if v[0] >= '0' && v[0] <= '9' {
		return "v" + v
	}
	return v
}

func (m *Model) stepTitle() string {
	switch m.state.Step {
	case domain.StepPlatformSelect:
		return "Choose a platform"
	case domain.StepModeSelect:
		return "What do you want to download?"
	case domain.StepURLAndQuality:
		switch {
		case m.state.Platform == domain.PlatformPrimary:
			return "Ready to download video"
		case m.state.Mode == domain.ModeCollection:
			return "Playlist"
		default:
			return "Single Track"
		}
	case domain.StepProgress:
		if m.state.Progress.Title != "" {
			return m.state.Progress.Title
		}
		return "Starting..."
	case domain.StepComplete:
		return "Download complete!"
	case domain.StepError:
		return "Download failed"
	default:
		return appTitle
	}
}

type stepMark int

const (
	markPending stepMark = iota
	markActive
	markDone
	markSkipped
	markFailed
)

func (m *Model) renderSteps(width int) string {
	cur := m.state.Step
	at := displayStep(cur)

	mark := func(n int) stepMark {
		switch {
		case n == 2 && m.state.Platform == domain.PlatformPrimary && at > 2:
			return markSkipped
		case n < at:
			return markDone
		case n > at:
			return markPending
		case cur == domain.StepComplete:
			return markDone
		case cur == domain.StepError:
			return markFailed
		default:
			return markActive
		}
	}

	platform := "Platform"
	if m.state.Platform != domain.PlatformNone {
		platform += ": " + m.state.Platform.Label()
	}
	mode := "Mode"
	switch m.state.Mode {
	case domain.ModeSingle:
		mode += ": single track"
	case domain.ModeCollection:
		mode += ": playlist"
	}
	labels := []string{platform, mode, "Link & quality", "Download"}

	lines := make([]string, 0, len(labels))
	for i, label := range labels {
		icon, iconStyle, labelStyle := stepMarker(mark(i + 1))
		line := iconStyle.Render(icon) + " " + labelStyle.Render(truncatePlain(label, max(0, width-2)))
		lines = append(lines, truncateANSI(line, width))
	}
	return strings.Join(lines, "\n")
}

func stepMarker(mark stepMark) (string, lipgloss.Style, lipgloss.Style) {
	switch mark {
	case markDone:
		return "✔", okStyle, lipgloss.NewStyle()
	case markActive:
		return "▣", activeStyle, lipgloss.NewStyle().Bold(true)
	case markSkipped:
		return "–", mutedStyle, mutedStyle
	case markFailed:
		return "✖", errStyle, lipgloss.NewStyle()
	default:
		return "□", mutedStyle, mutedStyle
	}
}

func (m *Model) renderDetails(width int) string {
	kv := func(k, v string) string {
		return truncateANSI(mutedStyle.Render(k+": ")+valueStyle.Render(v), width)
	}

	meta := m.state.Metadata
	if meta == nil {
		if m.state.SourceURL != "" {
			return kv("URL", m.state.SourceURL)
		}
		return truncatePlain("(nothing selected yet)", width)
	}

	lines := []string{truncateANSI(selectedStyle.Render(meta.Title), width)}
	if meta.IsCollection {
		lines = append(lines, kv("Tracks", humanize.Comma(int64(meta.ItemCount))+" tracks"))
	} else {
		if meta.ChannelOrArtist != "" {
			lines = append(lines, kv("Channel", meta.ChannelOrArtist))
		}
		if d := meta.DurationLabel(); d != "" {
			lines = append(lines, kv("Duration", d))
		}
	}
	if m.state.DownloadID != "" {
		lines = append(lines, kv("Download", m.state.DownloadID))
	} else if meta.ThumbnailURL != "" {
		lines = append(lines, kv("Thumbnail", meta.ThumbnailURL))
	}
	return strings.Join(lines, "\n")
}

// mainLines renders the body of the step panel.
func (m *Model) mainLines(width int) []string {
	s := m.state
	var lines []string
	add := func(line string) { lines = append(lines, truncateANSI(line, width)) }

	switch s.Step {
	case domain.StepPlatformSelect:
		lines = append(lines, renderChoices(platformChoices, m.cursor, width)...)
	case domain.StepModeSelect:
		lines = append(lines, renderChoices(modeChoices, m.cursor, width)...)
	case domain.StepURLAndQuality:
		add(m.input.View())
		add("")
		switch s.Phase.Kind {
		case domain.PhaseFetching:
			add(m.spin.View() + " Fetching video info...")
		case domain.PhaseChooseQuality:
			add(mutedStyle.Render("Choose quality:"))
			for i, opt := range s.Options {
				icon, style := "○", mutedStyle
				if i == s.Selected {
					icon, style = "●", selectedStyle
				}
				add(style.Render(fmt.Sprintf("  %s %s", icon, opt.Label)) + " " + mutedStyle.Render("("+opt.Kind.Label()+")"))
			}
		case domain.PhaseConfirmCollection:
			count := ""
			if s.Metadata != nil && s.Metadata.ItemCount > 0 {
				count = " (" + humanize.Comma(int64(s.Metadata.ItemCount)) + " tracks)"
			}
			add("Every track will be saved as MP3" + count + ".")
			add(mutedStyle.Render("Press Enter to download the whole playlist."))
		default:
			add(mutedStyle.Render("Paste a link and press Enter."))
		}
		if s.Message != "" {
			add("")
			add(warnStyle.Render("⚠ ") + s.Message)
		}
	case domain.StepProgress:
		if s.Phase.Kind == domain.PhaseLaunching {
			add(m.spin.View() + " Starting download...")
			break
		}
		lines = append(lines, m.progressLines(width)...)
		if s.Phase.Kind == domain.PhaseStalled {
			add("")
			add(warnStyle.Render("⚠ ") + s.Message)
			add(mutedStyle.Render("The download may still finish on the server. Press n to start a new one."))
		}
	case domain.StepComplete:
		lines = append(lines, m.progressBar(100, "100%", width))
		add("")
		msg := s.Message
		if msg == "" {
			msg = "Download complete!"
		}
		add(okStyle.Render("✔ ") + msg)
		add(mutedStyle.Render("Press Enter to download another."))
	case domain.StepError:
		msg := s.Message
		if msg == "" {
			msg = "Download failed"
		}
		add(errStyle.Render("✖ ") + msg)
		add("")
		add(mutedStyle.Render("Press r to retry the same download, or n to start over."))
	}
	return lines
}

func renderChoices[T any](choices []choice[T], cursor int, width int) []string {
	lines := make([]string, 0, len(choices)*2)
	for i, c := range choices {
		icon, style := "○", mutedStyle
		if i == cursor {
			icon, style = "●", selectedStyle
		}
		lines = append(lines, truncateANSI(style.Render(fmt.Sprintf("%d %s %s", i+1, icon, c.Label)), width))
		lines = append(lines, truncateANSI("    "+mutedStyle.Render(c.Hint), width))
	}
	return lines
}

func (m *Model) progressLines(width int) []string {
	p := m.state.Progress
	label := p.PercentLabel
	if label == "" {
		label = "0%"
	}
	lines := []string{m.progressBar(p.Percent, label, width), ""}
	if p.Caption != "" {
		lines = append(lines, truncatePlain(p.Caption, width))
	}
	var stats []string
	if p.Speed != "" {
		stats = append(stats, "Speed "+p.Speed)
	}
	if p.ETA != "" {
		stats = append(stats, "ETA "+p.ETA)
	}
	if len(stats) > 0 {
		lines = append(lines, mutedStyle.Render(truncatePlain(strings.Join(stats, "  "), width)))
	}
	return lines
}

func (m *Model) progressBar(percent float64, label string, width int) string {
	label = fmt.Sprintf("%4s", label)
	bar := m.progress
	bar.Width = max(5, width-lipgloss.Width(label)-1)
	return bar.ViewAs(percent/100) + " " + label
}

func (m *Model) renderLogStream(width int) string {
	entries := m.state.Logs.Entries
	if len(entries) == 0 {
		return truncatePlain("(no logs yet)", width)
	}

	pulseIdx := -1
	if m.state.Phase.Kind == domain.PhaseStreaming && !m.engineDone && !m.cancelling {
		pulseIdx = len(entries) - 1
	}

	lines := make([]string, 0, len(entries))
	for i, e := range entries {
		ts := e.TS
		if ts.IsZero() {
			ts = time.Now()
		}
		prefix, pStyle := logPrefix(e.Level)
		if i == pulseIdx && e.Level == domain.LogInfo {
			pStyle = pulseAStyle
			if m.pulseOn {
				pStyle = pulseBStyle
			}
		}
		timeStr := ts.Format("15:04:05")
		avail := max(0, width-lipgloss.Width(timeStr)-3)
		line := timeStr + " " + pStyle.Render(prefix) + " " + truncatePlain(e.Message, avail)
		lines = append(lines, truncateANSI(line, width))
	}
	return strings.Join(lines, "\n")
}

func logPrefix(level domain.LogLevel) (string, lipgloss.Style) {
	switch level {
	case domain.LogError:
		return "✖", errStyle
	case domain.LogWarning:
		return "⚠", warnStyle
	default:
		return "•", mutedStyle
	}
}

func (m *Model) confirmQuitModal() string {
	boxW := min(60, max(30, m.width-4))
	const boxH = 7

	quit := "[ Quit ]"
	stay := "[ Keep downloading ]"
	if m.confirmQuitSelected == 0 {
		quit = errStyle.Bold(true).Render(quit)
		stay = mutedStyle.Render(stay)
	} else {
		quit = mutedStyle.Render(quit)
		stay = okStyle.Bold(true).Render(stay)
	}

	contentW := panelContentWidth(boxW)
	content := truncatePlain("A download is in progress. Quit anyway?", contentW) +
		"\n\n" + truncateANSI(quit+"   "+stay, contentW) +
		"\n\n" + truncateANSI(mutedStyle.Render("Enter: select   Esc: close"), contentW)
	return panel("Confirm exit", content, boxW, boxH)
}

func overlayAt(base string, baseW int, baseH int, overlay string, x int, y int) string {
	if baseW <= 0 || baseH <= 0 || strings.TrimSpace(overlay) == "" {
		return base
	}

	baseLines := splitLines(base)
	if len(baseLines) > baseH {
		baseLines = baseLines[:baseH]
	}
	for len(baseLines) < baseH {
		baseLines = append(baseLines, "")
	}
	for i := range baseLines {
		baseLines[i] = padRight(truncateANSI(baseLines[i], baseW), baseW)
	}
	if x >= baseW || y >= baseH {
		return strings.Join(baseLines, "\n")
	}

	overlayW := max(1, lipgloss.Width(overlay))
	for i, oline := range splitLines(overlay) {
		row := y + i
		if row >= baseH {
			break
		}
		oline = padRight(truncateANSI(oline, overlayW), overlayW)
		left := ansi.Cut(baseLines[row], 0, x)
		right := ansi.Cut(baseLines[row], x+overlayW, baseW)
		baseLines[row] = left + oline + right
	}
	return strings.Join(baseLines, "\n")
}

func minSizeView(width int, height int) string {
	msgText := "Increase terminal size"
	if width < 22 {
		msgText = "Increase size"
	}
	msg := lipgloss.NewStyle().Bold(true).Render(truncatePlain(msgText, width))
	sub := lipgloss.NewStyle().Faint(true).Render(truncatePlain(fmt.Sprintf("Current: %dx%d", width, height), width))
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, msg+"\n"+sub)
}
