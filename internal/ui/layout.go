package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type layoutState struct {
	width  int
	height int

	gap int

	leftW  int
	rightW int

	headerH int
	topH    int
	mainH   int
	logH    int

	tooSmall bool
}

const (
	headerHeight  = 3
	stepsHeight   = 6 // border + four steps
	minMainHeight = 7
	minLogHeight  = 4
	minColWidth   = 30
)

func (m *Model) reflow() {
	if m.width <= 0 || m.height <= 0 {
		return
	}

	usableH := max(0, m.height-1) // reserve 1 row for the global footer hints
	m.layout = computeLayout(m.width, usableH, len(m.mainLines(max(0, panelContentWidth(m.width))))+2)
	if m.layout.tooSmall {
		return
	}

	m.input.Width = max(10, panelContentWidth(m.layout.width)-lipgloss.Width(m.input.Prompt)-1)

	logContentW := panelContentWidth(m.layout.width)
	m.logVP.Width = logContentW
	m.logVP.Height = panelBodyHeight(m.layout.logH)
	m.logVP.SetContent(m.renderLogStream(logContentW))
	if m.followLogs {
		m.logVP.GotoBottom()
	}
}

// computeLayout stacks header, the steps/details row, the step panel and
// the log. The step panel gets what it asks for; the log takes the rest.
func computeLayout(width int, height int, mainWanted int) layoutState {
	const gap = 1

	l := layoutState{
		width:   width,
		height:  height,
		gap:     gap,
		headerH: headerHeight,
		topH:    stepsHeight,
	}
	if width <= 0 || height <= 0 {
		l.tooSmall = true
		return l
	}

	available := width - gap
	if available < 2*minColWidth {
		l.tooSmall = true
		return l
	}
	l.leftW = available / 2
	l.rightW = available - l.leftW

	fixed := l.headerH + l.topH
	if height < fixed+minMainHeight+minLogHeight {
		l.tooSmall = true
		return l
	}

	mainH := max(minMainHeight, mainWanted)
	if maxMain := height - fixed - minLogHeight; mainH > maxMain {
		mainH = maxMain
	}
	l.mainH = mainH
	l.logH = height - fixed - mainH
	return l
}

func panelContentWidth(panelWidth int) int {
	// Border: 2, horizontal padding: 2.
	return max(0, panelWidth-4)
}

func panelBodyHeight(panelHeight int) int {
	// Titles are rendered in the top border, so they don't consume height.
	return max(0, panelHeight-2)
}

func padRight(s string, width int) string {
	if width <= 0 {
		return ""
	}
	w := lipgloss.Width(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}
