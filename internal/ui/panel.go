package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	reflowtruncate "github.com/muesli/reflow/truncate"
)

// panel draws a rounded box of exactly width x height cells with the title
// set into the top border.
func panel(title string, body string, width int, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}

	border := panelBorder
	innerW := max(0, width-2)
	innerH := max(0, height-2)
	contentW := panelContentWidth(width)

	lines := fitLines(body, contentW, innerH)

	out := make([]string, 0, height)
	out = append(out, topBorderWithTitle(width, title))
	for _, l := range lines {
		out = append(out, border.Left+" "+l+" "+border.Right)
	}
	out = append(out, border.BottomLeft+strings.Repeat(border.Bottom, innerW)+border.BottomRight)
	return strings.Join(out, "\n")
}

func topBorderWithTitle(width int, title string) string {
	border := panelBorder
	fillW := width - lipgloss.Width(border.TopLeft) - lipgloss.Width(border.TopRight)
	if fillW < 0 {
		return ""
	}

	title = strings.TrimSpace(title)
	maxTitleW := fillW - lipgloss.Width(border.Top) - 2
	if title == "" || maxTitleW <= 0 {
		return border.TopLeft + repeatToWidth(border.Top, fillW) + border.TopRight
	}

	block := border.Top + " " + panelTitleStyle.Render(cutPlain(title, maxTitleW)) + " "
	if lipgloss.Width(block) > fillW {
		// Never end the border with an ellipsis.
		block = cutANSI(block, fillW)
	}
	rest := max(0, fillW-lipgloss.Width(block))
	return border.TopLeft + block + repeatToWidth(border.Top, rest) + border.TopRight
}

func repeatToWidth(s string, width int) string {
	cellW := lipgloss.Width(s)
	if width <= 0 || cellW <= 0 {
		return ""
	}
	return cutPlain(strings.Repeat(s, width/cellW+1), width)
}

// fitLines returns exactly height lines, each padded or cut to width.
func fitLines(s string, width int, height int) []string {
	if height <= 0 || width <= 0 {
		return nil
	}
	raw := splitLines(s)
	out := make([]string, height)
	for i := range out {
		line := ""
		if i < len(raw) {
			line = raw[i]
		}
		out[i] = padRight(truncateANSI(line, width), width)
	}
	return out
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}

func cutPlain(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(s, width, "")
}

func cutANSI(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return reflowtruncate.StringWithTail(s, uint(width), "")
}

func truncatePlain(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	if width <= 1 {
		return runewidth.Truncate(s, width, "")
	}
	return runewidth.Truncate(s, width, "…")
}

func truncateANSI(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	if width <= 1 {
		return reflowtruncate.String(s, uint(width))
	}
	return reflowtruncate.StringWithTail(s, uint(width), "…")
}
