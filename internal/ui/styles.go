package ui

import "github.com/charmbracelet/lipgloss"

const (
	brandHex        = "#FF0033"
	progressFillHex = "#00D787"
)

var (
	panelBorder     = lipgloss.RoundedBorder()
	panelTitleStyle = lipgloss.NewStyle().Bold(true)

	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	brandStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color(brandHex)).Bold(true)
	valueStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("7")).Bold(true)
	pulseAStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	pulseBStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
)
