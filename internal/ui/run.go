package ui

import (
	"context"
	"errors"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/term"

	"github.com/abhianand123/The-Ultimate-YT-Downloader/internal/domain"
)

// Run drives the full-screen wizard until the user quits. cancel stops the
// engine feeding events.
func Run(ctx context.Context, events <-chan domain.Event, actions chan<- domain.Action, meta Meta, cancel func()) error {
	m := NewModel(ctx, events, actions, meta, cancel)

	// Seed a size so the first frame renders even if WindowSizeMsg never arrives.
	if w, h, err := term.GetSize(os.Stdout.Fd()); err == nil && w > 0 && h > 0 {
		m.width = w
		m.height = h
	} else {
		m.width = 80
		m.height = 24
	}
	m.reflow()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
