package status

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Indicator is an RGB lamp.
type Indicator interface {
	SetColor(c Color)
}

// TerminalIndicator draws the lamp colour as a swatch on a writer.
type TerminalIndicator struct {
	mu       sync.Mutex
	out      io.Writer
	renderer *lipgloss.Renderer
	current  Color
	logger   Logger
}

// NewTerminalIndicator creates an indicator writing to out.
func NewTerminalIndicator(out io.Writer) *TerminalIndicator {
	return &TerminalIndicator{
		out:      out,
		renderer: lipgloss.NewRenderer(out),
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the indicator.
func (i *TerminalIndicator) SetLogger(logger Logger) {
	i.logger = logger
}

// SetColor changes the lamp colour.
func (i *TerminalIndicator) SetColor(c Color) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.current = c
	swatch := i.renderer.NewStyle().
		Foreground(lipgloss.Color(c.Hex())).
		Render("●")
	fmt.Fprintf(i.out, "%s LED %s\n", swatch, c.Hex())
	i.logger.Debug("indicator colour", "r", c.R, "g", c.G, "b", c.B)
}

// Color returns the colour last set.
func (i *TerminalIndicator) Color() Color {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.current
}
