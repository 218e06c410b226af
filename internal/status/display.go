package status

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Screen geometry, in pixels. Text rows are RowHeight pixels tall.
const (
	ScreenWidth  = 128
	ScreenHeight = 64
	RowHeight    = 8
	Rows         = ScreenHeight / RowHeight
)

// defaultColumns is the number of characters that fit on a row.
const defaultColumns = 21

// Display is a line-addressed screen. Drawing only touches the frame
// buffer; nothing is shown until Render.
type Display interface {
	// Clear blanks the frame buffer.
	Clear()

	// DrawLine writes text starting at pixel row y. Embedded newlines
	// continue on the following rows.
	DrawLine(text string, y int)

	// Render shows the frame buffer.
	Render() error

	// ShowTemporary clears the screen, shows text at y, waits and clears
	// again. It returns early if ctx is cancelled.
	ShowTemporary(ctx context.Context, text string, y int) error
}

// TerminalDisplay renders the screen as a bordered panel on a writer.
//
// Thread Safety: all methods are safe for concurrent use.
type TerminalDisplay struct {
	mu      sync.Mutex
	out     io.Writer
	rows    [Rows]string
	columns int
	hold    time.Duration
	style   lipgloss.Style
	frames  uint64
}

// NewTerminalDisplay creates a display writing to out. columns below 1 use
// the width of the physical panel; hold is how long ShowTemporary keeps its
// message up.
func NewTerminalDisplay(out io.Writer, columns int, hold time.Duration) *TerminalDisplay {
	if columns < 1 {
		columns = defaultColumns
	}
	r := lipgloss.NewRenderer(out)
	return &TerminalDisplay{
		out:     out,
		columns: columns,
		hold:    hold,
		style: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("39")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1).
			Width(columns + 2),
	}
}

// Clear blanks the frame buffer.
func (d *TerminalDisplay) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rows = [Rows]string{}
}

// DrawLine writes text at pixel row y. Rows outside the screen are dropped
// and long lines are cut at the panel width.
func (d *TerminalDisplay) DrawLine(text string, y int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.draw(text, y)
}

func (d *TerminalDisplay) draw(text string, y int) {
	if y < 0 {
		return
	}
	row := y / RowHeight
	for _, line := range strings.Split(text, "\n") {
		if row >= Rows {
			return
		}
		d.rows[row] = truncate(line, d.columns)
		row++
	}
}

// Render writes the frame buffer to the output.
func (d *TerminalDisplay) Render() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.render()
}

func (d *TerminalDisplay) render() error {
	d.frames++
	panel := d.style.Render(strings.Join(d.rows[:], "\n"))
	if _, err := fmt.Fprintln(d.out, panel); err != nil {
		return fmt.Errorf("rendering frame %d: %w", d.frames, err)
	}
	return nil
}

// ShowTemporary shows text alone on the screen for the hold duration.
func (d *TerminalDisplay) ShowTemporary(ctx context.Context, text string, y int) error {
	d.mu.Lock()
	d.rows = [Rows]string{}
	d.draw(text, y)
	err := d.render()
	d.mu.Unlock()
	if err != nil {
		return err
	}

	if d.hold > 0 {
		t := time.NewTimer(d.hold)
		select {
		case <-ctx.Done():
		case <-t.C:
		}
		t.Stop()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.rows = [Rows]string{}
	return d.render()
}

// Lines returns a copy of the frame buffer rows.
func (d *TerminalDisplay) Lines() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, Rows)
	copy(out, d.rows[:])
	return out
}

// Frames returns the number of frames rendered so far.
func (d *TerminalDisplay) Frames() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frames
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
