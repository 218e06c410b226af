// Package status renders link and heartbeat state for a human watching the
// device.
//
// Two collaborators stand in for the board's peripherals:
//
//   - Display is a small line-addressed screen. TerminalDisplay draws it as
//     a bordered lipgloss panel on a writer.
//   - Indicator is an RGB lamp with 16-bit channels. TerminalIndicator draws
//     a coloured swatch.
//
// Policy maps channel messages onto both: which text goes on which row and
// which colour the lamp shows.
package status
