// Package ui renders the boxes socketd prints on the terminal: the banner
// shown when the server starts and the success or failure box after a push.
// RunWithSpinner animates a bubbles spinner (via bubbletea) while a slow task,
// such as an mDNS scan, runs.
//
// Rendering uses lipgloss; the width follows the terminal, clamped to
// MinTerminalWidth..MaxContentWidth.
package ui
