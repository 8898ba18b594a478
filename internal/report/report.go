// Package report implements the reporter interface spec §6 describes:
// four levels (ok, check, warning, error) plus grouped emitters for
// duplicate clusters and per-check totals. The core never embeds color
// codes; this package chooses them, the way the teacher's internal/ui
// package picks a plain vs. colored presenter (internal/ui/presenter.go
// NewPresenter) based on TTY detection (internal/ui/term.go IsTTY) and
// renders with github.com/charmbracelet/lipgloss styles
// (internal/ui/tui/theme.go's palette, trimmed from a live TUI theme to
// a handful of line-level styles since DataChecker prints line-based
// results rather than rendering a screen).
package report

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Level identifies one of the four reporter severities spec §6 names.
type Level int

const (
	LevelOK Level = iota
	LevelCheck
	LevelWarning
	LevelError
)

func (l Level) label() string {
	switch l {
	case LevelOK:
		return "ok"
	case LevelCheck:
		return "check"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "?"
	}
}

// Reporter is the interface the core's dispatcher writes through. The
// core never formats; it calls Line/DuplicateCluster/Totals and lets
// the reporter decide color, alignment, and plural wording.
type Reporter interface {
	Header(check string)
	Line(level Level, check, path, message string)
	DuplicateCluster(sizeBytes int64, wastedBytes int64, paths []string)
	Totals(check string, count int64)
}

// New returns a colored reporter when isTTY is true, otherwise a plain
// one, mirroring the teacher's NewPresenter factory split.
func New(w io.Writer, isTTY bool) Reporter {
	if isTTY {
		return &colorReporter{w: w}
	}
	return &plainReporter{w: w}
}

// plainReporter writes uncolored, greppable lines — the same fallback
// the teacher uses for non-TTY output.
type plainReporter struct {
	mu sync.Mutex
	w  io.Writer
}

func (r *plainReporter) Header(check string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.w, "== %s ==\n", check)
}

func (r *plainReporter) Line(level Level, check, path, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.w, "[%s] %s: %s %s\n", level.label(), check, path, message)
}

func (r *plainReporter) DuplicateCluster(sizeBytes, wastedBytes int64, paths []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.w, "duplicate cluster (%d bytes each, %d wasted):\n", sizeBytes, wastedBytes)
	for _, p := range paths {
		fmt.Fprintf(r.w, "  %s\n", p)
	}
}

func (r *plainReporter) Totals(check string, count int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.w, "%s: %s\n", check, pluralize(count))
}

// colorReporter adds lipgloss styling keyed off the four levels, a
// trimmed version of the teacher's Catppuccin-derived palette.
type colorReporter struct {
	mu sync.Mutex
	w  io.Writer
}

var (
	styleOK      = lipgloss.NewStyle().Foreground(lipgloss.Color("#a6e3a1"))
	styleCheck   = lipgloss.NewStyle().Foreground(lipgloss.Color("#89b4fa"))
	styleWarning = lipgloss.NewStyle().Foreground(lipgloss.Color("#f9e2af"))
	styleError   = lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8")).Bold(true)
	styleHeader  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#cdd6f4"))
	styleMuted   = lipgloss.NewStyle().Foreground(lipgloss.Color("#5a6278"))
)

func styleFor(l Level) lipgloss.Style {
	switch l {
	case LevelOK:
		return styleOK
	case LevelCheck:
		return styleCheck
	case LevelWarning:
		return styleWarning
	case LevelError:
		return styleError
	default:
		return styleMuted
	}
}

func (r *colorReporter) Header(check string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.w, "%s\n", styleHeader.Render("== "+check+" =="))
}

func (r *colorReporter) Line(level Level, check, path, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tag := styleFor(level).Render("[" + level.label() + "]")
	fmt.Fprintf(r.w, "%s %s: %s %s\n", tag, check, path, styleMuted.Render(message))
}

func (r *colorReporter) DuplicateCluster(sizeBytes, wastedBytes int64, paths []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	header := fmt.Sprintf("duplicate cluster (%d bytes each, %d wasted):", sizeBytes, wastedBytes)
	fmt.Fprintln(r.w, styleCheck.Render(header))
	for _, p := range paths {
		fmt.Fprintf(r.w, "  %s\n", p)
	}
}

func (r *colorReporter) Totals(check string, count int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.w, "%s: %s\n", styleHeader.Render(check), styleMuted.Render(pluralize(count)))
}

func pluralize(n int64) string {
	if n == 1 {
		return "1 match"
	}
	return fmt.Sprintf("%d matches", n)
}
