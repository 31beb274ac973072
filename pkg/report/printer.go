// Package report renders comparison reports for the console and writes them
// as JSON and Markdown artifacts.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// LogLevel represents the console verbosity level
type LogLevel int

const (
	// LogLevelQuiet shows only warnings, errors and findings
	LogLevelQuiet LogLevel = iota
	// LogLevelNormal shows every report section (default)
	LogLevelNormal
	// LogLevelVerbose adds sources and full message lists
	LogLevelVerbose
	// LogLevelDebug shows internal details
	LogLevelDebug
)

// ParseLevel converts a verbosity name to a LogLevel.
func ParseLevel(level string) LogLevel {
	switch level {
	case "quiet":
		return LogLevelQuiet
	case "verbose":
		return LogLevelVerbose
	case "debug":
		return LogLevelDebug
	default:
		return LogLevelNormal
	}
}

var (
	salmonPink = lipgloss.Color("#FFB3BA")
	mintGreen  = lipgloss.Color("#A8E6CF")
	amber      = lipgloss.Color("#F6C177")
	alertRed   = lipgloss.Color("#EB6F92")
	skyBlue    = lipgloss.Color("#9CCFD8")
	mutedGray  = lipgloss.Color("#6B7280")
)

// Printer writes styled console output.
type Printer struct {
	level  LogLevel
	writer io.Writer

	header  lipgloss.Style
	section lipgloss.Style
	rule    lipgloss.Style
	success lipgloss.Style
	info    lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
	muted   lipgloss.Style
	accent  lipgloss.Style
}

// NewPrinter creates a printer on stdout.
func NewPrinter(level LogLevel) *Printer {
	return NewPrinterTo(level, os.Stdout)
}

// NewPrinterTo creates a printer on w. Color is used only when w is a
// terminal.
func NewPrinterTo(level LogLevel, w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		level:   level,
		writer:  w,
		header:  r.NewStyle().Bold(true).Foreground(salmonPink),
		section: r.NewStyle().Bold(true).Foreground(skyBlue),
		rule:    r.NewStyle().Foreground(mutedGray),
		success: r.NewStyle().Bold(true).Foreground(mintGreen),
		info:    r.NewStyle().Foreground(salmonPink),
		warning: r.NewStyle().Foreground(amber),
		failure: r.NewStyle().Bold(true).Foreground(alertRed),
		muted:   r.NewStyle().Foreground(mutedGray),
		accent:  r.NewStyle().Foreground(skyBlue),
	}
}

// Level returns the verbosity level.
func (p *Printer) Level() LogLevel { return p.level }

// Header prints a prominent header message
func (p *Printer) Header(message string) {
	if p.level >= LogLevelNormal {
		line := strings.Repeat("=", 70)
		fmt.Fprintf(p.writer, "\n%s\n%s\n%s\n", p.header.Render(line), p.header.Render("  "+message), p.header.Render(line))
	}
}

// Section prints a section divider
func (p *Printer) Section(title string) {
	if p.level >= LogLevelNormal {
		fmt.Fprintln(p.writer)
		fmt.Fprintln(p.writer, p.section.Render("▶ "+title))
		fmt.Fprintln(p.writer, p.rule.Render(strings.Repeat("─", 50)))
	}
}

// Successf prints a success message with checkmark
func (p *Printer) Successf(format string, args ...any) {
	if p.level >= LogLevelNormal {
		fmt.Fprintln(p.writer, p.success.Render("✓ "+fmt.Sprintf(format, args...)))
	}
}

// Infof prints an informational message
func (p *Printer) Infof(format string, args ...any) {
	if p.level >= LogLevelNormal {
		fmt.Fprintln(p.writer, p.info.Render(fmt.Sprintf(format, args...)))
	}
}

// Warningf prints a warning message
func (p *Printer) Warningf(format string, args ...any) {
	fmt.Fprintln(p.writer, p.warning.Render("⚠ Warning: "+fmt.Sprintf(format, args...)))
}

// Errorf prints an error message
func (p *Printer) Errorf(format string, args ...any) {
	fmt.Fprintln(p.writer, p.failure.Render("✗ Error: "+fmt.Sprintf(format, args...)))
}

// Verbosef prints detailed information (only in verbose mode)
func (p *Printer) Verbosef(format string, args ...any) {
	if p.level >= LogLevelVerbose {
		fmt.Fprintln(p.writer, p.muted.Render("→ "+fmt.Sprintf(format, args...)))
	}
}

// Debugf prints debug information (only in debug mode)
func (p *Printer) Debugf(format string, args ...any) {
	if p.level >= LogLevelDebug {
		fmt.Fprintln(p.writer, p.muted.Render("[DEBUG] "+fmt.Sprintf(format, args...)))
	}
}

// Newline adds a blank line (respects log level)
func (p *Printer) Newline() {
	if p.level >= LogLevelNormal {
		fmt.Fprintln(p.writer)
	}
}

// Block prints a pre-rendered multi-line block such as a table.
func (p *Printer) Block(s string) {
	if p.level >= LogLevelNormal {
		fmt.Fprintln(p.writer, s)
	}
}
