package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// Style decides whether operator output is colored. The zero value prints
// plain text. A Style is a value and never changes once built.
type Style struct {
	color bool
}

// NewStyle returns a colored style when enabled is true.
func NewStyle(enabled bool) Style { return Style{color: enabled} }

// AutoStyle colors output unless disabled or the terminal cannot show it.
func AutoStyle(disabled bool) Style { return NewStyle(!disabled && !color.NoColor) }

// Colored reports whether s emits color codes.
func (s Style) Colored() bool { return s.color }

func (s Style) paint(v string, attrs ...color.Attribute) string {
	if !s.color {
		return v
	}
	c := color.New(attrs...)
	c.EnableColor()
	return c.Sprint(v)
}

// Highlight emphasises a value inside a message.
func (s Style) Highlight(v any) string { return s.paint(fmt.Sprint(v), color.FgRed) }

// Faint de-emphasises secondary values.
func (s Style) Faint(v any) string { return s.paint(fmt.Sprint(v), color.Faint) }

func (s Style) info() string    { return s.paint("[*]", color.FgBlue) }
func (s Style) success() string { return s.paint("[+]", color.FgGreen, color.Bold) }
func (s Style) warn() string    { return s.paint("[!]", color.FgYellow) }
func (s Style) failure() string { return s.paint("[-]", color.FgRed, color.Bold) }

// Printer writes operator-facing lines.
type Printer struct {
	mu    sync.Mutex
	Out   io.Writer
	Style Style
}

func (p *Printer) line(prefix, format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.Out, "%s %s\n", prefix, fmt.Sprintf(format, args...))
}

func (p *Printer) Info(format string, args ...any)    { p.line(p.Style.info(), format, args...) }
func (p *Printer) Success(format string, args ...any) { p.line(p.Style.success(), format, args...) }
func (p *Printer) Warn(format string, args ...any)    { p.line(p.Style.warn(), format, args...) }
func (p *Printer) Error(format string, args ...any)   { p.line(p.Style.failure(), format, args...) }

// Plain writes an unprefixed line.
func (p *Printer) Plain(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.Out, format+"\n", args...)
}

// Banner prints the program name and version.
func Banner(w io.Writer, s Style, version string) {
	title := s.paint("oarfish", color.FgCyan, color.Bold)
	fmt.Fprintf(w, "%s %s\n%s\n\n", title, s.Faint("v"+version), s.Faint("Odoo security assessment toolkit"))
}

// Prompt asks yes/no questions on a terminal. Anything but y or yes is a no,
// as is end of input.
type Prompt struct {
	mu    sync.Mutex
	In    *bufio.Reader
	Out   io.Writer
	Style Style
	// AssumeYes answers every question with yes without reading input.
	AssumeYes bool
}

// NewPrompt reads from in and writes questions to out.
func NewPrompt(in io.Reader, out io.Writer, s Style) *Prompt {
	return &Prompt{In: bufio.NewReader(in), Out: out, Style: s}
}

// Confirm asks question and reports whether the operator agreed.
func (p *Prompt) Confirm(question string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.Out, "%s %s [y/N]: ", p.Style.warn(), question)
	if p.AssumeYes {
		fmt.Fprintln(p.Out, "y")
		return true
	}
	answer, err := p.In.ReadString('\n')
	if err != nil && answer == "" {
		fmt.Fprintln(p.Out)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}
