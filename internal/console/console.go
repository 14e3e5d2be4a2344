// Package console prints status output for the wayfinder CLI.
package console

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Printer writes coloured status lines. Info and progress lines are dropped
// in quiet mode; debug lines only appear in verbose mode. Warnings and
// errors always go to the error writer.
type Printer struct {
	Out     io.Writer
	Err     io.Writer
	Verbose bool
	Quiet   bool

	success *color.Color
	warn    *color.Color
	fail    *color.Color
	debug   *color.Color
}

// New creates a printer writing to stdout and stderr.
func New(verbose, quiet bool) *Printer {
	return NewWithWriters(os.Stdout, os.Stderr, verbose, quiet)
}

// NewWithWriters creates a printer with explicit writers.
func NewWithWriters(out, errOut io.Writer, verbose, quiet bool) *Printer {
	return &Printer{
		Out:     out,
		Err:     errOut,
		Verbose: verbose,
		Quiet:   quiet,
		success: color.New(color.FgGreen),
		warn:    color.New(color.FgYellow),
		fail:    color.New(color.FgRed),
		debug:   color.New(color.Faint),
	}
}

// DisableColor turns off colour codes, for tests and piped output.
func (p *Printer) DisableColor() {
	for _, c := range []*color.Color{p.success, p.warn, p.fail, p.debug} {
		c.DisableColor()
	}
}

// Success prints a green status line.
func (p *Printer) Success(format string, args ...any) {
	if p.Quiet {
		return
	}
	p.success.Fprintf(p.Out, format+"\n", args...)
}

// Info prints a plain status line.
func (p *Printer) Info(format string, args ...any) {
	if p.Quiet {
		return
	}
	fmt.Fprintf(p.Out, format+"\n", args...)
}

// Debug prints only in verbose mode.
func (p *Printer) Debug(format string, args ...any) {
	if !p.Verbose {
		return
	}
	p.debug.Fprintf(p.Err, format+"\n", args...)
}

// Warn prints a yellow line to the error writer.
func (p *Printer) Warn(format string, args ...any) {
	p.warn.Fprintf(p.Err, format+"\n", args...)
}

// Error prints a red line to the error writer.
func (p *Printer) Error(format string, args ...any) {
	p.fail.Fprintf(p.Err, format+"\n", args...)
}

// Progress rewrites the current line with a phase and percentage.
func (p *Printer) Progress(phase string, pct float64) {
	if p.Quiet {
		return
	}
	fmt.Fprintf(p.Out, "\r\033[K%s (%.0f%%)", phase, pct*100)
}

// EndProgress finishes a progress line.
func (p *Printer) EndProgress() {
	if p.Quiet {
		return
	}
	fmt.Fprintln(p.Out)
}
