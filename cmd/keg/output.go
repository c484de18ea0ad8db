package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// printer writes the user-facing "==>" progress lines
type printer struct {
	w       io.Writer
	heading *color.Color
	ok      *color.Color
	warn    *color.Color
	fail    *color.Color
	label   *color.Color
}

func newPrinter(w io.Writer) *printer {
	return &printer{
		w:       w,
		heading: color.New(color.FgBlue, color.Bold),
		ok:      color.New(color.FgGreen, color.Bold),
		warn:    color.New(color.FgYellow, color.Bold),
		fail:    color.New(color.FgRed, color.Bold),
		label:   color.New(color.Bold),
	}
}

// Heading prints "==> message"
func (p *printer) Heading(format string, args ...interface{}) {
	_, _ = p.heading.Fprint(p.w, "==> ")
	_, _ = p.label.Fprintf(p.w, format+"\n", args...)
}

func (p *printer) Success(format string, args ...interface{}) {
	_, _ = p.ok.Fprint(p.w, "✓ ")
	_, _ = fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *printer) Warn(format string, args ...interface{}) {
	_, _ = p.warn.Fprint(p.w, "Warning: ")
	_, _ = fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *printer) Error(format string, args ...interface{}) {
	_, _ = p.fail.Fprint(p.w, "Error: ")
	_, _ = fmt.Fprintf(p.w, format+"\n", args...)
}

// Field prints an aligned "label: value" line
func (p *printer) Field(name, value string) {
	_, _ = p.label.Fprintf(p.w, "%-10s", name+":")
	_, _ = fmt.Fprintf(p.w, " %s\n", value)
}

func (p *printer) Println(a ...interface{}) {
	_, _ = fmt.Fprintln(p.w, a...)
}
