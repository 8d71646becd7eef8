// Package report prints colored operator diagnostics.
//
// Every message is preceded by a blank line so that output interleaved with
// external tools stays readable. Colors are dropped automatically when the
// destination is not a terminal.
package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
)

var (
	infoColor    = color.New(color.FgHiBlue)
	headingColor = color.New(color.FgHiBlue, color.Bold)
	successColor = color.New(color.FgHiGreen)
	doneColor    = color.New(color.FgHiGreen, color.Bold)
	warnColor    = color.New(color.FgHiRed)
	bannerColor  = color.New(color.FgHiMagenta, color.Bold)
)

type Reporter struct {
	out io.Writer
	err io.Writer
}

func New(out, errOut io.Writer) *Reporter {
	return &Reporter{out: out, err: errOut}
}

func Stdio() *Reporter {
	return New(color.Output, color.Error)
}

// Discard returns a Reporter that drops everything. Useful in tests.
func Discard() *Reporter {
	return New(io.Discard, io.Discard)
}

func (r *Reporter) Info(format string, args ...any) {
	r.line(r.out, infoColor, format, args...)
}

func (r *Reporter) Heading(format string, args ...any) {
	r.line(r.out, headingColor, format, args...)
}

func (r *Reporter) Success(format string, args ...any) {
	r.line(r.out, successColor, format, args...)
}

func (r *Reporter) Done(format string, args ...any) {
	r.line(r.out, doneColor, format, args...)
}

func (r *Reporter) Warn(format string, args ...any) {
	r.line(r.err, warnColor, format, args...)
}

func (r *Reporter) Error(format string, args ...any) {
	r.line(r.err, warnColor, "🛑 "+format, args...)
}

func (r *Reporter) Plain(format string, args ...any) {
	fmt.Fprintf(r.out, format+"\n", args...)
}

// Command announces an external command before it takes over the terminal.
func (r *Reporter) Command(command string) {
	fmt.Fprintf(r.out, "\n%s %s\n\n", infoColor.Sprint("Executing command:"), command)
}

func (r *Reporter) Banner() {
	bannerColor.Fprintln(r.out, "Welcome to the Demo Starter Kit!")
	bannerColor.Fprintln(r.out, "Created by the GenAI Labs Team 🧪")
}

func (r *Reporter) Goodbye() {
	fmt.Fprintln(r.out)
	bannerColor.Fprintln(r.out, "Goodbye! 👋")
	fmt.Fprintln(r.out)
}

func (r *Reporter) Table(columns []string, rows [][]string) {
	w := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(columns, "\t"))
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	w.Flush()
}

func (r *Reporter) line(w io.Writer, c *color.Color, format string, args ...any) {
	fmt.Fprintln(w)
	c.Fprintf(w, format, args...)
	fmt.Fprintln(w)
}
