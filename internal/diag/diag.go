// Package diag tracks where the preprocessor is reading from and reports
// warnings and fatal errors relative to that position.
package diag

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

const Program = "abcpp"

type Severity int

const (
	Warning Severity = iota
	Fatal
)

func (s Severity) String() string {
	if s == Warning {
		return "warning"
	}
	return "error"
}

// Context is one entry of the include stack.
type Context struct {
	Filename string
	Line     int
}

// Error is a diagnostic bound to a source position. Fatal conditions are
// returned as *Error up to the driver; so are warnings when warnings are
// escalated.
type Error struct {
	Severity Severity
	Filename string
	Line     int
	Column   int
	Included bool
	Msg      string
}

func (e *Error) Error() string {
	return e.Severity.String() + " " + e.where() + ": " + e.Msg
}

func (e *Error) where() string {
	if e.Line == 0 {
		return "on command line"
	}
	if e.Included {
		return fmt.Sprintf("in included file %s on line %d:%d", e.Filename, e.Line, e.Column)
	}
	return fmt.Sprintf("on line %d:%d", e.Line, e.Column)
}

// Reporter owns the Source Context stack. The bottom entry is the top-level
// input; it starts at line 0 so diagnostics raised before the first line is
// read are attributed to the command line.
type Reporter struct {
	// Suppress drops warnings unless Escalate is also set.
	Suppress bool
	// Escalate turns every warning into a fatal error.
	Escalate bool

	w        io.Writer
	stack    []Context
	warnings int
	severity map[Severity]*color.Color
}

func NewReporter(w io.Writer) *Reporter {
	r := &Reporter{
		w:     w,
		stack: []Context{{Filename: "stdin"}},
		severity: map[Severity]*color.Color{
			Warning: color.New(color.FgYellow, color.Bold),
			Fatal:   color.New(color.FgRed, color.Bold),
		},
	}
	colored := canColor(w)
	for _, c := range r.severity {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return r
}

func canColor(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// SetRoot renames the top-level context, e.g. to the input file name.
func (r *Reporter) SetRoot(filename string) {
	r.stack[0].Filename = filename
}

func (r *Reporter) Push(filename string) {
	r.stack = append(r.stack, Context{Filename: filename})
}

func (r *Reporter) Pop() {
	if len(r.stack) > 1 {
		r.stack = r.stack[:len(r.stack)-1]
	}
}

func (r *Reporter) Current() *Context { return &r.stack[len(r.stack)-1] }
func (r *Reporter) Depth() int        { return len(r.stack) }
func (r *Reporter) Warnings() int     { return r.warnings }

// NextLine advances the line counter of the current context.
func (r *Reporter) NextLine() { r.Current().Line++ }

func (r *Reporter) newError(sev Severity, column int, format string, args ...any) *Error {
	cur := r.Current()
	return &Error{
		Severity: sev,
		Filename: cur.Filename,
		Line:     cur.Line,
		Column:   column,
		Included: len(r.stack) > 1,
		Msg:      fmt.Sprintf(format, args...),
	}
}

// Warn reports a recoverable problem. The returned error is non-nil only when
// warnings are escalated, in which case the caller must stop.
func (r *Reporter) Warn(column int, format string, args ...any) error {
	if r.Suppress && !r.Escalate {
		return nil
	}
	e := r.newError(Warning, column, format, args...)
	if r.Escalate {
		return e
	}
	r.warnings++
	r.Print(e)
	return nil
}

// Fail builds a fatal error at the current position. It is never printed
// here; the driver prints it through Report once it has unwound.
func (r *Reporter) Fail(column int, format string, args ...any) error {
	return r.newError(Fatal, column, format, args...)
}

func (r *Reporter) Print(e *Error) {
	fmt.Fprintf(r.w, "%s: *** %s %s: %s\n", Program, r.severity[e.Severity].Sprint(e.Severity), e.where(), e.Msg)
}

// Report prints any error returned by the preprocessor.
func (r *Reporter) Report(err error) {
	var e *Error
	if errors.As(err, &e) {
		r.Print(e)
		return
	}
	fmt.Fprintf(r.w, "%s: *** %s: %v\n", Program, r.severity[Fatal].Sprint(Fatal), err)
}
