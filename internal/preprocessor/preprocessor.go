package preprocessor

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/fwessels/abcpp/internal/diag"
	"github.com/fwessels/abcpp/internal/macro"
)

const (
	MaxTokens     = 20
	LineLength    = 1024
	MaxExpansions = macro.MaxMacros * LineLength
	MaxPath       = 4096

	Break             = "!break!"
	annotationMarkers = "^_<>@"
	unbalanced        = "Unbalanced '%c' character found - the line is probably wrong."
)

// DefaultLibDir is searched for `#include "<name>"` targets.
var DefaultLibDir = func() string {
	if runtime.GOOS == "windows" {
		return `C:\ABCPP\`
	}
	return "/usr/share/abcpp/"
}()

// Options are the text transformations and diagnostic settings of one run.
type Options struct {
	Strip         bool // drop w: fields, strip !...! and +...+ decorations
	StripChords   bool // drop "chords", keep "^annotations"
	PlusToBracket bool // +CEG+ -> [CEG]
	PlusToBang    bool // +fermata+ -> !fermata!
	BangToPlus    bool // !fermata! -> +fermata+
	StripBang     bool // remove single '!'
	BangToBreak   bool // single '!' -> !break!
	Override      bool // external definitions can't be changed by the input
	NoWarnings    bool
	FatalWarnings bool

	LibDir string
}

// ---------------- Preprocessor ----------------

type Preprocessor struct {
	Options
	Logger *slog.Logger

	macros *macro.Table
	diag   *diag.Reporter
	cond   condState

	suspended bool // #undefine / #suspend
	doremi    bool

	includeStackGuard map[string]bool
	included          []string
}

func NewPreprocessor(opts Options, diagnostics io.Writer) *Preprocessor {
	if opts.LibDir == "" {
		opts.LibDir = DefaultLibDir
	}
	r := diag.NewReporter(diagnostics)
	r.Suppress = opts.NoWarnings
	r.Escalate = opts.FatalWarnings

	t := macro.NewTable(macro.MaxMacros, r)
	t.Protect = opts.Override

	return &Preprocessor{
		Options:           opts,
		Logger:            slog.New(slog.NewTextHandler(io.Discard, nil)),
		macros:            t,
		diag:              r,
		cond:              newCondState(),
		includeStackGuard: map[string]bool{},
	}
}

func (p *Preprocessor) Reporter() *diag.Reporter { return p.diag }
func (p *Preprocessor) Macros() *macro.Table     { return p.macros }

// Included lists every file pulled in by #include, in the order opened.
func (p *Preprocessor) Included() []string { return p.included }

// DefineSymbol defines a flag usable in #ifdef, as -NAME does on the
// command line.
func (p *Preprocessor) DefineSymbol(name string) error {
	return p.defineExternal(name, name, macro.Flag|macro.External)
}

// DefineMacro defines a substituting macro, as -NAME=value does on the
// command line.
func (p *Preprocessor) DefineMacro(name, value string) error {
	return p.defineExternal(name, value, macro.Macro|macro.External)
}

func (p *Preprocessor) defineExternal(name, definition string, kind macro.Kind) error {
	p.Logger.Debug("defining", "name", name, "kind", kind.String())
	return p.macros.Define(name, definition, kind)
}

// ParseDefine splits a command line definition. "NAME=value" is a macro,
// a bare "NAME" a symbol for #ifdef.
func ParseDefine(arg string) (name, value string, isMacro bool) {
	return strings.Cut(arg, "=")
}

// Prepare applies the command line definitions, in order, and then checks
// the options. It runs once, before Process.
func (p *Preprocessor) Prepare(defines ...string) error {
	for _, d := range defines {
		var err error
		if name, value, isMacro := ParseDefine(d); isMacro {
			err = p.DefineMacro(name, value)
		} else {
			err = p.DefineSymbol(name)
		}
		if err != nil {
			return err
		}
	}
	return p.CheckOptions()
}

// CheckOptions reports option combinations that don't make sense together.
func (p *Preprocessor) CheckOptions() error {
	if p.NoWarnings && p.FatalWarnings {
		if err := p.diag.Warn(0, "both -w and -e specified - unpredictable behaviour."); err != nil {
			return err
		}
	}
	if p.StripBang && p.BangToBreak {
		if err := p.diag.Warn(0, "both -b and -k specified - unpredictable behaviour."); err != nil {
			return err
		}
	}
	if p.PlusToBang && p.PlusToBracket {
		return p.diag.Fail(0, "both -n and -p specified - inconsistent behaviour.")
	} else if p.PlusToBang && p.BangToPlus {
		return p.diag.Warn(0, "both -n and -a specified - unpredictable behaviour.")
	}
	return nil
}

// Process preprocesses the top-level input and writes the result to w.
// Output produced before a fatal error is still written.
func (p *Preprocessor) Process(filename string, r io.Reader, w io.Writer) error {
	if filename != "" {
		p.diag.SetRoot(filename)
		if abs, err := filepath.Abs(filename); err == nil {
			p.includeStackGuard[abs] = true
			defer delete(p.includeStackGuard, abs)
		}
	}
	p.Logger.Debug("processing", "file", p.diag.Current().Filename)

	out := bufio.NewWriter(w)
	err := p.processFile(r, out)
	if ferr := out.Flush(); err == nil {
		err = ferr
	}
	return err
}

// processFile drives the current context until its input is exhausted.
func (p *Preprocessor) processFile(r io.Reader, out *bufio.Writer) error {
	lr := newLineReader(r, LineLength)
	for {
		p.diag.NextLine()
		line, ok, err := lr.next()
		if err != nil {
			var re *readError
			if errors.As(err, &re) {
				return p.diag.Fail(re.column, "%s", re.msg)
			}
			return fmt.Errorf("%s: %w", p.diag.Current().Filename, err)
		}
		if !ok {
			return nil
		}

		if strings.HasPrefix(line, "#") {
			err = p.handleDirective(line, out)
		} else {
			err = p.outputLine(line, out)
		}
		if err != nil {
			return err
		}
	}
}

// ---------------- Line reader ----------------

type readError struct {
	column int
	msg    string
}

func (e *readError) Error() string { return e.msg }

// lineReader splits input on CR, LF, CRLF or LFCR; a pair of different
// terminators counts as one line break.
type lineReader struct {
	r     *bufio.Reader
	limit int
}

func newLineReader(r io.Reader, limit int) *lineReader {
	return &lineReader{r: bufio.NewReader(r), limit: limit}
}

func isTerminator(c byte) bool { return c == '\n' || c == '\r' }

func (lr *lineReader) next() (string, bool, error) {
	var buf []byte
	for {
		c, err := lr.r.ReadByte()
		if err == io.EOF {
			if len(buf) == 0 {
				return "", false, nil
			}
			return string(buf), true, nil
		}
		if err != nil {
			return "", false, err
		}
		if isTerminator(c) {
			if nx, err := lr.r.Peek(1); err == nil && isTerminator(nx[0]) && nx[0] != c {
				_, _ = lr.r.ReadByte()
			}
			return string(buf), true, nil
		}
		if c == 0 {
			return "", false, &readError{column: len(buf) + 1, msg: "Embedded NULL"}
		}
		if len(buf) >= lr.limit-2 {
			return "", false, &readError{column: lr.limit, msg: "Line too long"}
		}
		buf = append(buf, c)
	}
}
