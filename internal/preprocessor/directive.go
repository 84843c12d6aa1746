package preprocessor

import (
	"bufio"

	"github.com/fwessels/abcpp/internal/macro"
)

type directive int

const (
	dirComment directive = iota
	dirABC
	dirDefine
	dirDoremi
	dirElifdef
	dirElifndef
	dirElse
	dirEndif
	dirIfdef
	dirIfndef
	dirInclude
	dirRedefine
	dirResume
	dirSuspend
	dirUndefine
)

var directives = map[string]directive{
	"#":         dirComment,
	"#abc":      dirABC,
	"#define":   dirDefine,
	"#doremi":   dirDoremi,
	"#elifdef":  dirElifdef,
	"#elifndef": dirElifndef,
	"#else":     dirElse,
	"#endif":    dirEndif,
	"#ifdef":    dirIfdef,
	"#ifndef":   dirIfndef,
	"#include":  dirInclude,
	"#redefine": dirRedefine,
	"#resume":   dirResume,
	"#suspend":  dirSuspend,
	"#undefine": dirUndefine,
}

// ---------------- Conditionals ----------------

// condState is the conditional-inclusion state. It is global to the run,
// not per file, and blocks don't nest.
type condState struct {
	condition     bool // lines are emitted
	elseAvailable bool // a later #else/#elifdef may still fire
	active        bool // inside #ifdef ... #endif
}

func newCondState() condState { return condState{condition: true} }

func (c *condState) ifdef(anyDefined, negate bool) {
	c.active = true
	c.condition = anyDefined
	c.elseAvailable = !anyDefined
	if negate {
		c.condition = !c.condition
		c.elseAvailable = !c.elseAvailable
	}
}

// elifdef leaves condition untouched when no symbol is defined; with negate
// that still flips both flags.
func (c *condState) elifdef(anyDefined, negate bool) {
	if !c.elseAvailable {
		c.condition = false
		return
	}
	if anyDefined {
		c.condition = true
		c.elseAvailable = false
	}
	if negate {
		c.condition = !c.condition
		c.elseAvailable = !c.elseAvailable
	}
}

func (c *condState) otherwise() { c.condition = c.elseAvailable }

func (c *condState) endif() { *c = newCondState() }

func (p *Preprocessor) anyDefined(names []string) bool {
	for _, n := range names {
		if p.macros.Defined(n) {
			return true
		}
	}
	return false
}

// ---------------- Directives ----------------

// handleDirective interprets a line starting with '#'. Conditionals are
// evaluated even inside a false branch; everything else only takes effect
// while the condition holds.
func (p *Preprocessor) handleDirective(line string, out *bufio.Writer) error {
	tokens, truncated := tokenize(line)
	if truncated {
		if err := p.diag.Warn(1, "Too many tokens (> %d) on directive line - line truncated.", MaxTokens); err != nil {
			return err
		}
	}
	d, ok := directives[tokens[0]]
	if !ok {
		return p.diag.Warn(1, "Unknown preprocessor directive: '%s' - ignored.", tokens[0])
	}
	args := tokens[1:]

	switch d {
	case dirIfdef, dirIfndef:
		if len(args) == 0 {
			return p.diag.Fail(1, "#if(n)def must be followed by at least 1 symbol.")
		}
		if p.cond.active {
			return p.diag.Fail(1, "Cannot nest #if(n)def.")
		}
		p.cond.ifdef(p.anyDefined(args), d == dirIfndef)

	case dirElifdef, dirElifndef:
		if !p.cond.active {
			if err := p.diag.Warn(1, "#elif(n)def without #ifdef - unpredictable behaviour."); err != nil {
				return err
			}
		}
		if len(args) == 0 {
			return p.diag.Fail(1, "#elif(n)def must be followed by at least 1 symbol.")
		}
		p.cond.elifdef(p.anyDefined(args), d == dirElifndef)

	case dirElse:
		if !p.cond.active {
			return p.diag.Fail(1, "#else without #ifdef.")
		}
		if len(args) != 0 {
			if err := p.diag.Warn(1, "#else should not be followed by any symbols - extra ignored."); err != nil {
				return err
			}
		}
		p.cond.otherwise()

	case dirEndif:
		if len(args) != 0 {
			if err := p.diag.Warn(1, "#endif should not be followed by any symbols - extra ignored."); err != nil {
				return err
			}
		}
		if !p.cond.active {
			return p.diag.Warn(1, "#endif without #ifdef - ignored.")
		}
		p.cond.endif()

	case dirDefine:
		if len(args) == 0 || len(args) > 2 {
			return p.diag.Fail(1, "#define must be followed by 1 or 2 strings.")
		}
		if !p.cond.condition {
			return nil
		}
		if len(args) == 1 {
			return p.macros.Undefine(args[0])
		}
		return p.macros.Define(args[0], args[1], macro.Macro)

	case dirInclude:
		if len(args) != 1 {
			return p.diag.Warn(1, "#include must be followed by 1 string - ignored.")
		}
		if p.cond.condition {
			return p.include(args[0], out)
		}

	case dirUndefine, dirSuspend:
		if p.cond.condition {
			p.suspended = true
		}

	case dirRedefine, dirResume:
		if p.cond.condition {
			p.suspended = false
		}

	case dirABC:
		if p.cond.condition {
			p.doremi = false
		}

	case dirDoremi:
		if p.cond.condition {
			p.doremi = true
		}

	case dirComment:
	}
	return nil
}
