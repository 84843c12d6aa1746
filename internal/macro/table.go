// Package macro holds the symbol table of the preprocessor: macros, flag
// symbols set on the command line and the built-in solfège names.
package macro

import (
	"strings"

	"github.com/emirpasic/gods/maps/treemap"
)

const (
	MaxMacros        = 512
	NameLength       = 50
	DefinitionLength = 975
)

// Kind classifies a symbol. External is combined with Macro or Flag for
// symbols supplied before the first input line.
type Kind uint

const (
	Macro Kind = 1 << iota
	Flag
	Solfege
	External
)

func (k Kind) Has(f Kind) bool { return k&f == f }

func (k Kind) String() string {
	var parts []string
	for _, f := range []struct {
		k    Kind
		name string
	}{{Macro, "macro"}, {Flag, "flag"}, {Solfege, "solfege"}, {External, "external"}} {
		if k.Has(f.k) {
			parts = append(parts, f.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

type Symbol struct {
	Name       string
	Definition string
	Kind       Kind
}

// Solfeges maps the Latin note names to letters, applied in this order.
var Solfeges = []Symbol{
	{"DO", "C", Solfege}, {"RE", "D", Solfege}, {"MI", "E", Solfege}, {"FA", "F", Solfege},
	{"SOL", "G", Solfege}, {"LA", "A", Solfege}, {"SI", "B", Solfege},
	{"do", "c", Solfege}, {"re", "d", Solfege}, {"mi", "e", Solfege}, {"fa", "f", Solfege},
	{"sol", "g", Solfege}, {"la", "a", Solfege}, {"si", "b", Solfege},
}

// Reporter receives the table's diagnostics. Warn returns non-nil when the
// warning has been escalated.
type Reporter interface {
	Warn(column int, format string, args ...any) error
	Fail(column int, format string, args ...any) error
}

// Table is kept ordered by name; iteration order is the order in which
// macros are substituted.
type Table struct {
	// Protect keeps External symbols from being redefined or undefined.
	Protect bool

	capacity int
	entries  *treemap.Map
	diag     Reporter
}

func NewTable(capacity int, r Reporter) *Table {
	return &Table{
		capacity: capacity,
		entries:  treemap.NewWithStringComparator(),
		diag:     r,
	}
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func normalize(name string) string { return truncate(name, NameLength-1) }

func (t *Table) get(name string) (*Symbol, bool) {
	v, found := t.entries.Get(name)
	if !found {
		return nil, false
	}
	return v.(*Symbol), true
}

// Define adds name or overwrites it in place. Macro definitions have every
// unescaped '~' turned into a space.
func (t *Table) Define(name, definition string, kind Kind) error {
	name = normalize(name)
	definition = truncate(definition, DefinitionLength-1)
	if kind.Has(Macro) {
		definition, _ = Replace(definition, "~", " ")
	}

	if sym, found := t.get(name); found {
		if sym.Kind.Has(External) && t.Protect {
			if err := t.diag.Warn(1, "Symbol '%s' can't be changed - redefinition ignored.", name); err != nil {
				return err
			}
		} else {
			sym.Kind = kind
			sym.Definition = definition
			if err := t.diag.Warn(1, "Symbol '%s' redefined.", name); err != nil {
				return err
			}
		}
	} else if t.entries.Size() >= t.capacity {
		if err := t.diag.Warn(1, "Maximum macros reached (%d) - symbol '%s' ignored.", t.capacity, name); err != nil {
			return err
		}
	} else {
		t.entries.Put(name, &Symbol{Name: name, Definition: definition, Kind: kind})
	}
	return t.checkRunaway(name)
}

// checkRunaway follows the alias chain starting at name. Reaching a
// definition that contains name means the macro can never finish expanding.
func (t *Table) checkRunaway(name string) error {
	next := name
	for steps := 0; steps <= t.entries.Size(); steps++ {
		sym, found := t.get(next)
		if !found || !sym.Kind.Has(Macro) {
			return nil
		}
		next = sym.Definition
		if strings.Contains(next, name) {
			return t.diag.Fail(1, "Infinitely expanding macro '%s' detected.", name)
		}
	}
	return nil
}

func (t *Table) Undefine(name string) error {
	name = normalize(name)
	sym, found := t.get(name)
	switch {
	case !found:
		return t.diag.Warn(1, "Symbol '%s' not defined - undefine ignored.", name)
	case sym.Kind.Has(External) && t.Protect:
		return t.diag.Warn(1, "Symbol '%s' can't be changed - undefine ignored.", name)
	}
	t.entries.Remove(name)
	return nil
}

func (t *Table) Lookup(name string) (Symbol, bool) {
	sym, found := t.get(normalize(name))
	if !found {
		return Symbol{}, false
	}
	return *sym, true
}

func (t *Table) Defined(name string) bool {
	_, found := t.get(normalize(name))
	return found
}

func (t *Table) Len() int { return t.entries.Size() }

// Symbols returns every entry in name order.
func (t *Table) Symbols() []Symbol {
	out := make([]Symbol, 0, t.entries.Size())
	it := t.entries.Iterator()
	for it.Next() {
		out = append(out, *it.Value().(*Symbol))
	}
	return out
}

// Macros returns the substituting entries in name order.
func (t *Table) Macros() []Symbol {
	var out []Symbol
	it := t.entries.Iterator()
	for it.Next() {
		if sym := it.Value().(*Symbol); sym.Kind.Has(Macro) {
			out = append(out, *sym)
		}
	}
	return out
}
