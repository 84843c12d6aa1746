package preprocessor

import (
	"bufio"
	"strings"

	"github.com/fwessels/abcpp/internal/macro"
)

// outputLine runs a non-directive line through the transformation passes and
// writes it, unless the current branch is false.
func (p *Preprocessor) outputLine(line string, out *bufio.Writer) error {
	if !p.cond.condition {
		return nil
	}

	if !p.suspended {
		var err error
		if line, err = p.expandMacros(line); err != nil {
			return err
		}
	}

	// % comments are carried through untouched
	body, comment := line, ""
	if i := strings.IndexByte(line, '%'); i >= 0 {
		body, comment = line[:i], line[i:]
	}

	if tag, ok := detectField(body); ok {
		if (tag == 'w' || tag == 'W') && p.Strip {
			return nil
		}
	} else {
		var err error
		if body, err = p.transform(body); err != nil {
			return err
		}
	}

	out.WriteString(body)
	out.WriteString(comment)
	return out.WriteByte('\n')
}

// expandMacros substitutes every macro, in name order, until a pass changes
// nothing.
func (p *Preprocessor) expandMacros(line string) (string, error) {
	text := macro.NewText(line)
	total := 0
	for {
		replaced := 0
		for _, m := range p.macros.Macros() {
			replaced += text.Replace(m.Name, m.Definition)
			if text.Len() >= LineLength {
				return "", p.diag.Fail(1, "Line too long after macro expansion.")
			}
		}
		total += replaced
		if total > MaxExpansions {
			return "", p.diag.Fail(1, "Possible infinitely expanding macro detected.")
		}
		if replaced == 0 {
			return text.String(), nil
		}
	}
}

// detectField reports whether s is a tagged field such as "T:" or "w:".
func detectField(s string) (byte, bool) {
	i := 0
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	if i+1 < len(s) && isAlpha(s[i]) && s[i+1] == ':' {
		return s[i], true
	}
	return 0, false
}

func isAlpha(c byte) bool { return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') }

func (p *Preprocessor) transform(s string) (string, error) {
	var err error

	if p.doremi {
		for _, n := range macro.Solfeges {
			s, _ = macro.Replace(s, n.Name, n.Definition)
		}
	}

	// before stripping, so single '!' don't show up as unbalanced
	if p.BangToBreak {
		if s, err = p.removeBang(s, true); err != nil {
			return "", err
		}
	} else if p.StripBang {
		if s, err = p.removeBang(s, false); err != nil {
			return "", err
		}
	}

	if p.Strip {
		if s, err = p.removeDelimited(s, '!', ""); err != nil {
			return "", err
		}
		if s, err = p.removeDelimited(s, '+', ""); err != nil {
			return "", err
		}
	}

	if p.StripChords {
		if s, err = p.removeDelimited(s, '"', annotationMarkers); err != nil {
			return "", err
		}
	}

	// +...+ chords become [...] before any decoration restyling
	if p.PlusToBracket {
		if s, err = p.replaceDelimiter(s, "++", "[]"); err != nil {
			return "", err
		}
	}

	if p.BangToPlus {
		s, err = p.replaceDelimiter(s, "!!", "++")
	} else if p.PlusToBang {
		s, err = p.replaceDelimiter(s, "++", "!!")
	}
	return s, err
}

// removeBang removes, or turns into Break, every '!' followed by whitespace
// or the end of the line. Any other '!' opens a decoration that is skipped.
func (p *Preprocessor) removeBang(s string, writeBreak bool) (string, error) {
	var b strings.Builder
	for {
		i := strings.IndexByte(s, '!')
		if i < 0 {
			b.WriteString(s)
			return b.String(), nil
		}
		if i+1 == len(s) || isSpace(s[i+1]) {
			b.WriteString(s[:i])
			if writeBreak {
				b.WriteString(Break)
			}
			s = s[i+1:]
			continue
		}
		j := strings.IndexByte(s[i+1:], '!')
		if j < 0 {
			col := b.Len() + i + 1
			b.WriteString(s)
			return b.String(), p.diag.Warn(col, unbalanced, '!')
		}
		end := i + j + 2
		b.WriteString(s[:end])
		s = s[end:]
	}
}

// removeDelimited deletes every delim...delim span. A span whose first
// character is in exceptions is kept.
func (p *Preprocessor) removeDelimited(s string, delim byte, exceptions string) (string, error) {
	var b strings.Builder
	consumed := 0
	for {
		i := strings.IndexByte(s, delim)
		if i < 0 {
			b.WriteString(s)
			return b.String(), nil
		}
		j := strings.IndexByte(s[i+1:], delim)
		if j < 0 {
			b.WriteString(s)
			if delim == '!' {
				return b.String(), nil
			}
			return b.String(), p.diag.Warn(consumed+i+1, unbalanced, delim)
		}
		end := i + j + 2
		if i+1 < len(s) && strings.IndexByte(exceptions, s[i+1]) >= 0 {
			b.WriteString(s[:end])
		} else {
			b.WriteString(s[:i])
		}
		consumed += end
		s = s[end:]
	}
}

// replaceDelimiter rewrites old[0]...old[1] spans to new[0]...new[1].
func (p *Preprocessor) replaceDelimiter(s string, old, new string) (string, error) {
	b := []byte(s)
	skip := 0
	for {
		i := strings.IndexByte(s[skip:], old[0])
		if i < 0 {
			return string(b), nil
		}
		i += skip
		j := strings.IndexByte(s[i+1:], old[1])
		if j < 0 {
			if old[0] == '!' {
				return string(b), nil
			}
			return string(b), p.diag.Warn(i+1, unbalanced, old[0])
		}
		j += i + 1
		b[i], b[j] = new[0], new[1]
		skip = j + 1
	}
}
