package macro

import "strings"

type segment struct {
	s       string
	literal bool
}

// Text is a line being rewritten by successive replacements. An occurrence
// written as `\name` loses its backslash and is frozen as a literal segment,
// so no later replacement (of any name, in any pass) touches it again.
type Text struct {
	segs []segment
}

func NewText(s string) *Text {
	return &Text{segs: []segment{{s: s}}}
}

func (t *Text) String() string {
	if len(t.segs) == 1 {
		return t.segs[0].s
	}
	var b strings.Builder
	for _, seg := range t.segs {
		b.WriteString(seg.s)
	}
	return b.String()
}

func (t *Text) Len() int {
	n := 0
	for _, seg := range t.segs {
		n += len(seg.s)
	}
	return n
}

// Replace substitutes every unprotected occurrence of old with new, left to
// right; text produced by a substitution is not rescanned for old in the same
// call. It returns the number of substitutions made.
func (t *Text) Replace(old, new string) int {
	if old == "" {
		return 0
	}
	count := 0
	out := make([]segment, 0, len(t.segs))
	for _, seg := range t.segs {
		if seg.literal || !strings.Contains(seg.s, old) {
			out = append(out, seg)
			continue
		}
		var buf []byte
		s := seg.s
		for {
			i := strings.Index(s, old)
			if i < 0 {
				buf = append(buf, s...)
				break
			}
			buf = append(buf, s[:i]...)
			if n := len(buf); n > 0 && buf[n-1] == '\\' {
				if n > 1 {
					out = append(out, segment{s: string(buf[:n-1])})
				}
				out = append(out, segment{s: old, literal: true})
				buf = buf[:0]
			} else {
				buf = append(buf, new...)
				count++
			}
			s = s[i+len(old):]
		}
		if len(buf) > 0 {
			out = append(out, segment{s: string(buf)})
		}
	}
	t.segs = out
	return count
}

// Replace is the one-shot form of Text.Replace.
func Replace(s, old, new string) (string, int) {
	t := NewText(s)
	n := t.Replace(old, new)
	return t.String(), n
}
