package preprocessor

// isSpace matches the C locale's isspace.
func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

// tokenize splits a directive line into at most MaxTokens tokens.
//
// A token starting with '"' runs to the next unescaped '"' (quotes dropped),
// any other token runs to the next whitespace. In both forms '\' copies the
// following byte literally; `\\` yields one backslash and escapes nothing
// further, and a trailing '\' just ends the token.
func tokenize(line string) (tokens []string, truncated bool) {
	i := 0
	for i < len(line) && isSpace(line[i]) {
		i++
	}
	for i < len(line) {
		var tok []byte
		escape := false
		if line[i] == '"' {
			i++
			for i < len(line) && (escape || line[i] != '"') {
				if line[i] == '\\' && !escape {
					escape = true
				} else {
					tok = append(tok, line[i])
					escape = false
				}
				i++
			}
			if i < len(line) {
				i++ // closing quote
			}
		} else {
			for i < len(line) && (escape || !isSpace(line[i])) {
				if line[i] == '\\' && !escape {
					escape = true
				} else {
					tok = append(tok, line[i])
					escape = false
				}
				i++
			}
		}

		if len(tokens) == MaxTokens {
			return tokens, true
		}
		tokens = append(tokens, string(tok))

		for i < len(line) && isSpace(line[i]) {
			i++
		}
	}
	return tokens, false
}
