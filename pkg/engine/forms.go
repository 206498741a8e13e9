package engine

// form is one top-level expression and the source line it starts on.
type form struct {
	text string
	line int
}

// splitForms cuts preprocessed source into top-level forms. Brackets inside
// strings and comments do not count. A stray closing bracket becomes a form
// of its own and an unclosed form runs to the end of the source, so the
// parser still sees and reports both.
func splitForms(src string) []form {
	var forms []form
	line, depth := 1, 0
	start, startLine := -1, 0

	end := func(i int) {
		if start >= 0 {
			forms = append(forms, form{text: src[start:i], line: startLine})
			start = -1
		}
	}
	open := func(i int) {
		if start < 0 {
			start, startLine = i, line
		}
	}

	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case c == '\n':
			if depth == 0 {
				end(i)
			}
			line++
			continue

		case c == ' ' || c == '\t' || c == '\r':
			if depth == 0 {
				end(i)
			}
			continue

		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			if depth == 0 {
				end(i)
			}
			for i+1 < len(src) && src[i+1] != '\n' {
				i++
			}
			continue

		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			if depth == 0 {
				end(i)
			}
			i += 2
			for i < len(src) && !(src[i] == '*' && i+1 < len(src) && src[i+1] == '/') {
				if src[i] == '\n' {
					line++
				}
				i++
			}
			i++
			continue

		case c == '"' || c == '`':
			open(i)
			for i+1 < len(src) {
				i++
				if src[i] == '\n' {
					line++
				}
				if c == '"' && src[i] == '\\' && i+1 < len(src) {
					i++
					if src[i] == '\n' {
						line++
					}
					continue
				}
				if src[i] == c {
					break
				}
			}
			continue
		}

		open(i)
		switch c {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth <= 0 {
				depth = 0
				end(i + 1)
			}
		}
	}
	end(len(src))
	return forms
}
