package extract

// JSONObjects returns every balanced top-level {...} object found in s, in
// order. The scan is quote- and escape-aware, so braces inside JSON strings
// do not count toward nesting. Text between objects is ignored, a stray
// closing brace at depth zero is skipped, and an unbalanced trailing object
// is dropped.
func JSONObjects(s string) []string {
	var objs []string
	depth := 0
	start := -1
	inString := false
	escaped := false

	for i, r := range s {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				objs = append(objs, s[start:i+1])
				start = -1
			}
		}
	}
	return objs
}
