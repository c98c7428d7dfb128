package pathplan

import "strings"

var illegalChars = map[rune]rune{
	'/': '_', '\\': '_', ':': '_', '*': '_',
	'?': '_', '"': '_', '<': '_', '>': '_', '|': '_',
}

// SafeName replaces OS-illegal filesystem characters with underscores and
// trims trailing dots/spaces, which Windows filesystems reject. Every
// rendered path component goes through this before being joined.
func SafeName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 {
			b.WriteRune('_')
			continue
		}
		if repl, ok := illegalChars[r]; ok {
			b.WriteRune(repl)
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimRight(b.String(), " .")
}
