package vectorstore

import "strings"

// globToLike converts a `**`/`*`/`?` glob pattern into a SQL LIKE
// pattern plus its ESCAPE character: `**`/`*` become `%`, `?` becomes
// `_`, and every LIKE metacharacter in the input is escaped. The caller
// must pass the returned pattern as a bound parameter, never
// concatenated into SQL text.
func globToLike(pattern string) (like string, escape byte) {
	const esc = '\\'
	var b strings.Builder
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch c {
		case '*':
			// collapse a run of consecutive '*' (covers "**") into one '%'
			b.WriteByte('%')
			for i+1 < len(pattern) && pattern[i+1] == '*' {
				i++
			}
		case '?':
			b.WriteByte('_')
		case '%', '_', esc:
			b.WriteByte(esc)
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), esc
}
