package chat

import (
	"strconv"
	"strings"

	"github.com/kailas-cloud/ragchat/internal/domain/match"
)

// FormatContext renders matches as a citation-ready block, one entry per match:
//
//   - {text}
//     [{i}] Title: {title}
//     URL: {source}
//
// i is the 1-based position in matches.
func FormatContext(matches []match.Match) string {
	var b strings.Builder
	for i := range matches {
		if i > 0 {
			b.WriteByte('\n')
		}
		m := &matches[i]
		b.WriteString("- ")
		b.WriteString(m.Text())
		b.WriteString("\n  [")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString("] Title: ")
		b.WriteString(m.Title())
		b.WriteString("\n  URL: ")
		b.WriteString(m.Source())
	}
	return b.String()
}
