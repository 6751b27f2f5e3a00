// Package markdown renders model output into the transport's MarkdownV2
// dialect, escaping characters the dialect reserves.
package markdown

import "strings"

// reservedV2 is the character set MarkdownV2 reserves outside code spans.
// '*', '_' and '`' are left alone so the model's emphasis and code formatting
// survive; everything else must be escaped or the transport rejects the
// message.
const reservedV2 = "[]()~>#+-=|{}.!"

// EscapeV2 escapes reserved MarkdownV2 characters in text while preserving
// inline code spans and fenced code blocks. Backticks delimit spans and pass
// through unescaped; inside a span only '\' is escaped, per the dialect
// rules.
func EscapeV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/8)

	inFence := false
	inCode := false
	i := 0
	for i < len(text) {
		if strings.HasPrefix(text[i:], "```") {
			inFence = !inFence
			b.WriteString("```")
			i += 3
			continue
		}

		ch := text[i]
		if ch == '`' && !inFence {
			inCode = !inCode
			b.WriteByte(ch)
			i++
			continue
		}

		if inFence || inCode {
			if ch == '\\' {
				b.WriteByte('\\')
			}
			b.WriteByte(ch)
			i++
			continue
		}

		if strings.IndexByte(reservedV2, ch) >= 0 {
			b.WriteByte('\\')
		}
		b.WriteByte(ch)
		i++
	}

	return b.String()
}
