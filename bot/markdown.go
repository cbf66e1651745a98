package bot

import "strings"

// Characters that need escaping in MarkdownV2
var specialChars = []string{"_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!"}

// escapeMarkdown escapes special characters for Telegram's MarkdownV2 format
func escapeMarkdown(text string) string {
	text = strings.ReplaceAll(text, `\`, `\\`)
	for _, char := range specialChars {
		text = strings.ReplaceAll(text, char, `\`+char)
	}
	return text
}

// unescapeMarkdown turns an escaped MarkdownV2 text back into plain text for the fallback path
func unescapeMarkdown(text string) string {
	var b strings.Builder
	escaped := false
	for _, r := range text {
		switch {
		case escaped:
			b.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '*':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func bold(text string) string {
	return "*" + escapeMarkdown(text) + "*"
}
