package usecase

import (
	"regexp"
	"strconv"
	"strings"

	"telegram-digital-shop/internal/domain/ports/adapter"
	"telegram-digital-shop/internal/infra/i18n"
)

// NotSpecified replaces template fields the customer has not filled in.
const NotSpecified = "не указан"

const (
	reservedChars   = "_*[]()~`>#+-=|{}.!\\"
	formattingChars = "*_~"
)

var (
	placeholderRe = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\}`)
	slotRe        = regexp.MustCompile(`\x00([0-9]+)\x00`)

	// Spans kept as written: pre blocks, inline code, inline links and
	// characters the author escaped already.
	markupRe = regexp.MustCompile("(?s)```.*?```|`[^`\n]+`|\\[[^\\[\\]\n]+\\]\\([^()\\s\\\\]+\\)|\\\\[!-~]")

	// Every character MarkdownV2 reserves; used on customer data.
	markdownEscaper = strings.NewReplacer(
		`\`, `\\`, "_", `\_`, "*", `\*`, "[", `\[`, "]", `\]`, "(", `\(`, ")", `\)`,
		"~", `\~`, "`", "\\`", ">", `\>`, "#", `\#`, "+", `\+`, "-", `\-`,
		"=", `\=`, "|", `\|`, "{", `\{`, "}", `\}`, ".", `\.`, "!", `\!`,
	)
)

// EscapeMarkdown makes s render literally in a MarkdownV2 message.
func EscapeMarkdown(s string) string { return markdownEscaper.Replace(s) }

// ProtectMarkdown turns an authored text into valid MarkdownV2. Code, pre,
// inline links, escapes already present and a leading quote marker are kept;
// bold, italic and strikethrough survive when their markers pair up. Every
// other reserved character is escaped.
func ProtectMarkdown(s string) string {
	spans := markupRe.FindAllStringIndex(s, -1)
	keep := make(map[byte]bool, len(formattingChars))
	for i := 0; i < len(formattingChars); i++ {
		c := formattingChars[i]
		keep[c] = countOutside(s, spans, c)%2 == 0
	}

	var b strings.Builder
	b.Grow(len(s) + len(s)/8)
	last := 0
	for _, sp := range spans {
		protectPlain(&b, s, last, sp[0], keep)
		b.WriteString(protectSpan(s[sp[0]:sp[1]]))
		last = sp[1]
	}
	protectPlain(&b, s, last, len(s), keep)
	return b.String()
}

func protectPlain(b *strings.Builder, s string, from, to int, keep map[byte]bool) {
	for i := from; i < to; i++ {
		c := s[i]
		switch {
		case c == '>' && (i == 0 || s[i-1] == '\n'):
		case keep[c]:
		case strings.IndexByte(reservedChars, c) >= 0:
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
}

// protectSpan escapes the visible text of a link; other spans are valid as is.
func protectSpan(span string) string {
	if span[0] != '[' {
		return span
	}
	i := strings.Index(span, "](")
	return "[" + EscapeMarkdown(span[1:i]) + span[i:]
}

func countOutside(s string, spans [][]int, c byte) int {
	n, last := 0, 0
	for _, sp := range spans {
		n += strings.Count(s[last:sp[0]], string(c))
		last = sp[1]
	}
	return n + strings.Count(s[last:], string(c))
}

// RenderTemplate substitutes {field} tokens from collected in a single pass.
// Field names match case-insensitively; absent or empty values render as
// NotSpecified. Values are fully escaped, the surrounding text is protected
// as a whole so markup may span a placeholder.
func RenderTemplate(content string, collected map[string]string) string {
	lookup := make(map[string]string, len(collected))
	for k, v := range collected {
		lookup[strings.ToLower(k)] = v
	}

	var values []string
	slotted := placeholderRe.ReplaceAllStringFunc(content, func(tok string) string {
		value := lookup[strings.ToLower(tok[1:len(tok)-1])]
		if value == "" {
			value = NotSpecified
		}
		values = append(values, EscapeMarkdown(value))
		return "\x00" + strconv.Itoa(len(values)-1) + "\x00"
	})
	return slotRe.ReplaceAllStringFunc(ProtectMarkdown(slotted), func(slot string) string {
		i, err := strconv.Atoi(slot[1 : len(slot)-1])
		if err != nil || i >= len(values) {
			return ""
		}
		return values[i]
	})
}

// Callback data of the static menu controls.
const (
	MenuData    = "menu"
	ShopData    = "shop"
	BalanceData = "balance"
)

// MainMenu is the text and controls every flow returns the customer to.
func MainMenu(tr *i18n.Translator) (string, [][]adapter.InlineButton) {
	return ProtectMarkdown(tr.T("main_menu")), [][]adapter.InlineButton{
		{{Text: tr.T("menu_shop"), Data: ShopData}},
		{{Text: tr.T("menu_balance"), Data: BalanceData}},
	}
}

// BackToMenu is a single-row keyboard leading to the main menu.
func BackToMenu(tr *i18n.Translator) [][]adapter.InlineButton {
	return [][]adapter.InlineButton{{{Text: tr.T("menu_back"), Data: MenuData}}}
}
