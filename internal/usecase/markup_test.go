//go:build !integration

package usecase_test

import (
	"io/fs"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"telegram-digital-shop/internal/infra/i18n"
	"telegram-digital-shop/internal/usecase"
)

func TestRenderTemplate(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		collected map[string]string
		want      string
	}{
		{
			name:      "substitutes known fields",
			content:   "Email: {email}",
			collected: map[string]string{"email": "a@b.c"},
			want:      `Email: a@b\.c`,
		},
		{
			name:    "renders missing fields as not specified",
			content: "Phone: {phone}",
			want:    "Phone: " + usecase.NotSpecified,
		},
		{
			name:      "renders empty values as not specified",
			content:   "{password}",
			collected: map[string]string{"password": ""},
			want:      usecase.NotSpecified,
		},
		{
			name:      "matches field names case-insensitively",
			content:   "{EMAIL}",
			collected: map[string]string{"email": "x"},
			want:      "x",
		},
		{
			name:      "escapes markup inside values",
			content:   "*{password}*",
			collected: map[string]string{"password": "p*ss_[w](o)rd"},
			want:      `*p\*ss\_\[w\]\(o\)rd*`,
		},
		{
			name:      "does not expand placeholders inside values",
			content:   "{email} {phone}",
			collected: map[string]string{"email": "{phone}", "phone": "1"},
			want:      `\{phone\} 1`,
		},
		{
			name:      "keeps markup spanning a placeholder",
			content:   "*Почта: {email}*",
			collected: map[string]string{"email": "a@b.c"},
			want:      `*Почта: a@b\.c*`,
		},
		{
			name:      "escapes reserved characters around placeholders",
			content:   "Телефон (пример: +7 900): {phone}",
			collected: map[string]string{"phone": "79000000000"},
			want:      `Телефон \(пример: \+7 900\): 79000000000`,
		},
		{
			name:    "protects punctuation around placeholders",
			content: "Done. Price - 10!",
			want:    `Done\. Price \- 10\!`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := usecase.RenderTemplate(tt.content, tt.collected); got != tt.want {
				t.Errorf("RenderTemplate(%q) = %q, want %q", tt.content, got, tt.want)
			}
		})
	}
}

func TestEscapeMarkdown(t *testing.T) {
	if got := usecase.EscapeMarkdown(`a\b`); got != `a\\b` {
		t.Errorf("expected backslash to be escaped, got %q", got)
	}
	if got := usecase.ProtectMarkdown("*bold* _it_ `code`"); got != "*bold* _it_ `code`" {
		t.Errorf("expected formatting to survive, got %q", got)
	}
}

// unescapedReserved reports the first character Telegram would reject in a
// MarkdownV2 text without links: a bare reserved character outside code, an
// unpaired formatting marker or an unclosed code span.
func unescapedReserved(s string) (byte, bool) {
	counts := map[byte]int{}
	inCode := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\':
			i++
		case c == '`':
			inCode = !inCode
		case inCode:
		case c == '>' && (i == 0 || s[i-1] == '\n'):
		case strings.IndexByte("*_~", c) >= 0:
			counts[c]++
		case strings.IndexByte("[]()>#+-=|{}.!", c) >= 0:
			return c, true
		}
	}
	for c, n := range counts {
		if n%2 != 0 {
			return c, true
		}
	}
	if inCode {
		return '`', true
	}
	return 0, false
}

func TestProtectMarkdown(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"angle brackets in usage text", "/buy <id> - купить", `/buy <id\> \- купить`},
		{"parentheses and plus", "Введите телефон (пример: +7 900)", `Введите телефон \(пример: \+7 900\)`},
		{"quote marker only at line start", "> цитата\nа > б", "> цитата\nа \\> б"},
		{"unpaired star", "5 * 3 = 15", `5 \* 3 \= 15`},
		{"unpaired underscore next to bold", "*Итого*: 5_000", `*Итого*: 5\_000`},
		{"paired strikethrough", "~старая~ цена", "~старая~ цена"},
		{"existing escapes", `1\.5 \(кг\)`, `1\.5 \(кг\)`},
		{"inline code", "код `a-b.c`!", "код `a-b.c`\\!"},
		{"stray bracket and backtick", "[нет ссылки ` здесь", "\\[нет ссылки \\` здесь"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := usecase.ProtectMarkdown(tt.in)
			if got != tt.want {
				t.Errorf("ProtectMarkdown(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if c, bad := unescapedReserved(got); bad {
				t.Errorf("output %q still has a bare %q", got, c)
			}
		})
	}

	t.Run("should keep links and escape their text", func(t *testing.T) {
		got := usecase.ProtectMarkdown("Сайт: [shop.ru](https://shop.ru/a-b).")
		want := `Сайт: [shop\.ru](https://shop.ru/a-b)\.`
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})
}

func TestLocaleIsValidMarkdown(t *testing.T) {
	data, err := fs.ReadFile(i18n.LocalesFS, "locales/ru.yaml")
	if err != nil {
		t.Fatalf("read locale: %v", err)
	}
	var messages map[string]string
	if err := yaml.Unmarshal(data, &messages); err != nil {
		t.Fatalf("parse locale: %v", err)
	}
	for _, key := range i18n.CoreKeys {
		if _, ok := messages[key]; !ok {
			t.Errorf("core key %q missing", key)
		}
	}
	for key, text := range messages {
		if c, bad := unescapedReserved(usecase.ProtectMarkdown(text)); bad {
			t.Errorf("%s: bare %q after protection in %q", key, c, text)
		}
	}
}
