package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed locales
var LocalesFS embed.FS

// CoreKeys must exist in every shipped locale; the bot cannot render its
// menus or errors without them.
var CoreKeys = []string{
	"main_menu", "menu_shop", "menu_balance", "menu_back",
	"help", "busy", "rate_limited", "no_session", "error_generic",
	"insufficient_balance", "order_placed", "refill_paid",
	"buy_usage", "refill_usage",
}

type Translator struct {
	lang     string
	messages map[string]string
}

// NewTranslator reads locales/<lang>.yaml from fsys. Nested sections are
// flattened into dotted keys.
func NewTranslator(fsys fs.FS, lang string) (*Translator, error) {
	file := path.Join("locales", lang+".yaml")
	data, err := fs.ReadFile(fsys, file)
	if err != nil {
		return nil, fmt.Errorf("read locale %s: %w", file, err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse locale %s: %w", file, err)
	}
	messages := make(map[string]string, len(raw))
	if err := flatten("", raw, messages); err != nil {
		return nil, fmt.Errorf("locale %s: %w", file, err)
	}
	return &Translator{lang: lang, messages: messages}, nil
}

func flatten(prefix string, in map[string]any, out map[string]string) error {
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case string:
			out[key] = val
		case map[string]any:
			if err := flatten(key, val, out); err != nil {
				return err
			}
		default:
			return fmt.Errorf("key %q: expected text or section, got %T", key, v)
		}
	}
	return nil
}

func (t *Translator) Lang() string { return t.lang }

// T formats the message for key, or returns the key itself when unknown.
func (t *Translator) T(key string, args ...any) string {
	format, ok := t.messages[key]
	if !ok {
		return key
	}
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

// Missing lists the given keys the locale does not define, sorted.
func (t *Translator) Missing(keys ...string) []string {
	var out []string
	for _, k := range keys {
		if _, ok := t.messages[k]; !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
