// Package scenarios loads merchant-authored sell scenarios from YAML files.
//
// A file describes one scenario:
//
//	name: account-topup
//	acts:
//	  - id: 0
//	    kind: info
//	    content: "Для покупки нужна почта от аккаунта"
//	    buttons:
//	      - {label: "Далее", action: move, target: 1}
//	      - {label: "Отмена", action: cancel}
//	  - id: 1
//	    kind: data
//	    data_type: email
//	    validate: true
//	    next: 2
//	    content: "Введите почту"
//
// Act content is sent as Telegram MarkdownV2. Authors may use bold, italic,
// strikethrough, inline code, pre blocks, inline links and a leading quote
// marker; {field} placeholders take collected values. Any other reserved
// character, or a formatting marker left unpaired, is escaped at render
// time, so content such as "(пример: +7 900)" needs no manual escaping.
package scenarios

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"telegram-digital-shop/internal/domain/model"
)

type fileButton struct {
	Label  string `yaml:"label"`
	Action string `yaml:"action"`
	Target *int   `yaml:"target"`
}

type fileAct struct {
	ID       int          `yaml:"id"`
	Kind     string       `yaml:"kind"`
	Content  string       `yaml:"content"`
	Next     *int         `yaml:"next"`
	DataType string       `yaml:"data_type"`
	Validate bool         `yaml:"validate"`
	Buttons  []fileButton `yaml:"buttons"`
}

type fileScenario struct {
	Name string    `yaml:"name"`
	Acts []fileAct `yaml:"acts"`
}

// Parse decodes and validates one scenario definition.
func Parse(data []byte) (*model.Scenario, error) {
	var def fileScenario
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	name := strings.TrimSpace(def.Name)
	acts := make([]model.Act, 0, len(def.Acts))
	for _, fa := range def.Acts {
		act, err := toAct(fa)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: act %d: %w", name, fa.ID, err)
		}
		acts = append(acts, act)
	}
	sc, err := model.NewScenario(name, acts)
	if err != nil {
		return nil, err
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return sc, nil
}

func toAct(fa fileAct) (model.Act, error) {
	kind, err := model.ParseActKind(fa.Kind)
	if err != nil {
		return model.Act{}, err
	}
	act := model.Act{
		ID:       fa.ID,
		Kind:     kind,
		Content:  fa.Content,
		Next:     fa.Next,
		Validate: fa.Validate,
	}
	if kind == model.ActData {
		dt, err := model.ParseDataType(fa.DataType)
		if err != nil {
			return model.Act{}, err
		}
		act.DataType = dt
	}
	for _, b := range fa.Buttons {
		tk, err := model.ParseTriggerKind(b.Action)
		if err != nil {
			return model.Act{}, err
		}
		tr := model.Transition{Label: b.Label, Trigger: model.Trigger{Kind: tk}}
		if tk == model.TriggerMove {
			if b.Target == nil {
				return model.Act{}, errors.New("move button without target")
			}
			tr.Trigger.Target = int64(*b.Target)
		}
		act.Transitions = append(act.Transitions, tr)
	}
	return act, nil
}

// LoadFS parses every *.yaml / *.yml file at the root of fsys. Malformed
// scenarios are logged and skipped so one bad file does not block the shop;
// a duplicate name is an error.
func LoadFS(fsys fs.FS, logger *zerolog.Logger) (*model.Scenarios, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read scenarios dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	seen := map[string]string{}
	var list []*model.Scenario
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(path.Ext(e.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		data, err := fs.ReadFile(fsys, e.Name())
		if err != nil {
			return nil, fmt.Errorf("read scenario %s: %w", e.Name(), err)
		}
		sc, err := Parse(data)
		if err != nil {
			logger.Error().Err(err).Str("file", e.Name()).Msg("scenario skipped")
			continue
		}
		if prev, dup := seen[sc.Name()]; dup {
			return nil, fmt.Errorf("scenario %q defined in both %s and %s", sc.Name(), prev, e.Name())
		}
		seen[sc.Name()] = e.Name()
		list = append(list, sc)
	}
	set := model.NewScenarios(list...)
	logger.Info().Strs("scenarios", set.Names()).Msg("scenarios loaded")
	return set, nil
}
