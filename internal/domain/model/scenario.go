package model

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ActKind is the closed set of act kinds.
type ActKind int

const (
	ActInfo ActKind = iota + 1
	ActData
)

func (k ActKind) String() string {
	switch k {
	case ActInfo:
		return "info"
	case ActData:
		return "data"
	default:
		return "unknown"
	}
}

func ParseActKind(s string) (ActKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "info":
		return ActInfo, nil
	case "data":
		return ActData, nil
	default:
		return 0, fmt.Errorf("unknown act kind %q", s)
	}
}

// DataType is the closed set of fields a data act can collect.
type DataType int

const (
	DataEmail DataType = iota + 1
	DataPhone
	DataPassword
)

// Field is the key the collected value is stored under and substituted by.
func (d DataType) Field() string {
	switch d {
	case DataEmail:
		return "email"
	case DataPhone:
		return "phone"
	case DataPassword:
		return "password"
	default:
		return ""
	}
}

func (d DataType) String() string { return d.Field() }

func ParseDataType(s string) (DataType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "email":
		return DataEmail, nil
	case "phone", "number":
		return DataPhone, nil
	case "password":
		return DataPassword, nil
	default:
		return 0, fmt.Errorf("unknown data type %q", s)
	}
}

// TriggerKind is the closed set of control actions.
type TriggerKind int

const (
	TriggerMove TriggerKind = iota + 1
	TriggerSell
	TriggerCancel
)

func ParseTriggerKind(s string) (TriggerKind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "MOVE":
		return TriggerMove, nil
	case "SELL":
		return TriggerSell, nil
	case "CANCEL":
		return TriggerCancel, nil
	default:
		return 0, fmt.Errorf("unknown trigger %q", s)
	}
}

// Trigger is what a control does when pressed. Target is the act id for
// MOVE and the order id for SELL/CANCEL once bound to a session.
type Trigger struct {
	Kind   TriggerKind
	Target int64
}

// Data is the callback payload: MOVE#<act>, SELL#<order>, CANCEL#<order>.
func (t Trigger) Data() string {
	switch t.Kind {
	case TriggerMove:
		return "MOVE#" + strconv.FormatInt(t.Target, 10)
	case TriggerSell:
		return "SELL#" + strconv.FormatInt(t.Target, 10)
	case TriggerCancel:
		return "CANCEL#" + strconv.FormatInt(t.Target, 10)
	default:
		return ""
	}
}

// ParseTrigger decodes callback data produced by Trigger.Data.
func ParseTrigger(data string) (Trigger, bool) {
	name, arg, ok := strings.Cut(strings.TrimSpace(data), "#")
	if !ok {
		return Trigger{}, false
	}
	kind, err := ParseTriggerKind(name)
	if err != nil {
		return Trigger{}, false
	}
	n, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || n < 0 {
		return Trigger{}, false
	}
	return Trigger{Kind: kind, Target: n}, true
}

// Transition is an outbound control of an act.
type Transition struct {
	Label   string
	Trigger Trigger
}

// Act is one node of a scenario graph.
type Act struct {
	ID          int
	Kind        ActKind
	Content     string
	Next        *int
	DataType    DataType
	Validate    bool
	Transitions []Transition
}

// Allows reports whether a MOVE to target is one of the act's controls.
func (a *Act) Allows(target int) bool {
	for _, t := range a.Transitions {
		if t.Trigger.Kind == TriggerMove && t.Trigger.Target == int64(target) {
			return true
		}
	}
	return false
}

// Scenario is an immutable, named graph of acts. It is built once by the
// loader and shared read-only by every session.
type Scenario struct {
	name string
	acts map[int]*Act
}

func NewScenario(name string, acts []Act) (*Scenario, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("scenario name is empty")
	}
	m := make(map[int]*Act, len(acts))
	for i := range acts {
		a := acts[i]
		if _, dup := m[a.ID]; dup {
			return nil, fmt.Errorf("scenario %s: duplicate act %d", name, a.ID)
		}
		a.Transitions = append([]Transition(nil), a.Transitions...)
		m[a.ID] = &a
	}
	return &Scenario{name: name, acts: m}, nil
}

func (s *Scenario) Name() string { return s.name }

// Act returns a copy of the act so callers cannot mutate the shared graph.
func (s *Scenario) Act(id int) (Act, bool) {
	a, ok := s.acts[id]
	if !ok {
		return Act{}, false
	}
	cp := *a
	cp.Transitions = append([]Transition(nil), a.Transitions...)
	return cp, true
}

func (s *Scenario) ActIDs() []int {
	ids := make([]int, 0, len(s.acts))
	for id := range s.acts {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Validate checks the graph is well formed: act 0 exists, every MOVE and
// next pointer resolves, and every data act names its data type and successor.
func (s *Scenario) Validate() error {
	var errs []error
	if _, ok := s.acts[0]; !ok {
		errs = append(errs, fmt.Errorf("scenario %s: act 0 is missing", s.name))
	}
	for _, id := range s.ActIDs() {
		a := s.acts[id]
		switch a.Kind {
		case ActInfo:
		case ActData:
			if a.DataType.Field() == "" {
				errs = append(errs, fmt.Errorf("scenario %s: act %d: data type missing", s.name, id))
			}
			if a.Next == nil {
				errs = append(errs, fmt.Errorf("scenario %s: act %d: next missing", s.name, id))
			}
		default:
			errs = append(errs, fmt.Errorf("scenario %s: act %d: unknown kind", s.name, id))
		}
		if a.Next != nil {
			if _, ok := s.acts[*a.Next]; !ok {
				errs = append(errs, fmt.Errorf("scenario %s: act %d: next %d not found", s.name, id, *a.Next))
			}
		}
		for _, t := range a.Transitions {
			if t.Trigger.Kind != TriggerMove {
				continue
			}
			if _, ok := s.acts[int(t.Trigger.Target)]; !ok {
				errs = append(errs, fmt.Errorf("scenario %s: act %d: move target %d not found", s.name, id, t.Trigger.Target))
			}
		}
	}
	return errors.Join(errs...)
}

// Scenarios is the immutable set of loaded scenarios, keyed by name.
type Scenarios struct {
	byName map[string]*Scenario
}

func NewScenarios(list ...*Scenario) *Scenarios {
	m := make(map[string]*Scenario, len(list))
	for _, s := range list {
		if s != nil {
			m[s.name] = s
		}
	}
	return &Scenarios{byName: m}
}

func (s *Scenarios) Find(name string) (*Scenario, bool) {
	if s == nil {
		return nil, false
	}
	sc, ok := s.byName[name]
	return sc, ok
}

func (s *Scenarios) Names() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.byName))
	for n := range s.byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
