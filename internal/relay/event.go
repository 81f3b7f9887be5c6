package relay

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Action is the webhook "action" field.
type Action string

const (
	ActionCreate Action = "create"
	ActionChange Action = "change"
	ActionDelete Action = "delete"
	// ActionTest is sent by Taiga's "test webhook" button.
	ActionTest Action = "test"
)

// Event is one decoded Taiga webhook delivery. It is never mutated after decoding.
type Event struct {
	Action  Action
	Kind    EntityKind
	RawType string
	Entity  Entity
	Comment string
	Diff    Diff

	// Warnings names fields that had an unexpected shape and were defaulted.
	Warnings []string
}

// Entity holds the fields of the changed task, user story or epic.
type Entity struct {
	ID          string
	Ref         string
	Project     string
	Subject     string
	Description string
	Permalink   string
	// AssignedTo is the current assignee id of a task or epic ("" when unassigned).
	AssignedTo string
	// AssignedUsers is the current assignee id list of a user story.
	AssignedUsers []string
	Story         *StoryRef
}

// StoryRef is the parent user story of a task.
type StoryRef struct {
	Subject   string
	Permalink string
}

// FieldChange is one diff entry. Nil From/To mean the value was absent or null.
type FieldChange struct {
	From *string
	To   *string
}

// Diff maps a changed field name to its before/after values.
type Diff map[string]FieldChange

func (d Diff) Has(field string) bool {
	_, ok := d[field]
	return ok
}

// IsTest reports a Taiga connectivity check.
func (e Event) IsTest() bool { return e.Action == ActionTest || strings.EqualFold(e.RawType, "test") }

// DecodeEvent parses a webhook body. Only a body that is not a JSON object
// fails; fields with unexpected shapes are defaulted and listed in Warnings.
func DecodeEvent(body []byte) (Event, error) {
	top, err := decodeObject(body)
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	d := decoder{}
	ev := Event{
		Action:  Action(strings.ToLower(d.str(top, "action"))),
		RawType: d.str(top, "type"),
	}
	ev.Kind = ParseEntityKind(ev.RawType)

	data := d.obj(top, "data")
	ev.Entity = Entity{
		ID:            d.scalar(data, "id"),
		Ref:           d.scalar(data, "ref"),
		Subject:       d.str(data, "subject"),
		Description:   d.str(data, "description"),
		Permalink:     d.str(data, "permalink"),
		AssignedUsers: d.ids(data, "assigned_users"),
	}
	if project := d.obj(data, "project"); project != nil {
		ev.Entity.Project = d.str(project, "name")
	}
	if assigned := d.obj(data, "assigned_to"); assigned != nil {
		ev.Entity.AssignedTo = d.scalar(assigned, "id")
	}
	if story := d.obj(data, "user_story"); story != nil {
		ev.Entity.Story = &StoryRef{
			Subject:   d.str(story, "subject"),
			Permalink: d.str(story, "permalink"),
		}
	}

	change := d.obj(top, "change")
	ev.Comment = d.str(change, "comment")
	if diff := d.obj(change, "diff"); len(diff) > 0 {
		ev.Diff = make(Diff, len(diff))
		for field, raw := range diff {
			ev.Diff[field] = d.fieldChange(field, raw)
		}
	}

	ev.Warnings = d.warnings
	return ev, nil
}

func decodeObject(raw json.RawMessage) (map[string]json.RawMessage, error) {
	var m map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("expected an object, got null")
	}
	return m, nil
}

// decoder reads loosely typed JSON, recording what it had to default.
type decoder struct {
	warnings []string
}

func (d *decoder) warn(key, want string) {
	d.warnings = append(d.warnings, key+": expected "+want)
}

func isNull(raw json.RawMessage) bool {
	s := bytes.TrimSpace(raw)
	return len(s) == 0 || bytes.Equal(s, []byte("null"))
}

func (d *decoder) obj(m map[string]json.RawMessage, key string) map[string]json.RawMessage {
	raw, ok := m[key]
	if !ok || isNull(raw) {
		return nil
	}
	out, err := decodeObject(raw)
	if err != nil {
		d.warn(key, "object")
		return nil
	}
	return out
}

func (d *decoder) str(m map[string]json.RawMessage, key string) string {
	raw, ok := m[key]
	if !ok || isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		d.warn(key, "string")
		return ""
	}
	return s
}

// scalar reads an identifier that Taiga may send as a number or a string.
func (d *decoder) scalar(m map[string]json.RawMessage, key string) string {
	raw, ok := m[key]
	if !ok || isNull(raw) {
		return ""
	}
	s, ok := scalarString(raw)
	if !ok {
		d.warn(key, "number or string")
	}
	return s
}

func (d *decoder) ids(m map[string]json.RawMessage, key string) []string {
	raw, ok := m[key]
	if !ok || isNull(raw) {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		d.warn(key, "array")
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := scalarString(it); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (d *decoder) fieldChange(field string, raw json.RawMessage) FieldChange {
	m, err := decodeObject(raw)
	if err != nil {
		// description_diff and friends carry arbitrary values; presence is what matters.
		return FieldChange{}
	}
	var fc FieldChange
	if v, ok := m["from"]; ok && !isNull(v) {
		if s, ok := displayString(v); ok {
			fc.From = &s
		} else {
			d.warn(field+".from", "scalar")
		}
	}
	if v, ok := m["to"]; ok && !isNull(v) {
		if s, ok := displayString(v); ok {
			fc.To = &s
		} else {
			d.warn(field+".to", "scalar")
		}
	}
	return fc
}

func scalarString(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), true
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&n); err == nil {
		return n.String(), true
	}
	return "", false
}

// displayString renders diff values: strings, numbers and booleans as text.
func displayString(raw json.RawMessage) (string, bool) {
	if s, ok := scalarString(raw); ok {
		return s, true
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return fmt.Sprint(b), true
	}
	return "", false
}
