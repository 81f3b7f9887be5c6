package relay

import (
	"maps"
	"strings"
	"unicode"
	"unicode/utf8"
)

// EntityKind is the closed set of Taiga entity types the relay understands.
type EntityKind int

const (
	KindOther EntityKind = iota
	KindTask
	KindUserStory
	KindEpic
)

// ParseEntityKind maps the webhook "type" field. Unknown values are KindOther.
func ParseEntityKind(s string) EntityKind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "task":
		return KindTask
	case "userstory":
		return KindUserStory
	case "epic":
		return KindEpic
	default:
		return KindOther
	}
}

func (k EntityKind) String() string {
	switch k {
	case KindTask:
		return "task"
	case KindUserStory:
		return "userstory"
	case KindEpic:
		return "epic"
	default:
		return "other"
	}
}

// Category is a notification kind. Each one is gated by its own user preference.
type Category int

const (
	CategoryMention Category = iota + 1
	CategoryComment
	CategoryDescriptionChange
	CategoryStatusChange
	CategoryAssignment
)

// Categories lists every category in processing order.
var Categories = []Category{
	CategoryMention,
	CategoryComment,
	CategoryDescriptionChange,
	CategoryStatusChange,
	CategoryAssignment,
}

func (c Category) String() string {
	switch c {
	case CategoryMention:
		return "mention"
	case CategoryComment:
		return "comment"
	case CategoryDescriptionChange:
		return "description_change"
	case CategoryStatusChange:
		return "status_change"
	case CategoryAssignment:
		return "assignment"
	default:
		return "unknown"
	}
}

// EntityForms are the grammatical forms used when a sentence names the entity.
type EntityForms struct {
	Noun          string // nominative: "задача"
	Adjective     string // "новая" / "новый", agrees with Noun
	Assigned      string // "назначена" / "назначен", agrees with Noun
	Dative        string // "к задаче"
	Genitive      string // "статус задачи"
	Prepositional string // "в задаче"
}

// Labels is a fixed label table for one locale.
type Labels struct {
	Locale string

	Forms map[EntityKind]EntityForms

	// Tags prefix each headline, one per category.
	Tags map[Category]string
	// Headlines are templates with {noun} {adjective} {assigned} {dative}
	// {genitive} {prepositional} and {number} placeholders.
	Headlines map[Category]string

	Project         string
	Comment         string
	NewDescription  string
	Description     string
	TaskDescription string
	Story           string
	StatusChanged   string
	StatusTo        string

	UnknownProject string
	Untitled       string
	UnknownStatus  string

	Statuses map[string]string
}

const DefaultLocale = "ru"

var labelTables = map[string]Labels{
	"ru": {
		Locale: "ru",
		Forms: map[EntityKind]EntityForms{
			KindTask:      {Noun: "задача", Adjective: "новая", Assigned: "назначена", Dative: "задаче", Genitive: "задачи", Prepositional: "задаче"},
			KindUserStory: {Noun: "история", Adjective: "новая", Assigned: "назначена", Dative: "истории", Genitive: "истории", Prepositional: "истории"},
			KindEpic:      {Noun: "эпик", Adjective: "новый", Assigned: "назначен", Dative: "эпику", Genitive: "эпика", Prepositional: "эпике"},
			KindOther:     {Noun: "объект", Adjective: "новый", Assigned: "назначен", Dative: "объекту", Genitive: "объекта", Prepositional: "объекте"},
		},
		Tags: map[Category]string{
			CategoryMention:           "👤",
			CategoryComment:           "💬",
			CategoryDescriptionChange: "📝",
			CategoryStatusChange:      "🔔",
			CategoryAssignment:        "🚀",
		},
		Headlines: map[Category]string{
			CategoryMention:           "Вас упомянули в комментарии к {dative}{number}!",
			CategoryComment:           "Новый комментарий к {dative}{number}",
			CategoryDescriptionChange: "Изменено описание в {prepositional}{number}",
			CategoryStatusChange:      "Статус {genitive}{number} изменён",
			CategoryAssignment:        "Вам {assigned} {adjective} {noun}{number}",
		},
		Project:         "Проект:",
		Comment:         "Комментарий:",
		NewDescription:  "Новое описание:",
		Description:     "Описание:",
		TaskDescription: "Описание задачи:",
		Story:           "История:",
		StatusChanged:   "Статус изменился с",
		StatusTo:        "на",
		UnknownProject:  "Неизвестный проект",
		Untitled:        "Без названия",
		UnknownStatus:   "неизвестно",
		Statuses: map[string]string{
			"New":            "Новая",
			"Ready":          "Готово",
			"In progress":    "В процессе",
			"Ready for test": "Можно проверять",
			"Closed":         "Завершена",
		},
	},
	"en": {
		Locale: "en",
		Forms: map[EntityKind]EntityForms{
			KindTask:      {Noun: "task", Adjective: "new", Assigned: "assigned", Dative: "task", Genitive: "task", Prepositional: "task"},
			KindUserStory: {Noun: "user story", Adjective: "new", Assigned: "assigned", Dative: "user story", Genitive: "user story", Prepositional: "user story"},
			KindEpic:      {Noun: "epic", Adjective: "new", Assigned: "assigned", Dative: "epic", Genitive: "epic", Prepositional: "epic"},
			KindOther:     {Noun: "item", Adjective: "new", Assigned: "assigned", Dative: "item", Genitive: "item", Prepositional: "item"},
		},
		Tags: map[Category]string{
			CategoryMention:           "👤",
			CategoryComment:           "💬",
			CategoryDescriptionChange: "📝",
			CategoryStatusChange:      "🔔",
			CategoryAssignment:        "🚀",
		},
		Headlines: map[Category]string{
			CategoryMention:           "You were mentioned in a comment on the {dative}{number}!",
			CategoryComment:           "New comment on the {dative}{number}",
			CategoryDescriptionChange: "Description changed in the {prepositional}{number}",
			CategoryStatusChange:      "Status of the {genitive}{number} changed",
			CategoryAssignment:        "You have been {assigned} a {adjective} {noun}{number}",
		},
		Project:         "Project:",
		Comment:         "Comment:",
		NewDescription:  "New description:",
		Description:     "Description:",
		TaskDescription: "Task description:",
		Story:           "Story:",
		StatusChanged:   "Status changed from",
		StatusTo:        "to",
		UnknownProject:  "Unknown project",
		Untitled:        "Untitled",
		UnknownStatus:   "unknown",
		Statuses:        map[string]string{},
	},
}

// LookupLabels returns the table for locale ("" means DefaultLocale).
func LookupLabels(locale string) (Labels, bool) {
	locale = strings.ToLower(strings.TrimSpace(locale))
	if locale == "" {
		locale = DefaultLocale
	}
	l, ok := labelTables[locale]
	if !ok {
		return Labels{}, false
	}
	l.Statuses = maps.Clone(l.Statuses)
	return l, true
}

// Locales lists the built-in label tables.
func Locales() []string { return []string{"en", "ru"} }

// WithStatuses returns a copy of l with extra status translations layered on top.
func (l Labels) WithStatuses(extra map[string]string) Labels {
	if len(extra) == 0 {
		return l
	}
	merged := maps.Clone(l.Statuses)
	if merged == nil {
		merged = make(map[string]string, len(extra))
	}
	maps.Copy(merged, extra)
	l.Statuses = merged
	return l
}

// TranslateStatus maps a Taiga status name to its label. Unmapped names are
// returned unchanged.
func (l Labels) TranslateStatus(s string) string {
	if t, ok := l.Statuses[s]; ok {
		return t
	}
	return s
}

// FormsFor returns the forms of k, falling back to the KindOther forms.
func (l Labels) FormsFor(k EntityKind) EntityForms {
	if f, ok := l.Forms[k]; ok {
		return f
	}
	return l.Forms[KindOther]
}

// headline expands the category template.
func (l Labels) headline(c Category, f EntityForms, number string) string {
	r := strings.NewReplacer(
		"{noun}", f.Noun,
		"{adjective}", f.Adjective,
		"{assigned}", f.Assigned,
		"{dative}", f.Dative,
		"{genitive}", f.Genitive,
		"{prepositional}", f.Prepositional,
		"{number}", number,
	)
	return r.Replace(l.Headlines[c])
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
