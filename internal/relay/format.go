package relay

import (
	"strconv"
	"strings"

	"taigabot/pkg/tgui"
)

const (
	// TextLimit caps comment and description bodies, counted in runes of raw text.
	TextLimit = 150
	// Ellipsis marks a truncated body.
	Ellipsis = "..."
)

// SectionKind selects how a Section is rendered.
type SectionKind int

const (
	// SectionText is a caption line followed by a block of free text.
	SectionText SectionKind = iota
	// SectionLink is a caption followed by a link on the same line.
	SectionLink
	// SectionTransition shows a value changing: caption From joiner To.
	SectionTransition
)

// Section is one block of a payload body. All strings are unescaped.
type Section struct {
	Kind    SectionKind
	Caption string
	Text    string
	URL     string
	From    string
	Joiner  string
	To      string
}

// Payload is a renderer-agnostic notification. Strings are raw user text;
// renderers escape them.
type Payload struct {
	Category Category
	Tag      string
	Headline string

	ProjectCaption string
	Project        string

	EntityCaption string
	Title         string
	Link          string

	Sections []Section
}

// EntityNumber returns " #N" when the last path segment of permalink is a
// positive integer, "" otherwise.
func EntityNumber(permalink string) string {
	p := strings.TrimRight(permalink, "/")
	last := p[strings.LastIndex(p, "/")+1:]
	if last == "" || !ValidAddress(last) {
		return ""
	}
	if n, err := strconv.ParseUint(last, 10, 64); err != nil || n == 0 {
		return ""
	}
	return " #" + last
}

// Truncate shortens free text to TextLimit runes plus Ellipsis.
func Truncate(s string) string { return tgui.Truncate(s, TextLimit, Ellipsis) }

// Formatter builds payloads from a label table.
type Formatter struct {
	labels Labels
}

func NewFormatter(l Labels) Formatter { return Formatter{labels: l} }

func (f Formatter) Labels() Labels { return f.labels }

// Format builds the payload for cat. The same payload goes to every
// recipient of the category.
func (f Formatter) Format(cat Category, ev Event, cls Classification) Payload {
	l := f.labels
	forms := l.FormsFor(ev.Kind)

	project := orDefault(ev.Entity.Project, l.UnknownProject)
	title := orDefault(ev.Entity.Subject, l.Untitled)
	link := orDefault(ev.Entity.Permalink, "#")

	p := Payload{
		Category:       cat,
		Tag:            l.Tags[cat],
		Headline:       l.headline(cat, forms, EntityNumber(ev.Entity.Permalink)),
		ProjectCaption: l.Project,
		Project:        project,
		EntityCaption:  capitalize(forms.Noun) + ":",
		Title:          title,
		Link:           link,
	}

	switch cat {
	case CategoryMention, CategoryComment:
		p.Sections = append(p.Sections, Section{Kind: SectionText, Caption: l.Comment, Text: Truncate(cls.Comment)})

	case CategoryDescriptionChange:
		if ev.Entity.Description != "" {
			p.Sections = append(p.Sections, Section{Kind: SectionText, Caption: l.NewDescription, Text: Truncate(ev.Entity.Description)})
		}

	case CategoryStatusChange:
		var st StatusChange
		if cls.Status != nil {
			st = *cls.Status
		}
		p.Sections = append(p.Sections, Section{
			Kind:    SectionTransition,
			Caption: l.StatusChanged,
			From:    l.TranslateStatus(orDefault(st.From, l.UnknownStatus)),
			Joiner:  l.StatusTo,
			To:      l.TranslateStatus(orDefault(st.To, l.UnknownStatus)),
		})

	case CategoryAssignment:
		if ev.Kind == KindTask {
			if s := ev.Entity.Story; s != nil && s.Subject != "" && s.Permalink != "" {
				p.Sections = append(p.Sections, Section{Kind: SectionLink, Caption: l.Story, Text: s.Subject, URL: s.Permalink})
			}
			if ev.Entity.Description != "" {
				p.Sections = append(p.Sections, Section{Kind: SectionText, Caption: l.TaskDescription, Text: Truncate(ev.Entity.Description)})
			}
		} else if ev.Entity.Description != "" {
			p.Sections = append(p.Sections, Section{Kind: SectionText, Caption: l.Description, Text: Truncate(ev.Entity.Description)})
		}
	}
	return p
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
