package relay

import (
	"strings"

	"taigabot/pkg/tgui"
)

// RenderHTML renders p for Telegram's HTML parse mode. Every user-supplied
// string is escaped; link targets are escaped for a quoted attribute.
func RenderHTML(p Payload) string {
	var b strings.Builder

	head := tgui.B(p.Headline)
	if p.Tag != "" {
		head = tgui.Raw(tgui.Esc(p.Tag).String() + " " + head.String())
	}
	b.WriteString(head.String())
	b.WriteString("\n\n")
	b.WriteString(string(tgui.B(p.ProjectCaption) + " " + tgui.Esc(p.Project)))
	b.WriteString("\n")
	b.WriteString(string(tgui.B(p.EntityCaption) + " " + tgui.Link(p.Title, p.Link)))

	for _, s := range p.Sections {
		b.WriteString("\n\n")
		switch s.Kind {
		case SectionText:
			b.WriteString(string(tgui.B(s.Caption) + "\n" + tgui.Esc(s.Text)))
		case SectionLink:
			b.WriteString(string(tgui.B(s.Caption) + " " + tgui.Link(s.Text, s.URL)))
		case SectionTransition:
			b.WriteString(string(tgui.JoinH(" ", tgui.B(s.Caption), tgui.I(s.From), tgui.B(s.Joiner), tgui.I(s.To))))
		}
	}
	return b.String()
}
