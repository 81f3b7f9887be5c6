package relay

import "regexp"

var mentionPattern = regexp.MustCompile(`@([a-zA-Z0-9_.-]+)`)

// ExtractMentions returns @handles in order of appearance, duplicates kept.
func ExtractMentions(comment string) []string {
	matches := mentionPattern.FindAllStringSubmatch(comment, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

// StatusChange carries raw status names; "" means the diff had no value.
type StatusChange struct {
	From string
	To   string
}

// Classification is what an event triggers and the values needed to render it.
type Classification struct {
	Categories []Category

	Comment  string
	Mentions []string

	// Assignees are the entity's current assignees; they receive comment,
	// description and status notifications.
	Assignees []string
	// Assigned are the ids that receive an assignment notification.
	Assigned []string

	Status *StatusChange
}

func (c Classification) Has(cat Category) bool {
	for _, x := range c.Categories {
		if x == cat {
			return true
		}
	}
	return false
}

// Classify decides which categories ev triggers.
//
// Mention fires for any entity type when there is a comment. Comment,
// description and status notifications go to the current assignees and only
// exist for tasks, user stories and epics. Assignment fires on create or
// change when the kind-specific assignee field appears in the diff: a user
// story notifies its whole current assignee list, a task or epic its current
// assigned_to.
func Classify(ev Event) Classification {
	var c Classification

	if ev.Comment != "" {
		c.Comment = ev.Comment
		c.Mentions = ExtractMentions(ev.Comment)
		c.Categories = append(c.Categories, CategoryMention)
	}
	if ev.Kind == KindOther {
		return c
	}

	c.Assignees = currentAssignees(ev)

	if ev.Comment != "" {
		c.Categories = append(c.Categories, CategoryComment)
	}
	if ev.Diff.Has("description_diff") {
		c.Categories = append(c.Categories, CategoryDescriptionChange)
	}
	if st, ok := ev.Diff["status"]; ok {
		c.Status = &StatusChange{From: deref(st.From), To: deref(st.To)}
		c.Categories = append(c.Categories, CategoryStatusChange)
	}

	if ev.Action == ActionCreate || ev.Action == ActionChange {
		switch ev.Kind {
		case KindUserStory:
			if ev.Diff.Has("assigned_users") {
				c.Assigned = append([]string(nil), ev.Entity.AssignedUsers...)
				c.Categories = append(c.Categories, CategoryAssignment)
			}
		case KindTask, KindEpic:
			if ev.Diff.Has("assigned_to") && ev.Entity.AssignedTo != "" {
				c.Assigned = []string{ev.Entity.AssignedTo}
				c.Categories = append(c.Categories, CategoryAssignment)
			}
		}
	}
	return c
}

func currentAssignees(ev Event) []string {
	switch ev.Kind {
	case KindUserStory:
		return append([]string(nil), ev.Entity.AssignedUsers...)
	case KindTask, KindEpic:
		if ev.Entity.AssignedTo != "" {
			return []string{ev.Entity.AssignedTo}
		}
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
