package relay

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityNumber(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"https://taiga.example/project/123":     " #123",
		"https://taiga.example/project/my-task": "",
		"https://taiga.example/p/task/42/":      " #42",
		"https://taiga.example/p/task/0":        "",
		"":                                      "",
		"42":                                    " #42",
	}
	for in, want := range tests {
		assert.Equal(t, want, EntityNumber(in), in)
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()
	long := strings.Repeat("a", 200)
	assert.Equal(t, strings.Repeat("a", 150)+"...", Truncate(long))

	exact := strings.Repeat("я", 150)
	assert.Equal(t, exact, Truncate(exact))
}

func TestRenderTaskAssignment(t *testing.T) {
	t.Parallel()
	ev := mustDecode(t, `{
		"action": "change",
		"type": "task",
		"data": {
			"subject": "Fix bug",
			"description": "Crash <on> save",
			"permalink": "https://taiga.example/project/p/task/42",
			"project": {"name": "Apollo"},
			"assigned_to": {"id": 7},
			"user_story": {"subject": "Login & SSO", "permalink": "https://taiga.example/project/p/us/5"}
		},
		"change": {"diff": {"assigned_to": {"from": null, "to": "alice"}}}
	}`)
	cls := Classify(ev)
	got := RenderHTML(NewFormatter(ruLabels()).Format(CategoryAssignment, ev, cls))

	want := "🚀 <b>Вам назначена новая задача #42</b>\n\n" +
		"<b>Проект:</b> Apollo\n" +
		`<b>Задача:</b> <a href="https://taiga.example/project/p/task/42">Fix bug</a>` + "\n\n" +
		`<b>История:</b> <a href="https://taiga.example/project/p/us/5">Login &amp; SSO</a>` + "\n\n" +
		"<b>Описание задачи:</b>\nCrash &lt;on&gt; save"
	assert.Equal(t, want, got)
}

func TestRenderEpicAssignmentUsesPlainDescription(t *testing.T) {
	t.Parallel()
	ev := mustDecode(t, `{"action":"create","type":"epic","data":{"subject":"Q3","description":"goals","permalink":"https://t/p/epic/3","assigned_to":{"id":1}},"change":{"diff":{"assigned_to":{"to":"x"}}}}`)
	got := RenderHTML(NewFormatter(ruLabels()).Format(CategoryAssignment, ev, Classify(ev)))
	assert.True(t, strings.HasPrefix(got, "🚀 <b>Вам назначен новый эпик #3</b>"), got)
	assert.Contains(t, got, "<b>Эпик:</b>")
	assert.Contains(t, got, "<b>Описание:</b>\ngoals")
}

func TestRenderStatusChange(t *testing.T) {
	t.Parallel()
	ev := mustDecode(t, `{"action":"change","type":"task","data":{"subject":"Fix bug","permalink":"https://t/p/task/42","project":{"name":"Apollo"}},"change":{"diff":{"status":{"from":"New","to":"Closed"}}}}`)
	got := RenderHTML(NewFormatter(ruLabels()).Format(CategoryStatusChange, ev, Classify(ev)))
	assert.True(t, strings.HasPrefix(got, "🔔 <b>Статус задачи #42 изменён</b>"), got)
	assert.True(t, strings.HasSuffix(got, "<b>Статус изменился с</b> <i>Новая</i> <b>на</b> <i>Завершена</i>"), got)
}

func TestRenderStatusMissingValues(t *testing.T) {
	t.Parallel()
	ev := mustDecode(t, `{"action":"change","type":"task","change":{"diff":{"status":{"to":"Blocked"}}}}`)
	got := RenderHTML(NewFormatter(ruLabels()).Format(CategoryStatusChange, ev, Classify(ev)))
	assert.Contains(t, got, "<i>неизвестно</i> <b>на</b> <i>Blocked</i>")
}

func TestFormatFallbacks(t *testing.T) {
	t.Parallel()
	ev := mustDecode(t, `{"action":"change","type":"userstory","change":{"comment":"hello"}}`)
	p := NewFormatter(ruLabels()).Format(CategoryComment, ev, Classify(ev))

	assert.Equal(t, "Неизвестный проект", p.Project)
	assert.Equal(t, "Без названия", p.Title)
	assert.Equal(t, "#", p.Link)
	assert.Equal(t, "Новый комментарий к истории", p.Headline)
	require.Len(t, p.Sections, 1)
	assert.Equal(t, "hello", p.Sections[0].Text)
}

func TestRenderEscapesUserText(t *testing.T) {
	t.Parallel()
	ev := mustDecode(t, `{"action":"change","type":"task","data":{"subject":"<script>","project":{"name":"A&B"},"permalink":"https://t/x?a=1&b=\"2\""},"change":{"comment":"<b>bold</b> @x"}}`)
	got := RenderHTML(NewFormatter(ruLabels()).Format(CategoryMention, ev, Classify(ev)))

	assert.NotContains(t, got, "<script>")
	assert.Contains(t, got, "&lt;script&gt;")
	assert.Contains(t, got, "A&amp;B")
	assert.Contains(t, got, `href="https://t/x?a=1&amp;b=&#34;2&#34;"`)
	assert.Contains(t, got, "&lt;b&gt;bold&lt;/b&gt; @x")
}

func TestRenderDescriptionChangeTruncates(t *testing.T) {
	t.Parallel()
	desc := strings.Repeat("д", 200)
	ev := mustDecode(t, `{"action":"change","type":"task","data":{"description":"`+desc+`","permalink":"https://t/p/task/9"},"change":{"diff":{"description_diff":"…"}}}`)
	got := RenderHTML(NewFormatter(ruLabels()).Format(CategoryDescriptionChange, ev, Classify(ev)))
	assert.True(t, strings.HasPrefix(got, "📝 <b>Изменено описание в задаче #9</b>"), got)
	assert.True(t, strings.HasSuffix(got, "<b>Новое описание:</b>\n"+strings.Repeat("д", 150)+"..."), got)
}

func TestFormatEnglish(t *testing.T) {
	t.Parallel()
	en, ok := LookupLabels("en")
	require.True(t, ok)
	ev := mustDecode(t, `{"action":"change","type":"userstory","data":{"permalink":"https://t/p/us/5"},"change":{"comment":"hey @alice"}}`)
	p := NewFormatter(en).Format(CategoryMention, ev, Classify(ev))
	assert.Equal(t, "You were mentioned in a comment on the user story #5!", p.Headline)
	assert.Equal(t, "User story:", p.EntityCaption)
}
