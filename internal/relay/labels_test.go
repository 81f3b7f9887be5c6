package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupLabels(t *testing.T) {
	t.Parallel()
	l, ok := LookupLabels("")
	require.True(t, ok)
	assert.Equal(t, DefaultLocale, l.Locale)

	_, ok = LookupLabels("EN")
	assert.True(t, ok)

	_, ok = LookupLabels("de")
	assert.False(t, ok)

	for _, loc := range Locales() {
		l, ok := LookupLabels(loc)
		require.True(t, ok, loc)
		for _, c := range Categories {
			assert.NotEmpty(t, l.Headlines[c], "%s %s headline", loc, c)
			assert.NotEmpty(t, l.Tags[c], "%s %s tag", loc, c)
		}
		for _, k := range []EntityKind{KindTask, KindUserStory, KindEpic, KindOther} {
			assert.NotEmpty(t, l.FormsFor(k).Noun, "%s %s noun", loc, k)
		}
	}
}

func TestTranslateStatus(t *testing.T) {
	t.Parallel()
	l := ruLabels()
	assert.Equal(t, "Завершена", l.TranslateStatus("Closed"))
	assert.Equal(t, "Blocked", l.TranslateStatus("Blocked"))
	assert.Equal(t, "", l.TranslateStatus(""))
}

func TestWithStatusesDoesNotLeak(t *testing.T) {
	t.Parallel()
	l := ruLabels().WithStatuses(map[string]string{"Blocked": "Заблокирована", "Closed": "Закрыта"})
	assert.Equal(t, "Заблокирована", l.TranslateStatus("Blocked"))
	assert.Equal(t, "Закрыта", l.TranslateStatus("Closed"))

	fresh := ruLabels()
	assert.Equal(t, "Blocked", fresh.TranslateStatus("Blocked"))
	assert.Equal(t, "Завершена", fresh.TranslateStatus("Closed"))
}

func TestParseEntityKind(t *testing.T) {
	t.Parallel()
	assert.Equal(t, KindTask, ParseEntityKind("task"))
	assert.Equal(t, KindUserStory, ParseEntityKind(" UserStory "))
	assert.Equal(t, KindEpic, ParseEntityKind("epic"))
	assert.Equal(t, KindOther, ParseEntityKind("issue"))
	assert.Equal(t, "description_change", CategoryDescriptionChange.String())
}
