package telegram

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func TestSplitTelegramTextShort(t *testing.T) {
	got := splitTelegramText("hello", 10, "HTML")
	assert.Equal(t, []string{"hello"}, got)
}

func TestSplitTelegramTextPrefersNewlines(t *testing.T) {
	line := strings.Repeat("a", 6)
	s := line + "\n" + line + "\n" + line
	got := splitTelegramText(s, 10, "")
	require.Len(t, got, 3)
	for _, c := range got {
		assert.Equal(t, line, c)
	}
}

func TestSplitTelegramTextAvoidsDanglingTag(t *testing.T) {
	s := "abcdefgh<b>bold</b>"
	got := splitTelegramText(s, 10, "HTML")
	require.NotEmpty(t, got)
	assert.Equal(t, "abcdefgh", got[0])
	assert.Equal(t, s, strings.Join(got, ""))
}

func TestSplitTelegramTextCountsRunes(t *testing.T) {
	s := strings.Repeat("ж", 25)
	got := splitTelegramText(s, 10, "")
	require.Len(t, got, 3)
	for _, c := range got {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 10)
	}
}

func TestChatIDReply(t *testing.T) {
	assert.Contains(t, chatIDReply(123456), "<code>123456</code>")
}

func TestIsPermanent(t *testing.T) {
	assert.False(t, IsPermanent(nil))
	assert.False(t, IsPermanent(errors.New("dial tcp: timeout")))
	assert.True(t, IsPermanent(tele.ErrChatNotFound))
	assert.True(t, IsPermanent(tele.ErrBlockedByUser))
	assert.False(t, IsPermanent(tele.FloodError{RetryAfter: 3}))
}
