package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractMentions(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"alice", "bob.smith"}, ExtractMentions("ping @alice and @bob.smith"))
	assert.Equal(t, []string{"a-b_c", "a-b_c"}, ExtractMentions("@a-b_c, @a-b_c!"))
	assert.Nil(t, ExtractMentions("no handles here, just an email-less @ sign"))
}

func TestClassify(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		body string
		want []Category
	}{
		{
			name: "empty event",
			body: `{}`,
			want: nil,
		},
		{
			name: "comment on task",
			body: `{"action":"change","type":"task","data":{"assigned_to":{"id":7}},"change":{"comment":"hi @bob"}}`,
			want: []Category{CategoryMention, CategoryComment},
		},
		{
			name: "comment on unknown kind only mentions",
			body: `{"action":"change","type":"issue","data":{"assigned_to":{"id":7}},"change":{"comment":"hi","diff":{"status":{"from":"a","to":"b"}}}}`,
			want: []Category{CategoryMention},
		},
		{
			name: "description and status",
			body: `{"action":"change","type":"epic","change":{"diff":{"description_diff":"x","status":{"from":"New","to":"Closed"}}}}`,
			want: []Category{CategoryDescriptionChange, CategoryStatusChange},
		},
		{
			name: "task assignment",
			body: `{"action":"change","type":"task","data":{"assigned_to":{"id":7}},"change":{"diff":{"assigned_to":{"from":null,"to":"alice"}}}}`,
			want: []Category{CategoryAssignment},
		},
		{
			name: "task unassigned",
			body: `{"action":"change","type":"task","data":{"assigned_to":null},"change":{"diff":{"assigned_to":{"from":"alice","to":null}}}}`,
			want: nil,
		},
		{
			name: "assignment ignored on delete",
			body: `{"action":"delete","type":"task","data":{"assigned_to":{"id":7}},"change":{"diff":{"assigned_to":{"to":"alice"}}}}`,
			want: nil,
		},
		{
			name: "userstory assignment",
			body: `{"action":"create","type":"userstory","data":{"assigned_users":[1,2]},"change":{"diff":{"assigned_users":{"from":null,"to":"1, 2"}}}}`,
			want: []Category{CategoryAssignment},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Classify(mustDecode(t, tt.body))
			assert.Equal(t, tt.want, got.Categories)
		})
	}
}

func TestClassifyRecipients(t *testing.T) {
	t.Parallel()

	us := Classify(mustDecode(t, `{"action":"change","type":"userstory","data":{"assigned_users":[1,2]},"change":{"comment":"x","diff":{"assigned_users":{}}}}`))
	assert.Equal(t, []string{"1", "2"}, us.Assignees)
	assert.Equal(t, []string{"1", "2"}, us.Assigned)

	task := Classify(mustDecode(t, `{"action":"change","type":"task","data":{"assigned_to":{"id":"7"}},"change":{"diff":{"status":{"from":"New"}}}}`))
	assert.Equal(t, []string{"7"}, task.Assignees)
	assert.Nil(t, task.Assigned)
	require.NotNil(t, task.Status)
	assert.Equal(t, StatusChange{From: "New", To: ""}, *task.Status)
}
