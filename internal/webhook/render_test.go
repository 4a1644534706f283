package webhook

import (
	"fmt"
	"testing"

	"github.com/garyellow/course-advisor/internal/catalog"
	"github.com/garyellow/course-advisor/internal/dialogue"
	"github.com/garyellow/course-advisor/internal/retrieval"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rankedResults(n int) []retrieval.RankedResult {
	out := make([]retrieval.RankedResult, n)
	for i := range out {
		out[i] = retrieval.RankedResult{
			Course: catalog.Course{
				ID:      i + 1,
				Title:   fmt.Sprintf("course %d", i+1),
				URL:     fmt.Sprintf("https://example.com/%d", i+1),
				Subject: "web development",
				Level:   "all levels",
				Price:   float64(i * 100),
			},
			MatchPercent: 90 - float64(i),
		}
	}
	return out
}

func TestRenderReply_Results(t *testing.T) {
	t.Parallel()
	reply := dialogue.Reply{
		Text:     "I found **8** courses.",
		Kind:     dialogue.KindResults,
		Awaiting: dialogue.SlotRefinement,
		Results:  rankedResults(8),
		Total:    8,
	}

	msgs := renderReply(reply)
	require.Len(t, msgs, 2)

	text, ok := msgs[0].(*messaging_api.TextMessage)
	require.True(t, ok)
	assert.Equal(t, "I found 8 courses.", text.Text)

	flex, ok := msgs[1].(*messaging_api.FlexMessage)
	require.True(t, ok)
	carousel, ok := flex.Contents.(*messaging_api.FlexCarousel)
	require.True(t, ok)
	assert.Len(t, carousel.Contents, dialogue.DefaultPageSize)
	assert.Equal(t, "Recommended courses (5 of 8)", flex.AltText)

	// "More results" plus the refinement answers.
	require.NotNil(t, flex.QuickReply)
	require.Len(t, flex.QuickReply.Items, 5)
	more, ok := flex.QuickReply.Items[0].Action.(*messaging_api.PostbackAction)
	require.True(t, ok)
	assert.Equal(t, "page=2", more.Data)
}

func TestRenderReply_PromptOnly(t *testing.T) {
	t.Parallel()

	tests := []struct {
		slot  dialogue.Slot
		items int
	}{
		{dialogue.SlotNone, 0},
		{dialogue.SlotSubject, 0},
		{dialogue.SlotLevel, 4},
		{dialogue.SlotBudget, 2},
		{dialogue.SlotPriceRange, 3},
	}

	for _, tt := range tests {
		t.Run(string(tt.slot), func(t *testing.T) {
			t.Parallel()
			msgs := renderReply(dialogue.Reply{Text: "question", Kind: dialogue.KindPrompt, Awaiting: tt.slot})
			require.Len(t, msgs, 1)
			text := msgs[0].(*messaging_api.TextMessage)
			if tt.items == 0 {
				assert.Nil(t, text.QuickReply)
				return
			}
			require.NotNil(t, text.QuickReply)
			assert.Len(t, text.QuickReply.Items, tt.items)
		})
	}
}

func TestRenderPage(t *testing.T) {
	t.Parallel()
	snap := dialogue.Snapshot{Results: rankedResults(12), Total: 12}

	msgs := renderPage(snap, 2)
	require.Len(t, msgs, 2)
	assert.Equal(t, "Page 2 of 3", msgs[0].(*messaging_api.TextMessage).Text)
	flex := msgs[1].(*messaging_api.FlexMessage)
	require.NotNil(t, flex.QuickReply)
	assert.Equal(t, "page=3", flex.QuickReply.Items[0].Action.(*messaging_api.PostbackAction).Data)

	last := renderPage(snap, 3)
	assert.Nil(t, last[1].(*messaging_api.FlexMessage).QuickReply)

	beyond := renderPage(snap, 4)
	require.Len(t, beyond, 1)
	assert.Equal(t, noMoreText, beyond[0].(*messaging_api.TextMessage).Text)

	empty := renderPage(dialogue.Snapshot{}, 1)
	assert.Equal(t, noResultsText, empty[0].(*messaging_api.TextMessage).Text)
}

func TestCourseFooter(t *testing.T) {
	t.Parallel()

	withURL := courseFooter(catalog.Course{ID: 3, URL: "https://example.com/3"}, true)
	require.NotNil(t, withURL)
	require.Len(t, withURL.Contents, 2)
	details := withURL.Contents[0].(*messaging_api.FlexButton).Action.(*messaging_api.PostbackAction)
	assert.Equal(t, "course=3", details.Data)

	assert.Nil(t, courseFooter(catalog.Course{ID: 3}, false))
}

func TestTitleCase(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Business Finance", titleCase("business finance"))
	assert.Equal(t, "All Levels", titleCase("all levels"))
	assert.Empty(t, titleCase(""))
}

func TestStripBotMentions(t *testing.T) {
	t.Parallel()
	self := func(index, length int32) webhook.MentioneeInterface {
		return webhook.UserMentionee{Index: index, Length: length, IsSelf: true}
	}

	tests := []struct {
		name    string
		text    string
		mention *webhook.Mention
		want    string
	}{
		{"no mention", "python course", nil, "python course"},
		{"leading", "@bot python", &webhook.Mention{Mentionees: []webhook.MentioneeInterface{self(0, 4)}}, "python"},
		{"middle", "find @bot python", &webhook.Mention{Mentionees: []webhook.MentioneeInterface{self(5, 4)}}, "find python"},
		{"twice", "@bot hi @bot", &webhook.Mention{Mentionees: []webhook.MentioneeInterface{self(0, 4), self(8, 4)}}, "hi"},
		{"other user kept", "@amy python", &webhook.Mention{Mentionees: []webhook.MentioneeInterface{webhook.UserMentionee{Index: 0, Length: 4}}}, "@amy python"},
		{"out of range", "python", &webhook.Mention{Mentionees: []webhook.MentioneeInterface{self(10, 4)}}, "python"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, stripBotMentions(tt.text, tt.mention))
		})
	}
}
