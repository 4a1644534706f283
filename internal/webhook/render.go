package webhook

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/garyellow/course-advisor/internal/catalog"
	"github.com/garyellow/course-advisor/internal/dialogue"
	"github.com/garyellow/course-advisor/internal/lineutil"
	"github.com/garyellow/course-advisor/internal/retrieval"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Postback keys.
const (
	postbackCourse = "course"
	postbackPage   = "page"
)

const (
	greetingText   = "👋 Hi! I'm your course recommendation assistant.\n\nTell me what you'd like to learn, for example \"python for beginners\" or \"free guitar courses\"."
	noMoreText     = "That's all the courses I found. Try a new search or say \"reset\" to start over."
	noResultsText  = "I don't have any results for you yet. Tell me what you'd like to learn."
	courseGoneText = "Sorry, I couldn't find that course anymore."
)

// renderReply turns one dialogue turn into LINE messages: the reply text,
// then a carousel with the first page of results, then quick replies for
// the awaited slot.
func renderReply(reply dialogue.Reply) []messaging_api.MessageInterface {
	messages := []messaging_api.MessageInterface{lineutil.NewTextMessage(plainText(reply.Text))}

	var qr []lineutil.Action
	if reply.Kind == dialogue.KindResults && len(reply.Results) > 0 {
		page := reply.Results
		if len(page) > dialogue.DefaultPageSize {
			page = page[:dialogue.DefaultPageSize]
		}
		messages = append(messages, courseCarousel(page, reply.Total))
		if len(reply.Results) > len(page) {
			qr = append(qr, morePostback(2))
		}
	}

	qr = append(qr, slotActions(reply.Awaiting)...)
	lineutil.AttachQuickReply(messages, lineutil.NewQuickReply(qr...))
	return messages
}

// renderPage shows a later page of the session's current results.
func renderPage(snap dialogue.Snapshot, page int) []messaging_api.MessageInterface {
	if len(snap.Results) == 0 {
		return []messaging_api.MessageInterface{lineutil.NewTextMessage(noResultsText)}
	}
	items, pages := snap.Page(page, dialogue.DefaultPageSize)
	if len(items) == 0 {
		return []messaging_api.MessageInterface{lineutil.NewTextMessage(noMoreText)}
	}

	text := fmt.Sprintf("Page %d of %d", page, pages)
	messages := []messaging_api.MessageInterface{
		lineutil.NewTextMessage(text),
		courseCarousel(items, snap.Total),
	}
	if page < pages {
		lineutil.AttachQuickReply(messages, lineutil.NewQuickReply(morePostback(page+1)))
	}
	return messages
}

func courseCarousel(results []retrieval.RankedResult, total int) *messaging_api.FlexMessage {
	bubbles := make([]messaging_api.FlexBubble, 0, len(results))
	for _, r := range results {
		bubbles = append(bubbles, *courseBubble(r))
	}
	alt := fmt.Sprintf("Recommended courses (%d of %d)", len(results), total)
	return lineutil.NewFlexMessage(alt, lineutil.NewFlexCarousel(bubbles))
}

func courseBubble(r retrieval.RankedResult) *messaging_api.FlexBubble {
	c := r.Course
	body := lineutil.NewBodyBuilder().
		AddInfoRow("📚", "Subject", titleCase(c.Subject)).
		AddInfoRow("🎯", "Level", titleCase(c.Level)).
		AddInfoRow("💰", "Price", c.DisplayPrice()).
		AddInfoRow("⏱️", "Duration", c.DisplayDuration()).
		AddInfoRow("✅", "Match", fmt.Sprintf("%.1f%%", r.MatchPercent))

	return lineutil.NewFlexBubble(
		lineutil.NewCompactHeroBox(titleCase(c.Title)),
		body.Build(),
		courseFooter(c, true),
	)
}

// detailMessages renders one course with its generated description.
func detailMessages(c catalog.Course, description string) []messaging_api.MessageInterface {
	body := lineutil.NewBodyBuilder()
	if description != "" {
		body.Add(lineutil.NewFlexText(description).WithSize("sm").WithColor(lineutil.ColorText).
			WithWrap(true).WithLineSpacing(lineutil.LineSpacingNormal).FlexText)
	}
	body.AddInfoRow("📚", "Subject", titleCase(c.Subject)).
		AddInfoRow("🎯", "Level", titleCase(c.Level)).
		AddInfoRow("💰", "Price", c.DisplayPrice()).
		AddInfoRow("⏱️", "Duration", c.DisplayDuration()).
		AddInfoRow("🎬", "Lectures", strconv.Itoa(c.Lectures)).
		AddInfoRow("👥", "Subscribers", strconv.Itoa(c.Subscribers)).
		AddInfoRow("📅", "Published", c.DisplayPublished())

	bubble := lineutil.NewFlexBubble(lineutil.NewCompactHeroBox(titleCase(c.Title)), body.Build(), courseFooter(c, false))
	return []messaging_api.MessageInterface{lineutil.NewFlexMessage(titleCase(c.Title), bubble)}
}

func courseFooter(c catalog.Course, withDetails bool) *lineutil.FlexBox {
	var details, open *lineutil.FlexButton
	if withDetails {
		details = lineutil.NewFlexButton(
			lineutil.NewPostbackAction("View details", "Tell me more about this course", coursePostback(c.ID)),
		).WithStyle("primary").WithColor(lineutil.ColorPrimary).WithHeight("sm")
	}
	if c.URL != "" {
		open = lineutil.NewFlexButton(lineutil.NewURIAction("Open course", c.URL)).
			WithStyle("secondary").WithHeight("sm")
	}
	if details == nil && open == nil {
		return nil
	}
	return lineutil.NewButtonFooter(details, open)
}

// slotActions offers canned answers for the awaited question. Each sends a
// phrase the follow-up extractors understand.
func slotActions(slot dialogue.Slot) []lineutil.Action {
	switch slot {
	case dialogue.SlotLevel:
		return []lineutil.Action{
			lineutil.NewMessageAction("Beginner", "beginner"),
			lineutil.NewMessageAction("Intermediate", "intermediate"),
			lineutil.NewMessageAction("Advanced", "advanced"),
			lineutil.NewMessageAction("Any level", "any level"),
		}
	case dialogue.SlotBudget:
		return []lineutil.Action{
			lineutil.NewMessageAction("Free", "free"),
			lineutil.NewMessageAction("Paid", "paid"),
		}
	case dialogue.SlotPriceRange:
		return []lineutil.Action{
			lineutil.NewMessageAction("Under ₹500", "under 500"),
			lineutil.NewMessageAction("₹500 to ₹2000", "500 to 2000"),
			lineutil.NewMessageAction("Over ₹2000", "over 2000"),
		}
	case dialogue.SlotRefinement:
		return []lineutil.Action{
			lineutil.NewMessageAction("Beginner", "beginner"),
			lineutil.NewMessageAction("Advanced", "advanced"),
			lineutil.NewMessageAction("Free only", "free"),
			lineutil.NewMessageAction("Start over", "reset"),
		}
	default:
		return nil
	}
}

func coursePostback(id int) string {
	return url.Values{postbackCourse: {strconv.Itoa(id)}}.Encode()
}

func morePostback(page int) lineutil.Action {
	data := url.Values{postbackPage: {strconv.Itoa(page)}}.Encode()
	return lineutil.NewPostbackAction("More results", fmt.Sprintf("Show page %d", page), data)
}

// plainText drops the markdown emphasis LINE would show literally.
func plainText(s string) string {
	return strings.ReplaceAll(s, "**", "")
}

// titleCase capitalizes the lower-cased catalog fields for display.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}
