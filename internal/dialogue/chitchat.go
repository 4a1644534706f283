package dialogue

import (
	"slices"
	"strings"
)

// Canned chit-chat replies.
const (
	replyGreeting = "👋 Hi! I'm your course recommendation assistant. What would you like to learn today?"
	replyThanks   = "😊 You're very welcome! Feel free to ask if you need more courses."
	replyFarewell = "👋 Goodbye! Happy learning! Come back anytime."
	replyHelp     = "I can help you find the perfect course! Just tell me:\n- What subject you want to learn\n- Your skill level (beginner/intermediate/advanced)\n- Your budget preference\n\nI'll ask questions to understand your needs better!"
	replyReset    = "🔄 Conversation reset! What would you like to learn?"
)

var (
	greetings     = []string{"hi", "hello", "hey", "hii", "hello there", "hi there"}
	farewells     = []string{"bye", "goodbye", "see you"}
	helpRequests  = []string{"help", "how does this work", "what can you do"}
	resetCommands = []string{"reset", "start over", "clear"}
)

type chitChat struct {
	reply string
	reset bool
}

// matchChitChat recognizes small talk. Checks run in a fixed order, so
// "thanks, bye" is answered as thanks.
func matchChitChat(text string) (chitChat, bool) {
	t := strings.ToLower(strings.TrimSpace(text))
	switch {
	case slices.Contains(greetings, t):
		return chitChat{reply: replyGreeting}, true
	case strings.Contains(t, "thank"):
		return chitChat{reply: replyThanks}, true
	case slices.Contains(farewells, t):
		return chitChat{reply: replyFarewell}, true
	case slices.Contains(helpRequests, t):
		return chitChat{reply: replyHelp}, true
	case containsAny(t, resetCommands):
		return chitChat{reply: replyReset, reset: true}, true
	default:
		return chitChat{}, false
	}
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
