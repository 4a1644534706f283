package lineutil

import (
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// Action is an alias for the LINE SDK action interface.
type Action = messaging_api.ActionInterface

// NewTextMessage creates a text message, truncated to the LINE limit.
func NewTextMessage(text string) *messaging_api.TextMessage {
	return &messaging_api.TextMessage{Text: TruncateRunes(text, MaxTextMessageLength)}
}

// NewFlexMessage creates a flex message; altText is truncated to the LINE limit.
func NewFlexMessage(altText string, contents messaging_api.FlexContainerInterface) *messaging_api.FlexMessage {
	return &messaging_api.FlexMessage{
		AltText:  TruncateRunes(altText, MaxAltTextLength),
		Contents: contents,
	}
}

// NewMessageAction sends text as the user when tapped.
func NewMessageAction(label, text string) Action {
	return &messaging_api.MessageAction{
		Label: TruncateRunes(label, MaxActionLabel),
		Text:  text,
	}
}

// NewPostbackAction sends data to the webhook without posting a message.
func NewPostbackAction(label, displayText, data string) Action {
	return &messaging_api.PostbackAction{
		Label:       TruncateRunes(label, MaxActionLabel),
		DisplayText: displayText,
		Data:        TruncateRunes(data, MaxPostbackData),
	}
}

// NewURIAction opens uri when tapped.
func NewURIAction(label, uri string) Action {
	return &messaging_api.UriAction{
		Label: TruncateRunes(label, MaxActionLabel),
		Uri:   uri,
	}
}

// NewQuickReply builds quick reply buttons, keeping at most MaxQuickReplyItems.
func NewQuickReply(actions ...Action) *messaging_api.QuickReply {
	if len(actions) == 0 {
		return nil
	}
	if len(actions) > MaxQuickReplyItems {
		actions = actions[:MaxQuickReplyItems]
	}
	items := make([]messaging_api.QuickReplyItem, len(actions))
	for i, a := range actions {
		items[i] = messaging_api.QuickReplyItem{Action: a}
	}
	return &messaging_api.QuickReply{Items: items}
}

// AttachQuickReply sets qr on the last message that supports quick replies.
func AttachQuickReply(messages []messaging_api.MessageInterface, qr *messaging_api.QuickReply) {
	if len(messages) == 0 || qr == nil {
		return
	}
	switch m := messages[len(messages)-1].(type) {
	case *messaging_api.TextMessage:
		m.QuickReply = qr
	case *messaging_api.FlexMessage:
		m.QuickReply = qr
	}
}
