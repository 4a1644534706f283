package webhook

import (
	"context"
	"fmt"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// Messenger is the part of the LINE Messaging API the handler uses.
type Messenger interface {
	Reply(ctx context.Context, replyToken string, messages []messaging_api.MessageInterface) error
	ShowLoading(ctx context.Context, chatID string, seconds int32) error
}

// apiMessenger sends through the LINE SDK client.
type apiMessenger struct {
	api *messaging_api.MessagingApiAPI
}

// NewMessenger creates a Messenger for the channel access token.
func NewMessenger(channelToken string) (Messenger, error) {
	api, err := messaging_api.NewMessagingApiAPI(channelToken)
	if err != nil {
		return nil, fmt.Errorf("create messaging API client: %w", err)
	}
	return &apiMessenger{api: api}, nil
}

func (m *apiMessenger) Reply(_ context.Context, replyToken string, messages []messaging_api.MessageInterface) error {
	_, err := m.api.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages:   messages,
	})
	return err
}

// ShowLoading shows the loading animation in a one-on-one chat. LINE
// requires a multiple of 5 between 5 and 60 seconds.
func (m *apiMessenger) ShowLoading(_ context.Context, chatID string, seconds int32) error {
	_, err := m.api.ShowLoadingAnimation(&messaging_api.ShowLoadingAnimationRequest{
		ChatId:         chatID,
		LoadingSeconds: seconds,
	})
	return err
}
