// Package webhook serves the course advisor over a LINE Official Account.
// Each LINE chat gets its own conversation; results are rendered as Flex
// carousels and follow-up questions as quick replies.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/garyellow/course-advisor/internal/catalog"
	"github.com/garyellow/course-advisor/internal/config"
	"github.com/garyellow/course-advisor/internal/ctxutil"
	"github.com/garyellow/course-advisor/internal/dialogue"
	domerrors "github.com/garyellow/course-advisor/internal/errors"
	"github.com/garyellow/course-advisor/internal/lineutil"
	"github.com/garyellow/course-advisor/internal/logger"
	"github.com/garyellow/course-advisor/internal/metrics"
	"github.com/garyellow/course-advisor/internal/ratelimit"
	"github.com/garyellow/course-advisor/internal/sentry"
	"github.com/gin-gonic/gin"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
)

const (
	// SessionPrefix namespaces LINE conversations in the shared session store.
	SessionPrefix = "line:"

	defaultMaxEvents = 100
	maxInputRunes    = 1000
)

// Conversation runs one chat turn.
type Conversation interface {
	Handle(ctx context.Context, s *dialogue.Session, text string) dialogue.Reply
}

// SessionStore holds the per-chat conversations.
type SessionStore interface {
	GetOrCreate(id string) *dialogue.Session
	Get(id string) (*dialogue.Session, bool)
}

// CourseDetailer looks up a course and its generated description.
type CourseDetailer interface {
	CourseDetail(ctx context.Context, id int) (catalog.Course, string, error)
}

// Handler handles LINE webhook events
type Handler struct {
	channelSecret string
	client        Messenger
	conversation  Conversation
	sessions      SessionStore
	details       CourseDetailer

	logger       *logger.Logger
	metrics      *metrics.Metrics
	chatLimiter  *ratelimit.KeyedLimiter // Per-chat throttle, nil disables
	replyLimiter *ratelimit.Limiter      // Global Messaging API throttle, nil disables

	turnTimeout    time.Duration
	loadingSeconds int32
	maxEvents      int

	wg sync.WaitGroup // Async event processing
}

// NewHandler creates a webhook handler. client, conversation, sessions and
// details are required.
func NewHandler(channelSecret string, client Messenger, conversation Conversation, sessions SessionStore, details CourseDetailer, opts ...HandlerOption) (*Handler, error) {
	if channelSecret == "" {
		return nil, errors.New("channel secret is required")
	}
	if client == nil || conversation == nil || sessions == nil || details == nil {
		return nil, errors.New("messenger, conversation, sessions and details are required")
	}

	h := &Handler{
		channelSecret:  channelSecret,
		client:         client,
		conversation:   conversation,
		sessions:       sessions,
		details:        details,
		logger:         logger.New("info"),
		turnTimeout:    config.ChatTurn,
		loadingSeconds: config.LINELoadingSeconds,
		maxEvents:      defaultMaxEvents,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.WithModule("webhook")
	return h, nil
}

// Handle is the Gin handler for the webhook endpoint
func (h *Handler) Handle(c *gin.Context) {
	cb, err := webhook.ParseRequest(h.channelSecret, c.Request)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			h.logger.Warn("Invalid webhook signature")
			c.Status(http.StatusBadRequest)
		} else {
			h.logger.WithError(err).Error("Failed to parse webhook request")
			c.Status(http.StatusInternalServerError)
		}
		return
	}

	// LINE expects a fast 200; replies are sent with the reply token later.
	c.Status(http.StatusOK)

	start := time.Now()
	h.metrics.RecordWebhook("batch", "received", 0)

	if len(cb.Events) > h.maxEvents {
		h.logger.WithField("event_count", len(cb.Events)).
			WithField("limit", h.maxEvents).
			Warn("Too many events in webhook batch; truncating")
		cb.Events = cb.Events[:h.maxEvents]
	}

	events := make([]webhook.EventInterface, len(cb.Events))
	copy(events, cb.Events)

	h.wg.Go(func() {
		ctx := ctxutil.WithChannel(context.Background(), ctxutil.ChannelLINE)
		defer func() {
			if r := recover(); r != nil {
				h.logger.WithField("panic", r).Error("Panic in async event processing")
				sentry.CaptureException(ctx, "", fmt.Errorf("webhook panic: %v", r))
			}
		}()

		for _, event := range events {
			h.processEvent(ctx, event, start)
		}
	})
}

// processEvent handles a single webhook event
func (h *Handler) processEvent(ctx context.Context, event webhook.EventInterface, batchStart time.Time) {
	eventStart := time.Now()

	eventID, isRedelivery := extractEventMeta(event)
	chatID := getChatID(event)

	log := h.logger
	if eventID != "" {
		ctx = ctxutil.WithRequestID(ctx, eventID)
		log = log.WithRequestID(eventID)
	}
	if isRedelivery {
		log = log.WithField("is_redelivery", true)
	}
	if chatID != "" {
		ctx = ctxutil.WithChatID(ctx, chatID)
		ctx = ctxutil.WithSessionID(ctx, SessionPrefix+chatID)
	}

	ctx, cancel := context.WithTimeout(ctx, h.turnTimeout)
	defer cancel()

	var (
		eventType string
		messages  []messaging_api.MessageInterface
	)
	switch e := event.(type) {
	case webhook.MessageEvent:
		eventType = "message"
		messages = h.handleMessage(ctx, e, chatID)
	case webhook.PostbackEvent:
		eventType = "postback"
		messages = h.handlePostback(ctx, e, chatID)
	case webhook.FollowEvent:
		eventType = "follow"
		messages = []messaging_api.MessageInterface{lineutil.NewTextMessage(greetingText)}
	case webhook.JoinEvent:
		eventType = "join"
		messages = []messaging_api.MessageInterface{lineutil.NewTextMessage(greetingText)}
	default:
		log.WithField("event_type", fmt.Sprintf("%T", e)).Debug("Unsupported event type")
		return
	}

	h.metrics.RecordWebhook(eventType, "success", time.Since(eventStart))

	if len(messages) > 0 {
		if err := h.reply(ctx, event, messages); err != nil {
			log.WithError(err).WithField("event_type", eventType).Warn("Failed to send reply")
			h.metrics.RecordWebhook(eventType, "reply_error", time.Since(eventStart))
		}
	}

	log.WithField("event_type", eventType).
		WithField("event_duration_ms", time.Since(eventStart).Milliseconds()).
		WithField("batch_duration_ms", time.Since(batchStart).Milliseconds()).
		Info("Event processed")
}

func (h *Handler) handleMessage(ctx context.Context, e webhook.MessageEvent, chatID string) []messaging_api.MessageInterface {
	msg, ok := e.Message.(webhook.TextMessageContent)
	if !ok || chatID == "" {
		return nil
	}

	text := msg.Text
	if !isPersonalChat(e.Source) {
		// Group and room chats only answer when the bot is @mentioned.
		if !isBotMentioned(msg) {
			return nil
		}
		text = stripBotMentions(text, msg.Mention)
	}
	if utf8.RuneCountInString(text) > maxInputRunes {
		return []messaging_api.MessageInterface{lineutil.NewTextMessage(
			fmt.Sprintf("That message is too long. Please keep it under %d characters.", maxInputRunes),
		)}
	}

	if limited := h.throttled(chatID); limited != nil {
		return limited
	}

	h.showLoading(ctx, e.Source, chatID)

	session := h.sessions.GetOrCreate(SessionPrefix + chatID)
	reply := h.conversation.Handle(ctx, session, text)
	return renderReply(reply)
}

func (h *Handler) handlePostback(ctx context.Context, e webhook.PostbackEvent, chatID string) []messaging_api.MessageInterface {
	if e.Postback == nil || chatID == "" {
		return nil
	}
	data, err := url.ParseQuery(strings.TrimSpace(e.Postback.Data))
	if err != nil {
		h.logger.WithError(err).Debug("Malformed postback data")
		return nil
	}

	if limited := h.throttled(chatID); limited != nil {
		return limited
	}

	switch {
	case data.Has(postbackCourse):
		id, err := strconv.Atoi(data.Get(postbackCourse))
		if err != nil || id <= 0 {
			return nil
		}
		h.showLoading(ctx, e.Source, chatID)
		course, description, err := h.details.CourseDetail(ctx, id)
		if err != nil {
			if !domerrors.IsNotFound(err) {
				h.logger.WithError(err).WithField("course_id", id).Warn("Failed to load course detail")
			}
			return []messaging_api.MessageInterface{lineutil.NewTextMessage(courseGoneText)}
		}
		return detailMessages(course, description)

	case data.Has(postbackPage):
		page, err := strconv.Atoi(data.Get(postbackPage))
		if err != nil || page < 1 {
			return nil
		}
		session, ok := h.sessions.Get(SessionPrefix + chatID)
		if !ok {
			return []messaging_api.MessageInterface{lineutil.NewTextMessage(noResultsText)}
		}
		return renderPage(session.Snapshot(), page)

	default:
		h.logger.WithField("data", e.Postback.Data).Debug("Unknown postback")
		return nil
	}
}

// throttled returns the rate-limit notice when chatID is over its budget.
func (h *Handler) throttled(chatID string) []messaging_api.MessageInterface {
	if h.chatLimiter == nil || h.chatLimiter.Allow(chatID) {
		return nil
	}
	wait := max(h.chatLimiter.RetryAfter(chatID).Round(time.Second), time.Second)
	return []messaging_api.MessageInterface{lineutil.NewTextMessage(
		fmt.Sprintf("You're sending messages a little too fast. Please try again in %s.", wait),
	)}
}

// showLoading starts the loading animation; LINE only supports it in
// one-on-one chats.
func (h *Handler) showLoading(ctx context.Context, source webhook.SourceInterface, chatID string) {
	if h.loadingSeconds <= 0 || !isPersonalChat(source) {
		return
	}
	if err := h.client.ShowLoading(ctx, chatID, h.loadingSeconds); err != nil {
		h.logger.WithError(err).Debug("Failed to show loading animation")
	}
}

func (h *Handler) reply(ctx context.Context, event webhook.EventInterface, messages []messaging_api.MessageInterface) error {
	token := getReplyToken(event)
	if token == "" {
		return nil
	}
	if len(messages) > lineutil.MaxReplyMessages {
		messages = messages[:lineutil.MaxReplyMessages]
	}
	if h.replyLimiter != nil && !h.replyLimiter.Allow() {
		h.metrics.RecordRateLimiterDrop("line_api")
		if err := h.replyLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("wait for reply slot: %w", err)
		}
	}
	if err := h.client.Reply(ctx, token, messages); err != nil {
		return fmt.Errorf("reply message: %w", err)
	}
	return nil
}

// Shutdown waits for all async event processing to complete.
// It returns an error if the context is canceled before completion.
func (h *Handler) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.wg.Wait()
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func extractEventMeta(event webhook.EventInterface) (string, bool) {
	var (
		id string
		dc *webhook.DeliveryContext
	)
	switch e := event.(type) {
	case webhook.MessageEvent:
		id, dc = e.WebhookEventId, e.DeliveryContext
	case webhook.PostbackEvent:
		id, dc = e.WebhookEventId, e.DeliveryContext
	case webhook.FollowEvent:
		id, dc = e.WebhookEventId, e.DeliveryContext
	case webhook.JoinEvent:
		id, dc = e.WebhookEventId, e.DeliveryContext
	}
	return id, dc != nil && dc.IsRedelivery
}

func getReplyToken(event webhook.EventInterface) string {
	switch e := event.(type) {
	case webhook.MessageEvent:
		return e.ReplyToken
	case webhook.PostbackEvent:
		return e.ReplyToken
	case webhook.FollowEvent:
		return e.ReplyToken
	case webhook.JoinEvent:
		return e.ReplyToken
	default:
		return ""
	}
}

func getChatID(event webhook.EventInterface) string {
	var source webhook.SourceInterface
	switch e := event.(type) {
	case webhook.MessageEvent:
		source = e.Source
	case webhook.PostbackEvent:
		source = e.Source
	case webhook.FollowEvent:
		source = e.Source
	case webhook.JoinEvent:
		source = e.Source
	default:
		return ""
	}

	switch s := source.(type) {
	case webhook.UserSource:
		return s.UserId
	case webhook.GroupSource:
		return s.GroupId
	case webhook.RoomSource:
		return s.RoomId
	}
	return ""
}

func isPersonalChat(source webhook.SourceInterface) bool {
	_, ok := source.(webhook.UserSource)
	return ok
}
