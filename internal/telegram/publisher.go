package telegram

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/channel-agent/internal/config"
	"github.com/channel-agent/internal/textutil"
	"github.com/channel-agent/pkg/logger"
	"github.com/channel-agent/pkg/ratelimit"
)

// MaxMessageLength is the Telegram limit for a text message, in characters
// after entity parsing
const MaxMessageLength = 4096

// ErrMessageTooLong is returned for texts over MaxMessageLength
var ErrMessageTooLong = errors.New("message too long")

// Sender sends a message. *tgbotapi.BotAPI implements it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Publisher posts texts to a channel
type Publisher struct {
	sender  Sender
	channel string
	limiter *ratelimit.MultiLimiter
	log     *logger.Logger
}

// NewPublisher connects to the bot API
func NewPublisher(cfg config.TelegramConfig, limiter *ratelimit.MultiLimiter, log *logger.Logger) (*Publisher, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}

	log.WithComponent("telegram").Info().Str("bot", bot.Self.UserName).Msg("Telegram bot authorized")

	return NewPublisherWithSender(bot, cfg.Channel, limiter, log), nil
}

// NewPublisherWithSender creates a publisher over any sender
func NewPublisherWithSender(sender Sender, channel string, limiter *ratelimit.MultiLimiter, log *logger.Logger) *Publisher {
	return &Publisher{
		sender:  sender,
		channel: channel,
		limiter: limiter,
		log:     log.WithComponent("telegram"),
	}
}

// Publish sends text to the channel in HTML mode and returns the message ID
func (p *Publisher) Publish(ctx context.Context, text string) (int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, fmt.Errorf("empty message")
	}
	if n := utf8.RuneCountInString(textutil.StripTags(text)); n > MaxMessageLength {
		return 0, fmt.Errorf("%w: %d characters", ErrMessageTooLong, n)
	}

	if err := p.limiter.Wait(ctx, ratelimit.LimiterTelegram); err != nil {
		return 0, fmt.Errorf("rate limiter: %w", err)
	}

	sent, err := p.sender.Send(p.message(EscapeHTML(text)))
	if err != nil {
		return 0, fmt.Errorf("failed to send to %s: %w", p.channel, err)
	}

	p.log.Info().
		Str("channel", p.channel).
		Int("message_id", sent.MessageID).
		Msg("Message published")

	return sent.MessageID, nil
}

// message addresses the channel by numeric chat ID or by @username
func (p *Publisher) message(text string) tgbotapi.MessageConfig {
	var msg tgbotapi.MessageConfig
	if id, err := strconv.ParseInt(p.channel, 10, 64); err == nil {
		msg = tgbotapi.NewMessage(id, text)
	} else {
		channel := p.channel
		if !strings.HasPrefix(channel, "@") {
			channel = "@" + channel
		}
		msg = tgbotapi.NewMessageToChannel(channel, text)
	}

	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	return msg
}

var (
	anchorPattern = regexp.MustCompile(`(?is)<a\s+[^>]*href=["']([^"']+)["'][^>]*>(.*?)</a>`)
	htmlEscaper   = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
)

// EscapeHTML escapes text for HTML parse mode. Anchors are kept as links,
// every other "<", ">" and "&" is escaped.
func EscapeHTML(text string) string {
	var b strings.Builder
	last := 0
	for _, m := range anchorPattern.FindAllStringSubmatchIndex(text, -1) {
		b.WriteString(htmlEscaper.Replace(text[last:m[0]]))

		href := text[m[2]:m[3]]
		label := textutil.StripTags(text[m[4]:m[5]])
		fmt.Fprintf(&b, `<a href="%s">%s</a>`, strings.ReplaceAll(href, `"`, "&quot;"), htmlEscaper.Replace(label))

		last = m[1]
	}
	b.WriteString(htmlEscaper.Replace(text[last:]))
	return b.String()
}
