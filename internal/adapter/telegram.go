package adapter

import (
	"context"
	"net/http"
	"regexp"
	"strconv"

	"github.com/cockroachdb/errors"
	tele "gopkg.in/telebot.v3"

	"launchpad/internal/models"
)

var telegramCode = regexp.MustCompile(`\((\d{3})\)$`)

// TelegramPublisher posts to a channel the bot administers.
type TelegramPublisher struct {
	bot     *tele.Bot
	channel tele.ChatID
}

// NewTelegramPublisher builds an offline bot: it only sends, it never polls.
// apiURL may be empty to use the public Bot API.
func NewTelegramPublisher(token string, channelID int64, apiURL string) (*TelegramPublisher, error) {
	bot, err := tele.NewBot(tele.Settings{
		URL:     apiURL,
		Token:   token,
		Offline: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "telegram: create bot")
	}
	return &TelegramPublisher{bot: bot, channel: tele.ChatID(channelID)}, nil
}

func (t *TelegramPublisher) Platform() models.Platform { return models.PlatformTelegram }

func (t *TelegramPublisher) Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	var what interface{} = req.Content
	if len(req.MediaURLs) > 0 {
		what = &tele.Photo{File: tele.FromURL(req.MediaURLs[0]), Caption: req.Content}
	}

	type sent struct {
		msg *tele.Message
		err error
	}
	done := make(chan sent, 1)
	go func() {
		msg, err := t.bot.Send(t.channel, what)
		done <- sent{msg, err}
	}()

	select {
	case <-ctx.Done():
		return nil, Transient(errors.Wrap(ctx.Err(), "telegram: send"))
	case s := <-done:
		if s.err != nil {
			return nil, classifyTelegram(s.err)
		}
		id := strconv.Itoa(s.msg.ID)
		return &PublishResult{ExternalID: id, URL: telegramLink(s.msg)}, nil
	}
}

func telegramLink(msg *tele.Message) string {
	if msg.Chat != nil && msg.Chat.Username != "" {
		return "https://t.me/" + msg.Chat.Username + "/" + strconv.Itoa(msg.ID)
	}
	return ""
}

func classifyTelegram(err error) error {
	err = errors.Wrap(err, "telegram: send")

	var flood tele.FloodError
	if errors.As(err, &flood) {
		return Transient(err)
	}
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.Code, err)
	}
	// Unrecognised API errors only carry the code in their text.
	if m := telegramCode.FindStringSubmatch(err.Error()); m != nil {
		if code, perr := strconv.Atoi(m[1]); perr == nil {
			return classifyStatus(code, err)
		}
	}
	return classifyStatus(http.StatusServiceUnavailable, err)
}
