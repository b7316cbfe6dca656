package notify

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// Alerter delivers short operational messages to the admin team.
type Alerter interface {
	Alert(ctx context.Context, text string) error
}

// TelegramAlerter posts alerts into one admin chat. The bot is connected on first use.
type TelegramAlerter struct {
	token    string
	chatID   int64
	endpoint string
	client   *http.Client

	mu  sync.Mutex
	bot *tgbotapi.BotAPI
}

type Option func(*TelegramAlerter)

// WithEndpoint points the bot at another Bot API server, e.g. in tests.
// endpoint follows tgbotapi's format: "https://host/bot%s/%s".
func WithEndpoint(endpoint string, client *http.Client) Option {
	return func(a *TelegramAlerter) {
		a.endpoint = endpoint
		if client != nil {
			a.client = client
		}
	}
}

func NewTelegramAlerter(token string, chatID int64, opts ...Option) *TelegramAlerter {
	a := &TelegramAlerter{
		token:    token,
		chatID:   chatID,
		endpoint: tgbotapi.APIEndpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *TelegramAlerter) Enabled() bool {
	return a != nil && a.token != "" && a.chatID != 0
}

func (a *TelegramAlerter) connect() (*tgbotapi.BotAPI, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.bot != nil {
		return a.bot, nil
	}
	bot, err := tgbotapi.NewBotAPIWithClient(a.token, a.endpoint, a.client)
	if err != nil {
		return nil, fmt.Errorf("telegram connect: %w", err)
	}
	log.Info().Str("bot", bot.Self.UserName).Msg("[tg] connected")
	a.bot = bot
	return bot, nil
}

func (a *TelegramAlerter) Alert(ctx context.Context, text string) error {
	if !a.Enabled() {
		log.Debug().Msg("[tg][skip] token or chat id empty")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	bot, err := a.connect()
	if err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(a.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := bot.Send(msg); err != nil {
		return fmt.Errorf("telegram sendMessage: %w", err)
	}
	return nil
}

// Escape makes user-supplied text safe inside an HTML-mode message.
func Escape(s string) string {
	return html.EscapeString(s)
}
