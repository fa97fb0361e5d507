package channels

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/tinyland-inc/truefriend/pkg/logger"
	"github.com/tinyland-inc/truefriend/pkg/model"
)

// TelegramChannel is the Telegram transport, long polling for updates.
// The platform sender key is the numeric Telegram user id.
type TelegramChannel struct {
	*BaseChannel
	token string
	bot   *telego.Bot
	stop  context.CancelFunc
}

func NewTelegramChannel(token string, allowList []string, handler Handler) *TelegramChannel {
	return &TelegramChannel{
		BaseChannel: NewBaseChannel("telegram", model.PlatformTelegram, handler, allowList),
		token:       token,
	}
}

func (c *TelegramChannel) Start(ctx context.Context) error {
	bot, err := telego.NewBot(c.token)
	if err != nil {
		return fmt.Errorf("creating telegram bot: %w", err)
	}
	c.bot = bot

	pollCtx, cancel := context.WithCancel(ctx)
	c.stop = cancel

	updates, err := bot.UpdatesViaLongPolling(pollCtx, nil)
	if err != nil {
		cancel()
		return fmt.Errorf("starting telegram long polling: %w", err)
	}

	c.SetRunning(true)
	go c.consume(pollCtx, updates)
	return nil
}

func (c *TelegramChannel) consume(ctx context.Context, updates <-chan telego.Update) {
	log := logger.C("telegram")
	for update := range updates {
		msg := update.Message
		if msg == nil || msg.Text == "" || msg.From == nil {
			continue
		}

		senderKey := strconv.FormatInt(msg.From.ID, 10)
		reply := c.HandleMessage(ctx, msg.Text, senderKey)
		if reply == "" {
			continue
		}

		_, err := c.bot.SendMessage(ctx, tu.Message(tu.ID(msg.Chat.ID), reply))
		if err != nil {
			log.Warnw("sending reply failed", "chat_id", msg.Chat.ID, "error", err)
		}
	}
	c.SetRunning(false)
}

func (c *TelegramChannel) Stop(_ context.Context) error {
	if c.stop != nil {
		c.stop()
	}
	c.SetRunning(false)
	return nil
}

// Deliver sends a relay envelope to the addressed Telegram user, as a
// document when an attachment is present.
func (c *TelegramChannel) Deliver(ctx context.Context, env model.OutboundEnvelope) error {
	if c.bot == nil {
		return fmt.Errorf("telegram channel not started")
	}

	chatID, err := strconv.ParseInt(env.Address, 10, 64)
	if err != nil {
		return fmt.Errorf("bad telegram address %q: %w", env.Address, err)
	}

	if env.AttachmentPath != "" {
		f, err := os.Open(env.AttachmentPath)
		if err != nil {
			return fmt.Errorf("opening attachment: %w", err)
		}
		defer f.Close()

		doc := tu.Document(tu.ID(chatID), tu.File(f))
		doc.Caption = env.Text
		if _, err := c.bot.SendDocument(ctx, doc); err != nil {
			return fmt.Errorf("sending telegram document: %w", err)
		}
		return nil
	}

	if _, err := c.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), env.Text)); err != nil {
		return fmt.Errorf("sending telegram message: %w", err)
	}
	return nil
}
