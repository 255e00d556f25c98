package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"ytbot/core/bot"
	"ytbot/logger"
)

// Options configures a Transport.
type Options struct {
	Endpoint string   // Bot API URL format; empty uses the public API
	Debug    bool     // log raw API traffic
	Limiter  *Limiter // nil disables throttling
}

// Transport sends bot replies through the Telegram Bot API.
type Transport struct {
	api     *tgbotapi.BotAPI
	limiter *Limiter
	log     *zap.Logger
}

// New authenticates with token.
func New(token string, opts Options) (*Transport, error) {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	api, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}
	api.Debug = opts.Debug
	t := &Transport{api: api, limiter: opts.Limiter, log: logger.Component("telegram")}
	t.log.Info("authorized", zap.String("account", api.Self.UserName))
	return t, nil
}

// BotName implements bot.Transport.
func (t *Transport) BotName() string {
	return "@" + t.api.Self.UserName
}

func (t *Transport) wait(ctx context.Context, chatID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.limiter.Wait(ctx, chatID)
}

// SendText implements bot.Transport.
func (t *Transport) SendText(ctx context.Context, chatID int64, text string) (bot.MessageRef, error) {
	if err := t.wait(ctx, chatID); err != nil {
		return bot.MessageRef{}, err
	}
	msg, err := t.api.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		return bot.MessageRef{}, fmt.Errorf("send message: %w", err)
	}
	return bot.MessageRef{ChatID: chatID, MessageID: msg.MessageID}, nil
}

// EditText implements bot.Transport.
func (t *Transport) EditText(ctx context.Context, ref bot.MessageRef, text string) error {
	if ref.MessageID == 0 {
		return fmt.Errorf("edit message: no message to edit in chat %d", ref.ChatID)
	}
	if err := t.wait(ctx, ref.ChatID); err != nil {
		return err
	}
	if _, err := t.api.Request(tgbotapi.NewEditMessageText(ref.ChatID, ref.MessageID, text)); err != nil {
		return fmt.Errorf("edit message: %w", err)
	}
	return nil
}

// SendVideo implements bot.Transport.
func (t *Transport) SendVideo(ctx context.Context, chatID int64, name string, data []byte, caption string) error {
	if err := t.wait(ctx, chatID); err != nil {
		return err
	}
	video := tgbotapi.NewVideo(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	video.Caption = caption
	video.SupportsStreaming = true
	if _, err := t.api.Send(video); err != nil {
		return err
	}
	return nil
}

// SendAudio implements bot.Transport.
func (t *Transport) SendAudio(ctx context.Context, chatID int64, name string, data []byte, caption string) error {
	if err := t.wait(ctx, chatID); err != nil {
		return err
	}
	audio := tgbotapi.NewAudio(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	audio.Caption = caption
	if _, err := t.api.Send(audio); err != nil {
		return err
	}
	return nil
}

// Updates long-polls Telegram and emits text messages until ctx is done.
func (t *Transport) Updates(ctx context.Context, timeout int) <-chan bot.Update {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeout
	in := t.api.GetUpdatesChan(u)

	out := make(chan bot.Update)
	go func() {
		defer close(out)
		defer t.api.StopReceivingUpdates()
		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-in:
				if !ok {
					return
				}
				converted, ok := toUpdate(update)
				if !ok {
					continue
				}
				t.log.Debug("received message",
					zap.String("user", converted.Username),
					zap.Int64("chatID", converted.ChatID),
					zap.String("text", converted.Text))
				select {
				case out <- converted:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// toUpdate keeps text messages only.
func toUpdate(update tgbotapi.Update) (bot.Update, bool) {
	msg := update.Message
	if msg == nil || msg.Chat == nil || msg.Text == "" {
		return bot.Update{}, false
	}
	u := bot.Update{
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		Text:      msg.Text,
	}
	if msg.From != nil {
		u.Username = msg.From.UserName
		if u.Username == "" {
			u.Username = msg.From.FirstName
		}
	}
	return u, true
}
