package bot

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"ytbot/core/session"
	"ytbot/logger"
	"ytbot/model"
)

// MessageRef identifies a sent message so it can be edited later.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Update is one incoming chat message.
type Update struct {
	ChatID    int64
	MessageID int
	Username  string
	Text      string
}

// Transport delivers replies to the chat.
type Transport interface {
	SendText(ctx context.Context, chatID int64, text string) (MessageRef, error)
	EditText(ctx context.Context, ref MessageRef, text string) error
	SendVideo(ctx context.Context, chatID int64, name string, data []byte, caption string) error
	SendAudio(ctx context.Context, chatID int64, name string, data []byte, caption string) error
	// BotName is the bot identity shown in captions, e.g. "@ytbot".
	BotName() string
}

// Downloader fetches one media payload.
type Downloader interface {
	Invoke(ctx context.Context, url string, audioOnly bool) model.DownloadResult
}

// PlaylistLoader resolves a playlist into tracks.
type PlaylistLoader interface {
	Load(ctx context.Context, url string) ([]model.Track, error)
}

// Overflow stores payloads too large for the chat and returns a download link.
type Overflow interface {
	Offload(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// Options tunes the bot.
type Options struct {
	LoadingInterval time.Duration // delay between progress frames
	MaxUploadBytes  int64         // 0 means no limit
	Overflow        Overflow      // nil sends oversize payloads anyway
	MailboxSize     int
	MailboxIdle     time.Duration // idle chat workers exit after this
	SessionIdleTTL  time.Duration // idle sessions are evicted after this; 0 keeps them
}

// Bot routes chat updates to handlers.
type Bot struct {
	transport  Transport
	downloader Downloader
	loader     PlaylistLoader
	sessions   *session.Manager
	opts       Options
	log        *zap.Logger

	mu        sync.Mutex
	mailboxes map[int64]chan Update
	closing   chan struct{}
	wg        sync.WaitGroup
}

// New creates a Bot.
func New(transport Transport, downloader Downloader, loader PlaylistLoader, sessions *session.Manager, opts Options) *Bot {
	if opts.LoadingInterval <= 0 {
		opts.LoadingInterval = 500 * time.Millisecond
	}
	if opts.MailboxSize <= 0 {
		opts.MailboxSize = 16
	}
	if opts.MailboxIdle <= 0 {
		opts.MailboxIdle = 5 * time.Minute
	}
	if sessions == nil {
		sessions = session.NewManager(nil)
	}
	return &Bot{
		transport:  transport,
		downloader: downloader,
		loader:     loader,
		sessions:   sessions,
		opts:       opts,
		log:        logger.Component("bot"),
		mailboxes:  make(map[int64]chan Update),
		closing:    make(chan struct{}),
	}
}

// Sessions exposes the session manager.
func (b *Bot) Sessions() *session.Manager {
	return b.sessions
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) MessageRef {
	ref, err := b.transport.SendText(ctx, chatID, truncate(text, maxMessageLen))
	if err != nil {
		b.log.Warn("failed to send message", zap.Int64("chatID", chatID), zap.Error(err))
	}
	return ref
}

func (b *Bot) edit(ctx context.Context, ref MessageRef, text string) {
	if err := b.transport.EditText(ctx, ref, truncate(text, maxMessageLen)); err != nil {
		b.log.Warn("failed to edit message", zap.Int64("chatID", ref.ChatID), zap.Int("messageID", ref.MessageID), zap.Error(err))
	}
}
