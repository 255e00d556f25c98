package bot

import (
	"context"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
)

// Handle processes one update synchronously. Panics are recovered and
// reported to the chat.
func (b *Bot) Handle(ctx context.Context, u Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("handler panic",
				zap.Int64("chatID", u.ChatID),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			b.reply(ctx, u.ChatID, internalErrorText)
		}
	}()

	cmd, args, isCmd := parseCommand(u.Text)
	if !isCmd {
		b.handleSelection(ctx, u.ChatID, u.Text)
		return
	}

	b.log.Debug("command received", zap.Int64("chatID", u.ChatID), zap.String("user", u.Username), zap.String("command", cmd))
	switch cmd {
	case "start":
		b.handleStart(ctx, u.ChatID)
	case "help":
		b.handleHelp(ctx, u.ChatID)
	case "download_video":
		b.handleDownloadVideo(ctx, u.ChatID, args)
	case "download_playlist":
		b.handleDownloadPlaylist(ctx, u.ChatID, args)
	case "stop":
		b.handleStop(ctx, u.ChatID)
	default:
		b.log.Debug("unknown command ignored", zap.String("command", cmd))
	}
}

// Dispatch queues u on its chat's mailbox so one chat's updates run in order
// while different chats run in parallel. /stop skips the queue.
func (b *Bot) Dispatch(ctx context.Context, u Update) {
	if cmd, _, ok := parseCommand(u.Text); ok && cmd == "stop" {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.Handle(ctx, u)
		}()
		return
	}

	b.mu.Lock()
	box, ok := b.mailboxes[u.ChatID]
	if !ok {
		box = make(chan Update, b.opts.MailboxSize)
		b.mailboxes[u.ChatID] = box
		b.wg.Add(1)
		go b.worker(ctx, u.ChatID, box)
	}
	// a worker only exits with an empty mailbox while holding b.mu
	select {
	case box <- u:
		b.mu.Unlock()
		return
	default:
	}
	b.mu.Unlock()

	// full mailbox: drop rather than block the Run loop
	b.log.Warn("mailbox full, update dropped", zap.Int64("chatID", u.ChatID), zap.Int("queued", b.opts.MailboxSize))
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.reply(ctx, u.ChatID, busyText)
	}()
}

// worker drains one chat's mailbox and exits after MailboxIdle without work.
func (b *Bot) worker(ctx context.Context, chatID int64, box chan Update) {
	defer b.wg.Done()
	idle := time.NewTimer(b.opts.MailboxIdle)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-b.closing:
			for {
				select {
				case u := <-box:
					b.Handle(ctx, u)
				default:
					return
				}
			}
		case u := <-box:
			b.Handle(ctx, u)
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(b.opts.MailboxIdle)
		case <-idle.C:
			b.mu.Lock()
			if len(box) == 0 {
				delete(b.mailboxes, chatID)
				b.mu.Unlock()
				return
			}
			b.mu.Unlock()
			idle.Reset(b.opts.MailboxIdle)
		}
	}
}

// Run dispatches updates until ctx is done or updates is closed. When updates
// is closed the queued updates are still handled before Run returns.
func (b *Bot) Run(ctx context.Context, updates <-chan Update) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go b.sessions.RunJanitor(ctx, b.opts.SessionIdleTTL, 0)

	b.log.Info("Bot started successfully")
	for {
		select {
		case <-ctx.Done():
			b.wg.Wait()
			return
		case u, ok := <-updates:
			if !ok {
				close(b.closing)
				b.wg.Wait()
				return
			}
			b.Dispatch(ctx, u)
		}
	}
}
