package telegram

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// maxChatLimiters bounds the per-chat map; it is reset when exceeded.
const maxChatLimiters = 10000

// Limiter throttles Bot API calls globally and per chat. A zero rate
// disables that level.
type Limiter struct {
	global *rate.Limiter

	chatRPS   float64
	chatBurst int

	mu    sync.Mutex
	chats map[int64]*rate.Limiter
}

// NewLimiter creates a Limiter. Telegram allows roughly 30 messages per
// second overall and about one per second per chat with short bursts.
func NewLimiter(globalRPS, chatRPS float64, chatBurst int) *Limiter {
	l := &Limiter{
		chatRPS:   chatRPS,
		chatBurst: chatBurst,
		chats:     make(map[int64]*rate.Limiter),
	}
	if globalRPS > 0 {
		l.global = rate.NewLimiter(rate.Limit(globalRPS), int(globalRPS)+1)
	}
	if l.chatBurst < 1 {
		l.chatBurst = 1
	}
	return l
}

// Wait blocks until a call to chatID is allowed or ctx is done.
func (l *Limiter) Wait(ctx context.Context, chatID int64) error {
	if l == nil {
		return nil
	}
	if l.global != nil {
		if err := l.global.Wait(ctx); err != nil {
			return err
		}
	}
	if chat := l.chat(chatID); chat != nil {
		return chat.Wait(ctx)
	}
	return nil
}

func (l *Limiter) chat(chatID int64) *rate.Limiter {
	if l.chatRPS <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok := l.chats[chatID]; ok {
		return lim
	}
	if len(l.chats) >= maxChatLimiters {
		l.chats = make(map[int64]*rate.Limiter)
	}
	lim := rate.NewLimiter(rate.Limit(l.chatRPS), l.chatBurst)
	l.chats[chatID] = lim
	return lim
}
