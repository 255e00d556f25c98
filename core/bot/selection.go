package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"ytbot/core/session"
	"ytbot/model"
)

// handleSelection interprets free text while a playlist is loaded:
// "back", "0" for every track, or a 1-based track number.
func (b *Bot) handleSelection(ctx context.Context, chatID int64, text string) {
	s := b.sessions.Get(chatID)
	if !s.Downloading() {
		b.reply(ctx, chatID, noDownloadText)
		return
	}

	input := strings.TrimSpace(text)
	if strings.EqualFold(input, "back") {
		s.Reset()
		b.reply(ctx, chatID, backText)
		return
	}

	tracks, err := s.Tracks(ctx)
	if err != nil {
		b.log.Error("failed to read tracks", zap.Int64("chatID", chatID), zap.Error(err))
		b.reply(ctx, chatID, fmt.Sprintf(failureFormat, err.Error()))
		return
	}

	if input == "0" {
		if len(tracks) == 0 {
			b.reply(ctx, chatID, noTracksText)
			return
		}
		b.downloadAll(ctx, s, tracks)
		return
	}

	n, err := strconv.Atoi(input)
	if err != nil {
		b.reply(ctx, chatID, invalidNumberText)
		return
	}
	if n < 1 || n > len(tracks) {
		b.reply(ctx, chatID, invalidIndexText)
		return
	}
	b.downloadTrack(ctx, s, tracks[n-1])
}

// downloadAll fetches every track in order. The token is checked before each
// track and again once its download returns.
func (b *Bot) downloadAll(ctx context.Context, s *session.Session, tracks []model.Track) {
	token := s.Advance(session.PhaseDownloading)
	defer s.Reset()

	for i, t := range tracks {
		if token.Err() != nil {
			b.stopped(ctx, s.ChatID, i, len(tracks))
			return
		}
		b.reply(ctx, s.ChatID, fmt.Sprintf(downloadingFormat, t.Title))
		audioOnly := t.AudioOnly()
		result, _, _ := b.fetch(ctx, token, s.ChatID, t.URL, audioOnly, loadingTrackText)

		if token.Err() != nil {
			b.stopped(ctx, s.ChatID, i, len(tracks))
			return
		}
		b.send(ctx, s.ChatID, t, audioOnly, result, videoCaption(b.transport.BotName()))
	}
}

func (b *Bot) downloadTrack(ctx context.Context, s *session.Session, t model.Track) {
	token := s.Advance(session.PhaseDownloading)
	defer s.Reset()

	b.reply(ctx, s.ChatID, fmt.Sprintf(downloadingFormat, t.Title))
	audioOnly := t.AudioOnly()
	result, _, _ := b.fetch(ctx, token, s.ChatID, t.URL, audioOnly, loadingTrackText)

	if token.Err() != nil {
		b.stopped(ctx, s.ChatID, 0, 1)
		return
	}
	b.send(ctx, s.ChatID, t, audioOnly, result, trackCaption(b.transport.BotName()))
}

func (b *Bot) send(ctx context.Context, chatID int64, t model.Track, audioOnly bool, result model.DownloadResult, caption string) {
	if !result.OK() {
		b.reply(ctx, chatID, fmt.Sprintf(failureFormat, result.Message))
		return
	}
	if audioOnly {
		b.deliver(ctx, chatID, result.Payload, true, audioName, audioCaption)
		return
	}
	b.deliver(ctx, chatID, result.Payload, false, t.Title+".mp4", caption)
}

func (b *Bot) stopped(ctx context.Context, chatID int64, at, total int) {
	b.log.Info("selection stopped", zap.Int64("chatID", chatID), zap.Int("track", at+1), zap.Int("total", total))
	b.reply(ctx, chatID, stoppedText)
}
