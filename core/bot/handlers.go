package bot

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ytbot/core/session"
	"ytbot/model"
)

func (b *Bot) handleStart(ctx context.Context, chatID int64) {
	b.reply(ctx, chatID, startText)
}

func (b *Bot) handleHelp(ctx context.Context, chatID int64) {
	b.reply(ctx, chatID, helpText)
}

// handleStop cancels the chat's token. It runs outside the chat mailbox so
// it can reach a running "download all".
func (b *Bot) handleStop(ctx context.Context, chatID int64) {
	if s, ok := b.sessions.Lookup(chatID); ok && s.Stop() {
		b.log.Info("download stopped", zap.Int64("chatID", chatID))
	}
	b.reply(ctx, chatID, stoppedText)
}

func (b *Bot) handleDownloadVideo(ctx context.Context, chatID int64, args []string) {
	if len(args) < 1 {
		b.reply(ctx, chatID, usageVideoText)
		return
	}
	url := args[0]

	s := b.sessions.Get(chatID)
	token := s.Begin(ctx, session.PhaseDownloading)
	defer s.Reset()

	b.log.Info("video requested", zap.Int64("chatID", chatID), zap.String("url", url))
	result, ref, elapsed := b.fetch(ctx, token, chatID, url, false, loadingVideoText)
	if token.Err() != nil {
		// /stop already answered; a finished download is discarded
		b.log.Info("video discarded after stop", zap.Int64("chatID", chatID), zap.String("url", url))
		return
	}
	if !result.OK() {
		b.reply(ctx, chatID, fmt.Sprintf(failureFormat, result.Message))
		return
	}

	b.edit(ctx, ref, fmt.Sprintf(successFormat, elapsed.Seconds()))
	b.deliver(ctx, chatID, result.Payload, false, videoName, videoCaption(b.transport.BotName()))
}

func (b *Bot) handleDownloadPlaylist(ctx context.Context, chatID int64, args []string) {
	if len(args) < 1 {
		b.reply(ctx, chatID, usagePlaylistText)
		return
	}
	url := args[0]

	s := b.sessions.Get(chatID)
	token := s.Begin(ctx, session.PhasePlaylistLoaded)

	progress := b.startProgress(ctx, chatID, loadingPlaylistText)
	tracks, err := b.loader.Load(token, url)
	ref := progress.Wait()

	if token.Err() != nil {
		// /stop already answered
		return
	}
	if err != nil {
		b.log.Warn("playlist load failed", zap.Int64("chatID", chatID), zap.String("url", url), zap.Error(err))
		s.Reset()
		b.reply(ctx, chatID, fmt.Sprintf(playlistFailFormat, url))
		return
	}
	if err := s.SetTracks(ctx, tracks); err != nil {
		b.log.Error("failed to store tracks", zap.Int64("chatID", chatID), zap.Error(err))
		s.Reset()
		b.reply(ctx, chatID, fmt.Sprintf(failureFormat, err.Error()))
		return
	}

	b.log.Info("playlist loaded", zap.Int64("chatID", chatID), zap.Int("tracks", len(tracks)))
	parts := splitMessage(trackListText(tracks), maxMessageLen)
	b.edit(ctx, ref, parts[0])
	for _, part := range parts[1:] {
		b.reply(ctx, chatID, part)
	}
	b.reply(ctx, chatID, selectPromptText)
}

// fetch runs one download next to a loading animation and returns once both
// are done.
func (b *Bot) fetch(ctx, token context.Context, chatID int64, url string, audioOnly bool, loading string) (model.DownloadResult, MessageRef, time.Duration) {
	progress := b.startProgress(ctx, chatID, loading)
	start := time.Now()
	result := b.downloader.Invoke(token, url, audioOnly)
	elapsed := time.Since(start)
	ref := progress.Wait()

	if result.OK() {
		b.log.Info("download finished",
			zap.Int64("chatID", chatID),
			zap.Bool("audioOnly", audioOnly),
			zap.Int("bytes", len(result.Payload)),
			zap.Duration("elapsed", elapsed))
	} else {
		b.log.Warn("download failed", zap.Int64("chatID", chatID), zap.String("url", url), zap.String("reason", result.Message))
	}
	return result, ref, elapsed
}

// deliver sends payload as an attachment, or as a link when it is above the
// upload limit and overflow storage is configured.
func (b *Bot) deliver(ctx context.Context, chatID int64, payload []byte, audioOnly bool, name, caption string) {
	if b.opts.Overflow != nil && b.opts.MaxUploadBytes > 0 && int64(len(payload)) > b.opts.MaxUploadBytes {
		contentType := "video/mp4"
		if audioOnly {
			contentType = "audio/mpeg"
		}
		link, err := b.opts.Overflow.Offload(ctx, name, contentType, payload)
		if err != nil {
			b.log.Error("offload failed", zap.Int64("chatID", chatID), zap.Error(err))
			b.reply(ctx, chatID, fmt.Sprintf(sendErrorFormat, err))
			return
		}
		b.reply(ctx, chatID, fmt.Sprintf(offloadFormat, float64(len(payload))/(1<<20), link))
		return
	}

	var err error
	if audioOnly {
		err = b.transport.SendAudio(ctx, chatID, name, payload, caption)
	} else {
		err = b.transport.SendVideo(ctx, chatID, name, payload, caption)
	}
	if err != nil {
		b.log.Error("failed to send file", zap.Int64("chatID", chatID), zap.String("name", name), zap.Error(err))
		b.reply(ctx, chatID, fmt.Sprintf(sendErrorFormat, err))
	}
}
