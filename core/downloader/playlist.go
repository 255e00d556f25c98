package downloader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ytbot/logger"
	"ytbot/model"

	"go.uber.org/zap"
)

// ErrPlaylistLoad wraps every playlist resolution failure.
var ErrPlaylistLoad = errors.New("failed to load playlist")

// PlaylistLoader resolves a playlist URL into its tracks without
// downloading media (yt-dlp --flat-playlist -J).
type PlaylistLoader struct {
	// Path is the downloader executable. Defaults to "yt-dlp".
	Path string
	// Timeout bounds one resolution; zero means no limit.
	Timeout time.Duration

	runner Runner
	pool   *Pool
	log    *zap.Logger
}

// NewPlaylistLoader creates a loader running on pool. A nil runner uses ExecRunner.
func NewPlaylistLoader(path string, timeout time.Duration, pool *Pool, runner Runner) *PlaylistLoader {
	if runner == nil {
		runner = ExecRunner{}
	}
	if pool == nil {
		pool = NewPool(1)
	}
	return &PlaylistLoader{
		Path:    path,
		Timeout: timeout,
		runner:  runner,
		pool:    pool,
		log:     logger.Component("playlist"),
	}
}

func (l *PlaylistLoader) path() string {
	if l.Path != "" {
		return l.Path
	}
	return defaultYtdlpPath
}

// Args builds the metadata-only arguments for playlistURL.
func (l *PlaylistLoader) Args(playlistURL string) []string {
	return []string{"--flat-playlist", "-J", playlistURL}
}

type loadResult struct {
	tracks []model.Track
	err    error
}

// Load returns the playlist's tracks in order. An empty playlist is not an
// error. Failures wrap ErrPlaylistLoad.
func (l *PlaylistLoader) Load(ctx context.Context, playlistURL string) ([]model.Track, error) {
	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}

	fut, err := Go(ctx, l.pool, func() loadResult {
		tracks, err := l.load(ctx, playlistURL)
		return loadResult{tracks: tracks, err: err}
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPlaylistLoad, err)
	}
	res, err := fut.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPlaylistLoad, err)
	}
	return res.tracks, res.err
}

func (l *PlaylistLoader) load(ctx context.Context, playlistURL string) ([]model.Track, error) {
	log := l.log.With(zap.String("url", playlistURL))
	log.Info("loading playlist")

	stdout, stderr, code, err := l.runner.Run(ctx, l.path(), l.Args(playlistURL)...)
	if err != nil {
		log.Error("playlist process failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrPlaylistLoad, err)
	}
	if code != 0 {
		msg := strings.TrimSpace(string(stderr))
		log.Error("playlist command failed", zap.Int("exitCode", code), zap.String("stderr", msg))
		return nil, fmt.Errorf("%w: exit status %d: %s", ErrPlaylistLoad, code, msg)
	}

	tracks, err := parsePlaylist(stdout)
	if err != nil {
		log.Error("playlist output rejected", zap.Error(err))
		return nil, err
	}
	log.Info("playlist loaded", zap.Int("tracks", len(tracks)))
	return tracks, nil
}

// flatPlaylist is the subset of yt-dlp's -J output we read.
type flatPlaylist struct {
	Title   string       `json:"title"`
	Entries *[]flatEntry `json:"entries"`
}

type flatEntry struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	WebpageURL string `json:"webpage_url"`
}

func parsePlaylist(data []byte) ([]model.Track, error) {
	var doc flatPlaylist
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parse yt-dlp output: %v", ErrPlaylistLoad, err)
	}
	if doc.Entries == nil {
		return nil, fmt.Errorf("%w: no entries in yt-dlp output", ErrPlaylistLoad)
	}

	tracks := make([]model.Track, 0, len(*doc.Entries))
	for _, e := range *doc.Entries {
		tracks = append(tracks, model.Track{Title: e.Title, URL: entryURL(e)})
	}
	return tracks, nil
}

// entryURL picks the entry's source URL, falling back to the watch page
// built from its id.
func entryURL(e flatEntry) string {
	switch {
	case e.URL != "":
		return e.URL
	case e.WebpageURL != "":
		return e.WebpageURL
	case e.ID != "":
		return "https://www.youtube.com/watch?v=" + e.ID
	}
	return ""
}
