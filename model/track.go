package model

import (
	"net/url"
	"strings"
)

// Track is one playlist entry. It is never modified after loading.
type Track struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// musicHosts are hosts that serve the music-streaming variant of the platform.
var musicHosts = map[string]bool{
	"music.youtube.com": true,
}

// IsMusicURL reports whether raw points at a music-streaming host, which
// selects audio-only downloads.
func IsMusicURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return strings.Contains(strings.ToLower(raw), "music.youtube.com")
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	return musicHosts[host]
}

// AudioOnly reports whether this track should be fetched as audio.
func (t Track) AudioOnly() bool {
	return IsMusicURL(t.URL)
}
