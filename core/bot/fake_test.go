package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"ytbot/core/session"
	"ytbot/model"
)

type event struct {
	Kind    string // text, edit, video, audio
	ChatID  int64
	Text    string
	Name    string
	Caption string
	Size    int
}

type fakeTransport struct {
	mu      sync.Mutex
	events  []event
	nextID  int
	sendErr error
	onFile  func(name string)
}

func (f *fakeTransport) record(e event) {
	f.mu.Lock()
	f.events = append(f.events, e)
	f.mu.Unlock()
}

func (f *fakeTransport) SendText(_ context.Context, chatID int64, text string) (MessageRef, error) {
	f.mu.Lock()
	f.nextID++
	id := f.nextID
	f.events = append(f.events, event{Kind: "text", ChatID: chatID, Text: text})
	f.mu.Unlock()
	return MessageRef{ChatID: chatID, MessageID: id}, nil
}

func (f *fakeTransport) EditText(_ context.Context, ref MessageRef, text string) error {
	f.record(event{Kind: "edit", ChatID: ref.ChatID, Text: text})
	return nil
}

func (f *fakeTransport) sendFile(kind string, chatID int64, name string, data []byte, caption string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.record(event{Kind: kind, ChatID: chatID, Name: name, Caption: caption, Size: len(data)})
	if f.onFile != nil {
		f.onFile(name)
	}
	return nil
}

func (f *fakeTransport) SendVideo(_ context.Context, chatID int64, name string, data []byte, caption string) error {
	return f.sendFile("video", chatID, name, data, caption)
}

func (f *fakeTransport) SendAudio(_ context.Context, chatID int64, name string, data []byte, caption string) error {
	return f.sendFile("audio", chatID, name, data, caption)
}

func (f *fakeTransport) BotName() string { return "@testbot" }

func (f *fakeTransport) Events() []event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]event(nil), f.events...)
}

func (f *fakeTransport) Kinds(kind string) []event {
	var out []event
	for _, e := range f.Events() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Texts returns every sent (not edited) text.
func (f *fakeTransport) Texts() []string {
	var out []string
	for _, e := range f.Kinds("text") {
		out = append(out, e.Text)
	}
	return out
}

func (f *fakeTransport) HasText(text string) bool {
	for _, t := range f.Texts() {
		if t == text {
			return true
		}
	}
	return false
}

type invokeCall struct {
	URL       string
	AudioOnly bool
}

type fakeDownloader struct {
	mu      sync.Mutex
	calls   []invokeCall
	results map[string]model.DownloadResult
	hook    func(n int, url string)
}

func (f *fakeDownloader) Invoke(_ context.Context, url string, audioOnly bool) model.DownloadResult {
	f.mu.Lock()
	f.calls = append(f.calls, invokeCall{URL: url, AudioOnly: audioOnly})
	n := len(f.calls)
	res, ok := f.results[url]
	hook := f.hook
	f.mu.Unlock()

	if hook != nil {
		hook(n, url)
	}
	if !ok {
		res = model.Success([]byte("payload:" + url))
	}
	return res
}

func (f *fakeDownloader) Calls() []invokeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]invokeCall(nil), f.calls...)
}

type fakeLoader struct {
	tracks []model.Track
	err    error
}

func (f *fakeLoader) Load(_ context.Context, _ string) ([]model.Track, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tracks, nil
}

type fakeOverflow struct {
	mu    sync.Mutex
	names []string
	err   error
}

func (f *fakeOverflow) Offload(_ context.Context, name, _ string, _ []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.names = append(f.names, name)
	return "https://files.example/" + name, nil
}

type harness struct {
	bot        *Bot
	transport  *fakeTransport
	downloader *fakeDownloader
	loader     *fakeLoader
}

const testChat int64 = 100

func newHarness(t *testing.T, tracks []model.Track) *harness {
	t.Helper()
	h := &harness{
		transport:  &fakeTransport{},
		downloader: &fakeDownloader{results: map[string]model.DownloadResult{}},
		loader:     &fakeLoader{tracks: tracks},
	}
	h.bot = New(h.transport, h.downloader, h.loader, session.NewManager(nil), Options{
		LoadingInterval: time.Millisecond,
	})
	return h
}

func (h *harness) send(text string) {
	h.bot.Handle(context.Background(), Update{ChatID: testChat, Text: text})
}

func (h *harness) session() *session.Session {
	return h.bot.Sessions().Get(testChat)
}

func numberedTracks(n int) []model.Track {
	tracks := make([]model.Track, n)
	for i := range tracks {
		tracks[i] = model.Track{
			Title: fmt.Sprintf("T%d", i+1),
			URL:   fmt.Sprintf("https://www.youtube.com/watch?v=%d", i+1),
		}
	}
	return tracks
}

var errSend = errors.New("request entity too large")

func lastText(f *fakeTransport) string {
	texts := f.Texts()
	if len(texts) == 0 {
		return ""
	}
	return texts[len(texts)-1]
}

func containsText(texts []string, sub string) bool {
	for _, t := range texts {
		if strings.Contains(t, sub) {
			return true
		}
	}
	return false
}
