package bot

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"ytbot/core/session"
	"ytbot/model"
)

func TestStartAndHelp(t *testing.T) {
	h := newHarness(t, nil)
	h.send("/start")
	h.send("/help@testbot")

	texts := h.transport.Texts()
	if len(texts) != 2 || texts[0] != startText || texts[1] != helpText {
		t.Fatalf("texts = %q", texts)
	}
	for _, cmd := range []string{"/start", "/help", "/download_video <url>", "/download_playlist <playlist_url>", "/stop"} {
		if !strings.Contains(helpText, cmd) {
			t.Errorf("help text misses %s", cmd)
		}
	}
}

func TestUsageErrorsLeaveStateAlone(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"/download_video", usageVideoText},
		{"/download_video   ", usageVideoText},
		{"/download_playlist", usagePlaylistText},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			h := newHarness(t, nil)
			h.send(tt.text)
			if got := h.transport.Texts(); len(got) != 1 || got[0] != tt.want {
				t.Fatalf("texts = %q, want [%q]", got, tt.want)
			}
			if h.session().Downloading() {
				t.Fatal("usage error must not change state")
			}
			if len(h.downloader.Calls()) != 0 {
				t.Fatal("usage error must not invoke the downloader")
			}
		})
	}
}

func TestDownloadVideoSuccess(t *testing.T) {
	h := newHarness(t, nil)
	h.send("/download_video https://music.youtube.com/watch?v=x")

	calls := h.downloader.Calls()
	if len(calls) != 1 || calls[0].AudioOnly {
		t.Fatalf("calls = %+v, want one video-mode call", calls)
	}

	events := h.transport.Events()
	if events[0].Kind != "text" || events[0].Text != loadingVideoText {
		t.Fatalf("first event = %+v", events[0])
	}
	var sawSuccess bool
	for _, e := range h.transport.Kinds("edit") {
		if strings.HasPrefix(e.Text, "✅ Download successful in ") && strings.HasSuffix(e.Text, " seconds! Sending...") {
			sawSuccess = true
		}
	}
	if !sawSuccess {
		t.Fatalf("no success edit in %+v", events)
	}

	last := events[len(events)-1]
	if last.Kind != "video" || last.Name != videoName {
		t.Fatalf("last event = %+v, want video", last)
	}
	if want := "🌟 Enjoy your cinematic experience! 📽️\n— @testbot 🎉"; last.Caption != want {
		t.Fatalf("caption = %q, want %q", last.Caption, want)
	}
	if h.session().Downloading() {
		t.Fatal("session should be idle after /download_video")
	}
}

func TestDownloadVideoFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.downloader.results["https://youtu.be/bad"] = model.Failure("ERROR: Video unavailable")
	h.send("/download_video https://youtu.be/bad")

	if got := lastText(h.transport); got != "❌ ERROR: Video unavailable" {
		t.Fatalf("last text = %q", got)
	}
	if len(h.transport.Kinds("video")) != 0 {
		t.Fatal("no video should be sent on failure")
	}
	if h.session().Downloading() {
		t.Fatal("failure must reset the session")
	}
}

func TestPlaylistLoadListsTracks(t *testing.T) {
	tracks := []model.Track{
		{Title: "A", URL: "https://youtube.com/a"},
		{Title: "B", URL: "https://music.youtube.com/b"},
	}
	h := newHarness(t, tracks)
	h.send("/download_playlist https://youtube.com/playlist?list=PL1")

	if h.session().Phase() != session.PhasePlaylistLoaded {
		t.Fatalf("phase = %v, want playlist_loaded", h.session().Phase())
	}
	edits := h.transport.Kinds("edit")
	if len(edits) == 0 || edits[len(edits)-1].Text != "🎶 Available tracks:\n1: A\n2: B" {
		t.Fatalf("edits = %+v", edits)
	}
	if got := lastText(h.transport); got != selectPromptText {
		t.Fatalf("last text = %q, want prompt", got)
	}
	if len(h.downloader.Calls()) != 0 {
		t.Fatal("loading a playlist must not download media")
	}
}

func TestPlaylistLoadFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.loader.err = errors.New("exit status 1")
	h.send("/download_playlist https://bad")

	if got := lastText(h.transport); got != "❌ Failed to load playlist: https://bad" {
		t.Fatalf("last text = %q", got)
	}
	if h.session().Downloading() {
		t.Fatal("playlist failure must reset to idle")
	}
}

func TestSelectAllOrderAndMode(t *testing.T) {
	tracks := []model.Track{
		{Title: "A", URL: "https://youtube.com/a"},
		{Title: "B", URL: "https://music.youtube.com/b"},
	}
	h := newHarness(t, tracks)
	h.send("/download_playlist https://youtube.com/playlist?list=PL1")
	h.send("0")

	want := []invokeCall{
		{URL: "https://youtube.com/a", AudioOnly: false},
		{URL: "https://music.youtube.com/b", AudioOnly: true},
	}
	if got := h.downloader.Calls(); !reflect.DeepEqual(got, want) {
		t.Fatalf("calls = %+v, want %+v", got, want)
	}

	videos := h.transport.Kinds("video")
	if len(videos) != 1 || videos[0].Name != "A.mp4" {
		t.Fatalf("videos = %+v", videos)
	}
	if want := "🌟 Enjoy your cinematic experience! 📽️\n— @testbot 🎉"; videos[0].Caption != want {
		t.Fatalf("caption = %q", videos[0].Caption)
	}
	audios := h.transport.Kinds("audio")
	if len(audios) != 1 || audios[0].Name != audioName || audios[0].Caption != audioCaption {
		t.Fatalf("audios = %+v", audios)
	}

	texts := h.transport.Texts()
	if !containsText(texts, "📥 Downloading 'A'...") || !containsText(texts, "📥 Downloading 'B'...") {
		t.Fatalf("texts = %q", texts)
	}
	if h.session().Downloading() {
		t.Fatal("session should be idle after download all")
	}

	stored, _ := h.session().Tracks(context.Background())
	if !reflect.DeepEqual(stored, tracks) {
		t.Fatalf("tracks mutated: %+v", stored)
	}
}

func TestSelectSingleTrack(t *testing.T) {
	h := newHarness(t, numberedTracks(3))
	h.send("/download_playlist https://youtube.com/playlist?list=PL1")
	h.send(" 2 ")

	calls := h.downloader.Calls()
	if len(calls) != 1 || calls[0].URL != "https://www.youtube.com/watch?v=2" {
		t.Fatalf("calls = %+v", calls)
	}
	videos := h.transport.Kinds("video")
	if len(videos) != 1 || videos[0].Name != "T2.mp4" {
		t.Fatalf("videos = %+v", videos)
	}
	if want := "🌟 Enjoy your Video! 📽️\n— @testbot 🎉"; videos[0].Caption != want {
		t.Fatalf("caption = %q", videos[0].Caption)
	}
	if h.session().Downloading() {
		t.Fatal("session should be idle after a single track")
	}
}

func TestSelectionRejections(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"index past end", "3", invalidIndexText},
		{"negative index", "-1", invalidIndexText},
		{"not a number", "abc", invalidNumberText},
		{"empty", "   ", invalidNumberText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracks := numberedTracks(2)
			h := newHarness(t, tracks)
			h.send("/download_playlist https://youtube.com/playlist?list=PL1")
			h.send(tt.input)

			if got := lastText(h.transport); got != tt.want {
				t.Fatalf("last text = %q, want %q", got, tt.want)
			}
			if len(h.downloader.Calls()) != 0 {
				t.Fatal("rejected input must not invoke the downloader")
			}
			if h.session().Phase() != session.PhasePlaylistLoaded {
				t.Fatalf("phase = %v, want unchanged playlist_loaded", h.session().Phase())
			}
			stored, _ := h.session().Tracks(context.Background())
			if !reflect.DeepEqual(stored, tracks) {
				t.Fatalf("tracks mutated: %+v", stored)
			}
		})
	}
}

func TestEmptyPlaylist(t *testing.T) {
	h := newHarness(t, []model.Track{})
	h.send("/download_playlist https://youtube.com/playlist?list=EMPTY")

	edits := h.transport.Kinds("edit")
	if len(edits) == 0 || edits[len(edits)-1].Text != trackListHeader {
		t.Fatalf("edits = %+v", edits)
	}
	h.send("0")
	if got := lastText(h.transport); got != noTracksText {
		t.Fatalf("last text = %q, want %q", got, noTracksText)
	}
	h.send("1")
	if got := lastText(h.transport); got != invalidIndexText {
		t.Fatalf("last text = %q, want %q", got, invalidIndexText)
	}
	if len(h.downloader.Calls()) != 0 {
		t.Fatal("empty playlist must not download")
	}
}

func TestSelectionWithoutDownload(t *testing.T) {
	for _, input := range []string{"0", "1", "back", "hello"} {
		t.Run(input, func(t *testing.T) {
			h := newHarness(t, numberedTracks(2))
			h.send(input)
			if got := h.transport.Texts(); len(got) != 1 || got[0] != noDownloadText {
				t.Fatalf("texts = %q", got)
			}
			if len(h.downloader.Calls()) != 0 {
				t.Fatal("no download may be attempted")
			}
		})
	}
}

func TestBackResetsToIdle(t *testing.T) {
	tracks := numberedTracks(2)
	h := newHarness(t, tracks)
	h.send("/download_playlist https://youtube.com/playlist?list=PL1")
	h.send("BACK")

	if got := lastText(h.transport); got != backText {
		t.Fatalf("last text = %q", got)
	}
	if h.session().Downloading() {
		t.Fatal("back must reset to idle")
	}
	stored, _ := h.session().Tracks(context.Background())
	if !reflect.DeepEqual(stored, tracks) {
		t.Fatalf("tracks mutated: %+v", stored)
	}
	h.send("1")
	if got := lastText(h.transport); got != noDownloadText {
		t.Fatalf("after back, last text = %q", got)
	}
}

func TestStopBetweenTracks(t *testing.T) {
	h := newHarness(t, numberedTracks(5))
	h.transport.onFile = func(name string) {
		if name == "T2.mp4" {
			h.send("/stop")
		}
	}
	h.send("/download_playlist https://youtube.com/playlist?list=PL1")
	h.send("0")

	if calls := h.downloader.Calls(); len(calls) != 2 {
		t.Fatalf("downloads = %d, want 2", len(calls))
	}
	if videos := h.transport.Kinds("video"); len(videos) != 2 {
		t.Fatalf("videos = %+v", videos)
	}
	texts := h.transport.Texts()
	if containsText(texts, "📥 Downloading 'T3'...") {
		t.Fatal("track 3 must not start")
	}
	if got := lastText(h.transport); got != stoppedText {
		t.Fatalf("last text = %q, want %q", got, stoppedText)
	}
	if h.session().Downloading() {
		t.Fatal("session should be idle after stop")
	}
}

func TestStopDuringDownloadSkipsDelivery(t *testing.T) {
	h := newHarness(t, numberedTracks(3))
	h.downloader.hook = func(n int, _ string) {
		if n == 1 {
			h.send("/stop")
		}
	}
	h.send("/download_playlist https://youtube.com/playlist?list=PL1")
	h.send("0")

	if calls := h.downloader.Calls(); len(calls) != 1 {
		t.Fatalf("downloads = %d, want 1", len(calls))
	}
	if videos := h.transport.Kinds("video"); len(videos) != 0 {
		t.Fatalf("a stopped download must not be delivered: %+v", videos)
	}
	if got := lastText(h.transport); got != stoppedText {
		t.Fatalf("last text = %q", got)
	}
}

func TestStopDuringVideoDownloadDiscardsResult(t *testing.T) {
	h := newHarness(t, nil)
	h.downloader.hook = func(int, string) { h.send("/stop") }
	h.send("/download_video https://youtube.com/watch?v=abc")

	if videos := h.transport.Kinds("video"); len(videos) != 0 {
		t.Fatalf("a stopped video must not be delivered: %+v", videos)
	}
	for _, e := range h.transport.Kinds("edit") {
		if strings.HasPrefix(e.Text, "✅") {
			t.Fatalf("unexpected success edit %q after stop", e.Text)
		}
	}
	want := []string{loadingVideoText, stoppedText}
	if got := h.transport.Texts(); !reflect.DeepEqual(got, want) {
		t.Fatalf("texts = %q, want %q", got, want)
	}
	if h.session().Downloading() {
		t.Fatal("session still downloading after stop")
	}
}

func TestStopWhenIdle(t *testing.T) {
	h := newHarness(t, nil)
	h.send("/stop")
	if got := h.transport.Texts(); len(got) != 1 || got[0] != stoppedText {
		t.Fatalf("texts = %q", got)
	}
}

func TestSendFailureIsReported(t *testing.T) {
	h := newHarness(t, numberedTracks(1))
	h.transport.sendErr = errSend
	h.send("/download_playlist https://youtube.com/playlist?list=PL1")
	h.send("1")

	if got := lastText(h.transport); got != "❌ Error sending file: request entity too large" {
		t.Fatalf("last text = %q", got)
	}
}

func TestOversizePayloadIsOffloaded(t *testing.T) {
	h := newHarness(t, nil)
	overflow := &fakeOverflow{}
	h.bot.opts.Overflow = overflow
	h.bot.opts.MaxUploadBytes = 4
	h.send("/download_video https://youtu.be/big")

	if len(h.transport.Kinds("video")) != 0 {
		t.Fatal("oversize payload must not be attached")
	}
	if len(overflow.names) != 1 || overflow.names[0] != videoName {
		t.Fatalf("offloaded = %q", overflow.names)
	}
	if got := lastText(h.transport); !strings.Contains(got, "https://files.example/"+videoName) {
		t.Fatalf("last text = %q", got)
	}
}

func TestHandlerPanicIsRecovered(t *testing.T) {
	h := newHarness(t, nil)
	h.downloader.hook = func(int, string) { panic("boom") }
	h.send("/download_video https://youtu.be/x")

	if got := lastText(h.transport); got != internalErrorText {
		t.Fatalf("last text = %q", got)
	}
	if h.session().Downloading() {
		t.Fatal("deferred reset must still run after a panic")
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	h := newHarness(t, numberedTracks(2))
	ctx := context.Background()
	h.bot.Handle(ctx, Update{ChatID: 1, Text: "/download_playlist https://youtube.com/playlist?list=PL1"})
	h.bot.Handle(ctx, Update{ChatID: 2, Text: "1"})

	for _, e := range h.transport.Events() {
		if e.ChatID == 2 && e.Kind == "text" && e.Text != noDownloadText {
			t.Fatalf("chat 2 got %q", e.Text)
		}
	}
	if !h.bot.Sessions().Get(1).Downloading() {
		t.Fatal("chat 1 should still have its playlist loaded")
	}
}

func TestRunKeepsPerChatOrder(t *testing.T) {
	h := newHarness(t, numberedTracks(2))
	updates := make(chan Update, 8)
	updates <- Update{ChatID: 1, Text: "/download_playlist https://youtube.com/playlist?list=PL1"}
	updates <- Update{ChatID: 2, Text: "/start"}
	updates <- Update{ChatID: 1, Text: "2"}
	close(updates)

	done := make(chan struct{})
	go func() {
		h.bot.Run(context.Background(), updates)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after updates closed")
	}

	calls := h.downloader.Calls()
	if len(calls) != 1 || calls[0].URL != "https://www.youtube.com/watch?v=2" {
		t.Fatalf("calls = %+v, want track 2 after the playlist loaded", calls)
	}
	var sawStart bool
	for _, e := range h.transport.Events() {
		if e.ChatID == 2 && e.Text == startText {
			sawStart = true
		}
	}
	if !sawStart {
		t.Fatal("chat 2 was not served")
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text  string
		cmd   string
		args  []string
		isCmd bool
	}{
		{"/start", "start", []string{}, true},
		{"/Download_Video@testbot  https://x  extra", "download_video", []string{"https://x", "extra"}, true},
		{"hello", "", nil, false},
		{"", "", nil, false},
	}
	for _, tt := range tests {
		cmd, args, ok := parseCommand(tt.text)
		if ok != tt.isCmd || cmd != tt.cmd {
			t.Errorf("parseCommand(%q) = %q, %v; want %q, %v", tt.text, cmd, ok, tt.cmd, tt.isCmd)
		}
		if ok && len(args) != len(tt.args) {
			t.Errorf("parseCommand(%q) args = %q, want %q", tt.text, args, tt.args)
		}
	}
}

func TestFullMailboxDoesNotBlockOtherChats(t *testing.T) {
	const chatA, chatB int64 = 1, 2
	h := newHarness(t, numberedTracks(3))
	h.bot = New(h.transport, h.downloader, h.loader, session.NewManager(nil), Options{
		LoadingInterval: time.Millisecond,
		MailboxSize:     2,
	})

	gate := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	h.downloader.hook = func(int, string) {
		once.Do(func() { close(started) })
		<-gate
	}

	updates := make(chan Update)
	done := make(chan struct{})
	go func() {
		h.bot.Run(context.Background(), updates)
		close(done)
	}()

	push := func(u Update) {
		t.Helper()
		select {
		case updates <- u:
		case <-time.After(time.Second):
			t.Fatalf("update %q for chat %d was not accepted", u.Text, u.ChatID)
		}
	}

	push(Update{ChatID: chatA, Text: "/download_playlist https://youtube.com/playlist?list=PL1"})
	push(Update{ChatID: chatA, Text: "0"})
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		close(gate)
		t.Fatal("download never started")
	}

	for i := 0; i < 20; i++ {
		push(Update{ChatID: chatA, Text: "hello"})
	}
	push(Update{ChatID: chatB, Text: "/start"})
	push(Update{ChatID: chatA, Text: "/stop"})

	waitFor(t, func() bool {
		var sawStart, sawStop bool
		for _, e := range h.transport.Kinds("text") {
			if e.ChatID == chatB && e.Text == startText {
				sawStart = true
			}
			if e.ChatID == chatA && e.Text == stoppedText {
				sawStop = true
			}
		}
		return sawStart && sawStop
	})
	close(gate)
	close(updates)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after updates closed")
	}
	if !h.transport.HasText(busyText) {
		t.Fatal("chat A was not told its extra messages were dropped")
	}
	if calls := h.downloader.Calls(); len(calls) != 1 {
		t.Fatalf("downloads = %d, want 1 before stop", len(calls))
	}
}

// waitFor polls cond until it holds or the test times out.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met within 5s")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
