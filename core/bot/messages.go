package bot

// User-facing replies.
const (
	startText = "🎉 Welcome to the Video & Playlist Downloader!\n" +
		"Use /help to see available options."

	helpText = "📜 Available commands:\n" +
		"/start - Start the bot\n" +
		"/help - Show available commands\n" +
		"/download_video <url> - Download a single video\n" +
		"/download_playlist <playlist_url> - Load a playlist\n" +
		"/stop - Stop the current download"

	usageVideoText    = "⚠️ Usage: /download_video <url>"
	usagePlaylistText = "⚠️ Usage: /download_playlist <playlist_url>"

	loadingVideoText    = "⌛ Downloading video... Please wait."
	loadingPlaylistText = "⌛ Loading playlist... Please wait."
	loadingTrackText    = "⌛ Downloading track... Please wait."

	stoppedText       = "🛑 Download stopped."
	noDownloadText    = "⚠️ No download in progress. Use /download_playlist to start."
	backText          = "🔙 Back to main menu. Use /help for options."
	noTracksText      = "⚠️ No tracks loaded. Please load a playlist first."
	invalidIndexText  = "⚠️ Invalid track index."
	invalidNumberText = "⚠️ Please enter a valid number or 'back.'"
	selectPromptText  = "🔢 Enter the track number to download, '0' for all, or 'back' to return."
	internalErrorText = "❌ Something went wrong, please try again."
	busyText          = "⏳ Still working on your earlier messages. Please wait or send /stop."

	trackListHeader    = "🎶 Available tracks:\n"
	downloadingFormat  = "📥 Downloading '%s'..."
	successFormat      = "✅ Download successful in %.2f seconds! Sending..."
	failureFormat      = "❌ %s"
	playlistFailFormat = "❌ Failed to load playlist: %s"
	sendErrorFormat    = "❌ Error sending file: %v"
	offloadFormat      = "📦 The file is too large to send here (%.1f MB).\n🔗 %s"

	audioCaption = "🎵 Enjoy your audio!"
	audioName    = "audio.mp3"
	videoName    = "video.mp4"
)

// Telegram rejects messages longer than this.
const maxMessageLen = 4096

func videoCaption(botName string) string {
	return "🌟 Enjoy your cinematic experience! 📽️\n— " + botName + " 🎉"
}

func trackCaption(botName string) string {
	return "🌟 Enjoy your Video! 📽️\n— " + botName + " 🎉"
}
