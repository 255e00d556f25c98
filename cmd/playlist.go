package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ytbot/config"
	"ytbot/core/downloader"
)

var (
	playlistURL  string
	playlistJSON bool
)

var playlistCmd = &cobra.Command{
	Use:   "playlist",
	Short: "列出播放列表中的曲目",
	Long:  `使用 yt-dlp --flat-playlist 解析播放列表，只获取元数据，不下载媒体。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if playlistURL == "" {
			return fmt.Errorf("请使用 -u 指定播放列表地址")
		}
		cfg := config.Load()
		initLogger(cfg)

		loader := downloader.NewPlaylistLoader(cfg.YtdlpPath, cfg.PlaylistTimeout, downloader.NewPool(1), nil)
		tracks, err := loader.Load(context.Background(), playlistURL)
		if err != nil {
			return err
		}

		if playlistJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(tracks)
		}
		for i, t := range tracks {
			mode := "video"
			if t.AudioOnly() {
				mode = "audio"
			}
			fmt.Printf("%d: %s [%s]\n   %s\n", i+1, t.Title, mode, t.URL)
		}
		fmt.Printf("共 %d 首\n", len(tracks))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(playlistCmd)
	playlistCmd.Flags().StringVarP(&playlistURL, "url", "u", "", "播放列表地址")
	playlistCmd.Flags().BoolVar(&playlistJSON, "json", false, "以 JSON 输出")
}
