package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"ytbot/config"
	"ytbot/core/downloader"
	"ytbot/model"
	"ytbot/storage"
)

var (
	fetchURL   string
	fetchAudio bool
	fetchOut   string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "下载单个视频或音频到本地文件",
	Long:  `与机器人相同的方式调用 yt-dlp 一次，把输出写入文件，便于排查 cookies 或网络问题。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if fetchURL == "" {
			return fmt.Errorf("请使用 -u 指定地址")
		}
		cfg := config.Load()
		initLogger(cfg)

		audioOnly := fetchAudio || model.IsMusicURL(fetchURL)
		if fetchOut == "" {
			fetchOut = "video.mp4"
			if audioOnly {
				fetchOut = "audio.mp3"
			}
		}

		invoker := downloader.NewInvoker(cfg.YtdlpPath, cfg.CookiesPath, downloader.NewPool(1), nil)
		invoker.KillOnCancel = true

		start := time.Now()
		result := invoker.Invoke(context.Background(), fetchURL, audioOnly)
		if !result.OK() {
			return fmt.Errorf("下载失败: %s", result.Message)
		}
		if err := os.WriteFile(fetchOut, result.Payload, 0644); err != nil {
			return fmt.Errorf("写入文件失败: %w", err)
		}
		fmt.Printf("✅ %s (%s) in %.2f seconds\n", fetchOut, storage.FormatSize(int64(len(result.Payload))), time.Since(start).Seconds())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().StringVarP(&fetchURL, "url", "u", "", "视频地址")
	fetchCmd.Flags().BoolVarP(&fetchAudio, "audio", "a", false, "只下载音频 (mp3)")
	fetchCmd.Flags().StringVarP(&fetchOut, "output", "o", "", "输出文件")
}
