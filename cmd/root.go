package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ytbot/config"
	"ytbot/logger"
)

var rootCmd = &cobra.Command{
	Use:   "ytbot",
	Short: "Telegram bot that downloads videos and playlists with yt-dlp.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBot()
	},
	SilenceUsage: true,
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initLogger 根据配置初始化日志
func initLogger(cfg *config.Config) {
	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAge,
		Compress:   cfg.LogCompress,
	})
}
