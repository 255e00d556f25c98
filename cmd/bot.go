package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ytbot/cache"
	"ytbot/config"
	"ytbot/core/bot"
	"ytbot/core/downloader"
	"ytbot/core/session"
	"ytbot/core/telegram"
	"ytbot/logger"
	"ytbot/server"
	"ytbot/storage"
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "启动 Telegram 机器人",
	Long:  `连接 Telegram 长轮询接收消息，按会话处理下载命令；同时可选启动状态服务。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBot()
	},
}

func init() {
	rootCmd.AddCommand(botCmd)
}

func runBot() error {
	cfg := config.Load()
	initLogger(cfg)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", logger.ErrorField(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool := downloader.NewPool(cfg.MaxConcurrentDownloads)
	invoker := downloader.NewInvoker(cfg.YtdlpPath, cfg.CookiesPath, pool, nil)
	invoker.KillOnCancel = cfg.StopKillsInFlight
	loader := downloader.NewPlaylistLoader(cfg.YtdlpPath, cfg.PlaylistTimeout, pool, nil)

	deps := server.Deps{Workers: pool, StartedAt: time.Now()}
	cookies, err := downloader.WatchCookies(cfg.CookiesPath)
	if err != nil {
		logger.Warn("cookies watcher disabled", logger.String("path", cfg.CookiesPath), logger.ErrorField(err))
	} else {
		defer cookies.Close()
		deps.Cookies = cookies
	}

	var store session.TrackStore
	if cfg.UseRedisSessions() {
		if err := cache.ConnectRedis(cfg); err != nil {
			logger.Fatal("failed to connect to Redis", logger.ErrorField(err))
		}
		defer cache.CloseRedis()
		store = cache.NewTrackCache(cache.RedisClient, cache.DefaultTrackTTL)
		logger.Info("session tracks stored in Redis", logger.String("host", cfg.RedisHost))
	}
	sessions := session.NewManager(store)
	deps.Sessions = sessions

	opts := bot.Options{
		LoadingInterval: cfg.LoadingInterval,
		MaxUploadBytes:  cfg.MaxUploadBytes,
		SessionIdleTTL:  cfg.SessionIdleTTL,
	}
	if cfg.MinioEnabled() {
		client, err := storage.InitMinio(ctx, cfg)
		if err != nil {
			logger.Warn("MinIO unavailable, oversize files will be sent directly", logger.ErrorField(err))
		} else {
			opts.Overflow = storage.NewOffloader(client, cfg.MinioBucket, cfg.MinioLinkTTL)
		}
	}

	transport, err := telegram.New(cfg.TelegramToken, telegram.Options{
		Debug:   cfg.TelegramDebug,
		Limiter: telegram.NewLimiter(cfg.TelegramRPS, cfg.TelegramChatRPS, cfg.TelegramChatBurst),
	})
	if err != nil {
		logger.Fatal("failed to start Telegram transport", logger.ErrorField(err))
	}

	if cfg.StatusAddr != "" {
		go func() {
			if err := server.Start(ctx, cfg.StatusAddr, server.NewRouter(deps)); err != nil {
				logger.Error("status server failed", logger.ErrorField(err))
			}
		}()
	}

	b := bot.New(transport, invoker, loader, sessions, opts)
	b.Run(ctx, transport.Updates(ctx, 60))
	logger.Info("bot stopped")
	return nil
}
