package downloader

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ytbot/logger"
	"ytbot/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultYtdlpPath = "yt-dlp"

// Invoker fetches one video or audio stream through the external
// downloader, with the media written to stdout and buffered in memory.
type Invoker struct {
	// Path is the downloader executable. Defaults to "yt-dlp".
	Path string
	// CookiesPath is passed with --cookies on every fetch.
	CookiesPath string
	// KillOnCancel binds the subprocess to the caller's context. When false
	// a cancelled caller still waits for the running download to finish.
	KillOnCancel bool

	runner Runner
	pool   *Pool
	log    *zap.Logger
}

// NewInvoker creates an Invoker running on pool. A nil runner uses ExecRunner.
func NewInvoker(path, cookiesPath string, pool *Pool, runner Runner) *Invoker {
	if runner == nil {
		runner = ExecRunner{}
	}
	if pool == nil {
		pool = NewPool(1)
	}
	return &Invoker{
		Path:        path,
		CookiesPath: cookiesPath,
		runner:      runner,
		pool:        pool,
		log:         logger.Component("invoker"),
	}
}

func (i *Invoker) path() string {
	if i.Path != "" {
		return i.Path
	}
	return defaultYtdlpPath
}

// Args builds the downloader arguments for url.
func (i *Invoker) Args(url string, audioOnly bool) []string {
	args := []string{"--cookies", i.CookiesPath}
	if audioOnly {
		args = append(args, "-f", "bestaudio", "-x", "--audio-format", "mp3")
	}
	return append(args, "-o", "-", url)
}

// Invoke downloads url and returns Success(bytes) or Failure(message). It
// never panics and never returns an error: every problem becomes a Failure.
func (i *Invoker) Invoke(ctx context.Context, url string, audioOnly bool) model.DownloadResult {
	runCtx := ctx
	if !i.KillOnCancel {
		runCtx = context.WithoutCancel(ctx)
	}

	jobID := uuid.NewString()
	log := i.log.With(zap.String("job", jobID), zap.String("url", url), zap.Bool("audioOnly", audioOnly))

	// waiting for a worker always follows ctx; only the subprocess is detached
	fut, err := Go(ctx, i.pool, func() model.DownloadResult {
		return i.run(runCtx, log, url, audioOnly)
	})
	if err != nil {
		log.Warn("download not started", zap.Error(err))
		return model.Failure("Error: " + err.Error())
	}
	res, err := fut.Wait(runCtx)
	if err != nil {
		log.Warn("download abandoned", zap.Error(err))
		return model.Failure("Error: " + err.Error())
	}
	return res
}

func (i *Invoker) run(ctx context.Context, log *zap.Logger, url string, audioOnly bool) (res model.DownloadResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic during download", zap.Any("panic", r))
			res = model.Failure(fmt.Sprintf("Error: %v", r))
		}
	}()

	args := i.Args(url, audioOnly)
	log.Info("starting download", zap.String("command", i.path()+" "+strings.Join(args, " ")))
	start := time.Now()

	stdout, stderr, code, err := i.runner.Run(ctx, i.path(), args...)
	if err != nil {
		log.Error("download process failed", zap.Error(err))
		return model.Failure("Error: " + err.Error())
	}
	log.Info("command completed", zap.Int("exitCode", code), zap.Duration("elapsed", time.Since(start)))

	if code != 0 {
		msg := string(stderr)
		if strings.TrimSpace(msg) == "" {
			msg = fmt.Sprintf("%s exited with status %d", i.path(), code)
		}
		log.Error("download failed", zap.String("stderr", msg))
		return model.Failure(msg)
	}
	log.Info("download completed", zap.Int("bytes", len(stdout)))
	return model.Success(stdout)
}
