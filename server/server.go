package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"ytbot/core/session"
	"ytbot/logger"
)

// WorkerStats 下载工作池的使用情况
type WorkerStats interface {
	Size() int
	Active() int64
}

// CookieStatus 报告 cookies 文件是否存在
type CookieStatus interface {
	Path() string
	Present() bool
}

// Deps 状态接口读取的组件
type Deps struct {
	Sessions  *session.Manager
	Workers   WorkerStats
	Cookies   CookieStatus // 可以为 nil
	StartedAt time.Time
}

type handler struct {
	deps Deps
	log  *zap.Logger
}

// NewRouter 创建状态 API 路由
func NewRouter(deps Deps) *mux.Router {
	if deps.StartedAt.IsZero() {
		deps.StartedAt = time.Now()
	}
	h := &handler{deps: deps, log: logger.Component("server")}

	router := mux.NewRouter()
	router.Use(corsMiddleware)
	router.HandleFunc("/healthz", h.health).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/api/sessions", h.listSessions).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/api/sessions/{chat_id}", h.getSession).Methods(http.MethodGet, http.MethodOptions)
	return router
}

// 添加 CORS 中间件
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Max-Age", "86400")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type healthResponse struct {
	Status   string       `json:"status"`
	Uptime   string       `json:"uptime"`
	Sessions int          `json:"sessions"`
	Workers  workerHealth `json:"workers"`
	Cookies  *cookieState `json:"cookies,omitempty"`
}

type workerHealth struct {
	Size   int   `json:"size"`
	Active int64 `json:"active"`
}

type cookieState struct {
	Path    string `json:"path"`
	Present bool   `json:"present"`
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:   "ok",
		Uptime:   time.Since(h.deps.StartedAt).Round(time.Second).String(),
		Sessions: h.deps.Sessions.Len(),
	}
	if h.deps.Workers != nil {
		resp.Workers = workerHealth{Size: h.deps.Workers.Size(), Active: h.deps.Workers.Active()}
	}
	if h.deps.Cookies != nil {
		resp.Cookies = &cookieState{Path: h.deps.Cookies.Path(), Present: h.deps.Cookies.Present()}
		if !resp.Cookies.Present {
			resp.Status = "degraded"
		}
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *handler) listSessions(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.deps.Sessions.Snapshot())
}

func (h *handler) getSession(w http.ResponseWriter, r *http.Request) {
	chatID, err := strconv.ParseInt(mux.Vars(r)["chat_id"], 10, 64)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid chat id"})
		return
	}
	s, ok := h.deps.Sessions.Lookup(chatID)
	if !ok {
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	h.writeJSON(w, http.StatusOK, s.Info())
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Warn("failed to encode response", zap.Error(err))
	}
}

// Start 在 addr 上提供服务，ctx 结束后优雅关闭
func Start(ctx context.Context, addr string, handler http.Handler) error {
	log := logger.Component("server")
	// 设置服务器超时
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("status server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	// 创建一个5秒超时的上下文
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("Server stopped")
	return nil
}
