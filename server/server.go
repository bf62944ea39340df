package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// Server 接入层：WebSocket 握手 → WorldManager 准入 → 每连接一个 goroutine
type Server struct {
	cfg        Config
	log        *zap.Logger
	manager    *WorldManager
	dispatcher *Dispatcher
	metrics    *Metrics
	upgrader   websocket.Upgrader

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// closing 置位后不再准入；准入与 wg.Add 在同一把锁内完成
	mu      sync.Mutex
	closing bool
}

// NewServer 创建服务并按配置预建世界
func NewServer(cfg Config, log *zap.Logger, handlers ...PacketHandler) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if len(handlers) == 0 {
		handlers = DefaultHandlers()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:        cfg,
		log:        log,
		manager:    NewWorldManager(ManagerConfig{MaxConnectionCount: cfg.MaxConnectionCount}),
		dispatcher: NewDispatcher(handlers...),
		metrics:    &Metrics{},
		upgrader:   newUpgrader(cfg.AllowedOrigins),
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, name := range cfg.Worlds {
		id := s.manager.AddWorld(NewWorld(name))
		log.Info("world created", zap.Uint64("world", uint64(id)), zap.String("name", name))
	}
	return s
}

func (s *Server) Manager() *WorldManager { return s.manager }

func (s *Server) Metrics() *Metrics { return s.metrics }

// Handler 路由：/ws 接入，其余为管理与监控接口
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.HandleWS)
	mux.HandleFunc("/metrics", s.HandleMetrics)
	mux.HandleFunc("/admin/worlds", s.HandleAdminWorlds)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// ListenAndServe 监听配置地址直到 ctx 取消
func (s *Server) ListenAndServe(ctx context.Context) error {
	l, err := net.Listen("tcp", s.cfg.ListenAddress)
	if err != nil {
		return err
	}
	return s.Serve(ctx, l)
}

// Serve 接受循环独立运行，不会阻塞在任何单个连接上
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{Handler: s.Handler()}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(l) }()
	s.log.Info("server listening", zap.String("addr", l.Addr().String()))

	select {
	case err := <-errCh:
		s.Shutdown(context.Background())
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Shutdown(shutdownCtx)
	return err
}

// Shutdown 关闭所有连接并等待清理完成（或 ctx 超时）
func (s *Server) Shutdown(ctx context.Context) {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.log.Warn("shutdown timed out", zap.Int("connections", s.manager.ConnectionCount()))
	}
}

// HandleWS 握手完成后准入；容量已满时以关闭帧拒绝，不登记任何状态
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	if s.isClosing() {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("upgrade failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}
	t := newWSTransport(ws, r.RemoteAddr, s.cfg)
	c := NewConnection(t, ConnectionOptions{
		Manager:             s.manager,
		Dispatcher:          s.dispatcher,
		Logger:              s.log,
		Metrics:             s.metrics,
		RateLimit:           s.cfg.RateLimit,
		RemoveEntityOnLeave: s.cfg.RemoveEntityOnLeave,
	})

	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		_ = t.CloseWithReason(websocket.CloseGoingAway, "server shutting down")
		return
	}
	if _, err := s.Admit(c); err != nil {
		s.mu.Unlock()
		_ = t.CloseWithReason(websocket.ClosePolicyViolation, err.Error())
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	s.spawn(c)
}

func (s *Server) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

// Admit 准入并发送 Welcome，按配置自动加入第一个世界
func (s *Server) Admit(c *Connection) (ConnID, error) {
	id, err := s.manager.Admit(c)
	if err != nil {
		s.metrics.IncRejected()
		s.log.Warn("connection rejected", zap.String("remote", c.RemoteAddr()), zap.Error(err))
		return 0, err
	}
	s.metrics.IncAdmitted()
	c.logger().Info("connection admitted")
	c.notify(NewPacketWriter(PacketWelcome).Uint64(uint64(id)).Bytes())

	if s.cfg.AutoJoin {
		if worlds := s.manager.Worlds(); len(worlds) > 0 {
			if _, err := c.JoinWorld(worlds[0].ID()); err != nil {
				c.logger().Warn("auto join failed", zap.Error(err))
			}
		}
	}
	return id, nil
}

// spawn 调用方已为该连接执行 wg.Add(1)
func (s *Server) spawn(c *Connection) {
	go func() {
		defer s.wg.Done()
		c.Serve(s.ctx)
	}()
}
