package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/sasha-s/go-deadlock"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ConnID 准入时由 WorldManager 分配
type ConnID uint64

// Transport 外部提供的消息流：按完整消息交付，流结束返回 io.EOF
type Transport interface {
	ReadMessage() ([]byte, error)
	Send(msg []byte) error
	Close() error
	RemoteAddr() string
}

// ConnState Connecting → Active → Closing → Closed
type ConnState int32

const (
	StateConnecting ConnState = iota
	StateActive
	StateClosing
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("ConnState(%d)", int32(s))
}

type ConnectionOptions struct {
	Manager    *WorldManager
	Dispatcher *Dispatcher
	Logger     *zap.Logger
	Metrics    *Metrics
	RateLimit  RateLimitConfig
	// 离开世界（含断开）时是否连同实体一起移除
	RemoveEntityOnLeave bool
}

// Connection 每个 socket 一个：串行读取、解码、分发。
// 只通过 ID/共享句柄引用 World 与 Player
type Connection struct {
	mu      deadlock.RWMutex
	id      ConnID
	session uuid.UUID
	state   ConnState
	world   *World
	player  *Player

	transport     Transport
	manager       *WorldManager
	dispatcher    *Dispatcher
	metrics       *Metrics
	limiter       *rate.Limiter
	log           *zap.Logger
	removeOnLeave bool

	closeOnce sync.Once
}

func NewConnection(t Transport, opts ConnectionOptions) *Connection {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = &Metrics{}
	}
	if opts.Dispatcher == nil {
		opts.Dispatcher = NewDispatcher(DefaultHandlers()...)
	}
	var limiter *rate.Limiter
	if opts.RateLimit.Enabled {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit.MessagesPerSecond), opts.RateLimit.Burst)
	}
	session := uuid.New()
	return &Connection{
		session:       session,
		state:         StateConnecting,
		transport:     t,
		manager:       opts.Manager,
		dispatcher:    opts.Dispatcher,
		metrics:       opts.Metrics,
		limiter:       limiter,
		removeOnLeave: opts.RemoveEntityOnLeave,
		log: opts.Logger.With(
			zap.String("session", session.String()),
			zap.String("remote", t.RemoteAddr()),
		),
	}
}

func (c *Connection) ID() ConnID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.id
}

func (c *Connection) setID(id ConnID) {
	c.mu.Lock()
	c.id = id
	c.log = c.log.With(zap.Uint64("conn", uint64(id)))
	c.mu.Unlock()
}

func (c *Connection) Session() uuid.UUID { return c.session }

func (c *Connection) RemoteAddr() string { return c.transport.RemoteAddr() }

func (c *Connection) State() ConnState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Connection) setState(s ConnState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Connection) logger() *zap.Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.log
}

func (c *Connection) World() *World {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.world
}

func (c *Connection) Player() *Player {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.player
}

// Send 发送一条已编码的出站消息
func (c *Connection) Send(msg []byte) error {
	return c.transport.Send(msg)
}

// Close 关闭底层传输，使 Serve 退出并执行清理
func (c *Connection) Close() error {
	return c.transport.Close()
}

// Serve 连接的读循环，在独立 goroutine 中运行直至 Closed。
// 应用层错误只丢弃当前消息；传输错误、流结束或 ctx 取消进入 Closing
func (c *Connection) Serve(ctx context.Context) {
	stop := context.AfterFunc(ctx, func() { _ = c.transport.Close() })
	defer stop()
	defer c.shutdown()

	c.setState(StateActive)
	log := c.logger()
	log.Info("connection active")

	for {
		data, err := c.transport.ReadMessage()
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				log.Debug("connection stream ended", zap.Error(err))
			} else {
				log.Info("connection read failed", zap.Error(err))
			}
			return
		}
		if c.limiter != nil && !c.limiter.Allow() {
			c.metrics.IncRateLimited()
			log.Warn("rate limit exceeded, message dropped", zap.Int("bytes", len(data)))
			continue
		}
		_ = c.HandleMessage(ctx, data)
	}
}

// HandleMessage 解码并分发一条消息；错误已记录，返回值供调用方判断
func (c *Connection) HandleMessage(ctx context.Context, data []byte) error {
	p, err := DecodePacket(data)
	if err == nil {
		err = c.dispatcher.Dispatch(ctx, c, p)
	}
	switch {
	case err == nil:
		c.metrics.IncPacketsHandled()
		return nil
	case errors.Is(err, ErrUnprocessableInput):
		c.metrics.IncUnprocessableInput()
	case errors.Is(err, ErrUnprocessablePacket):
		c.metrics.IncUnprocessablePacket()
	default:
		c.metrics.IncHandlerErrors()
	}
	c.logger().Warn("message dropped", zap.Int("bytes", len(data)), zap.Error(err))
	return err
}

// JoinWorld 加入指定世界，先离开当前世界
func (c *Connection) JoinWorld(id WorldID) (*Player, error) {
	if c.manager == nil {
		return nil, fmt.Errorf("%w: %d", ErrWorldNotFound, id)
	}
	w, ok := c.manager.World(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrWorldNotFound, id)
	}
	if c.World() == w {
		return nil, ErrPlayerExists
	}
	c.LeaveWorld()

	p, err := w.AddPlayer(c.ID())
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.world, c.player = w, p
	c.mu.Unlock()

	c.logger().Info("joined world", zap.Uint64("world", uint64(id)), zap.Uint32("entity", uint32(p.EntityID)))
	c.notify(NewPacketWriter(PacketJoined).Uint64(uint64(id)).Uint32(uint32(p.EntityID)).Bytes())
	return p, nil
}

// LeaveWorld 解除世界与玩家关联；未加入时返回 false。
// 先释放连接锁再获取世界锁，保持 World → Connection 的加锁顺序
func (c *Connection) LeaveWorld() bool {
	c.mu.Lock()
	w, p := c.world, c.player
	c.world, c.player = nil, nil
	c.mu.Unlock()
	if w == nil || p == nil {
		return false
	}

	if c.removeOnLeave {
		w.RemoveEntity(p.EntityID)
	} else {
		w.RemovePlayer(p.EntityID)
	}
	wid := w.ID()
	c.logger().Info("left world", zap.Uint64("world", uint64(wid)), zap.Uint32("entity", uint32(p.EntityID)))
	if c.State() == StateActive {
		c.notify(NewPacketWriter(PacketLeft).Uint64(uint64(wid)).Bytes())
	}
	return true
}

func (c *Connection) notify(msg []byte) {
	if err := c.Send(msg); err != nil {
		c.logger().Debug("notify failed", zap.Error(err))
	}
}

// shutdown Closing 阶段：无论关闭握手是否成功都执行清理，只执行一次
func (c *Connection) shutdown() {
	c.closeOnce.Do(func() {
		c.setState(StateClosing)
		log := c.logger()
		if err := c.transport.Close(); err != nil {
			log.Debug("transport close failed", zap.Error(err))
		}
		c.LeaveWorld()
		if c.manager != nil {
			c.manager.RemoveConnection(c.ID())
		}
		c.setState(StateClosed)
		c.metrics.IncClosed()
		log.Info("connection closed")
	})
}
