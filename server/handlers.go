package server

import (
	"context"
	"fmt"
)

// PacketHandler 声明可处理的类型，并处理类型字节之后的剩余数据。
// 处理器自行获取所需的 World/Player/Entity 锁
type PacketHandler interface {
	CanHandle(t PacketType) bool
	Handle(ctx context.Context, c *Connection, payload []byte) error
}

// Dispatcher 有序处理器表：按顺序扫描，第一个匹配者处理，不广播
type Dispatcher struct {
	handlers []PacketHandler
}

func NewDispatcher(handlers ...PacketHandler) *Dispatcher {
	return &Dispatcher{handlers: handlers}
}

// DefaultHandlers 内置处理器（PlayerShoot 暂无处理器）
func DefaultHandlers() []PacketHandler {
	return []PacketHandler{
		PlayerMoveHandler{},
		JoinWorldHandler{},
		LeaveWorldHandler{},
	}
}

// Dispatch 无匹配处理器返回 ErrUnprocessablePacket；处理器错误带类型包装返回
func (d *Dispatcher) Dispatch(ctx context.Context, c *Connection, p Packet) error {
	for _, h := range d.handlers {
		if !h.CanHandle(p.Type) {
			continue
		}
		if err := h.Handle(ctx, c, p.Payload); err != nil {
			return fmt.Errorf("%s: %w", p.Type, err)
		}
		return nil
	}
	return fmt.Errorf("%w: no handler for %s", ErrUnprocessablePacket, p.Type)
}

// PlayerMoveHandler payload: x float32, y float32（目标位置，仅做位置记录）
type PlayerMoveHandler struct{}

func (PlayerMoveHandler) CanHandle(t PacketType) bool { return t == PacketPlayerMove }

func (PlayerMoveHandler) Handle(_ context.Context, c *Connection, payload []byte) error {
	r := NewPacketReader(payload)
	x, err := r.Float32()
	if err != nil {
		return err
	}
	y, err := r.Float32()
	if err != nil {
		return err
	}
	p := c.Player()
	if p == nil {
		return ErrNotInWorld
	}
	p.Entity.SetPosition(Vec2{X: x, Y: y})
	return nil
}

// JoinWorldHandler payload: world id uint64
type JoinWorldHandler struct{}

func (JoinWorldHandler) CanHandle(t PacketType) bool { return t == PacketJoinWorld }

func (JoinWorldHandler) Handle(_ context.Context, c *Connection, payload []byte) error {
	id, err := NewPacketReader(payload).Uint64()
	if err != nil {
		return err
	}
	_, err = c.JoinWorld(WorldID(id))
	return err
}

// LeaveWorldHandler 无 payload
type LeaveWorldHandler struct{}

func (LeaveWorldHandler) CanHandle(t PacketType) bool { return t == PacketLeaveWorld }

func (LeaveWorldHandler) Handle(_ context.Context, c *Connection, _ []byte) error {
	if !c.LeaveWorld() {
		return ErrNotInWorld
	}
	return nil
}
