package server

import "github.com/sasha-s/go-deadlock"

// EntityID 在所属 World 生命周期内唯一，单调分配
type EntityID uint32

// Entity 最小的模拟对象：身份 + 位置。仅由 World.CreateEntity 创建
type Entity struct {
	mu  deadlock.RWMutex
	id  EntityID
	pos Vec2
}

func newEntity(id EntityID) *Entity {
	return &Entity{id: id, pos: Zero()}
}

func (e *Entity) ID() EntityID { return e.id }

// Position 读取当前位置（读锁保护，不会读到撕裂的 X/Y）
func (e *Entity) Position() Vec2 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.pos
}

func (e *Entity) SetPosition(p Vec2) {
	e.mu.Lock()
	e.pos = p
	e.mu.Unlock()
}

// Translate 以增量移动，返回新位置
func (e *Entity) Translate(d Vec2) Vec2 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pos = e.pos.Add(d)
	return e.pos
}
