package server

import (
	"sort"

	"github.com/sasha-s/go-deadlock"
)

// ManagerConfig 准入策略
type ManagerConfig struct {
	MaxConnectionCount int
}

// WorldManager 顶层注册表：持有所有连接与世界，负责 ID 分配与准入。
// 连接与世界 ID 各自单调递增，生命周期内不复用。
// 加锁顺序：WorldManager → World → Connection/Player/Entity
type WorldManager struct {
	cfg ManagerConfig

	mu          deadlock.RWMutex
	connections map[ConnID]*Connection
	nextConnID  ConnID
	worlds      map[WorldID]*World
	nextWorldID WorldID
}

func NewWorldManager(cfg ManagerConfig) *WorldManager {
	return &WorldManager{
		cfg:         cfg,
		connections: make(map[ConnID]*Connection),
		worlds:      make(map[WorldID]*World),
	}
}

// Admit 容量检查、ID 分配与登记在同一把写锁内完成
func (m *WorldManager) Admit(c *Connection) (ConnID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.connections) >= m.cfg.MaxConnectionCount {
		return 0, ErrTooManyConnections
	}
	id := m.nextConnID
	m.nextConnID++
	c.setID(id)
	m.connections[id] = c
	return id, nil
}

// RemoveConnection 幂等，重复移除返回 false
func (m *WorldManager) RemoveConnection(id ConnID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.connections[id]; !ok {
		return false
	}
	delete(m.connections, id)
	return true
}

func (m *WorldManager) Connection(id ConnID) (*Connection, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.connections[id]
	return c, ok
}

func (m *WorldManager) ConnectionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections)
}

// Connections 返回当前连接的副本，按 ID 排序
func (m *WorldManager) Connections() []*Connection {
	m.mu.RLock()
	out := make([]*Connection, 0, len(m.connections))
	ids := make([]ConnID, 0, len(m.connections))
	for id := range m.connections {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		out = append(out, m.connections[id])
	}
	m.mu.RUnlock()
	return out
}

func (m *WorldManager) AddWorld(w *World) WorldID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextWorldID
	m.nextWorldID++
	w.setID(id)
	m.worlds[id] = w
	return id
}

// RemoveWorld 仅从注册表移除；已加入该世界的连接在断开时照常清理
func (m *WorldManager) RemoveWorld(id WorldID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.worlds[id]; !ok {
		return false
	}
	delete(m.worlds, id)
	return true
}

func (m *WorldManager) World(id WorldID) (*World, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.worlds[id]
	return w, ok
}

// Worlds 按 ID 排序返回
func (m *WorldManager) Worlds() []*World {
	m.mu.RLock()
	out := make([]*World, 0, len(m.worlds))
	for _, w := range m.worlds {
		out = append(out, w)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}
