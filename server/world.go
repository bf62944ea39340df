package server

import (
	"sort"

	"github.com/sasha-s/go-deadlock"
)

// WorldID 由 WorldManager 单调分配
type WorldID uint64

// World 模拟空间：独占其 Entity 与 Player。
// players 与 entities 以同一个 EntityID 为键，在线玩家两表对齐
type World struct {
	mu   deadlock.RWMutex
	id   WorldID
	Name string

	entities     map[EntityID]*Entity
	players      map[EntityID]*Player
	byConn       map[ConnID]EntityID
	nextEntityID EntityID
}

// NewWorld 创建世界，ID 在 WorldManager.AddWorld 时分配
func NewWorld(name string) *World {
	return &World{
		Name:     name,
		entities: make(map[EntityID]*Entity),
		players:  make(map[EntityID]*Player),
		byConn:   make(map[ConnID]EntityID),
	}
}

func (w *World) ID() WorldID {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.id
}

func (w *World) setID(id WorldID) {
	w.mu.Lock()
	w.id = id
	w.mu.Unlock()
}

// CreateEntity 分配下一个实体 ID（不复用），返回存储中的实例本身
func (w *World) CreateEntity() *Entity {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.createEntityLocked()
}

func (w *World) createEntityLocked() *Entity {
	e := newEntity(w.nextEntityID)
	w.entities[e.id] = e
	w.nextEntityID++
	return e
}

// RemoveEntity 移除实体，同时移除以该 ID 为键的玩家
func (w *World) RemoveEntity(id EntityID) (*Entity, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.entities[id]
	if !ok {
		return nil, false
	}
	delete(w.entities, id)
	w.removePlayerLocked(id)
	return e, true
}

// AddPlayer 为连接创建承载实体与玩家；同一连接在同一世界只能有一个玩家
func (w *World) AddPlayer(conn ConnID) (*Player, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.byConn[conn]; ok {
		return nil, ErrPlayerExists
	}
	e := w.createEntityLocked()
	p := &Player{EntityID: e.id, Entity: e, ConnID: conn}
	w.players[e.id] = p
	w.byConn[conn] = e.id
	return p, nil
}

// RemovePlayer 只移除玩家，实体保留
func (w *World) RemovePlayer(id EntityID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.removePlayerLocked(id)
}

func (w *World) removePlayerLocked(id EntityID) bool {
	p, ok := w.players[id]
	if !ok {
		return false
	}
	delete(w.players, id)
	if cur, ok := w.byConn[p.ConnID]; ok && cur == id {
		delete(w.byConn, p.ConnID)
	}
	return true
}

func (w *World) Entity(id EntityID) (*Entity, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	e, ok := w.entities[id]
	return e, ok
}

func (w *World) Player(id EntityID) (*Player, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	p, ok := w.players[id]
	return p, ok
}

func (w *World) PlayerByConn(conn ConnID) (*Player, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	id, ok := w.byConn[conn]
	if !ok {
		return nil, false
	}
	p, ok := w.players[id]
	return p, ok
}

func (w *World) EntityCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.entities)
}

func (w *World) PlayerCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.players)
}

// WorldSnapshot 管理接口使用的只读副本
type WorldSnapshot struct {
	ID       WorldID       `json:"id"`
	Name     string        `json:"name"`
	Entities int           `json:"entities"`
	Players  []PlayerState `json:"players"`
}

// Snapshot 复制玩家列表后释放世界锁，再逐个读取实体位置
func (w *World) Snapshot() WorldSnapshot {
	w.mu.RLock()
	snap := WorldSnapshot{ID: w.id, Name: w.Name, Entities: len(w.entities)}
	players := make([]*Player, 0, len(w.players))
	for _, p := range w.players {
		players = append(players, p)
	}
	w.mu.RUnlock()

	sort.Slice(players, func(i, j int) bool { return players[i].EntityID < players[j].EntityID })
	snap.Players = make([]PlayerState, 0, len(players))
	for _, p := range players {
		snap.Players = append(snap.Players, p.State())
	}
	return snap
}
