package server

import (
	"errors"
	"testing"
)

func TestCreateEntityIDsAreNeverReused(t *testing.T) {
	t.Parallel()

	w := NewWorld("test")
	a, b, c := w.CreateEntity(), w.CreateEntity(), w.CreateEntity()
	if a.ID() != 0 || b.ID() != 1 || c.ID() != 2 {
		t.Fatalf("ids = %d,%d,%d, want 0,1,2", a.ID(), b.ID(), c.ID())
	}

	if _, ok := w.RemoveEntity(b.ID()); !ok {
		t.Fatal("RemoveEntity() of live entity returned false")
	}
	d := w.CreateEntity()
	if d.ID() != 3 {
		t.Errorf("id after removal = %d, want 3", d.ID())
	}
	if w.EntityCount() != 3 {
		t.Errorf("EntityCount() = %d, want 3", w.EntityCount())
	}
}

func TestCreateEntityReturnsStoredInstance(t *testing.T) {
	t.Parallel()

	w := NewWorld("test")
	e := w.CreateEntity()
	if e.Position() != Zero() {
		t.Fatalf("new entity at %+v, want origin", e.Position())
	}
	e.SetPosition(Vec2{X: 3, Y: 4})

	stored, ok := w.Entity(e.ID())
	if !ok {
		t.Fatal("Entity() not found")
	}
	if got := stored.Position(); got != (Vec2{X: 3, Y: 4}) {
		t.Errorf("stored position = %+v, want {3 4}", got)
	}
	if got := stored.Translate(Vec2{X: 1, Y: -1}); got != (Vec2{X: 4, Y: 3}) {
		t.Errorf("Translate() = %+v, want {4 3}", got)
	}
}

func TestRemoveEntityAlsoRemovesPlayer(t *testing.T) {
	t.Parallel()

	w := NewWorld("test")
	p, err := w.AddPlayer(7)
	if err != nil {
		t.Fatalf("AddPlayer() error = %v", err)
	}
	if p.EntityID != p.Entity.ID() {
		t.Fatalf("player entity id %d != entity id %d", p.EntityID, p.Entity.ID())
	}

	if _, ok := w.RemoveEntity(p.EntityID); !ok {
		t.Fatal("RemoveEntity() returned false")
	}
	if _, ok := w.Player(p.EntityID); ok {
		t.Error("player survived removal of its entity")
	}
	if _, ok := w.PlayerByConn(7); ok {
		t.Error("connection index still points at removed player")
	}
	// 连接可以重新加入
	if _, err := w.AddPlayer(7); err != nil {
		t.Errorf("AddPlayer() after entity removal error = %v", err)
	}
}

func TestRemoveMissingIsNoop(t *testing.T) {
	t.Parallel()

	w := NewWorld("test")
	if e, ok := w.RemoveEntity(42); ok || e != nil {
		t.Errorf("RemoveEntity(missing) = %v, %v", e, ok)
	}
	if w.RemovePlayer(42) {
		t.Error("RemovePlayer(missing) = true")
	}
}

func TestAddPlayerOncePerConnection(t *testing.T) {
	t.Parallel()

	w := NewWorld("test")
	if _, err := w.AddPlayer(1); err != nil {
		t.Fatalf("AddPlayer() error = %v", err)
	}
	if _, err := w.AddPlayer(1); !errors.Is(err, ErrPlayerExists) {
		t.Fatalf("second AddPlayer() error = %v, want ErrPlayerExists", err)
	}
	if w.EntityCount() != 1 || w.PlayerCount() != 1 {
		t.Errorf("counts = %d entities, %d players, want 1,1", w.EntityCount(), w.PlayerCount())
	}
	if _, err := w.AddPlayer(2); err != nil {
		t.Errorf("AddPlayer() for another connection error = %v", err)
	}
}

func TestRemovePlayerKeepsEntity(t *testing.T) {
	t.Parallel()

	w := NewWorld("test")
	p, _ := w.AddPlayer(1)
	if !w.RemovePlayer(p.EntityID) {
		t.Fatal("RemovePlayer() = false")
	}
	if w.RemovePlayer(p.EntityID) {
		t.Error("second RemovePlayer() = true")
	}
	if _, ok := w.Entity(p.EntityID); !ok {
		t.Error("entity removed together with player")
	}
	if w.PlayerCount() != 0 {
		t.Errorf("PlayerCount() = %d, want 0", w.PlayerCount())
	}
}

func TestWorldSnapshot(t *testing.T) {
	t.Parallel()

	w := NewWorld("arena")
	w.CreateEntity()
	p1, _ := w.AddPlayer(10)
	p2, _ := w.AddPlayer(11)
	p2.Entity.SetPosition(Vec2{X: 1, Y: 2})

	snap := w.Snapshot()
	if snap.Name != "arena" || snap.Entities != 3 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if len(snap.Players) != 2 {
		t.Fatalf("players = %d, want 2", len(snap.Players))
	}
	if snap.Players[0].EntityID != p1.EntityID || snap.Players[1].Pos != (Vec2{X: 1, Y: 2}) {
		t.Errorf("players = %+v", snap.Players)
	}
}
