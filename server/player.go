package server

// Player 连接在某个 World 中的游戏身份：绑定一个 Entity 与一个连接。
// 连接只以 ID 引用，World 持有规范存储
type Player struct {
	EntityID EntityID
	Entity   *Entity
	ConnID   ConnID
}

// PlayerState 管理接口输出的轻量状态
type PlayerState struct {
	EntityID EntityID `json:"entity_id"`
	ConnID   ConnID   `json:"conn_id"`
	Pos      Vec2     `json:"pos"`
}

func (p *Player) State() PlayerState {
	return PlayerState{EntityID: p.EntityID, ConnID: p.ConnID, Pos: p.Entity.Position()}
}
