package server

// Vec2 二维坐标值类型（不做有限性校验，协议层原样接受）
type Vec2 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

// Zero 原点
func Zero() Vec2 { return Vec2{} }

func (v Vec2) Add(o Vec2) Vec2 { return Vec2{X: v.X + o.X, Y: v.Y + o.Y} }
