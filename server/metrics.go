package server

import (
	"sync/atomic"
)

// Metrics 记录连接与消息处理的关键计数（用于监控与调试）
type Metrics struct {
	ConnectionsAdmitted int64 // 准入成功
	ConnectionsRejected int64 // 因容量被拒绝
	ConnectionsClosed   int64 // 完成清理的连接
	PacketsHandled      int64 // 被处理器成功处理
	UnprocessableInput  int64 // 空消息或字段截断
	UnprocessablePacket int64 // 未知类型或无处理器
	HandlerErrors       int64 // 处理器内部错误
	RateLimited         int64 // 因限流丢弃
}

func (m *Metrics) IncAdmitted()            { atomic.AddInt64(&m.ConnectionsAdmitted, 1) }
func (m *Metrics) IncRejected()            { atomic.AddInt64(&m.ConnectionsRejected, 1) }
func (m *Metrics) IncClosed()              { atomic.AddInt64(&m.ConnectionsClosed, 1) }
func (m *Metrics) IncPacketsHandled()      { atomic.AddInt64(&m.PacketsHandled, 1) }
func (m *Metrics) IncUnprocessableInput()  { atomic.AddInt64(&m.UnprocessableInput, 1) }
func (m *Metrics) IncUnprocessablePacket() { atomic.AddInt64(&m.UnprocessablePacket, 1) }
func (m *Metrics) IncHandlerErrors()       { atomic.AddInt64(&m.HandlerErrors, 1) }
func (m *Metrics) IncRateLimited()         { atomic.AddInt64(&m.RateLimited, 1) }

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *Metrics) Snapshot() map[string]any {
	return map[string]any{
		"connections_admitted": atomic.LoadInt64(&m.ConnectionsAdmitted),
		"connections_rejected": atomic.LoadInt64(&m.ConnectionsRejected),
		"connections_closed":   atomic.LoadInt64(&m.ConnectionsClosed),
		"packets_handled":      atomic.LoadInt64(&m.PacketsHandled),
		"unprocessable_input":  atomic.LoadInt64(&m.UnprocessableInput),
		"unprocessable_packet": atomic.LoadInt64(&m.UnprocessablePacket),
		"handler_errors":       atomic.LoadInt64(&m.HandlerErrors),
		"rate_limited":         atomic.LoadInt64(&m.RateLimited),
	}
}
