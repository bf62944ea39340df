package server

import (
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

// wsTransport 把 gorilla websocket 包装成 Transport：
// 读在连接 goroutine 中进行，写由独立的 writePump 从队列发出
type wsTransport struct {
	ws          *websocket.Conn
	remote      string
	readTimeout time.Duration
	pingPeriod  time.Duration

	mu     sync.Mutex
	send   chan []byte
	closed bool
	done   chan struct{}
}

func newWSTransport(ws *websocket.Conn, remote string, cfg Config) *wsTransport {
	t := &wsTransport{
		ws:          ws,
		remote:      remote,
		readTimeout: cfg.ReadTimeout,
		pingPeriod:  cfg.ReadTimeout * 9 / 10,
		send:        make(chan []byte, cfg.SendQueueSize),
		done:        make(chan struct{}),
	}
	if cfg.ReadLimitBytes > 0 {
		ws.SetReadLimit(cfg.ReadLimitBytes)
	}
	t.extendDeadline()
	ws.SetPongHandler(func(string) error { t.extendDeadline(); return nil })
	go t.writePump()
	return t
}

func (t *wsTransport) extendDeadline() {
	if t.readTimeout > 0 {
		_ = t.ws.SetReadDeadline(time.Now().Add(t.readTimeout))
	}
}

func (t *wsTransport) RemoteAddr() string { return t.remote }

// ReadMessage 返回下一条数据消息；正常关闭映射为 io.EOF
func (t *wsTransport) ReadMessage() ([]byte, error) {
	for {
		kind, payload, err := t.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, io.EOF
			}
			return nil, err
		}
		t.extendDeadline()
		if kind == websocket.BinaryMessage || kind == websocket.TextMessage {
			return payload, nil
		}
	}
}

// Send 压入发送队列（非阻塞，满则丢弃）
func (t *wsTransport) Send(msg []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrConnectionClosed
	}
	select {
	case t.send <- msg:
	default:
		// 为了实时性，丢弃而不阻塞处理器
	}
	return nil
}

// Close 发送关闭帧并关闭底层连接，可重复调用
func (t *wsTransport) Close() error {
	return t.CloseWithReason(websocket.CloseNormalClosure, "")
}

func (t *wsTransport) CloseWithReason(code int, reason string) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	close(t.send)
	t.mu.Unlock()

	// 等 writePump 退出后再写关闭帧，避免并发写
	<-t.done
	msg := websocket.FormatCloseMessage(code, reason)
	werr := t.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	cerr := t.ws.Close()
	if cerr != nil {
		return cerr
	}
	if werr != nil && werr != websocket.ErrCloseSent {
		return werr
	}
	return nil
}

// writePump 独立协程，负责从 send 队列写出到 WS，并定时发送 ping
func (t *wsTransport) writePump() {
	defer close(t.done)
	// ping 周期必须短于读超时；未设置读超时则不发 ping
	var pings <-chan time.Time
	if t.pingPeriod > 0 {
		ticker := time.NewTicker(t.pingPeriod)
		defer ticker.Stop()
		pings = ticker.C
	}
	for {
		select {
		case msg, ok := <-t.send:
			if !ok {
				return
			}
			_ = t.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.ws.WriteMessage(websocket.BinaryMessage, msg); err != nil {
				t.drain()
				return
			}
		case <-pings:
			_ = t.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				t.drain()
				return
			}
		}
	}
}

// drain 写失败后丢弃剩余消息直到队列关闭
func (t *wsTransport) drain() {
	for range t.send {
	}
}

func newUpgrader(origins []string) websocket.Upgrader {
	u := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	if len(origins) == 0 {
		u.CheckOrigin = func(r *http.Request) bool { return true }
		return u
	}
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[strings.ToLower(o)] = true
	}
	u.CheckOrigin = func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed[strings.ToLower(origin)]
	}
	return u
}
