package server

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var errTransportClosed = errors.New("fake transport closed")

// fakeTransport 内存消息流：in 关闭即 io.EOF
type fakeTransport struct {
	in       chan []byte
	done     chan struct{}
	closeErr error

	mu         sync.Mutex
	sent       [][]byte
	closed     bool
	closeCalls int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{in: make(chan []byte, 64), done: make(chan struct{})}
}

func (f *fakeTransport) ReadMessage() ([]byte, error) {
	select {
	case m, ok := <-f.in:
		if !ok {
			return nil, io.EOF
		}
		return m, nil
	case <-f.done:
		return nil, errTransportClosed
	}
}

func (f *fakeTransport) Send(msg []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrConnectionClosed
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCalls++
	if !f.closed {
		f.closed = true
		close(f.done)
	}
	return f.closeErr
}

func (f *fakeTransport) RemoteAddr() string { return "fake:0" }

func (f *fakeTransport) Sent() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.sent...)
}

func newObservedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

type connFixture struct {
	conn      *Connection
	transport *fakeTransport
}

// admitConn 创建并准入一个连接
func admitConn(t *testing.T, m *WorldManager, opts ConnectionOptions) connFixture {
	t.Helper()
	ft := newFakeTransport()
	opts.Manager = m
	c := NewConnection(ft, opts)
	if _, err := m.Admit(c); err != nil {
		t.Fatalf("Admit() error = %v", err)
	}
	return connFixture{conn: c, transport: ft}
}

// serve 在后台运行 Serve，返回的 channel 在 Serve 退出时关闭
func serve(c *Connection) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Serve(context.Background())
	}()
	return done
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for connection to close")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func movePacket(x, y float32) []byte {
	return NewPacketWriter(PacketPlayerMove).Float32(x).Float32(y).Bytes()
}

func joinPacket(id WorldID) []byte {
	return NewPacketWriter(PacketJoinWorld).Uint64(uint64(id)).Bytes()
}
