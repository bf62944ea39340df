package server

import (
	"encoding/binary"
	"fmt"
	"math"
)

// PacketType 消息第 0 字节
type PacketType uint8

// 客户端 → 服务端
const (
	PacketPlayerMove  PacketType = 1
	PacketPlayerShoot PacketType = 2
	PacketJoinWorld   PacketType = 3
	PacketLeaveWorld  PacketType = 4
)

// 服务端 → 客户端
const (
	PacketWelcome PacketType = 0x80
	PacketJoined  PacketType = 0x81
	PacketLeft    PacketType = 0x82
)

var packetNames = map[PacketType]string{
	PacketPlayerMove:  "PlayerMove",
	PacketPlayerShoot: "PlayerShoot",
	PacketJoinWorld:   "JoinWorld",
	PacketLeaveWorld:  "LeaveWorld",
	PacketWelcome:     "Welcome",
	PacketJoined:      "Joined",
	PacketLeft:        "Left",
}

func (t PacketType) String() string {
	if n, ok := packetNames[t]; ok {
		return n
	}
	return fmt.Sprintf("PacketType(%d)", uint8(t))
}

// Known 是否为已登记的类型
func (t PacketType) Known() bool {
	_, ok := packetNames[t]
	return ok
}

// Packet 解码后的消息：类型 + 类型相关字段（未解析）
type Packet struct {
	Type    PacketType
	Payload []byte
}

// DecodePacket 读出类型字节。Payload 引用原切片，不要修改
func DecodePacket(data []byte) (Packet, error) {
	if len(data) == 0 {
		return Packet{}, fmt.Errorf("%w: empty message", ErrUnprocessableInput)
	}
	t := PacketType(data[0])
	if !t.Known() {
		return Packet{}, fmt.Errorf("%w: unknown packet type %d", ErrUnprocessablePacket, data[0])
	}
	return Packet{Type: t, Payload: data[1:]}, nil
}

// PacketReader 小端字段游标；越界返回 ErrUnprocessableInput
type PacketReader struct {
	buf []byte
	off int
}

func NewPacketReader(b []byte) *PacketReader { return &PacketReader{buf: b} }

func (r *PacketReader) Remaining() int { return len(r.buf) - r.off }

func (r *PacketReader) next(n int) ([]byte, error) {
	if r.Remaining() < n {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrUnprocessableInput, n, r.off, r.Remaining())
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *PacketReader) Uint8() (uint8, error) {
	b, err := r.next(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *PacketReader) Uint32() (uint32, error) {
	b, err := r.next(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *PacketReader) Uint64() (uint64, error) {
	b, err := r.next(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *PacketReader) Float32() (float32, error) {
	u, err := r.Uint32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(u), nil
}

// PacketWriter 组装出站消息
type PacketWriter struct {
	buf []byte
}

func NewPacketWriter(t PacketType) *PacketWriter {
	return &PacketWriter{buf: []byte{byte(t)}}
}

func (w *PacketWriter) Uint8(v uint8) *PacketWriter {
	w.buf = append(w.buf, v)
	return w
}

func (w *PacketWriter) Uint32(v uint32) *PacketWriter {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
	return w
}

func (w *PacketWriter) Uint64(v uint64) *PacketWriter {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
	return w
}

func (w *PacketWriter) Float32(v float32) *PacketWriter {
	return w.Uint32(math.Float32bits(v))
}

func (w *PacketWriter) Bytes() []byte { return w.buf }
