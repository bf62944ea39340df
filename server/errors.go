package server

import "errors"

var (
	// 准入
	ErrTooManyConnections = errors.New("too many connections")

	// 消息级错误：只丢弃当前消息，连接保持 Active
	ErrUnprocessableInput  = errors.New("unprocessable input")
	ErrUnprocessablePacket = errors.New("unprocessable packet")

	// 处理器内部错误
	ErrPlayerExists  = errors.New("connection already has a player in this world")
	ErrWorldNotFound = errors.New("world not found")
	ErrNotInWorld    = errors.New("connection has not joined a world")

	ErrConnectionClosed = errors.New("connection closed")
)
