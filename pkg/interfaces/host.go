// Package interfaces 定义 netid-manager 依赖的外部协作者接口。
//
// 本文件定义 Host 接口：NIM 赖以收发消息的底层传输。spec §1 / §6 将
// "the underlying message transport" 列为范围外的协作者——本包只声明
// NIM 需要的最小形状（对齐 go-dep2p 的 pkg/interfaces.Host/Stream），
// 不实现真正的网络传输。
package interfaces

import (
	"context"
	"time"
)

// Host 是 NIM 用来打开/接受流的最小传输抽象。
type Host interface {
	// ID 返回本地节点 ID。
	ID() string

	// SetStreamHandler 为指定协议设置流处理器。
	SetStreamHandler(protocolID string, handler StreamHandler)

	// RemoveStreamHandler 移除指定协议的流处理器。
	RemoveStreamHandler(protocolID string)

	// NewStream 创建到指定节点的新流。
	NewStream(ctx context.Context, peerID string, protocolID string) (Stream, error)
}

// StreamHandler 定义流处理函数类型。
type StreamHandler func(Stream)

// Stream 定义 NIM 使用的双向流接口。
type Stream interface {
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	Close() error

	// SetDeadline 设置读写超时；零值表示不超时。
	SetDeadline(t time.Time) error

	// Protocol 返回流使用的协议 ID。
	Protocol() string

	// RemotePeer 返回流对端的节点 ID。若连接已断开可能返回空字符串，
	// 调用者应检查返回值。
	RemotePeer() string
}
