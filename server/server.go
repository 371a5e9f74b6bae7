// Package server 提供 HTTP 服务器的生命周期封装。
package server

import "context"

// Server 统一的服务器生命周期契约。
type Server interface {
	// Start 阻塞运行，直到 ctx 取消或监听失败。
	Start(ctx context.Context) error
	// Stop 等待在途请求完成后关闭。
	Stop(ctx context.Context) error
}
