package app

import "github.com/wyfcoding/ivcalc/server"

// Option 应用选项。
type Option func(*options)

type options struct {
	servers  []server.Server
	cleanups []func()
}

// WithServer 注册随应用启动、随应用关闭的服务器。
func WithServer(servers ...server.Server) Option {
	return func(o *options) {
		o.servers = append(o.servers, servers...)
	}
}

// WithCleanup 注册退出时执行的清理函数，按注册的逆序执行。
func WithCleanup(cleanup func()) Option {
	return func(o *options) {
		if cleanup != nil {
			o.cleanups = append(o.cleanups, cleanup)
		}
	}
}
