// 包 cache：查询结果缓存的统一抽象，内存与 Redis 两种实现按部署形态选用
package cache

import (
	"context"

	"ip-query/internal/geo"
)

// 文档注释：带 TTL 的键值存储
// 背景：单机部署用进程内实现，多实例/边缘部署用 Redis 实现共享命中；
// 管线只依赖本接口，两种形态行为一致。
// 约束：过期条目等同于不存在；仅 ret==200 的结果会被写入（由管线保证）；
// 基础设施故障表现为未命中，不向上传播错误。
type Store interface {
	Get(ctx context.Context, key string) (geo.Result, bool)
	Set(ctx context.Context, key string, val geo.Result)
}
