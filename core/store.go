package core

import "context"

// Store 是通用 KV 存储的领域接口。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（store）实现
//   - 领域层不依赖任何具体存储，方便用假实现做单测
//
// 使用场景：
//   - 结果缓存（短 TTL，见 engine 包）
//   - 分页去重记账（已下发商品集合）
//   - 信号/行为数据的存储后端
type Store interface {
	// Name 返回存储后端名称（用于日志/监控）
	Name() string

	// Get 读取单个 key 的值；不存在时返回 ErrStoreNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Set 写入单个 key-value，ttl 单位为秒（0 表示不过期）
	Set(ctx context.Context, key string, value []byte, ttl ...int) error

	// Delete 删除单个 key
	Delete(ctx context.Context, key string) error

	// BatchGet 批量读取（减少网络往返）；缺失的 key 不出现在结果里
	BatchGet(ctx context.Context, keys []string) (map[string][]byte, error)

	// DeletePrefix 按前缀删除（缓存失效用）
	DeletePrefix(ctx context.Context, prefix string) error

	// Close 关闭连接/释放资源
	Close() error
}

// KeyValueStore 是 Store 的扩展接口，补充有序集合与集合操作。
//
// 扩展功能：
//   - 有序集合（SortedSet）：热门榜、趋势榜
//   - 集合（Set）：分页会话内已下发的商品 ID
//
// 后端不支持某些操作时可返回 ErrStoreNotSupported。
type KeyValueStore interface {
	Store

	// ZAdd 向有序集合添加成员
	ZAdd(ctx context.Context, key string, score float64, member string) error

	// ZRevRange 按分数降序获取有序集合成员（TopN 用）
	ZRevRange(ctx context.Context, key string, start, stop int64) ([]string, error)

	// ZScore 获取成员的分数；不存在时返回 ErrStoreNotFound
	ZScore(ctx context.Context, key string, member string) (float64, error)

	// SAdd 向集合添加成员，ttl 单位为秒（0 表示不过期）
	SAdd(ctx context.Context, key string, members []string, ttl ...int) error

	// SMembers 获取集合全部成员；key 不存在时返回空切片
	SMembers(ctx context.Context, key string) ([]string, error)
}
