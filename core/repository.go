package core

import (
	"context"
	"time"
)

// SignalStore 是互动计数的只读接口，由外部 Signal Store 实现。
//
// 实现：
//   - store.SignalAdapter（KV 后端，memory/redis 均可）
//   - 各测试包内的假实现
type SignalStore interface {
	// ListActiveProductSignals 列出所有在售商品的计数快照
	ListActiveProductSignals(ctx context.Context) ([]*ProductSignal, error)

	// GetProductSignal 读取单个商品的计数快照；不存在时返回 ErrStoreNotFound
	GetProductSignal(ctx context.Context, productID string) (*ProductSignal, error)
}

// ActivityStore 是行为日志的只读聚合接口。
type ActivityStore interface {
	// CountEventsByProduct 统计 since 之后每个商品的事件数
	CountEventsByProduct(ctx context.Context, since time.Time) (map[string]int64, error)

	// ListEventsForSubject 列出某个身份 since 之后的行为日志（since 为零值表示全部）
	ListEventsForSubject(ctx context.Context, subjectID string, since time.Time) ([]*ActivityEvent, error)
}

// ProductCatalog 是商品目录接口，用于把分数 join 成展示数据。
// 只返回存在的商品；缺失的 ID 直接缺席，不以 nil 占位。
type ProductCatalog interface {
	GetProductsByIDs(ctx context.Context, ids []string) ([]*Product, error)
}
