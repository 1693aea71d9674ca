package core

import "time"

// ProductSignal 是单个商品的互动计数快照，由 Signal Store 持有。
// 本引擎只读：计数由外部交互链路累加，这里只做打分输入。
type ProductSignal struct {
	ProductID     string
	ViewCount     int64
	CartCount     int64
	FavoriteCount int64
	OrderCount    int64
	CreatedAt     time.Time
	IsActive      bool
}

// ActivityType 是行为日志的类型枚举。
type ActivityType string

const (
	ActivityView     ActivityType = "VIEW"
	ActivityCartAdd  ActivityType = "CART_ADD"
	ActivityFavorite ActivityType = "FAVORITE"
	ActivityPurchase ActivityType = "PURCHASE"
)

// ActivityEvent 是一条行为日志，append-only。
// SubjectID 是 userId 或 sessionId；本引擎只按时间窗口读聚合。
type ActivityEvent struct {
	SubjectID string
	ProductID string
	Type      ActivityType
	Timestamp time.Time
}
