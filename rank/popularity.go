package rank

import (
	"math"
	"time"

	"github.com/rushteam/shoprec/core"
)

// PopularityScorer 是互动计数的加权打分器：纯函数、无 I/O、可并行可缓存。
//
// 权重按意图强度递增：order > favorite > cart > view。
// 新品通过 freshness boost 获得有界加分，避免被长期高曝光商品永久压制；
// boost 随商品年龄单调递减，且上限受 FreshnessBoost 约束，不会把零互动
// 商品抬进头部。
type PopularityScorer struct {
	ViewWeight     float64
	CartWeight     float64
	FavoriteWeight float64
	OrderWeight    float64

	// FreshnessBoost 是新品加分的上限（刚上架时取满值）
	FreshnessBoost float64

	// FreshnessHalfLife 是加分的半衰期；每过一个半衰期加分减半
	FreshnessHalfLife time.Duration
}

// NewPopularityScorer 返回默认权重的打分器。
func NewPopularityScorer() *PopularityScorer {
	return &PopularityScorer{
		ViewWeight:        1,
		CartWeight:        3,
		FavoriteWeight:    5,
		OrderWeight:       10,
		FreshnessBoost:    5,
		FreshnessHalfLife: 7 * 24 * time.Hour,
	}
}

// Score 计算单个商品的热度分，结果恒 >= 0。
// 负数计数视为数据错误，按 0 处理；now 为打分时刻（测试可注入）。
func (s *PopularityScorer) Score(sig *core.ProductSignal, now time.Time) float64 {
	if sig == nil {
		return 0
	}

	score := s.ViewWeight*clampCount(sig.ViewCount) +
		s.CartWeight*clampCount(sig.CartCount) +
		s.FavoriteWeight*clampCount(sig.FavoriteCount) +
		s.OrderWeight*clampCount(sig.OrderCount)

	score += s.freshness(sig.CreatedAt, now)

	if score < 0 {
		return 0
	}
	return score
}

// freshness 返回新品加分：FreshnessBoost * 0.5^(age/halfLife)。
// age <= 0（时钟偏移或缺失 CreatedAt）时取满值上限。
func (s *PopularityScorer) freshness(createdAt, now time.Time) float64 {
	if s.FreshnessBoost <= 0 || s.FreshnessHalfLife <= 0 {
		return 0
	}
	if createdAt.IsZero() {
		return 0
	}
	age := now.Sub(createdAt)
	if age <= 0 {
		return s.FreshnessBoost
	}
	halfLives := float64(age) / float64(s.FreshnessHalfLife)
	return s.FreshnessBoost * math.Pow(0.5, halfLives)
}

func clampCount(n int64) float64 {
	if n < 0 {
		return 0
	}
	return float64(n)
}
