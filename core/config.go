package core

import "time"

// RecommendConfig 是推荐链路的默认值配置接口。
type RecommendConfig interface {
	// DefaultLimit 返回单类目的默认条数
	DefaultLimit() int

	// MaxLimit 返回 limit 的收敛上限（请求超过时被钳制）
	MaxLimit() int

	// DefaultWindowDays 返回趋势统计的默认时间窗口（天）
	DefaultWindowDays() int

	// CacheTTL 返回结果缓存的生存时间
	CacheTTL() time.Duration

	// DefaultTimeout 返回单个召回源的超时时间
	DefaultTimeout() time.Duration
}

// DefaultRecommendConfig 是默认配置实现。
type DefaultRecommendConfig struct{}

func (c *DefaultRecommendConfig) DefaultLimit() int {
	return 10
}

func (c *DefaultRecommendConfig) MaxLimit() int {
	return 50
}

func (c *DefaultRecommendConfig) DefaultWindowDays() int {
	return 7
}

func (c *DefaultRecommendConfig) CacheTTL() time.Duration {
	return 60 * time.Second
}

func (c *DefaultRecommendConfig) DefaultTimeout() time.Duration {
	return 2 * time.Second
}
