// Package server 提供推荐引擎的 HTTP 暴露层（gin）。
//
// 路由：
//
//	GET /api/v1/recommendations                    混合流（分页）
//	GET /api/v1/recommendations/popular            全局热门
//	GET /api/v1/recommendations/trending           趋势榜
//	GET /api/v1/recommendations/personalized       个性化（游客自动兜底）
//	GET /api/v1/products/:id/similar               相似商品
//
// 身份从 X-User-ID / X-Session-ID 请求头解析，两者都缺省视为游客。
// 推荐结果允许短暂陈旧，成功响应带 Cache-Control 供 CDN / 客户端缓存。
package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/rushteam/shoprec/engine"
)

// Options 是 HTTP 层的可选配置。
type Options struct {
	// AllowOrigins 是 CORS 白名单；为空时允许所有来源（开发模式）
	AllowOrigins []string

	// CacheMaxAge 是 Cache-Control 的 max-age；<= 0 时取 30s
	CacheMaxAge time.Duration

	// StaleWhileRevalidate <= 0 时取 300s
	StaleWhileRevalidate time.Duration
}

// Server 持有聚合器与路由。
type Server struct {
	agg  *engine.Aggregator
	opts Options
}

// New 创建 HTTP 服务。
func New(agg *engine.Aggregator, opts Options) *Server {
	if opts.CacheMaxAge <= 0 {
		opts.CacheMaxAge = 30 * time.Second
	}
	if opts.StaleWhileRevalidate <= 0 {
		opts.StaleWhileRevalidate = 300 * time.Second
	}
	return &Server{agg: agg, opts: opts}
}

// Router 构建 gin.Engine，调用方负责 Run。
func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	corsConfig := cors.Config{
		AllowMethods: []string{"GET", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept",
			"X-User-ID", "X-Session-ID", "Cache-Control",
		},
		ExposeHeaders: []string{"Content-Type", "Cache-Control"},
		MaxAge:        12 * time.Hour,
	}
	if len(s.opts.AllowOrigins) > 0 {
		corsConfig.AllowOrigins = s.opts.AllowOrigins
		corsConfig.AllowCredentials = true
	} else {
		corsConfig.AllowAllOrigins = true
	}
	r.Use(cors.New(corsConfig))

	v1 := r.Group("/api/v1")
	{
		rec := v1.Group("/recommendations")
		rec.GET("", s.handleMixed)
		rec.GET("/popular", s.handleCategory(engine.KindPopular))
		rec.GET("/trending", s.handleCategory(engine.KindTrending))
		rec.GET("/personalized", s.handleCategory(engine.KindPersonalized))

		v1.GET("/products/:id/similar", s.handleSimilar)
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}
